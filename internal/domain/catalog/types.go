package catalog

import "errors"

var (
	ErrEmptyTitle            = errors.New("product title cannot be empty")
	ErrEmptyOptionName       = errors.New("option name cannot be empty")
	ErrEmptyOptionValue      = errors.New("option value cannot be empty")
	ErrDuplicateOption       = errors.New("duplicate option name")
	ErrNoVariants            = errors.New("product must have at least one variant")
	ErrEmptySKU              = errors.New("variant sku cannot be empty")
	ErrDuplicateSKU          = errors.New("duplicate variant sku")
	ErrNegativeStock         = errors.New("stock cannot be negative")
	ErrNegativePrice         = errors.New("price cannot be negative")
	ErrUnknownAttribute      = errors.New("variant attribute is not a product option")
	ErrInvalidAttributeValue = errors.New("variant attribute value is not allowed by its option")
	ErrVariantNotFound       = errors.New("variant not found")
)
