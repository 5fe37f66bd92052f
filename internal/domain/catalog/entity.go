package catalog

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Variant struct {
	sku        string
	attributes map[string]string
	stock      int
	price      Money
	images     []string
}

func NewVariant(sku string, attributes map[string]string, stock int, price Money, images []string) (Variant, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return Variant{}, ErrEmptySKU
	}
	if stock < 0 {
		return Variant{}, ErrNegativeStock
	}
	if attributes == nil {
		attributes = map[string]string{}
	}
	return Variant{
		sku:        sku,
		attributes: maps.Clone(attributes),
		stock:      stock,
		price:      price,
		images:     cloneImages(images),
	}, nil
}

func (v Variant) SKU() string                   { return v.sku }
func (v Variant) Attributes() map[string]string { return maps.Clone(v.attributes) }
func (v Variant) Stock() int                    { return v.stock }
func (v Variant) Price() Money                  { return v.price }
func (v Variant) Images() []string              { return cloneImages(v.images) }

// cloneImages never returns nil; images is a NOT NULL array column.
func cloneImages(images []string) []string {
	out := make([]string, 0, len(images))
	return append(out, images...)
}

// PrimaryImage is the first image, or nil when the variant has none.
func (v Variant) PrimaryImage() *string {
	if len(v.images) == 0 {
		return nil
	}
	img := v.images[0]
	return &img
}

func (v Variant) HasStock(qty int) bool {
	return qty <= v.stock
}

type Product struct {
	id          uuid.UUID
	title       string
	description string
	options     []Option
	variants    []Variant
	createdAt   time.Time
	updatedAt   time.Time
}

func NewProduct(title, description string, options []Option, variants []Variant, now time.Time) (*Product, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if len(variants) == 0 {
		return nil, ErrNoVariants
	}

	p := &Product{
		id:          uuid.New(),
		title:       title,
		description: strings.TrimSpace(description),
		options:     append([]Option(nil), options...),
		variants:    append([]Variant(nil), variants...),
		createdAt:   now,
		updatedAt:   now,
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func ReconstructProduct(
	id uuid.UUID,
	title, description string,
	options []Option,
	variants []Variant,
	createdAt, updatedAt time.Time,
) *Product {
	return &Product{
		id:          id,
		title:       title,
		description: description,
		options:     options,
		variants:    variants,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (p *Product) validate() error {
	names := make(map[string]struct{}, len(p.options))
	for _, o := range p.options {
		if _, dup := names[o.name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateOption, o.name)
		}
		names[o.name] = struct{}{}
	}

	skus := make(map[string]struct{}, len(p.variants))
	for _, v := range p.variants {
		if _, dup := skus[v.sku]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateSKU, v.sku)
		}
		skus[v.sku] = struct{}{}
		if err := ValidateVariantAttributes(p.options, v.attributes); err != nil {
			return fmt.Errorf("variant %q: %w", v.sku, err)
		}
	}
	return nil
}

// Variant resolves a variant by SKU.
func (p *Product) Variant(sku string) (Variant, bool) {
	for _, v := range p.variants {
		if v.sku == sku {
			return v, true
		}
	}
	return Variant{}, false
}

type VariantPatch struct {
	Price      *Money
	Stock      *int
	Images     *[]string
	Attributes *map[string]string
}

// UpdateVariant applies patch to the variant identified by sku and returns the result.
func (p *Product) UpdateVariant(sku string, patch VariantPatch, now time.Time) (Variant, error) {
	idx := -1
	for i, v := range p.variants {
		if v.sku == sku {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Variant{}, ErrVariantNotFound
	}

	v := p.variants[idx]
	if patch.Price != nil {
		v.price = *patch.Price
	}
	if patch.Stock != nil {
		if *patch.Stock < 0 {
			return Variant{}, ErrNegativeStock
		}
		v.stock = *patch.Stock
	}
	if patch.Images != nil {
		v.images = cloneImages(*patch.Images)
	}
	if patch.Attributes != nil {
		if err := ValidateVariantAttributes(p.options, *patch.Attributes); err != nil {
			return Variant{}, err
		}
		v.attributes = maps.Clone(*patch.Attributes)
	}

	p.variants[idx] = v
	p.updatedAt = now
	return v, nil
}

func (p *Product) ID() uuid.UUID        { return p.id }
func (p *Product) Title() string        { return p.title }
func (p *Product) Description() string  { return p.description }
func (p *Product) Options() []Option    { return append([]Option(nil), p.options...) }
func (p *Product) Variants() []Variant  { return append([]Variant(nil), p.variants...) }
func (p *Product) CreatedAt() time.Time { return p.createdAt }
func (p *Product) UpdatedAt() time.Time { return p.updatedAt }
