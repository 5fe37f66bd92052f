package queries

import "storefront/internal/pkg/errs"

var (
	ErrOrderNotFound   = errs.New("order not found")
	ErrProductNotFound = errs.New("product not found")
	ErrInvalidCursor   = errs.New("invalid cursor")
)
