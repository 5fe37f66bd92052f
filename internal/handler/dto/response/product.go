package response

import (
	"time"

	"storefront/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type OptionResponse struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type VariantResponse struct {
	SKU        string            `json:"sku"`
	Attributes map[string]string `json:"attributes"`
	Stock      int               `json:"stock"`
	Price      int64             `json:"price"`
	Images     []string          `json:"images"`
}

type ProductResponse struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Options     []OptionResponse  `json:"options"`
	Variants    []VariantResponse `json:"variants"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type ProductListResponse struct {
	Products   []*ProductResponse `json:"products"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

func FromProductView(v *queries.ProductView) (*ProductResponse, error) {
	res := &ProductResponse{}
	if err := copier.CopyWithOption(res, v, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}
	if res.Options == nil {
		res.Options = []OptionResponse{}
	}
	if res.Variants == nil {
		res.Variants = []VariantResponse{}
	}
	return res, nil
}

func FromProductList(views []*queries.ProductView, next *queries.Cursor) (*ProductListResponse, error) {
	res := &ProductListResponse{Products: make([]*ProductResponse, 0, len(views))}
	for _, v := range views {
		p, err := FromProductView(v)
		if err != nil {
			return nil, err
		}
		res.Products = append(res.Products, p)
	}
	if next != nil {
		res.NextCursor = next.After
	}
	return res, nil
}
