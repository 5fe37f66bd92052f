package response

import (
	"storefront/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type CartLineResponse struct {
	ProductID  uuid.UUID         `json:"productId"`
	VariantSKU string            `json:"variantSku"`
	Quantity   int               `json:"quantity"`
	Title      string            `json:"title"`
	UnitPrice  int64             `json:"unitPrice"`
	LineTotal  int64             `json:"lineTotal"`
	Stock      int               `json:"stock"`
	Image      *string           `json:"image"`
	Attributes map[string]string `json:"attributes"`
	Available  bool              `json:"available"`
}

type CartResponse struct {
	UserID    uuid.UUID          `json:"userId"`
	Items     []CartLineResponse `json:"items"`
	ItemCount int                `json:"itemCount"`
	Subtotal  int64              `json:"subtotal"`
}

func FromCartView(v *queries.CartView) (*CartResponse, error) {
	res := &CartResponse{}
	if err := copier.CopyWithOption(res, v, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}
	if res.Items == nil {
		res.Items = []CartLineResponse{}
	}
	return res, nil
}
