package response

import (
	"time"

	"storefront/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type SnapshotResponse struct {
	Title      string            `json:"title"`
	Price      int64             `json:"price"`
	Image      *string           `json:"image"`
	Attributes map[string]string `json:"attributes"`
}

type OrderItemResponse struct {
	ProductID  uuid.UUID        `json:"productId"`
	VariantSKU string           `json:"variantSku"`
	Quantity   int              `json:"quantity"`
	Snapshot   SnapshotResponse `json:"snapshot"`
}

type ShippingAddressResponse struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

type OrderResponse struct {
	ID              uuid.UUID               `json:"id"`
	OrderNumber     string                  `json:"orderNumber"`
	UserID          uuid.UUID               `json:"userId"`
	Items           []OrderItemResponse     `json:"items"`
	Total           int64                   `json:"total"`
	Status          string                  `json:"status"`
	ShippingAddress ShippingAddressResponse `json:"shippingAddress"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}

type OrderListResponse struct {
	Orders     []*OrderResponse `json:"orders"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

func FromOrderView(v *queries.OrderView) (*OrderResponse, error) {
	res := &OrderResponse{}
	if err := copier.CopyWithOption(res, v, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}
	if res.Items == nil {
		res.Items = []OrderItemResponse{}
	}
	return res, nil
}

func FromOrderList(views []*queries.OrderView, next *queries.Cursor) (*OrderListResponse, error) {
	res := &OrderListResponse{Orders: make([]*OrderResponse, 0, len(views))}
	for _, v := range views {
		o, err := FromOrderView(v)
		if err != nil {
			return nil, err
		}
		res.Orders = append(res.Orders, o)
	}
	if next != nil {
		res.NextCursor = next.After
	}
	return res, nil
}
