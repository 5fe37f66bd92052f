//go:build unit || e2e

package builder

import (
	"time"

	"storefront/internal/domain/catalog"
	"storefront/internal/domain/order"
	reqdto "storefront/internal/handler/dto/request"
	"storefront/internal/usecase/queries"

	"github.com/google/uuid"
)

type OrderItemSpec struct {
	ProductID  uuid.UUID
	SKU        string
	Quantity   int
	Title      string
	Price      int64
	Image      *string
	Attributes map[string]string
}

type OrderBuilder struct {
	Number  string
	UserID  uuid.UUID
	Items   []OrderItemSpec
	Address order.ShippingAddress
	Status  order.Status
	Now     time.Time
}

func NewOrderBuilder() *OrderBuilder {
	img := "https://cdn.example.com/tee-red.png"
	return &OrderBuilder{
		Number: "ORD-20260101120000-0A1B2C3D",
		UserID: uuid.New(),
		Items: []OrderItemSpec{
			{
				ProductID:  uuid.New(),
				SKU:        "TEE-M-RED",
				Quantity:   2,
				Title:      "Classic Tee",
				Price:      1999,
				Image:      &img,
				Attributes: map[string]string{"size": "M", "color": "red"},
			},
		},
		Address: DefaultAddress(),
		Status:  order.StatusPending,
		Now:     time.Now(),
	}
}

func DefaultAddress() order.ShippingAddress {
	return order.ShippingAddress{
		Street:  "1 Main St",
		City:    "Springfield",
		State:   "IL",
		Zip:     "62701",
		Country: "US",
	}
}

func DefaultAddressDTO() reqdto.ShippingAddressRequest {
	a := DefaultAddress()
	return reqdto.ShippingAddressRequest{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Country: a.Country,
	}
}

func (b *OrderBuilder) With(mutate func(*OrderBuilder)) *OrderBuilder {
	mutate(b)
	return b
}

func (b *OrderBuilder) WithUserID(id uuid.UUID) *OrderBuilder {
	b.UserID = id
	return b
}

func (b *OrderBuilder) WithStatus(s order.Status) *OrderBuilder {
	b.Status = s
	return b
}

func (b *OrderBuilder) WithItems(items ...OrderItemSpec) *OrderBuilder {
	b.Items = items
	return b
}

func (b *OrderBuilder) buildItems() ([]order.Item, error) {
	items := make([]order.Item, 0, len(b.Items))
	for _, spec := range b.Items {
		price, err := catalog.NewMoney(spec.Price)
		if err != nil {
			return nil, err
		}
		snap := order.ReconstructSnapshot(spec.Title, price, spec.Image, spec.Attributes)
		it, err := order.NewItem(spec.ProductID, spec.SKU, spec.Quantity, snap)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// BuildDomain creates a new order, then forces the configured status.
func (b *OrderBuilder) BuildDomain() (*order.Order, error) {
	items, err := b.buildItems()
	if err != nil {
		return nil, err
	}
	o, err := order.NewOrder(b.Number, b.UserID, items, b.Address, b.Now)
	if err != nil {
		return nil, err
	}
	if b.Status == order.StatusPending {
		return o, nil
	}
	return order.ReconstructOrder(o.ID(), o.Number(), o.UserID(), o.Items(), o.Total(), b.Status, o.ShippingAddress(), o.CreatedAt(), o.UpdatedAt()), nil
}

func (b *OrderBuilder) MustBuildDomain() *order.Order {
	o, err := b.BuildDomain()
	if err != nil {
		panic(err)
	}
	return o
}

func (b *OrderBuilder) BuildView() *queries.OrderView {
	return queries.OrderViewFromDomain(b.MustBuildDomain())
}
