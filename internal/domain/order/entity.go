package order

import (
	"maps"
	"strings"
	"time"

	"storefront/internal/domain/catalog"

	"github.com/google/uuid"
)

// Snapshot freezes the product data a line was bought with. Once written it
// is never changed, whatever happens to the catalog afterwards.
type Snapshot struct {
	title      string
	price      catalog.Money
	image      *string
	attributes map[string]string
}

// SnapshotOf captures the purchase-time view of a variant.
func SnapshotOf(title string, v catalog.Variant) Snapshot {
	return Snapshot{
		title:      title,
		price:      v.Price(),
		image:      v.PrimaryImage(),
		attributes: v.Attributes(),
	}
}

func ReconstructSnapshot(title string, price catalog.Money, image *string, attributes map[string]string) Snapshot {
	if attributes == nil {
		attributes = map[string]string{}
	}
	return Snapshot{title: title, price: price, image: image, attributes: attributes}
}

func (s Snapshot) Title() string                 { return s.title }
func (s Snapshot) Price() catalog.Money          { return s.price }
func (s Snapshot) Image() *string                { return s.image }
func (s Snapshot) Attributes() map[string]string { return maps.Clone(s.attributes) }

type Item struct {
	productID uuid.UUID
	sku       string
	quantity  int
	snapshot  Snapshot
}

func NewItem(productID uuid.UUID, sku string, quantity int, snapshot Snapshot) (Item, error) {
	if quantity < 1 {
		return Item{}, ErrInvalidQuantity
	}
	return Item{productID: productID, sku: sku, quantity: quantity, snapshot: snapshot}, nil
}

func (i Item) ProductID() uuid.UUID { return i.productID }
func (i Item) SKU() string          { return i.sku }
func (i Item) Quantity() int        { return i.quantity }
func (i Item) Snapshot() Snapshot   { return i.snapshot }

func (i Item) Subtotal() catalog.Money {
	return i.snapshot.price.Times(i.quantity)
}

type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

func (a ShippingAddress) Validate() error {
	for _, f := range []string{a.Street, a.City, a.State, a.Zip, a.Country} {
		if strings.TrimSpace(f) == "" {
			return ErrIncompleteAddress
		}
	}
	return nil
}

type Order struct {
	id              uuid.UUID
	number          string
	userID          uuid.UUID
	items           []Item
	total           catalog.Money
	status          Status
	shippingAddress ShippingAddress
	createdAt       time.Time
	updatedAt       time.Time
}

// NewOrder builds a PENDING order whose total is the sum of the snapshot
// prices times quantities.
func NewOrder(number string, userID uuid.UUID, items []Item, address ShippingAddress, now time.Time) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if err := address.Validate(); err != nil {
		return nil, err
	}

	var total catalog.Money
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}

	return &Order{
		id:              uuid.New(),
		number:          number,
		userID:          userID,
		items:           append([]Item(nil), items...),
		total:           total,
		status:          StatusPending,
		shippingAddress: address,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

func ReconstructOrder(
	id uuid.UUID,
	number string,
	userID uuid.UUID,
	items []Item,
	total catalog.Money,
	status Status,
	address ShippingAddress,
	createdAt, updatedAt time.Time,
) *Order {
	return &Order{
		id:              id,
		number:          number,
		userID:          userID,
		items:           items,
		total:           total,
		status:          status,
		shippingAddress: address,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// Cancel moves a PENDING order to CANCELLED. Any other status is refused.
func (o *Order) Cancel(now time.Time) error {
	if o.status != StatusPending {
		return &InvalidStateTransitionError{Current: o.status, Target: StatusCancelled}
	}
	o.status = StatusCancelled
	o.updatedAt = now
	return nil
}

func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.userID == userID
}

func (o *Order) ID() uuid.UUID                    { return o.id }
func (o *Order) Number() string                   { return o.number }
func (o *Order) UserID() uuid.UUID                { return o.userID }
func (o *Order) Items() []Item                    { return append([]Item(nil), o.items...) }
func (o *Order) Total() catalog.Money             { return o.total }
func (o *Order) Status() Status                   { return o.status }
func (o *Order) ShippingAddress() ShippingAddress { return o.shippingAddress }
func (o *Order) CreatedAt() time.Time             { return o.createdAt }
func (o *Order) UpdatedAt() time.Time             { return o.updatedAt }
