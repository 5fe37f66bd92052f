package cart

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrItemNotFound    = errors.New("cart item not found")
)

type Item struct {
	productID uuid.UUID
	sku       string
	quantity  int
}

func NewItem(productID uuid.UUID, sku string, quantity int) (Item, error) {
	if quantity < 1 {
		return Item{}, ErrInvalidQuantity
	}
	return Item{productID: productID, sku: sku, quantity: quantity}, nil
}

func (i Item) ProductID() uuid.UUID { return i.productID }
func (i Item) SKU() string          { return i.sku }
func (i Item) Quantity() int        { return i.quantity }

// Cart is a user's ordered list of line items. Prices and stock are never
// cached here; they are resolved against the catalog when needed.
type Cart struct {
	id        uuid.UUID
	userID    uuid.UUID
	items     []Item
	createdAt time.Time
	updatedAt time.Time
}

func NewCart(userID uuid.UUID, now time.Time) *Cart {
	return &Cart{
		id:        uuid.New(),
		userID:    userID,
		createdAt: now,
		updatedAt: now,
	}
}

func ReconstructCart(id, userID uuid.UUID, items []Item, createdAt, updatedAt time.Time) *Cart {
	return &Cart{
		id:        id,
		userID:    userID,
		items:     items,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// Add appends a line or merges into an existing line with the same SKU,
// returning the resulting line.
func (c *Cart) Add(productID uuid.UUID, sku string, qty int, now time.Time) (Item, error) {
	if qty < 1 {
		return Item{}, ErrInvalidQuantity
	}
	for i, it := range c.items {
		if it.sku == sku {
			c.items[i].quantity += qty
			c.updatedAt = now
			return c.items[i], nil
		}
	}
	it := Item{productID: productID, sku: sku, quantity: qty}
	c.items = append(c.items, it)
	c.updatedAt = now
	return it, nil
}

func (c *Cart) SetQuantity(sku string, qty int, now time.Time) (Item, error) {
	if qty < 1 {
		return Item{}, ErrInvalidQuantity
	}
	for i, it := range c.items {
		if it.sku == sku {
			c.items[i].quantity = qty
			c.updatedAt = now
			return c.items[i], nil
		}
	}
	return Item{}, ErrItemNotFound
}

func (c *Cart) Remove(sku string, now time.Time) error {
	for i, it := range c.items {
		if it.sku == sku {
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.updatedAt = now
			return nil
		}
	}
	return ErrItemNotFound
}

func (c *Cart) Clear(now time.Time) {
	c.items = nil
	c.updatedAt = now
}

func (c *Cart) Item(sku string) (Item, bool) {
	for _, it := range c.items {
		if it.sku == sku {
			return it, true
		}
	}
	return Item{}, false
}

func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

func (c *Cart) ID() uuid.UUID        { return c.id }
func (c *Cart) UserID() uuid.UUID    { return c.userID }
func (c *Cart) Items() []Item        { return append([]Item(nil), c.items...) }
func (c *Cart) CreatedAt() time.Time { return c.createdAt }
func (c *Cart) UpdatedAt() time.Time { return c.updatedAt }
