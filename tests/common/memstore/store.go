//go:build unit

// Package memstore is an in-memory implementation of the unit of work and
// read stores. Each Within call works on a private copy of the state that
// replaces the committed state only when the callback succeeds. Calls are
// serialized, which behaves like SERIALIZABLE isolation.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/catalog"
	"storefront/internal/domain/order"
	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/usecase/queries"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

type variantRow struct {
	sku        string
	attributes map[string]string
	stock      int
	price      int64
	images     []string
}

type productRow struct {
	id          uuid.UUID
	title       string
	description string
	options     []catalog.Option
	variants    []variantRow
	createdAt   time.Time
	updatedAt   time.Time
}

type cartItemRow struct {
	productID uuid.UUID
	sku       string
	quantity  int
}

type cartRow struct {
	id        uuid.UUID
	userID    uuid.UUID
	items     []cartItemRow
	createdAt time.Time
	updatedAt time.Time
}

type orderRow struct {
	order     *order.Order
	status    order.Status
	updatedAt time.Time
}

type state struct {
	products map[uuid.UUID]*productRow
	carts    map[uuid.UUID]*cartRow // by user id
	orders   map[uuid.UUID]*orderRow
	events   []shared.OrderEvent
}

func newState() *state {
	return &state{
		products: map[uuid.UUID]*productRow{},
		carts:    map[uuid.UUID]*cartRow{},
		orders:   map[uuid.UUID]*orderRow{},
	}
}

func (s *state) clone() *state {
	out := newState()
	for id, p := range s.products {
		cp := *p
		cp.options = slices.Clone(p.options)
		cp.variants = make([]variantRow, len(p.variants))
		for i, v := range p.variants {
			v.attributes = maps.Clone(v.attributes)
			v.images = slices.Clone(v.images)
			cp.variants[i] = v
		}
		out.products[id] = &cp
	}
	for id, c := range s.carts {
		cp := *c
		cp.items = slices.Clone(c.items)
		out.carts[id] = &cp
	}
	for id, o := range s.orders {
		cp := *o
		out.orders[id] = &cp
	}
	out.events = slices.Clone(s.events)
	return out
}

type Store struct {
	mu        sync.Mutex
	committed *state

	// Failures maps an operation name (e.g. "orders.create") to the error it returns.
	Failures map[string]error
	// ConflictSKUs makes DecrementStock report zero affected rows for these SKUs.
	ConflictSKUs map[string]bool

	Commits   int
	Rollbacks int
}

func New() *Store {
	return &Store{
		committed:    newState(),
		Failures:     map[string]error{},
		ConflictSKUs: map[string]bool{},
	}
}

var _ shared.UnitOfWork = (*Store)(nil)

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.committed.clone()
	if err := fn(ctx, &memTx{store: s, st: work}); err != nil {
		s.Rollbacks++
		return err
	}
	s.committed = work
	s.Commits++
	return nil
}

func (s *Store) WithinReadOnly(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, &memTx{store: s, st: s.committed.clone()})
}

// WithDB applies every statement directly, with no rollback.
func (s *Store) WithDB(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, &memTx{store: s, st: s.committed})
}

func (s *Store) fail(op string) error {
	if err, ok := s.Failures[op]; ok {
		return err
	}
	return nil
}

// ---- seeding and inspection helpers ----

func (s *Store) SeedProduct(p *catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.products[p.ID()] = rowFromProduct(p)
}

func (s *Store) SeedCart(userID uuid.UUID, items ...cart.Item) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	row := &cartRow{id: uuid.New(), userID: userID, createdAt: now, updatedAt: now}
	for _, it := range items {
		row.items = append(row.items, cartItemRow{productID: it.ProductID(), sku: it.SKU(), quantity: it.Quantity()})
	}
	s.committed.carts[userID] = row
	return row.id
}

func (s *Store) DeleteProduct(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.committed.products, id)
}

// Stock returns the committed stock of a variant, or -1 when it does not exist.
func (s *Store) Stock(productID uuid.UUID, sku string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.committed.products[productID]
	if !ok {
		return -1
	}
	for _, v := range p.variants {
		if v.sku == sku {
			return v.stock
		}
	}
	return -1
}

// SetPrice changes a committed variant price, bypassing domain validation.
func (s *Store) SetPrice(productID uuid.UUID, sku string, price int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.committed.products[productID]
	for i := range p.variants {
		if p.variants[i].sku == sku {
			p.variants[i].price = price
		}
	}
}

func (s *Store) CartItems(userID uuid.UUID) []cart.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.committed.carts[userID]
	if !ok {
		return nil
	}
	return row.domainItems()
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.committed.orders)
}

func (s *Store) Events() []shared.OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.committed.events)
}

// ---- conversions ----

func rowFromProduct(p *catalog.Product) *productRow {
	row := &productRow{
		id:          p.ID(),
		title:       p.Title(),
		description: p.Description(),
		options:     p.Options(),
		createdAt:   p.CreatedAt(),
		updatedAt:   p.UpdatedAt(),
	}
	for _, v := range p.Variants() {
		row.variants = append(row.variants, variantRowFrom(v))
	}
	return row
}

func variantRowFrom(v catalog.Variant) variantRow {
	return variantRow{
		sku:        v.SKU(),
		attributes: v.Attributes(),
		stock:      v.Stock(),
		price:      v.Price().Minor(),
		images:     v.Images(),
	}
}

func (r *productRow) toDomain() *catalog.Product {
	variants := make([]catalog.Variant, 0, len(r.variants))
	for _, v := range r.variants {
		price, _ := catalog.NewMoney(v.price)
		dv, _ := catalog.NewVariant(v.sku, v.attributes, v.stock, price, v.images)
		variants = append(variants, dv)
	}
	return catalog.ReconstructProduct(r.id, r.title, r.description, slices.Clone(r.options), variants, r.createdAt, r.updatedAt)
}

func (r *cartRow) domainItems() []cart.Item {
	items := make([]cart.Item, 0, len(r.items))
	for _, it := range r.items {
		ci, _ := cart.NewItem(it.productID, it.sku, it.quantity)
		items = append(items, ci)
	}
	return items
}

func (r *orderRow) toDomain() *order.Order {
	o := r.order
	return order.ReconstructOrder(o.ID(), o.Number(), o.UserID(), o.Items(), o.Total(), r.status, o.ShippingAddress(), o.CreatedAt(), r.updatedAt)
}

func notFound(msg string) error {
	return infra.WrapRepoErr(msg, nil, infra.KindNotFound)
}

// ---- transaction and repositories ----

type memTx struct {
	store *Store
	st    *state
}

func (t *memTx) Catalog() shared.CatalogRepository   { return catalogRepo{t} }
func (t *memTx) Carts() shared.CartRepository        { return cartRepo{t} }
func (t *memTx) Orders() shared.OrderRepository      { return orderRepo{t} }
func (t *memTx) Events() shared.OrderEventRepository { return eventRepo{t} }
func (t *memTx) DB() db.DBTX                         { return nil }

type catalogRepo struct{ tx *memTx }

func (r catalogRepo) FindProduct(_ context.Context, _ db.DBTX, id uuid.UUID, _ bool) (*catalog.Product, error) {
	if err := r.tx.store.fail("catalog.find"); err != nil {
		return nil, err
	}
	row, ok := r.tx.st.products[id]
	if !ok {
		return nil, notFound("product not found")
	}
	return row.toDomain(), nil
}

func (r catalogRepo) CreateProduct(_ context.Context, _ db.DBTX, p *catalog.Product) error {
	if err := r.tx.store.fail("catalog.create"); err != nil {
		return err
	}
	for _, existing := range r.tx.st.products {
		for _, ev := range existing.variants {
			for _, nv := range p.Variants() {
				if ev.sku == nv.SKU() {
					return infra.WrapRepoErr("duplicate sku", nil, infra.KindDuplicateKey)
				}
			}
		}
	}
	r.tx.st.products[p.ID()] = rowFromProduct(p)
	return nil
}

func (r catalogRepo) UpdateVariant(_ context.Context, _ db.DBTX, productID uuid.UUID, v catalog.Variant, stock *int, now time.Time) error {
	row, ok := r.tx.st.products[productID]
	if !ok {
		return notFound("product not found")
	}
	for i := range row.variants {
		if row.variants[i].sku == v.SKU() {
			current := row.variants[i].stock
			row.variants[i] = variantRowFrom(v)
			if stock == nil {
				row.variants[i].stock = current
			}
			row.updatedAt = now
			return nil
		}
	}
	return notFound("variant not found")
}

func (r catalogRepo) DeleteProduct(_ context.Context, _ db.DBTX, id uuid.UUID) error {
	if _, ok := r.tx.st.products[id]; !ok {
		return notFound("product not found")
	}
	delete(r.tx.st.products, id)
	return nil
}

func (r catalogRepo) variant(productID uuid.UUID, sku string) *variantRow {
	row, ok := r.tx.st.products[productID]
	if !ok {
		return nil
	}
	for i := range row.variants {
		if row.variants[i].sku == sku {
			return &row.variants[i]
		}
	}
	return nil
}

func (r catalogRepo) DecrementStock(_ context.Context, _ db.DBTX, productID uuid.UUID, sku string, qty int) (bool, error) {
	if err := r.tx.store.fail("catalog.decrement"); err != nil {
		return false, err
	}
	if r.tx.store.ConflictSKUs[sku] {
		return false, nil
	}
	v := r.variant(productID, sku)
	if v == nil || v.stock < qty {
		return false, nil
	}
	v.stock -= qty
	return true, nil
}

func (r catalogRepo) IncrementStock(_ context.Context, _ db.DBTX, productID uuid.UUID, sku string, qty int) (bool, error) {
	if err := r.tx.store.fail("catalog.increment"); err != nil {
		return false, err
	}
	v := r.variant(productID, sku)
	if v == nil {
		return false, nil
	}
	v.stock += qty
	return true, nil
}

type cartRepo struct{ tx *memTx }

func (r cartRepo) FindByUserID(_ context.Context, _ db.DBTX, userID uuid.UUID, _ bool) (*cart.Cart, error) {
	row, ok := r.tx.st.carts[userID]
	if !ok {
		return nil, notFound("cart not found")
	}
	return cart.ReconstructCart(row.id, row.userID, row.domainItems(), row.createdAt, row.updatedAt), nil
}

func (r cartRepo) Create(_ context.Context, _ db.DBTX, c *cart.Cart) error {
	if _, ok := r.tx.st.carts[c.UserID()]; ok {
		return nil
	}
	r.tx.st.carts[c.UserID()] = &cartRow{id: c.ID(), userID: c.UserID(), createdAt: c.CreatedAt(), updatedAt: c.UpdatedAt()}
	return nil
}

func (r cartRepo) byID(cartID uuid.UUID) *cartRow {
	for _, row := range r.tx.st.carts {
		if row.id == cartID {
			return row
		}
	}
	return nil
}

func (r cartRepo) UpsertItem(_ context.Context, _ db.DBTX, cartID uuid.UUID, item cart.Item) error {
	row := r.byID(cartID)
	if row == nil {
		return notFound("cart not found")
	}
	for i := range row.items {
		if row.items[i].sku == item.SKU() {
			row.items[i].quantity = item.Quantity()
			return nil
		}
	}
	row.items = append(row.items, cartItemRow{productID: item.ProductID(), sku: item.SKU(), quantity: item.Quantity()})
	return nil
}

func (r cartRepo) DeleteItem(_ context.Context, _ db.DBTX, cartID uuid.UUID, sku string) error {
	row := r.byID(cartID)
	if row == nil {
		return notFound("cart not found")
	}
	row.items = slices.DeleteFunc(row.items, func(it cartItemRow) bool { return it.sku == sku })
	return nil
}

func (r cartRepo) ClearItems(_ context.Context, _ db.DBTX, cartID uuid.UUID) error {
	if err := r.tx.store.fail("carts.clear"); err != nil {
		return err
	}
	row := r.byID(cartID)
	if row == nil {
		return notFound("cart not found")
	}
	row.items = nil
	return nil
}

type orderRepo struct{ tx *memTx }

func (r orderRepo) Create(_ context.Context, _ db.DBTX, o *order.Order) error {
	if err := r.tx.store.fail("orders.create"); err != nil {
		return err
	}
	r.tx.st.orders[o.ID()] = &orderRow{order: o, status: o.Status(), updatedAt: o.UpdatedAt()}
	return nil
}

func (r orderRepo) FindByID(_ context.Context, _ db.DBTX, id uuid.UUID, _ bool) (*order.Order, error) {
	row, ok := r.tx.st.orders[id]
	if !ok {
		return nil, notFound("order not found")
	}
	return row.toDomain(), nil
}

func (r orderRepo) UpdateStatus(_ context.Context, _ db.DBTX, id uuid.UUID, status order.Status, now time.Time) (bool, error) {
	if err := r.tx.store.fail("orders.update_status"); err != nil {
		return false, err
	}
	row, ok := r.tx.st.orders[id]
	if !ok {
		return false, nil
	}
	row.status = status
	row.updatedAt = now
	return true, nil
}

type eventRepo struct{ tx *memTx }

func (r eventRepo) Enqueue(_ context.Context, _ db.DBTX, ev shared.OrderEvent) error {
	if err := r.tx.store.fail("events.enqueue"); err != nil {
		return err
	}
	r.tx.st.events = append(r.tx.st.events, ev)
	return nil
}

// ---- read stores ----

var (
	_ queries.OrderReadStore   = (*Store)(nil)
	_ queries.ProductReadStore = ProductReads{}
	_ queries.CartReadStore    = (*Store)(nil)
)

func (s *Store) FindByID(_ context.Context, id uuid.UUID) (*queries.OrderView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.committed.orders[id]
	if !ok {
		return nil, notFound("order not found")
	}
	return queries.OrderViewFromDomain(row.toDomain()), nil
}

func (s *Store) ListByUser(_ context.Context, userID uuid.UUID, page queries.Page) ([]*queries.OrderView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*queries.OrderView
	for _, row := range s.committed.orders {
		if row.order.UserID() == userID {
			out = append(out, queries.OrderViewFromDomain(row.toDomain()))
		}
	}
	slices.SortFunc(out, func(a, b *queries.OrderView) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareUUIDDesc(a.ID, b.ID)
	})
	return applyPage(out, page, func(v *queries.OrderView) (time.Time, uuid.UUID) { return v.CreatedAt, v.ID }), nil
}

func (s *Store) FindLines(_ context.Context, userID uuid.UUID) ([]queries.CartLineRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.committed.carts[userID]
	if !ok {
		return nil, nil
	}
	lines := make([]queries.CartLineRow, 0, len(row.items))
	for _, it := range row.items {
		line := queries.CartLineRow{ProductID: it.productID, VariantSKU: it.sku, Quantity: it.quantity}
		if p, ok := s.committed.products[it.productID]; ok {
			title := p.title
			line.Title = &title
			for _, v := range p.variants {
				if v.sku == it.sku {
					price, stock := v.price, v.stock
					line.Price = &price
					line.Stock = &stock
					line.Attributes = maps.Clone(v.attributes)
					if len(v.images) > 0 {
						img := v.images[0]
						line.Image = &img
					}
					line.VariantFound = true
				}
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// ProductReads exposes the product read store, whose method names overlap
// with the order read store.
type ProductReads struct{ s *Store }

func (s *Store) Products() ProductReads { return ProductReads{s: s} }

func (p ProductReads) FindByID(_ context.Context, id uuid.UUID) (*queries.ProductView, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	row, ok := p.s.committed.products[id]
	if !ok {
		return nil, notFound("product not found")
	}
	return queries.ProductViewFromDomain(row.toDomain()), nil
}

func (p ProductReads) List(_ context.Context, page queries.Page) ([]*queries.ProductView, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	var out []*queries.ProductView
	for _, row := range p.s.committed.products {
		out = append(out, queries.ProductViewFromDomain(row.toDomain()))
	}
	slices.SortFunc(out, func(a, b *queries.ProductView) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareUUIDDesc(a.ID, b.ID)
	})
	return applyPage(out, page, func(v *queries.ProductView) (time.Time, uuid.UUID) { return v.CreatedAt, v.ID }), nil
}

func compareUUIDDesc(a, b uuid.UUID) int {
	return slices.Compare(b[:], a[:])
}

func applyPage[T any](rows []T, page queries.Page, key func(T) (time.Time, uuid.UUID)) []T {
	if !page.IsFirst() {
		start := len(rows)
		for i, r := range rows {
			t, id := key(r)
			at := page.AfterTime
			if t.UnixMicro() < at.UnixMicro() || (t.UnixMicro() == at.UnixMicro() && slices.Compare(id[:], page.AfterID[:]) < 0) {
				start = i
				break
			}
		}
		rows = rows[start:]
	}
	if page.Limit > 0 && len(rows) > page.Limit {
		rows = rows[:page.Limit]
	}
	return rows
}
