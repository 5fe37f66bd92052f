//go:build unit

package commands_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/catalog"
	"storefront/internal/pkg/clock"
	"storefront/internal/usecase/commands"
	"storefront/tests/common/builder"
	"storefront/tests/common/memstore"
	queriesmock "storefront/tests/mock/queries"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testNow = time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)

type seqNumbers struct {
	mu sync.Mutex
	n  int
}

func (g *seqNumbers) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("ORD-20260115093000-%08X", g.n)
}

type recordedMetrics struct {
	mu        sync.Mutex
	created   []int64
	failures  map[string]int
	cancelled int
}

func newRecordedMetrics() *recordedMetrics {
	return &recordedMetrics{failures: map[string]int{}}
}

func (m *recordedMetrics) OrderCreated(total int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, total)
}

func (m *recordedMetrics) CheckoutFailed(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[reason]++
}

func (m *recordedMetrics) OrderCancelled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled++
}

type orderFixture struct {
	store   *memstore.Store
	clock   *clock.MockClock
	metrics *recordedMetrics
	cache   *queriesmock.MockProductCache
	cmds    commands.OrderCommands
}

// newOrderFixture wires order commands on the in-memory store. Cache
// invalidations are accepted unless the test sets its own expectations.
func newOrderFixture(t *testing.T, strictCache bool) *orderFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &orderFixture{
		store:   memstore.New(),
		clock:   clock.NewMockClock(testNow),
		metrics: newRecordedMetrics(),
		cache:   queriesmock.NewMockProductCache(ctrl),
	}
	if !strictCache {
		f.cache.EXPECT().Invalidate(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	}
	f.cmds = commands.NewOrderCommands(f.store, f.clock, &seqNumbers{}, f.metrics, f.cache)
	return f
}

// seedProduct stores a tee with the given variants and returns it.
func (f *orderFixture) seedProduct(t *testing.T, variants ...builder.VariantSpec) *catalog.Product {
	t.Helper()
	b := builder.NewProductBuilder()
	if len(variants) > 0 {
		b = b.WithVariants(variants...)
	}
	p, err := b.BuildDomain()
	require.NoError(t, err)
	f.store.SeedProduct(p)
	return p
}

func (f *orderFixture) seedCart(t *testing.T, userID uuid.UUID, lines ...cartLine) {
	t.Helper()
	items := make([]cart.Item, 0, len(lines))
	for _, l := range lines {
		it, err := cart.NewItem(l.productID, l.sku, l.qty)
		require.NoError(t, err)
		items = append(items, it)
	}
	f.store.SeedCart(userID, items...)
}

type cartLine struct {
	productID uuid.UUID
	sku       string
	qty       int
}

func variant(sku, size, color string, stock int, price int64) builder.VariantSpec {
	return builder.VariantSpec{
		SKU:        sku,
		Attributes: map[string]string{"size": size, "color": color},
		Stock:      stock,
		Price:      price,
		Images:     []string{"https://cdn.example.com/" + sku + ".png"},
	}
}
