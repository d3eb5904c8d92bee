package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/ordernumber"
	"github.com/kaushiksanil12/ECOMBackend/internal/pricing"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository/memory"
)

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

type publishedEvent struct {
	topic string
	key   string
	event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic string, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic, key, event})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.topic
	}
	return out
}

type fixture struct {
	store      *memory.Store
	orders     *OrderService
	products   *ProductService
	categories *CategoryService
	publisher  *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	ledger := NewInventoryLedger(store)
	ledger.now = func() time.Time { return fixedNow }

	pub := &recordingPublisher{}
	orders := NewOrderService(store, ledger,
		pricing.NewCalculator(pricing.DefaultPolicy()),
		ordernumber.New("ORD", ordernumber.WithClock(func() time.Time { return fixedNow })),
		pub)
	orders.now = func() time.Time { return fixedNow }

	products := NewProductService(store, ledger)
	products.now = func() time.Time { return fixedNow }

	categories := NewCategoryService(store, nil)
	categories.now = func() time.Time { return fixedNow }

	return &fixture{store: store, orders: orders, products: products, categories: categories, publisher: pub}
}

func (f *fixture) product(t *testing.T, sku, price string, qty int) *entity.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), ProductInput{
		Name:     "Product " + sku,
		SKU:      sku,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), productID)
	require.NoError(t, err)
	return p.Quantity
}

func guestRequest(items ...LineItemRequest) PlaceOrderRequest {
	return PlaceOrderRequest{
		Customer: entity.CustomerInfo{Email: "jane@example.com", FirstName: "Jane", LastName: "Doe"},
		Shipping: entity.Address{
			Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US",
		},
		PaymentMethod: entity.PaymentCreditCard,
		Items:         items,
	}
}

func line(productID string, qty int) LineItemRequest {
	return LineItemRequest{ProductID: productID, Quantity: qty}
}
