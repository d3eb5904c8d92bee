package entity

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus(" shipped ")
	require.NoError(t, err)
	assert.Equal(t, OrderShipped, got)

	_, err = ParseOrderStatus("LOST")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestOrderStatusRules(t *testing.T) {
	tests := []struct {
		status     OrderStatus
		terminal   bool
		cancelable bool
	}{
		{OrderPending, false, true},
		{OrderConfirmed, false, true},
		{OrderProcessing, false, true},
		{OrderShipped, false, false},
		{OrderDelivered, false, false},
		{OrderCancelled, true, false},
		{OrderReturned, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.cancelable, tt.status.CanCancel())
		})
	}
}

func TestParsePaymentMethodAndShipmentStatus(t *testing.T) {
	m, err := ParsePaymentMethod("upi")
	require.NoError(t, err)
	assert.Equal(t, PaymentUPI, m)
	_, err = ParsePaymentMethod("barter")
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	s, err := ParseShipmentStatus("out_for_delivery")
	require.NoError(t, err)
	assert.Equal(t, ShipmentOutForDelivery, s)
	_, err = ParseShipmentStatus("")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOrderOwnership(t *testing.T) {
	uid := "u1"
	owned := &Order{UserID: &uid}
	guest := &Order{}

	assert.True(t, owned.OwnedBy("u1"))
	assert.False(t, owned.OwnedBy("u2"))
	assert.True(t, guest.IsGuest())
	assert.False(t, guest.OwnedBy(""))
}

func record(t *testing.T, version int, e Event) EventStoreRecord {
	t.Helper()
	payload, err := json.Marshal(e)
	require.NoError(t, err)
	return EventStoreRecord{Version: version, EventType: e.EventType(), Payload: payload}
}

func TestOrderTimelineReplay(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	records := []EventStoreRecord{
		record(t, 1, &OrderPlaced{OrderID: "o1", OrderNumber: "ORD1", Total: decimal.RequireFromString("12.50"),
			Items: []PlacedItem{{ProductID: "p1", Quantity: 1}}, PlacedAt: at}),
		record(t, 2, &OrderStatusChanged{OrderID: "o1", From: OrderPending, To: OrderConfirmed, ChangedAt: at.Add(time.Hour)}),
		record(t, 3, &OrderCancelledEvent{OrderID: "o1", From: OrderConfirmed, Released: map[string]int{"p1": 1}, CancelledAt: at.Add(2 * time.Hour)}),
	}

	tl := NewOrderTimeline("o1")
	require.NoError(t, Rehydrate(tl, records))
	assert.Equal(t, "ORD1", tl.OrderNumber)
	assert.Equal(t, OrderCancelled, tl.Status)
	assert.Equal(t, 3, tl.GetVersion())
	require.Len(t, tl.Entries, 3)
	assert.Equal(t, "1 item(s), total 12.50", tl.Entries[0].Detail)
	assert.Equal(t, OrderConfirmed, tl.Entries[1].Status)
}

func TestOrderTimelineRejectsOutOfOrderStatus(t *testing.T) {
	records := []EventStoreRecord{
		record(t, 1, &OrderPlaced{OrderID: "o1"}),
		record(t, 2, &OrderStatusChanged{OrderID: "o1", From: OrderShipped, To: OrderDelivered}),
	}
	assert.Error(t, Rehydrate(NewOrderTimeline("o1"), records))
}

func TestStockLedgerReplay(t *testing.T) {
	records := []EventStoreRecord{
		record(t, 1, &StockReserved{ProductID: "p1", OrderID: "o1", Quantity: 3, Remaining: 7}),
		record(t, 2, &StockReserved{ProductID: "p1", OrderID: "o2", Quantity: 2, Remaining: 5}),
		record(t, 3, &StockReleased{ProductID: "p1", OrderID: "o1", Quantity: 3, Remaining: 8}),
	}
	l := NewStockLedger("p1")
	require.NoError(t, Rehydrate(l, records))
	assert.Equal(t, 5, l.Reserved)
	assert.Equal(t, 3, l.Released)
	assert.Equal(t, 2, l.Outstanding())
	assert.Len(t, l.Movements, 3)

	err := Rehydrate(NewStockLedger("p1"), []EventStoreRecord{record(t, 1, &OrderPlaced{})})
	assert.Error(t, err)
}

func TestDecodeEventUnknownType(t *testing.T) {
	_, err := DecodeEvent(EventStoreRecord{EventType: "CartCheckedOut", Payload: []byte("{}")})
	assert.Error(t, err)
}

func TestPaginate(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}

	p := Paginate(all, PageRequest{Page: 1, Size: 2})
	assert.Equal(t, []int{3, 4}, p.Items)
	assert.Equal(t, 5, p.Total)
	assert.Equal(t, 3, p.TotalPages)

	p = Paginate(all, PageRequest{Page: 9, Size: 2})
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)

	p = Paginate(all, PageRequest{Page: -1, Size: 1000})
	assert.Equal(t, 0, p.Page)
	assert.Equal(t, MaxPageSize, p.Size)
	assert.Len(t, p.Items, 5)
}

func TestPaginateHugePageNumber(t *testing.T) {
	all := []int{1, 2, 3}

	req := PageRequest{Page: 461168601842738791, Size: 20}.Normalize()
	assert.Equal(t, MaxPage, req.Page)
	assert.GreaterOrEqual(t, req.Offset(), 0)

	p := Paginate(all, PageRequest{Page: math.MaxInt, Size: MaxPageSize})
	assert.Empty(t, p.Items)
	assert.Equal(t, 3, p.Total)
}

func TestNewOrderTracking(t *testing.T) {
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	o := &Order{
		OrderNumber: "ORD1", Status: OrderPending, CreatedAt: created,
		Shipping: Address{City: "Austin", State: "TX", Country: "US"},
		Items:    []OrderItem{{ProductName: "Mug", ProductSKU: "MUG-1", Quantity: 2}},
	}
	tr := NewOrderTracking(o)
	assert.Equal(t, created.AddDate(0, 0, 7), tr.EstimatedDelivery)
	assert.Equal(t, "Austin", tr.City)
	assert.Equal(t, []TrackedItem{{ProductName: "Mug", ProductSKU: "MUG-1", Quantity: 2}}, tr.Items)
}
