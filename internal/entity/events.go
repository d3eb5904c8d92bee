package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderCancelled     = "OrderCancelled"
	EventShipmentUpdated    = "ShipmentUpdated"
	EventStockReserved      = "StockReserved"
	EventStockReleased      = "StockReleased"
)

// PlacedItem is the part of a line item carried on OrderPlaced.
type PlacedItem struct {
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderPlaced is emitted once the order and all its reservations are committed.
type OrderPlaced struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      *string         `json:"user_id,omitempty"`
	Email       string          `json:"email"`
	Items       []PlacedItem    `json:"items"`
	Total       decimal.Decimal `json:"total"`
	PlacedAt    time.Time       `json:"placed_at"`
}

func (e *OrderPlaced) EventType() string { return EventOrderPlaced }

// NewOrderPlaced builds the event from a freshly persisted order.
func NewOrderPlaced(o *Order) *OrderPlaced {
	e := &OrderPlaced{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Email:       o.Customer.Email,
		Total:       o.Total,
		PlacedAt:    o.CreatedAt,
		Items:       make([]PlacedItem, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		e.Items = append(e.Items, PlacedItem{
			ProductID: it.ProductID,
			SKU:       it.ProductSKU,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return e
}

type OrderStatusChanged struct {
	OrderID     string      `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	From        OrderStatus `json:"from"`
	To          OrderStatus `json:"to"`
	ChangedAt   time.Time   `json:"changed_at"`
}

func (e *OrderStatusChanged) EventType() string { return EventOrderStatusChanged }

// OrderCancelledEvent records a cancellation and the stock it gave back.
type OrderCancelledEvent struct {
	OrderID     string         `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	From        OrderStatus    `json:"from"`
	Released    map[string]int `json:"released"`
	CancelledAt time.Time      `json:"cancelled_at"`
}

func (e *OrderCancelledEvent) EventType() string { return EventOrderCancelled }

type ShipmentUpdated struct {
	OrderID        string         `json:"order_id"`
	Carrier        string         `json:"carrier"`
	TrackingNumber string         `json:"tracking_number"`
	Status         ShipmentStatus `json:"status"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (e *ShipmentUpdated) EventType() string { return EventShipmentUpdated }

// StockReserved is appended to a product's inventory stream when an order takes stock.
type StockReserved struct {
	ProductID  string    `json:"product_id"`
	OrderID    string    `json:"order_id"`
	Quantity   int       `json:"quantity"`
	Remaining  int       `json:"remaining"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e *StockReserved) EventType() string { return EventStockReserved }

// StockReleased is appended when a cancelled order gives its stock back.
type StockReleased struct {
	ProductID  string    `json:"product_id"`
	OrderID    string    `json:"order_id"`
	Quantity   int       `json:"quantity"`
	Remaining  int       `json:"remaining"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e *StockReleased) EventType() string { return EventStockReleased }
