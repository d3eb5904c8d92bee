package entity

import (
	"fmt"
	"time"
)

// TimelineEntry is one step in an order's history.
type TimelineEntry struct {
	Version   int         `json:"version"`
	EventType string      `json:"event_type"`
	Status    OrderStatus `json:"status"`
	Detail    string      `json:"detail,omitempty"`
	At        time.Time   `json:"at"`
}

// OrderTimeline manages the history of an order by replaying its stream.
type OrderTimeline struct {
	AggregateBase
	OrderNumber string          `json:"order_number"`
	Status      OrderStatus     `json:"status"`
	PlacedAt    time.Time       `json:"placed_at"`
	Entries     []TimelineEntry `json:"entries"`
}

func NewOrderTimeline(orderID string) *OrderTimeline {
	return &OrderTimeline{
		AggregateBase: AggregateBase{ID: orderID},
		Entries:       []TimelineEntry{},
	}
}

// ApplyEvent mutates the timeline based on the event.
func (a *OrderTimeline) ApplyEvent(e Event) error {
	entry := TimelineEntry{Version: a.Version + 1, EventType: e.EventType()}
	switch e := e.(type) {
	case *OrderPlaced:
		a.OrderNumber = e.OrderNumber
		a.Status = OrderPending
		a.PlacedAt = e.PlacedAt
		entry.At = e.PlacedAt
		entry.Detail = fmt.Sprintf("%d item(s), total %s", len(e.Items), e.Total.StringFixed(2))
	case *OrderStatusChanged:
		if a.Status != "" && a.Status != e.From {
			return fmt.Errorf("status change from %s does not follow %s", e.From, a.Status)
		}
		a.Status = e.To
		entry.At = e.ChangedAt
		entry.Detail = fmt.Sprintf("%s -> %s", e.From, e.To)
	case *OrderCancelledEvent:
		a.Status = OrderCancelled
		entry.At = e.CancelledAt
		entry.Detail = fmt.Sprintf("cancelled from %s", e.From)
	case *ShipmentUpdated:
		entry.At = e.UpdatedAt
		entry.Detail = fmt.Sprintf("%s %s %s", e.Carrier, e.TrackingNumber, e.Status)
	default:
		return fmt.Errorf("unknown event type for OrderTimeline: %s", e.EventType())
	}
	entry.Status = a.Status
	a.Entries = append(a.Entries, entry)
	a.Version++
	return nil
}
