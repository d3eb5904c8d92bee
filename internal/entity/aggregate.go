package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// Stream types used in the event store.
const (
	StreamOrder     = "order"
	StreamInventory = "inventory"
)

// EventStoreRecord represents an event stored in the database.
type EventStoreRecord struct {
	ID         string    `json:"id"`
	StreamID   string    `json:"stream_id"`
	StreamType string    `json:"stream_type"`
	Version    int       `json:"version"`
	EventType  string    `json:"event_type"`
	Payload    []byte    `json:"payload"`
	CreatedAt  time.Time `json:"created_at"`
}

// Event represents a domain event.
type Event interface {
	EventType() string
}

// Aggregate is rebuilt by replaying its stream.
type Aggregate interface {
	GetAggregateID() string
	GetVersion() int
	ApplyEvent(event Event) error
}

type AggregateBase struct {
	ID      string
	Version int
}

func (a *AggregateBase) GetAggregateID() string {
	return a.ID
}

func (a *AggregateBase) GetVersion() int {
	return a.Version
}

// DecodeEvent turns a stored record back into its typed event.
func DecodeEvent(rec EventStoreRecord) (Event, error) {
	var e Event
	switch rec.EventType {
	case EventOrderPlaced:
		e = &OrderPlaced{}
	case EventOrderStatusChanged:
		e = &OrderStatusChanged{}
	case EventOrderCancelled:
		e = &OrderCancelledEvent{}
	case EventShipmentUpdated:
		e = &ShipmentUpdated{}
	case EventStockReserved:
		e = &StockReserved{}
	case EventStockReleased:
		e = &StockReleased{}
	default:
		return nil, fmt.Errorf("unknown event type in stream: %s", rec.EventType)
	}
	if err := json.Unmarshal(rec.Payload, e); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", rec.EventType, err)
	}
	return e, nil
}

// Rehydrate replays records onto agg in order.
func Rehydrate(agg Aggregate, records []EventStoreRecord) error {
	for _, rec := range records {
		e, err := DecodeEvent(rec)
		if err != nil {
			return err
		}
		if err := agg.ApplyEvent(e); err != nil {
			return fmt.Errorf("failed to apply event from stream: %w", err)
		}
	}
	return nil
}
