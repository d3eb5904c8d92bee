package entity

import (
	"fmt"
	"time"
)

// StockMovement is one reservation or release against a product.
type StockMovement struct {
	OrderID   string    `json:"order_id"`
	Kind      string    `json:"kind"`
	Delta     int       `json:"delta"`
	Remaining int       `json:"remaining"`
	At        time.Time `json:"at"`
}

// StockLedger is the reservation history of a product, rebuilt from its
// inventory stream.
type StockLedger struct {
	AggregateBase
	Reserved  int             `json:"reserved"`
	Released  int             `json:"released"`
	Movements []StockMovement `json:"movements"`
}

func NewStockLedger(productID string) *StockLedger {
	return &StockLedger{
		AggregateBase: AggregateBase{ID: productID},
		Movements:     []StockMovement{},
	}
}

// Outstanding is the quantity currently held by orders that were not cancelled.
func (a *StockLedger) Outstanding() int {
	return a.Reserved - a.Released
}

// ApplyEvent mutates the ledger based on the event.
func (a *StockLedger) ApplyEvent(e Event) error {
	switch e := e.(type) {
	case *StockReserved:
		a.Reserved += e.Quantity
		a.Movements = append(a.Movements, StockMovement{
			OrderID: e.OrderID, Kind: EventStockReserved, Delta: -e.Quantity, Remaining: e.Remaining, At: e.OccurredAt,
		})
	case *StockReleased:
		a.Released += e.Quantity
		a.Movements = append(a.Movements, StockMovement{
			OrderID: e.OrderID, Kind: EventStockReleased, Delta: e.Quantity, Remaining: e.Remaining, At: e.OccurredAt,
		})
	default:
		return fmt.Errorf("unknown event type for StockLedger: %s", e.EventType())
	}
	a.Version++
	return nil
}
