package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
)

// InventoryLedger moves stock between products and orders. Reserve and
// Release must run on a transactional Store so that every movement of one
// order commits or rolls back together with the order itself.
type InventoryLedger struct {
	store repository.Store
	now   func() time.Time
}

func NewInventoryLedger(store repository.Store) *InventoryLedger {
	return &InventoryLedger{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Reserve takes qty units of a product for orderID. The returned product
// reflects the row after the decrement; its price is the one the order pays.
func (l *InventoryLedger) Reserve(ctx context.Context, tx repository.Store, orderID, productID string, qty int) (*entity.Product, error) {
	if qty <= 0 {
		return nil, entity.ErrInvalidQuantity
	}
	p, err := tx.Products().Reserve(ctx, productID, qty)
	if err != nil {
		return nil, err
	}
	event := &entity.StockReserved{
		ProductID:  productID,
		OrderID:    orderID,
		Quantity:   qty,
		Remaining:  p.Quantity,
		OccurredAt: l.now(),
	}
	if err := tx.Events().SaveEvents(ctx, productID, entity.StreamInventory, repository.AnyVersion, []entity.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to record reservation: %w", err)
	}
	return p, nil
}

// Release returns qty units to a product. No upper bound is enforced.
func (l *InventoryLedger) Release(ctx context.Context, tx repository.Store, orderID, productID string, qty int) error {
	if qty <= 0 {
		return entity.ErrInvalidQuantity
	}
	p, err := tx.Products().Release(ctx, productID, qty)
	if err != nil {
		return err
	}
	event := &entity.StockReleased{
		ProductID:  productID,
		OrderID:    orderID,
		Quantity:   qty,
		Remaining:  p.Quantity,
		OccurredAt: l.now(),
	}
	if err := tx.Events().SaveEvents(ctx, productID, entity.StreamInventory, repository.AnyVersion, []entity.Event{event}); err != nil {
		return fmt.Errorf("failed to record release: %w", err)
	}
	return nil
}

// Movements rebuilds the reservation history of a product.
func (l *InventoryLedger) Movements(ctx context.Context, productID string) (*entity.StockLedger, error) {
	if _, err := l.store.Products().FindByID(ctx, productID); err != nil {
		return nil, err
	}
	records, err := l.store.Events().LoadEvents(ctx, productID)
	if err != nil {
		return nil, err
	}
	ledger := entity.NewStockLedger(productID)
	if err := entity.Rehydrate(ledger, records); err != nil {
		return nil, fmt.Errorf("failed to rebuild stock ledger: %w", err)
	}
	return ledger, nil
}
