package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
)

func seedProduct(t *testing.T, s *Store, id, sku string, qty int) {
	t.Helper()
	err := s.Products().Create(context.Background(), &entity.Product{
		ID: id, Name: "Product " + id, SKU: sku, Quantity: qty,
		Price: decimal.RequireFromString("10.00"), Status: entity.ProductActive,
	})
	require.NoError(t, err)
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedProduct(t, s, "p1", "SKU-1", 5)
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx repository.Store) error {
		_, err := tx.Products().Reserve(ctx, "p1", 3)
		require.NoError(t, err)
		return boom
	})

	require.ErrorIs(t, err, boom)
	p, err := s.Products().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Quantity)
}

func TestInTxCommits(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedProduct(t, s, "p1", "SKU-1", 5)

	err := s.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Products().Reserve(ctx, "p1", 2); err != nil {
			return err
		}
		return tx.InTx(ctx, func(inner repository.Store) error {
			_, err := inner.Products().Reserve(ctx, "p1", 1)
			return err
		})
	})

	require.NoError(t, err)
	p, err := s.Products().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Quantity)
}

func TestReserve(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedProduct(t, s, "p1", "SKU-1", 2)

	t.Run("insufficient stock", func(t *testing.T) {
		_, err := s.Products().Reserve(ctx, "p1", 3)
		assert.ErrorIs(t, err, entity.ErrInsufficientStock)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := s.Products().Reserve(ctx, "nope", 1)
		assert.ErrorIs(t, err, entity.ErrProductNotFound)
	})

	t.Run("inactive product", func(t *testing.T) {
		p, err := s.Products().FindByID(ctx, "p1")
		require.NoError(t, err)
		p.Status = entity.ProductInactive
		require.NoError(t, s.Products().Update(ctx, p))

		_, err = s.Products().Reserve(ctx, "p1", 1)
		assert.ErrorIs(t, err, entity.ErrProductNotFound)

		released, err := s.Products().Release(ctx, "p1", 4)
		require.NoError(t, err)
		assert.Equal(t, 6, released.Quantity)
	})
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedProduct(t, s, "p1", "SKU-1", 1)

	p, err := s.Products().FindByID(ctx, "p1")
	require.NoError(t, err)
	p.CategoryIDs = append(p.CategoryIDs, "c1")
	p.Quantity = 99

	again, err := s.Products().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, again.CategoryIDs)
	assert.Equal(t, 1, again.Quantity)
}

func TestEventStoreVersions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	events := []entity.Event{
		&entity.StockReserved{ProductID: "p1", OrderID: "o1", Quantity: 1, OccurredAt: time.Now()},
		&entity.StockReleased{ProductID: "p1", OrderID: "o1", Quantity: 1, OccurredAt: time.Now()},
	}

	require.NoError(t, s.Events().SaveEvents(ctx, "p1", entity.StreamInventory, 0, events))
	err := s.Events().SaveEvents(ctx, "p1", entity.StreamInventory, 0, events[:1])
	assert.ErrorIs(t, err, entity.ErrConflict)
	require.NoError(t, s.Events().SaveEvents(ctx, "p1", entity.StreamInventory, repository.AnyVersion, events[:1]))

	records, err := s.Events().LoadEvents(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, i+1, rec.Version)
	}
	assert.Equal(t, entity.EventStockReleased, records[1].EventType)
}

func TestCategoryDeleteGuards(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	parent := "root"
	require.NoError(t, s.Categories().Create(ctx, &entity.Category{ID: "root", Name: "Root"}))
	require.NoError(t, s.Categories().Create(ctx, &entity.Category{ID: "leaf", Name: "Leaf", ParentID: &parent}))

	assert.ErrorIs(t, s.Categories().Delete(ctx, "root"), entity.ErrHasChildren)
	assert.ErrorIs(t, s.Categories().Create(ctx, &entity.Category{ID: "x", Name: "Leaf"}), entity.ErrDuplicateName)

	missing := "missing"
	assert.ErrorIs(t, s.Categories().Create(ctx, &entity.Category{ID: "y", Name: "Y", ParentID: &missing}), entity.ErrParentNotFound)

	require.NoError(t, s.Categories().Delete(ctx, "leaf"))
	require.NoError(t, s.Categories().Delete(ctx, "root"))
}
