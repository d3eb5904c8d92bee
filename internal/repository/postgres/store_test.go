package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
)

// openTestDB connects to TEST_DATABASE_URL and migrates it, or skips.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := InitDB(ctx, dsn)
	if err != nil {
		t.Skipf("database unreachable: %v", err)
	}
	require.NoError(t, MigrateUp(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func newProduct(qty int) *entity.Product {
	now := time.Now().UTC()
	return &entity.Product{
		ID:        uuid.NewString(),
		Name:      "Integration Widget",
		Price:     decimal.RequireFromString("10.00"),
		SKU:       "IT-" + uuid.NewString()[:8],
		Quantity:  qty,
		Status:    entity.ProductActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestProductRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	s := NewStore(db)

	p := newProduct(4)
	p.AdditionalImages = []string{"a.png", "b.png"}
	require.NoError(t, s.Products().Create(ctx, p))

	got, err := s.Products().FindBySKU(ctx, p.SKU)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.True(t, p.Price.Equal(got.Price))
	assert.Equal(t, []string{"a.png", "b.png"}, got.AdditionalImages)

	dup := newProduct(1)
	dup.SKU = p.SKU
	assert.ErrorIs(t, s.Products().Create(ctx, dup), entity.ErrDuplicateSKU)
}

func TestReserveRollsBackWithTransaction(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	s := NewStore(db)
	p := newProduct(5)
	require.NoError(t, s.Products().Create(ctx, p))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx repository.Store) error {
		_, err := tx.Products().Reserve(ctx, p.ID, 3)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	s := NewStore(db)
	p := newProduct(5)
	require.NoError(t, s.Products().Create(ctx, p))

	var (
		wg      sync.WaitGroup
		results = make([]error, 2)
	)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.InTx(ctx, func(tx repository.Store) error {
				_, err := tx.Products().Reserve(ctx, p.ID, 3)
				return err
			})
		}(i)
	}
	wg.Wait()

	var ok, short int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, entity.ErrInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)

	got, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)
}

func TestEventStoreAppendsInOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	s := NewStore(db)
	stream := uuid.NewString()

	err := s.Events().SaveEvents(ctx, stream, entity.StreamInventory, 0, []entity.Event{
		&entity.StockReserved{ProductID: stream, OrderID: "o1", Quantity: 2, Remaining: 3},
		&entity.StockReleased{ProductID: stream, OrderID: "o1", Quantity: 2, Remaining: 5},
	})
	require.NoError(t, err)

	err = s.Events().SaveEvents(ctx, stream, entity.StreamInventory, 1, []entity.Event{
		&entity.StockReserved{ProductID: stream, OrderID: "o2", Quantity: 1},
	})
	assert.ErrorIs(t, err, entity.ErrConflict)

	records, err := s.Events().LoadEvents(ctx, stream)
	require.NoError(t, err)
	require.Len(t, records, 2)

	ledger := entity.NewStockLedger(stream)
	require.NoError(t, entity.Rehydrate(ledger, records))
	assert.Equal(t, 0, ledger.Outstanding())
	assert.Equal(t, 2, ledger.Version)
}

func TestCategoryConstraints(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	s := NewStore(db)
	now := time.Now().UTC()

	root := &entity.Category{ID: uuid.NewString(), Name: "Root " + uuid.NewString()[:8], CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.Categories().Create(ctx, root))
	child := &entity.Category{ID: uuid.NewString(), Name: "Child " + uuid.NewString()[:8], ParentID: &root.ID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.Categories().Create(ctx, child))

	assert.ErrorIs(t, s.Categories().Delete(ctx, root.ID), entity.ErrHasChildren)

	dup := &entity.Category{ID: uuid.NewString(), Name: root.Name, CreatedAt: now, UpdatedAt: now}
	assert.ErrorIs(t, s.Categories().Create(ctx, dup), entity.ErrDuplicateName)

	require.NoError(t, s.Categories().Delete(ctx, child.ID))
	require.NoError(t, s.Categories().Delete(ctx, root.ID))
}
