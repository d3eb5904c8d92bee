package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type store struct {
	db *sql.DB
	q  querier
	tx bool
}

// NewStore creates a new Store backed by Postgres.
func NewStore(db *sql.DB) repository.Store {
	return &store{db: db, q: db}
}

func (s *store) Products() repository.ProductRepository   { return &productRepository{q: s.q} }
func (s *store) Categories() repository.CategoryRepository { return &categoryRepository{q: s.q} }
func (s *store) Orders() repository.OrderRepository       { return &orderRepository{q: s.q} }
func (s *store) Users() repository.UserRepository         { return &userRepository{q: s.q} }
func (s *store) Events() repository.EventStore            { return &eventStore{q: s.q} }

func (s *store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&store{db: s.db, q: tx, tx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// constraintErrors maps named schema constraints to domain errors.
var constraintErrors = map[string]error{
	"products_sku_key":                 entity.ErrDuplicateSKU,
	"categories_name_key":              entity.ErrDuplicateName,
	"categories_parent_fkey":           entity.ErrParentNotFound,
	"categories_not_own_parent":        entity.ErrCircularReference,
	"product_categories_category_fkey": entity.ErrCategoryNotFound,
	"orders_order_number_key":          entity.ErrDuplicateOrderNumber,
}

// translate turns constraint violations into domain errors and wraps
// everything else with op.
func translate(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if mapped, ok := constraintErrors[pqErr.Constraint]; ok {
			return mapped
		}
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("%w: %s", entity.ErrConflict, pqErr.Detail)
		case "foreign_key_violation":
			return fmt.Errorf("%w: %s", entity.ErrConflict, pqErr.Detail)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
