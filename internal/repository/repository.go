package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
)

// AnyVersion skips the optimistic version check when appending events.
const AnyVersion = -1

// ProductFilter narrows product listings. Zero values match everything.
type ProductFilter struct {
	Status     entity.ProductStatus
	CategoryID string
	Search     string
	Brand      string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	InStock    bool
}

// OrderFilter narrows order listings. Zero values match everything.
type OrderFilter struct {
	Status entity.OrderStatus
	UserID string
	Email  string
}

// ProductRepository handles persistence for Products.
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	// FindByIDForUpdate loads the product and locks it until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id string) (*entity.Product, error)
	FindBySKU(ctx context.Context, sku string) (*entity.Product, error)
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
	Create(ctx context.Context, p *entity.Product) error
	// Update writes every mutable column and replaces category memberships.
	Update(ctx context.Context, p *entity.Product) error
	List(ctx context.Context, filter ProductFilter, page entity.PageRequest) (entity.Page[entity.Product], error)
	Count(ctx context.Context) (int, error)
	// Reserve decrements the quantity of an ACTIVE product if at least qty
	// units are available and returns the product after the decrement.
	// The row stays locked until the surrounding transaction ends.
	Reserve(ctx context.Context, id string, qty int) (*entity.Product, error)
	// Release increments the quantity regardless of status.
	Release(ctx context.Context, id string, qty int) (*entity.Product, error)
}

// CategoryRepository handles persistence for Categories.
type CategoryRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Category, error)
	FindByIDs(ctx context.Context, ids []string) ([]entity.Category, error)
	FindByName(ctx context.Context, name string) (*entity.Category, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	FindByParentID(ctx context.Context, parentID string) ([]entity.Category, error)
	FindRoots(ctx context.Context) ([]entity.Category, error)
	FindAll(ctx context.Context) ([]entity.Category, error)
	Search(ctx context.Context, term string) ([]entity.Category, error)
	Create(ctx context.Context, c *entity.Category) error
	Update(ctx context.Context, c *entity.Category) error
	Delete(ctx context.Context, id string) error
	// ProductCounts returns the number of products assigned to each id.
	// Ids without products are absent from the map.
	ProductCounts(ctx context.Context, ids []string) (map[string]int, error)
	// LockTree serializes structural changes to the forest for the rest of
	// the transaction.
	LockTree(ctx context.Context) error
}

// OrderRepository handles persistence for Orders and their Shipments.
type OrderRepository interface {
	Create(ctx context.Context, o *entity.Order) error
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	// FindByIDForUpdate loads the order and locks it until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id string) (*entity.Order, error)
	FindByOrderNumber(ctx context.Context, number string) (*entity.Order, error)
	ExistsByOrderNumber(ctx context.Context, number string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status entity.OrderStatus, at time.Time) error
	// List returns orders newest first.
	List(ctx context.Context, filter OrderFilter, page entity.PageRequest) (entity.Page[entity.Order], error)
	SaveShipment(ctx context.Context, s *entity.Shipment) error
}

// UserRepository handles persistence for customer profiles.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	Create(ctx context.Context, u *entity.User) error
}

// EventStore handles appending and loading events for an aggregate stream.
type EventStore interface {
	SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error
	LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error)
}

// Store groups the repositories that share one transaction.
type Store interface {
	Products() ProductRepository
	Categories() CategoryRepository
	Orders() OrderRepository
	Users() UserRepository
	Events() EventStore
	// InTx runs fn with a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Calling InTx on a transactional Store reuses its transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
