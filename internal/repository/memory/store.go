// Package memory is an in-process implementation of repository.Store.
//
// All state sits behind one mutex. A transaction holds the mutex for its
// whole duration and works on a deep copy that replaces the live state only
// when the transaction function succeeds, so a failed transaction leaves no
// trace.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
)

type state struct {
	products   map[string]entity.Product
	categories map[string]entity.Category
	orders     map[string]entity.Order
	users      map[string]entity.User
	events     map[string][]entity.EventStoreRecord
}

func newState() *state {
	return &state{
		products:   map[string]entity.Product{},
		categories: map[string]entity.Category{},
		orders:     map[string]entity.Order{},
		users:      map[string]entity.User{},
		events:     map[string][]entity.EventStoreRecord{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.products {
		c.products[k] = cloneProduct(v)
	}
	for k, v := range s.categories {
		c.categories[k] = cloneCategory(v)
	}
	for k, v := range s.orders {
		c.orders[k] = cloneOrder(v)
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.events {
		c.events[k] = slices.Clone(v)
	}
	return c
}

type database struct {
	mu   sync.Mutex
	data *state
}

// Store is safe for concurrent use.
type Store struct {
	db *database
	tx *state
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{db: &database{data: newState()}}
}

// view runs fn against the transaction state, or against the live state
// under the mutex when called outside a transaction.
func (s *Store) view(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.data)
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.db.data.clone()
	if err := fn(&Store{db: s.db, tx: work}); err != nil {
		return err
	}
	s.db.data = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Products() repository.ProductRepository   { return &productRepository{s} }
func (s *Store) Categories() repository.CategoryRepository { return &categoryRepository{s} }
func (s *Store) Orders() repository.OrderRepository       { return &orderRepository{s} }
func (s *Store) Users() repository.UserRepository         { return &userRepository{s} }
func (s *Store) Events() repository.EventStore            { return &eventStore{s} }

func cloneProduct(p entity.Product) entity.Product {
	p.AdditionalImages = slices.Clone(p.AdditionalImages)
	p.CategoryIDs = slices.Clone(p.CategoryIDs)
	return p
}

func cloneCategory(c entity.Category) entity.Category {
	if c.ParentID != nil {
		parent := *c.ParentID
		c.ParentID = &parent
	}
	return c
}

func cloneOrder(o entity.Order) entity.Order {
	o.Items = slices.Clone(o.Items)
	if o.UserID != nil {
		uid := *o.UserID
		o.UserID = &uid
	}
	if o.Shipment != nil {
		sh := *o.Shipment
		o.Shipment = &sh
	}
	return o
}
