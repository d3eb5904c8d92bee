package memory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
)

type orderRepository struct {
	s *Store
}

func (r *orderRepository) Create(_ context.Context, o *entity.Order) error {
	return r.s.view(func(st *state) error {
		for _, existing := range st.orders {
			if existing.OrderNumber == o.OrderNumber {
				return entity.ErrDuplicateOrderNumber
			}
		}
		if o.UserID != nil {
			if _, ok := st.users[*o.UserID]; !ok {
				return entity.ErrUserNotFound
			}
		}
		for _, it := range o.Items {
			if _, ok := st.products[it.ProductID]; !ok {
				return entity.ErrProductNotFound
			}
		}
		st.orders[o.ID] = cloneOrder(*o)
		return nil
	})
}

func (r *orderRepository) FindByID(_ context.Context, id string) (*entity.Order, error) {
	var out *entity.Order
	err := r.s.view(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return entity.ErrOrderNotFound
		}
		o = cloneOrder(o)
		out = &o
		return nil
	})
	return out, err
}

// FindByIDForUpdate needs no extra locking here; see the package comment.
func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *orderRepository) FindByOrderNumber(_ context.Context, number string) (*entity.Order, error) {
	var out *entity.Order
	err := r.s.view(func(st *state) error {
		for _, o := range st.orders {
			if o.OrderNumber == number {
				o = cloneOrder(o)
				out = &o
				return nil
			}
		}
		return entity.ErrOrderNotFound
	})
	return out, err
}

func (r *orderRepository) ExistsByOrderNumber(ctx context.Context, number string) (bool, error) {
	o, err := r.FindByOrderNumber(ctx, number)
	if err != nil && !errors.Is(err, entity.ErrOrderNotFound) {
		return false, err
	}
	return o != nil, nil
}

func (r *orderRepository) UpdateStatus(_ context.Context, id string, status entity.OrderStatus, at time.Time) error {
	return r.s.view(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return entity.ErrOrderNotFound
		}
		o.Status = status
		o.UpdatedAt = at
		st.orders[id] = o
		return nil
	})
}

func (r *orderRepository) List(_ context.Context, f repository.OrderFilter, page entity.PageRequest) (entity.Page[entity.Order], error) {
	var out entity.Page[entity.Order]
	err := r.s.view(func(st *state) error {
		matched := make([]entity.Order, 0)
		for _, o := range st.orders {
			if f.Status != "" && o.Status != f.Status {
				continue
			}
			if f.UserID != "" && !o.OwnedBy(f.UserID) {
				continue
			}
			if f.Email != "" && !strings.EqualFold(o.Customer.Email, f.Email) {
				continue
			}
			matched = append(matched, cloneOrder(o))
		}
		slices.SortFunc(matched, func(a, b entity.Order) int {
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return strings.Compare(b.OrderNumber, a.OrderNumber)
		})
		out = entity.Paginate(matched, page)
		return nil
	})
	return out, err
}

func (r *orderRepository) SaveShipment(_ context.Context, s *entity.Shipment) error {
	return r.s.view(func(st *state) error {
		o, ok := st.orders[s.OrderID]
		if !ok {
			return entity.ErrOrderNotFound
		}
		sh := *s
		o.Shipment = &sh
		st.orders[s.OrderID] = o
		return nil
	})
}
