package memory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
)

type productRepository struct {
	s *Store
}

func (r *productRepository) FindByID(_ context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.s.view(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return entity.ErrProductNotFound
		}
		c := cloneProduct(p)
		out = &c
		return nil
	})
	return out, err
}

func (r *productRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *productRepository) FindBySKU(_ context.Context, sku string) (*entity.Product, error) {
	var out *entity.Product
	err := r.s.view(func(st *state) error {
		for _, p := range st.products {
			if p.SKU == sku {
				c := cloneProduct(p)
				out = &c
				return nil
			}
		}
		return entity.ErrProductNotFound
	})
	return out, err
}

func (r *productRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	_, err := r.FindBySKU(ctx, sku)
	if errors.Is(err, entity.ErrProductNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *productRepository) Create(_ context.Context, p *entity.Product) error {
	return r.s.view(func(st *state) error {
		for _, existing := range st.products {
			if existing.SKU == p.SKU {
				return entity.ErrDuplicateSKU
			}
		}
		st.products[p.ID] = cloneProduct(*p)
		return nil
	})
}

func (r *productRepository) Update(_ context.Context, p *entity.Product) error {
	return r.s.view(func(st *state) error {
		if _, ok := st.products[p.ID]; !ok {
			return entity.ErrProductNotFound
		}
		for id, existing := range st.products {
			if id != p.ID && existing.SKU == p.SKU {
				return entity.ErrDuplicateSKU
			}
		}
		st.products[p.ID] = cloneProduct(*p)
		return nil
	})
}

func (r *productRepository) List(_ context.Context, f repository.ProductFilter, page entity.PageRequest) (entity.Page[entity.Product], error) {
	var out entity.Page[entity.Product]
	err := r.s.view(func(st *state) error {
		matched := make([]entity.Product, 0, len(st.products))
		for _, p := range st.products {
			if matchProduct(&p, f) {
				matched = append(matched, cloneProduct(p))
			}
		}
		slices.SortFunc(matched, func(a, b entity.Product) int {
			return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.ID, b.ID))
		})
		out = entity.Paginate(matched, page)
		return nil
	})
	return out, err
}

func matchProduct(p *entity.Product, f repository.ProductFilter) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.CategoryID != "" && !p.InCategory(f.CategoryID) {
		return false
	}
	if f.Brand != "" && !strings.EqualFold(p.Brand, f.Brand) {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), term) && !strings.Contains(strings.ToLower(p.Description), term) {
			return false
		}
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.InStock && p.Quantity <= 0 {
		return false
	}
	return true
}

func (r *productRepository) Count(_ context.Context) (int, error) {
	var n int
	err := r.s.view(func(st *state) error {
		n = len(st.products)
		return nil
	})
	return n, err
}

func (r *productRepository) Reserve(_ context.Context, id string, qty int) (*entity.Product, error) {
	var out *entity.Product
	err := r.s.view(func(st *state) error {
		p, ok := st.products[id]
		if !ok || !p.IsActive() {
			return entity.ErrProductNotFound
		}
		if !p.InStock(qty) {
			return entity.ErrInsufficientStock
		}
		p.Quantity -= qty
		st.products[id] = p
		c := cloneProduct(p)
		out = &c
		return nil
	})
	return out, err
}

func (r *productRepository) Release(_ context.Context, id string, qty int) (*entity.Product, error) {
	var out *entity.Product
	err := r.s.view(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return entity.ErrProductNotFound
		}
		p.Quantity += qty
		st.products[id] = p
		c := cloneProduct(p)
		out = &c
		return nil
	})
	return out, err
}
