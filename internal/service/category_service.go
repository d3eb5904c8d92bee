package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kaushiksanil12/ECOMBackend/internal/cache"
	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
)

const (
	categoryCachePattern = "category:*"
	pathCacheKey         = "category:path:"
	hierarchyCacheKey    = "category:hierarchy:"
)

// CategoryInput carries the editable fields of a category. A nil ParentID
// makes the category a root.
type CategoryInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id"`
}

// CategoryService maintains the category forest: globally unique names, no
// cycles, and deletes that never orphan children or products.
type CategoryService struct {
	store repository.Store
	cache cache.Cache
	now   func() time.Time
}

func NewCategoryService(store repository.Store, c cache.Cache) *CategoryService {
	if c == nil {
		c = cache.Noop{}
	}
	return &CategoryService{store: store, cache: c, now: func() time.Time { return time.Now().UTC() }}
}

func normalizeInput(in CategoryInput) (CategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, fmt.Errorf("%w: category name is required", entity.ErrInvalidInput)
	}
	if in.ParentID != nil && strings.TrimSpace(*in.ParentID) == "" {
		in.ParentID = nil
	}
	return in, nil
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*entity.Category, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}
	slog.Info("Service: Creating category", "name", in.Name)

	now := s.now()
	c := &entity.Category{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		ParentID:    in.ParentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Categories().LockTree(ctx); err != nil {
			return err
		}
		exists, err := tx.Categories().ExistsByName(ctx, c.Name)
		if err != nil {
			return err
		}
		if exists {
			return entity.ErrDuplicateName
		}
		if c.ParentID != nil {
			if _, err := tx.Categories().FindByID(ctx, *c.ParentID); err != nil {
				return parentError(err)
			}
		}
		return tx.Categories().Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, in CategoryInput) (*entity.Category, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}
	slog.Info("Service: Updating category", "category_id", id)

	var c *entity.Category
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Categories().LockTree(ctx); err != nil {
			return err
		}
		var err error
		c, err = tx.Categories().FindByID(ctx, id)
		if err != nil {
			return err
		}

		if in.Name != c.Name {
			exists, err := tx.Categories().ExistsByName(ctx, in.Name)
			if err != nil {
				return err
			}
			if exists {
				return entity.ErrDuplicateName
			}
		}

		if parentChanged(c.ParentID, in.ParentID) && in.ParentID != nil {
			if _, err := tx.Categories().FindByID(ctx, *in.ParentID); err != nil {
				return parentError(err)
			}
			all, err := tx.Categories().FindAll(ctx)
			if err != nil {
				return err
			}
			if newCategoryTree(all).isAncestorOrSelf(id, *in.ParentID) {
				return fmt.Errorf("%w: %s cannot be moved under its own descendant", entity.ErrCircularReference, c.Name)
			}
		}

		c.Name = in.Name
		c.Description = in.Description
		c.ParentID = in.ParentID
		c.UpdatedAt = s.now()
		return tx.Categories().Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return c, nil
}

// Delete removes a leaf category that no product uses.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	slog.Info("Service: Deleting category", "category_id", id)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Categories().LockTree(ctx); err != nil {
			return err
		}
		if _, err := tx.Categories().FindByID(ctx, id); err != nil {
			return err
		}
		children, err := tx.Categories().FindByParentID(ctx, id)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return fmt.Errorf("%w: %d subcategories", entity.ErrHasChildren, len(children))
		}
		counts, err := tx.Categories().ProductCounts(ctx, []string{id})
		if err != nil {
			return err
		}
		if counts[id] > 0 {
			return fmt.Errorf("%w: %d products", entity.ErrHasProducts, counts[id])
		}
		return tx.Categories().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// DeleteCascade removes id and its whole subtree, children before parents.
// It refuses if any node in the subtree has products, leaving the subtree intact.
func (s *CategoryService) DeleteCascade(ctx context.Context, id string) error {
	slog.Info("Service: Deleting category subtree", "category_id", id)
	var removed int
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Categories().LockTree(ctx); err != nil {
			return err
		}
		all, err := tx.Categories().FindAll(ctx)
		if err != nil {
			return err
		}
		subtree := newCategoryTree(all).preorder(id)
		if len(subtree) == 0 {
			return entity.ErrCategoryNotFound
		}

		ids := make([]string, len(subtree))
		for i, c := range subtree {
			ids[i] = c.ID
		}
		counts, err := tx.Categories().ProductCounts(ctx, ids)
		if err != nil {
			return err
		}
		for _, c := range subtree {
			if counts[c.ID] > 0 {
				return fmt.Errorf("%w: %s has %d products", entity.ErrHasProducts, c.Name, counts[c.ID])
			}
		}

		// Reverse pre-order puts every descendant before its ancestors.
		for i := len(ids) - 1; i >= 0; i-- {
			if err := tx.Categories().Delete(ctx, ids[i]); err != nil {
				return err
			}
		}
		removed = len(ids)
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("Service: Category subtree deleted", "category_id", id, "removed", removed)
	s.invalidate(ctx)
	return nil
}

// Path returns the chain from the root down to id.
func (s *CategoryService) Path(ctx context.Context, id string) ([]entity.Category, error) {
	var cached []entity.Category
	if s.cacheGet(ctx, pathCacheKey+id, &cached) {
		return cached, nil
	}
	all, err := s.store.Categories().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	path, err := newCategoryTree(all).path(id)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, pathCacheKey+id, path)
	return path, nil
}

// Hierarchy returns id and every descendant in depth-first pre-order.
func (s *CategoryService) Hierarchy(ctx context.Context, id string) ([]entity.Category, error) {
	var cached []entity.Category
	if s.cacheGet(ctx, hierarchyCacheKey+id, &cached) {
		return cached, nil
	}
	all, err := s.store.Categories().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	nodes := newCategoryTree(all).preorder(id)
	if len(nodes) == 0 {
		return nil, entity.ErrCategoryNotFound
	}
	s.cacheSet(ctx, hierarchyCacheKey+id, nodes)
	return nodes, nil
}

// Search matches names case-insensitively.
func (s *CategoryService) Search(ctx context.Context, term string) ([]entity.Category, error) {
	return s.store.Categories().Search(ctx, strings.TrimSpace(term))
}

// Get returns a category with its direct subcategories and product count.
func (s *CategoryService) Get(ctx context.Context, id string) (*entity.CategoryDetails, error) {
	c, err := s.store.Categories().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, c)
}

func (s *CategoryService) GetByName(ctx context.Context, name string) (*entity.CategoryDetails, error) {
	c, err := s.store.Categories().FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	return s.details(ctx, c)
}

func (s *CategoryService) details(ctx context.Context, c *entity.Category) (*entity.CategoryDetails, error) {
	children, err := s.store.Categories().FindByParentID(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.Categories().ProductCounts(ctx, []string{c.ID})
	if err != nil {
		return nil, err
	}
	return &entity.CategoryDetails{Category: *c, Subcategories: children, ProductCount: counts[c.ID]}, nil
}

// Roots returns every root with its direct subcategories and product count.
func (s *CategoryService) Roots(ctx context.Context) ([]entity.CategoryDetails, error) {
	found, err := s.store.Categories().FindRoots(ctx)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return []entity.CategoryDetails{}, nil
	}

	roots := make([]entity.CategoryDetails, 0, len(found))
	ids := make([]string, 0, len(found))
	for _, c := range found {
		kids, err := s.store.Categories().FindByParentID(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if kids == nil {
			kids = []entity.Category{}
		}
		roots = append(roots, entity.CategoryDetails{Category: c, Subcategories: kids})
		ids = append(ids, c.ID)
	}

	counts, err := s.store.Categories().ProductCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range roots {
		roots[i].ProductCount = counts[roots[i].ID]
	}
	return roots, nil
}

// Subcategories lists the direct children of parentID.
func (s *CategoryService) Subcategories(ctx context.Context, parentID string) ([]entity.Category, error) {
	if _, err := s.store.Categories().FindByID(ctx, parentID); err != nil {
		return nil, err
	}
	return s.store.Categories().FindByParentID(ctx, parentID)
}

func (s *CategoryService) All(ctx context.Context) ([]entity.Category, error) {
	return s.store.Categories().FindAll(ctx)
}

func (s *CategoryService) ProductCount(ctx context.Context, id string) (int, error) {
	if _, err := s.store.Categories().FindByID(ctx, id); err != nil {
		return 0, err
	}
	counts, err := s.store.Categories().ProductCounts(ctx, []string{id})
	if err != nil {
		return 0, err
	}
	return counts[id], nil
}

func (s *CategoryService) cacheGet(ctx context.Context, key string, dest any) bool {
	found, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		slog.Warn("Category cache read failed", "key", key, "err", err)
		return false
	}
	return found
}

func (s *CategoryService) cacheSet(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		slog.Warn("Category cache write failed", "key", key, "err", err)
	}
}

// invalidate drops every cached tree view after a structural change.
func (s *CategoryService) invalidate(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, categoryCachePattern); err != nil {
		slog.Warn("Category cache invalidation failed", "err", err)
	}
}

func parentChanged(prev, next *string) bool {
	if prev == nil || next == nil {
		return prev != next
	}
	return *prev != *next
}

func parentError(err error) error {
	if errors.Is(err, entity.ErrCategoryNotFound) {
		return entity.ErrParentNotFound
	}
	return err
}
