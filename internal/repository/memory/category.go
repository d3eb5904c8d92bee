package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
)

type categoryRepository struct {
	s *Store
}

func byName(a, b entity.Category) int {
	return strings.Compare(a.Name, b.Name)
}

// collect returns clones of every category accepted by keep, sorted by name.
func (r *categoryRepository) collect(keep func(c *entity.Category) bool) ([]entity.Category, error) {
	var out []entity.Category
	err := r.s.view(func(st *state) error {
		out = make([]entity.Category, 0)
		for _, c := range st.categories {
			if keep(&c) {
				out = append(out, cloneCategory(c))
			}
		}
		return nil
	})
	slices.SortFunc(out, byName)
	return out, err
}

func (r *categoryRepository) FindByID(_ context.Context, id string) (*entity.Category, error) {
	var out *entity.Category
	err := r.s.view(func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return entity.ErrCategoryNotFound
		}
		c = cloneCategory(c)
		out = &c
		return nil
	})
	return out, err
}

func (r *categoryRepository) FindByIDs(_ context.Context, ids []string) ([]entity.Category, error) {
	return r.collect(func(c *entity.Category) bool { return slices.Contains(ids, c.ID) })
}

func (r *categoryRepository) FindByName(_ context.Context, name string) (*entity.Category, error) {
	found, err := r.collect(func(c *entity.Category) bool { return c.Name == name })
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, entity.ErrCategoryNotFound
	}
	return &found[0], nil
}

func (r *categoryRepository) ExistsByName(_ context.Context, name string) (bool, error) {
	found, err := r.collect(func(c *entity.Category) bool { return c.Name == name })
	return len(found) > 0, err
}

func (r *categoryRepository) FindByParentID(_ context.Context, parentID string) ([]entity.Category, error) {
	return r.collect(func(c *entity.Category) bool { return c.ParentID != nil && *c.ParentID == parentID })
}

func (r *categoryRepository) FindRoots(_ context.Context) ([]entity.Category, error) {
	return r.collect(func(c *entity.Category) bool { return c.IsRoot() })
}

func (r *categoryRepository) FindAll(_ context.Context) ([]entity.Category, error) {
	return r.collect(func(*entity.Category) bool { return true })
}

func (r *categoryRepository) Search(_ context.Context, term string) ([]entity.Category, error) {
	term = strings.ToLower(term)
	return r.collect(func(c *entity.Category) bool { return strings.Contains(strings.ToLower(c.Name), term) })
}

func (r *categoryRepository) Create(_ context.Context, c *entity.Category) error {
	return r.s.view(func(st *state) error {
		if err := checkCategory(st, c); err != nil {
			return err
		}
		st.categories[c.ID] = cloneCategory(*c)
		return nil
	})
}

func (r *categoryRepository) Update(_ context.Context, c *entity.Category) error {
	return r.s.view(func(st *state) error {
		if _, ok := st.categories[c.ID]; !ok {
			return entity.ErrCategoryNotFound
		}
		if err := checkCategory(st, c); err != nil {
			return err
		}
		st.categories[c.ID] = cloneCategory(*c)
		return nil
	})
}

// checkCategory enforces the constraints the SQL schema declares.
func checkCategory(st *state, c *entity.Category) error {
	for id, existing := range st.categories {
		if id != c.ID && existing.Name == c.Name {
			return entity.ErrDuplicateName
		}
	}
	if c.ParentID != nil {
		if _, ok := st.categories[*c.ParentID]; !ok {
			return entity.ErrParentNotFound
		}
	}
	return nil
}

func (r *categoryRepository) Delete(_ context.Context, id string) error {
	return r.s.view(func(st *state) error {
		if _, ok := st.categories[id]; !ok {
			return entity.ErrCategoryNotFound
		}
		for _, c := range st.categories {
			if c.ParentID != nil && *c.ParentID == id {
				return entity.ErrHasChildren
			}
		}
		for _, p := range st.products {
			if p.InCategory(id) {
				return entity.ErrHasProducts
			}
		}
		delete(st.categories, id)
		return nil
	})
}

func (r *categoryRepository) ProductCounts(_ context.Context, ids []string) (map[string]int, error) {
	counts := make(map[string]int)
	err := r.s.view(func(st *state) error {
		for _, p := range st.products {
			for _, cid := range p.CategoryIDs {
				if slices.Contains(ids, cid) {
					counts[cid]++
				}
			}
		}
		return nil
	})
	return counts, err
}

// LockTree is a no-op: a memory transaction already excludes every other writer.
func (r *categoryRepository) LockTree(context.Context) error {
	return nil
}
