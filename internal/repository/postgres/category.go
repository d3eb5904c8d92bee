package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
)

const categoryColumns = "id, name, description, parent_id, created_at, updated_at"

// categoryTreeLock is the advisory lock key taken by structural category changes.
const categoryTreeLock int64 = 0x63617467

type categoryRepository struct {
	q querier
}

func scanCategory(row rowScanner) (*entity.Category, error) {
	var (
		c      entity.Category
		parent sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &parent, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		c.ParentID = &parent.String
	}
	return &c, nil
}

func (r *categoryRepository) findOne(ctx context.Context, where string, arg any) (*entity.Category, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE "+where, arg)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return c, nil
}

func (r *categoryRepository) findMany(ctx context.Context, query string, args ...any) ([]entity.Category, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []entity.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rows: %w", err)
	}
	return categories, nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id string) (*entity.Category, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *categoryRepository) FindByName(ctx context.Context, name string) (*entity.Category, error) {
	return r.findOne(ctx, "name = $1", name)
}

func (r *categoryRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.Category, error) {
	return r.findMany(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ANY($1) ORDER BY name", pq.Array(ids))
}

func (r *categoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM categories WHERE name = $1)", name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check category name: %w", err)
	}
	return exists, nil
}

func (r *categoryRepository) FindByParentID(ctx context.Context, parentID string) ([]entity.Category, error) {
	return r.findMany(ctx, "SELECT "+categoryColumns+" FROM categories WHERE parent_id = $1 ORDER BY name", parentID)
}

func (r *categoryRepository) FindRoots(ctx context.Context) ([]entity.Category, error) {
	return r.findMany(ctx, "SELECT "+categoryColumns+" FROM categories WHERE parent_id IS NULL ORDER BY name")
}

func (r *categoryRepository) FindAll(ctx context.Context) ([]entity.Category, error) {
	return r.findMany(ctx, "SELECT "+categoryColumns+" FROM categories ORDER BY name")
}

func (r *categoryRepository) Search(ctx context.Context, term string) ([]entity.Category, error) {
	return r.findMany(ctx, "SELECT "+categoryColumns+" FROM categories WHERE name ILIKE $1 ORDER BY name",
		"%"+escapeLike(term)+"%")
}

func (r *categoryRepository) Create(ctx context.Context, c *entity.Category) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO categories ("+categoryColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		c.ID, c.Name, c.Description, c.ParentID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return translate(err, "insert category")
	}
	return nil
}

func (r *categoryRepository) Update(ctx context.Context, c *entity.Category) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE categories SET name = $2, description = $3, parent_id = $4, updated_at = $5 WHERE id = $1",
		c.ID, c.Name, c.Description, c.ParentID, c.UpdatedAt)
	if err != nil {
		return translate(err, "update category")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrCategoryNotFound
	}
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Constraint {
			case "categories_parent_fkey":
				return entity.ErrHasChildren
			case "product_categories_category_fkey":
				return entity.ErrHasProducts
			}
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrCategoryNotFound
	}
	return nil
}

func (r *categoryRepository) ProductCounts(ctx context.Context, ids []string) (map[string]int, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT category_id, COUNT(*) FROM product_categories WHERE category_id = ANY($1) GROUP BY category_id",
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to count category products: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int, len(ids))
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan product count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (r *categoryRepository) LockTree(ctx context.Context) error {
	if _, err := r.q.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", categoryTreeLock); err != nil {
		return fmt.Errorf("failed to lock category tree: %w", err)
	}
	return nil
}
