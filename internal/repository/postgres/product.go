package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
)

const productColumns = `p.id, p.name, p.description, p.price, p.sku, p.quantity, p.status, p.brand,
	p.main_image_url, p.additional_images,
	ARRAY(SELECT pc.category_id FROM product_categories pc WHERE pc.product_id = p.id ORDER BY pc.category_id),
	p.created_at, p.updated_at`

type productRepository struct {
	q querier
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.SKU, &p.Quantity, &p.Status, &p.Brand,
		&p.MainImageURL, pq.Array(&p.AdditionalImages), pq.Array(&p.CategoryIDs),
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) findOne(ctx context.Context, where string, arg any) (*entity.Product, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products p WHERE "+where, arg)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.findOne(ctx, "p.id = $1", id)
}

func (r *productRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.findOne(ctx, "p.id = $1 FOR UPDATE OF p", id)
}

func (r *productRepository) FindBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	return r.findOne(ctx, "p.sku = $1", sku)
}

func (r *productRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1)", sku).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check sku: %w", err)
	}
	return exists, nil
}

func (r *productRepository) Create(ctx context.Context, p *entity.Product) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO products (id, name, description, price, sku, quantity, status, brand, main_image_url, additional_images, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.Name, p.Description, p.Price, p.SKU, p.Quantity, p.Status, p.Brand,
		p.MainImageURL, pq.Array(nonNil(p.AdditionalImages)), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return translate(err, "insert product")
	}
	return r.setCategories(ctx, p.ID, p.CategoryIDs)
}

func (r *productRepository) Update(ctx context.Context, p *entity.Product) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE products SET name = $2, description = $3, price = $4, sku = $5, quantity = $6, status = $7,
		 brand = $8, main_image_url = $9, additional_images = $10, updated_at = $11
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price, p.SKU, p.Quantity, p.Status,
		p.Brand, p.MainImageURL, pq.Array(nonNil(p.AdditionalImages)), p.UpdatedAt,
	)
	if err != nil {
		return translate(err, "update product")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrProductNotFound
	}
	return r.setCategories(ctx, p.ID, p.CategoryIDs)
}

func (r *productRepository) setCategories(ctx context.Context, productID string, categoryIDs []string) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM product_categories WHERE product_id = $1", productID); err != nil {
		return translate(err, "clear product categories")
	}
	for _, cid := range categoryIDs {
		_, err := r.q.ExecContext(ctx,
			"INSERT INTO product_categories (product_id, category_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			productID, cid)
		if err != nil {
			return translate(err, "assign product category")
		}
	}
	return nil
}

func (r *productRepository) List(ctx context.Context, f repository.ProductFilter, page entity.PageRequest) (entity.Page[entity.Product], error) {
	page = page.Normalize()
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Status != "" {
		add("p.status = $%d", f.Status)
	}
	if f.CategoryID != "" {
		add("EXISTS (SELECT 1 FROM product_categories pc WHERE pc.product_id = p.id AND pc.category_id = $%d)", f.CategoryID)
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", n, n))
	}
	if f.Brand != "" {
		add("LOWER(p.brand) = LOWER($%d)", f.Brand)
	}
	if f.MinPrice != nil {
		add("p.price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("p.price <= $%d", *f.MaxPrice)
	}
	if f.InStock {
		where = append(where, "p.quantity > 0")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM products p"+clause, args...).Scan(&total); err != nil {
		return entity.Page[entity.Product]{}, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM products p%s ORDER BY p.name, p.id LIMIT %d OFFSET %d",
		productColumns, clause, page.Size, page.Offset())
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return entity.Page[entity.Product]{}, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return entity.Page[entity.Product]{}, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return entity.Page[entity.Product]{}, fmt.Errorf("error iterating product rows: %w", err)
	}
	return entity.NewPage(products, page, total), nil
}

func (r *productRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// Reserve relies on the row lock taken by the conditional UPDATE: a second
// transaction reserving the same product waits for the first to finish and
// then re-checks the quantity against the committed value.
func (r *productRepository) Reserve(ctx context.Context, id string, qty int) (*entity.Product, error) {
	row := r.q.QueryRowContext(ctx,
		`UPDATE products AS p SET quantity = p.quantity - $1, updated_at = NOW()
		 WHERE p.id = $2 AND p.status = 'ACTIVE' AND p.quantity >= $1
		 RETURNING `+productColumns,
		qty, id)
	p, err := scanProduct(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}

	var (
		status   entity.ProductStatus
		quantity int
	)
	err = r.q.QueryRowContext(ctx, "SELECT status, quantity FROM products WHERE id = $1", id).Scan(&status, &quantity)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && status != entity.ProductActive) {
		return nil, entity.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stock: %w", err)
	}
	return nil, fmt.Errorf("%w: %d available, %d requested", entity.ErrInsufficientStock, quantity, qty)
}

func (r *productRepository) Release(ctx context.Context, id string, qty int) (*entity.Product, error) {
	row := r.q.QueryRowContext(ctx,
		`UPDATE products AS p SET quantity = p.quantity + $1, updated_at = NOW()
		 WHERE p.id = $2
		 RETURNING `+productColumns,
		qty, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to release stock: %w", err)
	}
	return p, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
