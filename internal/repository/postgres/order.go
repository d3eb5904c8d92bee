package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
)

const orderColumns = `o.id, o.order_number, o.user_id, o.customer_email, o.customer_first_name, o.customer_last_name,
	o.customer_phone, o.shipping_street, o.shipping_city, o.shipping_state, o.shipping_zip_code, o.shipping_country,
	o.payment_method, o.status, o.special_instructions, o.subtotal, o.tax, o.shipping_cost, o.total,
	o.created_at, o.updated_at`

const itemColumns = `id, order_id, product_id, product_name, product_sku, product_image_url, quantity, unit_price, line_total`

const shipmentColumns = `id, order_id, carrier, tracking_number, status, shipped_at, delivered_at, estimated_delivery, created_at, updated_at`

type orderRepository struct {
	q querier
}

func scanOrder(row rowScanner) (*entity.Order, error) {
	var (
		o      entity.Order
		userID sql.NullString
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &userID, &o.Customer.Email, &o.Customer.FirstName, &o.Customer.LastName,
		&o.Customer.Phone, &o.Shipping.Street, &o.Shipping.City, &o.Shipping.State, &o.Shipping.ZipCode, &o.Shipping.Country,
		&o.PaymentMethod, &o.Status, &o.SpecialInstructions, &o.Subtotal, &o.Tax, &o.ShippingCost, &o.Total,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		o.UserID = &userID.String
	}
	return &o, nil
}

func (r *orderRepository) Create(ctx context.Context, o *entity.Order) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO orders (id, order_number, user_id, customer_email, customer_first_name, customer_last_name,
			customer_phone, shipping_street, shipping_city, shipping_state, shipping_zip_code, shipping_country,
			payment_method, status, special_instructions, subtotal, tax, shipping_cost, total, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		o.ID, o.OrderNumber, o.UserID, o.Customer.Email, o.Customer.FirstName, o.Customer.LastName,
		o.Customer.Phone, o.Shipping.Street, o.Shipping.City, o.Shipping.State, o.Shipping.ZipCode, o.Shipping.Country,
		o.PaymentMethod, o.Status, o.SpecialInstructions, o.Subtotal, o.Tax, o.ShippingCost, o.Total, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return translate(err, "insert order")
	}

	for i, item := range o.Items {
		_, err = r.q.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, position, product_id, product_name, product_sku, product_image_url,
				quantity, unit_price, line_total)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			item.ID, o.ID, i, item.ProductID, item.ProductName, item.ProductSKU, item.ProductImageURL,
			item.Quantity, item.UnitPrice, item.LineTotal,
		)
		if err != nil {
			return translate(err, "insert order item")
		}
	}
	return nil
}

func (r *orderRepository) findOne(ctx context.Context, query string, arg any) (*entity.Order, error) {
	o, err := scanOrder(r.q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	if err := r.attach(ctx, []*entity.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	return r.findOne(ctx, "SELECT "+orderColumns+" FROM orders o WHERE o.id = $1", id)
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.findOne(ctx, "SELECT "+orderColumns+" FROM orders o WHERE o.id = $1 FOR UPDATE", id)
}

func (r *orderRepository) FindByOrderNumber(ctx context.Context, number string) (*entity.Order, error) {
	return r.findOne(ctx, "SELECT "+orderColumns+" FROM orders o WHERE o.order_number = $1", number)
}

func (r *orderRepository) ExistsByOrderNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)", number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check order number: %w", err)
	}
	return exists, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status entity.OrderStatus, at time.Time) error {
	res, err := r.q.ExecContext(ctx, "UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1", id, status, at)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) List(ctx context.Context, f repository.OrderFilter, page entity.PageRequest) (entity.Page[entity.Order], error) {
	page = page.Normalize()
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("o.user_id = $%d", len(args)))
	}
	if f.Email != "" {
		args = append(args, f.Email)
		where = append(where, fmt.Sprintf("LOWER(o.customer_email) = LOWER($%d)", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders o"+clause, args...).Scan(&total); err != nil {
		return entity.Page[entity.Order]{}, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM orders o%s ORDER BY o.created_at DESC, o.order_number DESC LIMIT %d OFFSET %d",
		orderColumns, clause, page.Size, page.Offset())
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return entity.Page[entity.Order]{}, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return entity.Page[entity.Order]{}, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return entity.Page[entity.Order]{}, fmt.Errorf("error iterating order rows: %w", err)
	}
	rows.Close()

	if err := r.attach(ctx, orders); err != nil {
		return entity.Page[entity.Order]{}, err
	}
	items := make([]entity.Order, 0, len(orders))
	for _, o := range orders {
		items = append(items, *o)
	}
	return entity.NewPage(items, page, total), nil
}

// attach loads line items and shipments for the given orders.
func (r *orderRepository) attach(ctx context.Context, orders []*entity.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*entity.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		o.Items = []entity.OrderItem{}
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.q.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position",
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductSKU, &it.ProductImageURL,
			&it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		o := byID[it.OrderID]
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order item rows: %w", err)
	}
	rows.Close()

	shipments, err := r.q.QueryContext(ctx,
		"SELECT "+shipmentColumns+" FROM shipments WHERE order_id = ANY($1)", pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query shipments: %w", err)
	}
	defer shipments.Close()
	for shipments.Next() {
		var s entity.Shipment
		if err := shipments.Scan(&s.ID, &s.OrderID, &s.Carrier, &s.TrackingNumber, &s.Status,
			&s.ShippedAt, &s.DeliveredAt, &s.EstimatedDelivery, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan shipment: %w", err)
		}
		byID[s.OrderID].Shipment = &s
	}
	return shipments.Err()
}

func (r *orderRepository) SaveShipment(ctx context.Context, s *entity.Shipment) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO shipments (`+shipmentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (order_id) DO UPDATE SET carrier = EXCLUDED.carrier, tracking_number = EXCLUDED.tracking_number,
			status = EXCLUDED.status, shipped_at = EXCLUDED.shipped_at, delivered_at = EXCLUDED.delivered_at,
			estimated_delivery = EXCLUDED.estimated_delivery, updated_at = EXCLUDED.updated_at`,
		s.ID, s.OrderID, s.Carrier, s.TrackingNumber, s.Status,
		s.ShippedAt, s.DeliveredAt, s.EstimatedDelivery, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return translate(err, "save shipment")
	}
	return nil
}
