package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/messaging"
	"github.com/kaushiksanil12/ECOMBackend/internal/ordernumber"
	"github.com/kaushiksanil12/ECOMBackend/internal/pricing"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
)

// LineItemRequest asks for qty units of one product.
type LineItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrderRequest is a guest checkout: contact and address come from the request.
type PlaceOrderRequest struct {
	Customer            entity.CustomerInfo  `json:"customer"`
	Shipping            entity.Address       `json:"shipping_address"`
	PaymentMethod       entity.PaymentMethod `json:"payment_method"`
	SpecialInstructions string               `json:"special_instructions"`
	Items               []LineItemRequest    `json:"items"`
}

// UserOrderRequest is a checkout by a registered user. Contact fields come
// from the profile; an empty street falls back to the profile address.
type UserOrderRequest struct {
	Shipping            entity.Address       `json:"shipping_address"`
	PaymentMethod       entity.PaymentMethod `json:"payment_method"`
	SpecialInstructions string               `json:"special_instructions"`
	Items               []LineItemRequest    `json:"items"`
}

// ShipmentRequest creates or replaces the shipment of an order.
type ShipmentRequest struct {
	Carrier           string                `json:"carrier"`
	TrackingNumber    string                `json:"tracking_number"`
	Status            entity.ShipmentStatus `json:"status"`
	EstimatedDelivery *time.Time            `json:"estimated_delivery"`
}

// orderNumberRetries bounds how often an order is re-placed when its number
// lost a race on the unique index.
const orderNumberRetries = 2

type pendingEvent struct {
	topic string
	key   string
	event entity.Event
}

// OrderService orchestrates order placement, fulfilment and cancellation.
type OrderService struct {
	store     repository.Store
	ledger    *InventoryLedger
	calc      pricing.Calculator
	numbers   *ordernumber.Generator
	publisher messaging.Publisher
	now       func() time.Time
}

func NewOrderService(
	store repository.Store,
	ledger *InventoryLedger,
	calc pricing.Calculator,
	numbers *ordernumber.Generator,
	publisher messaging.Publisher,
) *OrderService {
	return &OrderService{
		store:     store,
		ledger:    ledger,
		calc:      calc,
		numbers:   numbers,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateGuestOrder places an order without an owning user.
func (s *OrderService) CreateGuestOrder(ctx context.Context, req PlaceOrderRequest) (*entity.Order, error) {
	return s.createOrder(ctx, req, nil)
}

// CreateUserOrder places an order owned by userID.
func (s *OrderService) CreateUserOrder(ctx context.Context, userID string, req UserOrderRequest) (*entity.Order, error) {
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	shipping := req.Shipping
	if strings.TrimSpace(shipping.Street) == "" {
		shipping.Street = user.Address
	}
	return s.createOrder(ctx, PlaceOrderRequest{
		Customer: entity.CustomerInfo{
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Phone:     user.Phone,
		},
		Shipping:            shipping,
		PaymentMethod:       req.PaymentMethod,
		SpecialInstructions: req.SpecialInstructions,
		Items:               req.Items,
	}, &user.ID)
}

func validateOrderRequest(req PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return entity.ErrEmptyOrder
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return entity.ErrInvalidQuantity
		}
		if item.ProductID == "" {
			return fmt.Errorf("%w: product id is required", entity.ErrInvalidInput)
		}
	}
	if _, err := entity.ParsePaymentMethod(string(req.PaymentMethod)); err != nil {
		return err
	}
	if strings.TrimSpace(req.Customer.Email) == "" {
		return fmt.Errorf("%w: customer email is required", entity.ErrInvalidInput)
	}
	return nil
}

// createOrder reserves every line, prices the order and persists it in one
// transaction. Nothing is reserved unless the whole order is saved.
func (s *OrderService) createOrder(ctx context.Context, req PlaceOrderRequest, userID *string) (*entity.Order, error) {
	if err := validateOrderRequest(req); err != nil {
		return nil, err
	}
	payment, _ := entity.ParsePaymentMethod(string(req.PaymentMethod))

	now := s.now()
	order := &entity.Order{
		ID:                  uuid.NewString(),
		UserID:              userID,
		Customer:            req.Customer,
		Shipping:            req.Shipping,
		PaymentMethod:       payment,
		Status:              entity.OrderPending,
		SpecialInstructions: req.SpecialInstructions,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	order.Customer.Email = strings.TrimSpace(order.Customer.Email)
	slog.Info("Service: Placing order", "order_id", order.ID, "items", len(req.Items), "guest", userID == nil)

	var err error
	for attempt := 1; attempt <= orderNumberRetries; attempt++ {
		err = s.store.InTx(ctx, func(tx repository.Store) error {
			return s.placeOrder(ctx, tx, order, req.Items)
		})
		if !errors.Is(err, entity.ErrDuplicateOrderNumber) || attempt == orderNumberRetries {
			break
		}
		slog.Warn("Service: Order number taken, retrying", "order_id", order.ID, "attempt", attempt)
	}
	if err != nil {
		slog.Warn("Service: Order rejected", "order_id", order.ID, "err", err)
		return nil, err
	}

	slog.Info("Service: Order placed", "order_id", order.ID, "order_number", order.OrderNumber, "total", order.Total.StringFixed(2))
	s.publish(ctx, pendingEvent{messaging.TopicOrderPlaced, order.ID, entity.NewOrderPlaced(order)})
	return order, nil
}

// placeOrder reserves stock in product id order so concurrent orders lock
// rows in the same sequence. Line items keep the request order.
func (s *OrderService) placeOrder(ctx context.Context, tx repository.Store, order *entity.Order, items []LineItemRequest) error {
	number, err := s.numbers.Generate(ctx, tx.Orders())
	if err != nil {
		return err
	}
	order.OrderNumber = number

	lines := make([]pricing.Line, len(items))
	order.Items = make([]entity.OrderItem, len(items))
	for _, i := range reservationOrder(items) {
		item := items[i]
		product, err := s.ledger.Reserve(ctx, tx, order.ID, item.ProductID, item.Quantity)
		if err != nil {
			return fmt.Errorf("product %s: %w", item.ProductID, err)
		}
		line := pricing.Line{UnitPrice: product.Price, Quantity: item.Quantity}
		lines[i] = line
		order.Items[i] = entity.OrderItem{
			ID:              uuid.NewString(),
			OrderID:         order.ID,
			ProductID:       product.ID,
			ProductName:     product.Name,
			ProductSKU:      product.SKU,
			ProductImageURL: product.MainImageURL,
			Quantity:        item.Quantity,
			UnitPrice:       product.Price,
			LineTotal:       s.calc.LineTotal(line),
		}
	}

	totals := s.calc.Calculate(lines)
	order.Subtotal = totals.Subtotal
	order.Tax = totals.Tax
	order.ShippingCost = totals.Shipping
	order.Total = totals.Total

	if err := tx.Orders().Create(ctx, order); err != nil {
		return err
	}
	return tx.Events().SaveEvents(ctx, order.ID, entity.StreamOrder, 0, []entity.Event{entity.NewOrderPlaced(order)})
}

// reservationOrder returns the indexes of items sorted by product id.
func reservationOrder(items []LineItemRequest) []int {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return strings.Compare(items[a].ProductID, items[b].ProductID)
	})
	return idx
}

// CancelOrder cancels an order that has not shipped and gives its stock back.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	slog.Info("Service: Cancelling order", "order_id", orderID)

	var (
		order   *entity.Order
		pending pendingEvent
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		pending, err = s.cancelLocked(ctx, tx, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Service: Order cancelled", "order_id", orderID, "order_number", order.OrderNumber)
	s.publish(ctx, pending)
	return order, nil
}

// cancelLocked expects the order row to be locked by the caller's transaction.
func (s *OrderService) cancelLocked(ctx context.Context, tx repository.Store, order *entity.Order) (pendingEvent, error) {
	if !order.Status.CanCancel() {
		return pendingEvent{}, fmt.Errorf("%w: cannot cancel an order that is %s", entity.ErrInvalidTransition, order.Status)
	}

	released := make(map[string]int, len(order.Items))
	for _, item := range order.Items {
		if err := s.ledger.Release(ctx, tx, order.ID, item.ProductID, item.Quantity); err != nil {
			return pendingEvent{}, fmt.Errorf("product %s: %w", item.ProductID, err)
		}
		released[item.ProductID] += item.Quantity
	}

	now := s.now()
	from := order.Status
	if err := tx.Orders().UpdateStatus(ctx, order.ID, entity.OrderCancelled, now); err != nil {
		return pendingEvent{}, err
	}
	order.Status = entity.OrderCancelled
	order.UpdatedAt = now

	event := &entity.OrderCancelledEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		From:        from,
		Released:    released,
		CancelledAt: now,
	}
	if err := tx.Events().SaveEvents(ctx, order.ID, entity.StreamOrder, repository.AnyVersion, []entity.Event{event}); err != nil {
		return pendingEvent{}, err
	}
	return pendingEvent{messaging.TopicOrderCancelled, order.ID, event}, nil
}

// UpdateStatus moves an order to newStatus. Cancelling goes through the
// cancellation path so stock is released; terminal orders never move.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, newStatus entity.OrderStatus) (*entity.Order, error) {
	status, err := entity.ParseOrderStatus(string(newStatus))
	if err != nil {
		return nil, err
	}
	if status == entity.OrderCancelled {
		return s.CancelOrder(ctx, orderID)
	}
	slog.Info("Service: Updating order status", "order_id", orderID, "status", status)

	var (
		order   *entity.Order
		pending pendingEvent
	)
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return fmt.Errorf("%w: order is %s", entity.ErrInvalidTransition, order.Status)
		}

		now := s.now()
		from := order.Status
		if err := tx.Orders().UpdateStatus(ctx, orderID, status, now); err != nil {
			return err
		}
		order.Status = status
		order.UpdatedAt = now

		event := &entity.OrderStatusChanged{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			From:        from,
			To:          status,
			ChangedAt:   now,
		}
		pending = pendingEvent{messaging.TopicOrderStatusChanged, order.ID, event}
		return tx.Events().SaveEvents(ctx, order.ID, entity.StreamOrder, repository.AnyVersion, []entity.Event{event})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, pending)
	return order, nil
}

// TrackOrder lets a guest look an order up by number and email. A wrong
// email is indistinguishable from an unknown number.
func (s *OrderService) TrackOrder(ctx context.Context, orderNumber, email string) (*entity.OrderTracking, error) {
	order, err := s.store.Orders().FindByOrderNumber(ctx, strings.TrimSpace(orderNumber))
	if errors.Is(err, entity.ErrNotFound) {
		return nil, entity.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(order.Customer.Email), strings.TrimSpace(email)) {
		return nil, entity.ErrOrderNotFound
	}
	return entity.NewOrderTracking(order), nil
}

// GetUserOrder returns an order only to the user who placed it.
func (s *OrderService) GetUserOrder(ctx context.Context, orderID, userID string) (*entity.Order, error) {
	order, err := s.store.Orders().FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(userID) {
		return nil, fmt.Errorf("%w: order belongs to another customer", entity.ErrForbidden)
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	return s.store.Orders().FindByID(ctx, orderID)
}

func (s *OrderService) GetOrderByNumber(ctx context.Context, number string) (*entity.Order, error) {
	return s.store.Orders().FindByOrderNumber(ctx, number)
}

// ListOrders returns orders newest first.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter, page entity.PageRequest) (entity.Page[entity.Order], error) {
	return s.store.Orders().List(ctx, filter, page.Normalize())
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID string, page entity.PageRequest) (entity.Page[entity.Order], error) {
	return s.store.Orders().List(ctx, repository.OrderFilter{UserID: userID}, page.Normalize())
}

// UpsertShipment creates or replaces the shipment of an order. ShippedAt and
// DeliveredAt are stamped the first time the status reaches them.
func (s *OrderService) UpsertShipment(ctx context.Context, orderID string, req ShipmentRequest) (*entity.Shipment, error) {
	status, err := entity.ParseShipmentStatus(string(req.Status))
	if err != nil {
		return nil, err
	}

	var shipment *entity.Shipment
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == entity.OrderCancelled {
			return fmt.Errorf("%w: order is cancelled", entity.ErrInvalidTransition)
		}

		now := s.now()
		if order.Shipment != nil {
			shipment = order.Shipment
		} else {
			shipment = &entity.Shipment{ID: uuid.NewString(), OrderID: orderID, CreatedAt: now}
		}
		shipment.Carrier = req.Carrier
		shipment.TrackingNumber = req.TrackingNumber
		shipment.Status = status
		shipment.EstimatedDelivery = req.EstimatedDelivery
		shipment.UpdatedAt = now
		if shipment.ShippedAt == nil && status != entity.ShipmentPreparing {
			shipment.ShippedAt = &now
		}
		if shipment.DeliveredAt == nil && status == entity.ShipmentDelivered {
			shipment.DeliveredAt = &now
		}

		if err := tx.Orders().SaveShipment(ctx, shipment); err != nil {
			return err
		}
		return tx.Events().SaveEvents(ctx, orderID, entity.StreamOrder, repository.AnyVersion, []entity.Event{&entity.ShipmentUpdated{
			OrderID:        orderID,
			Carrier:        shipment.Carrier,
			TrackingNumber: shipment.TrackingNumber,
			Status:         status,
			UpdatedAt:      now,
		}})
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Service: Shipment updated", "order_id", orderID, "status", status)
	return shipment, nil
}

// OrderHistory rebuilds the timeline of an order from the event store.
func (s *OrderService) OrderHistory(ctx context.Context, orderID string) (*entity.OrderTimeline, error) {
	if _, err := s.store.Orders().FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	records, err := s.store.Events().LoadEvents(ctx, orderID)
	if err != nil {
		return nil, err
	}
	timeline := entity.NewOrderTimeline(orderID)
	if err := entity.Rehydrate(timeline, records); err != nil {
		return nil, fmt.Errorf("failed to rebuild order history: %w", err)
	}
	return timeline, nil
}

// publish runs after commit. A broker failure is logged and never undoes
// the committed change.
func (s *OrderService) publish(ctx context.Context, p pendingEvent) {
	if s.publisher == nil || p.event == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, p.topic, p.key, p.event); err != nil {
		slog.Error("Failed to publish event", "topic", p.topic, "key", p.key, "err", err)
	}
}
