package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderReturned   OrderStatus = "RETURNED"
)

var orderStatuses = []OrderStatus{
	OrderPending, OrderConfirmed, OrderProcessing, OrderShipped,
	OrderDelivered, OrderCancelled, OrderReturned,
}

// ParseOrderStatus accepts a status name in any case, surrounding spaces ignored.
func ParseOrderStatus(s string) (OrderStatus, error) {
	candidate := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range orderStatuses {
		if st == candidate {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

// IsTerminal reports whether no further transition may leave this status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCancelled || s == OrderReturned
}

// CanCancel reports whether an order in this status may still be cancelled.
func (s OrderStatus) CanCancel() bool {
	switch s {
	case OrderShipped, OrderDelivered, OrderCancelled, OrderReturned:
		return false
	}
	return true
}

type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard      PaymentMethod = "DEBIT_CARD"
	PaymentPaypal         PaymentMethod = "PAYPAL"
	PaymentCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	PaymentBankTransfer   PaymentMethod = "BANK_TRANSFER"
	PaymentUPI            PaymentMethod = "UPI"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case PaymentCreditCard, PaymentDebitCard, PaymentPaypal,
		PaymentCashOnDelivery, PaymentBankTransfer, PaymentUPI:
		return m, nil
	}
	return "", ErrInvalidPaymentMethod
}

// CustomerInfo is the contact snapshot captured when the order is placed.
type CustomerInfo struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// Order is the aggregate root for a purchase. Items are owned by the order
// and carry a snapshot of the product as it was when the order was placed.
type Order struct {
	ID                  string          `json:"id"`
	OrderNumber         string          `json:"order_number"`
	UserID              *string         `json:"user_id,omitempty"`
	Customer            CustomerInfo    `json:"customer"`
	Shipping            Address         `json:"shipping_address"`
	PaymentMethod       PaymentMethod   `json:"payment_method"`
	Status              OrderStatus     `json:"status"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	Tax                 decimal.Decimal `json:"tax"`
	ShippingCost        decimal.Decimal `json:"shipping_cost"`
	Total               decimal.Decimal `json:"total"`
	Items               []OrderItem     `json:"items"`
	Shipment            *Shipment       `json:"shipment,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (o *Order) IsGuest() bool {
	return o.UserID == nil
}

// OwnedBy reports whether userID placed the order. Guest orders have no owner.
func (o *Order) OwnedBy(userID string) bool {
	return o.UserID != nil && *o.UserID == userID
}

// OrderItem is an immutable line of an order.
type OrderItem struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"order_id"`
	ProductID       string          `json:"product_id"`
	ProductName     string          `json:"product_name"`
	ProductSKU      string          `json:"product_sku"`
	ProductImageURL string          `json:"product_image_url,omitempty"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

type ShipmentStatus string

const (
	ShipmentPreparing      ShipmentStatus = "PREPARING"
	ShipmentShipped        ShipmentStatus = "SHIPPED"
	ShipmentInTransit      ShipmentStatus = "IN_TRANSIT"
	ShipmentOutForDelivery ShipmentStatus = "OUT_FOR_DELIVERY"
	ShipmentDelivered      ShipmentStatus = "DELIVERED"
	ShipmentReturned       ShipmentStatus = "RETURNED"
)

func ParseShipmentStatus(s string) (ShipmentStatus, error) {
	switch st := ShipmentStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case ShipmentPreparing, ShipmentShipped, ShipmentInTransit,
		ShipmentOutForDelivery, ShipmentDelivered, ShipmentReturned:
		return st, nil
	}
	return "", ErrInvalidStatus
}

type Shipment struct {
	ID                string         `json:"id"`
	OrderID           string         `json:"order_id"`
	Carrier           string         `json:"carrier"`
	TrackingNumber    string         `json:"tracking_number"`
	Status            ShipmentStatus `json:"status"`
	ShippedAt         *time.Time     `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time     `json:"delivered_at,omitempty"`
	EstimatedDelivery *time.Time     `json:"estimated_delivery,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// DeliveryEstimate is how long after placement a guest is told to expect delivery.
const DeliveryEstimate = 7 * 24 * time.Hour

// OrderTracking is the limited view returned to guests tracking an order.
type OrderTracking struct {
	OrderNumber       string          `json:"order_number"`
	Status            OrderStatus     `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	Total             decimal.Decimal `json:"total"`
	City              string          `json:"city"`
	State             string          `json:"state"`
	Country           string          `json:"country"`
	EstimatedDelivery time.Time       `json:"estimated_delivery"`
	Items             []TrackedItem   `json:"items"`
}

type TrackedItem struct {
	ProductName string `json:"product_name"`
	ProductSKU  string `json:"product_sku"`
	Quantity    int    `json:"quantity"`
}

func NewOrderTracking(o *Order) *OrderTracking {
	t := &OrderTracking{
		OrderNumber:       o.OrderNumber,
		Status:            o.Status,
		CreatedAt:         o.CreatedAt,
		Total:             o.Total,
		City:              o.Shipping.City,
		State:             o.Shipping.State,
		Country:           o.Shipping.Country,
		EstimatedDelivery: o.CreatedAt.Add(DeliveryEstimate),
		Items:             make([]TrackedItem, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		t.Items = append(t.Items, TrackedItem{
			ProductName: it.ProductName,
			ProductSKU:  it.ProductSKU,
			Quantity:    it.Quantity,
		})
	}
	return t
}
