package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
	"github.com/kaushiksanil12/ECOMBackend/internal/service"
)

type lineItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type addressRequest struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

func (a addressRequest) address() entity.Address {
	return entity.Address{Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode, Country: a.Country}
}

type guestOrderRequest struct {
	Email               string            `json:"email" binding:"required,email"`
	FirstName           string            `json:"first_name" binding:"required"`
	LastName            string            `json:"last_name" binding:"required"`
	Phone               string            `json:"phone"`
	ShippingAddress     addressRequest    `json:"shipping_address"`
	PaymentMethod       string            `json:"payment_method" binding:"required"`
	SpecialInstructions string            `json:"special_instructions"`
	Items               []lineItemRequest `json:"items" binding:"dive"`
}

type userOrderRequest struct {
	ShippingAddress     addressRequest    `json:"shipping_address"`
	PaymentMethod       string            `json:"payment_method" binding:"required"`
	SpecialInstructions string            `json:"special_instructions"`
	Items               []lineItemRequest `json:"items" binding:"dive"`
}

func lineItems(items []lineItemRequest) []service.LineItemRequest {
	out := make([]service.LineItemRequest, len(items))
	for i, it := range items {
		out[i] = service.LineItemRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return out
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type shipmentRequest struct {
	Carrier           string     `json:"carrier"`
	TrackingNumber    string     `json:"tracking_number"`
	Status            string     `json:"status" binding:"required"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
}

type orderQuery struct {
	entity.PageRequest
	Status string `form:"status"`
	UserID string `form:"user_id"`
	Email  string `form:"email"`
}

type trackQuery struct {
	OrderNumber string `form:"orderNumber" binding:"required"`
	Email       string `form:"email" binding:"required"`
}

func (h *Handler) createGuestOrder(c *gin.Context) {
	var req guestOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.orders.CreateGuestOrder(c.Request.Context(), service.PlaceOrderRequest{
		Customer: entity.CustomerInfo{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
		},
		Shipping:            req.ShippingAddress.address(),
		PaymentMethod:       entity.PaymentMethod(req.PaymentMethod),
		SpecialInstructions: req.SpecialInstructions,
		Items:               lineItems(req.Items),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) trackOrder(c *gin.Context) {
	var q trackQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	tracking, err := h.orders.TrackOrder(c.Request.Context(), q.OrderNumber, q.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tracking)
}

func (h *Handler) createUserOrder(c *gin.Context) {
	var req userOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.orders.CreateUserOrder(c.Request.Context(), userID(c), service.UserOrderRequest{
		Shipping:            req.ShippingAddress.address(),
		PaymentMethod:       entity.PaymentMethod(req.PaymentMethod),
		SpecialInstructions: req.SpecialInstructions,
		Items:               lineItems(req.Items),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) listUserOrders(c *gin.Context) {
	var page entity.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		badRequest(c, err)
		return
	}
	orders, err := h.orders.ListUserOrders(c.Request.Context(), userID(c), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) getUserOrder(c *gin.Context) {
	order, err := h.orders.GetUserOrder(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	var q orderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	filter := repository.OrderFilter{UserID: q.UserID, Email: q.Email}
	if q.Status != "" {
		status, err := entity.ParseOrderStatus(q.Status)
		if err != nil {
			writeError(c, err)
			return
		}
		filter.Status = status
	}
	h.respondOrders(c, filter, q.PageRequest)
}

func (h *Handler) listOrdersByStatus(c *gin.Context) {
	status, err := entity.ParseOrderStatus(c.Param("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	var page entity.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		badRequest(c, err)
		return
	}
	h.respondOrders(c, repository.OrderFilter{Status: status}, page)
}

func (h *Handler) respondOrders(c *gin.Context, filter repository.OrderFilter, page entity.PageRequest) {
	orders, err := h.orders.ListOrders(c.Request.Context(), filter, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) getOrderByNumber(c *gin.Context) {
	order, err := h.orders.GetOrderByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), entity.OrderStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	order, err := h.orders.CancelOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) upsertShipment(c *gin.Context) {
	var req shipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	shipment, err := h.orders.UpsertShipment(c.Request.Context(), c.Param("id"), service.ShipmentRequest{
		Carrier:           req.Carrier,
		TrackingNumber:    req.TrackingNumber,
		Status:            entity.ShipmentStatus(req.Status),
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipment)
}

func (h *Handler) orderHistory(c *gin.Context) {
	timeline, err := h.orders.OrderHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, timeline)
}
