package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kaushiksanil12/ECOMBackend/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler handles HTTP requests for the application.
type Handler struct {
	products   *service.ProductService
	categories *service.CategoryService
	orders     *service.OrderService
	auth       *Authenticator
	health     Pinger
}

func NewHandler(
	products *service.ProductService,
	categories *service.CategoryService,
	orders *service.OrderService,
	auth *Authenticator,
	health Pinger,
) *Handler {
	return &Handler{
		products:   products,
		categories: categories,
		orders:     orders,
		auth:       auth,
		health:     health,
	}
}

// NewRouter builds the gin engine with CORS, recovery and request logging.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", h.healthz)

	public := r.Group("/api/public")
	{
		cats := public.Group("/categories")
		cats.GET("", h.listCategories)
		cats.GET("/roots", h.rootCategories)
		cats.GET("/search", h.searchCategories)
		cats.GET("/:id", h.getCategory)
		cats.GET("/:id/subcategories", h.subcategories)
		cats.GET("/:id/path", h.categoryPath)
		cats.GET("/:id/hierarchy", h.categoryHierarchy)

		public.GET("/products", h.listActiveProducts)
		public.GET("/products/:id", h.getActiveProduct)

		public.POST("/orders", h.createGuestOrder)
		public.GET("/orders/track", h.trackOrder)
	}

	user := r.Group("/api/user", h.auth.RequireUser())
	{
		user.POST("/orders", h.createUserOrder)
		user.GET("/orders", h.listUserOrders)
		user.GET("/orders/:id", h.getUserOrder)
	}

	admin := r.Group("/api/admin", h.auth.RequireUser(), h.auth.RequireAdmin())
	{
		cats := admin.Group("/categories")
		cats.GET("", h.listCategories)
		cats.GET("/:id", h.getCategory)
		cats.GET("/:id/product-count", h.categoryProductCount)
		cats.POST("", h.createCategory)
		cats.PUT("/:id", h.updateCategory)
		cats.DELETE("/:id", h.deleteCategory)
		cats.DELETE("/:id/cascade", h.deleteCategoryCascade)

		products := admin.Group("/products")
		products.GET("", h.listProducts)
		products.GET("/sku/:sku", h.getProductBySKU)
		products.GET("/:id", h.getProduct)
		products.POST("", h.createProduct)
		products.PUT("/:id", h.updateProduct)
		products.DELETE("/:id", h.deleteProduct)
		products.PUT("/:id/images/main", h.setMainImage)
		products.DELETE("/:id/images/main", h.clearMainImage)
		products.PUT("/:id/images", h.replaceImages)
		products.DELETE("/:id/images/:index", h.removeImage)
		products.GET("/:id/stock-movements", h.stockMovements)

		orders := admin.Group("/orders")
		orders.GET("", h.listOrders)
		orders.GET("/status/:status", h.listOrdersByStatus)
		orders.GET("/number/:number", h.getOrderByNumber)
		orders.GET("/:id", h.getOrder)
		orders.PUT("/:id/status", h.updateOrderStatus)
		orders.DELETE("/:id", h.cancelOrder)
		orders.PUT("/:id/shipment", h.upsertShipment)
		orders.GET("/:id/history", h.orderHistory)
	}
}

func (h *Handler) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.health.Ping(ctx); err != nil {
		slog.Error("Health check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
