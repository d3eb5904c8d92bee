package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
	"github.com/kaushiksanil12/ECOMBackend/internal/service"
)

type productRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	SKU         string          `json:"sku" binding:"required"`
	Quantity    int             `json:"quantity" binding:"gte=0"`
	Status      string          `json:"status"`
	Brand       string          `json:"brand"`
	CategoryIDs []string        `json:"category_ids"`
}

func (r productRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		SKU:         r.SKU,
		Quantity:    r.Quantity,
		Status:      entity.ProductStatus(r.Status),
		Brand:       r.Brand,
		CategoryIDs: r.CategoryIDs,
	}
}

type productQuery struct {
	entity.PageRequest
	Status     string `form:"status"`
	CategoryID string `form:"category_id"`
	Search     string `form:"q"`
	Brand      string `form:"brand"`
	MinPrice   string `form:"min_price"`
	MaxPrice   string `form:"max_price"`
	InStock    bool   `form:"in_stock"`
}

func (q productQuery) filter() (repository.ProductFilter, error) {
	f := repository.ProductFilter{
		CategoryID: q.CategoryID,
		Search:     q.Search,
		Brand:      q.Brand,
		InStock:    q.InStock,
	}
	if q.Status != "" {
		status, err := entity.ParseProductStatus(q.Status)
		if err != nil {
			return f, err
		}
		f.Status = status
	}
	var err error
	if f.MinPrice, err = parsePrice(q.MinPrice); err != nil {
		return f, err
	}
	if f.MaxPrice, err = parsePrice(q.MaxPrice); err != nil {
		return f, err
	}
	return f, nil
}

func parsePrice(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: price %q", entity.ErrInvalidInput, s)
	}
	return &d, nil
}

type mainImageRequest struct {
	URL string `json:"url" binding:"required"`
}

type imagesRequest struct {
	URLs []string `json:"urls" binding:"required"`
}

func (h *Handler) listActiveProducts(c *gin.Context) {
	h.listProductsWith(c, func(f *repository.ProductFilter) { f.Status = entity.ProductActive })
}

func (h *Handler) listProducts(c *gin.Context) {
	h.listProductsWith(c, func(*repository.ProductFilter) {})
}

func (h *Handler) listProductsWith(c *gin.Context, scope func(f *repository.ProductFilter)) {
	var q productQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	f, err := q.filter()
	if err != nil {
		writeError(c, err)
		return
	}
	scope(&f)
	page, err := h.products.List(c.Request.Context(), f, q.PageRequest)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) getActiveProduct(c *gin.Context) {
	p, err := h.products.GetActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) getProduct(c *gin.Context) {
	p, err := h.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) getProductBySKU(c *gin.Context) {
	p, err := h.products.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.products.Create(c.Request.Context(), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) updateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.products.Update(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) setMainImage(c *gin.Context) {
	var req mainImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.products.SetMainImage(c.Request.Context(), c.Param("id"), req.URL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) clearMainImage(c *gin.Context) {
	p, err := h.products.ClearMainImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) replaceImages(c *gin.Context) {
	var req imagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.products.AddImages(c.Request.Context(), c.Param("id"), req.URLs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) removeImage(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		writeError(c, entity.ErrInvalidImageIndex)
		return
	}
	p, removed, err := h.products.RemoveImage(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p, "removed_url": removed})
}

func (h *Handler) stockMovements(c *gin.Context) {
	ledger, err := h.products.StockMovements(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id":  ledger.ID,
		"reserved":    ledger.Reserved,
		"released":    ledger.Released,
		"outstanding": ledger.Outstanding(),
		"movements":   ledger.Movements,
	})
}
