package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaushiksanil12/ECOMBackend/internal/cache"
	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/ordernumber"
	"github.com/kaushiksanil12/ECOMBackend/internal/pricing"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository/memory"
	"github.com/kaushiksanil12/ECOMBackend/internal/service"
)

type testServer struct {
	router *gin.Engine
	store  *memory.Store
	admin  string
	user   string
	other  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	ledger := service.NewInventoryLedger(store)
	orders := service.NewOrderService(store, ledger,
		pricing.NewCalculator(pricing.DefaultPolicy()), ordernumber.New("ORD"), nil)
	auth := NewAuthenticator("test-secret")
	h := NewHandler(service.NewProductService(store, ledger), service.NewCategoryService(store, cache.Noop{}), orders, auth, store)

	ctx := context.Background()
	for _, u := range []entity.User{
		{ID: "u1", Email: "sam@example.com", FirstName: "Sam", LastName: "Lee", Address: "9 Elm St", Role: entity.RoleUser},
		{ID: "u2", Email: "kim@example.com", FirstName: "Kim", LastName: "Park", Role: entity.RoleUser},
	} {
		require.NoError(t, store.Users().Create(ctx, &u))
	}

	token := func(id string, role entity.Role) string {
		tok, err := auth.IssueToken(id, role, time.Hour)
		require.NoError(t, err)
		return tok
	}
	return &testServer{
		router: NewRouter(h),
		store:  store,
		admin:  token("admin", entity.RoleAdmin),
		user:   token("u1", entity.RoleUser),
		other:  token("u2", entity.RoleUser),
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) createProduct(t *testing.T, sku string, qty int) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/admin/products", s.admin, gin.H{
		"name": "Product " + sku, "sku": sku, "price": "19.99", "quantity": qty,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["id"].(string)
}

func guestOrder(productID string, qty int) gin.H {
	return gin.H{
		"email": "jane@example.com", "first_name": "Jane", "last_name": "Doe",
		"shipping_address": gin.H{"street": "1 Main St", "city": "Springfield", "state": "IL", "zip_code": "62701", "country": "US"},
		"payment_method":   "credit_card",
		"items":            []gin.H{{"product_id": productID, "quantity": qty}},
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	body := gin.H{"name": "Electronics"}

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/admin/categories", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/admin/categories", "garbage", body).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/admin/categories", s.user, body).Code)
	assert.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/admin/categories", s.admin, body).Code)

	forged, err := NewAuthenticator("other-secret").IssueToken("admin", entity.RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/admin/orders", forged, nil).Code)

	expired, err := NewAuthenticator("test-secret").IssueToken("admin", entity.RoleAdmin, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/admin/orders", expired, nil).Code)
}

func TestCategoryEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/admin/categories", s.admin, gin.H{"name": "Electronics"})
	require.Equal(t, http.StatusCreated, w.Code)
	rootID := decode(t, w)["id"].(string)

	w = s.do(t, http.MethodPost, "/api/admin/categories", s.admin, gin.H{"name": "Phones", "parent_id": rootID})
	require.Equal(t, http.StatusCreated, w.Code)
	phonesID := decode(t, w)["id"].(string)

	w = s.do(t, http.MethodPost, "/api/admin/categories", s.admin, gin.H{"name": "Phones"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/public/categories/"+phonesID+"/path", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var path []entity.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &path))
	require.Len(t, path, 2)
	assert.Equal(t, "Electronics", path[0].Name)
	assert.Equal(t, "Phones", path[1].Name)

	w = s.do(t, http.MethodPut, "/api/admin/categories/"+rootID, s.admin, gin.H{"name": "Electronics", "parent_id": phonesID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodDelete, "/api/admin/categories/"+rootID, s.admin, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/admin/categories/"+rootID+"/cascade", s.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/public/categories/"+rootID, "", nil).Code)
}

func TestGuestOrderFlow(t *testing.T) {
	s := newTestServer(t)
	productID := s.createProduct(t, "SKU-1", 5)

	w := s.do(t, http.MethodPost, "/api/public/orders", "", guestOrder(productID, 3))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode(t, w)
	assert.Equal(t, "PENDING", order["status"])
	assert.Equal(t, "65.97", order["total"])
	number := order["order_number"].(string)

	w = s.do(t, http.MethodGet, "/api/public/orders/track?orderNumber="+number+"&email=JANE@example.com", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Springfield", decode(t, w)["city"])

	wrongEmail := s.do(t, http.MethodGet, "/api/public/orders/track?orderNumber="+number+"&email=x@example.com", "", nil)
	wrongNumber := s.do(t, http.MethodGet, "/api/public/orders/track?orderNumber=ORD1&email=jane@example.com", "", nil)
	assert.Equal(t, http.StatusNotFound, wrongEmail.Code)
	assert.Equal(t, wrongNumber.Body.String(), wrongEmail.Body.String())

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/public/orders", "", guestOrder(productID, 3)).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/public/orders", "", guestOrder(productID, 0)).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/public/orders", "", guestOrder("missing", 1)).Code)

	bad := guestOrder(productID, 1)
	bad["payment_method"] = "barter"
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/public/orders", "", bad).Code)

	orderID := order["id"].(string)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/admin/orders/"+orderID, s.admin, nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodDelete, "/api/admin/orders/"+orderID, s.admin, nil).Code)

	w = s.do(t, http.MethodGet, "/api/public/products/"+productID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 5, decode(t, w)["quantity"])

	w = s.do(t, http.MethodGet, "/api/admin/orders/"+orderID+"/history", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["entries"], 2)
}

func TestUserOrders(t *testing.T) {
	s := newTestServer(t)
	productID := s.createProduct(t, "SKU-1", 5)

	w := s.do(t, http.MethodPost, "/api/user/orders", s.user, gin.H{
		"payment_method": "PAYPAL",
		"items":          []gin.H{{"product_id": productID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode(t, w)
	orderID := order["id"].(string)
	assert.Equal(t, "9 Elm St", order["shipping_address"].(map[string]any)["street"])

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/user/orders/"+orderID, s.user, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/user/orders/"+orderID, s.other, nil).Code)

	w = s.do(t, http.MethodGet, "/api/user/orders", s.user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = s.do(t, http.MethodPut, "/api/admin/orders/"+orderID+"/status", s.admin, gin.H{"status": "shipped"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodDelete, "/api/admin/orders/"+orderID, s.admin, nil).Code)

	w = s.do(t, http.MethodGet, "/api/admin/orders/status/shipped", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])
}

func TestProductEndpoints(t *testing.T) {
	s := newTestServer(t)
	productID := s.createProduct(t, "SKU-1", 5)

	w := s.do(t, http.MethodPut, "/api/admin/products/"+productID+"/images", s.admin, gin.H{"urls": []string{"a.jpg", "b.jpg"}})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/api/admin/products/"+productID+"/images/0", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a.jpg", decode(t, w)["removed_url"])

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodDelete, "/api/admin/products/"+productID+"/images/7", s.admin, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/admin/products/"+productID+"/images/main", s.admin, gin.H{"url": "m.jpg"}).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/admin/products/"+productID+"/images/main", s.admin, nil).Code)

	w = s.do(t, http.MethodPost, "/api/admin/products", s.admin, gin.H{"name": "Dup", "sku": "SKU-1", "price": "1.00"})
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/admin/products/"+productID, s.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/public/products/"+productID, "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/admin/products/"+productID, s.admin, nil).Code)

	w = s.do(t, http.MethodGet, "/api/public/products?q=product", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["total"])

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/public/products?min_price=abc", "", nil).Code)
}

func TestHugePageNumberIsClamped(t *testing.T) {
	s := newTestServer(t)
	s.createProduct(t, "SKU-1", 5)

	w := s.do(t, http.MethodGet, "/api/public/products?page=461168601842738791&size=20", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Empty(t, body["items"])
	assert.EqualValues(t, 1, body["total"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{entity.ErrOrderNotFound, http.StatusNotFound},
		{fmt.Errorf("product p1: %w", entity.ErrInsufficientStock), http.StatusConflict},
		{entity.ErrDuplicateSKU, http.StatusConflict},
		{entity.ErrEmptyOrder, http.StatusBadRequest},
		{entity.ErrCircularReference, http.StatusBadRequest},
		{entity.ErrInvalidTransition, http.StatusConflict},
		{entity.ErrForbidden, http.StatusForbidden},
		{entity.ErrHasChildren, http.StatusConflict},
		{entity.ErrHasProducts, http.StatusConflict},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(c, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}
