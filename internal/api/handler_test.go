package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shoestore/internal/models"
	"shoestore/internal/policy"
	"shoestore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) QueryProducts(ctx context.Context, f models.ProductFilter) ([]models.ProductView, error) {
	args := m.Called(ctx, f)
	out, _ := args.Get(0).([]models.ProductView)
	return out, args.Error(1)
}

func (m *mockCatalog) GetProduct(ctx context.Context, id int64) (*models.ProductView, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*models.ProductView)
	return out, args.Error(1)
}

func (m *mockCatalog) GetProductByArticle(ctx context.Context, article string) (*models.ProductView, error) {
	args := m.Called(ctx, article)
	out, _ := args.Get(0).(*models.ProductView)
	return out, args.Error(1)
}

func (m *mockCatalog) GetProductImage(ctx context.Context, id int64) ([]byte, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

func (m *mockCatalog) CreateProduct(ctx context.Context, caller policy.Principal, req *service.ProductRequest) (*models.ProductView, error) {
	args := m.Called(ctx, caller, req)
	out, _ := args.Get(0).(*models.ProductView)
	return out, args.Error(1)
}

func (m *mockCatalog) UpdateProduct(ctx context.Context, caller policy.Principal, id int64, req *service.ProductRequest) (*models.ProductView, error) {
	args := m.Called(ctx, caller, id, req)
	out, _ := args.Get(0).(*models.ProductView)
	return out, args.Error(1)
}

func (m *mockCatalog) DeleteProduct(ctx context.Context, caller policy.Principal, id int64) error {
	return m.Called(ctx, caller, id).Error(0)
}

func (m *mockCatalog) ExportCatalog(ctx context.Context, caller policy.Principal, f models.ProductFilter, w io.Writer) error {
	return m.Called(ctx, caller, f, w).Error(0)
}

func (m *mockCatalog) ListManufacturers(ctx context.Context) ([]models.Manufacturer, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.Manufacturer)
	return out, args.Error(1)
}

func (m *mockCatalog) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.Category)
	return out, args.Error(1)
}

func (m *mockCatalog) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.Supplier)
	return out, args.Error(1)
}

type mockOrders struct{ mock.Mock }

func (m *mockOrders) PlaceOrder(ctx context.Context, caller policy.Principal, req service.PlaceOrderRequest) (*models.Order, error) {
	args := m.Called(ctx, caller, req)
	out, _ := args.Get(0).(*models.Order)
	return out, args.Error(1)
}

func (m *mockOrders) GetOrder(ctx context.Context, caller policy.Principal, id int64) (*models.Order, error) {
	args := m.Called(ctx, caller, id)
	out, _ := args.Get(0).(*models.Order)
	return out, args.Error(1)
}

func (m *mockOrders) ListOrders(ctx context.Context, caller policy.Principal, statusName string) ([]models.Order, error) {
	args := m.Called(ctx, caller, statusName)
	out, _ := args.Get(0).([]models.Order)
	return out, args.Error(1)
}

func (m *mockOrders) ListOrdersByUser(ctx context.Context, caller policy.Principal, login string) ([]models.Order, error) {
	args := m.Called(ctx, caller, login)
	out, _ := args.Get(0).([]models.Order)
	return out, args.Error(1)
}

func (m *mockOrders) ListStatuses(ctx context.Context) ([]models.OrderStatus, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.OrderStatus)
	return out, args.Error(1)
}

func (m *mockOrders) UpdateStatus(ctx context.Context, caller policy.Principal, orderID int64, req service.StatusChangeRequest) (*models.Order, error) {
	args := m.Called(ctx, caller, orderID, req)
	out, _ := args.Get(0).(*models.Order)
	return out, args.Error(1)
}

func (m *mockOrders) UpdateDeliveryDate(ctx context.Context, caller policy.Principal, orderID int64, date time.Time) (*models.Order, error) {
	args := m.Called(ctx, caller, orderID, date)
	out, _ := args.Get(0).(*models.Order)
	return out, args.Error(1)
}

type mockAuth struct{ mock.Mock }

func (m *mockAuth) Login(ctx context.Context, req service.LoginRequest) (*service.LoginResponse, error) {
	args := m.Called(ctx, req)
	out, _ := args.Get(0).(*service.LoginResponse)
	return out, args.Error(1)
}

// tokenTable verifies tokens by exact lookup
type tokenTable map[string]policy.Principal

func (t tokenTable) Verify(raw string) (policy.Principal, error) {
	p, ok := t[raw]
	if !ok {
		return policy.Principal{}, errors.New("unknown token")
	}
	return p, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

var (
	anna    = policy.Principal{UserID: 3, Login: "anna", Role: policy.RoleClient}
	manager = policy.Principal{UserID: 2, Login: "manager", Role: policy.RoleManager}
	tokens  = tokenTable{"anna-token": anna, "manager-token": manager}
)

type testServer struct {
	router  *gin.Engine
	catalog *mockCatalog
	orders  *mockOrders
	auth    *mockAuth
}

func newTestServer(db Pinger) *testServer {
	gin.SetMode(gin.TestMode)
	s := &testServer{
		router:  gin.New(),
		catalog: &mockCatalog{},
		orders:  &mockOrders{},
		auth:    &mockAuth{},
	}
	NewHandler(s.catalog, s.orders, s.auth, tokens, db).SetupRoutes(s.router)
	return s
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthAndReadiness(t *testing.T) {
	healthy := newTestServer(pingFunc(func(context.Context) error { return nil }))
	assert.Equal(t, http.StatusOK, healthy.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, healthy.do(http.MethodGet, "/ready", "", nil).Code)

	down := newTestServer(pingFunc(func(context.Context) error { return errors.New("db down") }))
	assert.Equal(t, http.StatusServiceUnavailable, down.do(http.MethodGet, "/ready", "", nil).Code)
}

func TestListProductsParsesFilters(t *testing.T) {
	s := newTestServer(nil)
	maxPrice := decimal.RequireFromString("5000")
	manufacturer := int64(2)

	s.catalog.On("QueryProducts", mock.Anything, models.ProductFilter{
		Search:         "кожа",
		ManufacturerID: &manufacturer,
		MaxPrice:       &maxPrice,
		OnlyDiscounted: true,
		OnlyInStock:    true,
		SortKey:        models.SortPriceDesc,
	}).Return([]models.ProductView{{Product: models.Product{ID: 1}}}, nil).Once()

	w := s.do(http.MethodGet,
		"/api/products?search=%D0%BA%D0%BE%D0%B6%D0%B0&manufacturerId=2&maxPrice=5000&onlyWithDiscount=true&onlyInStock=true&sortBy=price_desc",
		"", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.catalog.AssertExpectations(t)
}

func TestListProductsRejectsBadNumbers(t *testing.T) {
	s := newTestServer(nil)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/products?maxPrice=cheap", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/products?manufacturerId=x", "", nil).Code)
	s.catalog.AssertNotCalled(t, "QueryProducts", mock.Anything, mock.Anything)
}

func TestErrorKindsMapToStatusCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrUnauthenticated, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrConflict, http.StatusConflict},
		{service.ErrInsufficientStock, http.StatusConflict},
		{service.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", service.ErrNotFound), http.StatusNotFound},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	s := newTestServer(nil)
	s.catalog.On("GetProduct", mock.Anything, int64(1)).Return(nil, errors.New("pq: password authentication failed"))

	w := s.do(http.MethodGet, "/api/products/1", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(nil)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/orders", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/orders", "forged", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodDelete, "/api/products/1", "", nil).Code)
	s.orders.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder(t *testing.T) {
	s := newTestServer(nil)
	s.orders.On("PlaceOrder", mock.Anything, anna, service.PlaceOrderRequest{ProductID: 10, Quantity: 2}).
		Return(&models.Order{ID: 77, PickupCode: 512}, nil).Once()
	s.orders.On("PlaceOrder", mock.Anything, anna, service.PlaceOrderRequest{ProductID: 11, Quantity: 50}).
		Return(nil, fmt.Errorf("product 11: %w", service.ErrInsufficientStock)).Once()

	w := s.do(http.MethodPost, "/api/orders", "anna-token", gin.H{"productId": 10, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, int64(77), order.ID)

	w = s.do(http.MethodPost, "/api/orders", "anna-token", gin.H{"productId": 11, "quantity": 50})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient_stock")

	w = s.do(http.MethodPost, "/api/orders", "anna-token", gin.H{"productId": 10, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListOrdersPassesStatusFilter(t *testing.T) {
	s := newTestServer(nil)
	s.orders.On("ListOrders", mock.Anything, manager, "Completed").Return([]models.Order{}, nil).Once()

	w := s.do(http.MethodGet, "/api/orders?status=Completed", "manager-token", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	s.orders.AssertExpectations(t)
}

func TestOrdersByUserForbidden(t *testing.T) {
	s := newTestServer(nil)
	s.orders.On("ListOrdersByUser", mock.Anything, anna, "oleg").Return(nil, service.ErrForbidden)

	w := s.do(http.MethodGet, "/api/orders/by-user/oleg", "anna-token", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateDeliveryDate(t *testing.T) {
	s := newTestServer(nil)
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.Local)
	s.orders.On("UpdateDeliveryDate", mock.Anything, manager, int64(5), day).Return(&models.Order{ID: 5}, nil).Once()

	w := s.do(http.MethodPut, "/api/orders/5/delivery-date", "manager-token", gin.H{"date": "2026-04-01"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPut, "/api/orders/5/delivery-date", "manager-token", gin.H{"date": "next week"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	s.orders.AssertNumberOfCalls(t, "UpdateDeliveryDate", 1)
}

func TestUpdateStatusByName(t *testing.T) {
	s := newTestServer(nil)
	s.orders.On("UpdateStatus", mock.Anything, manager, int64(5), service.StatusChangeRequest{StatusName: "Completed"}).
		Return(&models.Order{ID: 5, StatusName: "Completed"}, nil).Once()

	w := s.do(http.MethodPut, "/api/orders/5/status", "manager-token", gin.H{"statusName": "Completed"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestExportProducts(t *testing.T) {
	s := newTestServer(nil)
	s.catalog.On("ExportCatalog", mock.Anything, manager, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			_, _ = args.Get(3).(io.Writer).Write([]byte("PK"))
		}).Return(nil).Once()
	s.catalog.On("ExportCatalog", mock.Anything, anna, mock.Anything, mock.Anything).Return(service.ErrForbidden).Once()

	w := s.do(http.MethodGet, "/api/products/export?onlyInStock=true", "manager-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "PK", w.Body.String())

	w = s.do(http.MethodGet, "/api/products/export", "anna-token", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogin(t *testing.T) {
	s := newTestServer(nil)
	s.auth.On("Login", mock.Anything, service.LoginRequest{Login: "anna", Password: "pw"}).
		Return(&service.LoginResponse{Token: "t", Login: "anna", Role: "Client"}, nil)
	s.auth.On("Login", mock.Anything, service.LoginRequest{Login: "anna", Password: "bad"}).
		Return(nil, service.ErrUnauthenticated)

	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"login": "anna", "password": "pw"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"login": "anna", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"login": "anna"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-04-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.Local), d)

	d, err = ParseDate("2026-04-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, d.UTC().Hour())

	_, err = ParseDate("01.04.2026")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
