package service

import (
	"context"
	"strconv"
	"time"

	"shoestore/internal/models"
	"shoestore/internal/policy"
	"shoestore/internal/store"

	"github.com/stretchr/testify/mock"
)

type mockOrderStore struct{ mock.Mock }

func (m *mockOrderStore) PlaceOrder(ctx context.Context, p store.PlaceOrderParams) (*models.Order, error) {
	args := m.Called(ctx, p)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *mockOrderStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *mockOrderStore) ListOrders(ctx context.Context, q store.OrderQuery) ([]models.Order, error) {
	args := m.Called(ctx, q)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Error(1)
}

func (m *mockOrderStore) GetOrCreateStatus(ctx context.Context, name string) (*models.OrderStatus, error) {
	args := m.Called(ctx, name)
	status, _ := args.Get(0).(*models.OrderStatus)
	return status, args.Error(1)
}

func (m *mockOrderStore) GetStatusByID(ctx context.Context, id int64) (*models.OrderStatus, error) {
	args := m.Called(ctx, id)
	status, _ := args.Get(0).(*models.OrderStatus)
	return status, args.Error(1)
}

func (m *mockOrderStore) ListStatuses(ctx context.Context) ([]models.OrderStatus, error) {
	args := m.Called(ctx)
	statuses, _ := args.Get(0).([]models.OrderStatus)
	return statuses, args.Error(1)
}

func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, orderID, statusID int64) error {
	return m.Called(ctx, orderID, statusID).Error(0)
}

func (m *mockOrderStore) UpdateDeliveryDate(ctx context.Context, orderID int64, date time.Time) error {
	return m.Called(ctx, orderID, date).Error(0)
}

func (m *mockOrderStore) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	args := m.Called(ctx, login)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockOrderStore) CreateUser(ctx context.Context, user *models.User, roleName string) error {
	return m.Called(ctx, user, roleName).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishOrderPlaced(ctx context.Context, e *models.OrderPlacedEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockPublisher) PublishOrderStatusChanged(ctx context.Context, e *models.OrderStatusChangedEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockPublisher) PublishDeliveryDateChanged(ctx context.Context, e *models.OrderDeliveryDateChangedEvent) error {
	return m.Called(ctx, e).Error(0)
}

type mockCatalogStore struct{ mock.Mock }

func (m *mockCatalogStore) QueryProducts(ctx context.Context, f models.ProductFilter) ([]models.ProductView, error) {
	args := m.Called(ctx, f)
	views, _ := args.Get(0).([]models.ProductView)
	return views, args.Error(1)
}

func (m *mockCatalogStore) GetProductView(ctx context.Context, id int64) (*models.ProductView, error) {
	args := m.Called(ctx, id)
	view, _ := args.Get(0).(*models.ProductView)
	return view, args.Error(1)
}

func (m *mockCatalogStore) GetProductViewByArticle(ctx context.Context, article string) (*models.ProductView, error) {
	args := m.Called(ctx, article)
	view, _ := args.Get(0).(*models.ProductView)
	return view, args.Error(1)
}

func (m *mockCatalogStore) GetProductImage(ctx context.Context, id int64) ([]byte, error) {
	args := m.Called(ctx, id)
	img, _ := args.Get(0).([]byte)
	return img, args.Error(1)
}

func (m *mockCatalogStore) CreateProduct(ctx context.Context, p *models.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockCatalogStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockCatalogStore) DeleteProduct(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCatalogStore) ListManufacturers(ctx context.Context) ([]models.Manufacturer, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.Manufacturer)
	return out, args.Error(1)
}

func (m *mockCatalogStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.Category)
	return out, args.Error(1)
}

func (m *mockCatalogStore) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.Supplier)
	return out, args.Error(1)
}

// memoryCache is an in-process CatalogCache keyed by catalog version
type memoryCache struct {
	version     int
	entries     map[string]interface{}
	invalidated int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]interface{}{}}
}

func (c *memoryCache) CachedCatalog(_ context.Context, key string, dest interface{}) (string, bool, error) {
	version := strconv.Itoa(c.version)
	v, ok := c.entries[version+":"+key]
	if !ok {
		return version, false, nil
	}
	*(dest.(*[]models.ProductView)) = v.([]models.ProductView)
	return version, true, nil
}

func (c *memoryCache) CacheCatalog(_ context.Context, version, key string, value interface{}) error {
	c.entries[version+":"+key] = value
	return nil
}

func (c *memoryCache) InvalidateCatalog(context.Context) error {
	c.version++
	c.invalidated++
	return nil
}

type fixedRand int

func (r fixedRand) IntN(n int) int { return int(r) % n }

type fakeTokens struct{}

func (fakeTokens) Issue(p policy.Principal) (string, time.Time, error) {
	return "token-for-" + p.Login, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

var (
	clientAnna = policy.Principal{UserID: 3, Login: "anna", FullName: "Anna K", Role: policy.RoleClient}
	clientOleg = policy.Principal{UserID: 4, Login: "oleg", FullName: "Oleg P", Role: policy.RoleClient}
	manager    = policy.Principal{UserID: 2, Login: "manager", FullName: "Maria M", Role: policy.RoleManager}
	admin      = policy.Principal{UserID: 1, Login: "admin", FullName: "Ivan A", Role: policy.RoleAdministrator}
)
