package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"shoestore/config"
	"shoestore/internal/models"
	"shoestore/internal/policy"
	"shoestore/internal/store"
	"shoestore/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	pickupCodeMin = 100
	pickupCodeMax = 999
)

// OrderStore is the persistence the order engine needs
type OrderStore interface {
	PlaceOrder(ctx context.Context, p store.PlaceOrderParams) (*models.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, q store.OrderQuery) ([]models.Order, error)
	GetOrCreateStatus(ctx context.Context, name string) (*models.OrderStatus, error)
	GetStatusByID(ctx context.Context, id int64) (*models.OrderStatus, error)
	ListStatuses(ctx context.Context) ([]models.OrderStatus, error)
	UpdateOrderStatus(ctx context.Context, orderID, statusID int64) error
	UpdateDeliveryDate(ctx context.Context, orderID int64, date time.Time) error
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}

// EventPublisher emits order events after they commit
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishDeliveryDateChanged(ctx context.Context, event *models.OrderDeliveryDateChangedEvent) error
}

// RandomSource yields integers in [0, n)
type RandomSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// OrderService handles order placement and lifecycle
type OrderService struct {
	store         OrderStore
	publisher     EventPublisher
	catalog       CatalogCache
	logger        *zap.Logger
	now           func() time.Time
	random        RandomSource
	deliveryDays  int
	initialStatus string
}

// OrderOption customizes an OrderService
type OrderOption func(*OrderService)

// WithClock replaces time.Now
func WithClock(now func() time.Time) OrderOption {
	return func(s *OrderService) { s.now = now }
}

// WithRandom replaces the pickup code random source
func WithRandom(r RandomSource) OrderOption {
	return func(s *OrderService) { s.random = r }
}

// NewOrderService creates a new order service. publisher and catalog may be nil.
func NewOrderService(
	store OrderStore,
	publisher EventPublisher,
	catalog CatalogCache,
	cfg config.BusinessConfig,
	opts ...OrderOption,
) *OrderService {
	s := &OrderService{
		store:         store,
		publisher:     publisher,
		catalog:       catalog,
		logger:        util.Named("orders"),
		now:           time.Now,
		random:        globalRand{},
		deliveryDays:  cfg.DeliveryDays,
		initialStatus: cfg.InitialStatus,
	}
	if s.deliveryDays <= 0 {
		s.deliveryDays = 7
	}
	if s.initialStatus == "" {
		s.initialStatus = "New"
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrderRequest represents a checkout of one product
type PlaceOrderRequest struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// StatusChangeRequest names the target status by ID or by name
type StatusChangeRequest struct {
	StatusID   *int64 `json:"statusId"`
	StatusName string `json:"statusName"`
}

// PlaceOrder creates an order for the caller and decrements stock atomically
func (s *OrderService) PlaceOrder(ctx context.Context, caller policy.Principal, req PlaceOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder",
		attribute.Int64("product_id", req.ProductID),
		attribute.Int("quantity", req.Quantity))
	defer span.End()

	if !caller.CanPlaceOrder() {
		util.OrdersFailedTotal.WithLabelValues("forbidden").Inc()
		return nil, forbiddenf("%s accounts cannot place orders", caller.Role)
	}
	if req.Quantity <= 0 {
		util.OrdersFailedTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, invalidf("quantity must be positive")
	}

	now := s.now()
	params := store.PlaceOrderParams{
		UserID:       caller.UserID,
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		StatusName:   s.initialStatus,
		OrderDate:    now,
		DeliveryDate: now.AddDate(0, 0, s.deliveryDays),
		PickupCode:   s.pickupCode(),
	}

	start := time.Now()
	order, err := s.store.PlaceOrder(ctx, params)
	util.OrderPlacementLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.RecordError(span, err)
		util.OrdersFailedTotal.WithLabelValues(failureReason(err)).Inc()
		if !IsDomainError(err) {
			s.logger.Error("Order placement failed",
				zap.Error(err),
				zap.Int64("user_id", caller.UserID),
				zap.Int64("product_id", req.ProductID))
		}
		return nil, err
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", caller.UserID),
		zap.Int64("product_id", req.ProductID),
		zap.Int("quantity", req.Quantity),
		zap.Int("pickup_code", order.PickupCode))

	s.invalidateCatalog(ctx)
	s.publishPlaced(ctx, order, params)

	full, err := s.store.GetOrderByID(ctx, order.ID)
	if err != nil {
		s.logger.Warn("Reloading placed order failed", zap.Error(err), zap.Int64("order_id", order.ID))
		order.UserLogin = caller.Login
		order.Total = CalculateOrderTotal(order)
		return order, nil
	}
	full.Total = CalculateOrderTotal(full)
	return full, nil
}

func (s *OrderService) pickupCode() int {
	return pickupCodeMin + s.random.IntN(pickupCodeMax-pickupCodeMin+1)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "product_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "db_error"
	}
}

// GetOrder returns one order if the caller may see it
func (s *OrderService) GetOrder(ctx context.Context, caller policy.Principal, id int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder", attribute.Int64("order_id", id))
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Role.IsStaff() && order.UserID != caller.UserID {
		return nil, forbiddenf("order %d belongs to another user", id)
	}

	order.Total = CalculateOrderTotal(order)
	return order, nil
}

// ListOrders returns every order for staff and the caller's own otherwise,
// optionally narrowed to one exact status name
func (s *OrderService) ListOrders(ctx context.Context, caller policy.Principal, statusName string) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	q := store.OrderQuery{StatusName: statusName}
	if !caller.Role.IsStaff() {
		userID := caller.UserID
		q.UserID = &userID
	}

	orders, err := s.store.ListOrders(ctx, q)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	return withTotals(orders), nil
}

// ListOrdersByUser returns the orders of the user with the given login
func (s *OrderService) ListOrdersByUser(ctx context.Context, caller policy.Principal, login string) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrdersByUser")
	defer span.End()

	if !caller.CanViewOrdersOf(login) {
		return nil, forbiddenf("%s may not view orders of %s", caller.Login, login)
	}

	user, err := s.store.GetUserByLogin(ctx, login)
	if err != nil {
		return nil, err
	}

	orders, err := s.store.ListOrders(ctx, store.OrderQuery{UserID: &user.ID})
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	return withTotals(orders), nil
}

// ListStatuses returns the known order statuses
func (s *OrderService) ListStatuses(ctx context.Context) ([]models.OrderStatus, error) {
	return s.store.ListStatuses(ctx)
}

// UpdateStatus moves an order to another status, creating a named status on first use
func (s *OrderService) UpdateStatus(ctx context.Context, caller policy.Principal, orderID int64, req StatusChangeRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus", attribute.Int64("order_id", orderID))
	defer span.End()

	if !caller.CanMutateOrderLifecycle() {
		return nil, forbiddenf("%s may not change order status", caller.Role)
	}

	name := strings.TrimSpace(req.StatusName)
	if req.StatusID == nil && name == "" {
		return nil, invalidf("statusId or statusName is required")
	}
	if len(name) > 50 {
		return nil, invalidf("status name must be at most 50 characters")
	}

	if _, err := s.store.GetOrderByID(ctx, orderID); err != nil {
		return nil, err
	}

	var (
		status *models.OrderStatus
		err    error
	)
	if req.StatusID != nil {
		status, err = s.store.GetStatusByID(ctx, *req.StatusID)
	} else {
		status, err = s.store.GetOrCreateStatus(ctx, name)
	}
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, status.ID); err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	util.OrderStatusChangesTotal.WithLabelValues(status.Name).Inc()
	s.logger.Info("Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("status", status.Name),
		zap.String("by", caller.Login))

	if s.publisher != nil {
		event := &models.OrderStatusChangedEvent{
			BaseEvent:  models.NewBaseEvent(models.EventTypeOrderStatusChanged, s.now()),
			OrderID:    orderID,
			StatusID:   status.ID,
			StatusName: status.Name,
			ChangedBy:  caller.Login,
		}
		if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		}
	}

	return s.GetOrder(ctx, caller, orderID)
}

// UpdateDeliveryDate reschedules delivery. Dates before today are rejected.
func (s *OrderService) UpdateDeliveryDate(ctx context.Context, caller policy.Principal, orderID int64, date time.Time) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateDeliveryDate", attribute.Int64("order_id", orderID))
	defer span.End()

	if !caller.CanMutateOrderLifecycle() {
		return nil, forbiddenf("%s may not change delivery dates", caller.Role)
	}
	if date.IsZero() {
		return nil, invalidf("delivery date is required")
	}

	now := s.now()
	today := startOfDay(now)
	if startOfDay(date.In(now.Location())).Before(today) {
		return nil, invalidf("delivery date %s is in the past", date.Format("2006-01-02"))
	}

	if err := s.store.UpdateDeliveryDate(ctx, orderID, date); err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	util.DeliveryDateChangesTotal.Inc()
	s.logger.Info("Order delivery date changed",
		zap.Int64("order_id", orderID),
		zap.Time("delivery_date", date),
		zap.String("by", caller.Login))

	if s.publisher != nil {
		event := &models.OrderDeliveryDateChangedEvent{
			BaseEvent:    models.NewBaseEvent(models.EventTypeOrderDeliveryDateChanged, now),
			OrderID:      orderID,
			DeliveryDate: date,
			ChangedBy:    caller.Login,
		}
		if err := s.publisher.PublishDeliveryDateChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderDeliveryDateChanged event", zap.Error(err))
		}
	}

	return s.GetOrder(ctx, caller, orderID)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (s *OrderService) invalidateCatalog(ctx context.Context) {
	if s.catalog == nil {
		return
	}
	if err := s.catalog.InvalidateCatalog(ctx); err != nil {
		s.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
	}
}

func (s *OrderService) publishPlaced(ctx context.Context, order *models.Order, p store.PlaceOrderParams) {
	if s.publisher == nil {
		return
	}

	event := &models.OrderPlacedEvent{
		BaseEvent:    models.NewBaseEvent(models.EventTypeOrderPlaced, p.OrderDate),
		OrderID:      order.ID,
		UserID:       p.UserID,
		ProductID:    p.ProductID,
		Quantity:     p.Quantity,
		PickupCode:   order.PickupCode,
		StatusName:   order.StatusName,
		DeliveryDate: p.DeliveryDate,
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err), zap.Int64("order_id", order.ID))
	}
}
