package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"shoestore/internal/models"
	"shoestore/internal/policy"
	"shoestore/internal/service"
	"shoestore/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CatalogService is the catalog surface exposed over HTTP
type CatalogService interface {
	QueryProducts(ctx context.Context, f models.ProductFilter) ([]models.ProductView, error)
	GetProduct(ctx context.Context, id int64) (*models.ProductView, error)
	GetProductByArticle(ctx context.Context, article string) (*models.ProductView, error)
	GetProductImage(ctx context.Context, id int64) ([]byte, error)
	CreateProduct(ctx context.Context, caller policy.Principal, req *service.ProductRequest) (*models.ProductView, error)
	UpdateProduct(ctx context.Context, caller policy.Principal, id int64, req *service.ProductRequest) (*models.ProductView, error)
	DeleteProduct(ctx context.Context, caller policy.Principal, id int64) error
	ExportCatalog(ctx context.Context, caller policy.Principal, f models.ProductFilter, w io.Writer) error
	ListManufacturers(ctx context.Context) ([]models.Manufacturer, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
}

// OrderService is the order surface exposed over HTTP
type OrderService interface {
	PlaceOrder(ctx context.Context, caller policy.Principal, req service.PlaceOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, caller policy.Principal, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, caller policy.Principal, statusName string) ([]models.Order, error)
	ListOrdersByUser(ctx context.Context, caller policy.Principal, login string) ([]models.Order, error)
	ListStatuses(ctx context.Context) ([]models.OrderStatus, error)
	UpdateStatus(ctx context.Context, caller policy.Principal, orderID int64, req service.StatusChangeRequest) (*models.Order, error)
	UpdateDeliveryDate(ctx context.Context, caller policy.Principal, orderID int64, date time.Time) (*models.Order, error)
}

// AuthService exchanges credentials for a bearer token
type AuthService interface {
	Login(ctx context.Context, req service.LoginRequest) (*service.LoginResponse, error)
}

// TokenVerifier turns a bearer token back into a principal
type TokenVerifier interface {
	Verify(raw string) (policy.Principal, error)
}

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	catalog CatalogService
	orders  OrderService
	auth    AuthService
	tokens  TokenVerifier
	db      Pinger
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(catalog CatalogService, orders OrderService, auth AuthService, tokens TokenVerifier, db Pinger) *Handler {
	return &Handler{
		catalog: catalog,
		orders:  orders,
		auth:    auth,
		tokens:  tokens,
		db:      db,
		logger:  util.Named("api"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/auth/login", h.login)

		api.GET("/products", h.listProducts)
		api.GET("/products/:id", h.getProduct)
		api.GET("/products/:id/image", h.getProductImage)
		api.GET("/products/by-article/:article", h.getProductByArticle)
		api.GET("/manufacturers", h.listManufacturers)
		api.GET("/categories", h.listCategories)
		api.GET("/suppliers", h.listSuppliers)
	}

	authed := api.Group("", h.requireAuth())
	{
		authed.GET("/products/export", h.exportProducts)
		authed.POST("/products", h.createProduct)
		authed.PUT("/products/:id", h.updateProduct)
		authed.DELETE("/products/:id", h.deleteProduct)

		authed.POST("/orders", h.createOrder)
		authed.GET("/orders", h.listOrders)
		authed.GET("/orders/statuses", h.listStatuses)
		authed.GET("/orders/by-user/:login", h.listOrdersByUser)
		authed.GET("/orders/:id", h.getOrder)
		authed.PUT("/orders/:id/status", h.updateOrderStatus)
		authed.PUT("/orders/:id/delivery-date", h.updateDeliveryDate)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only while the database answers
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"time":   time.Now().Unix(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// login handles credential exchange
func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
