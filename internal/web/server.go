// Package web serves the storefront as server-rendered HTML pages backed by
// a Redis session cookie.
package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"shoestore/config"
	"shoestore/internal/models"
	"shoestore/internal/policy"
	"shoestore/internal/service"
	"shoestore/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Catalog is the catalog surface the storefront reads
type Catalog interface {
	QueryProducts(ctx context.Context, f models.ProductFilter) ([]models.ProductView, error)
	GetProductImage(ctx context.Context, id int64) ([]byte, error)
	ListManufacturers(ctx context.Context) ([]models.Manufacturer, error)
}

// Orders is the order surface the storefront drives
type Orders interface {
	PlaceOrder(ctx context.Context, caller policy.Principal, req service.PlaceOrderRequest) (*models.Order, error)
	ListOrders(ctx context.Context, caller policy.Principal, statusName string) ([]models.Order, error)
	ListStatuses(ctx context.Context) ([]models.OrderStatus, error)
	UpdateStatus(ctx context.Context, caller policy.Principal, orderID int64, req service.StatusChangeRequest) (*models.Order, error)
	UpdateDeliveryDate(ctx context.Context, caller policy.Principal, orderID int64, date time.Time) (*models.Order, error)
}

// Authenticator checks credentials
type Authenticator interface {
	Authenticate(ctx context.Context, login, password string) (policy.Principal, error)
}

// SessionStore keeps signed-in principals server side
type SessionStore interface {
	CreateSession(ctx context.Context, p policy.Principal, ttl time.Duration) (string, error)
	GetSession(ctx context.Context, id string, ttl time.Duration) (policy.Principal, bool, error)
	DeleteSession(ctx context.Context, id string) error
}

// Server renders the storefront
type Server struct {
	catalog  Catalog
	orders   Orders
	auth     Authenticator
	sessions SessionStore
	cfg      config.WebConfig
	logger   *zap.Logger
}

// NewServer creates the storefront
func NewServer(catalog Catalog, orders Orders, auth Authenticator, sessions SessionStore, cfg config.WebConfig) *Server {
	if cfg.CookieName == "" {
		cfg.CookieName = "shoestore_session"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 8 * time.Hour
	}
	return &Server{
		catalog:  catalog,
		orders:   orders,
		auth:     auth,
		sessions: sessions,
		cfg:      cfg,
		logger:   util.Named("web"),
	}
}

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date":  formatDate,
	"isoDate": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format(time.DateOnly)
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"deref64": func(v *int64) int64 {
		if v == nil {
			return 0
		}
		return *v
	},
	"hasDiscount": func(d decimal.Decimal) bool { return d.IsPositive() },
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("02.01.2006")
}

// Templates parses the embedded page templates
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"))
}

// SetupRoutes sets up the storefront routes
func (s *Server) SetupRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(Templates())
	router.Use(gin.Recovery())
	router.Use(s.loadSession())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().Unix()})
	})

	router.GET("/", s.index)
	router.GET("/products/:id/image", s.productImage)

	account := router.Group("/account")
	{
		account.GET("/login", s.loginPage)
		account.POST("/login", s.login)
		account.POST("/logout", s.logout)
		account.GET("/access-denied", s.accessDenied)
	}

	orders := router.Group("/orders", s.requireLogin())
	{
		orders.GET("", s.listOrders)
		orders.POST("/place", s.placeOrder)
		orders.POST("/:id/status", s.updateStatus)
		orders.POST("/:id/delivery-date", s.updateDeliveryDate)
	}
}
