package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"strings"
	"time"

	"shoestore/internal/export"
	"shoestore/internal/models"
	"shoestore/internal/policy"
	"shoestore/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CatalogStore is the persistence the catalog needs
type CatalogStore interface {
	QueryProducts(ctx context.Context, f models.ProductFilter) ([]models.ProductView, error)
	GetProductView(ctx context.Context, id int64) (*models.ProductView, error)
	GetProductViewByArticle(ctx context.Context, article string) (*models.ProductView, error)
	GetProductImage(ctx context.Context, id int64) ([]byte, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	ListManufacturers(ctx context.Context) ([]models.Manufacturer, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
}

// CatalogCache caches query results; implementations may be absent
type CatalogCache interface {
	CachedCatalog(ctx context.Context, key string, dest interface{}) (version string, hit bool, err error)
	CacheCatalog(ctx context.Context, version, key string, value interface{}) error
	InvalidateCatalog(ctx context.Context) error
}

// CatalogService handles product discovery and catalog management
type CatalogService struct {
	store  CatalogStore
	cache  CatalogCache
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(store CatalogStore, cache CatalogCache) *CatalogService {
	return &CatalogService{
		store:  store,
		cache:  cache,
		logger: util.Named("catalog"),
	}
}

// ProductRequest is the payload for creating or replacing a product
type ProductRequest struct {
	Article        string          `json:"article" binding:"required,max=50"`
	Name           string          `json:"name" binding:"required,max=200"`
	Unit           *string         `json:"unit" binding:"omitempty,max=20"`
	Description    *string         `json:"description"`
	Price          decimal.Decimal `json:"price"`
	Discount       decimal.Decimal `json:"discount"`
	Stock          int             `json:"stock"`
	CategoryID     *int64          `json:"categoryId"`
	ManufacturerID *int64          `json:"manufacturerId"`
	SupplierID     *int64          `json:"supplierId"`
	Image          []byte          `json:"image"`
}

// Validate checks the product invariants
func (r *ProductRequest) Validate() error {
	r.Article = strings.TrimSpace(r.Article)
	r.Name = strings.TrimSpace(r.Name)

	switch {
	case r.Article == "":
		return invalidf("article is required")
	case len(r.Article) > 50:
		return invalidf("article must be at most 50 characters")
	case r.Name == "":
		return invalidf("name is required")
	case len(r.Name) > 200:
		return invalidf("name must be at most 200 characters")
	case r.Unit != nil && len(*r.Unit) > 20:
		return invalidf("unit must be at most 20 characters")
	case r.Price.IsNegative():
		return invalidf("price must not be negative")
	case r.Discount.IsNegative() || r.Discount.GreaterThan(hundred):
		return invalidf("discount must be between 0 and 100")
	case r.Stock < 0:
		return invalidf("stock must not be negative")
	}
	return nil
}

func (r *ProductRequest) toProduct(id int64) *models.Product {
	return &models.Product{
		ID:             id,
		Article:        r.Article,
		Name:           r.Name,
		Unit:           r.Unit,
		Description:    r.Description,
		Price:          r.Price.Round(2),
		Discount:       r.Discount.Round(2),
		Stock:          r.Stock,
		CategoryID:     r.CategoryID,
		ManufacturerID: r.ManufacturerID,
		SupplierID:     r.SupplierID,
		Image:          r.Image,
	}
}

func catalogCacheKey(f models.ProductFilter) string {
	f.Search = strings.ToLower(strings.TrimSpace(f.Search))
	f.SortKey = models.ParseSortKey(string(f.SortKey))
	data, _ := json.Marshal(f)
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// QueryProducts returns the filtered, sorted catalog
func (s *CatalogService) QueryProducts(ctx context.Context, f models.ProductFilter) ([]models.ProductView, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.QueryProducts",
		attribute.String("sort", string(f.SortKey)))
	defer span.End()

	start := time.Now()
	defer func() {
		util.CatalogQueryLatency.Observe(time.Since(start).Seconds())
	}()

	key := catalogCacheKey(f)
	cacheable := false
	var version string
	if s.cache != nil {
		var cached []models.ProductView
		v, hit, err := s.cache.CachedCatalog(ctx, key, &cached)
		switch {
		case err != nil:
			s.logger.Warn("Catalog cache read failed", zap.Error(err))
		case hit:
			util.CatalogQueriesTotal.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			version, cacheable = v, true
		}
	}

	views, err := s.store.QueryProducts(ctx, f)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	util.CatalogQueriesTotal.WithLabelValues("miss").Inc()

	if cacheable {
		if err := s.cache.CacheCatalog(ctx, version, key, views); err != nil {
			s.logger.Warn("Catalog cache write failed", zap.Error(err))
		}
	}

	return views, nil
}

// GetProduct returns one catalog row by ID
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.ProductView, error) {
	return s.store.GetProductView(ctx, id)
}

// GetProductByArticle returns one catalog row by article
func (s *CatalogService) GetProductByArticle(ctx context.Context, article string) (*models.ProductView, error) {
	return s.store.GetProductViewByArticle(ctx, strings.TrimSpace(article))
}

// GetProductImage returns the product image; NotFound when there is none
func (s *CatalogService) GetProductImage(ctx context.Context, id int64) ([]byte, error) {
	img, err := s.store.GetProductImage(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(img) == 0 {
		return nil, ErrNotFound
	}
	return img, nil
}

// CreateProduct adds a product to the catalog
func (s *CatalogService) CreateProduct(ctx context.Context, caller policy.Principal, req *ProductRequest) (*models.ProductView, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if !caller.CanMutateCatalog() {
		return nil, forbiddenf("%s may not change the catalog", caller.Role)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := req.toProduct(0)
	if err := s.store.CreateProduct(ctx, p); err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	util.CatalogMutationsTotal.WithLabelValues("create").Inc()
	s.logger.Info("Product created",
		zap.Int64("product_id", p.ID),
		zap.String("article", p.Article),
		zap.String("by", caller.Login))
	s.invalidate(ctx)

	return s.store.GetProductView(ctx, p.ID)
}

// UpdateProduct replaces a product's fields
func (s *CatalogService) UpdateProduct(ctx context.Context, caller policy.Principal, id int64, req *ProductRequest) (*models.ProductView, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct", attribute.Int64("product_id", id))
	defer span.End()

	if !caller.CanMutateCatalog() {
		return nil, forbiddenf("%s may not change the catalog", caller.Role)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateProduct(ctx, req.toProduct(id)); err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	util.CatalogMutationsTotal.WithLabelValues("update").Inc()
	s.logger.Info("Product updated", zap.Int64("product_id", id), zap.String("by", caller.Login))
	s.invalidate(ctx)

	return s.store.GetProductView(ctx, id)
}

// DeleteProduct removes a product from the catalog
func (s *CatalogService) DeleteProduct(ctx context.Context, caller policy.Principal, id int64) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct", attribute.Int64("product_id", id))
	defer span.End()

	if !caller.CanMutateCatalog() {
		return forbiddenf("%s may not change the catalog", caller.Role)
	}

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		util.RecordError(span, err)
		return err
	}

	util.CatalogMutationsTotal.WithLabelValues("delete").Inc()
	s.logger.Info("Product deleted", zap.Int64("product_id", id), zap.String("by", caller.Login))
	s.invalidate(ctx)
	return nil
}

// ExportCatalog writes the filtered catalog to w as an XLSX workbook
func (s *CatalogService) ExportCatalog(ctx context.Context, caller policy.Principal, f models.ProductFilter, w io.Writer) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.ExportCatalog")
	defer span.End()

	if !caller.Role.IsStaff() {
		return forbiddenf("%s may not export the catalog", caller.Role)
	}

	views, err := s.store.QueryProducts(ctx, f)
	if err != nil {
		util.RecordError(span, err)
		return err
	}
	return export.WriteCatalog(w, views)
}

// ListManufacturers returns manufacturers ordered by name
func (s *CatalogService) ListManufacturers(ctx context.Context) ([]models.Manufacturer, error) {
	return s.store.ListManufacturers(ctx)
}

// ListCategories returns categories ordered by name
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.ListCategories(ctx)
}

// ListSuppliers returns suppliers ordered by name
func (s *CatalogService) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	return s.store.ListSuppliers(ctx)
}

// InvalidateCache drops every cached catalog result
func (s *CatalogService) InvalidateCache(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCatalog(ctx); err != nil {
		s.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
	}
}
