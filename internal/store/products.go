package store

import (
	"context"
	"fmt"
	"strings"

	"shoestore/internal/models"

	"github.com/jmoiron/sqlx"
)

const productViewSelect = `
	SELECT p.id, p.article, p.name, p.unit, p.description, p.price, p.discount, p.stock,
	       p.category_id, p.manufacturer_id, p.supplier_id,
	       COALESCE(c.name, '') AS category_name,
	       COALESCE(m.name, '') AS manufacturer_name,
	       COALESCE(s.name, '') AS supplier_name
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN manufacturers m ON m.id = p.manufacturer_id
	LEFT JOIN suppliers s ON s.id = p.supplier_id`

var productOrderBy = map[models.SortKey]string{
	models.SortNameAsc:     "p.name ASC, p.id ASC",
	models.SortNameDesc:    "p.name DESC, p.id ASC",
	models.SortSupplierAsc: "COALESCE(s.name, '') ASC, p.id ASC",
	models.SortPriceAsc:    "p.price ASC, p.id ASC",
	models.SortPriceDesc:   "p.price DESC, p.id ASC",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildProductQuery renders the catalog query with bindvar placeholders
func buildProductQuery(f models.ProductFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)

	if search := strings.TrimSpace(f.Search); search != "" {
		where = append(where, "p.description ILIKE ?")
		args = append(args, "%"+likeEscaper.Replace(search)+"%")
	}
	if f.ManufacturerID != nil {
		where = append(where, "p.manufacturer_id = ?")
		args = append(args, *f.ManufacturerID)
	}
	if f.MaxPrice != nil {
		where = append(where, "p.price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.OnlyDiscounted {
		where = append(where, "p.discount > 0")
	}
	if f.OnlyInStock {
		where = append(where, "p.stock > 0")
	}

	var b strings.Builder
	b.WriteString(productViewSelect)
	if len(where) > 0 {
		b.WriteString("\n\tWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\n\tORDER BY ")
	b.WriteString(productOrderBy[models.ParseSortKey(string(f.SortKey))])

	return b.String(), args
}

// QueryProducts returns catalog rows matching the filter in the requested order
func (s *Store) QueryProducts(ctx context.Context, f models.ProductFilter) ([]models.ProductView, error) {
	query, args := buildProductQuery(f)

	views := []models.ProductView{}
	if err := s.db.SelectContext(ctx, &views, s.db.Rebind(query), args...); err != nil {
		return nil, translate(err, "query products")
	}
	for i := range views {
		views[i].Derive()
	}
	return views, nil
}

// GetProductView retrieves one catalog row by ID
func (s *Store) GetProductView(ctx context.Context, id int64) (*models.ProductView, error) {
	var view models.ProductView
	err := s.db.GetContext(ctx, &view, productViewSelect+"\n\tWHERE p.id = $1", id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("product %d", id))
	}
	view.Derive()
	return &view, nil
}

// GetProductViewByArticle retrieves one catalog row by article
func (s *Store) GetProductViewByArticle(ctx context.Context, article string) (*models.ProductView, error) {
	var view models.ProductView
	err := s.db.GetContext(ctx, &view, productViewSelect+"\n\tWHERE p.article = $1", article)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("product %q", article))
	}
	view.Derive()
	return &view, nil
}

// GetProductImage returns the stored image bytes, nil when the product has none
func (s *Store) GetProductImage(ctx context.Context, id int64) ([]byte, error) {
	var image []byte
	err := s.db.GetContext(ctx, &image, "SELECT image FROM products WHERE id = $1", id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("product %d", id))
	}
	return image, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, article, name, unit, description, price, discount, stock,
		       category_id, manufacturer_id, supplier_id
		FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, s.db.Rebind(query), args...)
	return products, translate(err, "get products")
}

// CreateProduct inserts a product and fills in its ID
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (article, name, unit, description, price, discount, stock,
		                      category_id, manufacturer_id, supplier_id, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err := s.db.GetContext(ctx, &p.ID, query,
		p.Article, p.Name, p.Unit, p.Description, p.Price, p.Discount, p.Stock,
		p.CategoryID, p.ManufacturerID, p.SupplierID, p.Image)
	return translate(err, fmt.Sprintf("create product %q", p.Article))
}

// UpdateProduct overwrites every product column. A nil image keeps the stored one.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products
		SET article = $1, name = $2, unit = $3, description = $4, price = $5, discount = $6,
		    stock = $7, category_id = $8, manufacturer_id = $9, supplier_id = $10,
		    image = COALESCE($11, image)
		WHERE id = $12`

	res, err := s.db.ExecContext(ctx, query,
		p.Article, p.Name, p.Unit, p.Description, p.Price, p.Discount, p.Stock,
		p.CategoryID, p.ManufacturerID, p.SupplierID, p.Image, p.ID)
	if err != nil {
		return translate(err, fmt.Sprintf("update product %d", p.ID))
	}
	return expectAffected(res, fmt.Sprintf("product %d", p.ID))
}

// DeleteProduct removes a product. Products referenced by orders cannot be deleted.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return translate(err, fmt.Sprintf("delete product %d", id))
	}
	return expectAffected(res, fmt.Sprintf("product %d", id))
}

// ListManufacturers returns all manufacturers ordered by name
func (s *Store) ListManufacturers(ctx context.Context) ([]models.Manufacturer, error) {
	out := []models.Manufacturer{}
	err := s.db.SelectContext(ctx, &out, "SELECT id, name FROM manufacturers ORDER BY name, id")
	return out, translate(err, "list manufacturers")
}

// ListCategories returns all categories ordered by name
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	out := []models.Category{}
	err := s.db.SelectContext(ctx, &out, "SELECT id, name FROM categories ORDER BY name, id")
	return out, translate(err, "list categories")
}

// ListSuppliers returns all suppliers ordered by name
func (s *Store) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	out := []models.Supplier{}
	err := s.db.SelectContext(ctx, &out, "SELECT id, name FROM suppliers ORDER BY name, id")
	return out, translate(err, "list suppliers")
}

// CreateManufacturer, CreateCategory and CreateSupplier are get-or-insert by name.

func (s *Store) CreateManufacturer(ctx context.Context, name string) (int64, error) {
	return s.upsertName(ctx, "manufacturers", name)
}

func (s *Store) CreateCategory(ctx context.Context, name string) (int64, error) {
	return s.upsertName(ctx, "categories", name)
}

func (s *Store) CreateSupplier(ctx context.Context, name string) (int64, error) {
	return s.upsertName(ctx, "suppliers", name)
}

func (s *Store) upsertName(ctx context.Context, table, name string) (int64, error) {
	var id int64
	query := fmt.Sprintf(`
		INSERT INTO %s (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, table)
	err := s.db.GetContext(ctx, &id, query, name)
	return id, translate(err, fmt.Sprintf("upsert %s %q", table, name))
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func expectAffected(res rowsAffecter, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
