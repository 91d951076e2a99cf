package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shoestore/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// PlaceOrderParams carries everything needed to persist a checkout
type PlaceOrderParams struct {
	UserID       int64
	ProductID    int64
	Quantity     int
	StatusName   string
	OrderDate    time.Time
	DeliveryDate time.Time
	PickupCode   int
}

// OrderQuery narrows ListOrders. A nil UserID lists every user's orders.
type OrderQuery struct {
	UserID     *int64
	StatusName string
}

const orderSelect = `
	SELECT o.id, o.user_id, u.login AS user_login, o.order_date, o.delivery_date,
	       o.pickup_code, o.status_id, st.name AS status_name
	FROM orders o
	JOIN users u ON u.id = o.user_id
	JOIN order_statuses st ON st.id = o.status_id`

// PlaceOrder creates the order, its single line and the stock decrement in
// one transaction. The product row is locked for the duration so concurrent
// checkouts of the same product serialize on it.
func (s *Store) PlaceOrder(ctx context.Context, p PlaceOrderParams) (*models.Order, error) {
	var order *models.Order

	err := s.withRetry(ctx, s.txOpts, func(tx *sqlx.Tx) error {
		var stock int
		err := tx.GetContext(ctx, &stock, "SELECT stock FROM products WHERE id = $1 FOR UPDATE", p.ProductID)
		if err != nil {
			return translate(err, fmt.Sprintf("product %d", p.ProductID))
		}
		if stock < p.Quantity {
			return fmt.Errorf("product %d: requested %d, available %d: %w", p.ProductID, p.Quantity, stock, ErrInsufficientStock)
		}

		status, err := getOrCreateStatus(ctx, tx, p.StatusName)
		if err != nil {
			return err
		}

		o := &models.Order{
			UserID:       p.UserID,
			OrderDate:    p.OrderDate,
			DeliveryDate: &p.DeliveryDate,
			PickupCode:   p.PickupCode,
			StatusID:     status.ID,
			StatusName:   status.Name,
		}
		err = tx.GetContext(ctx, &o.ID, `
			INSERT INTO orders (user_id, order_date, delivery_date, pickup_code, status_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			o.UserID, o.OrderDate, o.DeliveryDate, o.PickupCode, o.StatusID)
		if err != nil {
			return translate(err, "create order")
		}

		item := models.OrderItem{OrderID: o.ID, ProductID: p.ProductID, Quantity: p.Quantity}
		err = tx.GetContext(ctx, &item.ID, `
			INSERT INTO order_items (order_id, product_id, quantity)
			VALUES ($1, $2, $3)
			RETURNING id`,
			item.OrderID, item.ProductID, item.Quantity)
		if err != nil {
			return translate(err, "create order item")
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1",
			p.Quantity, p.ProductID)
		if err != nil {
			return translate(err, "decrement stock")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("product %d: %w", p.ProductID, ErrInsufficientStock)
		}

		o.Items = []models.OrderItem{item}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrCreateStatus resolves a status by name, inserting it on first use
func (s *Store) GetOrCreateStatus(ctx context.Context, name string) (*models.OrderStatus, error) {
	return getOrCreateStatus(ctx, s.db, name)
}

func getOrCreateStatus(ctx context.Context, q sqlx.QueryerContext, name string) (*models.OrderStatus, error) {
	var status models.OrderStatus
	err := sqlx.GetContext(ctx, q, &status, `
		INSERT INTO order_statuses (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`, name)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("order status %q", name))
	}
	return &status, nil
}

// GetStatusByID retrieves an order status by ID
func (s *Store) GetStatusByID(ctx context.Context, id int64) (*models.OrderStatus, error) {
	var status models.OrderStatus
	err := s.db.GetContext(ctx, &status, "SELECT id, name FROM order_statuses WHERE id = $1", id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("order status %d", id))
	}
	return &status, nil
}

// ListStatuses returns every known order status ordered by name
func (s *Store) ListStatuses(ctx context.Context) ([]models.OrderStatus, error) {
	out := []models.OrderStatus{}
	err := s.db.SelectContext(ctx, &out, "SELECT id, name FROM order_statuses ORDER BY name")
	return out, translate(err, "list order statuses")
}

// GetOrderByID retrieves an order with its lines and products
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := s.db.GetContext(ctx, &order, orderSelect+"\n\tWHERE o.id = $1", id); err != nil {
		return nil, translate(err, fmt.Sprintf("order %d", id))
	}

	orders := []models.Order{order}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListOrders returns orders newest first, with lines and products attached
func (s *Store) ListOrders(ctx context.Context, q OrderQuery) ([]models.Order, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.UserID != nil {
		args = append(args, *q.UserID)
		where = append(where, fmt.Sprintf("o.user_id = $%d", len(args)))
	}
	if q.StatusName != "" {
		args = append(args, q.StatusName)
		where = append(where, fmt.Sprintf("st.name = $%d", len(args)))
	}

	query := orderSelect
	if len(where) > 0 {
		query += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\tORDER BY o.order_date DESC, o.id DESC"

	orders := []models.Order{}
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, translate(err, "list orders")
	}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus points an order at another status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, statusID int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE orders SET status_id = $1 WHERE id = $2", statusID, orderID)
	if err != nil {
		return translate(err, fmt.Sprintf("update order %d status", orderID))
	}
	return expectAffected(res, fmt.Sprintf("order %d", orderID))
}

// UpdateDeliveryDate overwrites an order's delivery date
func (s *Store) UpdateDeliveryDate(ctx context.Context, orderID int64, date time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE orders SET delivery_date = $1 WHERE id = $2", date, orderID)
	if err != nil {
		return translate(err, fmt.Sprintf("update order %d delivery date", orderID))
	}
	return expectAffected(res, fmt.Sprintf("order %d", orderID))
}

// itemRow is an order line joined with its product; product columns are
// nullable because the join is outer.
type itemRow struct {
	ID        int64               `db:"id"`
	OrderID   int64               `db:"order_id"`
	ProductID int64               `db:"product_id"`
	Quantity  int                 `db:"quantity"`
	PID       sql.NullInt64       `db:"p_id"`
	Article   sql.NullString      `db:"p_article"`
	Name      sql.NullString      `db:"p_name"`
	Unit      *string             `db:"p_unit"`
	Price     decimal.NullDecimal `db:"p_price"`
	Discount  decimal.NullDecimal `db:"p_discount"`
	Stock     sql.NullInt64       `db:"p_stock"`
}

func (r itemRow) toItem() models.OrderItem {
	item := models.OrderItem{
		ID:        r.ID,
		OrderID:   r.OrderID,
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
	}
	if r.PID.Valid {
		item.Product = &models.Product{
			ID:       r.PID.Int64,
			Article:  r.Article.String,
			Name:     r.Name.String,
			Unit:     r.Unit,
			Price:    r.Price.Decimal,
			Discount: r.Discount.Decimal,
			Stock:    int(r.Stock.Int64),
		}
	}
	return item
}

func (s *Store) attachItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []models.OrderItem{}
	}

	query, args, err := sqlx.In(`
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity,
		       p.id AS p_id, p.article AS p_article, p.name AS p_name, p.unit AS p_unit,
		       p.price AS p_price, p.discount AS p_discount, p.stock AS p_stock
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id IN (?)
		ORDER BY oi.order_id, oi.id`, ids)
	if err != nil {
		return err
	}

	var rows []itemRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return translate(err, "load order items")
	}

	for _, r := range rows {
		i, ok := index[r.OrderID]
		if !ok {
			return errors.New("order item references an order outside the result set")
		}
		orders[i].Items = append(orders[i].Items, r.toItem())
	}
	return nil
}
