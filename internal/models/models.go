package models

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Category groups products in the catalog
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Manufacturer produces catalog products
type Manufacturer struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Supplier delivers catalog products to the store
type Supplier struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Product represents a product in the catalog
type Product struct {
	ID             int64           `db:"id" json:"id"`
	Article        string          `db:"article" json:"article"`
	Name           string          `db:"name" json:"name"`
	Unit           *string         `db:"unit" json:"unit,omitempty"`
	Description    *string         `db:"description" json:"description,omitempty"`
	Price          decimal.Decimal `db:"price" json:"price"`
	Discount       decimal.Decimal `db:"discount" json:"discount"`
	Stock          int             `db:"stock" json:"stock"`
	CategoryID     *int64          `db:"category_id" json:"categoryId,omitempty"`
	ManufacturerID *int64          `db:"manufacturer_id" json:"manufacturerId,omitempty"`
	SupplierID     *int64          `db:"supplier_id" json:"supplierId,omitempty"`
	Image          []byte          `db:"image" json:"image,omitempty"`
}

// EffectivePrice is the unit price after the product discount
func (p *Product) EffectivePrice() decimal.Decimal {
	return EffectivePrice(p.Price, p.Discount)
}

// EffectivePrice applies a percent discount to price, rounded to cents
func EffectivePrice(price, discount decimal.Decimal) decimal.Decimal {
	return price.Mul(hundred.Sub(discount)).Div(hundred).Round(2)
}

// ProductView is the flattened catalog row returned to callers
type ProductView struct {
	Product
	CategoryName     string          `db:"category_name" json:"categoryName"`
	ManufacturerName string          `db:"manufacturer_name" json:"manufacturerName"`
	SupplierName     string          `db:"supplier_name" json:"supplierName"`
	EffectivePrice   decimal.Decimal `db:"-" json:"effectivePrice"`
	InStock          bool            `db:"-" json:"inStock"`
}

// Derive fills the computed fields from the scanned product columns
func (v *ProductView) Derive() {
	v.EffectivePrice = v.Product.EffectivePrice()
	v.InStock = v.Stock > 0
}

// OrderStatus is an open, name-keyed order state
type OrderStatus struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Order represents a customer order
type Order struct {
	ID           int64           `db:"id" json:"id"`
	UserID       int64           `db:"user_id" json:"userId"`
	UserLogin    string          `db:"user_login" json:"userLogin"`
	OrderDate    time.Time       `db:"order_date" json:"orderDate"`
	DeliveryDate *time.Time      `db:"delivery_date" json:"deliveryDate,omitempty"`
	PickupCode   int             `db:"pickup_code" json:"pickupCode"`
	StatusID     int64           `db:"status_id" json:"statusId"`
	StatusName   string          `db:"status_name" json:"statusName"`
	Items        []OrderItem     `db:"-" json:"items"`
	Total        decimal.Decimal `db:"-" json:"total"`
}

// OrderItem represents one product line of an order
type OrderItem struct {
	ID        int64    `db:"id" json:"id"`
	OrderID   int64    `db:"order_id" json:"orderId"`
	ProductID int64    `db:"product_id" json:"productId"`
	Quantity  int      `db:"quantity" json:"quantity"`
	Product   *Product `db:"-" json:"product,omitempty"`
}

// Role names recognized by the access policy
const (
	RoleAdministrator = "Administrator"
	RoleManager       = "Manager"
	RoleClient        = "Client"
)

// Role is a named user role
type Role struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// User is an account that can sign in
type User struct {
	ID           int64   `db:"id" json:"id"`
	Login        string  `db:"login" json:"login"`
	PasswordHash string  `db:"password_hash" json:"-"`
	FullName     string  `db:"full_name" json:"fullName"`
	RoleID       *int64  `db:"role_id" json:"roleId,omitempty"`
	RoleName     *string `db:"role_name" json:"roleName,omitempty"`
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// OrderEventRecord is one audited order event
type OrderEventRecord struct {
	ID         int64     `db:"id" json:"id"`
	EventID    string    `db:"event_id" json:"eventId"`
	EventType  string    `db:"event_type" json:"eventType"`
	OrderID    int64     `db:"order_id" json:"orderId"`
	Payload    []byte    `db:"payload" json:"payload"`
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`
	RecordedAt time.Time `db:"recorded_at" json:"recordedAt"`
}
