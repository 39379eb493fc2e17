package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products in the catalog
type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Product represents a sellable catalog item with a tracked stock count
type Product struct {
	ID             int64           `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	Description    string          `db:"description" json:"description,omitempty"`
	CategoryID     int64           `db:"category_id" json:"category_id"`
	SalePrice      decimal.Decimal `db:"sale_price" json:"sale_price"`
	Stock          int             `db:"stock" json:"stock"`
	AlertThreshold int             `db:"alert_threshold" json:"alert_threshold"`
	Unit           string          `db:"unit" json:"unit"`
	Active         bool            `db:"active" json:"active"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// LowStock reports whether the stock count has reached the alert threshold.
func (p *Product) LowStock() bool {
	return p.Stock <= p.AlertThreshold
}

// OutOfStock reports whether the product is fully depleted.
func (p *Product) OutOfStock() bool {
	return p.Stock == 0
}

// Order represents a client transaction composed of order lines
type Order struct {
	ID         int64           `db:"id" json:"id"`
	Reference  string          `db:"reference" json:"reference"`
	ClientName string          `db:"client_name" json:"client_name,omitempty"`
	OrderType  string          `db:"order_type" json:"order_type"`
	Status     string          `db:"status" json:"status"`
	Total      decimal.Decimal `db:"total" json:"total"`
	Notes      string          `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderLine is one product entry within an order. UnitPrice is a snapshot of
// the product's sale price taken when the line was added; it never changes
// afterwards, even if the product price does.
type OrderLine struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal decimal.Decimal `db:"line_total" json:"line_total"`
}

// StockMovement is one append-only entry in the stock ledger. Quantity is a
// positive magnitude; the signed stock effect is derived from Type.
type StockMovement struct {
	ID        int64     `db:"id" json:"id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Type      string    `db:"movement_type" json:"movement_type"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Reason    string    `db:"reason" json:"reason,omitempty"`
	UserID    *int64    `db:"user_id" json:"user_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusServed    = "SERVED"
	OrderStatusCancelled = "CANCELLED"
)

// Order types
const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeaway = "TAKEAWAY"
	OrderTypeDelivery = "DELIVERY"
)

// Stock movement types
const (
	MovementTypeIn     = "IN"
	MovementTypeOut    = "OUT"
	MovementTypeAdjust = "ADJUST"
	MovementTypeLoss   = "LOSS"
	MovementTypeReturn = "RETURN"
)

// Units of measure
const (
	UnitUnit   = "UNIT"
	UnitKg     = "KG"
	UnitLiter  = "LITER"
	UnitBox    = "BOX"
	UnitBottle = "BOTTLE"
)

// IsValidOrderStatus checks membership in the five-state status enum.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady,
		OrderStatusServed, OrderStatusCancelled:
		return true
	}
	return false
}

// IsValidOrderType checks membership in the order-type enum.
func IsValidOrderType(t string) bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeaway, OrderTypeDelivery:
		return true
	}
	return false
}

// IsValidMovementType checks membership in the movement-type enum.
func IsValidMovementType(t string) bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeAdjust,
		MovementTypeLoss, MovementTypeReturn:
		return true
	}
	return false
}

// IsValidUnit checks membership in the unit-of-measure enum.
func IsValidUnit(u string) bool {
	switch u {
	case UnitUnit, UnitKg, UnitLiter, UnitBox, UnitBottle:
		return true
	}
	return false
}
