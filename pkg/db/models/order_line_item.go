package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/digitos-team/masala-software/pkg/money"
)

// OrderLineItem snapshots the product as it was when the order was priced.
type OrderLineItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Position       int             `gorm:"column:position;not null;default:0"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Name           string          `gorm:"column:name;not null"`
	Unit           string          `gorm:"column:unit;not null;default:'pcs'"`
	Quantity       int             `gorm:"column:quantity;not null"`
	UnitPriceCents money.Cents     `gorm:"column:unit_price_cents;not null"`
	TaxPercentage  decimal.Decimal `gorm:"column:tax_percentage;type:numeric(5,2);not null;default:0"`
	TaxCents       money.Cents     `gorm:"column:tax_cents;not null;default:0"`
	LineTotalCents money.Cents     `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
