package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/digitos-team/masala-software/pkg/money"
)

// OwnerStock is one row of the downstream stock ledger: how many units of an
// upstream catalog product a distributor or retailer has received.
type OwnerStock struct {
	ID                    uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID               uuid.UUID       `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:idx_owner_stock_owner_product"`
	ProductID             uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_owner_stock_owner_product"`
	Name                  string          `gorm:"column:name;not null"`
	Unit                  string          `gorm:"column:unit;not null;default:'pcs'"`
	DistributorPriceCents money.Cents     `gorm:"column:distributor_price_cents;not null;default:0"`
	RetailerPriceCents    money.Cents     `gorm:"column:retailer_price_cents;not null;default:0"`
	TaxPercentage         decimal.Decimal `gorm:"column:tax_percentage;type:numeric(5,2);not null;default:0"`
	Stock                 int             `gorm:"column:stock;not null;default:0;check:owner_stock_nonnegative,stock >= 0"`
	MinStockAlert         int             `gorm:"column:min_stock_alert;not null;default:0"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (OwnerStock) TableName() string {
	return "owner_stock"
}
