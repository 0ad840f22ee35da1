package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/money"
)

// Product is the shared catalog entry. Catalog CRUD lives elsewhere; this
// service only moves Stock.
type Product struct {
	ID                    uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name                  string          `gorm:"column:name;not null"`
	Unit                  string          `gorm:"column:unit;not null;default:'pcs'"`
	PackQuantity          int             `gorm:"column:pack_quantity;not null;default:1"`
	AdminCostCents        money.Cents     `gorm:"column:admin_cost_cents;not null;default:0"`
	AdminMRPCents         money.Cents     `gorm:"column:admin_mrp_cents;not null;default:0"`
	DistributorPriceCents money.Cents     `gorm:"column:distributor_price_cents;not null;default:0"`
	RetailerPriceCents    money.Cents     `gorm:"column:retailer_price_cents;not null;default:0"`
	TaxPercentage         decimal.Decimal `gorm:"column:tax_percentage;type:numeric(5,2);not null;default:0"`
	Stock                 int             `gorm:"column:stock;not null;default:0;check:stock >= 0"`
	MinStockAlert         int             `gorm:"column:min_stock_alert;not null;default:0"`
	CreatedBy             *uuid.UUID      `gorm:"column:created_by;type:uuid"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceFor returns the list price the given role buys at.
func (p *Product) PriceFor(role enums.Role) money.Cents {
	switch role {
	case enums.RoleDistributor:
		return p.DistributorPriceCents
	case enums.RoleRetailer:
		return p.RetailerPriceCents
	default:
		return p.AdminMRPCents
	}
}
