package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/money"
	"github.com/digitos-team/masala-software/pkg/pagination"
	"github.com/digitos-team/masala-software/pkg/visibility"
)

// ListProductsParams captures catalog paging and filter knobs.
type ListProductsParams struct {
	pagination.Params
	Search       string
	LowStockOnly bool
}

var sortableColumns = map[string]string{
	"name":      "name",
	"stock":     "stock",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// ProductList is a page of role-projected products.
type ProductList struct {
	Items      []visibility.ProductView `json:"items"`
	Pagination pagination.Meta          `json:"pagination"`
}

// StockEntryDTO is one row of a caller's delivered stock.
type StockEntryDTO struct {
	ProductID     uuid.UUID       `json:"productId"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	Stock         int             `json:"stock"`
	MinStockAlert int             `json:"minStockAlert"`
	LowStock      bool            `json:"lowStock"`
	TaxPercentage decimal.Decimal `json:"taxPercentage"`
	Price         money.Cents     `json:"price"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// MyStock is the caller's owner_stock ledger.
type MyStock struct {
	OwnerID uuid.UUID       `json:"ownerId"`
	Items   []StockEntryDTO `json:"items"`
}

// stockEntry renders a ledger row. Distributors sell at the retailer tier,
// everyone else at the distributor tier.
func stockEntry(row models.OwnerStock, sellsToRetailers bool) StockEntryDTO {
	price := row.DistributorPriceCents
	if sellsToRetailers {
		price = row.RetailerPriceCents
	}
	return StockEntryDTO{
		ProductID:     row.ProductID,
		Name:          row.Name,
		Unit:          row.Unit,
		Stock:         row.Stock,
		MinStockAlert: row.MinStockAlert,
		LowStock:      row.MinStockAlert > 0 && row.Stock <= row.MinStockAlert,
		TaxPercentage: row.TaxPercentage,
		Price:         price,
		UpdatedAt:     row.UpdatedAt,
	}
}
