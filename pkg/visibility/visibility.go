package visibility

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/money"
)

// ProductView is the role-projected catalog entry returned to callers.
// Price tiers the caller may not see are left nil and omitted from JSON.
type ProductView struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Unit             string          `json:"unit"`
	PackQuantity     int             `json:"packQuantity"`
	TaxPercentage    decimal.Decimal `json:"taxPercentage"`
	Stock            int             `json:"stock"`
	MinStockAlert    int             `json:"minStockAlert"`
	AdminCost        *money.Cents    `json:"adminCost,omitempty"`
	AdminMRP         *money.Cents    `json:"adminMrp,omitempty"`
	DistributorPrice *money.Cents    `json:"distributorPrice,omitempty"`
	RetailerPrice    *money.Cents    `json:"retailerPrice,omitempty"`
	Price            money.Cents     `json:"price"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// ProjectProduct hides the price tiers a role is not entitled to. Admins see
// every tier; distributors and retailers only their own buy price. Unknown
// roles get no tier at all.
func ProjectProduct(product models.Product, role enums.Role) ProductView {
	view := ProductView{
		ID:            product.ID,
		Name:          product.Name,
		Unit:          product.Unit,
		PackQuantity:  product.PackQuantity,
		TaxPercentage: product.TaxPercentage,
		Stock:         product.Stock,
		MinStockAlert: product.MinStockAlert,
		CreatedAt:     product.CreatedAt,
		UpdatedAt:     product.UpdatedAt,
	}

	switch role {
	case enums.RoleAdmin:
		view.AdminCost = centsPtr(product.AdminCostCents)
		view.AdminMRP = centsPtr(product.AdminMRPCents)
		view.DistributorPrice = centsPtr(product.DistributorPriceCents)
		view.RetailerPrice = centsPtr(product.RetailerPriceCents)
		view.Price = product.AdminMRPCents
	case enums.RoleDistributor:
		view.DistributorPrice = centsPtr(product.DistributorPriceCents)
		view.Price = product.DistributorPriceCents
	case enums.RoleRetailer:
		view.RetailerPrice = centsPtr(product.RetailerPriceCents)
		view.Price = product.RetailerPriceCents
	}
	return view
}

// ProjectProducts applies ProjectProduct to every entry.
func ProjectProducts(products []models.Product, role enums.Role) []ProductView {
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, ProjectProduct(p, role))
	}
	return out
}

func centsPtr(v money.Cents) *money.Cents {
	return &v
}
