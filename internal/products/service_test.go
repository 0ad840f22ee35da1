package product

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/internal/inventory"
	"github.com/digitos-team/masala-software/internal/orders"
	"github.com/digitos-team/masala-software/pkg/db/dbtest"
	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/money"
	"github.com/digitos-team/masala-software/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB, *inventory.Service) {
	t.Helper()
	conn := dbtest.Open(t, "products")
	stock, err := inventory.NewService(conn)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), stock)
	require.NoError(t, err)
	return svc, conn, stock
}

func mustCreateProduct(t *testing.T, db *gorm.DB, name string, stock, minAlert int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:                    uuid.New(),
		Name:                  name,
		Unit:                  "pack",
		PackQuantity:          1,
		AdminCostCents:        2000,
		AdminMRPCents:         5000,
		DistributorPriceCents: 3000,
		RetailerPriceCents:    4000,
		TaxPercentage:         decimal.NewFromInt(5),
		Stock:                 stock,
		MinStockAlert:         minAlert,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func TestGetProjectsByRole(t *testing.T) {
	svc, db, _ := newTestService(t)
	product := mustCreateProduct(t, db, "Haldi 200g", 10, 0)
	ctx := context.Background()

	view, err := svc.Get(ctx, orders.Actor{UserID: uuid.New(), Role: enums.RoleRetailer}, product.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(4000), view.Price)
	assert.Nil(t, view.DistributorPrice)
	assert.Nil(t, view.AdminCost)

	view, err = svc.Get(ctx, orders.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, product.ID)
	require.NoError(t, err)
	require.NotNil(t, view.AdminCost)
	assert.Equal(t, money.Cents(2000), *view.AdminCost)

	_, err = svc.Get(ctx, orders.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(ctx, orders.Actor{}, product.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestListPagesAlphabetically(t *testing.T) {
	svc, db, _ := newTestService(t)
	for i := 5; i >= 1; i-- {
		mustCreateProduct(t, db, fmt.Sprintf("Masala %02d", i), 10, 0)
	}
	actor := orders.Actor{UserID: uuid.New(), Role: enums.RoleDistributor}

	page, err := svc.List(context.Background(), actor, ListProductsParams{
		Params: pagination.Params{Page: 2, Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Masala 03", page.Items[0].Name)
	assert.Equal(t, "Masala 04", page.Items[1].Name)
	assert.Equal(t, int64(5), page.Pagination.TotalCount)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasMore)
	assert.Equal(t, money.Cents(3000), page.Items[0].Price)
}

func TestListFilters(t *testing.T) {
	svc, db, _ := newTestService(t)
	mustCreateProduct(t, db, "Chilli Powder", 1, 5)
	mustCreateProduct(t, db, "Chilli Flakes", 50, 5)
	mustCreateProduct(t, db, "Jeera", 0, 0)
	actor := orders.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

	page, err := svc.List(context.Background(), actor, ListProductsParams{Search: "chilli"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	page, err = svc.List(context.Background(), actor, ListProductsParams{LowStockOnly: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Chilli Powder", page.Items[0].Name)
}

func TestMyStockShowsOwnLedgerOnly(t *testing.T) {
	svc, db, stock := newTestService(t)
	product := mustCreateProduct(t, db, "Dhania", 10, 0)
	distributor := orders.Actor{UserID: uuid.New(), Role: enums.RoleDistributor}
	retailer := orders.Actor{UserID: uuid.New(), Role: enums.RoleRetailer}
	ctx := context.Background()

	require.NoError(t, stock.ReceiveDelivery(ctx, db, distributor.UserID, product.ID, 6))

	mine, err := svc.MyStock(ctx, distributor)
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, 6, mine.Items[0].Stock)
	assert.Equal(t, "Dhania", mine.Items[0].Name)
	assert.Equal(t, money.Cents(4000), mine.Items[0].Price)

	theirs, err := svc.MyStock(ctx, retailer)
	require.NoError(t, err)
	assert.Empty(t, theirs.Items)
}
