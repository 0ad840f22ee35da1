package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
)

// Repository defines persistence operations for the orders tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	NextSequence(ctx context.Context, year int) (int64, error)
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ExistsByOrderNumber(ctx context.Context, number string) (bool, error)
	ExistsByInvoiceNumber(ctx context.Context, invoice string, excludeID uuid.UUID) (bool, error)
	FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
	UpdateWhereStatus(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, updates map[string]any) (bool, error)
	ReplaceItems(ctx context.Context, orderID uuid.UUID, items []models.OrderLineItem) error
	DeleteWhereStatus(ctx context.Context, id uuid.UUID, expected enums.OrderStatus) (bool, error)
	HasPayments(ctx context.Context, orderID uuid.UUID) (bool, error)
	List(ctx context.Context, actor Actor, params ListOrdersParams) ([]models.Order, int64, error)
	ListByPlacedBy(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	Revenue(ctx context.Context, from, to *time.Time) (RevenueAggregate, error)
	TopProducts(ctx context.Context, limit int) ([]TopProduct, error)
}

// RevenueAggregate is the raw sum/count behind revenue reports.
type RevenueAggregate struct {
	Total int64
	Count int64
}
