package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/internal/orders"
	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/money"
)

// Repository defines persistence operations for payments and the paid
// total they maintain on orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	ExistsByTransactionID(ctx context.Context, transactionID string, excludeID uuid.UUID) (bool, error)
	UpdateWhereStatus(ctx context.Context, id uuid.UUID, expected enums.PaymentStatus, updates map[string]any) (bool, error)
	DeleteWhereStatus(ctx context.Context, id uuid.UUID, expected enums.PaymentStatus) (bool, error)
	AddPaid(ctx context.Context, orderID uuid.UUID, amount money.Cents) (bool, error)
	SubtractPaid(ctx context.Context, orderID uuid.UUID, amount money.Cents) error
	List(ctx context.Context, actor orders.Actor, params ListPaymentsParams) ([]models.Payment, int64, error)
	Search(ctx context.Context, actor orders.Actor, term string, limit int) ([]models.Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	SummarizeByStatus(ctx context.Context, orderID *uuid.UUID) ([]Bucket, error)
	SummarizeByMethod(ctx context.Context) ([]Bucket, error)
	RevenueByMethod(ctx context.Context, from, to *time.Time) ([]Bucket, error)
	History(ctx context.Context, params HistoryParams) ([]models.Payment, money.Cents, error)
}
