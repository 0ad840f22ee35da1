package payments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/internal/orders"
	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/money"
	"github.com/digitos-team/masala-software/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Omit("Order").Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Preload("Order").Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Order").
		Where("transaction_id = ?", transactionID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ExistsByTransactionID(ctx context.Context, transactionID string, excludeID uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Payment{}).Where("transaction_id = ?", transactionID)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *repository) UpdateWhereStatus(ctx context.Context, id uuid.UUID, expected enums.PaymentStatus, updates map[string]any) (bool, error) {
	updates["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) DeleteWhereStatus(ctx context.Context, id uuid.UUID, expected enums.PaymentStatus) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND status = ?", id, expected).Delete(&models.Payment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AddPaid raises the order's paid total only while it stays within the grand
// total. A false result means the payment would overpay the order.
func (r *repository) AddPaid(ctx context.Context, orderID uuid.UUID, amount money.Cents) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET amount_paid_cents = amount_paid_cents + ?,
			updated_at = ?
		WHERE id = ? AND amount_paid_cents + ? <= grand_total_cents
	`, amount, time.Now().UTC(), orderID, amount)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SubtractPaid(ctx context.Context, orderID uuid.UUID, amount money.Cents) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET amount_paid_cents = CASE WHEN amount_paid_cents >= ? THEN amount_paid_cents - ? ELSE 0 END,
			updated_at = ?
		WHERE id = ?
	`, amount, amount, time.Now().UTC(), orderID).Error
}

func (r *repository) scoped(ctx context.Context, actor orders.Actor) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Payment{})
	if actor.IsAdmin() {
		return query
	}
	return query.Where("payments.order_id IN (?)", orders.ScopedOrderIDs(r.db, actor))
}

func (r *repository) List(ctx context.Context, actor orders.Actor, params ListPaymentsParams) ([]models.Payment, int64, error) {
	query := r.scoped(ctx, actor)
	if params.Status != nil {
		query = query.Where("payments.status = ?", *params.Status)
	}
	if params.Method != nil {
		query = query.Where("payments.method = ?", *params.Method)
	}
	if params.OrderID != nil {
		query = query.Where("payments.order_id = ?", *params.OrderID)
	}
	if params.From != nil {
		query = query.Where("payments.paid_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("payments.paid_at <= ?", *params.To)
	}
	if term := strings.TrimSpace(params.Search); term != "" {
		query = query.Where("LOWER(payments.transaction_id) LIKE ?", "%"+strings.ToLower(term)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := params.Params
	var rows []models.Payment
	err := query.
		Preload("Order").
		Order("payments." + page.OrderClause()).
		Order("payments.id ASC").
		Limit(pagination.NormalizeLimit(page.Limit)).
		Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) Search(ctx context.Context, actor orders.Actor, term string, limit int) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.scoped(ctx, actor).
		Preload("Order").
		Where("LOWER(payments.transaction_id) LIKE ?", "%"+strings.ToLower(term)+"%").
		Order("payments.paid_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("paid_at DESC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) SummarizeByStatus(ctx context.Context, orderID *uuid.UUID) ([]Bucket, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("status AS bucket_key, COUNT(*) AS count, COALESCE(SUM(amount_cents), 0) AS total_amount")
	if orderID != nil {
		query = query.Where("order_id = ?", *orderID)
	}
	var rows []Bucket
	err := query.Group("status").Order("status ASC").Scan(&rows).Error
	return rows, err
}

func (r *repository) SummarizeByMethod(ctx context.Context) ([]Bucket, error) {
	var rows []Bucket
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("method AS bucket_key, COUNT(*) AS count, COALESCE(SUM(amount_cents), 0) AS total_amount").
		Group("method").
		Order("method ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) RevenueByMethod(ctx context.Context, from, to *time.Time) ([]Bucket, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("method AS bucket_key, COUNT(*) AS count, COALESCE(SUM(amount_cents), 0) AS total_amount").
		Where("status = ?", enums.PaymentStatusCompleted)
	if from != nil {
		query = query.Where("paid_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("paid_at <= ?", *to)
	}
	var rows []Bucket
	err := query.Group("method").Order("total_amount DESC").Order("method ASC").Scan(&rows).Error
	return rows, err
}

func (r *repository) History(ctx context.Context, params HistoryParams) ([]models.Payment, money.Cents, error) {
	filter := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.Payment{})
		if params.Status != nil {
			query = query.Where("status = ?", *params.Status)
		}
		if params.Method != nil {
			query = query.Where("method = ?", *params.Method)
		}
		if params.From != nil {
			query = query.Where("paid_at >= ?", *params.From)
		}
		if params.To != nil {
			query = query.Where("paid_at <= ?", *params.To)
		}
		return query
	}

	var rows []models.Payment
	if err := filter().Preload("Order").Order("paid_at DESC").Order("id ASC").Limit(params.Limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	var total int64
	if err := filter().Select("COALESCE(SUM(amount_cents), 0)").Scan(&total).Error; err != nil {
		return nil, 0, err
	}
	return rows, money.Cents(total), nil
}
