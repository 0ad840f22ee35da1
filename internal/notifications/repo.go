package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/pagination"
)

// Repository persists inbox entries and resolves order parties for the consumer.
type Repository interface {
	CreateBatch(ctx context.Context, rows []models.Notification) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, scope inboxScope, params listQuery) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, scope inboxScope, id uuid.UUID, now time.Time) (bool, error)
	MarkAllRead(ctx context.Context, scope inboxScope, now time.Time) (int64, error)
}

// inboxScope is the set of rows a caller may see: their own, plus the shared
// admin rows when Admin is set.
type inboxScope struct {
	UserID uuid.UUID
	Admin  bool
}

type listQuery struct {
	pagination.Params
	UnreadOnly bool
	Type       enums.NotificationType
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateBatch(ctx context.Context, rows []models.Notification) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Select("id", "order_number", "placed_by", "distributor_id", "sub_distributor_id").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) scoped(ctx context.Context, scope inboxScope) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Notification{})
	if scope.Admin {
		return query.Where("(recipient_id = ? OR recipient_id IS NULL)", scope.UserID)
	}
	return query.Where("recipient_id = ?", scope.UserID)
}

func (r *repository) List(ctx context.Context, scope inboxScope, params listQuery) ([]models.Notification, int64, error) {
	query := r.scoped(ctx, scope)
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if params.Type != "" {
		query = query.Where("type = ?", params.Type)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Notification
	err := query.
		Order("created_at DESC, id DESC").
		Offset(params.Offset()).
		Limit(pagination.NormalizeLimit(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// MarkRead reports whether the notification exists in scope. Marking an
// already-read row is a no-op.
func (r *repository) MarkRead(ctx context.Context, scope inboxScope, id uuid.UUID, now time.Time) (bool, error) {
	res := r.scoped(ctx, scope).
		Where("id = ? AND read_at IS NULL", id).
		UpdateColumn("read_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := r.scoped(ctx, scope).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) MarkAllRead(ctx context.Context, scope inboxScope, now time.Time) (int64, error) {
	res := r.scoped(ctx, scope).
		Where("read_at IS NULL").
		UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}
