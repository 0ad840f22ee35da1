package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/digitos-team/masala-software/internal/orders"
	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/pagination"
)

// Service exposes the caller's inbox.
type Service interface {
	List(ctx context.Context, actor orders.Actor, params ListParams) (*NotificationList, error)
	MarkRead(ctx context.Context, actor orders.Actor, id uuid.UUID) error
	MarkAllRead(ctx context.Context, actor orders.Actor) (int64, error)
}

type ListParams struct {
	pagination.Params
	UnreadOnly bool
	// empty means every type
	Type enums.NotificationType
}

type NotificationDTO struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	OrderID   *uuid.UUID             `json:"orderId,omitempty"`
	ProductID *uuid.UUID             `json:"productId,omitempty"`
	Read      bool                   `json:"read"`
	ReadAt    *time.Time             `json:"readAt,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

type NotificationList struct {
	Items      []NotificationDTO `json:"items"`
	Pagination pagination.Meta   `json:"pagination"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func scopeFor(actor orders.Actor) (inboxScope, error) {
	if err := actor.Validate(); err != nil {
		return inboxScope{}, err
	}
	return inboxScope{UserID: actor.UserID, Admin: actor.IsAdmin()}, nil
}

func (s *service) List(ctx context.Context, actor orders.Actor, params ListParams) (*NotificationList, error) {
	scope, err := scopeFor(actor)
	if err != nil {
		return nil, err
	}
	query := listQuery{
		Params:     params.Params.Normalize(nil, "created_at"),
		UnreadOnly: params.UnreadOnly,
		Type:       params.Type,
	}
	rows, total, err := s.repo.List(ctx, scope, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toDTO(row))
	}
	return &NotificationList{Items: items, Pagination: pagination.NewMeta(query.Params, total)}, nil
}

func (s *service) MarkRead(ctx context.Context, actor orders.Actor, id uuid.UUID) error {
	scope, err := scopeFor(actor)
	if err != nil {
		return err
	}
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	found, err := s.repo.MarkRead(ctx, scope, id, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, actor orders.Actor) (int64, error) {
	scope, err := scopeFor(actor)
	if err != nil {
		return 0, err
	}
	count, err := s.repo.MarkAllRead(ctx, scope, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func toDTO(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        row.ID,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		OrderID:   row.OrderID,
		ProductID: row.ProductID,
		Read:      row.ReadAt != nil,
		ReadAt:    row.ReadAt,
		CreatedAt: row.CreatedAt,
	}
}
