package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/digitos-team/masala-software/pkg/enums"
)

// Notification is one inbox entry derived from a domain event. A nil
// RecipientID addresses every admin.
type Notification struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	RecipientID *uuid.UUID             `gorm:"column:recipient_id;type:uuid;index"`
	EventID     uuid.UUID              `gorm:"column:event_id;type:uuid;not null;index"`
	Type        enums.NotificationType `gorm:"column:type;type:text;not null"`
	Title       string                 `gorm:"column:title;not null"`
	Message     string                 `gorm:"column:message;not null"`
	OrderID     *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	ProductID   *uuid.UUID             `gorm:"column:product_id;type:uuid"`
	ReadAt      *time.Time             `gorm:"column:read_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime;index"`
}
