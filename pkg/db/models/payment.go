package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/money"
)

// Payment is a recorded (not processed) settlement against an order.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	TransactionID string              `gorm:"column:transaction_id;not null;uniqueIndex"`
	AmountCents   money.Cents         `gorm:"column:amount_cents;not null"`
	Method        enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Status        enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'Pending';index"`
	PaidBy        uuid.UUID           `gorm:"column:paid_by;type:uuid;not null"`
	PaidAt        time.Time           `gorm:"column:paid_at;not null;index"`
	Order         *Order              `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsCompleted reports whether the payment counts toward the order's paid total.
func (p *Payment) IsCompleted() bool {
	return p.Status == enums.PaymentStatusCompleted
}
