package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/money"
)

// Order is a purchase placed by one tier of the chain against its suppliers.
// Pricing columns are snapshotted at creation and recomputed only while the
// order is still placed.
type Order struct {
	ID               uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber      string         `gorm:"column:order_number;not null;uniqueIndex"`
	InvoiceNumber    string         `gorm:"column:invoice_number;not null;uniqueIndex"`
	PlacedBy         uuid.UUID      `gorm:"column:placed_by;type:uuid;not null;index"`
	PlacedByRole     enums.Role     `gorm:"column:placed_by_role;type:text;not null"`
	DistributorID    *uuid.UUID     `gorm:"column:distributor_id;type:uuid;index"`
	SubDistributorID *uuid.UUID     `gorm:"column:sub_distributor_id;type:uuid;index"`
	Currency         enums.Currency `gorm:"column:currency;type:text;not null;default:'INR'"`

	SubtotalCents   money.Cents `gorm:"column:subtotal_cents;not null;default:0"`
	TaxCents        money.Cents `gorm:"column:tax_cents;not null;default:0"`
	DiscountCents   money.Cents `gorm:"column:discount_cents;not null;default:0"`
	ShippingCents   money.Cents `gorm:"column:shipping_cents;not null;default:0"`
	GrandTotalCents money.Cents `gorm:"column:grand_total_cents;not null;default:0"`
	AmountPaidCents money.Cents `gorm:"column:amount_paid_cents;not null;default:0"`

	DeliveryAddress string     `gorm:"column:delivery_address;not null"`
	ExpectedDate    *time.Time `gorm:"column:expected_date"`
	DeliveredAt     *time.Time `gorm:"column:delivered_at"`
	TransporterName *string    `gorm:"column:transporter_name"`
	TrackingNumber  *string    `gorm:"column:tracking_number"`

	Status       enums.OrderStatus `gorm:"column:status;type:text;not null;default:'placed';index"`
	IsCancelled  bool              `gorm:"column:is_cancelled;not null;default:false"`
	CancelReason *string           `gorm:"column:cancel_reason"`
	CancelledAt  *time.Time        `gorm:"column:cancelled_at"`
	IsReturned   bool              `gorm:"column:is_returned;not null;default:false"`
	ReturnReason *string           `gorm:"column:return_reason"`
	ReturnedAt   *time.Time        `gorm:"column:returned_at"`
	Notes        *string           `gorm:"column:notes"`

	Items     []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// RemainingCents is the unpaid balance against completed payments.
func (o *Order) RemainingCents() money.Cents {
	return o.GrandTotalCents - o.AmountPaidCents
}

// Recipient is the party whose stock ledger is credited on delivery.
func (o *Order) Recipient() uuid.UUID {
	if o.SubDistributorID != nil && *o.SubDistributorID != uuid.Nil {
		return *o.SubDistributorID
	}
	return o.PlacedBy
}
