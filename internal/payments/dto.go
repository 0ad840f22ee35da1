package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/money"
	"github.com/digitos-team/masala-software/pkg/pagination"
	"github.com/digitos-team/masala-software/pkg/types"
)

// CreatePaymentInput records a settlement against an order. A nil or zero
// Amount settles the full remaining balance. Method and Status accept loose
// spellings such as "net banking" or "partially_paid". PaidAt is always the
// server clock; admins correct it through UpdatePaymentInput.
type CreatePaymentInput struct {
	OrderID       uuid.UUID    `json:"orderId" validate:"required"`
	Amount        *money.Cents `json:"amount,omitempty"`
	Method        string       `json:"method" validate:"required"`
	Status        string       `json:"paymentStatus" validate:"required"`
	TransactionID string       `json:"transactionId" validate:"required"`
}

type UpdatePaymentInput struct {
	Amount        *money.Cents `json:"amount,omitempty"`
	Method        *string      `json:"method,omitempty"`
	Status        *string      `json:"paymentStatus,omitempty"`
	TransactionID *string      `json:"transactionId,omitempty"`
	PaidAt        *time.Time   `json:"paidAt,omitempty"`
}

func (in UpdatePaymentInput) isEmpty() bool {
	return in.Amount == nil && in.Method == nil && in.Status == nil && in.TransactionID == nil && in.PaidAt == nil
}

type ListPaymentsParams struct {
	pagination.Params
	Status  *enums.PaymentStatus
	Method  *enums.PaymentMethod
	OrderID *uuid.UUID
	From    *time.Time
	To      *time.Time
	Search  string
}

type HistoryParams struct {
	Status *enums.PaymentStatus
	Method *enums.PaymentMethod
	From   *time.Time
	To     *time.Time
	Limit  int
}

var sortableColumns = map[string]string{
	"createdAt":     "created_at",
	"created_at":    "created_at",
	"paidAt":        "paid_at",
	"paid_at":       "paid_at",
	"amount":        "amount_cents",
	"amount_cents":  "amount_cents",
	"status":        "status",
	"method":        "method",
	"transactionId": "transaction_id",
}

type PaymentDTO struct {
	ID            uuid.UUID           `json:"id"`
	OrderID       uuid.UUID           `json:"orderId"`
	OrderNumber   string              `json:"orderNumber,omitempty"`
	InvoiceNumber string              `json:"invoiceNumber,omitempty"`
	TransactionID string              `json:"transactionId"`
	Amount        money.Cents         `json:"amount"`
	Method        enums.PaymentMethod `json:"method"`
	Status        enums.PaymentStatus `json:"paymentStatus"`
	PaidBy        uuid.UUID           `json:"paidBy"`
	PaidAt        time.Time           `json:"paidAt"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

type PaymentList struct {
	Items      []PaymentDTO    `json:"items"`
	Pagination pagination.Meta `json:"pagination"`
}

// Bucket is one group of a payment aggregation.
type Bucket struct {
	Key         string      `json:"key" gorm:"column:bucket_key"`
	Count       int64       `json:"count"`
	TotalAmount money.Cents `json:"totalAmount"`
}

type OrderSummary struct {
	OrderID      uuid.UUID      `json:"orderId"`
	OrderNumber  string         `json:"orderNumber"`
	OrderTotal   money.Cents    `json:"orderTotal"`
	TotalPaid    money.Cents    `json:"totalPaid"`
	Remaining    money.Cents    `json:"remainingAmount"`
	PaymentCount int64          `json:"paymentCount"`
	ByStatus     []Bucket       `json:"summary"`
	Payments     []PaymentDTO   `json:"payments"`
	Currency     enums.Currency `json:"currency"`
}

type Verification struct {
	PaymentID     uuid.UUID           `json:"paymentId"`
	TransactionID string              `json:"transactionId"`
	Status        enums.PaymentStatus `json:"status"`
	Amount        money.Cents         `json:"amount"`
	Method        enums.PaymentMethod `json:"method"`
	PaidAt        time.Time           `json:"paidAt"`
	OrderID       uuid.UUID           `json:"orderId"`
	OrderNumber   string              `json:"orderNumber"`
}

type Stats struct {
	TotalPayments int64          `json:"totalPayments"`
	TotalRevenue  money.Cents    `json:"totalRevenue"`
	ByStatus      []Bucket       `json:"paymentsByStatus"`
	ByMethod      []Bucket       `json:"paymentsByMethod"`
	Currency      enums.Currency `json:"currency"`
}

type MethodRevenue struct {
	Method             enums.PaymentMethod `json:"method"`
	TotalRevenue       money.Cents         `json:"totalRevenue"`
	TransactionCount   int64               `json:"transactionCount"`
	AverageTransaction money.Cents         `json:"averageTransaction"`
}

type RevenueByMethodReport struct {
	Items    []MethodRevenue `json:"revenueByMethod"`
	From     *time.Time      `json:"startDate,omitempty"`
	To       *time.Time      `json:"endDate,omitempty"`
	Currency enums.Currency  `json:"currency"`
}

type History struct {
	Payments    []PaymentDTO   `json:"payments"`
	TotalCount  int            `json:"totalCount"`
	TotalAmount money.Cents    `json:"totalAmount"`
	Currency    enums.Currency `json:"currency"`
}

type BulkCreateResult struct {
	Index   int        `json:"index"`
	Success bool       `json:"success"`
	Payment PaymentDTO `json:"payment"`
}

type BulkStatusResult struct {
	PaymentID uuid.UUID           `json:"paymentId"`
	Success   bool                `json:"success"`
	NewStatus enums.PaymentStatus `json:"newStatus"`
}

type BulkCreateOutcome struct {
	Results []BulkCreateResult  `json:"results"`
	Errors  []types.BulkFailure `json:"errors"`
}

type BulkStatusOutcome struct {
	Results []BulkStatusResult  `json:"results"`
	Errors  []types.BulkFailure `json:"errors"`
}

// OverpaymentDetails is attached to OVERPAYMENT_REJECTED errors.
type OverpaymentDetails struct {
	Remaining money.Cents `json:"remaining"`
	Requested money.Cents `json:"requested"`
}

// ToDTO renders a payment. Order fields are filled when the order was preloaded.
func ToDTO(payment *models.Payment) PaymentDTO {
	dto := PaymentDTO{
		ID:            payment.ID,
		OrderID:       payment.OrderID,
		TransactionID: payment.TransactionID,
		Amount:        payment.AmountCents,
		Method:        payment.Method,
		Status:        payment.Status,
		PaidBy:        payment.PaidBy,
		PaidAt:        payment.PaidAt,
		CreatedAt:     payment.CreatedAt,
		UpdatedAt:     payment.UpdatedAt,
	}
	if payment.Order != nil {
		dto.OrderNumber = payment.Order.OrderNumber
		dto.InvoiceNumber = payment.Order.InvoiceNumber
	}
	return dto
}

func toDTOs(rows []models.Payment) []PaymentDTO {
	out := make([]PaymentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, ToDTO(&rows[i]))
	}
	return out
}
