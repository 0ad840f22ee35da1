package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/money"
)

// OrderItem is the stock-relevant slice of a line item.
type OrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// OrderCreatedEvent is emitted once an order and its stock decrements commit.
type OrderCreatedEvent struct {
	OrderID          uuid.UUID      `json:"order_id"`
	OrderNumber      string         `json:"order_number"`
	InvoiceNumber    string         `json:"invoice_number"`
	PlacedBy         uuid.UUID      `json:"placed_by"`
	DistributorID    *uuid.UUID     `json:"distributor_id,omitempty"`
	SubDistributorID *uuid.UUID     `json:"sub_distributor_id,omitempty"`
	GrandTotal       money.Cents    `json:"grand_total"`
	Currency         enums.Currency `json:"currency"`
	Items            []OrderItem    `json:"items"`
}

// OrderUpdatedEvent reports an edit made while the order was still placed.
type OrderUpdatedEvent struct {
	OrderID      uuid.UUID   `json:"order_id"`
	OrderNumber  string      `json:"order_number"`
	GrandTotal   money.Cents `json:"grand_total"`
	ItemsChanged bool        `json:"items_changed"`
}

// OrderStatusChangedEvent is emitted for every accepted lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	Reason      string            `json:"reason,omitempty"`
	ChangedAt   time.Time         `json:"changed_at"`
}

// OrderDeletedEvent is emitted when an order row is removed.
type OrderDeletedEvent struct {
	OrderID       uuid.UUID         `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	Status        enums.OrderStatus `json:"status"`
	StockRestored bool              `json:"stock_restored"`
}

// PaymentRecordedEvent is emitted when a payment row is created.
type PaymentRecordedEvent struct {
	PaymentID     uuid.UUID           `json:"payment_id"`
	OrderID       uuid.UUID           `json:"order_id"`
	TransactionID string              `json:"transaction_id"`
	Amount        money.Cents         `json:"amount"`
	Method        enums.PaymentMethod `json:"method"`
	Status        enums.PaymentStatus `json:"status"`
	Remaining     money.Cents         `json:"remaining"`
}

// PaymentUpdatedEvent reports a status or amount change on a payment.
type PaymentUpdatedEvent struct {
	PaymentID      uuid.UUID           `json:"payment_id"`
	OrderID        uuid.UUID           `json:"order_id"`
	PreviousStatus enums.PaymentStatus `json:"previous_status"`
	Status         enums.PaymentStatus `json:"status"`
	Amount         money.Cents         `json:"amount"`
}

// PaymentDeletedEvent is emitted when a non-completed payment is removed.
type PaymentDeletedEvent struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	OrderID       uuid.UUID `json:"order_id"`
	TransactionID string    `json:"transaction_id"`
}

// LowStockEvent flags a catalog product or ledger entry at or under its alert level.
type LowStockEvent struct {
	ProductID     uuid.UUID  `json:"product_id"`
	OwnerID       *uuid.UUID `json:"owner_id,omitempty"`
	Name          string     `json:"name"`
	Stock         int        `json:"stock"`
	MinStockAlert int        `json:"min_stock_alert"`
}
