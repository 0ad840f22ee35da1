package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/money"
	"github.com/digitos-team/masala-software/pkg/pagination"
	"github.com/digitos-team/masala-software/pkg/types"
)

// LineItemInput requests quantity units of a catalog product. UnitPrice
// overrides the role price when set.
type LineItemInput struct {
	ProductID uuid.UUID    `json:"productId" validate:"required"`
	Quantity  int          `json:"quantity" validate:"required,gt=0"`
	UnitPrice *money.Cents `json:"unitPrice,omitempty"`
}

// PricingInput carries the caller's adjustments and optional expected totals.
type PricingInput struct {
	SubTotal       *money.Cents `json:"subTotal,omitempty"`
	TaxAmount      *money.Cents `json:"taxAmount,omitempty"`
	DiscountAmount money.Cents  `json:"discountAmount"`
	ShippingCharge money.Cents  `json:"shippingCharge"`
	GrandTotal     *money.Cents `json:"grandTotal,omitempty"`
}

type DeliveryInput struct {
	Address         string     `json:"address" validate:"required"`
	ExpectedDate    *time.Time `json:"expectedDate,omitempty"`
	TransporterName *string    `json:"transporterName,omitempty"`
	TrackingNumber  *string    `json:"trackingNumber,omitempty"`
}

type CreateOrderInput struct {
	InvoiceNumber    string             `json:"invoiceNumber" validate:"required"`
	DistributorID    *uuid.UUID         `json:"distributorId,omitempty"`
	SubDistributorID *uuid.UUID         `json:"subDistributorId,omitempty"`
	Items            []LineItemInput    `json:"products" validate:"required,min=1,dive"`
	Pricing          PricingInput       `json:"pricing"`
	Delivery         DeliveryInput      `json:"delivery"`
	Status           *enums.OrderStatus `json:"status,omitempty"`
	Notes            *string            `json:"notes,omitempty"`
}

// DeliveryPatch edits delivery fields; nil fields are left untouched.
type DeliveryPatch struct {
	Address         *string    `json:"address,omitempty"`
	ExpectedDate    *time.Time `json:"expectedDate,omitempty"`
	TransporterName *string    `json:"transporterName,omitempty"`
	TrackingNumber  *string    `json:"trackingNumber,omitempty"`
}

// UpdateOrderInput edits a placed order. Items, when present, replace the
// existing line items wholesale.
type UpdateOrderInput struct {
	InvoiceNumber    *string         `json:"invoiceNumber,omitempty"`
	DistributorID    *uuid.UUID      `json:"distributorId,omitempty"`
	SubDistributorID *uuid.UUID      `json:"subDistributorId,omitempty"`
	Items            []LineItemInput `json:"products,omitempty" validate:"omitempty,min=1,dive"`
	Pricing          *PricingInput   `json:"pricing,omitempty"`
	Delivery         *DeliveryPatch  `json:"delivery,omitempty"`
	Notes            *string         `json:"notes,omitempty"`
}

func (in UpdateOrderInput) touchesPricing() bool {
	return in.Items != nil || in.Pricing != nil
}

func (in UpdateOrderInput) isEmpty() bool {
	return in.InvoiceNumber == nil && in.DistributorID == nil && in.SubDistributorID == nil &&
		in.Items == nil && in.Pricing == nil && in.Delivery == nil && in.Notes == nil
}

// StatusChangeInput moves an order through its lifecycle.
type StatusChangeInput struct {
	Status          enums.OrderStatus `json:"status" validate:"required"`
	Reason          *string           `json:"reason,omitempty"`
	TransporterName *string           `json:"transporterName,omitempty"`
	TrackingNumber  *string           `json:"trackingNumber,omitempty"`
}

type ListOrdersParams struct {
	pagination.Params
	Status           *enums.OrderStatus
	From             *time.Time
	To               *time.Time
	DistributorID    *uuid.UUID
	SubDistributorID *uuid.UUID
	PlacedBy         *uuid.UUID
	Search           string
}

var sortableColumns = map[string]string{
	"createdAt":         "created_at",
	"created_at":        "created_at",
	"updatedAt":         "updated_at",
	"updated_at":        "updated_at",
	"orderNumber":       "order_number",
	"order_number":      "order_number",
	"Orderno":           "order_number",
	"invoiceNumber":     "invoice_number",
	"invoice_number":    "invoice_number",
	"grandTotal":        "grand_total_cents",
	"grand_total":       "grand_total_cents",
	"grand_total_cents": "grand_total_cents",
	"status":            "status",
}

type LineItemDTO struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"productId"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	Quantity      int             `json:"quantity"`
	UnitPrice     money.Cents     `json:"unitPrice"`
	TaxPercentage decimal.Decimal `json:"taxPercentage"`
	TaxAmount     money.Cents     `json:"taxAmount"`
	LineTotal     money.Cents     `json:"lineTotal"`
}

type PricingDTO struct {
	SubTotal       money.Cents `json:"subTotal"`
	TaxAmount      money.Cents `json:"taxAmount"`
	DiscountAmount money.Cents `json:"discountAmount"`
	ShippingCharge money.Cents `json:"shippingCharge"`
	GrandTotal     money.Cents `json:"grandTotal"`
	AmountPaid     money.Cents `json:"amountPaid"`
	Remaining      money.Cents `json:"remaining"`
}

type DeliveryDTO struct {
	Address         string     `json:"address"`
	ExpectedDate    *time.Time `json:"expectedDate,omitempty"`
	DeliveredAt     *time.Time `json:"deliveredAt,omitempty"`
	TransporterName *string    `json:"transporterName,omitempty"`
	TrackingNumber  *string    `json:"trackingNumber,omitempty"`
}

type OrderDTO struct {
	ID               uuid.UUID         `json:"id"`
	OrderNumber      string            `json:"orderNumber"`
	InvoiceNumber    string            `json:"invoiceNumber"`
	PlacedBy         uuid.UUID         `json:"placedBy"`
	PlacedByRole     enums.Role        `json:"placedByRole"`
	DistributorID    *uuid.UUID        `json:"distributorId,omitempty"`
	SubDistributorID *uuid.UUID        `json:"subDistributorId,omitempty"`
	Items            []LineItemDTO     `json:"products"`
	Pricing          PricingDTO        `json:"pricing"`
	Currency         enums.Currency    `json:"currency"`
	Delivery         DeliveryDTO       `json:"delivery"`
	Status           enums.OrderStatus `json:"status"`
	IsCancelled      bool              `json:"isCancelled"`
	CancelReason     *string           `json:"cancelReason,omitempty"`
	CancelledAt      *time.Time        `json:"cancelledAt,omitempty"`
	IsReturned       bool              `json:"isReturned"`
	ReturnReason     *string           `json:"returnReason,omitempty"`
	ReturnedAt       *time.Time        `json:"returnedAt,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

type OrderList struct {
	Items      []OrderDTO      `json:"items"`
	Pagination pagination.Meta `json:"pagination"`
}

// BulkResult is one successful entry of a bulk order operation.
type BulkResult struct {
	ID      uuid.UUID         `json:"id"`
	Success bool              `json:"success"`
	Status  enums.OrderStatus `json:"status"`
}

type BulkOutcome struct {
	Results []BulkResult        `json:"results"`
	Errors  []types.BulkFailure `json:"errors"`
}

type StatusCount struct {
	Status enums.OrderStatus `json:"status"`
	Count  int64             `json:"count"`
}

type Stats struct {
	TotalOrders  int64          `json:"totalOrders"`
	ByStatus     []StatusCount  `json:"ordersByStatus"`
	TotalRevenue money.Cents    `json:"totalRevenue"`
	Currency     enums.Currency `json:"currency"`
}

type RevenueReport struct {
	From              *time.Time     `json:"startDate,omitempty"`
	To                *time.Time     `json:"endDate,omitempty"`
	TotalRevenue      money.Cents    `json:"totalRevenue"`
	OrderCount        int64          `json:"orderCount"`
	AverageOrderValue money.Cents    `json:"averageOrderValue"`
	Currency          enums.Currency `json:"currency"`
}

type TopProduct struct {
	ProductID         uuid.UUID   `json:"productId"`
	ProductName       string      `json:"productName"`
	TotalQuantitySold int64       `json:"totalQuantitySold"`
	TotalRevenue      money.Cents `json:"totalRevenue"`
}

// ToDTO renders an order for API responses.
func ToDTO(order *models.Order) OrderDTO {
	items := make([]LineItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemDTO{
			ID:            item.ID,
			ProductID:     item.ProductID,
			Name:          item.Name,
			Unit:          item.Unit,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPriceCents,
			TaxPercentage: item.TaxPercentage,
			TaxAmount:     item.TaxCents,
			LineTotal:     item.LineTotalCents,
		})
	}
	return OrderDTO{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		InvoiceNumber:    order.InvoiceNumber,
		PlacedBy:         order.PlacedBy,
		PlacedByRole:     order.PlacedByRole,
		DistributorID:    order.DistributorID,
		SubDistributorID: order.SubDistributorID,
		Items:            items,
		Pricing: PricingDTO{
			SubTotal:       order.SubtotalCents,
			TaxAmount:      order.TaxCents,
			DiscountAmount: order.DiscountCents,
			ShippingCharge: order.ShippingCents,
			GrandTotal:     order.GrandTotalCents,
			AmountPaid:     order.AmountPaidCents,
			Remaining:      order.RemainingCents(),
		},
		Currency: order.Currency,
		Delivery: DeliveryDTO{
			Address:         order.DeliveryAddress,
			ExpectedDate:    order.ExpectedDate,
			DeliveredAt:     order.DeliveredAt,
			TransporterName: order.TransporterName,
			TrackingNumber:  order.TrackingNumber,
		},
		Status:       order.Status,
		IsCancelled:  order.IsCancelled,
		CancelReason: order.CancelReason,
		CancelledAt:  order.CancelledAt,
		IsReturned:   order.IsReturned,
		ReturnReason: order.ReturnReason,
		ReturnedAt:   order.ReturnedAt,
		Notes:        order.Notes,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
}
