package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/internal/inventory"
	"github.com/digitos-team/masala-software/pkg/config"
	"github.com/digitos-team/masala-software/pkg/db"
	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/metrics"
	"github.com/digitos-team/masala-software/pkg/money"
	"github.com/digitos-team/masala-software/pkg/outbox"
	"github.com/digitos-team/masala-software/pkg/outbox/payloads"
	"github.com/digitos-team/masala-software/pkg/pagination"
	"github.com/digitos-team/masala-software/pkg/types"
)

const (
	defaultReason        = "No reason provided"
	defaultTopProducts   = 10
	maxTopProducts       = 100
	concurrentChangeText = "order was modified concurrently, retry"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the order lifecycle engine. Every method takes the verified
// caller and enforces scoping before touching data.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateOrderInput) (*OrderDTO, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	List(ctx context.Context, actor Actor, params ListOrdersParams) (*OrderList, error)
	ListByUser(ctx context.Context, actor Actor, userID uuid.UUID) ([]OrderDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, input StatusChangeInput) (*OrderDTO, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*OrderDTO, error)
	Return(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*OrderDTO, error)
	BulkUpdateStatus(ctx context.Context, actor Actor, ids []uuid.UUID, status enums.OrderStatus) (*BulkOutcome, error)
	BulkCancel(ctx context.Context, actor Actor, ids []uuid.UUID, reason string) (*BulkOutcome, error)
	Stats(ctx context.Context, actor Actor) (*Stats, error)
	RevenueReport(ctx context.Context, actor Actor, from, to *time.Time) (*RevenueReport, error)
	TopSellingProducts(ctx context.Context, actor Actor, limit int) ([]TopProduct, error)
}

// ServiceParams bundles the collaborators of the order service.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Stock   inventory.Stock
	Metrics *metrics.DomainMetrics
	Logger  *logger.Logger
	Config  config.OrdersConfig
	Clock   func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	stock     inventory.Stock
	metrics   *metrics.DomainMetrics
	logg      *logger.Logger
	currency  enums.Currency
	tolerance money.Cents
	pageSize  int
	now       func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock service required")
	}
	currency, err := enums.ParseCurrency(params.Config.Currency)
	if err != nil {
		return nil, err
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	pageSize := params.Config.DefaultPageSize
	if pageSize <= 0 {
		pageSize = pagination.DefaultLimit
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		outbox:    params.Outbox,
		stock:     params.Stock,
		metrics:   params.Metrics,
		logg:      logg,
		currency:  currency,
		tolerance: money.Cents(params.Config.TotalToleranceCents),
		pageSize:  pageSize,
		now:       func() time.Time { return clock().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateOrderInput) (*OrderDTO, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	status := enums.OrderStatusPlaced
	if input.Status != nil {
		if *input.Status != enums.OrderStatusPlaced && *input.Status != enums.OrderStatusConfirmed {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial status must be placed or confirmed")
		}
		status = *input.Status
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		number, err := nextOrderNumber(ctx, repo, s.now())
		if err != nil {
			return err
		}
		if exists, err := repo.ExistsByOrderNumber(ctx, number); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order number")
		} else if exists {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "order number %s already exists", number)
		}
		invoice := strings.TrimSpace(input.InvoiceNumber)
		if exists, err := repo.ExistsByInvoiceNumber(ctx, invoice, uuid.Nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check invoice number")
		} else if exists {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "invoice number %s already exists", invoice)
		}

		products, err := repo.FindProducts(ctx, productIDs(input.Items))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		lines, err := linesFromInput(input.Items, products, actor.Role)
		if err != nil {
			return err
		}
		quantities := aggregateQuantities(lines)
		if err := checkAvailability(quantities, products); err != nil {
			return err
		}
		quote, err := priceOrder(lines, input.Pricing, s.tolerance)
		if err != nil {
			return err
		}

		order := &models.Order{
			ID:               uuid.New(),
			OrderNumber:      number,
			InvoiceNumber:    invoice,
			PlacedBy:         actor.UserID,
			PlacedByRole:     actor.Role,
			DistributorID:    input.DistributorID,
			SubDistributorID: input.SubDistributorID,
			Currency:         s.currency,
			SubtotalCents:    quote.Subtotal,
			TaxCents:         quote.Tax,
			DiscountCents:    quote.Discount,
			ShippingCents:    quote.Shipping,
			GrandTotalCents:  quote.GrandTotal,
			DeliveryAddress:  strings.TrimSpace(input.Delivery.Address),
			ExpectedDate:     input.Delivery.ExpectedDate,
			TransporterName:  input.Delivery.TransporterName,
			TrackingNumber:   input.Delivery.TrackingNumber,
			Status:           status,
			Notes:            input.Notes,
			Items:            quote.Items,
		}
		for i := range order.Items {
			order.Items[i].ID = uuid.New()
			order.Items[i].OrderID = order.ID
		}
		if err := repo.Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order or invoice number already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := s.reserveStock(ctx, tx, quantities); err != nil {
			return err
		}

		event := payloads.OrderCreatedEvent{
			OrderID:          order.ID,
			OrderNumber:      order.OrderNumber,
			InvoiceNumber:    order.InvoiceNumber,
			PlacedBy:         order.PlacedBy,
			DistributorID:    order.DistributorID,
			SubDistributorID: order.SubDistributorID,
			GrandTotal:       order.GrandTotalCents,
			Currency:         order.Currency,
			Items:            make([]payloads.OrderItem, 0, len(quantities)),
		}
		for _, q := range quantities {
			event.Items = append(event.Items, payloads.OrderItem{ProductID: q.productID, Quantity: q.quantity})
		}
		if err := s.emit(ctx, tx, actor, enums.EventOrderCreated, order.ID, event); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
			s.metrics.StockRejected()
		}
		return nil, err
	}

	s.metrics.OrderCreated(string(actor.Role))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":     created.ID.String(),
		"order_number": created.OrderNumber,
		"grand_total":  created.GrandTotalCents.String(),
	})
	s.logg.Info(logCtx, "order created")

	dto := ToDTO(created)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	order, err := loadOrder(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !CanView(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view this order")
	}
	dto := ToDTO(order)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateOrderInput) (*OrderDTO, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if input.isEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, id)
		if err != nil {
			return err
		}
		if !CanEdit(actor, order) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to update this order")
		}
		if currentStatus(order) != enums.OrderStatusPlaced {
			if input.touchesPricing() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot modify products or pricing after order is confirmed")
			}
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "only placed orders can be updated, order is %s", currentStatus(order))
		}

		updates, err := s.fieldUpdates(ctx, repo, order, input)
		if err != nil {
			return err
		}

		itemsChanged := input.Items != nil
		if input.touchesPricing() {
			quote, err := s.reprice(ctx, tx, repo, order, input)
			if err != nil {
				return err
			}
			if quote.GrandTotal < order.AmountPaidCents {
				return pkgerrors.Newf(pkgerrors.CodeStateConflict,
					"grand total %s cannot drop below amount already paid %s", quote.GrandTotal, order.AmountPaidCents)
			}
			updates["subtotal_cents"] = quote.Subtotal
			updates["tax_cents"] = quote.Tax
			updates["discount_cents"] = quote.Discount
			updates["shipping_cents"] = quote.Shipping
			updates["grand_total_cents"] = quote.GrandTotal
			if itemsChanged {
				if err := repo.ReplaceItems(ctx, order.ID, quote.Items); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace line items")
				}
			}
		}

		ok, err := repo.UpdateWhereStatus(ctx, order.ID, order.Status, updates)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "invoice number already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, concurrentChangeText)
		}

		updated, err = loadOrder(ctx, repo, order.ID)
		if err != nil {
			return err
		}
		return s.emit(ctx, tx, actor, enums.EventOrderUpdated, order.ID, payloads.OrderUpdatedEvent{
			OrderID:      updated.ID,
			OrderNumber:  updated.OrderNumber,
			GrandTotal:   updated.GrandTotalCents,
			ItemsChanged: itemsChanged,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, updated.ID.String()), "order updated")
	dto := ToDTO(updated)
	return &dto, nil
}

// fieldUpdates collects the non-pricing column changes of an update.
func (s *service) fieldUpdates(ctx context.Context, repo Repository, order *models.Order, input UpdateOrderInput) (map[string]any, error) {
	updates := map[string]any{}
	if input.InvoiceNumber != nil {
		invoice := strings.TrimSpace(*input.InvoiceNumber)
		if invoice == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice number must not be empty")
		}
		if invoice != order.InvoiceNumber {
			exists, err := repo.ExistsByInvoiceNumber(ctx, invoice, order.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check invoice number")
			}
			if exists {
				return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "invoice number %s already exists", invoice)
			}
			updates["invoice_number"] = invoice
		}
	}
	if input.DistributorID != nil {
		updates["distributor_id"] = *input.DistributorID
	}
	if input.SubDistributorID != nil {
		updates["sub_distributor_id"] = *input.SubDistributorID
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if patch := input.Delivery; patch != nil {
		if patch.Address != nil {
			address := strings.TrimSpace(*patch.Address)
			if address == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address must not be empty")
			}
			updates["delivery_address"] = address
		}
		if patch.ExpectedDate != nil {
			updates["expected_date"] = *patch.ExpectedDate
		}
		if patch.TransporterName != nil {
			updates["transporter_name"] = *patch.TransporterName
		}
		if patch.TrackingNumber != nil {
			updates["tracking_number"] = *patch.TrackingNumber
		}
	}
	return updates, nil
}

// reprice recomputes pricing for an update. New line items put the previous
// quantities back on the catalog before the new ones are reserved.
func (s *service) reprice(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, input UpdateOrderInput) (*Quote, error) {
	pricing := PricingInput{
		DiscountAmount: order.DiscountCents,
		ShippingCharge: order.ShippingCents,
	}
	if input.Pricing != nil {
		pricing = *input.Pricing
	}

	if input.Items == nil {
		return priceOrder(linesFromSnapshot(order.Items), pricing, s.tolerance)
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product is required")
	}
	if err := validateItems(input.Items); err != nil {
		return nil, err
	}

	if err := s.restoreStock(ctx, tx, order.Items); err != nil {
		return nil, err
	}
	products, err := repo.FindProducts(ctx, productIDs(input.Items))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	lines, err := linesFromInput(input.Items, products, order.PlacedByRole)
	if err != nil {
		return nil, err
	}
	quantities := aggregateQuantities(lines)
	if err := checkAvailability(quantities, products); err != nil {
		return nil, err
	}
	quote, err := priceOrder(lines, pricing, s.tolerance)
	if err != nil {
		return nil, err
	}
	if err := s.reserveStock(ctx, tx, quantities); err != nil {
		return nil, err
	}
	return quote, nil
}

func (s *service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins can delete orders")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, id)
		if err != nil {
			return err
		}
		status := currentStatus(order)
		if status != enums.OrderStatusPlaced && status != enums.OrderStatusCancelled {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "only placed or cancelled orders can be deleted, order is %s", status)
		}
		hasPayments, err := repo.HasPayments(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payments")
		}
		if hasPayments {
			return pkgerrors.New(pkgerrors.CodeConflict, "order has recorded payments")
		}

		deleted, err := repo.DeleteWhereStatus(ctx, order.ID, order.Status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, concurrentChangeText)
		}
		restored := status == enums.OrderStatusPlaced
		if restored {
			if err := s.restoreStock(ctx, tx, order.Items); err != nil {
				return err
			}
		}

		if err := s.emit(ctx, tx, actor, enums.EventOrderDeleted, order.ID, payloads.OrderDeletedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			Status:        status,
			StockRestored: restored,
		}); err != nil {
			return err
		}
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order deleted")
		return nil
	})
}

func (s *service) List(ctx context.Context, actor Actor, params ListOrdersParams) (*OrderList, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if params.From != nil && params.To != nil && params.From.After(*params.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start date must be before end date")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", *params.Status)
	}
	if params.Limit <= 0 {
		params.Limit = s.pageSize
	}
	params.Params = params.Params.Normalize(sortableColumns, "created_at")

	rows, total, err := s.repo.List(ctx, actor, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := &OrderList{
		Items:      make([]OrderDTO, 0, len(rows)),
		Pagination: pagination.NewMeta(params.Params, total),
	}
	for i := range rows {
		out.Items = append(out.Items, ToDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) ListByUser(ctx context.Context, actor Actor, userID uuid.UUID) ([]OrderDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.ListByPlacedBy(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders by user")
	}
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, ToDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, input StatusChangeInput) (*OrderDTO, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	target := input.Status
	if !target.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", target)
	}

	var (
		from    enums.OrderStatus
		updated *models.Order
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, id)
		if err != nil {
			return err
		}
		if !CanChangeStatus(actor, order) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to change the status of this order")
		}

		from = currentStatus(order)
		if err := CanTransition(from, target); err != nil {
			return err
		}

		now := s.now()
		updates := map[string]any{"status": target}
		switch target {
		case enums.OrderStatusShipped, enums.OrderStatusDelivered:
			if input.TransporterName != nil {
				updates["transporter_name"] = *input.TransporterName
			}
			if input.TrackingNumber != nil {
				updates["tracking_number"] = *input.TrackingNumber
			}
			if target == enums.OrderStatusDelivered {
				updates["delivered_at"] = now
			}
		case enums.OrderStatusCancelled:
			updates["is_cancelled"] = true
			updates["cancel_reason"] = reasonOrDefault(input.Reason)
			updates["cancelled_at"] = now
		case enums.OrderStatusReturned:
			updates["is_returned"] = true
			updates["return_reason"] = reasonOrDefault(input.Reason)
			updates["returned_at"] = now
		}

		ok, err := repo.UpdateWhereStatus(ctx, order.ID, order.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, concurrentChangeText)
		}

		switch target {
		case enums.OrderStatusDelivered:
			err = s.creditRecipient(ctx, tx, order)
		case enums.OrderStatusCancelled:
			err = s.restoreStock(ctx, tx, order.Items)
		case enums.OrderStatusReturned:
			if err = s.restoreStock(ctx, tx, order.Items); err == nil {
				err = s.debitRecipient(ctx, tx, order)
			}
		}
		if err != nil {
			return err
		}

		event := payloads.OrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			From:        from,
			To:          target,
			ChangedAt:   now,
		}
		if target == enums.OrderStatusCancelled || target == enums.OrderStatusReturned {
			event.Reason = reasonOrDefault(input.Reason)
		}
		if err := s.emit(ctx, tx, actor, enums.EventOrderStatusChanged, order.ID, event); err != nil {
			return err
		}

		updated, err = loadOrder(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StatusTransition(string(from), string(target))
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, updated.ID.String()), map[string]any{
		"from": string(from),
		"to":   string(target),
	})
	s.logg.Info(logCtx, "order status changed")

	dto := ToDTO(updated)
	return &dto, nil
}

func (s *service) Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*OrderDTO, error) {
	return s.UpdateStatus(ctx, actor, id, StatusChangeInput{
		Status: enums.OrderStatusCancelled,
		Reason: optionalReason(reason),
	})
}

func (s *service) Return(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*OrderDTO, error) {
	return s.UpdateStatus(ctx, actor, id, StatusChangeInput{
		Status: enums.OrderStatusReturned,
		Reason: optionalReason(reason),
	})
}

// BulkUpdateStatus applies the status to each order independently. A failing
// id is reported in Errors and never stops the batch.
func (s *service) BulkUpdateStatus(ctx context.Context, actor Actor, ids []uuid.UUID, status enums.OrderStatus) (*BulkOutcome, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order ids required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", status)
	}
	return s.bulk(ctx, ids, func(id uuid.UUID) (*OrderDTO, error) {
		return s.UpdateStatus(ctx, actor, id, StatusChangeInput{Status: status})
	}), nil
}

func (s *service) BulkCancel(ctx context.Context, actor Actor, ids []uuid.UUID, reason string) (*BulkOutcome, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order ids required")
	}
	return s.bulk(ctx, ids, func(id uuid.UUID) (*OrderDTO, error) {
		return s.Cancel(ctx, actor, id, reason)
	}), nil
}

func (s *service) bulk(ctx context.Context, ids []uuid.UUID, apply func(uuid.UUID) (*OrderDTO, error)) *BulkOutcome {
	outcome := &BulkOutcome{
		Results: make([]BulkResult, 0, len(ids)),
		Errors:  []types.BulkFailure{},
	}
	for i, id := range ids {
		dto, err := apply(id)
		if err != nil {
			outcome.Errors = append(outcome.Errors, types.NewBulkFailure(i, id.String(), err))
			continue
		}
		outcome.Results = append(outcome.Results, BulkResult{ID: id, Success: true, Status: dto.Status})
	}
	if len(outcome.Errors) > 0 {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"succeeded": len(outcome.Results),
			"failed":    len(outcome.Errors),
		})
		s.logg.Warn(logCtx, "bulk order operation partially failed")
	}
	return outcome
}

func (s *service) Stats(ctx context.Context, actor Actor) (*Stats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	revenue, err := s.repo.Revenue(ctx, nil, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum revenue")
	}
	stats := &Stats{
		ByStatus:     counts,
		TotalRevenue: money.Cents(revenue.Total),
		Currency:     s.currency,
	}
	if stats.ByStatus == nil {
		stats.ByStatus = []StatusCount{}
	}
	for _, c := range counts {
		stats.TotalOrders += c.Count
	}
	return stats, nil
}

func (s *service) RevenueReport(ctx context.Context, actor Actor, from, to *time.Time) (*RevenueReport, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start date must be before end date")
	}
	agg, err := s.repo.Revenue(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum revenue")
	}
	report := &RevenueReport{
		From:         from,
		To:           to,
		TotalRevenue: money.Cents(agg.Total),
		OrderCount:   agg.Count,
		Currency:     s.currency,
	}
	if agg.Count > 0 {
		avg := decimal.NewFromInt(agg.Total).DivRound(decimal.NewFromInt(agg.Count), 0)
		report.AverageOrderValue = money.Cents(avg.IntPart())
	}
	return report, nil
}

func (s *service) TopSellingProducts(ctx context.Context, actor Actor, limit int) ([]TopProduct, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTopProducts
	}
	if limit > maxTopProducts {
		limit = maxTopProducts
	}
	rows, err := s.repo.TopProducts(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load top products")
	}
	if rows == nil {
		rows = []TopProduct{}
	}
	return rows, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor Actor, eventType enums.OutboxEventType, orderID uuid.UUID, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func loadOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func requireAdmin(actor Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

func validateCreate(input CreateOrderInput) error {
	if strings.TrimSpace(input.InvoiceNumber) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice number required")
	}
	if strings.TrimSpace(input.Delivery.Address) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one product is required")
	}
	return validateItems(input.Items)
}

func validateItems(items []LineItemInput) error {
	for i, item := range items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: product id required", i+1)
		}
		if item.Quantity <= 0 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: quantity must be positive", i+1)
		}
	}
	return nil
}

func productIDs(items []LineItemInput) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	out := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		out = append(out, item.ProductID)
	}
	return out
}

func reasonOrDefault(reason *string) string {
	if reason == nil || strings.TrimSpace(*reason) == "" {
		return defaultReason
	}
	return strings.TrimSpace(*reason)
}

func optionalReason(reason string) *string {
	if strings.TrimSpace(reason) == "" {
		return nil
	}
	return &reason
}
