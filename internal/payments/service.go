package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/internal/orders"
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
	searchLimit         = 20
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service records payments against orders and keeps every order's completed
// total at or below its grand total.
type Service interface {
	Create(ctx context.Context, actor orders.Actor, input CreatePaymentInput) (*PaymentDTO, error)
	Get(ctx context.Context, actor orders.Actor, id uuid.UUID) (*PaymentDTO, error)
	Update(ctx context.Context, actor orders.Actor, id uuid.UUID, input UpdatePaymentInput) (*PaymentDTO, error)
	Delete(ctx context.Context, actor orders.Actor, id uuid.UUID) error
	List(ctx context.Context, actor orders.Actor, params ListPaymentsParams) (*PaymentList, error)
	SearchByTransactionID(ctx context.Context, actor orders.Actor, term string) ([]PaymentDTO, error)
	OrderSummary(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*OrderSummary, error)
	Verify(ctx context.Context, actor orders.Actor, transactionID string) (*Verification, error)
	Stats(ctx context.Context, actor orders.Actor) (*Stats, error)
	RevenueByMethod(ctx context.Context, actor orders.Actor, from, to *time.Time) (*RevenueByMethodReport, error)
	History(ctx context.Context, actor orders.Actor, params HistoryParams) (*History, error)
	BulkCreate(ctx context.Context, actor orders.Actor, inputs []CreatePaymentInput) (*BulkCreateOutcome, error)
	BulkUpdateStatus(ctx context.Context, actor orders.Actor, ids []uuid.UUID, status string) (*BulkStatusOutcome, error)
}

type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Metrics *metrics.DomainMetrics
	Logger  *logger.Logger
	Config  config.OrdersConfig
	Clock   func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	metrics  *metrics.DomainMetrics
	logg     *logger.Logger
	currency enums.Currency
	pageSize int
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
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
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     logg,
		currency: currency,
		pageSize: pageSize,
		now:      func() time.Time { return clock().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, actor orders.Actor, input CreatePaymentInput) (*PaymentDTO, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	transactionID := strings.TrimSpace(input.TransactionID)
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	method, err := parseMethod(input.Method)
	if err != nil {
		return nil, err
	}
	status, err := parseStatus(input.Status)
	if err != nil {
		return nil, err
	}
	requested := input.Amount
	if requested != nil && *requested == 0 {
		requested = nil
	}
	if requested != nil && *requested < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}

	var created *models.Payment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !orders.CanView(actor, order) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to record payments for this order")
		}
		if exists, err := repo.ExistsByTransactionID(ctx, transactionID, uuid.Nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check transaction id")
		} else if exists {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "payment with transaction id %s already exists", transactionID)
		}

		remaining := order.RemainingCents()
		if remaining <= 0 {
			return pkgerrors.New(pkgerrors.CodeOverpayment, "order is already fully paid").
				WithDetails(OverpaymentDetails{Remaining: remaining})
		}
		amount := remaining
		if requested != nil {
			if *requested > remaining {
				return overpayment(remaining, *requested)
			}
			amount = *requested
		}

		payment := &models.Payment{
			ID:            uuid.New(),
			OrderID:       order.ID,
			TransactionID: transactionID,
			AmountCents:   amount,
			Method:        method,
			Status:        status,
			PaidBy:        actor.UserID,
			PaidAt:        s.now(),
		}
		if err := repo.Create(ctx, payment); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment with this transaction id already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		if payment.IsCompleted() {
			if err := s.addPaid(ctx, repo, order, amount); err != nil {
				return err
			}
			remaining -= amount
		}

		if err := s.emit(ctx, tx, actor, enums.EventPaymentRecorded, payment.ID, payloads.PaymentRecordedEvent{
			PaymentID:     payment.ID,
			OrderID:       order.ID,
			TransactionID: payment.TransactionID,
			Amount:        payment.AmountCents,
			Method:        payment.Method,
			Status:        payment.Status,
			Remaining:     remaining,
		}); err != nil {
			return err
		}
		payment.Order = order
		created = payment
		return nil
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeOverpayment) {
			s.metrics.OverpaymentRejected()
		}
		return nil, err
	}

	s.metrics.PaymentRecorded(string(created.Method), string(created.Status))
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, created.OrderID.String()), map[string]any{
		"payment_id": created.ID.String(),
		"amount":     created.AmountCents.String(),
		"status":     string(created.Status),
	})
	s.logg.Info(logCtx, "payment recorded")

	dto := ToDTO(created)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, actor orders.Actor, id uuid.UUID) (*PaymentDTO, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	payment, err := loadPayment(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !orders.CanView(actor, payment.Order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view this payment")
	}
	dto := ToDTO(payment)
	return &dto, nil
}

// Update edits a payment. Moving into or out of Completed adjusts the
// order's paid total in the same transaction.
func (s *service) Update(ctx context.Context, actor orders.Actor, id uuid.UUID, input UpdatePaymentInput) (*PaymentDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if input.isEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	var updated *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := loadPayment(ctx, repo, id)
		if err != nil {
			return err
		}
		previous := payment.Status
		updates := map[string]any{}

		amount := payment.AmountCents
		if input.Amount != nil && *input.Amount != payment.AmountCents {
			if payment.IsCompleted() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot modify amount for completed payments")
			}
			if *input.Amount <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
			}
			amount = *input.Amount
			updates["amount_cents"] = amount
		}
		status := payment.Status
		if input.Status != nil {
			if status, err = parseStatus(*input.Status); err != nil {
				return err
			}
			updates["status"] = status
		}
		if input.Method != nil {
			method, err := parseMethod(*input.Method)
			if err != nil {
				return err
			}
			updates["method"] = method
		}
		if input.TransactionID != nil {
			transactionID := strings.TrimSpace(*input.TransactionID)
			if transactionID == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "transaction id must not be empty")
			}
			if transactionID != payment.TransactionID {
				exists, err := repo.ExistsByTransactionID(ctx, transactionID, payment.ID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check transaction id")
				}
				if exists {
					return pkgerrors.Newf(pkgerrors.CodeConflict, "payment with transaction id %s already exists", transactionID)
				}
				updates["transaction_id"] = transactionID
			}
		}
		if input.PaidAt != nil {
			updates["paid_at"] = input.PaidAt.UTC()
		}

		ok, err := repo.UpdateWhereStatus(ctx, payment.ID, previous, updates)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment with this transaction id already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment was modified concurrently, retry")
		}

		wasCompleted := previous == enums.PaymentStatusCompleted
		isCompleted := status == enums.PaymentStatusCompleted
		switch {
		case !wasCompleted && isCompleted:
			order, err := loadOrder(ctx, repo, payment.OrderID)
			if err != nil {
				return err
			}
			if err := s.addPaid(ctx, repo, order, amount); err != nil {
				return err
			}
		case wasCompleted && !isCompleted:
			if err := repo.SubtractPaid(ctx, payment.OrderID, payment.AmountCents); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release paid amount")
			}
		}

		if err := s.emit(ctx, tx, actor, enums.EventPaymentUpdated, payment.ID, payloads.PaymentUpdatedEvent{
			PaymentID:      payment.ID,
			OrderID:        payment.OrderID,
			PreviousStatus: previous,
			Status:         status,
			Amount:         amount,
		}); err != nil {
			return err
		}

		updated, err = loadPayment(ctx, repo, payment.ID)
		return err
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeOverpayment) {
			s.metrics.OverpaymentRejected()
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "payment_id", updated.ID.String()), "payment updated")
	dto := ToDTO(updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, actor orders.Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := loadPayment(ctx, repo, id)
		if err != nil {
			return err
		}
		if payment.IsCompleted() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot delete completed payments")
		}
		deleted, err := repo.DeleteWhereStatus(ctx, payment.ID, payment.Status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment was modified concurrently, retry")
		}
		return s.emit(ctx, tx, actor, enums.EventPaymentDeleted, payment.ID, payloads.PaymentDeletedEvent{
			PaymentID:     payment.ID,
			OrderID:       payment.OrderID,
			TransactionID: payment.TransactionID,
		})
	})
}

func (s *service) List(ctx context.Context, actor orders.Actor, params ListPaymentsParams) (*PaymentList, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := checkRange(params.From, params.To); err != nil {
		return nil, err
	}
	if params.Limit <= 0 {
		params.Limit = s.pageSize
	}
	params.Params = params.Params.Normalize(sortableColumns, "created_at")

	rows, total, err := s.repo.List(ctx, actor, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return &PaymentList{
		Items:      toDTOs(rows),
		Pagination: pagination.NewMeta(params.Params, total),
	}, nil
}

func (s *service) SearchByTransactionID(ctx context.Context, actor orders.Actor, term string) ([]PaymentDTO, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search term is required")
	}
	rows, err := s.repo.Search(ctx, actor, term, searchLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search payments")
	}
	return toDTOs(rows), nil
}

func (s *service) OrderSummary(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*OrderSummary, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	order, err := loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if !orders.CanView(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view payments for this order")
	}
	rows, err := s.repo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order payments")
	}
	buckets, err := s.repo.SummarizeByStatus(ctx, &order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize order payments")
	}

	summary := &OrderSummary{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OrderTotal:  order.GrandTotalCents,
		ByStatus:    nonNilBuckets(buckets),
		Payments:    toDTOs(rows),
		Currency:    s.currency,
	}
	for _, b := range buckets {
		if b.Key == string(enums.PaymentStatusCompleted) {
			summary.TotalPaid = b.TotalAmount
			summary.PaymentCount = b.Count
		}
	}
	summary.Remaining = summary.OrderTotal - summary.TotalPaid
	return summary, nil
}

func (s *service) Verify(ctx context.Context, actor orders.Actor, transactionID string) (*Verification, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	payment, err := s.repo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if !orders.CanView(actor, payment.Order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	out := &Verification{
		PaymentID:     payment.ID,
		TransactionID: payment.TransactionID,
		Status:        payment.Status,
		Amount:        payment.AmountCents,
		Method:        payment.Method,
		PaidAt:        payment.PaidAt,
		OrderID:       payment.OrderID,
	}
	if payment.Order != nil {
		out.OrderNumber = payment.Order.OrderNumber
	}
	return out, nil
}

func (s *service) Stats(ctx context.Context, actor orders.Actor) (*Stats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	byStatus, err := s.repo.SummarizeByStatus(ctx, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize payments by status")
	}
	byMethod, err := s.repo.SummarizeByMethod(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize payments by method")
	}
	stats := &Stats{
		ByStatus: nonNilBuckets(byStatus),
		ByMethod: nonNilBuckets(byMethod),
		Currency: s.currency,
	}
	for _, b := range byStatus {
		stats.TotalPayments += b.Count
		if b.Key == string(enums.PaymentStatusCompleted) {
			stats.TotalRevenue = b.TotalAmount
		}
	}
	return stats, nil
}

func (s *service) RevenueByMethod(ctx context.Context, actor orders.Actor, from, to *time.Time) (*RevenueByMethodReport, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	buckets, err := s.repo.RevenueByMethod(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revenue by method")
	}
	report := &RevenueByMethodReport{
		Items:    make([]MethodRevenue, 0, len(buckets)),
		From:     from,
		To:       to,
		Currency: s.currency,
	}
	for _, b := range buckets {
		item := MethodRevenue{
			Method:           enums.PaymentMethod(b.Key),
			TotalRevenue:     b.TotalAmount,
			TransactionCount: b.Count,
		}
		if b.Count > 0 {
			avg := decimal.NewFromInt(int64(b.TotalAmount)).DivRound(decimal.NewFromInt(b.Count), 0)
			item.AverageTransaction = money.Cents(avg.IntPart())
		}
		report.Items = append(report.Items, item)
	}
	return report, nil
}

func (s *service) History(ctx context.Context, actor orders.Actor, params HistoryParams) (*History, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := checkRange(params.From, params.To); err != nil {
		return nil, err
	}
	if params.Limit <= 0 {
		params.Limit = defaultHistoryLimit
	}
	if params.Limit > maxHistoryLimit {
		params.Limit = maxHistoryLimit
	}
	rows, total, err := s.repo.History(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment history")
	}
	return &History{
		Payments:    toDTOs(rows),
		TotalCount:  len(rows),
		TotalAmount: total,
		Currency:    s.currency,
	}, nil
}

// BulkCreate records each payment independently; failures are collected per
// entry and never abort the batch.
func (s *service) BulkCreate(ctx context.Context, actor orders.Actor, inputs []CreatePaymentInput) (*BulkCreateOutcome, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payments array is required")
	}
	outcome := &BulkCreateOutcome{
		Results: make([]BulkCreateResult, 0, len(inputs)),
		Errors:  []types.BulkFailure{},
	}
	for i, input := range inputs {
		payment, err := s.Create(ctx, actor, input)
		if err != nil {
			outcome.Errors = append(outcome.Errors, types.NewBulkFailure(i, input.TransactionID, err))
			continue
		}
		outcome.Results = append(outcome.Results, BulkCreateResult{Index: i, Success: true, Payment: *payment})
	}
	return outcome, nil
}

func (s *service) BulkUpdateStatus(ctx context.Context, actor orders.Actor, ids []uuid.UUID, status string) (*BulkStatusOutcome, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment ids array is required")
	}
	parsed, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	canonical := string(parsed)
	outcome := &BulkStatusOutcome{
		Results: make([]BulkStatusResult, 0, len(ids)),
		Errors:  []types.BulkFailure{},
	}
	for i, id := range ids {
		payment, err := s.Update(ctx, actor, id, UpdatePaymentInput{Status: &canonical})
		if err != nil {
			outcome.Errors = append(outcome.Errors, types.NewBulkFailure(i, id.String(), err))
			continue
		}
		outcome.Results = append(outcome.Results, BulkStatusResult{PaymentID: id, Success: true, NewStatus: payment.Status})
	}
	return outcome, nil
}

// addPaid moves the order's paid total. The conditional update is what
// enforces the ceiling when two payments race for the same balance.
func (s *service) addPaid(ctx context.Context, repo Repository, order *models.Order, amount money.Cents) error {
	ok, err := repo.AddPaid(ctx, order.ID, amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply paid amount")
	}
	if !ok {
		return overpayment(order.RemainingCents(), amount)
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor orders.Actor, eventType enums.OutboxEventType, paymentID uuid.UUID, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayment,
		AggregateID:   paymentID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func overpayment(remaining, requested money.Cents) error {
	return pkgerrors.Newf(pkgerrors.CodeOverpayment, "payment amount exceeds remaining balance, remaining: %s", remaining).
		WithDetails(OverpaymentDetails{Remaining: remaining, Requested: requested})
}

func loadOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func loadPayment(ctx context.Context, repo Repository, id uuid.UUID) (*models.Payment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	payment, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

func requireAdmin(actor orders.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

func parseStatus(value string) (enums.PaymentStatus, error) {
	status, err := enums.ParsePaymentStatus(value)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status")
	}
	return status, nil
}

func parseMethod(value string) (enums.PaymentMethod, error) {
	method, err := enums.ParsePaymentMethod(value)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	return method, nil
}

func checkRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return pkgerrors.New(pkgerrors.CodeValidation, "start date must be before end date")
	}
	return nil
}

func nonNilBuckets(in []Bucket) []Bucket {
	if in == nil {
		return []Bucket{}
	}
	return in
}
