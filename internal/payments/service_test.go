package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/internal/orders"
	"github.com/digitos-team/masala-software/pkg/config"
	"github.com/digitos-team/masala-software/pkg/db/dbtest"
	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/metrics"
	"github.com/digitos-team/masala-software/pkg/money"
	"github.com/digitos-team/masala-software/pkg/outbox"
)

var fixedNow = time.Date(2026, time.April, 2, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc         Service
	db          *gorm.DB
	admin       orders.Actor
	distributor orders.Actor
	retailer    orders.Actor
	seq         int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.OpenClient(t, "payments")
	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(conn),
		Tx:      client,
		Outbox:  outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Metrics: metrics.NewDomainMetrics(prometheus.NewRegistry()),
		Logger:  logger.Nop(),
		Config:  config.OrdersConfig{Currency: "INR", DefaultPageSize: 10, MaxPageSize: 100},
		Clock:   func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return &fixture{
		svc:         svc,
		db:          conn,
		admin:       orders.Actor{UserID: uuid.New(), Role: enums.RoleAdmin},
		distributor: orders.Actor{UserID: uuid.New(), Role: enums.RoleDistributor},
		retailer:    orders.Actor{UserID: uuid.New(), Role: enums.RoleRetailer},
	}
}

// seedOrder inserts a placed order from the retailer to the distributor.
func (f *fixture) seedOrder(t *testing.T, grandTotal money.Cents) *models.Order {
	t.Helper()
	f.seq++
	distributor := f.distributor.UserID
	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     fmt.Sprintf("ORD-2026-%03d", f.seq),
		InvoiceNumber:   fmt.Sprintf("INV-%04d", f.seq),
		PlacedBy:        f.retailer.UserID,
		PlacedByRole:    enums.RoleRetailer,
		DistributorID:   &distributor,
		Currency:        enums.CurrencyINR,
		SubtotalCents:   grandTotal,
		GrandTotalCents: grandTotal,
		DeliveryAddress: "4 Mandi Lane, Nashik",
		Status:          enums.OrderStatusPlaced,
	}
	require.NoError(t, f.db.Create(order).Error)
	return order
}

func (f *fixture) paidOf(t *testing.T, orderID uuid.UUID) money.Cents {
	t.Helper()
	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", orderID).Error)
	return order.AmountPaidCents
}

func (f *fixture) pay(t *testing.T, orderID uuid.UUID, amount money.Cents, status, txn string) *PaymentDTO {
	t.Helper()
	payment, err := f.svc.Create(context.Background(), f.admin, CreatePaymentInput{
		OrderID:       orderID,
		Amount:        &amount,
		Method:        "upi",
		Status:        status,
		TransactionID: txn,
	})
	require.NoError(t, err)
	return payment
}

func cents(v money.Cents) *money.Cents { return &v }

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func TestCreateRejectsOverpayment(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 1000)

	f.pay(t, order.ID, 600, "Completed", "TXN-1")
	assert.Equal(t, money.Cents(600), f.paidOf(t, order.ID))

	_, err := f.svc.Create(context.Background(), f.admin, CreatePaymentInput{
		OrderID:       order.ID,
		Amount:        cents(500),
		Method:        "Cash",
		Status:        "Completed",
		TransactionID: "TXN-2",
	})
	requireCode(t, err, pkgerrors.CodeOverpayment)
	details, ok := pkgerrors.As(err).Details().(OverpaymentDetails)
	require.True(t, ok)
	assert.Equal(t, money.Cents(400), details.Remaining)
	assert.Equal(t, money.Cents(500), details.Requested)
	assert.Equal(t, money.Cents(600), f.paidOf(t, order.ID))

	var count int64
	require.NoError(t, f.db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateWithoutAmountSettlesRemaining(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 1000)

	payment, err := f.svc.Create(context.Background(), f.retailer, CreatePaymentInput{
		OrderID:       order.ID,
		Method:        "net banking",
		Status:        "completed",
		TransactionID: "NB-778",
	})
	require.NoError(t, err)
	assert.Equal(t, money.Cents(1000), payment.Amount)
	assert.Equal(t, enums.PaymentMethodNetBanking, payment.Method)
	assert.Equal(t, enums.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, fixedNow, payment.PaidAt)
	assert.Equal(t, money.Cents(1000), f.paidOf(t, order.ID))

	_, err = f.svc.Create(context.Background(), f.retailer, CreatePaymentInput{
		OrderID:       order.ID,
		Method:        "Cash",
		Status:        "Pending",
		TransactionID: "CASH-1",
	})
	requireCode(t, err, pkgerrors.CodeOverpayment)
	assert.Contains(t, err.Error(), "already fully paid")
}

func TestZeroAmountSettlesRemaining(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 1000)
	f.pay(t, order.ID, 400, "Completed", "UPI-1")

	payment, err := f.svc.Create(context.Background(), f.retailer, CreatePaymentInput{
		OrderID:       order.ID,
		Amount:        cents(0),
		Method:        "UPI",
		Status:        "Completed",
		TransactionID: "UPI-2",
	})
	require.NoError(t, err)
	assert.Equal(t, money.Cents(600), payment.Amount)
	assert.Equal(t, money.Cents(1000), f.paidOf(t, order.ID))
}

func TestCreateStampsServiceClock(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 1000)

	payment, err := f.svc.Create(context.Background(), f.retailer, CreatePaymentInput{
		OrderID:       order.ID,
		Amount:        cents(250),
		Method:        "Cash",
		Status:        "Completed",
		TransactionID: "CASH-77",
	})
	require.NoError(t, err)
	assert.Equal(t, fixedNow, payment.PaidAt)

	var stored models.Payment
	require.NoError(t, f.db.First(&stored, "id = ?", payment.ID).Error)
	assert.True(t, fixedNow.Equal(stored.PaidAt), "stored paid_at %v", stored.PaidAt)

	// a client-chosen timestamp is not part of the create contract
	dec := json.NewDecoder(strings.NewReader(`{"orderId":"` + order.ID.String() +
		`","method":"Cash","paymentStatus":"Completed","transactionId":"CASH-78","paidAt":"2001-01-01T00:00:00Z"}`))
	dec.DisallowUnknownFields()
	var input CreatePaymentInput
	assert.Error(t, dec.Decode(&input))
}

func TestPendingPaymentDoesNotMovePaidTotal(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 1000)

	f.pay(t, order.ID, 300, "Pending", "P-1")
	assert.Equal(t, money.Cents(0), f.paidOf(t, order.ID))
}

func TestCreateRejectsDuplicateTransactionID(t *testing.T) {
	f := newFixture(t)
	first := f.seedOrder(t, 1000)
	second := f.seedOrder(t, 1000)

	f.pay(t, first.ID, 100, "Completed", "DUP-1")
	_, err := f.svc.Create(context.Background(), f.admin, CreatePaymentInput{
		OrderID:       second.ID,
		Amount:        cents(100),
		Method:        "Card",
		Status:        "Completed",
		TransactionID: " DUP-1 ",
	})
	requireCode(t, err, pkgerrors.CodeConflict)
	assert.Equal(t, money.Cents(0), f.paidOf(t, second.ID))
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 1000)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreatePaymentInput
		code  pkgerrors.Code
	}{
		{"missing order", CreatePaymentInput{Method: "UPI", Status: "Pending", TransactionID: "A"}, pkgerrors.CodeValidation},
		{"missing transaction", CreatePaymentInput{OrderID: order.ID, Method: "UPI", Status: "Pending"}, pkgerrors.CodeValidation},
		{"bad method", CreatePaymentInput{OrderID: order.ID, Method: "cheque", Status: "Pending", TransactionID: "A"}, pkgerrors.CodeValidation},
		{"bad status", CreatePaymentInput{OrderID: order.ID, Method: "UPI", Status: "settled", TransactionID: "A"}, pkgerrors.CodeValidation},
		{"negative amount", CreatePaymentInput{OrderID: order.ID, Amount: cents(-50), Method: "UPI", Status: "Pending", TransactionID: "A"}, pkgerrors.CodeValidation},
		{"unknown order", CreatePaymentInput{OrderID: uuid.New(), Method: "UPI", Status: "Pending", TransactionID: "A"}, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.admin, tc.input)
			requireCode(t, err, tc.code)
		})
	}
}

func TestCreateRequiresOrderParticipant(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 1000)
	stranger := orders.Actor{UserID: uuid.New(), Role: enums.RoleRetailer}

	_, err := f.svc.Create(context.Background(), stranger, CreatePaymentInput{
		OrderID:       order.ID,
		Method:        "UPI",
		Status:        "Completed",
		TransactionID: "S-1",
	})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestConcurrentPaymentsNeverExceedGrandTotal(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 1000)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), f.admin, CreatePaymentInput{
				OrderID:       order.ID,
				Amount:        cents(300),
				Method:        "UPI",
				Status:        "Completed",
				TransactionID: fmt.Sprintf("RACE-%d", i),
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeOverpayment), "unexpected error: %v", err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, money.Cents(900), f.paidOf(t, order.ID))
}

func TestUpdateStatusMovesPaidTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, 1000)
	payment := f.pay(t, order.ID, 400, "Pending", "U-1")

	completed := "Completed"
	updated, err := f.svc.Update(ctx, f.admin, payment.ID, UpdatePaymentInput{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, updated.Status)
	assert.Equal(t, money.Cents(400), f.paidOf(t, order.ID))

	refunded := "refunded"
	updated, err = f.svc.Update(ctx, f.admin, payment.ID, UpdatePaymentInput{Status: &refunded})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusRefunded, updated.Status)
	assert.Equal(t, money.Cents(0), f.paidOf(t, order.ID))
}

func TestUpdateToCompletedRespectsCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, 1000)
	f.pay(t, order.ID, 800, "Completed", "C-1")
	pending := f.pay(t, order.ID, 200, "Pending", "C-2")

	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("grand_total_cents", 900).Error)

	completed := "Completed"
	_, err := f.svc.Update(ctx, f.admin, pending.ID, UpdatePaymentInput{Status: &completed})
	requireCode(t, err, pkgerrors.CodeOverpayment)

	reloaded, err := f.svc.Get(ctx, f.admin, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, reloaded.Status)
	assert.Equal(t, money.Cents(800), f.paidOf(t, order.ID))
}

func TestCompletedPaymentAmountIsFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, 1000)
	payment := f.pay(t, order.ID, 500, "Completed", "F-1")

	_, err := f.svc.Update(ctx, f.admin, payment.ID, UpdatePaymentInput{Amount: cents(450)})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	same, err := f.svc.Update(ctx, f.admin, payment.ID, UpdatePaymentInput{Amount: cents(500), Method: strPtr("cash")})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodCash, same.Method)
}

func TestUpdateRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 1000)
	payment := f.pay(t, order.ID, 100, "Pending", "R-1")

	_, err := f.svc.Update(context.Background(), f.retailer, payment.ID, UpdatePaymentInput{Method: strPtr("Cash")})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Update(context.Background(), f.admin, payment.ID, UpdatePaymentInput{})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateTransactionIDMustStayUnique(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 1000)
	f.pay(t, order.ID, 100, "Pending", "T-1")
	second := f.pay(t, order.ID, 100, "Pending", "T-2")

	_, err := f.svc.Update(context.Background(), f.admin, second.ID, UpdatePaymentInput{TransactionID: strPtr("T-1")})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestDeletePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, 1000)
	completed := f.pay(t, order.ID, 500, "Completed", "D-1")
	pending := f.pay(t, order.ID, 100, "Pending", "D-2")

	requireCode(t, f.svc.Delete(ctx, f.admin, completed.ID), pkgerrors.CodeStateConflict)
	requireCode(t, f.svc.Delete(ctx, f.retailer, pending.ID), pkgerrors.CodeForbidden)
	require.NoError(t, f.svc.Delete(ctx, f.admin, pending.ID))

	_, err := f.svc.Get(ctx, f.admin, pending.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
	assert.Equal(t, money.Cents(500), f.paidOf(t, order.ID))

	var events int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.EventPaymentDeleted, pending.ID).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestListIsScopedToOrderParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.seedOrder(t, 1000)
	f.pay(t, mine.ID, 100, "Completed", "L-1")

	otherRetailer := orders.Actor{UserID: uuid.New(), Role: enums.RoleRetailer}
	foreign := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     "ORD-2026-900",
		InvoiceNumber:   "INV-9000",
		PlacedBy:        otherRetailer.UserID,
		PlacedByRole:    enums.RoleRetailer,
		Currency:        enums.CurrencyINR,
		GrandTotalCents: 1000,
		DeliveryAddress: "elsewhere",
		Status:          enums.OrderStatusPlaced,
	}
	require.NoError(t, f.db.Create(foreign).Error)
	f.pay(t, foreign.ID, 100, "Completed", "L-2")

	list, err := f.svc.List(ctx, f.retailer, ListPaymentsParams{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "L-1", list.Items[0].TransactionID)
	assert.Equal(t, mine.OrderNumber, list.Items[0].OrderNumber)

	list, err = f.svc.List(ctx, f.distributor, ListPaymentsParams{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)

	list, err = f.svc.List(ctx, f.admin, ListPaymentsParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Pagination.TotalCount)

	found, err := f.svc.SearchByTransactionID(ctx, otherRetailer, "l-")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "L-2", found[0].TransactionID)

	_, err = f.svc.SearchByTransactionID(ctx, otherRetailer, " ")
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Verify(ctx, otherRetailer, "L-1")
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 5000)
	f.pay(t, order.ID, 100, "Completed", "F-100")
	f.pay(t, order.ID, 200, "Pending", "F-200")
	f.pay(t, order.ID, 300, "Failed", "F-300")

	status := enums.PaymentStatusPending
	list, err := f.svc.List(context.Background(), f.admin, ListPaymentsParams{Status: &status})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "F-200", list.Items[0].TransactionID)

	list, err = f.svc.List(context.Background(), f.admin, ListPaymentsParams{})
	require.NoError(t, err)
	list2, err := f.svc.List(context.Background(), f.admin, ListPaymentsParams{OrderID: &order.ID})
	require.NoError(t, err)
	assert.Len(t, list.Items, 3)
	assert.Len(t, list2.Items, 3)
}

func TestOrderSummaryAndVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, 1000)
	f.pay(t, order.ID, 250, "Completed", "S-1")
	f.pay(t, order.ID, 250, "Completed", "S-2")
	f.pay(t, order.ID, 100, "Pending", "S-3")

	summary, err := f.svc.OrderSummary(ctx, f.retailer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(1000), summary.OrderTotal)
	assert.Equal(t, money.Cents(500), summary.TotalPaid)
	assert.Equal(t, money.Cents(500), summary.Remaining)
	assert.Equal(t, int64(2), summary.PaymentCount)
	assert.Len(t, summary.Payments, 3)
	assert.Len(t, summary.ByStatus, 2)

	verification, err := f.svc.Verify(ctx, f.distributor, "S-2")
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, verification.OrderNumber)
	assert.Equal(t, enums.PaymentStatusCompleted, verification.Status)

	_, err = f.svc.Verify(ctx, f.admin, "missing")
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, 10000)
	f.pay(t, order.ID, 1000, "Completed", "A-1")
	f.pay(t, order.ID, 2001, "Completed", "A-2")
	cash := f.pay(t, order.ID, 500, "Pending", "A-3")
	method := "Cash"
	_, err := f.svc.Update(ctx, f.admin, cash.ID, UpdatePaymentInput{Method: &method})
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalPayments)
	assert.Equal(t, money.Cents(3001), stats.TotalRevenue)
	assert.Len(t, stats.ByMethod, 2)

	report, err := f.svc.RevenueByMethod(ctx, f.admin, nil, nil)
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, enums.PaymentMethodUPI, report.Items[0].Method)
	assert.Equal(t, int64(2), report.Items[0].TransactionCount)
	assert.Equal(t, money.Cents(1501), report.Items[0].AverageTransaction)

	history, err := f.svc.History(ctx, f.admin, HistoryParams{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, history.TotalCount)
	assert.Equal(t, money.Cents(3501), history.TotalAmount)

	_, err = f.svc.Stats(ctx, f.retailer)
	requireCode(t, err, pkgerrors.CodeForbidden)

	from, to := fixedNow, fixedNow.Add(-time.Hour)
	_, err = f.svc.RevenueByMethod(ctx, f.admin, &from, &to)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestBulkCreateCollectsFailures(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 1000)

	outcome, err := f.svc.BulkCreate(context.Background(), f.admin, []CreatePaymentInput{
		{OrderID: order.ID, Amount: cents(400), Method: "UPI", Status: "Completed", TransactionID: "B-1"},
		{OrderID: order.ID, Amount: cents(900), Method: "UPI", Status: "Completed", TransactionID: "B-2"},
		{OrderID: order.ID, Amount: cents(600), Method: "UPI", Status: "Completed", TransactionID: "B-3"},
	})
	require.NoError(t, err)
	require.Len(t, outcome.Results, 2)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, 1, outcome.Errors[0].Index)
	assert.Equal(t, string(pkgerrors.CodeOverpayment), outcome.Errors[0].Code)
	assert.Equal(t, money.Cents(1000), f.paidOf(t, order.ID))

	_, err = f.svc.BulkCreate(context.Background(), f.admin, nil)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestBulkUpdateStatus(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 1000)
	first := f.pay(t, order.ID, 300, "Pending", "BS-1")
	second := f.pay(t, order.ID, 300, "Pending", "BS-2")

	outcome, err := f.svc.BulkUpdateStatus(context.Background(), f.admin,
		[]uuid.UUID{first.ID, uuid.New(), second.ID}, "completed")
	require.NoError(t, err)
	require.Len(t, outcome.Results, 2)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, 1, outcome.Errors[0].Index)
	assert.Equal(t, enums.PaymentStatusCompleted, outcome.Results[0].NewStatus)
	assert.Equal(t, money.Cents(600), f.paidOf(t, order.ID))

	_, err = f.svc.BulkUpdateStatus(context.Background(), f.admin, []uuid.UUID{first.ID}, "done")
	requireCode(t, err, pkgerrors.CodeValidation)
}

func strPtr(v string) *string { return &v }
