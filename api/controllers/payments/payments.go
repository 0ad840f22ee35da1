package payments

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/digitos-team/masala-software/api/middleware"
	"github.com/digitos-team/masala-software/api/responses"
	"github.com/digitos-team/masala-software/api/validators"
	"github.com/digitos-team/masala-software/internal/orders"
	internalpayments "github.com/digitos-team/masala-software/internal/payments"
	"github.com/digitos-team/masala-software/pkg/enums"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/pagination"
)

type bulkCreateRequest struct {
	Payments []internalpayments.CreatePaymentInput `json:"payments" validate:"required,min=1,max=100,dive"`
}

type bulkStatusRequest struct {
	PaymentIDs []uuid.UUID `json:"paymentIds" validate:"required,min=1,max=100"`
	Status     string      `json:"paymentStatus" validate:"required"`
}

// Create records a payment against an order the caller participates in.
func Create(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input internalpayments.CreatePaymentInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, payment)
	}
}

func List(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePage(r, pagination.DefaultLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := internalpayments.ListPaymentsParams{
			Params: page,
			Search: validators.SanitizeString(r.URL.Query().Get("search"), 64),
		}
		if params.Status, params.Method, err = statusAndMethod(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.OrderID, err = validators.ParseQueryUUID(r, "orderId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.From, err = validators.ParseQueryTime(r, "startDate", false); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.To, err = validators.ParseQueryTime(r, "endDate", true); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func Detail(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return withPayment(logg, func(ctx context.Context, actor orders.Actor, id uuid.UUID, r *http.Request) (any, error) {
		return svc.Get(ctx, actor, id)
	})
}

func Update(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return withPayment(logg, func(ctx context.Context, actor orders.Actor, id uuid.UUID, r *http.Request) (any, error) {
		var input internalpayments.UpdatePaymentInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			return nil, err
		}
		return svc.Update(ctx, actor, id, input)
	})
}

func Delete(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.PathUUID(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteDeleted(w, id.String())
	}
}

func Search(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		term := validators.SanitizeString(r.URL.Query().Get("q"), 128)
		found, err := svc.SearchByTransactionID(r.Context(), actor, term)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, found)
	}
}

// ByOrder summarises every payment recorded against one order.
func ByOrder(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.OrderSummary(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func Verify(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txnID := strings.TrimSpace(chi.URLParam(r, "transactionId"))
		verification, err := svc.Verify(r.Context(), actor, txnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, verification)
	}
}

func Stats(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.Stats(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func Revenue(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := validators.ParseQueryTime(r, "startDate", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "endDate", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.RevenueByMethod(r.Context(), actor, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func History(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var params internalpayments.HistoryParams
		if params.Limit, err = validators.ParseQueryInt(r, "limit", 0, 0, 500); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.Status, params.Method, err = statusAndMethod(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.From, err = validators.ParseQueryTime(r, "startDate", false); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.To, err = validators.ParseQueryTime(r, "endDate", true); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.History(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

func BulkCreate(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req bulkCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outcome, err := svc.BulkCreate(r.Context(), actor, req.Payments)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

func BulkUpdateStatus(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req bulkStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outcome, err := svc.BulkUpdateStatus(r.Context(), actor, req.PaymentIDs, req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

type paymentAction func(ctx context.Context, actor orders.Actor, id uuid.UUID, r *http.Request) (any, error)

func withPayment(logg *logger.Logger, action paymentAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.PathUUID(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := action(r.Context(), actor, id, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// statusAndMethod reads the optional paymentStatus and method filters.
func statusAndMethod(r *http.Request) (*enums.PaymentStatus, *enums.PaymentMethod, error) {
	var (
		status *enums.PaymentStatus
		method *enums.PaymentMethod
	)
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("paymentStatus")); raw != "" {
		parsed, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status")
		}
		status = &parsed
	}
	if raw := strings.TrimSpace(q.Get("method")); raw != "" {
		parsed, err := enums.ParsePaymentMethod(raw)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
		method = &parsed
	}
	return status, method, nil
}
