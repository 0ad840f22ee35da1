package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/digitos-team/masala-software/api/middleware"
	"github.com/digitos-team/masala-software/api/responses"
	"github.com/digitos-team/masala-software/api/validators"
	internalorders "github.com/digitos-team/masala-software/internal/orders"
	"github.com/digitos-team/masala-software/pkg/enums"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/pagination"
)

type statusRequest struct {
	Status          string  `json:"status" validate:"required"`
	Reason          *string `json:"reason,omitempty"`
	TransporterName *string `json:"transporterName,omitempty"`
	TrackingNumber  *string `json:"trackingNumber,omitempty"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type bulkStatusRequest struct {
	OrderIDs []uuid.UUID `json:"orderIds" validate:"required,min=1,max=100"`
	Status   string      `json:"status" validate:"required"`
}

type bulkCancelRequest struct {
	OrderIDs []uuid.UUID `json:"orderIds" validate:"required,min=1,max=100"`
	Reason   string      `json:"reason"`
}

// Create places an order for the caller.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input internalorders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, order)
	}
}

// List returns the caller's scoped, filtered order page.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := listParams(r)
		if err != nil {
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

func listParams(r *http.Request) (internalorders.ListOrdersParams, error) {
	page, err := validators.ParsePage(r, pagination.DefaultLimit)
	if err != nil {
		return internalorders.ListOrdersParams{}, err
	}
	params := internalorders.ListOrdersParams{
		Params: page,
		Search: validators.SanitizeString(r.URL.Query().Get("search"), 64),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		params.Status = &status
	}
	if params.From, err = validators.ParseQueryTime(r, "startDate", false); err != nil {
		return params, err
	}
	if params.To, err = validators.ParseQueryTime(r, "endDate", true); err != nil {
		return params, err
	}
	if params.DistributorID, err = validators.ParseQueryUUID(r, "distributorId"); err != nil {
		return params, err
	}
	if params.SubDistributorID, err = validators.ParseQueryUUID(r, "subDistributorId"); err != nil {
		return params, err
	}
	if params.PlacedBy, err = validators.ParseQueryUUID(r, "placedBy"); err != nil {
		return params, err
	}
	return params, nil
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func Update(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input internalorders.UpdateOrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Update(r.Context(), actor, orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func Delete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteDeleted(w, orderID.String())
	}
}

// UpdateStatus moves an order along its lifecycle. Stock side effects
// happen inside the service transaction.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req statusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		order, err := svc.UpdateStatus(r.Context(), actor, orderID, internalorders.StatusChangeInput{
			Status:          status,
			Reason:          req.Reason,
			TransporterName: req.TransporterName,
			TrackingNumber:  req.TrackingNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return reasonHandler(logg, svc.Cancel)
}

func Return(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return reasonHandler(logg, svc.Return)
}

type reasonAction func(ctx context.Context, actor internalorders.Actor, id uuid.UUID, reason string) (*internalorders.OrderDTO, error)

// reasonHandler serves cancel and return. The body is optional.
func reasonHandler(logg *logger.Logger, apply reasonAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req reasonRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		order, err := apply(r.Context(), actor, orderID, validators.SanitizeString(req.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func BulkUpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		outcome, err := svc.BulkUpdateStatus(r.Context(), actor, req.OrderIDs, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

func BulkCancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req bulkCancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outcome, err := svc.BulkCancel(r.Context(), actor, req.OrderIDs, validators.SanitizeString(req.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

func Stats(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

func Revenue(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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
		report, err := svc.RevenueReport(r.Context(), actor, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func TopProducts(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		top, err := svc.TopSellingProducts(r.Context(), actor, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, top)
	}
}

// ByUser lists every order placed by one user.
func ByUser(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.PathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByUser(r.Context(), actor, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func actorAndOrder(r *http.Request) (internalorders.Actor, uuid.UUID, error) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		return actor, uuid.Nil, err
	}
	orderID, err := validators.PathUUID(r, "orderId")
	return actor, orderID, err
}
