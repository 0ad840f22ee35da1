package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/digitos-team/masala-software/api/middleware"
	"github.com/digitos-team/masala-software/api/responses"
	"github.com/digitos-team/masala-software/api/validators"
	"github.com/digitos-team/masala-software/internal/notifications"
	"github.com/digitos-team/masala-software/pkg/enums"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/pagination"
)

// ListNotifications returns the caller's inbox, newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
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
		params, err := inboxFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Params = page
		list, err := svc.List(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func inboxFilters(r *http.Request) (notifications.ListParams, error) {
	var params notifications.ListParams
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("unreadOnly")); raw != "" {
		unread, err := strconv.ParseBool(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unreadOnly value")
		}
		params.UnreadOnly = unread
	}
	if raw := strings.TrimSpace(q.Get("type")); raw != "" {
		kind, err := enums.ParseNotificationType(strings.ToLower(raw))
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification type")
		}
		params.Type = kind
	}
	return params, nil
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.PathUUID(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkRead(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "read": true})
	}
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		count, err := svc.MarkAllRead(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": count})
	}
}
