package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	zlog "github.com/rs/zerolog/log"

	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/types"
)

// set by the request id middleware before any handler writes
const requestIDHeader = "X-Request-Id"

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteCreated(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusCreated, data)
}

// WriteDeleted acknowledges a removal with the deleted resource id.
func WriteDeleted(w http.ResponseWriter, id string) {
	WriteSuccess(w, map[string]any{"id": id, "deleted": true})
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError renders err as the error envelope. Untyped errors become
// INTERNAL_ERROR. Service messages are shown for 4xx codes only; 5xx
// responses carry the generic public message and the cause stays in logs.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	public := types.APIError{
		Code:      string(typed.Code()),
		Message:   meta.PublicMessage,
		RequestID: w.Header().Get(requestIDHeader),
	}
	if meta.HTTPStatus < http.StatusInternalServerError && typed.Message() != "" {
		public.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		public.Details = typed.Details()
	}

	if logg != nil {
		logCtx := logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(logCtx, "request.error", err)
		} else {
			logg.Warn(logCtx, "request.rejected")
		}
	}

	writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{Error: public})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// headers are gone; all that is left is to record it
		zlog.Error().Err(err).Int("status", status).Msg("failed to encode response")
	}
}
