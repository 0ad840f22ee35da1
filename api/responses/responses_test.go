package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestWriteSuccessWrapsData(t *testing.T) {
	w := httptest.NewRecorder()
	WriteCreated(w, map[string]string{"orderNumber": "ORD-20261018-0001"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ORD-20261018-0001", body.Data["orderNumber"])
}

func TestWriteDeleted(t *testing.T) {
	w := httptest.NewRecorder()
	WriteDeleted(w, "abc")
	assert.JSONEq(t, `{"data":{"id":"abc","deleted":true}}`, w.Body.String())
}

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := map[pkgerrors.Code]int{
		pkgerrors.CodeNotFound:          http.StatusNotFound,
		pkgerrors.CodeForbidden:         http.StatusForbidden,
		pkgerrors.CodeStateConflict:     http.StatusUnprocessableEntity,
		pkgerrors.CodeValidation:        http.StatusBadRequest,
		pkgerrors.CodeConflict:          http.StatusConflict,
		pkgerrors.CodeInsufficientStock: http.StatusConflict,
		pkgerrors.CodeOverpayment:       http.StatusUnprocessableEntity,
		pkgerrors.CodeDependency:        http.StatusServiceUnavailable,
	}
	for code, want := range cases {
		w := httptest.NewRecorder()
		WriteError(context.Background(), logger.Nop(), w, pkgerrors.New(code, "boom"))
		assert.Equal(t, want, w.Code, code)
	}
}

func TestWriteErrorShowsClientMessageAndDetails(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set(requestIDHeader, "req-42")
	err := pkgerrors.New(pkgerrors.CodeOverpayment, "payment of 500.00 exceeds remaining 400.00").
		WithDetails(map[string]any{"remaining": "400.00"})
	WriteError(context.Background(), nil, w, err)

	body := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.CodeOverpayment), body.Code)
	assert.Equal(t, "payment of 500.00 exceeds remaining 400.00", body.Message)
	assert.Equal(t, "req-42", body.RequestID)
	assert.NotNil(t, body.Details)
}

func TestWriteErrorHidesServerSideMessages(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), logger.Nop(), w, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp"), "redis unreachable at 10.0.0.4"))

	body := decodeError(t, w)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "dependency unavailable", body.Message)
}

func TestWriteErrorDefaultsToInternalForUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("pq: relation does not exist"))

	body := decodeError(t, w)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Code)
	assert.Equal(t, "internal server error", body.Message)
	assert.Nil(t, body.Details)
}
