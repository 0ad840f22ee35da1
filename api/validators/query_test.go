package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/pagination"
)

func TestParsePage(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/orders?page=3&limit=25&sortBy=grandTotal&sortOrder=ASC", nil)
	p, err := ParsePage(r, 10)
	require.NoError(t, err)
	assert.Equal(t, pagination.Params{Page: 3, Limit: 25, SortBy: "grandTotal", SortOrder: pagination.SortAsc}, p)

	p, err = ParsePage(httptest.NewRequest(http.MethodGet, "/orders", nil), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, pagination.SortDesc, p.SortOrder)

	_, err = ParsePage(httptest.NewRequest(http.MethodGet, "/orders?limit=1000", nil), 10)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryTime(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?startDate=2026-10-01&endDate=2026-10-31&at=2026-10-18T09:30:00Z&bad=yesterday", nil)

	from, err := ParseQueryTime(r, "startDate", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), *from)

	to, err := ParseQueryTime(r, "endDate", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 31, 23, 59, 59, 999999999, time.UTC), *to)

	at, err := ParseQueryTime(r, "at", true)
	require.NoError(t, err)
	assert.Equal(t, 9, at.Hour())

	missing, err := ParseQueryTime(r, "none", false)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = ParseQueryTime(r, "bad", false)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", id.String())
	rc.URLParams.Add("paymentId", "not-a-uuid")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))

	got, err := PathUUID(r, "orderId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = PathUUID(r, "paymentId")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	_, err = PathUUID(r, "userId")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"  garam   masala\t\n", 0, "garam masala"},
		{"chole\x00 masala", 0, "chole masala"},
		{"हल्दी पाउडर", 5, "हल्दी"},
		{"pav bhaji", 4, "pav"},
		{"pav bhaji", 5, "pav b"},
		{"   ", 10, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizeString(tc.in, tc.max), tc.in)
	}
}
