package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitos-team/masala-software/pkg/logger"
)

func accessLines(t *testing.T, out *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if raw == "" {
			continue
		}
		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestLoggingWritesAccessLine(t *testing.T) {
	var out bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "api", Output: &out})

	r := chi.NewRouter()
	r.Use(Logging(logg))
	r.Get("/api/v1/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("chai"))
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/orders/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	lines := accessLines(t, &out)
	require.Len(t, lines, 2)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "/api/v1/orders/{orderId}", lines[0]["route"])
	assert.Equal(t, "/api/v1/orders/42", lines[0]["path"])
	assert.EqualValues(t, http.StatusTeapot, lines[0]["status"])
	assert.EqualValues(t, 4, lines[0]["bytes"])
	assert.Equal(t, "warn", lines[1]["level"])
	assert.EqualValues(t, http.StatusBadGateway, lines[1]["status"])
}

func TestLoggingKeepsProbesQuiet(t *testing.T) {
	var out bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "api", Output: &out})
	handler := Logging(logg)(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Empty(t, out.String())

	assert.NotPanics(t, func() {
		Logging(nil)(okHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
