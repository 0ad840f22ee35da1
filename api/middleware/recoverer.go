package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/digitos-team/masala-software/api/responses"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/logger"
)

// Recoverer answers a panicking handler with the internal error envelope and
// logs the stack. http.ErrAbortHandler passes through untouched.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if abort, ok := rec.(error); ok && errors.Is(abort, http.ErrAbortHandler) {
					panic(rec)
				}
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{
						"panic": fmt.Sprint(rec),
						"stack": string(debug.Stack()),
						"route": r.Method + " " + r.URL.Path,
					})
				}
				cause := fmt.Errorf("recovered: %v", rec)
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, cause, "handler panicked"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
