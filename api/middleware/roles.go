package middleware

import (
	"net/http"
	"slices"

	"github.com/digitos-team/masala-software/api/responses"
	"github.com/digitos-team/masala-software/pkg/enums"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/logger"
)

// RequireRole admits only callers whose role is one of roles.
func RequireRole(logg *logger.Logger, roles ...enums.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := RequireActor(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if !slices.Contains(roles, actor.Role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
