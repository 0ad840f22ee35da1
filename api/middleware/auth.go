package middleware

import (
	"net/http"
	"strings"

	"github.com/digitos-team/masala-software/api/responses"
	"github.com/digitos-team/masala-software/internal/orders"
	pkgAuth "github.com/digitos-team/masala-software/pkg/auth"
	"github.com/digitos-team/masala-software/pkg/config"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/logger"
)

// Auth verifies the bearer JWT and seeds the request context with the
// caller's {user_id, role}.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				msg := "invalid token"
				if pkgAuth.IsExpired(err) {
					msg = "token expired"
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msg))
				return
			}

			ctx := WithActor(r.Context(), orders.Actor{UserID: claims.UserID, Role: claims.Role})
			if logg != nil {
				ctx = logg.WithActor(ctx, claims.UserID.String(), string(claims.Role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) string {
	token := strings.TrimSpace(header)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
