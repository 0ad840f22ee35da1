package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/digitos-team/masala-software/internal/orders"
	"github.com/digitos-team/masala-software/pkg/enums"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
)

type contextKey string

const ctxActor contextKey = "actor"

// WithActor stores the authenticated caller on ctx.
func WithActor(ctx context.Context, actor orders.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the caller seeded by Auth.
func ActorFromContext(ctx context.Context) (orders.Actor, bool) {
	if ctx == nil {
		return orders.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(orders.Actor)
	return actor, ok
}

// RequireActor is ActorFromContext for handlers: a missing or malformed
// identity is an UNAUTHORIZED error.
func RequireActor(ctx context.Context) (orders.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	if err := actor.Validate(); err != nil {
		return orders.Actor{}, err
	}
	return actor, nil
}

func UserIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok && actor.UserID != uuid.Nil {
		return actor.UserID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.Role {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.Role
	}
	return ""
}
