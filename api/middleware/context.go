package middleware

import (
	"context"

	"github.com/gestion-ambientes/ambientes-backend/pkg/auth"
)

type contextKey string

const ctxActor contextKey = "actor"

// WithActor stores the authenticated caller on ctx.
func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the caller set by Auth.
func ActorFromContext(ctx context.Context) (auth.Actor, bool) {
	if ctx == nil {
		return auth.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(auth.Actor)
	return actor, ok && actor.Valid()
}

func UserIDFromContext(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ""
	}
	return actor.UserID.String()
}

func RoleFromContext(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ""
	}
	return string(actor.Role)
}
