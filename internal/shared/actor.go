package shared

import (
	"context"
	"strings"
)

// SystemActor is the attribution used when no caller identity is available.
const SystemActor = "Système"

type actorContextKey struct{}

// ContextWithActor stores the acting user's label in context. Every write
// that feeds the price history runs under a context carrying this value.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting user's label, falling back to
// SystemActor when the calling layer supplied none.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey{}).(string)
	if strings.TrimSpace(actor) == "" {
		return SystemActor
	}
	return actor
}
