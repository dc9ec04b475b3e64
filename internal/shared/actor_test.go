package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActorFromContext(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, SystemActor, ActorFromContext(ctx))
	require.Equal(t, SystemActor, ActorFromContext(ContextWithActor(ctx, "  ")))
	require.Equal(t, "alice", ActorFromContext(ContextWithActor(ctx, "alice")))
}
