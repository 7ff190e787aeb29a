package types

import "context"

// actorKey is an unexported type for context keys defined in this package.
type actorKey struct{}

// WithActor stores the authenticated user identifier in the context. The
// value is opaque to fieldbase and is copied to created_by/updated_by.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the user identifier stored by WithActor, or "".
func ActorFrom(ctx context.Context) string {
	v, _ := ctx.Value(actorKey{}).(string)
	return v
}
