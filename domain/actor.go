package domain

import "context"

type Role string

const (
	RoleInfluencer Role = "influencer"
	RoleBrand      Role = "brand"
	RoleAdmin      Role = "admin"
)

// Actor is the authenticated user behind a request.
type Actor struct {
	ID   string `json:"user_id"`
	Role Role   `json:"role"`
}

type actorKey struct{}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor, if any.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(*Actor)
	return actor, ok && actor != nil
}
