package model

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

// Actor is the access-control context of a caller: a role plus the identity
// the surrounding system resolved. The pipeline trusts this value; resolving
// it (authentication) is the surrounding system's job.
type Actor struct {
	ID   types.ActorID
	Role types.Role
}

// Admin reports whether the actor sees all cases
func (a Actor) Admin() bool {
	return a.Role == types.RoleAdmin
}

// Validate checks if the actor is usable for scoped queries
func (a Actor) Validate() error {
	if a.ID == "" {
		return goerr.New("actor ID cannot be empty")
	}
	if !a.Role.IsValid() {
		return goerr.New("invalid actor role", goerr.V("role", a.Role))
	}
	return nil
}

type actorCtxKey struct{}

// WithActor returns a context carrying the actor
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, actor)
}

// ActorFromContext retrieves the actor from the context
func ActorFromContext(ctx context.Context) (Actor, error) {
	actor, ok := ctx.Value(actorCtxKey{}).(Actor)
	if !ok {
		return Actor{}, goerr.New("no actor in context")
	}
	return actor, nil
}
