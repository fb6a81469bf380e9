// api/model/actor.go
package model

import "context"

// Actor is the authenticated caller as decoded from its access token.
type Actor struct {
	ID             string   `json:"id"`
	Email          string   `json:"email,omitempty"`
	Roles          []string `json:"roles"`
	Permissions    []string `json:"permissions,omitempty"`
	Department     string   `json:"department,omitempty"`
	TenantID       string   `json:"tenant_id,omitempty"`
	ClearanceLevel *int     `json:"clearance_level,omitempty"`
}

// PrimaryRole is the first role in the actor's role list.
func (a *Actor) PrimaryRole() string {
	if a == nil || len(a.Roles) == 0 {
		return ""
	}
	return a.Roles[0]
}

type actorCtxKey struct{}

func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, actor)
}

func ActorFromContext(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(actorCtxKey{}).(*Actor)
	return actor, ok && actor != nil
}
