package identity

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// actorLocalsKey is where the actor middleware leaves the resolved user
const actorLocalsKey = "identity.actor"

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok && raw != nil
}

// SetActor stores the authenticated user on the request
func SetActor(c router.Context, user *User) {
	if user == nil {
		return
	}
	c.Locals(actorLocalsKey, user)
	c.SetContext(WithContext(c.Context(), user))
}

// ActorFrom returns the authenticated user of the request, if any
func ActorFrom(c router.Context) (*User, bool) {
	raw, ok := c.Locals(actorLocalsKey).(*User)
	return raw, ok && raw != nil
}
