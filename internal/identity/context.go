package identity

import "context"

// Role distinguishes the two kinds of platform users.
type Role string

const (
	RoleClient    Role = "client"
	RoleTherapist Role = "therapist"
)

// User is the authenticated caller resolved from a bearer token.
type User struct {
	ID   string
	Role Role
}

type ctxKey string

const userKey ctxKey = "solace.user"

// WithUser stores the authenticated user in context.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// FromContext extracts the authenticated user if present.
func FromContext(ctx context.Context) (User, bool) {
	val := ctx.Value(userKey)
	if val == nil {
		return User{}, false
	}
	u, ok := val.(User)
	return u, ok && u.ID != ""
}
