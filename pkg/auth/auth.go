// Package auth carries the caller's identity through a request.
//
// An Identity is attached to a context.Context by the API middleware and read
// back by handlers and components that need it. There is no process-wide
// session store: whoever needs the identity receives it through the context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrForbidden is returned when an identity lacks the required role.
var ErrForbidden = errors.New("auth: forbidden")

// ErrUnauthenticated is returned when no identity is present.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// Role is a user's access level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

// IsAdmin reports whether the identity has the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanAccess reports whether the identity may read or change an entity owned
// by ownerID. Admins may access everything.
func (i Identity) CanAccess(ownerID string) bool {
	return i.IsAdmin() || i.UserID == ownerID
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity carried by ctx.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// RequireRole returns the identity in ctx when it has role, or an admin.
func RequireRole(ctx context.Context, role Role) (Identity, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return Identity{}, ErrUnauthenticated
	}
	if id.Role != role && !id.IsAdmin() {
		return Identity{}, fmt.Errorf("%w: %s role required", ErrForbidden, role)
	}
	return id, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
