package auth

import (
	"context"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/apperr"
)

// Role is the authorization role claimed by an authenticated caller.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

var (
	// ErrUnauthenticated is returned when a request carries no valid credentials.
	ErrUnauthenticated = apperr.New(apperr.KindUnauthorized, "unauthenticated", "authentication required")
	// ErrForbidden is returned when the caller lacks the required role or ownership.
	ErrForbidden = apperr.New(apperr.KindForbidden, "forbidden", "access denied")
)

// Identity is the verified caller of a request.
type Identity struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the identity has the admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// RequireAdmin fails with ErrForbidden unless the identity is an admin.
func (id Identity) RequireAdmin() error {
	if !id.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// RequireSelfOrAdmin fails with ErrForbidden unless the identity is userID
// or an admin.
func (id Identity) RequireSelfOrAdmin(userID string) error {
	if id.IsAdmin() || (id.UserID != "" && id.UserID == userID) {
		return nil
	}
	return ErrForbidden
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
