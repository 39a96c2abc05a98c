package auth

import (
	"context"

	"github.com/google/uuid"
)

// Role names. Every capability check goes through RequireRole or
// AuthorizeScope; there are no per-role code paths elsewhere.
const (
	RoleSuperAdmin    = "super_admin"
	RoleOrgAdmin      = "org_admin"
	RoleBranchAdmin   = "branch_admin"
	RoleDoctor        = "doctor"
	RoleNurse         = "nurse"
	RoleReceptionist  = "receptionist"
	RolePharmacyStaff = "pharmacy_staff"
	RolePatient       = "patient"
)

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID   uuid.UUID
	Role     string
	OrgID    uuid.UUID
	BranchID *uuid.UUID
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a context carrying the caller identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the caller identity, or nil when the request
// is unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
