package auth

import (
	"github.com/google/uuid"
	"github.com/ihorms/ihorms/pkg/apperr"
)

// Scope is the tenant placement of a target entity.
type Scope struct {
	OrgID    uuid.UUID
	BranchID uuid.UUID
}

// AuthorizeScope enforces tenant isolation between the caller and a resolved
// entity. super_admin bypasses both checks; org_admin may cross branches
// inside their own organization; everyone else must match organization and
// branch. A mismatch is always Forbidden, never NotFound: the entity has
// already been resolved, so its existence is not a secret worth keeping.
func AuthorizeScope(id *Identity, target Scope) error {
	if err := AuthorizeOrg(id, target.OrgID); err != nil {
		return err
	}
	if id.Role == RoleSuperAdmin || id.Role == RoleOrgAdmin {
		return nil
	}
	if id.BranchID == nil || *id.BranchID != target.BranchID {
		return apperr.Forbiddenf("cross-tenant access denied")
	}
	return nil
}

// AuthorizeOrg enforces the organization half of the guard for targets that
// have no branch placement.
func AuthorizeOrg(id *Identity, orgID uuid.UUID) error {
	if id == nil {
		return apperr.Forbiddenf("cross-tenant access denied")
	}
	if id.Role == RoleSuperAdmin {
		return nil
	}
	if id.OrgID != orgID {
		return apperr.Forbiddenf("cross-tenant access denied")
	}
	return nil
}
