package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/pkg/apperr"
)

func TestAuthorizeScope(t *testing.T) {
	org := uuid.New()
	otherOrg := uuid.New()
	branch := uuid.New()
	otherBranch := uuid.New()

	cases := []struct {
		name    string
		id      *Identity
		target  Scope
		allowed bool
	}{
		{
			name:    "super admin crosses orgs",
			id:      &Identity{Role: RoleSuperAdmin, OrgID: otherOrg},
			target:  Scope{OrgID: org, BranchID: branch},
			allowed: true,
		},
		{
			name:    "org admin crosses branches in own org",
			id:      &Identity{Role: RoleOrgAdmin, OrgID: org, BranchID: &otherBranch},
			target:  Scope{OrgID: org, BranchID: branch},
			allowed: true,
		},
		{
			name:    "org admin blocked from other org",
			id:      &Identity{Role: RoleOrgAdmin, OrgID: otherOrg},
			target:  Scope{OrgID: org, BranchID: branch},
			allowed: false,
		},
		{
			name:    "doctor in own branch",
			id:      &Identity{Role: RoleDoctor, OrgID: org, BranchID: &branch},
			target:  Scope{OrgID: org, BranchID: branch},
			allowed: true,
		},
		{
			name:    "doctor blocked from other branch",
			id:      &Identity{Role: RoleDoctor, OrgID: org, BranchID: &otherBranch},
			target:  Scope{OrgID: org, BranchID: branch},
			allowed: false,
		},
		{
			name:    "nurse without branch blocked",
			id:      &Identity{Role: RoleNurse, OrgID: org},
			target:  Scope{OrgID: org, BranchID: branch},
			allowed: false,
		},
		{
			name:    "nil identity blocked",
			id:      nil,
			target:  Scope{OrgID: org, BranchID: branch},
			allowed: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := AuthorizeScope(tc.id, tc.target)
			if tc.allowed && err != nil {
				t.Fatalf("expected access, got %v", err)
			}
			if !tc.allowed {
				if err == nil {
					t.Fatal("expected denial")
				}
				if apperr.KindOf(err) != apperr.KindForbidden {
					t.Errorf("denial must be Forbidden, got kind %d", apperr.KindOf(err))
				}
				if err.Error() != "cross-tenant access denied" {
					t.Errorf("unexpected message: %q", err.Error())
				}
			}
		})
	}
}
