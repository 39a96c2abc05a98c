package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/audit"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/internal/platform/db"
	"github.com/ihorms/ihorms/internal/platform/sequence"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
)

// SequenceSource hands out the next value of a named counter.
type SequenceSource interface {
	Next(ctx context.Context, scope, name string) (int64, error)
}

// Service owns organizations, branches, accounts and the identifiers issued
// to them.
type Service struct {
	orgs     OrganizationRepository
	branches BranchRepository
	users    UserRepository
	doctors  DoctorRepository
	nurses   NurseRepository
	patients PatientRepository
	seq      SequenceSource
	tx       db.Runner
	audit    audit.Recorder
}

func NewService(
	orgs OrganizationRepository,
	branches BranchRepository,
	users UserRepository,
	doctors DoctorRepository,
	nurses NurseRepository,
	patients PatientRepository,
	seq SequenceSource,
	tx db.Runner,
	rec audit.Recorder,
) *Service {
	return &Service{
		orgs:     orgs,
		branches: branches,
		users:    users,
		doctors:  doctors,
		nurses:   nurses,
		patients: patients,
		seq:      seq,
		tx:       tx,
		audit:    rec,
	}
}

// CreateOrganization registers a new hospital group. Names are unique.
func (s *Service) CreateOrganization(ctx context.Context, o *Organization) error {
	if o.Name == "" {
		return apperr.Validationf("organization name is required")
	}

	existing, err := s.orgs.GetByName(ctx, o.Name)
	if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		return fmt.Errorf("create organization: %w", err)
	}
	if existing != nil {
		return apperr.Conflictf("organization already exists: %s", o.Name)
	}

	id := auth.IdentityFromContext(ctx)
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.orgs.Create(ctx, o); err != nil {
			return fmt.Errorf("create organization: %w", err)
		}
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:     actorID(id),
			Action:     audit.ActionOrgCreated,
			EntityType: "organization",
			EntityID:   o.ID.String(),
			AfterState: map[string]any{"name": o.Name},
		})
	})
}

// CreateBranch adds a location to an organization the caller controls.
func (s *Service) CreateBranch(ctx context.Context, b *Branch) error {
	if b.Name == "" {
		return apperr.Validationf("branch name is required")
	}
	if _, err := s.orgs.GetByID(ctx, b.OrgID); err != nil {
		return err
	}

	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeOrg(id, b.OrgID); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.branches.Create(ctx, b); err != nil {
			return fmt.Errorf("create branch: %w", err)
		}
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:     actorID(id),
			Action:     audit.ActionBranchCreated,
			EntityType: "branch",
			EntityID:   b.ID.String(),
			AfterState: map[string]any{"name": b.Name, "city": b.City, "org_id": b.OrgID.String()},
		})
	})
}

// CreateStaffInput describes a new staff account.
type CreateStaffInput struct {
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	FullName      string    `json:"full_name"`
	Specialty     string    `json:"specialty"`
	LicenseNumber string    `json:"license_number"`
	Ward          string    `json:"ward"`
	BranchID      uuid.UUID `json:"branch_id"`
}

var staffTags = map[string]string{
	auth.RoleDoctor:        sequence.TagDoctor,
	auth.RoleNurse:         sequence.TagNurse,
	auth.RoleReceptionist:  sequence.TagReceptionist,
	auth.RolePharmacyStaff: sequence.TagPharmacy,
}

// CreateStaff creates the account and profile for a staff member and issues
// their UID from the branch-scoped sequence.
func (s *Service) CreateStaff(ctx context.Context, in *CreateStaffInput) (*User, error) {
	tag, ok := staffTags[in.Role]
	if !ok {
		return nil, apperr.Validationf("unsupported staff role: %s", in.Role)
	}
	if in.Email == "" || in.FullName == "" {
		return nil, apperr.Validationf("email and full name are required")
	}

	branch, err := s.branches.GetByID(ctx, in.BranchID)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.GetByID(ctx, branch.OrgID)
	if err != nil {
		return nil, err
	}

	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, auth.Scope{OrgID: branch.OrgID, BranchID: branch.ID}); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		return nil, fmt.Errorf("create staff: %w", err)
	}
	if existing != nil {
		return nil, apperr.Conflictf("user already exists with email: %s", in.Email)
	}

	user := &User{
		Email:    in.Email,
		Role:     in.Role,
		State:    UserActive,
		OrgID:    branch.OrgID,
		BranchID: &branch.ID,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		n, err := s.seq.Next(ctx, branch.ID.String(), tag)
		if err != nil {
			return err
		}
		user.UID = sequence.FormatUID(sequence.Code(org.Name), sequence.Code(branch.City), tag, n)

		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("create staff user: %w", err)
		}

		switch in.Role {
		case auth.RoleDoctor:
			d := &Doctor{
				UserID:        user.ID,
				FullName:      in.FullName,
				Specialty:     in.Specialty,
				LicenseNumber: in.LicenseNumber,
				OrgID:         branch.OrgID,
				BranchID:      branch.ID,
			}
			if err := s.doctors.Create(ctx, d); err != nil {
				return fmt.Errorf("create doctor profile: %w", err)
			}
		case auth.RoleNurse:
			n := &Nurse{
				UserID:   user.ID,
				FullName: in.FullName,
				Ward:     in.Ward,
				OrgID:    branch.OrgID,
				BranchID: branch.ID,
			}
			if err := s.nurses.Create(ctx, n); err != nil {
				return fmt.Errorf("create nurse profile: %w", err)
			}
		}

		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:     actorID(id),
			Action:     audit.ActionUserCreated,
			EntityType: "user",
			EntityID:   user.ID.String(),
			AfterState: map[string]any{"email": user.Email, "role": user.Role, "uid": user.UID},
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RegisterPatient creates a patient record with a branch-scoped UID.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient) error {
	if p.FullName == "" {
		return apperr.Validationf("patient full name is required")
	}

	branch, err := s.branches.GetByID(ctx, p.BranchID)
	if err != nil {
		return err
	}
	org, err := s.orgs.GetByID(ctx, branch.OrgID)
	if err != nil {
		return err
	}
	p.OrgID = branch.OrgID

	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, auth.Scope{OrgID: branch.OrgID, BranchID: branch.ID}); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		n, err := s.seq.Next(ctx, branch.ID.String(), sequence.TagPatient)
		if err != nil {
			return err
		}
		p.UID = sequence.FormatUID(sequence.Code(org.Name), sequence.Code(branch.City), sequence.TagPatient, n)

		if err := s.patients.Create(ctx, p); err != nil {
			return fmt.Errorf("register patient: %w", err)
		}
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:     actorID(id),
			Action:     audit.ActionPatientRegistered,
			EntityType: "patient",
			EntityID:   p.ID.String(),
			AfterState: map[string]any{"uid": p.UID, "full_name": p.FullName},
		})
	})
}

// SetUserState moves an account through the unified lifecycle. Deleted is
// terminal.
func (s *Service) SetUserState(ctx context.Context, userID uuid.UUID, state UserState) error {
	if !ValidUserStates[state] {
		return apperr.Validationf("invalid user state: %s", state)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeOrg(id, user.OrgID); err != nil {
		return err
	}

	if user.State == UserDeleted {
		return apperr.Validationf("user is deleted")
	}
	if user.State == state {
		return nil
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.users.UpdateState(ctx, userID, state); err != nil {
			return fmt.Errorf("set user state: %w", err)
		}
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:      actorID(id),
			Action:      audit.ActionUserStateChanged,
			EntityType:  "user",
			EntityID:    userID.String(),
			BeforeState: map[string]any{"state": string(user.State)},
			AfterState:  map[string]any{"state": string(state)},
		})
	})
}

// GetPatient resolves a patient and enforces tenant scope. Staff reads of
// demographic data are written to the patient access log; a failed log write
// blocks the read.
func (s *Service) GetPatient(ctx context.Context, patientID uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, p.Scope()); err != nil {
		return nil, err
	}
	if err := s.logDemographicAccess(ctx, id, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// GetOwnPatient resolves the calling portal account's own patient record.
// Self reads are not access-logged.
func (s *Service) GetOwnPatient(ctx context.Context) (*Patient, error) {
	id := auth.IdentityFromContext(ctx)
	if id == nil {
		return nil, apperr.Forbiddenf("cross-tenant access denied")
	}
	return s.patients.GetByUserID(ctx, id.UserID)
}

// ListPatients returns a branch's patients. One access log row is written per
// patient whose demographics leave the service.
func (s *Service) ListPatients(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]Patient, int, error) {
	branch, err := s.branches.GetByID(ctx, branchID)
	if err != nil {
		return nil, 0, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, auth.Scope{OrgID: branch.OrgID, BranchID: branch.ID}); err != nil {
		return nil, 0, err
	}
	patients, total, err := s.patients.ListByBranch(ctx, branchID, p)
	if err != nil {
		return nil, 0, err
	}
	for i := range patients {
		if err := s.logDemographicAccess(ctx, id, patients[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return patients, total, nil
}

func (s *Service) logDemographicAccess(ctx context.Context, id *auth.Identity, patientID uuid.UUID) error {
	var accessedBy uuid.UUID
	if id != nil {
		accessedBy = id.UserID
	}
	return s.audit.LogPatientAccess(ctx, &audit.PatientAccess{
		PatientID:  patientID,
		AccessedBy: accessedBy,
		AccessType: "Demographics View",
	})
}

// ListOrganizations is a super_admin view.
func (s *Service) ListOrganizations(ctx context.Context, p pagination.Params) ([]Organization, int, error) {
	return s.orgs.List(ctx, p)
}

// ListBranches returns an organization's branches.
func (s *Service) ListBranches(ctx context.Context, orgID uuid.UUID, p pagination.Params) ([]Branch, int, error) {
	if err := auth.AuthorizeOrg(auth.IdentityFromContext(ctx), orgID); err != nil {
		return nil, 0, err
	}
	return s.branches.ListByOrg(ctx, orgID, p)
}

// GetBranch resolves a branch without scope checks for internal callers.
func (s *Service) GetBranch(ctx context.Context, id uuid.UUID) (*Branch, error) {
	return s.branches.GetByID(ctx, id)
}

func actorID(id *auth.Identity) *uuid.UUID {
	if id == nil {
		return nil
	}
	return &id.UserID
}
