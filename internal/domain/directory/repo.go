package directory

import (
	"context"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/pkg/pagination"
)

// OrganizationRepository persists organizations.
type OrganizationRepository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetByName(ctx context.Context, name string) (*Organization, error)
	List(ctx context.Context, p pagination.Params) ([]Organization, int, error)
}

// BranchRepository persists branches.
type BranchRepository interface {
	Create(ctx context.Context, b *Branch) error
	GetByID(ctx context.Context, id uuid.UUID) (*Branch, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID, p pagination.Params) ([]Branch, int, error)
}

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateState(ctx context.Context, id uuid.UUID, state UserState) error
}

// DoctorRepository persists doctor profiles.
type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	// ListByBranch returns the branch's doctors in creation order so
	// auto-assignment scans them deterministically.
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]Doctor, error)
}

// NurseRepository persists nurse profiles.
type NurseRepository interface {
	Create(ctx context.Context, n *Nurse) error
	GetByID(ctx context.Context, id uuid.UUID) (*Nurse, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Nurse, error)
}

// PatientRepository persists patients.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// GetByUserID resolves the patient linked to a portal account.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]Patient, int, error)
}
