package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/pkg/pagination"
)

// Repository persists bills.
type Repository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	// GetByAppointment returns nil, nil when no bill exists yet.
	GetByAppointment(ctx context.Context, apptID uuid.UUID) (*Bill, error)
	Update(ctx context.Context, b *Bill) error
	ListForPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]Bill, int, error)
	ListForBranch(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]Bill, int, error)
	BranchRevenue(ctx context.Context, branchID uuid.UUID) (*BranchRevenue, error)
}
