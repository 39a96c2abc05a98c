package admission

import (
	"context"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/pkg/pagination"
)

// RoomRepository persists rooms. Its FirstAvailableRoom method doubles as the
// scheduling package's room locator.
type RoomRepository interface {
	Create(ctx context.Context, r *Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*Room, error)
	// FirstAvailableRoom peeks at a free room of the given type without
	// claiming it. Returns nil when none is free.
	FirstAvailableRoom(ctx context.Context, branchID uuid.UUID, roomType string) (*uuid.UUID, error)
	// ClaimFirstAvailable locks and returns a free room of the given type.
	// Must run inside a transaction; returns nil when none is free.
	ClaimFirstAvailable(ctx context.Context, branchID uuid.UUID, roomType string) (*Room, error)
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
	ListByBranch(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]Room, int, error)
}

// AdmissionRepository persists admissions.
type AdmissionRepository interface {
	Create(ctx context.Context, a *Admission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Admission, error)
	Update(ctx context.Context, a *Admission) error
	ListViews(ctx context.Context, branchID uuid.UUID, activeOnly bool, p pagination.Params) ([]View, int, error)
	ListDischargeRequested(ctx context.Context, doctorID uuid.UUID) ([]View, error)
}
