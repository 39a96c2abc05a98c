package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/pkg/pagination"
)

// AppointmentRepository persists appointments.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	// CountBlocking counts appointments holding the (doctor, date, start
	// time) slot, excluding excludeID when non-nil. Inside a transaction the
	// matching rows are locked so a concurrent booking serializes behind it.
	CountBlocking(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string, excludeID *uuid.UUID) (int, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, date *time.Time, p pagination.Params) ([]Appointment, int, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]Appointment, int, error)
	ListForBranch(ctx context.Context, branchID uuid.UUID, date *time.Time, p pagination.Params) ([]Appointment, int, error)
}

// RoomLocator finds a free room without claiming it. Implemented by the
// admission package's room repository.
type RoomLocator interface {
	FirstAvailableRoom(ctx context.Context, branchID uuid.UUID, roomType string) (*uuid.UUID, error)
}
