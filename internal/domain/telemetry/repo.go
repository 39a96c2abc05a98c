package telemetry

import (
	"context"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/domain/scheduling"
	"github.com/ihorms/ihorms/pkg/pagination"
)

// AppointmentLocator resolves the appointment a reading is taken during.
// Implemented by the scheduling package's repository.
type AppointmentLocator interface {
	GetByID(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
}

// Repository persists vital sign readings.
type Repository interface {
	Create(ctx context.Context, v *VitalSign) error
	GetByID(ctx context.Context, id uuid.UUID) (*VitalSign, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]VitalSign, int, error)
	// ListAlerts returns the branch's abnormal readings, newest first.
	ListAlerts(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]VitalSign, int, error)
}
