package medicalhistory

import (
	"context"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/pkg/pagination"
)

// Repository persists medical history records.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	ListForPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]Record, int, error)
}
