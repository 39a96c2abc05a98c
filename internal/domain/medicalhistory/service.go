package medicalhistory

import (
	"context"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/domain/directory"
	"github.com/ihorms/ihorms/internal/platform/audit"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
)

// Service reads medical history. Every read is access-logged before any data
// leaves the service.
type Service struct {
	repo     Repository
	patients directory.PatientRepository
	audit    audit.Recorder
}

func NewService(repo Repository, patients directory.PatientRepository, rec audit.Recorder) *Service {
	return &Service{repo: repo, patients: patients, audit: rec}
}

// ListForPatient returns a patient's history. The caller's access is written
// to the patient access log and the audit trail first; a failed log write
// blocks the read.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]Record, int, error) {
	patient, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}

	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, patient.Scope()); err != nil {
		return nil, 0, err
	}

	var accessedBy uuid.UUID
	if id != nil {
		accessedBy = id.UserID
	}
	if err := s.audit.LogPatientAccess(ctx, &audit.PatientAccess{
		PatientID:  patientID,
		AccessedBy: accessedBy,
		AccessType: "Medical History View",
	}); err != nil {
		return nil, 0, err
	}
	if err := s.audit.LogAction(ctx, &audit.Entry{
		UserID:     actorID(id),
		Action:     audit.ActionMedicalRecordAccessed,
		EntityType: "patient",
		EntityID:   patientID.String(),
	}); err != nil {
		return nil, 0, err
	}

	return s.repo.ListForPatient(ctx, patientID, p)
}

// ListOwn returns the calling portal account's own history. Self reads are
// access-logged like any other so the trail stays complete.
func (s *Service) ListOwn(ctx context.Context, p pagination.Params) ([]Record, int, error) {
	id := auth.IdentityFromContext(ctx)
	if id == nil {
		return nil, 0, apperr.Forbiddenf("cross-tenant access denied")
	}
	patient, err := s.patients.GetByUserID(ctx, id.UserID)
	if err != nil {
		return nil, 0, err
	}

	if err := s.audit.LogPatientAccess(ctx, &audit.PatientAccess{
		PatientID:  patient.ID,
		AccessedBy: id.UserID,
		AccessType: "Medical History View",
	}); err != nil {
		return nil, 0, err
	}
	return s.repo.ListForPatient(ctx, patient.ID, p)
}

func actorID(id *auth.Identity) *uuid.UUID {
	if id == nil {
		return nil
	}
	return &id.UserID
}
