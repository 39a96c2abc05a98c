package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/domain/directory"
	"github.com/ihorms/ihorms/internal/platform/audit"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/internal/platform/db"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
)

// Service records vitals and serves alert queries.
type Service struct {
	repo     Repository
	patients directory.PatientRepository
	branches directory.BranchRepository
	appts    AppointmentLocator
	tx       db.Runner
	audit    audit.Recorder
}

func NewService(
	repo Repository,
	patients directory.PatientRepository,
	branches directory.BranchRepository,
	appts AppointmentLocator,
	tx db.Runner,
	rec audit.Recorder,
) *Service {
	return &Service{repo: repo, patients: patients, branches: branches, appts: appts, tx: tx, audit: rec}
}

// RecordVitalsInput is one telemetry reading. All measurements are optional
// but at least one must be present.
type RecordVitalsInput struct {
	PatientID        uuid.UUID
	AppointmentID    *uuid.UUID
	HeartRate        *int
	BPSystolic       *int
	BPDiastolic      *int
	Temperature      *float64
	OxygenSaturation *int
	RespiratoryRate  *int
	RecordedAt       *time.Time
}

func (in *RecordVitalsInput) empty() bool {
	return in.HeartRate == nil && in.BPSystolic == nil && in.BPDiastolic == nil &&
		in.Temperature == nil && in.OxygenSaturation == nil && in.RespiratoryRate == nil
}

// RecordVitals stores a reading with its threshold alerts evaluated and
// frozen at write time.
func (s *Service) RecordVitals(ctx context.Context, in *RecordVitalsInput) (*VitalSign, error) {
	if in.empty() {
		return nil, apperr.Validationf("at least one vital sign measurement is required")
	}

	patient, err := s.patients.GetByID(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, patient.Scope()); err != nil {
		return nil, err
	}
	if id == nil {
		return nil, apperr.Forbiddenf("cross-tenant access denied")
	}

	if in.AppointmentID != nil {
		appt, err := s.appts.GetByID(ctx, *in.AppointmentID)
		if err != nil {
			return nil, err
		}
		if appt.PatientID != patient.ID {
			return nil, apperr.Validationf("appointment does not belong to this patient")
		}
	}

	recordedAt := time.Now().UTC()
	if in.RecordedAt != nil {
		recordedAt = in.RecordedAt.UTC()
	}

	v := &VitalSign{
		PatientID:        patient.ID,
		AppointmentID:    in.AppointmentID,
		OrgID:            patient.OrgID,
		BranchID:         patient.BranchID,
		RecordedBy:       id.UserID,
		HeartRate:        in.HeartRate,
		BPSystolic:       in.BPSystolic,
		BPDiastolic:      in.BPDiastolic,
		Temperature:      in.Temperature,
		OxygenSaturation: in.OxygenSaturation,
		RespiratoryRate:  in.RespiratoryRate,
		RecordedAt:       recordedAt,
	}
	v.Alerts = CheckThresholds(v)

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, v); err != nil {
			return fmt.Errorf("record vitals: %w", err)
		}
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:     &id.UserID,
			Action:     audit.ActionTelemetryRecorded,
			EntityType: "vital_sign",
			EntityID:   v.ID.String(),
			AfterState: map[string]any{
				"patient_id": v.PatientID.String(),
				"abnormal":   v.IsAbnormal(),
				"alerts":     v.Alerts,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListForPatient returns a patient's readings, newest first.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]VitalSign, int, error) {
	patient, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}
	if err := auth.AuthorizeScope(auth.IdentityFromContext(ctx), patient.Scope()); err != nil {
		return nil, 0, err
	}
	return s.repo.ListForPatient(ctx, patientID, p)
}

// ListAlerts returns a branch's abnormal readings.
func (s *Service) ListAlerts(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]VitalSign, int, error) {
	branch, err := s.branches.GetByID(ctx, branchID)
	if err != nil {
		return nil, 0, err
	}
	if err := auth.AuthorizeScope(auth.IdentityFromContext(ctx), auth.Scope{OrgID: branch.OrgID, BranchID: branch.ID}); err != nil {
		return nil, 0, err
	}
	return s.repo.ListAlerts(ctx, branchID, p)
}
