package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/domain/directory"
	"github.com/ihorms/ihorms/internal/domain/scheduling"
	"github.com/ihorms/ihorms/internal/platform/audit"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/internal/platform/db"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/shopspring/decimal"
)

// Service manages rooms and the admit/discharge workflow.
type Service struct {
	rooms      RoomRepository
	admissions AdmissionRepository
	appts      scheduling.AppointmentRepository
	doctors    directory.DoctorRepository
	branches   directory.BranchRepository
	tx         db.Runner
	audit      audit.Recorder
}

func NewService(
	rooms RoomRepository,
	admissions AdmissionRepository,
	appts scheduling.AppointmentRepository,
	doctors directory.DoctorRepository,
	branches directory.BranchRepository,
	tx db.Runner,
	rec audit.Recorder,
) *Service {
	return &Service{
		rooms:      rooms,
		admissions: admissions,
		appts:      appts,
		doctors:    doctors,
		branches:   branches,
		tx:         tx,
		audit:      rec,
	}
}

// CreateRoomInput describes a new room.
type CreateRoomInput struct {
	BranchID  uuid.UUID
	Number    string
	Type      string
	DailyRate decimal.Decimal
}

func (s *Service) CreateRoom(ctx context.Context, in *CreateRoomInput) (*Room, error) {
	if in.Number == "" {
		return nil, apperr.Validationf("room number is required")
	}
	if !ValidRoomTypes[in.Type] {
		return nil, apperr.Validationf("invalid room type: %s", in.Type)
	}
	if in.DailyRate.IsNegative() {
		return nil, apperr.Validationf("daily rate cannot be negative")
	}

	branch, err := s.branches.GetByID(ctx, in.BranchID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, auth.Scope{OrgID: branch.OrgID, BranchID: branch.ID}); err != nil {
		return nil, err
	}

	rm := &Room{
		OrgID:       branch.OrgID,
		BranchID:    branch.ID,
		Number:      in.Number,
		Type:        in.Type,
		IsAvailable: true,
		DailyRate:   in.DailyRate,
	}
	if err := s.rooms.Create(ctx, rm); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	return rm, nil
}

// SetRoomAvailability flips a room's availability by hand, outside the
// admission workflow.
func (s *Service) SetRoomAvailability(ctx context.Context, roomID uuid.UUID, available bool) (*Room, error) {
	rm, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, rm.Scope()); err != nil {
		return nil, err
	}

	before := rm.IsAvailable
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.rooms.SetAvailability(ctx, roomID, available); err != nil {
			return fmt.Errorf("update room availability: %w", err)
		}
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:      actorID(id),
			Action:      audit.ActionRoomAvailability,
			EntityType:  "room",
			EntityID:    rm.ID.String(),
			BeforeState: map[string]any{"is_available": before},
			AfterState:  map[string]any{"is_available": available},
		})
	})
	if err != nil {
		return nil, err
	}
	rm.IsAvailable = available
	return rm, nil
}

// ListRooms returns a branch's rooms.
func (s *Service) ListRooms(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]Room, int, error) {
	branch, err := s.branches.GetByID(ctx, branchID)
	if err != nil {
		return nil, 0, err
	}
	if err := auth.AuthorizeScope(auth.IdentityFromContext(ctx), auth.Scope{OrgID: branch.OrgID, BranchID: branch.ID}); err != nil {
		return nil, 0, err
	}
	return s.rooms.ListByBranch(ctx, branchID, p)
}

// AdmitPatient turns an accepted appointment into an admission. The room
// claim, the room flip, the appointment transition and the admission row all
// commit in one transaction.
func (s *Service) AdmitPatient(ctx context.Context, apptID uuid.UUID, roomType string) (*Admission, error) {
	if roomType == "" {
		roomType = RoomGeneralWard
	}
	if !ValidRoomTypes[roomType] {
		return nil, apperr.Validationf("invalid room type: %s", roomType)
	}

	appt, err := s.appts.GetByID(ctx, apptID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, appt.Scope()); err != nil {
		return nil, err
	}
	doctor, err := s.requireAssignedDoctor(ctx, id, appt)
	if err != nil {
		return nil, err
	}
	if appt.Status != scheduling.StatusAccepted {
		return nil, apperr.Validationf("only accepted appointments can be admitted")
	}

	var adm *Admission
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		rm, err := s.rooms.ClaimFirstAvailable(ctx, appt.BranchID, roomType)
		if err != nil {
			return fmt.Errorf("claim room: %w", err)
		}
		if rm == nil {
			return apperr.Conflictf("no available %s rooms found in this branch", roomType)
		}

		if err := s.rooms.SetAvailability(ctx, rm.ID, false); err != nil {
			return fmt.Errorf("occupy room: %w", err)
		}

		appt.Status = scheduling.StatusAdmitted
		appt.RoomID = &rm.ID
		if err := s.appts.Update(ctx, appt); err != nil {
			return fmt.Errorf("mark appointment admitted: %w", err)
		}

		adm = &Admission{
			PatientID:     appt.PatientID,
			AppointmentID: appt.ID,
			RoomID:        rm.ID,
			OrgID:         appt.OrgID,
			BranchID:      appt.BranchID,
			AdmittedBy:    doctor.ID,
			AdmittedAt:    time.Now().UTC(),
			Status:        StatusAdmitted,
		}
		if err := s.admissions.Create(ctx, adm); err != nil {
			return fmt.Errorf("create admission: %w", err)
		}

		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:     actorID(id),
			Action:     audit.ActionPatientAdmitted,
			EntityType: "admission",
			EntityID:   adm.ID.String(),
			AfterState: map[string]any{
				"patient_id":     adm.PatientID.String(),
				"appointment_id": adm.AppointmentID.String(),
				"room_id":        adm.RoomID.String(),
				"room_type":      roomType,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return adm, nil
}

// RequestDischarge flags an admission for the admitting doctor's review.
// Nurses raise the request; the doctor decides it.
func (s *Service) RequestDischarge(ctx context.Context, admissionID uuid.UUID) (*Admission, error) {
	adm, err := s.admissions.GetByID(ctx, admissionID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, adm.Scope()); err != nil {
		return nil, err
	}
	if adm.Status != StatusAdmitted {
		return nil, apperr.Validationf("patient is already discharged")
	}
	if adm.DischargeRequested {
		return nil, apperr.Conflictf("discharge already requested for this admission")
	}

	now := time.Now().UTC()
	adm.DischargeRequested = true
	adm.DischargeRequestedAt = &now
	adm.DischargeRequestedBy = actorID(id)

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.admissions.Update(ctx, adm); err != nil {
			return fmt.Errorf("request discharge: %w", err)
		}
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:     actorID(id),
			Action:     audit.ActionDischargeRequested,
			EntityType: "admission",
			EntityID:   adm.ID.String(),
			AfterState: map[string]any{"discharge_requested": true},
		})
	})
	if err != nil {
		return nil, err
	}
	return adm, nil
}

// ListDischargeRequests returns the calling doctor's pending discharge
// requests.
func (s *Service) ListDischargeRequests(ctx context.Context) ([]View, error) {
	id := auth.IdentityFromContext(ctx)
	if id == nil {
		return nil, apperr.Forbiddenf("cross-tenant access denied")
	}
	doctor, err := s.doctors.GetByUserID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return s.admissions.ListDischargeRequested(ctx, doctor.ID)
}

// DecideDischarge approves or rejects a pending discharge request. Only the
// admitting doctor can decide. Approval discharges the patient, stores the
// doctor's summary and frees the room in the same transaction; rejection
// clears the request flag and discards the summary.
func (s *Service) DecideDischarge(ctx context.Context, admissionID uuid.UUID, approve bool, summary string) (*Admission, error) {
	adm, err := s.admissions.GetByID(ctx, admissionID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, adm.Scope()); err != nil {
		return nil, err
	}
	if id == nil {
		return nil, apperr.Forbiddenf("only the admitting doctor can decide a discharge")
	}
	doctor, err := s.doctors.GetByUserID(ctx, id.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Forbiddenf("only the admitting doctor can decide a discharge")
		}
		return nil, err
	}
	if doctor.ID != adm.AdmittedBy {
		return nil, apperr.Forbiddenf("only the admitting doctor can decide a discharge")
	}
	if adm.Status != StatusAdmitted {
		return nil, apperr.Validationf("patient is already discharged")
	}
	if !adm.DischargeRequested {
		return nil, apperr.Validationf("no discharge request is pending")
	}

	action := audit.ActionDischargeRejected
	if approve {
		now := time.Now().UTC()
		adm.Status = StatusDischarged
		adm.DischargeDate = &now
		adm.Notes = summary
		action = audit.ActionDischargeApproved
	} else {
		adm.DischargeRequested = false
		adm.DischargeRequestedBy = nil
		adm.DischargeRequestedAt = nil
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.admissions.Update(ctx, adm); err != nil {
			return fmt.Errorf("decide discharge: %w", err)
		}
		if approve {
			if err := s.rooms.SetAvailability(ctx, adm.RoomID, true); err != nil {
				return fmt.Errorf("free room: %w", err)
			}
		}
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:     actorID(id),
			Action:     action,
			EntityType: "admission",
			EntityID:   adm.ID.String(),
			AfterState: map[string]any{"status": adm.Status, "approved": approve},
		})
	})
	if err != nil {
		return nil, err
	}
	return adm, nil
}

// GetAdmission resolves an admission and enforces tenant scope.
func (s *Service) GetAdmission(ctx context.Context, admissionID uuid.UUID) (*Admission, error) {
	adm, err := s.admissions.GetByID(ctx, admissionID)
	if err != nil {
		return nil, err
	}
	if err := auth.AuthorizeScope(auth.IdentityFromContext(ctx), adm.Scope()); err != nil {
		return nil, err
	}
	return adm, nil
}

// ListAdmissions returns a branch's admissions joined with patient and room
// details.
func (s *Service) ListAdmissions(ctx context.Context, branchID uuid.UUID, activeOnly bool, p pagination.Params) ([]View, int, error) {
	branch, err := s.branches.GetByID(ctx, branchID)
	if err != nil {
		return nil, 0, err
	}
	if err := auth.AuthorizeScope(auth.IdentityFromContext(ctx), auth.Scope{OrgID: branch.OrgID, BranchID: branch.ID}); err != nil {
		return nil, 0, err
	}
	return s.admissions.ListViews(ctx, branchID, activeOnly, p)
}

func (s *Service) requireAssignedDoctor(ctx context.Context, id *auth.Identity, a *scheduling.Appointment) (*directory.Doctor, error) {
	if id == nil {
		return nil, apperr.Forbiddenf("this appointment is not assigned to you")
	}
	doctor, err := s.doctors.GetByUserID(ctx, id.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Forbiddenf("this appointment is not assigned to you")
		}
		return nil, err
	}
	if a.DoctorID != doctor.ID {
		return nil, apperr.Forbiddenf("this appointment is not assigned to you")
	}
	return doctor, nil
}

func actorID(id *auth.Identity) *uuid.UUID {
	if id == nil {
		return nil
	}
	return &id.UserID
}
