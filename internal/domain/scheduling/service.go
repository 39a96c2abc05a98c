package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/domain/directory"
	"github.com/ihorms/ihorms/internal/domain/medicalhistory"
	"github.com/ihorms/ihorms/internal/platform/audit"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/internal/platform/db"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
)

// RoomTypeConsultation is the room type attached advisorily at booking time.
const RoomTypeConsultation = "consultation"

// Service drives the appointment lifecycle:
//
//	scheduled -> accepted -> completed | admitted
//
// with cancelled and rejected reachable from any non-terminal state, and
// reschedule resetting scheduled/accepted back to scheduled.
type Service struct {
	repo     AppointmentRepository
	patients directory.PatientRepository
	doctors  directory.DoctorRepository
	users    directory.UserRepository
	branches directory.BranchRepository
	rooms    RoomLocator
	history  medicalhistory.Repository
	tx       db.Runner
	audit    audit.Recorder
}

func NewService(
	repo AppointmentRepository,
	patients directory.PatientRepository,
	doctors directory.DoctorRepository,
	users directory.UserRepository,
	branches directory.BranchRepository,
	rooms RoomLocator,
	history medicalhistory.Repository,
	tx db.Runner,
	rec audit.Recorder,
) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		doctors:  doctors,
		users:    users,
		branches: branches,
		rooms:    rooms,
		history:  history,
		tx:       tx,
		audit:    rec,
	}
}

// CreateAppointmentInput describes a booking request. DoctorID is optional;
// when absent a doctor is auto-assigned. PatientID is ignored for portal
// callers, whose patient record is resolved from the token.
type CreateAppointmentInput struct {
	PatientID      uuid.UUID
	DoctorID       *uuid.UUID
	Date           time.Time
	StartTime      string
	ChiefComplaint string
}

// CreateAppointment books a slot. The availability check and the insert run
// in one transaction with the slot rows locked, so two concurrent bookings
// for the same (doctor, date, time) cannot both commit.
func (s *Service) CreateAppointment(ctx context.Context, in *CreateAppointmentInput) (*Appointment, error) {
	if err := validateSlot(in.Date, in.StartTime); err != nil {
		return nil, err
	}

	id := auth.IdentityFromContext(ctx)
	patient, err := s.resolvePatient(ctx, id, in.PatientID)
	if err != nil {
		return nil, err
	}
	if err := auth.AuthorizeScope(id, patient.Scope()); err != nil {
		return nil, err
	}

	a := &Appointment{
		PatientID:      patient.ID,
		OrgID:          patient.OrgID,
		BranchID:       patient.BranchID,
		Date:           in.Date,
		StartTime:      in.StartTime,
		Status:         StatusScheduled,
		ChiefComplaint: in.ChiefComplaint,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if in.DoctorID != nil {
			doctor, err := s.doctors.GetByID(ctx, *in.DoctorID)
			if err != nil {
				return err
			}
			busy, err := s.slotTaken(ctx, doctor.ID, in.Date, in.StartTime, nil)
			if err != nil {
				return err
			}
			if busy {
				return apperr.Conflictf("doctor is not available at this time")
			}
			a.DoctorID = doctor.ID
		} else {
			doctorID, err := s.autoAssign(ctx, patient.BranchID, in.Date, in.StartTime)
			if err != nil {
				return err
			}
			a.DoctorID = doctorID
		}

		// Advisory only: the room is suggested for the visit but stays
		// available until an admission claims it.
		roomID, err := s.rooms.FirstAvailableRoom(ctx, patient.BranchID, RoomTypeConsultation)
		if err != nil {
			return err
		}
		a.RoomID = roomID

		if err := s.repo.Create(ctx, a); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:     actorID(id),
			Action:     audit.ActionAppointmentCreated,
			EntityType: "appointment",
			EntityID:   a.ID.String(),
			AfterState: map[string]any{
				"patient_id": a.PatientID.String(),
				"doctor_id":  a.DoctorID.String(),
				"date":       a.Date.Format("2006-01-02"),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// autoAssign scans the branch's doctors in creation order and picks the first
// one with a usable account and a free slot.
func (s *Service) autoAssign(ctx context.Context, branchID uuid.UUID, date time.Time, startTime string) (uuid.UUID, error) {
	doctors, err := s.doctors.ListByBranch(ctx, branchID)
	if err != nil {
		return uuid.Nil, err
	}

	for _, d := range doctors {
		user, err := s.users.GetByID(ctx, d.UserID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				continue
			}
			return uuid.Nil, err
		}
		if !user.IsUsable() {
			continue
		}
		busy, err := s.slotTaken(ctx, d.ID, date, startTime, nil)
		if err != nil {
			return uuid.Nil, err
		}
		if !busy {
			return d.ID, nil
		}
	}
	return uuid.Nil, apperr.Conflictf("no doctors available at this time")
}

// IsDoctorAvailable reports whether the slot is free.
func (s *Service) IsDoctorAvailable(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string) (bool, error) {
	if err := validateSlot(date, startTime); err != nil {
		return false, err
	}
	if _, err := s.doctors.GetByID(ctx, doctorID); err != nil {
		return false, err
	}
	busy, err := s.slotTaken(ctx, doctorID, date, startTime, nil)
	return !busy, err
}

func (s *Service) slotTaken(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string, excludeID *uuid.UUID) (bool, error) {
	n, err := s.repo.CountBlocking(ctx, doctorID, date, startTime, excludeID)
	if err != nil {
		return false, fmt.Errorf("check doctor availability: %w", err)
	}
	return n > 0, nil
}

// Accept is the assigned doctor taking the appointment.
func (s *Service) Accept(ctx context.Context, apptID uuid.UUID) (*Appointment, error) {
	return s.doctorTransition(ctx, apptID, StatusAccepted, audit.ActionAppointmentAccepted)
}

// Reject is the assigned doctor declining the appointment.
func (s *Service) Reject(ctx context.Context, apptID uuid.UUID) (*Appointment, error) {
	return s.doctorTransition(ctx, apptID, StatusRejected, audit.ActionAppointmentRejected)
}

func (s *Service) doctorTransition(ctx context.Context, apptID uuid.UUID, to Status, action string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, apptID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, a.Scope()); err != nil {
		return nil, err
	}
	if err := s.requireAssignedDoctor(ctx, id, a); err != nil {
		return nil, err
	}
	// Accepting is only meaningful from scheduled; rejecting is open to the
	// doctor from any non-terminal state.
	switch {
	case to == StatusAccepted && a.Status != StatusScheduled:
		return nil, apperr.Validationf("only scheduled appointments can be %s", to)
	case to == StatusRejected && TerminalStatuses[a.Status]:
		return nil, apperr.Validationf("cannot reject a %s appointment", a.Status)
	}

	before := a.Status
	a.Status = to
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, a); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:      actorID(id),
			Action:      action,
			EntityType:  "appointment",
			EntityID:    a.ID.String(),
			BeforeState: map[string]any{"status": string(before)},
			AfterState:  map[string]any{"status": string(to)},
		})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Confirm is the staff-side scheduled -> accepted transition.
func (s *Service) Confirm(ctx context.Context, apptID uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, apptID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, a.Scope()); err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled {
		return nil, apperr.Validationf("only scheduled appointments can be confirmed")
	}

	a.Status = StatusAccepted
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, a); err != nil {
			return fmt.Errorf("confirm appointment: %w", err)
		}
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:      actorID(id),
			Action:      audit.ActionAppointmentConfirmed,
			EntityType:  "appointment",
			EntityID:    a.ID.String(),
			BeforeState: map[string]any{"status": string(StatusScheduled)},
			AfterState:  map[string]any{"status": string(StatusAccepted)},
		})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Cancel moves any non-terminal appointment to cancelled. Portal callers can
// only cancel their own appointments.
func (s *Service) Cancel(ctx context.Context, apptID uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, apptID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, a.Scope()); err != nil {
		return nil, err
	}
	if err := s.requireOwnAppointment(ctx, id, a); err != nil {
		return nil, err
	}
	if TerminalStatuses[a.Status] {
		return nil, apperr.Validationf("cannot cancel a %s appointment", a.Status)
	}

	before := a.Status
	a.Status = StatusCancelled
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, a); err != nil {
			return fmt.Errorf("cancel appointment: %w", err)
		}
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:      actorID(id),
			Action:      audit.ActionAppointmentCancelled,
			EntityType:  "appointment",
			EntityID:    a.ID.String(),
			BeforeState: map[string]any{"status": string(before)},
			AfterState:  map[string]any{"status": string(StatusCancelled)},
		})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// RescheduleInput moves an appointment to a new slot, optionally to a
// different doctor.
type RescheduleInput struct {
	Date      time.Time
	StartTime string
	DoctorID  *uuid.UUID
}

// Reschedule moves a scheduled or accepted appointment and resets it to
// scheduled, re-running the availability check against the target slot.
func (s *Service) Reschedule(ctx context.Context, apptID uuid.UUID, in *RescheduleInput) (*Appointment, error) {
	if err := validateSlot(in.Date, in.StartTime); err != nil {
		return nil, err
	}

	a, err := s.repo.GetByID(ctx, apptID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, a.Scope()); err != nil {
		return nil, err
	}
	if a.Status == StatusCompleted {
		return nil, apperr.Validationf("cannot reschedule completed appointment")
	}
	if TerminalStatuses[a.Status] {
		return nil, apperr.Validationf("cannot reschedule a %s appointment", a.Status)
	}

	before := map[string]any{
		"date":       a.Date.Format("2006-01-02"),
		"start_time": a.StartTime,
		"doctor_id":  a.DoctorID.String(),
		"status":     string(a.Status),
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		doctorID := a.DoctorID
		if in.DoctorID != nil {
			doctor, err := s.doctors.GetByID(ctx, *in.DoctorID)
			if err != nil {
				return err
			}
			doctorID = doctor.ID
		}

		busy, err := s.slotTaken(ctx, doctorID, in.Date, in.StartTime, &a.ID)
		if err != nil {
			return err
		}
		if busy {
			return apperr.Conflictf("doctor is not available at the new time")
		}

		a.DoctorID = doctorID
		a.Date = in.Date
		a.StartTime = in.StartTime
		a.Status = StatusScheduled
		if err := s.repo.Update(ctx, a); err != nil {
			return fmt.Errorf("reschedule appointment: %w", err)
		}

		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:      actorID(id),
			Action:      audit.ActionAppointmentRescheduled,
			EntityType:  "appointment",
			EntityID:    a.ID.String(),
			BeforeState: before,
			AfterState: map[string]any{
				"date":       a.Date.Format("2006-01-02"),
				"start_time": a.StartTime,
				"doctor_id":  a.DoctorID.String(),
				"status":     string(StatusScheduled),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ClinicalNotesInput is the doctor's write-up completing a visit.
type ClinicalNotesInput struct {
	DoctorNotes  string
	Diagnosis    string
	Prescription string
	Verdict      string
}

// AddClinicalNotes completes an accepted appointment and writes the visit
// into the patient's medical history in the same transaction.
func (s *Service) AddClinicalNotes(ctx context.Context, apptID uuid.UUID, in *ClinicalNotesInput) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, apptID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, a.Scope()); err != nil {
		return nil, err
	}
	if err := s.requireAssignedDoctor(ctx, id, a); err != nil {
		return nil, err
	}
	if a.Status != StatusAccepted {
		return nil, apperr.Validationf("appointment must be accepted before adding notes")
	}

	a.DoctorNotes = in.DoctorNotes
	a.Diagnosis = in.Diagnosis
	a.Prescription = in.Prescription
	a.Verdict = in.Verdict
	a.Status = StatusCompleted

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, a); err != nil {
			return fmt.Errorf("complete appointment: %w", err)
		}

		rec := &medicalhistory.Record{
			PatientID:   a.PatientID,
			DoctorID:    a.DoctorID,
			VisitDate:   a.VisitTime(),
			Diagnosis:   in.Diagnosis,
			Symptoms:    a.ChiefComplaint,
			Severity:    medicalhistory.SeverityMedium,
			Treatment:   in.Prescription,
			DoctorNotes: in.DoctorNotes,
		}
		if err := s.history.Create(ctx, rec); err != nil {
			return fmt.Errorf("write medical history: %w", err)
		}

		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:      actorID(id),
			Action:      audit.ActionDoctorNotesAdded,
			EntityType:  "appointment",
			EntityID:    a.ID.String(),
			BeforeState: map[string]any{"status": string(StatusAccepted)},
			AfterState:  map[string]any{"status": string(StatusCompleted), "diagnosis": in.Diagnosis},
		})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAppointment resolves an appointment and enforces tenant scope.
func (s *Service) GetAppointment(ctx context.Context, apptID uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, apptID)
	if err != nil {
		return nil, err
	}
	if err := auth.AuthorizeScope(auth.IdentityFromContext(ctx), a.Scope()); err != nil {
		return nil, err
	}
	return a, nil
}

// ListForDoctor returns the calling doctor's appointments.
func (s *Service) ListForDoctor(ctx context.Context, date *time.Time, p pagination.Params) ([]Appointment, int, error) {
	id := auth.IdentityFromContext(ctx)
	if id == nil {
		return nil, 0, apperr.Forbiddenf("cross-tenant access denied")
	}
	doctor, err := s.doctors.GetByUserID(ctx, id.UserID)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListForDoctor(ctx, doctor.ID, date, p)
}

// ListOwnAppointments returns the calling portal account's appointments.
func (s *Service) ListOwnAppointments(ctx context.Context, p pagination.Params) ([]Appointment, int, error) {
	id := auth.IdentityFromContext(ctx)
	if id == nil {
		return nil, 0, apperr.Forbiddenf("cross-tenant access denied")
	}
	patient, err := s.patients.GetByUserID(ctx, id.UserID)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListForPatient(ctx, patient.ID, p)
}

// ListForPatient returns a patient's appointments.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]Appointment, int, error) {
	patient, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}
	if err := auth.AuthorizeScope(auth.IdentityFromContext(ctx), patient.Scope()); err != nil {
		return nil, 0, err
	}
	return s.repo.ListForPatient(ctx, patientID, p)
}

// ListForBranch returns a branch's appointments.
func (s *Service) ListForBranch(ctx context.Context, branchID uuid.UUID, date *time.Time, p pagination.Params) ([]Appointment, int, error) {
	branch, err := s.branches.GetByID(ctx, branchID)
	if err != nil {
		return nil, 0, err
	}
	if err := auth.AuthorizeScope(auth.IdentityFromContext(ctx), auth.Scope{OrgID: branch.OrgID, BranchID: branch.ID}); err != nil {
		return nil, 0, err
	}
	return s.repo.ListForBranch(ctx, branchID, date, p)
}

// resolvePatient picks the booking subject. Portal callers always act on
// their own record; the client-supplied patient id is only honored for staff.
func (s *Service) resolvePatient(ctx context.Context, id *auth.Identity, patientID uuid.UUID) (*directory.Patient, error) {
	if id != nil && id.Role == auth.RolePatient {
		return s.patients.GetByUserID(ctx, id.UserID)
	}
	return s.patients.GetByID(ctx, patientID)
}

// requireOwnAppointment rejects portal callers acting on another patient's
// appointment. Staff callers pass through.
func (s *Service) requireOwnAppointment(ctx context.Context, id *auth.Identity, a *Appointment) error {
	if id == nil || id.Role != auth.RolePatient {
		return nil
	}
	patient, err := s.patients.GetByUserID(ctx, id.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.Forbiddenf("this appointment is not yours")
		}
		return err
	}
	if a.PatientID != patient.ID {
		return apperr.Forbiddenf("this appointment is not yours")
	}
	return nil
}

func (s *Service) requireAssignedDoctor(ctx context.Context, id *auth.Identity, a *Appointment) error {
	if id == nil {
		return apperr.Forbiddenf("this appointment is not assigned to you")
	}
	doctor, err := s.doctors.GetByUserID(ctx, id.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.Forbiddenf("this appointment is not assigned to you")
		}
		return err
	}
	if a.DoctorID != doctor.ID {
		return apperr.Forbiddenf("this appointment is not assigned to you")
	}
	return nil
}

func validateSlot(date time.Time, startTime string) error {
	if date.IsZero() {
		return apperr.Validationf("appointment date is required")
	}
	if _, err := time.Parse("15:04", startTime); err != nil {
		return apperr.Validationf("invalid start time, expected HH:MM")
	}
	return nil
}

func actorID(id *auth.Identity) *uuid.UUID {
	if id == nil {
		return nil
	}
	return &id.UserID
}
