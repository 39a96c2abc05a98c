package scheduling

import (
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/auth"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusAccepted  Status = "accepted"
	StatusCompleted Status = "completed"
	StatusAdmitted  Status = "admitted"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

// TerminalStatuses are states an appointment never leaves.
var TerminalStatuses = map[Status]bool{
	StatusCompleted: true,
	StatusAdmitted:  true,
	StatusCancelled: true,
	StatusRejected:  true,
}

// BlockingStatuses are the states that hold a doctor's slot. An appointment
// in any other state frees the slot.
var BlockingStatuses = map[Status]bool{
	StatusScheduled: true,
	StatusAccepted:  true,
}

// Appointment is one booked slot. A slot is the exact (doctor, date, start
// time) triple; there is no duration arithmetic.
type Appointment struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	OrgID          uuid.UUID  `db:"org_id" json:"org_id"`
	BranchID       uuid.UUID  `db:"branch_id" json:"branch_id"`
	Date           time.Time  `db:"date" json:"date"`
	StartTime      string     `db:"start_time" json:"start_time"`
	Status         Status     `db:"status" json:"status"`
	ChiefComplaint string     `db:"chief_complaint" json:"chief_complaint,omitempty"`
	DoctorNotes    string     `db:"doctor_notes" json:"doctor_notes,omitempty"`
	Diagnosis      string     `db:"diagnosis" json:"diagnosis,omitempty"`
	Prescription   string     `db:"prescription" json:"prescription,omitempty"`
	Verdict        string     `db:"verdict" json:"verdict,omitempty"`
	RoomID         *uuid.UUID `db:"room_id" json:"room_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

func (a *Appointment) Scope() auth.Scope {
	return auth.Scope{OrgID: a.OrgID, BranchID: a.BranchID}
}

// VisitTime combines the appointment date and start time into one instant.
func (a *Appointment) VisitTime() time.Time {
	t, err := time.Parse("15:04", a.StartTime)
	if err != nil {
		return a.Date
	}
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(),
		t.Hour(), t.Minute(), 0, 0, time.UTC)
}
