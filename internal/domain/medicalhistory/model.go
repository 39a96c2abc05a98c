package medicalhistory

import (
	"time"

	"github.com/google/uuid"
)

// Severity of a recorded visit.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Record is one entry in a patient's medical history, written when a doctor
// completes an appointment.
type Record struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	VisitDate   time.Time `db:"visit_date" json:"visit_date"`
	Diagnosis   string    `db:"diagnosis" json:"diagnosis,omitempty"`
	Symptoms    string    `db:"symptoms" json:"symptoms,omitempty"`
	Severity    string    `db:"severity" json:"severity,omitempty"`
	Treatment   string    `db:"treatment" json:"treatment,omitempty"`
	DoctorNotes string    `db:"doctor_notes" json:"doctor_notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
