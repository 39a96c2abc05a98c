package telemetry

import (
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/auth"
)

// VitalSign is one telemetry reading for a patient. Every measurement is
// optional; nil readings are skipped by the threshold check. Alerts holds the
// messages produced at write time and is never recomputed afterwards, so the
// record reflects the thresholds in force when it was taken.
type VitalSign struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	// AppointmentID ties the reading to the visit it was taken during, when
	// there is one. Ward readings outside any visit leave it nil.
	AppointmentID    *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	OrgID            uuid.UUID  `db:"org_id" json:"org_id"`
	BranchID         uuid.UUID  `db:"branch_id" json:"branch_id"`
	RecordedBy       uuid.UUID  `db:"recorded_by" json:"recorded_by"`
	HeartRate        *int       `db:"heart_rate" json:"heart_rate,omitempty"`
	BPSystolic       *int       `db:"bp_systolic" json:"bp_systolic,omitempty"`
	BPDiastolic      *int       `db:"bp_diastolic" json:"bp_diastolic,omitempty"`
	Temperature      *float64   `db:"temperature" json:"temperature,omitempty"`
	OxygenSaturation *int       `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	RespiratoryRate  *int       `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	Alerts           []string   `db:"alerts" json:"alerts,omitempty"`
	RecordedAt       time.Time  `db:"recorded_at" json:"recorded_at"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

func (v *VitalSign) Scope() auth.Scope {
	return auth.Scope{OrgID: v.OrgID, BranchID: v.BranchID}
}

// IsAbnormal reports whether any threshold fired when the reading was taken.
func (v *VitalSign) IsAbnormal() bool {
	return len(v.Alerts) > 0
}
