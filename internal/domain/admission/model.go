package admission

import (
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/shopspring/decimal"
)

// Room types a branch can offer.
const (
	RoomConsultation     = "consultation"
	RoomICU              = "icu"
	RoomGeneralWard      = "general_ward"
	RoomEmergency        = "emergency"
	RoomOperationTheater = "operation_theater"
)

// ValidRoomTypes guards room creation and admission requests.
var ValidRoomTypes = map[string]bool{
	RoomConsultation:     true,
	RoomICU:              true,
	RoomGeneralWard:      true,
	RoomEmergency:        true,
	RoomOperationTheater: true,
}

// Room is a physical room in a branch. IsAvailable flips to false while an
// admission occupies it.
type Room struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	OrgID       uuid.UUID       `db:"org_id" json:"org_id"`
	BranchID    uuid.UUID       `db:"branch_id" json:"branch_id"`
	Number      string          `db:"number" json:"number"`
	Type        string          `db:"type" json:"type"`
	IsAvailable bool            `db:"is_available" json:"is_available"`
	DailyRate   decimal.Decimal `db:"daily_rate" json:"daily_rate"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

func (r *Room) Scope() auth.Scope {
	return auth.Scope{OrgID: r.OrgID, BranchID: r.BranchID}
}

// Admission statuses.
const (
	StatusAdmitted   = "admitted"
	StatusDischarged = "discharged"
)

// Admission records an inpatient stay. AdmittedBy is the doctor who admitted
// the patient and is the only one who can decide a discharge request.
type Admission struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	PatientID            uuid.UUID  `db:"patient_id" json:"patient_id"`
	AppointmentID        uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	RoomID               uuid.UUID  `db:"room_id" json:"room_id"`
	OrgID                uuid.UUID  `db:"org_id" json:"org_id"`
	BranchID             uuid.UUID  `db:"branch_id" json:"branch_id"`
	AdmittedBy           uuid.UUID  `db:"admitted_by" json:"admitted_by"`
	AdmittedAt           time.Time  `db:"admitted_at" json:"admitted_at"`
	Status               string     `db:"status" json:"status"`
	DischargeRequested   bool       `db:"discharge_requested" json:"discharge_requested"`
	DischargeRequestedBy *uuid.UUID `db:"discharge_requested_by" json:"discharge_requested_by,omitempty"`
	DischargeRequestedAt *time.Time `db:"discharge_requested_at" json:"discharge_requested_at,omitempty"`
	DischargeDate        *time.Time `db:"discharge_date" json:"discharge_date,omitempty"`
	// Notes holds the discharge summary written when the admitting doctor
	// approves a discharge.
	Notes     string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

func (a *Admission) Scope() auth.Scope {
	return auth.Scope{OrgID: a.OrgID, BranchID: a.BranchID}
}

// View is the admission list row: the admission joined with the patient's
// name and the room it occupies.
type View struct {
	Admission
	PatientName string `db:"patient_name" json:"patient_name"`
	RoomNumber  string `db:"room_number" json:"room_number"`
	RoomType    string `db:"room_type" json:"room_type"`
}
