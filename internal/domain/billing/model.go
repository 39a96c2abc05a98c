package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/shopspring/decimal"
)

// TaxRate applied to the charge subtotal.
var TaxRate = decimal.NewFromFloat(0.05)

// Bill statuses.
const (
	StatusPending = "pending"
	StatusPartial = "partial"
	StatusPaid    = "paid"
)

// Bill is the invoice for one appointment. All amounts are exact decimals;
// Subtotal, Tax and Total are derived once at generation time.
type Bill struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	BillNumber        string          `db:"bill_number" json:"bill_number"`
	AppointmentID     uuid.UUID       `db:"appointment_id" json:"appointment_id"`
	PatientID         uuid.UUID       `db:"patient_id" json:"patient_id"`
	OrgID             uuid.UUID       `db:"org_id" json:"org_id"`
	BranchID          uuid.UUID       `db:"branch_id" json:"branch_id"`
	ConsultationFee   decimal.Decimal `db:"consultation_fee" json:"consultation_fee"`
	RoomCharges       decimal.Decimal `db:"room_charges" json:"room_charges"`
	MedicationCharges decimal.Decimal `db:"medication_charges" json:"medication_charges"`
	LabCharges        decimal.Decimal `db:"lab_charges" json:"lab_charges"`
	OtherCharges      decimal.Decimal `db:"other_charges" json:"other_charges"`
	Subtotal          decimal.Decimal `db:"subtotal" json:"subtotal"`
	Tax               decimal.Decimal `db:"tax" json:"tax"`
	Discount          decimal.Decimal `db:"discount" json:"discount"`
	Total             decimal.Decimal `db:"total" json:"total"`
	AmountPaid        decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	Status            string          `db:"status" json:"status"`
	PaidAt            *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	GeneratedBy       uuid.UUID       `db:"generated_by" json:"generated_by"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

func (b *Bill) Scope() auth.Scope {
	return auth.Scope{OrgID: b.OrgID, BranchID: b.BranchID}
}

// Outstanding is the unpaid remainder.
func (b *Bill) Outstanding() decimal.Decimal {
	return b.Total.Sub(b.AmountPaid)
}

// BranchRevenue aggregates a branch's billing position.
type BranchRevenue struct {
	BranchID    uuid.UUID       `db:"branch_id" json:"branch_id"`
	Billed      decimal.Decimal `db:"billed" json:"billed"`
	Collected   decimal.Decimal `db:"collected" json:"collected"`
	Outstanding decimal.Decimal `db:"outstanding" json:"outstanding"`
}
