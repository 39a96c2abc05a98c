package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/internal/platform/db"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Action names recorded in the audit trail.
const (
	ActionAppointmentCreated     = "APPOINTMENT_CREATED"
	ActionAppointmentAccepted    = "APPOINTMENT_ACCEPTED"
	ActionAppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	ActionAppointmentRejected    = "APPOINTMENT_REJECTED"
	ActionAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	ActionAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	ActionDoctorNotesAdded       = "DOCTOR_NOTES_ADDED"
	ActionPatientAdmitted        = "PATIENT_ADMITTED"
	ActionDischargeRequested     = "DISCHARGE_REQUESTED"
	ActionDischargeApproved      = "DISCHARGE_APPROVED"
	ActionDischargeRejected      = "DISCHARGE_REJECTED"
	ActionRoomAvailability       = "ROOM_AVAILABILITY_UPDATED"
	ActionTelemetryRecorded      = "TELEMETRY_RECORDED"
	ActionBillGenerated          = "BILL_GENERATED"
	ActionPaymentUpdated         = "PAYMENT_UPDATED"
	ActionOrderCreated           = "ORDER_CREATED"
	ActionOrderFulfilled         = "ORDER_FULFILLED"
	ActionOrderCancelled         = "ORDER_CANCELLED"
	ActionStockAdjusted          = "STOCK_ADJUSTED"
	ActionUserCreated            = "USER_CREATED"
	ActionUserStateChanged       = "USER_STATE_CHANGED"
	ActionOrgCreated             = "ORGANIZATION_CREATED"
	ActionBranchCreated          = "BRANCH_CREATED"
	ActionPatientRegistered      = "PATIENT_REGISTERED"
	ActionMedicalRecordAccessed  = "MEDICAL_RECORD_ACCESSED"
)

// Entry is one audit trail row. OrgID scopes the row to the actor's tenant;
// the recorder fills it from the request identity when left unset.
type Entry struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	OrgID       *uuid.UUID     `db:"org_id" json:"org_id,omitempty"`
	UserID      *uuid.UUID     `db:"user_id" json:"user_id,omitempty"`
	Action      string         `db:"action" json:"action"`
	EntityType  string         `db:"entity_type" json:"entity_type"`
	EntityID    string         `db:"entity_id" json:"entity_id"`
	BeforeState map[string]any `db:"before_state" json:"before_state,omitempty"`
	AfterState  map[string]any `db:"after_state" json:"after_state,omitempty"`
	IPAddress   string         `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent   string         `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// PatientAccess is one patient record access row.
type PatientAccess struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	OrgID        *uuid.UUID `db:"org_id" json:"org_id,omitempty"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	AccessedBy   uuid.UUID  `db:"accessed_by" json:"accessed_by"`
	AccessType   string     `db:"access_type" json:"access_type"`
	AccessReason string     `db:"access_reason" json:"access_reason,omitempty"`
	IPAddress    string     `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Recorder writes audit rows. Services hold this interface so tests can
// capture entries in memory.
type Recorder interface {
	LogAction(ctx context.Context, e *Entry) error
	LogPatientAccess(ctx context.Context, a *PatientAccess) error
}

// PGRecorder writes audit rows to PostgreSQL. Writes issued inside a
// db.Runner transaction share that transaction, so an audit row never
// outlives a rolled-back mutation and a committed mutation never lacks one.
type PGRecorder struct {
	pool *pgxpool.Pool
}

func NewPGRecorder(pool *pgxpool.Pool) *PGRecorder {
	return &PGRecorder{pool: pool}
}

func (r *PGRecorder) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

// LogAction writes an Entry to the audit_logs table.
func (r *PGRecorder) LogAction(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.OrgID == nil {
		if id := auth.IdentityFromContext(ctx); id != nil {
			e.OrgID = &id.OrgID
		}
	}
	if info := InfoFromContext(ctx); info != nil {
		if e.IPAddress == "" {
			e.IPAddress = info.IPAddress
		}
		if e.UserAgent == "" {
			e.UserAgent = info.UserAgent
		}
	}

	before, err := marshalState(e.BeforeState)
	if err != nil {
		return fmt.Errorf("audit: marshal before state: %w", err)
	}
	after, err := marshalState(e.AfterState)
	if err != nil {
		return fmt.Errorf("audit: marshal after state: %w", err)
	}

	const query = `
		INSERT INTO audit_logs (
			org_id, user_id, action, entity_type, entity_id,
			before_state, after_state, ip_address, user_agent, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id`

	return r.conn(ctx).QueryRow(ctx, query,
		e.OrgID, e.UserID, e.Action, e.EntityType, e.EntityID,
		before, after, e.IPAddress, e.UserAgent, e.CreatedAt,
	).Scan(&e.ID)
}

// LogPatientAccess writes a PatientAccess row to the patient_access_logs table.
func (r *PGRecorder) LogPatientAccess(ctx context.Context, a *PatientAccess) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.OrgID == nil {
		if id := auth.IdentityFromContext(ctx); id != nil {
			a.OrgID = &id.OrgID
		}
	}
	if info := InfoFromContext(ctx); info != nil && a.IPAddress == "" {
		a.IPAddress = info.IPAddress
	}

	const query = `
		INSERT INTO patient_access_logs (
			org_id, patient_id, accessed_by, access_type, access_reason, ip_address, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`

	return r.conn(ctx).QueryRow(ctx, query,
		a.OrgID, a.PatientID, a.AccessedBy, a.AccessType, a.AccessReason, a.IPAddress, a.CreatedAt,
	).Scan(&a.ID)
}

func marshalState(state map[string]any) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}
