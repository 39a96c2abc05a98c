package directory

import (
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/auth"
)

// Organization is a hospital group. Names are unique across the system.
type Organization struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address,omitempty"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	Email     string    `db:"email" json:"email,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Branch is a physical hospital location inside an organization.
type Branch struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OrgID     uuid.UUID `db:"org_id" json:"org_id"`
	Name      string    `db:"name" json:"name"`
	City      string    `db:"city" json:"city,omitempty"`
	Address   string    `db:"address" json:"address,omitempty"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// UserState is the unified account lifecycle. There is exactly one way to be
// unusable: State != UserActive. Soft-deleted rows are retained so audit
// chains keep resolving.
type UserState string

const (
	UserActive   UserState = "active"
	UserDisabled UserState = "disabled"
	UserDeleted  UserState = "deleted"
)

// ValidUserStates guards state transitions.
var ValidUserStates = map[UserState]bool{
	UserActive:   true,
	UserDisabled: true,
	UserDeleted:  true,
}

// User is an account. UID is the human-facing identifier issued to staff;
// patients carry theirs on the Patient row.
type User struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Email     string     `db:"email" json:"email"`
	Role      string     `db:"role" json:"role"`
	State     UserState  `db:"state" json:"state"`
	UID       string     `db:"uid" json:"uid,omitempty"`
	OrgID     uuid.UUID  `db:"org_id" json:"org_id"`
	BranchID  *uuid.UUID `db:"branch_id" json:"branch_id,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// IsUsable is the single accessor every authentication and assignment path
// consults. Disabled and deleted accounts are equally unusable.
func (u *User) IsUsable() bool {
	return u != nil && u.State == UserActive
}

// Doctor is the clinical profile behind a user with the doctor role.
type Doctor struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Specialty     string    `db:"specialty" json:"specialty,omitempty"`
	LicenseNumber string    `db:"license_number" json:"license_number,omitempty"`
	OrgID         uuid.UUID `db:"org_id" json:"org_id"`
	BranchID      uuid.UUID `db:"branch_id" json:"branch_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

func (d *Doctor) Scope() auth.Scope {
	return auth.Scope{OrgID: d.OrgID, BranchID: d.BranchID}
}

// Nurse is the profile behind a user with the nurse role.
type Nurse struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Ward      string    `db:"ward" json:"ward,omitempty"`
	OrgID     uuid.UUID `db:"org_id" json:"org_id"`
	BranchID  uuid.UUID `db:"branch_id" json:"branch_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (n *Nurse) Scope() auth.Scope {
	return auth.Scope{OrgID: n.OrgID, BranchID: n.BranchID}
}

// Patient is a registered patient. UID format: ORG-CIT-P00001. UserID links
// the record to a portal account when the patient has one; portal callers are
// resolved through it, never through a client-supplied patient id.
type Patient struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	UserID           *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	UID              string     `db:"uid" json:"uid"`
	FullName         string     `db:"full_name" json:"full_name"`
	DateOfBirth      *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender           string     `db:"gender" json:"gender,omitempty"`
	Phone            string     `db:"phone" json:"phone,omitempty"`
	Address          string     `db:"address" json:"address,omitempty"`
	BloodGroup       string     `db:"blood_group" json:"blood_group,omitempty"`
	EmergencyContact string     `db:"emergency_contact" json:"emergency_contact,omitempty"`
	OrgID            uuid.UUID  `db:"org_id" json:"org_id"`
	BranchID         uuid.UUID  `db:"branch_id" json:"branch_id"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

func (p *Patient) Scope() auth.Scope {
	return auth.Scope{OrgID: p.OrgID, BranchID: p.BranchID}
}
