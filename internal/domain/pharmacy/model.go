package pharmacy

import (
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/shopspring/decimal"
)

// MedicationStock is a branch's inventory line for one medication.
type MedicationStock struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	OrgID        uuid.UUID       `db:"org_id" json:"org_id"`
	BranchID     uuid.UUID       `db:"branch_id" json:"branch_id"`
	Name         string          `db:"name" json:"name"`
	Strength     string          `db:"strength" json:"strength,omitempty"`
	Quantity     int             `db:"quantity" json:"quantity"`
	ReorderLevel int             `db:"reorder_level" json:"reorder_level"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

func (m *MedicationStock) Scope() auth.Scope {
	return auth.Scope{OrgID: m.OrgID, BranchID: m.BranchID}
}

// IsLowStock reports whether the quantity has fallen to the reorder level.
func (m *MedicationStock) IsLowStock() bool {
	return m.Quantity <= m.ReorderLevel
}

// Order statuses.
const (
	StatusPending   = "pending"
	StatusFulfilled = "fulfilled"
	StatusCancelled = "cancelled"
)

// Order is a pharmacy dispensing order. Stock is only decremented when the
// order is fulfilled, not when it is created.
type Order struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	OrderNumber string          `db:"order_number" json:"order_number"`
	PatientID   *uuid.UUID      `db:"patient_id" json:"patient_id,omitempty"`
	OrgID       uuid.UUID       `db:"org_id" json:"org_id"`
	BranchID    uuid.UUID       `db:"branch_id" json:"branch_id"`
	Status      string          `db:"status" json:"status"`
	Total       decimal.Decimal `db:"total" json:"total"`
	CreatedBy   uuid.UUID       `db:"created_by" json:"created_by"`
	Items       []OrderItem     `db:"-" json:"items"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

func (o *Order) Scope() auth.Scope {
	return auth.Scope{OrgID: o.OrgID, BranchID: o.BranchID}
}

// OrderItem is one medication line on an order. MedicationName and UnitPrice
// are copied from the stock row at order time so the order survives later
// price changes.
type OrderItem struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	OrderID        uuid.UUID       `db:"order_id" json:"order_id"`
	StockID        uuid.UUID       `db:"stock_id" json:"stock_id"`
	MedicationName string          `db:"medication_name" json:"medication_name"`
	Quantity       int             `db:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal      decimal.Decimal `db:"line_total" json:"line_total"`
}
