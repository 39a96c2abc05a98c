package pharmacy

import (
	"context"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/pkg/pagination"
)

// StockRepository persists medication stock.
type StockRepository interface {
	Create(ctx context.Context, m *MedicationStock) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicationStock, error)
	// AdjustQuantity applies a signed delta and returns the new quantity.
	// The update refuses to drive the quantity negative.
	AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) (int, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]MedicationStock, int, error)
	ListLowStock(ctx context.Context, branchID uuid.UUID) ([]MedicationStock, error)
}

// OrderRepository persists pharmacy orders with their items.
type OrderRepository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ListByBranch(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]Order, int, error)
}
