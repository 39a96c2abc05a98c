package pharmacy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/domain/directory"
	"github.com/ihorms/ihorms/internal/platform/audit"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/internal/platform/db"
	"github.com/ihorms/ihorms/internal/platform/sequence"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/shopspring/decimal"
)

// SequenceSource hands out the next value of a named counter.
type SequenceSource interface {
	Next(ctx context.Context, scope, name string) (int64, error)
}

// Service manages medication stock and dispensing orders.
type Service struct {
	stock    StockRepository
	orders   OrderRepository
	patients directory.PatientRepository
	branches directory.BranchRepository
	seq      SequenceSource
	tx       db.Runner
	audit    audit.Recorder
}

func NewService(
	stock StockRepository,
	orders OrderRepository,
	patients directory.PatientRepository,
	branches directory.BranchRepository,
	seq SequenceSource,
	tx db.Runner,
	rec audit.Recorder,
) *Service {
	return &Service{
		stock:    stock,
		orders:   orders,
		patients: patients,
		branches: branches,
		seq:      seq,
		tx:       tx,
		audit:    rec,
	}
}

// AddStockInput registers a new medication in a branch's inventory.
type AddStockInput struct {
	BranchID     uuid.UUID
	Name         string
	Strength     string
	Quantity     int
	ReorderLevel int
	UnitPrice    decimal.Decimal
}

func (s *Service) AddStock(ctx context.Context, in *AddStockInput) (*MedicationStock, error) {
	if in.Name == "" {
		return nil, apperr.Validationf("medication name is required")
	}
	if in.Quantity < 0 {
		return nil, apperr.Validationf("quantity cannot be negative")
	}
	if in.ReorderLevel < 0 {
		return nil, apperr.Validationf("reorder level cannot be negative")
	}
	if in.UnitPrice.IsNegative() {
		return nil, apperr.Validationf("unit price cannot be negative")
	}

	branch, err := s.branches.GetByID(ctx, in.BranchID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, auth.Scope{OrgID: branch.OrgID, BranchID: branch.ID}); err != nil {
		return nil, err
	}

	m := &MedicationStock{
		OrgID:        branch.OrgID,
		BranchID:     branch.ID,
		Name:         in.Name,
		Strength:     in.Strength,
		Quantity:     in.Quantity,
		ReorderLevel: in.ReorderLevel,
		UnitPrice:    in.UnitPrice,
	}
	if err := s.stock.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("add medication stock: %w", err)
	}
	return m, nil
}

// AdjustStock applies a signed quantity delta to a stock line. Restocks pass
// a positive delta, corrections a negative one. The adjustment may never
// drive the quantity below zero.
func (s *Service) AdjustStock(ctx context.Context, stockID uuid.UUID, delta int, reason string) (*MedicationStock, error) {
	if delta == 0 {
		return nil, apperr.Validationf("adjustment delta cannot be zero")
	}

	m, err := s.stock.GetByID(ctx, stockID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, m.Scope()); err != nil {
		return nil, err
	}
	if m.Quantity+delta < 0 {
		return nil, apperr.Validationf("adjustment would drive %s stock below zero", m.Name)
	}

	before := m.Quantity
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		qty, err := s.stock.AdjustQuantity(ctx, stockID, delta)
		if err != nil {
			return err
		}
		m.Quantity = qty
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:      actorID(id),
			Action:      audit.ActionStockAdjusted,
			EntityType:  "medication_stock",
			EntityID:    m.ID.String(),
			BeforeState: map[string]any{"quantity": before},
			AfterState:  map[string]any{"quantity": m.Quantity, "reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListStock returns a branch's inventory.
func (s *Service) ListStock(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]MedicationStock, int, error) {
	if err := s.authorizeBranch(ctx, branchID); err != nil {
		return nil, 0, err
	}
	return s.stock.ListByBranch(ctx, branchID, p)
}

// ListLowStock returns the branch's lines at or below their reorder level.
func (s *Service) ListLowStock(ctx context.Context, branchID uuid.UUID) ([]MedicationStock, error) {
	if err := s.authorizeBranch(ctx, branchID); err != nil {
		return nil, err
	}
	return s.stock.ListLowStock(ctx, branchID)
}

// OrderItemInput is one requested medication line.
type OrderItemInput struct {
	StockID  uuid.UUID
	Quantity int
}

// CreateOrderInput describes a dispensing order.
type CreateOrderInput struct {
	PatientID *uuid.UUID
	BranchID  uuid.UUID
	Items     []OrderItemInput
}

// CreateOrder prices the requested items against current stock and creates a
// pending order. Stock quantities are not touched until fulfillment.
func (s *Service) CreateOrder(ctx context.Context, in *CreateOrderInput) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, apperr.Validationf("order must contain at least one item")
	}

	branch, err := s.branches.GetByID(ctx, in.BranchID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, auth.Scope{OrgID: branch.OrgID, BranchID: branch.ID}); err != nil {
		return nil, err
	}
	if id == nil {
		return nil, apperr.Forbiddenf("cross-tenant access denied")
	}

	if in.PatientID != nil {
		patient, err := s.patients.GetByID(ctx, *in.PatientID)
		if err != nil {
			return nil, err
		}
		if patient.BranchID != branch.ID {
			return nil, apperr.Validationf("patient does not belong to this branch")
		}
	}

	o := &Order{
		PatientID: in.PatientID,
		OrgID:     branch.OrgID,
		BranchID:  branch.ID,
		Status:    StatusPending,
		Total:     decimal.Zero,
		CreatedBy: id.UserID,
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, apperr.Validationf("item quantity must be positive")
		}
		m, err := s.stock.GetByID(ctx, item.StockID)
		if err != nil {
			return nil, err
		}
		if m.BranchID != branch.ID {
			return nil, apperr.Validationf("medication %s does not belong to this branch", m.Name)
		}
		lineTotal := m.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		o.Items = append(o.Items, OrderItem{
			StockID:        m.ID,
			MedicationName: m.Name,
			Quantity:       item.Quantity,
			UnitPrice:      m.UnitPrice,
			LineTotal:      lineTotal,
		})
		o.Total = o.Total.Add(lineTotal)
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		year := time.Now().UTC().Year()
		n, err := s.seq.Next(ctx, branch.OrgID.String(), fmt.Sprintf("orders:%d", year))
		if err != nil {
			return err
		}
		o.OrderNumber = sequence.FormatOrderNumber(year, n)

		if err := s.orders.Create(ctx, o); err != nil {
			return fmt.Errorf("create pharmacy order: %w", err)
		}
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:     &id.UserID,
			Action:     audit.ActionOrderCreated,
			EntityType: "pharmacy_order",
			EntityID:   o.ID.String(),
			AfterState: map[string]any{
				"order_number": o.OrderNumber,
				"total":        o.Total.String(),
				"items":        len(o.Items),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// FulfillOrder dispenses a pending order, decrementing every item's stock in
// one transaction. Any shortfall rolls the whole fulfillment back.
func (s *Service) FulfillOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, o.Scope()); err != nil {
		return nil, err
	}
	if o.Status != StatusPending {
		return nil, apperr.Validationf("only pending orders can be fulfilled")
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		for _, item := range o.Items {
			m, err := s.stock.GetByID(ctx, item.StockID)
			if err != nil {
				return err
			}
			if m.Quantity < item.Quantity {
				return apperr.Conflictf("insufficient stock for %s", m.Name)
			}
			if _, err := s.stock.AdjustQuantity(ctx, item.StockID, -item.Quantity); err != nil {
				return err
			}
		}

		if err := s.orders.UpdateStatus(ctx, o.ID, StatusFulfilled); err != nil {
			return fmt.Errorf("fulfill order: %w", err)
		}
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:     actorID(id),
			Action:     audit.ActionOrderFulfilled,
			EntityType: "pharmacy_order",
			EntityID:   o.ID.String(),
			AfterState: map[string]any{"status": StatusFulfilled},
		})
	})
	if err != nil {
		return nil, err
	}
	o.Status = StatusFulfilled
	return o, nil
}

// CancelOrder cancels a pending order. Stock is untouched since nothing was
// dispensed yet.
func (s *Service) CancelOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, o.Scope()); err != nil {
		return nil, err
	}
	if o.Status != StatusPending {
		return nil, apperr.Validationf("only pending orders can be cancelled")
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.orders.UpdateStatus(ctx, o.ID, StatusCancelled); err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:     actorID(id),
			Action:     audit.ActionOrderCancelled,
			EntityType: "pharmacy_order",
			EntityID:   o.ID.String(),
			AfterState: map[string]any{"status": StatusCancelled},
		})
	})
	if err != nil {
		return nil, err
	}
	o.Status = StatusCancelled
	return o, nil
}

// GetOrder resolves an order and enforces tenant scope.
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := auth.AuthorizeScope(auth.IdentityFromContext(ctx), o.Scope()); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders returns a branch's orders.
func (s *Service) ListOrders(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]Order, int, error) {
	if err := s.authorizeBranch(ctx, branchID); err != nil {
		return nil, 0, err
	}
	return s.orders.ListByBranch(ctx, branchID, p)
}

func (s *Service) authorizeBranch(ctx context.Context, branchID uuid.UUID) error {
	branch, err := s.branches.GetByID(ctx, branchID)
	if err != nil {
		return err
	}
	return auth.AuthorizeScope(auth.IdentityFromContext(ctx),
		auth.Scope{OrgID: branch.OrgID, BranchID: branch.ID})
}

func actorID(id *auth.Identity) *uuid.UUID {
	if id == nil {
		return nil
	}
	return &id.UserID
}
