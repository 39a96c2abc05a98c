package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/domain/directory"
	"github.com/ihorms/ihorms/internal/domain/scheduling"
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

// Service generates bills and records payments.
type Service struct {
	repo     Repository
	appts    scheduling.AppointmentRepository
	patients directory.PatientRepository
	branches directory.BranchRepository
	seq      SequenceSource
	tx       db.Runner
	audit    audit.Recorder
}

func NewService(
	repo Repository,
	appts scheduling.AppointmentRepository,
	patients directory.PatientRepository,
	branches directory.BranchRepository,
	seq SequenceSource,
	tx db.Runner,
	rec audit.Recorder,
) *Service {
	return &Service{
		repo:     repo,
		appts:    appts,
		patients: patients,
		branches: branches,
		seq:      seq,
		tx:       tx,
		audit:    rec,
	}
}

// GenerateBillInput carries the itemized charges for one appointment.
type GenerateBillInput struct {
	AppointmentID     uuid.UUID
	ConsultationFee   decimal.Decimal
	RoomCharges       decimal.Decimal
	MedicationCharges decimal.Decimal
	LabCharges        decimal.Decimal
	OtherCharges      decimal.Decimal
	Discount          decimal.Decimal
}

func (in *GenerateBillInput) validate() error {
	for _, c := range []struct {
		name   string
		amount decimal.Decimal
	}{
		{"consultation fee", in.ConsultationFee},
		{"room charges", in.RoomCharges},
		{"medication charges", in.MedicationCharges},
		{"lab charges", in.LabCharges},
		{"other charges", in.OtherCharges},
		{"discount", in.Discount},
	} {
		if c.amount.IsNegative() {
			return apperr.Validationf("%s cannot be negative", c.name)
		}
	}
	return nil
}

// GenerateBill creates the invoice for a completed or admitted appointment.
// Generation is idempotent: a second call returns the existing bill unchanged.
func (s *Service) GenerateBill(ctx context.Context, in *GenerateBillInput) (*Bill, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	appt, err := s.appts.GetByID(ctx, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, appt.Scope()); err != nil {
		return nil, err
	}
	if id == nil {
		return nil, apperr.Forbiddenf("cross-tenant access denied")
	}
	if appt.Status != scheduling.StatusCompleted && appt.Status != scheduling.StatusAdmitted {
		return nil, apperr.Validationf("bill can only be generated for a completed or admitted appointment")
	}

	if existing, err := s.repo.GetByAppointment(ctx, in.AppointmentID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	subtotal := in.ConsultationFee.
		Add(in.RoomCharges).
		Add(in.MedicationCharges).
		Add(in.LabCharges).
		Add(in.OtherCharges)
	tax := subtotal.Mul(TaxRate).Round(2)
	total := subtotal.Add(tax).Sub(in.Discount)
	if total.IsNegative() {
		return nil, apperr.Validationf("discount exceeds the billed amount")
	}

	b := &Bill{
		AppointmentID:     appt.ID,
		PatientID:         appt.PatientID,
		OrgID:             appt.OrgID,
		BranchID:          appt.BranchID,
		ConsultationFee:   in.ConsultationFee,
		RoomCharges:       in.RoomCharges,
		MedicationCharges: in.MedicationCharges,
		LabCharges:        in.LabCharges,
		OtherCharges:      in.OtherCharges,
		Subtotal:          subtotal,
		Tax:               tax,
		Discount:          in.Discount,
		Total:             total,
		AmountPaid:        decimal.Zero,
		Status:            StatusPending,
		GeneratedBy:       id.UserID,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		year := time.Now().UTC().Year()
		n, err := s.seq.Next(ctx, appt.OrgID.String(), fmt.Sprintf("bills:%d", year))
		if err != nil {
			return err
		}
		b.BillNumber = sequence.FormatBillNumber(year, n)

		if err := s.repo.Create(ctx, b); err != nil {
			return fmt.Errorf("create bill: %w", err)
		}

		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:     &id.UserID,
			Action:     audit.ActionBillGenerated,
			EntityType: "bill",
			EntityID:   b.ID.String(),
			AfterState: map[string]any{
				"bill_number": b.BillNumber,
				"total":       b.Total.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// RecordPayment applies a payment to a bill. Overpayment is rejected so the
// collected total can never exceed the billed total.
func (s *Service) RecordPayment(ctx context.Context, billID uuid.UUID, amount decimal.Decimal) (*Bill, error) {
	if !amount.IsPositive() {
		return nil, apperr.Validationf("payment amount must be positive")
	}

	b, err := s.repo.GetByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	id := auth.IdentityFromContext(ctx)
	if err := auth.AuthorizeScope(id, b.Scope()); err != nil {
		return nil, err
	}
	if b.Status == StatusPaid {
		return nil, apperr.Validationf("bill is already paid in full")
	}
	if amount.GreaterThan(b.Outstanding()) {
		return nil, apperr.Validationf("payment of %s exceeds outstanding balance of %s",
			amount.StringFixed(2), b.Outstanding().StringFixed(2))
	}

	before := map[string]any{"amount_paid": b.AmountPaid.String(), "status": b.Status}
	b.AmountPaid = b.AmountPaid.Add(amount)
	if b.AmountPaid.GreaterThanOrEqual(b.Total) {
		now := time.Now().UTC()
		b.Status = StatusPaid
		b.PaidAt = &now
	} else {
		b.Status = StatusPartial
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, b); err != nil {
			return fmt.Errorf("record payment: %w", err)
		}
		return s.audit.LogAction(ctx, &audit.Entry{
			UserID:      actorID(id),
			Action:      audit.ActionPaymentUpdated,
			EntityType:  "bill",
			EntityID:    b.ID.String(),
			BeforeState: before,
			AfterState: map[string]any{
				"amount_paid": b.AmountPaid.String(),
				"status":      b.Status,
				"payment":     amount.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBill resolves a bill and enforces tenant scope.
func (s *Service) GetBill(ctx context.Context, billID uuid.UUID) (*Bill, error) {
	b, err := s.repo.GetByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := auth.AuthorizeScope(auth.IdentityFromContext(ctx), b.Scope()); err != nil {
		return nil, err
	}
	return b, nil
}

// ListForPatient returns a patient's bills.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]Bill, int, error) {
	patient, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}
	if err := auth.AuthorizeScope(auth.IdentityFromContext(ctx), patient.Scope()); err != nil {
		return nil, 0, err
	}
	return s.repo.ListForPatient(ctx, patientID, p)
}

// ListForBranch returns a branch's bills.
func (s *Service) ListForBranch(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]Bill, int, error) {
	if err := s.authorizeBranch(ctx, branchID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListForBranch(ctx, branchID, p)
}

// BranchRevenue reports a branch's billed, collected and outstanding totals.
func (s *Service) BranchRevenue(ctx context.Context, branchID uuid.UUID) (*BranchRevenue, error) {
	if err := s.authorizeBranch(ctx, branchID); err != nil {
		return nil, err
	}
	return s.repo.BranchRevenue(ctx, branchID)
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
