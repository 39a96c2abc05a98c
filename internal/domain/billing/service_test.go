package billing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/domain/directory"
	"github.com/ihorms/ihorms/internal/domain/scheduling"
	"github.com/ihorms/ihorms/internal/platform/audit"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/shopspring/decimal"
)

type mockRepo struct {
	bills map[uuid.UUID]*Bill
}

func (m *mockRepo) Create(_ context.Context, b *Bill) error {
	b.ID = uuid.New()
	m.bills[b.ID] = b
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Bill, error) {
	if b, ok := m.bills[id]; ok {
		return b, nil
	}
	return nil, apperr.NotFoundf("bill not found: %s", id)
}

func (m *mockRepo) GetByAppointment(_ context.Context, apptID uuid.UUID) (*Bill, error) {
	for _, b := range m.bills {
		if b.AppointmentID == apptID {
			return b, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) Update(_ context.Context, b *Bill) error {
	if _, ok := m.bills[b.ID]; !ok {
		return apperr.NotFoundf("bill not found: %s", b.ID)
	}
	m.bills[b.ID] = b
	return nil
}

func (m *mockRepo) ListForPatient(_ context.Context, patientID uuid.UUID, _ pagination.Params) ([]Bill, int, error) {
	var out []Bill
	for _, b := range m.bills {
		if b.PatientID == patientID {
			out = append(out, *b)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) ListForBranch(_ context.Context, branchID uuid.UUID, _ pagination.Params) ([]Bill, int, error) {
	var out []Bill
	for _, b := range m.bills {
		if b.BranchID == branchID {
			out = append(out, *b)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) BranchRevenue(_ context.Context, branchID uuid.UUID) (*BranchRevenue, error) {
	rev := &BranchRevenue{BranchID: branchID}
	for _, b := range m.bills {
		if b.BranchID != branchID {
			continue
		}
		rev.Billed = rev.Billed.Add(b.Total)
		rev.Collected = rev.Collected.Add(b.AmountPaid)
		rev.Outstanding = rev.Outstanding.Add(b.Outstanding())
	}
	return rev, nil
}

type mockApptRepo struct {
	appts map[uuid.UUID]*scheduling.Appointment
}

func (m *mockApptRepo) Create(_ context.Context, a *scheduling.Appointment) error {
	a.ID = uuid.New()
	m.appts[a.ID] = a
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	if a, ok := m.appts[id]; ok {
		return a, nil
	}
	return nil, apperr.NotFoundf("appointment not found: %s", id)
}

func (m *mockApptRepo) Update(_ context.Context, a *scheduling.Appointment) error {
	m.appts[a.ID] = a
	return nil
}

func (m *mockApptRepo) CountBlocking(_ context.Context, _ uuid.UUID, _ time.Time, _ string, _ *uuid.UUID) (int, error) {
	return 0, nil
}

func (m *mockApptRepo) ListForDoctor(_ context.Context, _ uuid.UUID, _ *time.Time, _ pagination.Params) ([]scheduling.Appointment, int, error) {
	return nil, 0, nil
}

func (m *mockApptRepo) ListForPatient(_ context.Context, _ uuid.UUID, _ pagination.Params) ([]scheduling.Appointment, int, error) {
	return nil, 0, nil
}

func (m *mockApptRepo) ListForBranch(_ context.Context, _ uuid.UUID, _ *time.Time, _ pagination.Params) ([]scheduling.Appointment, int, error) {
	return nil, 0, nil
}

type mockPatientRepo struct {
	patients map[uuid.UUID]*directory.Patient
}

func (m *mockPatientRepo) Create(_ context.Context, p *directory.Patient) error {
	p.ID = uuid.New()
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*directory.Patient, error) {
	if p, ok := m.patients[id]; ok {
		return p, nil
	}
	return nil, apperr.NotFoundf("patient not found: %s", id)
}

func (m *mockPatientRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*directory.Patient, error) {
	for _, p := range m.patients {
		if p.UserID != nil && *p.UserID == userID {
			return p, nil
		}
	}
	return nil, apperr.NotFoundf("no patient record linked to this account")
}

func (m *mockPatientRepo) ListByBranch(_ context.Context, _ uuid.UUID, _ pagination.Params) ([]directory.Patient, int, error) {
	return nil, 0, nil
}

type mockBranchRepo struct {
	branches map[uuid.UUID]*directory.Branch
}

func (m *mockBranchRepo) Create(_ context.Context, b *directory.Branch) error {
	b.ID = uuid.New()
	m.branches[b.ID] = b
	return nil
}

func (m *mockBranchRepo) GetByID(_ context.Context, id uuid.UUID) (*directory.Branch, error) {
	if b, ok := m.branches[id]; ok {
		return b, nil
	}
	return nil, apperr.NotFoundf("branch not found: %s", id)
}

func (m *mockBranchRepo) ListByOrg(_ context.Context, _ uuid.UUID, _ pagination.Params) ([]directory.Branch, int, error) {
	return nil, 0, nil
}

type mockSequence struct {
	mu       sync.Mutex
	counters map[string]int64
}

func (m *mockSequence) Next(_ context.Context, scope, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = map[string]int64{}
	}
	key := scope + "/" + name
	m.counters[key]++
	return m.counters[key], nil
}

type mockRecorder struct {
	entries []*audit.Entry
}

func (m *mockRecorder) LogAction(_ context.Context, e *audit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockRecorder) LogPatientAccess(_ context.Context, _ *audit.PatientAccess) error {
	return nil
}

type passthroughRunner struct{}

func (passthroughRunner) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc    *Service
	repo   *mockRepo
	rec    *mockRecorder
	org    uuid.UUID
	branch *directory.Branch
	appt   *scheduling.Appointment
}

func newFixture() *fixture {
	f := &fixture{
		repo: &mockRepo{bills: map[uuid.UUID]*Bill{}},
		rec:  &mockRecorder{},
		org:  uuid.New(),
	}

	branches := &mockBranchRepo{branches: map[uuid.UUID]*directory.Branch{}}
	f.branch = &directory.Branch{ID: uuid.New(), OrgID: f.org, Name: "Main"}
	branches.branches[f.branch.ID] = f.branch

	patients := &mockPatientRepo{patients: map[uuid.UUID]*directory.Patient{}}
	patient := &directory.Patient{ID: uuid.New(), OrgID: f.org, BranchID: f.branch.ID}
	patients.patients[patient.ID] = patient

	appts := &mockApptRepo{appts: map[uuid.UUID]*scheduling.Appointment{}}
	f.appt = &scheduling.Appointment{
		ID: uuid.New(), PatientID: patient.ID, OrgID: f.org, BranchID: f.branch.ID,
		Status: scheduling.StatusCompleted,
	}
	appts.appts[f.appt.ID] = f.appt

	f.svc = NewService(f.repo, appts, patients, branches, &mockSequence{},
		passthroughRunner{}, f.rec)
	return f
}

func (f *fixture) staffCtx() context.Context {
	return auth.WithIdentity(context.Background(), &auth.Identity{
		UserID: uuid.New(), Role: auth.RoleReceptionist, OrgID: f.org, BranchID: &f.branch.ID,
	})
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (f *fixture) generate(t *testing.T) *Bill {
	t.Helper()
	b, err := f.svc.GenerateBill(f.staffCtx(), &GenerateBillInput{
		AppointmentID:     f.appt.ID,
		ConsultationFee:   dec("500"),
		RoomCharges:       dec("1200.50"),
		MedicationCharges: dec("89.99"),
		LabCharges:        dec("250"),
		OtherCharges:      dec("10.01"),
		Discount:          dec("50"),
	})
	if err != nil {
		t.Fatalf("generate: unexpected error: %v", err)
	}
	return b
}

func TestGenerateBill_Arithmetic(t *testing.T) {
	f := newFixture()
	b := f.generate(t)

	if !b.Subtotal.Equal(dec("2050.50")) {
		t.Errorf("subtotal = %s, want 2050.50", b.Subtotal)
	}
	// 5% of 2050.50 rounded to cents.
	if !b.Tax.Equal(dec("102.53")) {
		t.Errorf("tax = %s, want 102.53", b.Tax)
	}
	if !b.Total.Equal(dec("2103.03")) {
		t.Errorf("total = %s, want 2103.03", b.Total)
	}
	if b.Status != StatusPending {
		t.Errorf("status = %s, want pending", b.Status)
	}
	wantNumber := fmt.Sprintf("BILL-%d-000001", time.Now().UTC().Year())
	if b.BillNumber != wantNumber {
		t.Errorf("bill number = %s, want %s", b.BillNumber, wantNumber)
	}
	if len(f.rec.entries) != 1 || f.rec.entries[0].Action != audit.ActionBillGenerated {
		t.Fatalf("expected exactly one BILL_GENERATED entry")
	}
}

func TestGenerateBill_Idempotent(t *testing.T) {
	f := newFixture()
	first := f.generate(t)

	second, err := f.svc.GenerateBill(f.staffCtx(), &GenerateBillInput{
		AppointmentID:   f.appt.ID,
		ConsultationFee: dec("999"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Error("expected existing bill returned")
	}
	if !second.Total.Equal(first.Total) {
		t.Error("expected existing bill unchanged")
	}
	if len(f.rec.entries) != 1 {
		t.Errorf("expected no second audit entry, got %d", len(f.rec.entries))
	}
}

func TestGenerateBill_RequiresFinishedVisit(t *testing.T) {
	f := newFixture()
	f.appt.Status = scheduling.StatusScheduled

	_, err := f.svc.GenerateBill(f.staffCtx(), &GenerateBillInput{AppointmentID: f.appt.ID})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestGenerateBill_NegativeCharge(t *testing.T) {
	f := newFixture()
	_, err := f.svc.GenerateBill(f.staffCtx(), &GenerateBillInput{
		AppointmentID:   f.appt.ID,
		ConsultationFee: dec("-5"),
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestGenerateBill_DiscountExceedsTotal(t *testing.T) {
	f := newFixture()
	_, err := f.svc.GenerateBill(f.staffCtx(), &GenerateBillInput{
		AppointmentID:   f.appt.ID,
		ConsultationFee: dec("100"),
		Discount:        dec("200"),
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestRecordPayment_PartialThenPaid(t *testing.T) {
	f := newFixture()
	b := f.generate(t)

	got, err := f.svc.RecordPayment(f.staffCtx(), b.ID, dec("1000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusPartial {
		t.Errorf("status = %s, want partial", got.Status)
	}
	if got.PaidAt != nil {
		t.Error("expected PaidAt unset on partial payment")
	}

	got, err = f.svc.RecordPayment(f.staffCtx(), b.ID, got.Outstanding())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusPaid {
		t.Errorf("status = %s, want paid", got.Status)
	}
	if got.PaidAt == nil {
		t.Error("expected PaidAt set when paid in full")
	}
	if !got.Outstanding().IsZero() {
		t.Errorf("outstanding = %s, want 0", got.Outstanding())
	}
}

func TestRecordPayment_Overpayment(t *testing.T) {
	f := newFixture()
	b := f.generate(t)

	_, err := f.svc.RecordPayment(f.staffCtx(), b.ID, b.Total.Add(dec("0.01")))
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestRecordPayment_NonPositiveAmount(t *testing.T) {
	f := newFixture()
	b := f.generate(t)

	for _, amount := range []string{"0", "-10"} {
		if _, err := f.svc.RecordPayment(f.staffCtx(), b.ID, dec(amount)); apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("amount %s: expected Validation, got %v", amount, err)
		}
	}
}

func TestRecordPayment_AlreadyPaid(t *testing.T) {
	f := newFixture()
	b := f.generate(t)
	if _, err := f.svc.RecordPayment(f.staffCtx(), b.ID, b.Total); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.svc.RecordPayment(f.staffCtx(), b.ID, dec("1"))
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestBranchRevenue(t *testing.T) {
	f := newFixture()
	b := f.generate(t)
	if _, err := f.svc.RecordPayment(f.staffCtx(), b.ID, dec("1000")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rev, err := f.svc.BranchRevenue(f.staffCtx(), f.branch.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rev.Billed.Equal(dec("2103.03")) {
		t.Errorf("billed = %s, want 2103.03", rev.Billed)
	}
	if !rev.Collected.Equal(dec("1000")) {
		t.Errorf("collected = %s, want 1000", rev.Collected)
	}
	if !rev.Outstanding.Equal(dec("1103.03")) {
		t.Errorf("outstanding = %s, want 1103.03", rev.Outstanding)
	}
}

func TestGetBill_CrossOrgForbidden(t *testing.T) {
	f := newFixture()
	b := f.generate(t)

	ctx := auth.WithIdentity(context.Background(), &auth.Identity{
		UserID: uuid.New(), Role: auth.RoleOrgAdmin, OrgID: uuid.New(),
	})
	_, err := f.svc.GetBill(ctx, b.ID)
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	if err.Error() != "cross-tenant access denied" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}
