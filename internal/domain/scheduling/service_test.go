package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/domain/directory"
	"github.com/ihorms/ihorms/internal/domain/medicalhistory"
	"github.com/ihorms/ihorms/internal/platform/audit"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
)

type mockApptRepo struct {
	appts map[uuid.UUID]*Appointment
}

func (m *mockApptRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	m.appts[a.ID] = a
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	if a, ok := m.appts[id]; ok {
		return a, nil
	}
	return nil, apperr.NotFoundf("appointment not found: %s", id)
}

func (m *mockApptRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return apperr.NotFoundf("appointment not found: %s", a.ID)
	}
	a.UpdatedAt = time.Now().UTC()
	m.appts[a.ID] = a
	return nil
}

func (m *mockApptRepo) CountBlocking(_ context.Context, doctorID uuid.UUID, date time.Time, startTime string, excludeID *uuid.UUID) (int, error) {
	count := 0
	for _, a := range m.appts {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.StartTime == startTime && BlockingStatuses[a.Status] {
			count++
		}
	}
	return count, nil
}

func (m *mockApptRepo) ListForDoctor(_ context.Context, doctorID uuid.UUID, _ *time.Time, _ pagination.Params) ([]Appointment, int, error) {
	var out []Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID {
			out = append(out, *a)
		}
	}
	return out, len(out), nil
}

func (m *mockApptRepo) ListForPatient(_ context.Context, patientID uuid.UUID, _ pagination.Params) ([]Appointment, int, error) {
	var out []Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	return out, len(out), nil
}

func (m *mockApptRepo) ListForBranch(_ context.Context, branchID uuid.UUID, _ *time.Time, _ pagination.Params) ([]Appointment, int, error) {
	var out []Appointment
	for _, a := range m.appts {
		if a.BranchID == branchID {
			out = append(out, *a)
		}
	}
	return out, len(out), nil
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

type mockDoctorRepo struct {
	doctors []*directory.Doctor
}

func (m *mockDoctorRepo) Create(_ context.Context, d *directory.Doctor) error {
	d.ID = uuid.New()
	m.doctors = append(m.doctors, d)
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*directory.Doctor, error) {
	for _, d := range m.doctors {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, apperr.NotFoundf("doctor not found: %s", id)
}

func (m *mockDoctorRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*directory.Doctor, error) {
	for _, d := range m.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, apperr.NotFoundf("doctor not found for user: %s", userID)
}

func (m *mockDoctorRepo) ListByBranch(_ context.Context, branchID uuid.UUID) ([]directory.Doctor, error) {
	var out []directory.Doctor
	for _, d := range m.doctors {
		if d.BranchID == branchID {
			out = append(out, *d)
		}
	}
	return out, nil
}

type mockUserRepo struct {
	users map[uuid.UUID]*directory.User
}

func (m *mockUserRepo) Create(_ context.Context, u *directory.User) error {
	u.ID = uuid.New()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*directory.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFoundf("user not found: %s", id)
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*directory.User, error) {
	return nil, apperr.NotFoundf("user not found: %s", email)
}

func (m *mockUserRepo) UpdateState(_ context.Context, id uuid.UUID, state directory.UserState) error {
	if u, ok := m.users[id]; ok {
		u.State = state
		return nil
	}
	return apperr.NotFoundf("user not found: %s", id)
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

type mockRoomLocator struct {
	roomID *uuid.UUID
}

func (m *mockRoomLocator) FirstAvailableRoom(_ context.Context, _ uuid.UUID, _ string) (*uuid.UUID, error) {
	return m.roomID, nil
}

type mockHistoryRepo struct {
	records []*medicalhistory.Record
}

func (m *mockHistoryRepo) Create(_ context.Context, r *medicalhistory.Record) error {
	r.ID = uuid.New()
	m.records = append(m.records, r)
	return nil
}

func (m *mockHistoryRepo) ListForPatient(_ context.Context, _ uuid.UUID, _ pagination.Params) ([]medicalhistory.Record, int, error) {
	return nil, 0, nil
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
	svc      *Service
	repo     *mockApptRepo
	doctors  *mockDoctorRepo
	users    *mockUserRepo
	patients *mockPatientRepo
	history  *mockHistoryRepo
	rec      *mockRecorder

	org     uuid.UUID
	branch  *directory.Branch
	patient *directory.Patient
	doctorA *directory.Doctor
	doctorB *directory.Doctor
	userA   *directory.User
	userB   *directory.User
}

func newFixture() *fixture {
	f := &fixture{
		repo:    &mockApptRepo{appts: map[uuid.UUID]*Appointment{}},
		doctors: &mockDoctorRepo{},
		users:   &mockUserRepo{users: map[uuid.UUID]*directory.User{}},
		history: &mockHistoryRepo{},
		rec:     &mockRecorder{},
		org:     uuid.New(),
	}

	branches := &mockBranchRepo{branches: map[uuid.UUID]*directory.Branch{}}
	f.branch = &directory.Branch{ID: uuid.New(), OrgID: f.org, Name: "Main", City: "Austin"}
	branches.branches[f.branch.ID] = f.branch

	f.patients = &mockPatientRepo{patients: map[uuid.UUID]*directory.Patient{}}
	f.patient = &directory.Patient{ID: uuid.New(), FullName: "Pat", OrgID: f.org, BranchID: f.branch.ID}
	f.patients.patients[f.patient.ID] = f.patient

	f.userA = &directory.User{ID: uuid.New(), Role: auth.RoleDoctor, State: directory.UserActive, OrgID: f.org, BranchID: &f.branch.ID}
	f.userB = &directory.User{ID: uuid.New(), Role: auth.RoleDoctor, State: directory.UserActive, OrgID: f.org, BranchID: &f.branch.ID}
	f.users.users[f.userA.ID] = f.userA
	f.users.users[f.userB.ID] = f.userB

	f.doctorA = &directory.Doctor{ID: uuid.New(), UserID: f.userA.ID, FullName: "Dr. A", OrgID: f.org, BranchID: f.branch.ID}
	f.doctorB = &directory.Doctor{ID: uuid.New(), UserID: f.userB.ID, FullName: "Dr. B", OrgID: f.org, BranchID: f.branch.ID}
	f.doctors.doctors = []*directory.Doctor{f.doctorA, f.doctorB}

	f.svc = NewService(f.repo, f.patients, f.doctors, f.users, branches,
		&mockRoomLocator{}, f.history, passthroughRunner{}, f.rec)
	return f
}

// portalPatient links a fresh patient record to a portal account and returns
// the record plus a context carrying the patient identity.
func (f *fixture) portalPatient(name string) (*directory.Patient, context.Context) {
	userID := uuid.New()
	p := &directory.Patient{ID: uuid.New(), UserID: &userID, FullName: name,
		OrgID: f.org, BranchID: f.branch.ID}
	f.patients.patients[p.ID] = p
	ctx := auth.WithIdentity(context.Background(), &auth.Identity{
		UserID: userID, Role: auth.RolePatient, OrgID: f.org, BranchID: &f.branch.ID,
	})
	return p, ctx
}

func (f *fixture) staffCtx() context.Context {
	return auth.WithIdentity(context.Background(), &auth.Identity{
		UserID: uuid.New(), Role: auth.RoleReceptionist, OrgID: f.org, BranchID: &f.branch.ID,
	})
}

func (f *fixture) doctorCtx(u *directory.User) context.Context {
	return auth.WithIdentity(context.Background(), &auth.Identity{
		UserID: u.ID, Role: auth.RoleDoctor, OrgID: f.org, BranchID: &f.branch.ID,
	})
}

var (
	day  = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	slot = "09:30"
)

func (f *fixture) book(t *testing.T, doctorID *uuid.UUID, startTime string) *Appointment {
	t.Helper()
	a, err := f.svc.CreateAppointment(f.staffCtx(), &CreateAppointmentInput{
		PatientID: f.patient.ID,
		DoctorID:  doctorID,
		Date:      day,
		StartTime: startTime,
	})
	if err != nil {
		t.Fatalf("book: unexpected error: %v", err)
	}
	return a
}

func TestCreateAppointment_Scheduled(t *testing.T) {
	f := newFixture()
	a := f.book(t, &f.doctorA.ID, slot)

	if a.Status != StatusScheduled {
		t.Errorf("expected scheduled, got %s", a.Status)
	}
	if a.DoctorID != f.doctorA.ID {
		t.Error("doctor not assigned")
	}
	if len(f.rec.entries) != 1 || f.rec.entries[0].Action != audit.ActionAppointmentCreated {
		t.Fatalf("expected exactly one APPOINTMENT_CREATED audit entry")
	}
}

func TestCreateAppointment_SlotTaken(t *testing.T) {
	f := newFixture()
	f.book(t, &f.doctorA.ID, slot)

	_, err := f.svc.CreateAppointment(f.staffCtx(), &CreateAppointmentInput{
		PatientID: f.patient.ID,
		DoctorID:  &f.doctorA.ID,
		Date:      day,
		StartTime: slot,
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
	if err.Error() != "doctor is not available at this time" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestCreateAppointment_DifferentSlotSameDoctor(t *testing.T) {
	f := newFixture()
	f.book(t, &f.doctorA.ID, "09:30")
	f.book(t, &f.doctorA.ID, "10:00")
}

func TestCreateAppointment_AutoAssignFirstFree(t *testing.T) {
	f := newFixture()
	f.book(t, &f.doctorA.ID, slot)

	a := f.book(t, nil, slot)
	if a.DoctorID != f.doctorB.ID {
		t.Errorf("expected auto-assign to pick second doctor, got %s", a.DoctorID)
	}
}

func TestCreateAppointment_AutoAssignSkipsUnusable(t *testing.T) {
	f := newFixture()
	f.userA.State = directory.UserDisabled

	a := f.book(t, nil, slot)
	if a.DoctorID != f.doctorB.ID {
		t.Errorf("expected disabled doctor skipped, got %s", a.DoctorID)
	}
}

func TestCreateAppointment_NoDoctorsFree(t *testing.T) {
	f := newFixture()
	f.book(t, &f.doctorA.ID, slot)
	f.book(t, &f.doctorB.ID, slot)

	_, err := f.svc.CreateAppointment(f.staffCtx(), &CreateAppointmentInput{
		PatientID: f.patient.ID,
		Date:      day,
		StartTime: slot,
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
	if err.Error() != "no doctors available at this time" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestCreateAppointment_InvalidTime(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateAppointment(f.staffCtx(), &CreateAppointmentInput{
		PatientID: f.patient.ID,
		Date:      day,
		StartTime: "9:3x",
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestAccept_AssignedDoctor(t *testing.T) {
	f := newFixture()
	a := f.book(t, &f.doctorA.ID, slot)

	got, err := f.svc.Accept(f.doctorCtx(f.userA), a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusAccepted {
		t.Errorf("expected accepted, got %s", got.Status)
	}
}

func TestAccept_WrongDoctorForbidden(t *testing.T) {
	f := newFixture()
	a := f.book(t, &f.doctorA.ID, slot)

	_, err := f.svc.Accept(f.doctorCtx(f.userB), a.ID)
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	if err.Error() != "this appointment is not assigned to you" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestAccept_OnlyFromScheduled(t *testing.T) {
	f := newFixture()
	a := f.book(t, &f.doctorA.ID, slot)
	ctx := f.doctorCtx(f.userA)

	if _, err := f.svc.Accept(ctx, a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Accept(ctx, a.ID); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected Validation on double accept, got %v", err)
	}
}

func TestConfirm_StaffPath(t *testing.T) {
	f := newFixture()
	a := f.book(t, &f.doctorA.ID, slot)

	got, err := f.svc.Confirm(f.staffCtx(), a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusAccepted {
		t.Errorf("expected accepted, got %s", got.Status)
	}
	last := f.rec.entries[len(f.rec.entries)-1]
	if last.Action != audit.ActionAppointmentConfirmed {
		t.Errorf("expected APPOINTMENT_CONFIRMED, got %s", last.Action)
	}
}

func TestCancel_FreesSlot(t *testing.T) {
	f := newFixture()
	a := f.book(t, &f.doctorA.ID, slot)

	if _, err := f.svc.Cancel(f.staffCtx(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Slot is free again.
	f.book(t, &f.doctorA.ID, slot)
}

func TestCancel_TerminalRejected(t *testing.T) {
	f := newFixture()
	a := f.book(t, &f.doctorA.ID, slot)

	if _, err := f.svc.Cancel(f.staffCtx(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := f.svc.Cancel(f.staffCtx(), a.ID)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected Validation on cancelled appointment, got %v", err)
	}
}

func TestReschedule_ResetsToScheduled(t *testing.T) {
	f := newFixture()
	a := f.book(t, &f.doctorA.ID, slot)
	if _, err := f.svc.Confirm(f.staffCtx(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := f.svc.Reschedule(f.staffCtx(), a.ID, &RescheduleInput{
		Date: day.AddDate(0, 0, 1), StartTime: "11:00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusScheduled {
		t.Errorf("expected reset to scheduled, got %s", got.Status)
	}
}

func TestReschedule_CompletedRejected(t *testing.T) {
	f := newFixture()
	a := f.book(t, &f.doctorA.ID, slot)
	a.Status = StatusCompleted

	_, err := f.svc.Reschedule(f.staffCtx(), a.ID, &RescheduleInput{Date: day, StartTime: "11:00"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected Validation, got %v", err)
	}
	if err.Error() != "cannot reschedule completed appointment" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestReschedule_TargetSlotBusy(t *testing.T) {
	f := newFixture()
	f.book(t, &f.doctorA.ID, "10:00")
	a := f.book(t, &f.doctorA.ID, slot)

	_, err := f.svc.Reschedule(f.staffCtx(), a.ID, &RescheduleInput{Date: day, StartTime: "10:00"})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
	if err.Error() != "doctor is not available at the new time" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestReschedule_SameSlotExcludesSelf(t *testing.T) {
	f := newFixture()
	a := f.book(t, &f.doctorA.ID, slot)

	// Moving to its own slot is not a conflict.
	if _, err := f.svc.Reschedule(f.staffCtx(), a.ID, &RescheduleInput{Date: day, StartTime: slot}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAddClinicalNotes_CompletesAndWritesHistory(t *testing.T) {
	f := newFixture()
	a, err := f.svc.CreateAppointment(f.staffCtx(), &CreateAppointmentInput{
		PatientID:      f.patient.ID,
		DoctorID:       &f.doctorA.ID,
		Date:           day,
		StartTime:      slot,
		ChiefComplaint: "persistent cough",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := f.doctorCtx(f.userA)
	if _, err := f.svc.Accept(ctx, a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := f.svc.AddClinicalNotes(ctx, a.ID, &ClinicalNotesInput{
		DoctorNotes:  "rest and fluids",
		Diagnosis:    "bronchitis",
		Prescription: "amoxicillin",
		Verdict:      "recovering",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}

	if len(f.history.records) != 1 {
		t.Fatalf("expected one history record, got %d", len(f.history.records))
	}
	rec := f.history.records[0]
	if rec.Diagnosis != "bronchitis" || rec.Symptoms != "persistent cough" {
		t.Errorf("history record not populated from visit: %+v", rec)
	}
	if rec.Severity != medicalhistory.SeverityMedium {
		t.Errorf("expected medium severity, got %s", rec.Severity)
	}
	if rec.Treatment != "amoxicillin" {
		t.Errorf("expected prescription carried as treatment, got %q", rec.Treatment)
	}
}

func TestAddClinicalNotes_RequiresAccepted(t *testing.T) {
	f := newFixture()
	a := f.book(t, &f.doctorA.ID, slot)

	_, err := f.svc.AddClinicalNotes(f.doctorCtx(f.userA), a.ID, &ClinicalNotesInput{})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestGetAppointment_CrossBranchForbidden(t *testing.T) {
	f := newFixture()
	a := f.book(t, &f.doctorA.ID, slot)

	otherBranch := uuid.New()
	ctx := auth.WithIdentity(context.Background(), &auth.Identity{
		UserID: uuid.New(), Role: auth.RoleDoctor, OrgID: f.org, BranchID: &otherBranch,
	})
	_, err := f.svc.GetAppointment(ctx, a.ID)
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}

func TestCreateAppointment_PortalBooksOwnRecord(t *testing.T) {
	f := newFixture()
	own, ctx := f.portalPatient("Portal Pat")

	// The client-supplied patient id is ignored for portal callers; the
	// booking lands on the caller's own record.
	a, err := f.svc.CreateAppointment(ctx, &CreateAppointmentInput{
		PatientID: f.patient.ID,
		DoctorID:  &f.doctorA.ID,
		Date:      day,
		StartTime: slot,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.PatientID != own.ID {
		t.Errorf("expected booking for own record %s, got %s", own.ID, a.PatientID)
	}
}

func TestCancel_PortalOwnAppointment(t *testing.T) {
	f := newFixture()
	own, ctx := f.portalPatient("Portal Pat")

	a, err := f.svc.CreateAppointment(ctx, &CreateAppointmentInput{
		PatientID: own.ID, DoctorID: &f.doctorA.ID, Date: day, StartTime: slot,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := f.svc.Cancel(ctx, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", got.Status)
	}
}

func TestCancel_PortalOtherPatientForbidden(t *testing.T) {
	f := newFixture()
	a := f.book(t, &f.doctorA.ID, slot)

	_, ctx := f.portalPatient("Portal Pat")
	_, err := f.svc.Cancel(ctx, a.ID)
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	if err.Error() != "this appointment is not yours" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if a.Status != StatusScheduled {
		t.Errorf("appointment must stay scheduled, got %s", a.Status)
	}
}

func TestListOwnAppointments_OnlyCallerRows(t *testing.T) {
	f := newFixture()
	f.book(t, &f.doctorA.ID, slot)

	own, ctx := f.portalPatient("Portal Pat")
	if _, err := f.svc.CreateAppointment(ctx, &CreateAppointmentInput{
		PatientID: own.ID, DoctorID: &f.doctorB.ID, Date: day, StartTime: slot,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	appts, total, err := f.svc.ListOwnAppointments(ctx, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(appts) != 1 {
		t.Fatalf("expected one own appointment, got %d", total)
	}
	if appts[0].PatientID != own.ID {
		t.Errorf("expected own record, got %s", appts[0].PatientID)
	}
}

func TestReject_FromAccepted(t *testing.T) {
	f := newFixture()
	a := f.book(t, &f.doctorA.ID, slot)
	ctx := f.doctorCtx(f.userA)

	if _, err := f.svc.Accept(ctx, a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := f.svc.Reject(ctx, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusRejected {
		t.Errorf("expected rejected, got %s", got.Status)
	}
}

func TestReject_TerminalRefused(t *testing.T) {
	f := newFixture()
	a := f.book(t, &f.doctorA.ID, slot)

	if _, err := f.svc.Cancel(f.staffCtx(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := f.svc.Reject(f.doctorCtx(f.userA), a.ID)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestIsDoctorAvailable(t *testing.T) {
	f := newFixture()
	ctx := f.staffCtx()

	free, err := f.svc.IsDoctorAvailable(ctx, f.doctorA.ID, day, slot)
	if err != nil || !free {
		t.Fatalf("expected free slot, got %v %v", free, err)
	}

	f.book(t, &f.doctorA.ID, slot)

	free, err = f.svc.IsDoctorAvailable(ctx, f.doctorA.ID, day, slot)
	if err != nil || free {
		t.Fatalf("expected busy slot, got %v %v", free, err)
	}
}
