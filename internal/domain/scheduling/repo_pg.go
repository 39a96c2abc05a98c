package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/db"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository implements AppointmentRepository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const apptCols = `id, patient_id, doctor_id, org_id, branch_id, date, start_time, status,
	chief_complaint, doctor_notes, diagnosis, prescription, verdict, room_id,
	created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.OrgID, &a.BranchID,
		&a.Date, &a.StartTime, &a.Status, &a.ChiefComplaint, &a.DoctorNotes,
		&a.Diagnosis, &a.Prescription, &a.Verdict, &a.RoomID,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PGRepository) Create(ctx context.Context, a *Appointment) error {
	const query = `
		INSERT INTO appointments (
			patient_id, doctor_id, org_id, branch_id, date, start_time, status,
			chief_complaint, room_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	return r.conn(ctx).QueryRow(ctx, query,
		a.PatientID, a.DoctorID, a.OrgID, a.BranchID, a.Date, a.StartTime, a.Status,
		a.ChiefComplaint, a.RoomID).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, apptCols)
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("appointment not found: %s", id)
	}
	return a, err
}

func (r *PGRepository) Update(ctx context.Context, a *Appointment) error {
	const query = `
		UPDATE appointments SET
			doctor_id = $1, date = $2, start_time = $3, status = $4,
			chief_complaint = $5, doctor_notes = $6, diagnosis = $7,
			prescription = $8, verdict = $9, room_id = $10, updated_at = now()
		WHERE id = $11
		RETURNING updated_at`
	err := r.conn(ctx).QueryRow(ctx, query,
		a.DoctorID, a.Date, a.StartTime, a.Status,
		a.ChiefComplaint, a.DoctorNotes, a.Diagnosis,
		a.Prescription, a.Verdict, a.RoomID, a.ID).
		Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFoundf("appointment not found: %s", a.ID)
	}
	return err
}

// CountBlocking locks the slot's rows with FOR UPDATE when called inside a
// transaction, which serializes concurrent bookings on the same slot.
func (r *PGRepository) CountBlocking(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string, excludeID *uuid.UUID) (int, error) {
	query := `
		SELECT id FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND start_time = $3
		  AND status IN ('scheduled', 'accepted')`
	args := []any{doctorID, date, startTime}
	if excludeID != nil {
		query += ` AND id <> $4`
		args = append(args, *excludeID)
	}
	if db.QuerierFromContext(ctx) != nil {
		query += ` FOR UPDATE`
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		count++
	}
	return count, rows.Err()
}

func (r *PGRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID, date *time.Time, p pagination.Params) ([]Appointment, int, error) {
	return r.list(ctx, `doctor_id`, doctorID, date, p)
}

func (r *PGRepository) ListForPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]Appointment, int, error) {
	return r.list(ctx, `patient_id`, patientID, nil, p)
}

func (r *PGRepository) ListForBranch(ctx context.Context, branchID uuid.UUID, date *time.Time, p pagination.Params) ([]Appointment, int, error) {
	return r.list(ctx, `branch_id`, branchID, date, p)
}

func (r *PGRepository) list(ctx context.Context, col string, id uuid.UUID, date *time.Time, p pagination.Params) ([]Appointment, int, error) {
	where := fmt.Sprintf(`WHERE %s = $1`, col)
	args := []any{id}
	if date != nil {
		where += ` AND date = $2`
		args = append(args, *date)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT count(*) FROM appointments %s`, where)
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM appointments %s ORDER BY date DESC, start_time %s`,
		apptCols, where, p.SQL())
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var appts []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		appts = append(appts, *a)
	}
	return appts, total, rows.Err()
}
