package admission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/db"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRoomRepository implements RoomRepository on PostgreSQL.
type PGRoomRepository struct {
	pool *pgxpool.Pool
}

func NewPGRoomRepository(pool *pgxpool.Pool) *PGRoomRepository {
	return &PGRoomRepository{pool: pool}
}

func (r *PGRoomRepository) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const roomCols = `id, org_id, branch_id, number, type, is_available, daily_rate, created_at`

func scanRoom(row pgx.Row) (*Room, error) {
	var rm Room
	err := row.Scan(&rm.ID, &rm.OrgID, &rm.BranchID, &rm.Number, &rm.Type,
		&rm.IsAvailable, &rm.DailyRate, &rm.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *PGRoomRepository) Create(ctx context.Context, rm *Room) error {
	const query = `
		INSERT INTO rooms (org_id, branch_id, number, type, is_available, daily_rate)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.conn(ctx).QueryRow(ctx, query,
		rm.OrgID, rm.BranchID, rm.Number, rm.Type, rm.IsAvailable, rm.DailyRate).
		Scan(&rm.ID, &rm.CreatedAt)
}

func (r *PGRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms WHERE id = $1`, roomCols)
	rm, err := scanRoom(r.conn(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("room not found: %s", id)
	}
	return rm, err
}

func (r *PGRoomRepository) FirstAvailableRoom(ctx context.Context, branchID uuid.UUID, roomType string) (*uuid.UUID, error) {
	const query = `
		SELECT id FROM rooms
		WHERE branch_id = $1 AND type = $2 AND is_available
		ORDER BY number
		LIMIT 1`
	var id uuid.UUID
	err := r.conn(ctx).QueryRow(ctx, query, branchID, roomType).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ClaimFirstAvailable row-locks the first free room so two concurrent
// admissions cannot claim the same one. SKIP LOCKED lets the second admission
// fall through to the next free room instead of blocking.
func (r *PGRoomRepository) ClaimFirstAvailable(ctx context.Context, branchID uuid.UUID, roomType string) (*Room, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM rooms
		WHERE branch_id = $1 AND type = $2 AND is_available
		ORDER BY number
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, roomCols)
	rm, err := scanRoom(r.conn(ctx).QueryRow(ctx, query, branchID, roomType))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rm, err
}

func (r *PGRoomRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE rooms SET is_available = $1 WHERE id = $2`, available, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("room not found: %s", id)
	}
	return nil
}

func (r *PGRoomRepository) ListByBranch(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]Room, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT count(*) FROM rooms WHERE branch_id = $1`, branchID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM rooms WHERE branch_id = $1 ORDER BY number %s`,
		roomCols, p.SQL())
	rows, err := r.conn(ctx).Query(ctx, query, branchID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		rooms = append(rooms, *rm)
	}
	return rooms, total, rows.Err()
}

// PGAdmissionRepository implements AdmissionRepository on PostgreSQL.
type PGAdmissionRepository struct {
	pool *pgxpool.Pool
}

func NewPGAdmissionRepository(pool *pgxpool.Pool) *PGAdmissionRepository {
	return &PGAdmissionRepository{pool: pool}
}

func (r *PGAdmissionRepository) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const admissionCols = `id, patient_id, appointment_id, room_id, org_id, branch_id,
	admitted_by, admitted_at, status, discharge_requested, discharge_requested_by,
	discharge_requested_at, discharge_date, notes, created_at, updated_at`

func scanAdmission(row pgx.Row) (*Admission, error) {
	var a Admission
	err := row.Scan(&a.ID, &a.PatientID, &a.AppointmentID, &a.RoomID, &a.OrgID,
		&a.BranchID, &a.AdmittedBy, &a.AdmittedAt, &a.Status, &a.DischargeRequested,
		&a.DischargeRequestedBy, &a.DischargeRequestedAt, &a.DischargeDate,
		&a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PGAdmissionRepository) Create(ctx context.Context, a *Admission) error {
	const query = `
		INSERT INTO admissions (
			patient_id, appointment_id, room_id, org_id, branch_id,
			admitted_by, admitted_at, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.conn(ctx).QueryRow(ctx, query,
		a.PatientID, a.AppointmentID, a.RoomID, a.OrgID, a.BranchID,
		a.AdmittedBy, a.AdmittedAt, a.Status).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *PGAdmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*Admission, error) {
	query := fmt.Sprintf(`SELECT %s FROM admissions WHERE id = $1`, admissionCols)
	a, err := scanAdmission(r.conn(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("admission not found: %s", id)
	}
	return a, err
}

func (r *PGAdmissionRepository) Update(ctx context.Context, a *Admission) error {
	const query = `
		UPDATE admissions SET
			status = $1, discharge_requested = $2, discharge_requested_by = $3,
			discharge_requested_at = $4, discharge_date = $5, notes = $6,
			updated_at = now()
		WHERE id = $7
		RETURNING updated_at`
	err := r.conn(ctx).QueryRow(ctx, query,
		a.Status, a.DischargeRequested, a.DischargeRequestedBy,
		a.DischargeRequestedAt, a.DischargeDate, a.Notes, a.ID).
		Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFoundf("admission not found: %s", a.ID)
	}
	return err
}

const viewCols = `a.id, a.patient_id, a.appointment_id, a.room_id, a.org_id, a.branch_id,
	a.admitted_by, a.admitted_at, a.status, a.discharge_requested, a.discharge_requested_by,
	a.discharge_requested_at, a.discharge_date, a.notes, a.created_at, a.updated_at,
	p.full_name, r.number, r.type`

func scanView(row pgx.Row) (*View, error) {
	var v View
	err := row.Scan(&v.ID, &v.PatientID, &v.AppointmentID, &v.RoomID, &v.OrgID,
		&v.BranchID, &v.AdmittedBy, &v.AdmittedAt, &v.Status, &v.DischargeRequested,
		&v.DischargeRequestedBy, &v.DischargeRequestedAt, &v.DischargeDate,
		&v.Notes, &v.CreatedAt, &v.UpdatedAt, &v.PatientName, &v.RoomNumber, &v.RoomType)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *PGAdmissionRepository) ListViews(ctx context.Context, branchID uuid.UUID, activeOnly bool, p pagination.Params) ([]View, int, error) {
	where := `WHERE a.branch_id = $1`
	if activeOnly {
		where += ` AND a.status = 'admitted'`
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT count(*) FROM admissions a %s`, where)
	if err := r.conn(ctx).QueryRow(ctx, countQuery, branchID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM admissions a
		JOIN patients p ON p.id = a.patient_id
		JOIN rooms r ON r.id = a.room_id
		%s
		ORDER BY a.admitted_at DESC %s`, viewCols, where, p.SQL())
	return r.queryViews(ctx, query, branchID, total)
}

func (r *PGAdmissionRepository) ListDischargeRequested(ctx context.Context, doctorID uuid.UUID) ([]View, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM admissions a
		JOIN patients p ON p.id = a.patient_id
		JOIN rooms r ON r.id = a.room_id
		WHERE a.admitted_by = $1 AND a.discharge_requested AND a.status = 'admitted'
		ORDER BY a.discharge_requested_at`, viewCols)
	views, _, err := r.queryViews(ctx, query, doctorID, 0)
	return views, err
}

func (r *PGAdmissionRepository) queryViews(ctx context.Context, query string, id uuid.UUID, total int) ([]View, int, error) {
	rows, err := r.conn(ctx).Query(ctx, query, id)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var views []View
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, *v)
	}
	return views, total, rows.Err()
}
