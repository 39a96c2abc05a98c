package telemetry

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

// PGRepository implements Repository on PostgreSQL. Alerts are stored as a
// text array so the messages survive exactly as produced at write time.
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

const vitalCols = `id, patient_id, appointment_id, org_id, branch_id, recorded_by,
	heart_rate, bp_systolic, bp_diastolic, temperature, oxygen_saturation,
	respiratory_rate, alerts, recorded_at, created_at`

func scanVital(row pgx.Row) (*VitalSign, error) {
	var v VitalSign
	err := row.Scan(&v.ID, &v.PatientID, &v.AppointmentID, &v.OrgID, &v.BranchID,
		&v.RecordedBy, &v.HeartRate, &v.BPSystolic, &v.BPDiastolic, &v.Temperature,
		&v.OxygenSaturation, &v.RespiratoryRate, &v.Alerts, &v.RecordedAt, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *PGRepository) Create(ctx context.Context, v *VitalSign) error {
	const query = `
		INSERT INTO vital_signs (
			patient_id, appointment_id, org_id, branch_id, recorded_by,
			heart_rate, bp_systolic, bp_diastolic, temperature,
			oxygen_saturation, respiratory_rate, alerts, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`
	return r.conn(ctx).QueryRow(ctx, query,
		v.PatientID, v.AppointmentID, v.OrgID, v.BranchID, v.RecordedBy,
		v.HeartRate, v.BPSystolic, v.BPDiastolic, v.Temperature,
		v.OxygenSaturation, v.RespiratoryRate, v.Alerts, v.RecordedAt).
		Scan(&v.ID, &v.CreatedAt)
}

func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*VitalSign, error) {
	query := fmt.Sprintf(`SELECT %s FROM vital_signs WHERE id = $1`, vitalCols)
	v, err := scanVital(r.conn(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("vital sign record not found: %s", id)
	}
	return v, err
}

func (r *PGRepository) ListForPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]VitalSign, int, error) {
	return r.list(ctx, `WHERE patient_id = $1`, patientID, p)
}

func (r *PGRepository) ListAlerts(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]VitalSign, int, error) {
	return r.list(ctx, `WHERE branch_id = $1 AND cardinality(alerts) > 0`, branchID, p)
}

func (r *PGRepository) list(ctx context.Context, where string, id uuid.UUID, p pagination.Params) ([]VitalSign, int, error) {
	var total int
	countQuery := fmt.Sprintf(`SELECT count(*) FROM vital_signs %s`, where)
	if err := r.conn(ctx).QueryRow(ctx, countQuery, id).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM vital_signs %s ORDER BY recorded_at DESC %s`,
		vitalCols, where, p.SQL())
	rows, err := r.conn(ctx).Query(ctx, query, id)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var vitals []VitalSign
	for rows.Next() {
		v, err := scanVital(rows)
		if err != nil {
			return nil, 0, err
		}
		vitals = append(vitals, *v)
	}
	return vitals, total, rows.Err()
}
