package medicalhistory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/db"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository implements Repository on PostgreSQL.
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

const recordCols = `id, patient_id, doctor_id, visit_date, diagnosis, symptoms,
	severity, treatment, doctor_notes, created_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.DoctorID, &rec.VisitDate, &rec.Diagnosis,
		&rec.Symptoms, &rec.Severity, &rec.Treatment, &rec.DoctorNotes, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PGRepository) Create(ctx context.Context, rec *Record) error {
	const query = `
		INSERT INTO medical_history (
			patient_id, doctor_id, visit_date, diagnosis, symptoms,
			severity, treatment, doctor_notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	return r.conn(ctx).QueryRow(ctx, query,
		rec.PatientID, rec.DoctorID, rec.VisitDate, rec.Diagnosis, rec.Symptoms,
		rec.Severity, rec.Treatment, rec.DoctorNotes).
		Scan(&rec.ID, &rec.CreatedAt)
}

func (r *PGRepository) ListForPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]Record, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT count(*) FROM medical_history WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM medical_history WHERE patient_id = $1 ORDER BY visit_date DESC %s`,
		recordCols, p.SQL())
	rows, err := r.conn(ctx).Query(ctx, query, patientID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *rec)
	}
	return records, total, rows.Err()
}
