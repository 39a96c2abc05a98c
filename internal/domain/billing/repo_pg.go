package billing

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

const billCols = `id, bill_number, appointment_id, patient_id, org_id, branch_id,
	consultation_fee, room_charges, medication_charges, lab_charges, other_charges,
	subtotal, tax, discount, total, amount_paid, status, paid_at, generated_by,
	created_at, updated_at`

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.BillNumber, &b.AppointmentID, &b.PatientID, &b.OrgID,
		&b.BranchID, &b.ConsultationFee, &b.RoomCharges, &b.MedicationCharges,
		&b.LabCharges, &b.OtherCharges, &b.Subtotal, &b.Tax, &b.Discount, &b.Total,
		&b.AmountPaid, &b.Status, &b.PaidAt, &b.GeneratedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGRepository) Create(ctx context.Context, b *Bill) error {
	const query = `
		INSERT INTO bills (
			bill_number, appointment_id, patient_id, org_id, branch_id,
			consultation_fee, room_charges, medication_charges, lab_charges,
			other_charges, subtotal, tax, discount, total, amount_paid,
			status, generated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at`
	return r.conn(ctx).QueryRow(ctx, query,
		b.BillNumber, b.AppointmentID, b.PatientID, b.OrgID, b.BranchID,
		b.ConsultationFee, b.RoomCharges, b.MedicationCharges, b.LabCharges,
		b.OtherCharges, b.Subtotal, b.Tax, b.Discount, b.Total, b.AmountPaid,
		b.Status, b.GeneratedBy).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	query := fmt.Sprintf(`SELECT %s FROM bills WHERE id = $1`, billCols)
	b, err := scanBill(r.conn(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("bill not found: %s", id)
	}
	return b, err
}

func (r *PGRepository) GetByAppointment(ctx context.Context, apptID uuid.UUID) (*Bill, error) {
	query := fmt.Sprintf(`SELECT %s FROM bills WHERE appointment_id = $1`, billCols)
	b, err := scanBill(r.conn(ctx).QueryRow(ctx, query, apptID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *PGRepository) Update(ctx context.Context, b *Bill) error {
	const query = `
		UPDATE bills SET
			amount_paid = $1, status = $2, paid_at = $3, updated_at = now()
		WHERE id = $4
		RETURNING updated_at`
	err := r.conn(ctx).QueryRow(ctx, query, b.AmountPaid, b.Status, b.PaidAt, b.ID).
		Scan(&b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFoundf("bill not found: %s", b.ID)
	}
	return err
}

func (r *PGRepository) ListForPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]Bill, int, error) {
	return r.list(ctx, `patient_id`, patientID, p)
}

func (r *PGRepository) ListForBranch(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]Bill, int, error) {
	return r.list(ctx, `branch_id`, branchID, p)
}

func (r *PGRepository) list(ctx context.Context, col string, id uuid.UUID, p pagination.Params) ([]Bill, int, error) {
	var total int
	countQuery := fmt.Sprintf(`SELECT count(*) FROM bills WHERE %s = $1`, col)
	if err := r.conn(ctx).QueryRow(ctx, countQuery, id).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM bills WHERE %s = $1 ORDER BY created_at DESC %s`,
		billCols, col, p.SQL())
	rows, err := r.conn(ctx).Query(ctx, query, id)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bills []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		bills = append(bills, *b)
	}
	return bills, total, rows.Err()
}

func (r *PGRepository) BranchRevenue(ctx context.Context, branchID uuid.UUID) (*BranchRevenue, error) {
	const query = `
		SELECT
			coalesce(sum(total), 0),
			coalesce(sum(amount_paid), 0),
			coalesce(sum(total - amount_paid), 0)
		FROM bills
		WHERE branch_id = $1`
	rev := &BranchRevenue{BranchID: branchID}
	err := r.conn(ctx).QueryRow(ctx, query, branchID).
		Scan(&rev.Billed, &rev.Collected, &rev.Outstanding)
	if err != nil {
		return nil, fmt.Errorf("branch revenue: %w", err)
	}
	return rev, nil
}
