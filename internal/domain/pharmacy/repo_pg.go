package pharmacy

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

// PGStockRepository implements StockRepository on PostgreSQL.
type PGStockRepository struct {
	pool *pgxpool.Pool
}

func NewPGStockRepository(pool *pgxpool.Pool) *PGStockRepository {
	return &PGStockRepository{pool: pool}
}

func (r *PGStockRepository) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const stockCols = `id, org_id, branch_id, name, strength, quantity, reorder_level,
	unit_price, created_at, updated_at`

func scanStock(row pgx.Row) (*MedicationStock, error) {
	var m MedicationStock
	err := row.Scan(&m.ID, &m.OrgID, &m.BranchID, &m.Name, &m.Strength,
		&m.Quantity, &m.ReorderLevel, &m.UnitPrice, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PGStockRepository) Create(ctx context.Context, m *MedicationStock) error {
	const query = `
		INSERT INTO medication_stock (org_id, branch_id, name, strength, quantity, reorder_level, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.conn(ctx).QueryRow(ctx, query,
		m.OrgID, m.BranchID, m.Name, m.Strength, m.Quantity, m.ReorderLevel, m.UnitPrice).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (r *PGStockRepository) GetByID(ctx context.Context, id uuid.UUID) (*MedicationStock, error) {
	query := fmt.Sprintf(`SELECT %s FROM medication_stock WHERE id = $1`, stockCols)
	if db.QuerierFromContext(ctx) != nil {
		query += ` FOR UPDATE`
	}
	m, err := scanStock(r.conn(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("medication stock not found: %s", id)
	}
	return m, err
}

// AdjustQuantity refuses to drive the quantity negative even under a race the
// caller's own check missed.
func (r *PGStockRepository) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	const query = `
		UPDATE medication_stock
		SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1 AND quantity + $2 >= 0
		RETURNING quantity`
	var qty int
	err := r.conn(ctx).QueryRow(ctx, query, id, delta).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.Conflictf("insufficient stock for medication: %s", id)
	}
	return qty, err
}

func (r *PGStockRepository) ListByBranch(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]MedicationStock, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT count(*) FROM medication_stock WHERE branch_id = $1`, branchID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM medication_stock WHERE branch_id = $1 ORDER BY name %s`,
		stockCols, p.SQL())
	rows, err := r.conn(ctx).Query(ctx, query, branchID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var stock []MedicationStock
	for rows.Next() {
		m, err := scanStock(rows)
		if err != nil {
			return nil, 0, err
		}
		stock = append(stock, *m)
	}
	return stock, total, rows.Err()
}

func (r *PGStockRepository) ListLowStock(ctx context.Context, branchID uuid.UUID) ([]MedicationStock, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM medication_stock
		WHERE branch_id = $1 AND quantity <= reorder_level
		ORDER BY name`, stockCols)
	rows, err := r.conn(ctx).Query(ctx, query, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stock []MedicationStock
	for rows.Next() {
		m, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		stock = append(stock, *m)
	}
	return stock, rows.Err()
}

// PGOrderRepository implements OrderRepository on PostgreSQL.
type PGOrderRepository struct {
	pool *pgxpool.Pool
}

func NewPGOrderRepository(pool *pgxpool.Pool) *PGOrderRepository {
	return &PGOrderRepository{pool: pool}
}

func (r *PGOrderRepository) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const orderCols = `id, order_number, patient_id, org_id, branch_id, status, total,
	created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.PatientID, &o.OrgID, &o.BranchID,
		&o.Status, &o.Total, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGOrderRepository) Create(ctx context.Context, o *Order) error {
	const query = `
		INSERT INTO pharmacy_orders (order_number, patient_id, org_id, branch_id, status, total, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err := r.conn(ctx).QueryRow(ctx, query,
		o.OrderNumber, o.PatientID, o.OrgID, o.BranchID, o.Status, o.Total, o.CreatedBy).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	const itemQuery = `
		INSERT INTO pharmacy_order_items (order_id, stock_id, medication_name, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		if err := r.conn(ctx).QueryRow(ctx, itemQuery,
			item.OrderID, item.StockID, item.MedicationName, item.Quantity,
			item.UnitPrice, item.LineTotal).Scan(&item.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM pharmacy_orders WHERE id = $1`, orderCols)
	o, err := scanOrder(r.conn(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("pharmacy order not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	o.Items, err = r.items(ctx, o.ID)
	return o, err
}

func (r *PGOrderRepository) items(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	const query = `
		SELECT id, order_id, stock_id, medication_name, quantity, unit_price, line_total
		FROM pharmacy_order_items
		WHERE order_id = $1
		ORDER BY medication_name`
	rows, err := r.conn(ctx).Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.StockID, &it.MedicationName,
			&it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PGOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE pharmacy_orders SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("pharmacy order not found: %s", id)
	}
	return nil
}

func (r *PGOrderRepository) ListByBranch(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]Order, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT count(*) FROM pharmacy_orders WHERE branch_id = $1`, branchID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM pharmacy_orders WHERE branch_id = $1 ORDER BY created_at DESC %s`,
		orderCols, p.SQL())
	rows, err := r.conn(ctx).Query(ctx, query, branchID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}
