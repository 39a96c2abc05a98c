package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/audit"
	"github.com/ihorms/ihorms/internal/platform/db"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Filter narrows an audit trail query. Zero values match everything. OrgID is
// set by the handler from the caller's identity; only super admins read
// across organizations.
type Filter struct {
	OrgID      *uuid.UUID
	UserID     *uuid.UUID
	Action     string
	EntityType string
	EntityID   string
	From       *time.Time
	To         *time.Time
}

// AccessFilter narrows a patient access log query. OrgID behaves as on Filter.
type AccessFilter struct {
	OrgID      *uuid.UUID
	PatientID  *uuid.UUID
	AccessedBy *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// Reader queries the audit trail.
type Reader interface {
	ListActions(ctx context.Context, f Filter, p pagination.Params) ([]audit.Entry, int, error)
	ListPatientAccess(ctx context.Context, f AccessFilter, p pagination.Params) ([]audit.PatientAccess, int, error)
}

// PGReader implements Reader on PostgreSQL.
type PGReader struct {
	pool *pgxpool.Pool
}

func NewPGReader(pool *pgxpool.Pool) *PGReader {
	return &PGReader{pool: pool}
}

func (r *PGReader) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func (r *PGReader) ListActions(ctx context.Context, f Filter, p pagination.Params) ([]audit.Entry, int, error) {
	where, args := buildActionFilter(f)

	var total int
	countQuery := `SELECT count(*) FROM audit_logs` + where
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, org_id, user_id, action, entity_type, entity_id,
			before_state, after_state, ip_address, user_agent, created_at
		FROM audit_logs` + where + ` ORDER BY created_at DESC ` + p.SQL()
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var before, after []byte
		if err := rows.Scan(&e.ID, &e.OrgID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID,
			&before, &after, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		if err := unmarshalState(before, &e.BeforeState); err != nil {
			return nil, 0, err
		}
		if err := unmarshalState(after, &e.AfterState); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (r *PGReader) ListPatientAccess(ctx context.Context, f AccessFilter, p pagination.Params) ([]audit.PatientAccess, int, error) {
	where, args := buildAccessFilter(f)

	var total int
	countQuery := `SELECT count(*) FROM patient_access_logs` + where
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, org_id, patient_id, accessed_by, access_type, access_reason, ip_address, created_at
		FROM patient_access_logs` + where + ` ORDER BY created_at DESC ` + p.SQL()
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var accesses []audit.PatientAccess
	for rows.Next() {
		var a audit.PatientAccess
		if err := rows.Scan(&a.ID, &a.OrgID, &a.PatientID, &a.AccessedBy, &a.AccessType,
			&a.AccessReason, &a.IPAddress, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		accesses = append(accesses, a)
	}
	return accesses, total, rows.Err()
}

func buildActionFilter(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.OrgID != nil {
		add("org_id = $%d", *f.OrgID)
	}
	if f.UserID != nil {
		add("user_id = $%d", *f.UserID)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.EntityType != "" {
		add("entity_type = $%d", f.EntityType)
	}
	if f.EntityID != "" {
		add("entity_id = $%d", f.EntityID)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	return joinConds(conds), args
}

func buildAccessFilter(f AccessFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.OrgID != nil {
		add("org_id = $%d", *f.OrgID)
	}
	if f.PatientID != nil {
		add("patient_id = $%d", *f.PatientID)
	}
	if f.AccessedBy != nil {
		add("accessed_by = $%d", *f.AccessedBy)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	return joinConds(conds), args
}

func joinConds(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	where := " WHERE " + conds[0]
	for _, c := range conds[1:] {
		where += " AND " + c
	}
	return where
}

func unmarshalState(raw []byte, out *map[string]any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
