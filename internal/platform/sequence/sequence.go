package sequence

import (
	"context"
	"fmt"
	"strings"

	"github.com/ihorms/ihorms/internal/platform/db"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service hands out monotonically increasing sequence values from the
// counters table. The upsert is atomic, so two concurrent callers can never
// observe the same value; allocations made inside a transaction roll back
// with it, leaving at most a gap.
type Service struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

func (s *Service) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return s.pool
}

// Next returns the next value of the counter identified by (scope, name).
// Missing counters start at 1.
func (s *Service) Next(ctx context.Context, scope, name string) (int64, error) {
	const query = `
		INSERT INTO counters (scope, name, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (scope, name)
		DO UPDATE SET value = counters.value + 1
		RETURNING value`

	var value int64
	if err := s.conn(ctx).QueryRow(ctx, query, scope, name).Scan(&value); err != nil {
		return 0, fmt.Errorf("next sequence %s/%s: %w", scope, name, err)
	}
	return value, nil
}

// Entity tags used in human-facing identifiers.
const (
	TagDoctor       = "D"
	TagNurse        = "N"
	TagPatient      = "P"
	TagReceptionist = "R"
	TagPharmacy     = "PH"
)

// Code derives a 3-letter uppercase code from a name, used for the
// organization and city segments of a UID. Empty names fall back to BCH.
func Code(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		trimmed = "BCH"
	}
	// Truncate by runes, not bytes, so multibyte names stay valid UTF-8.
	if runes := []rune(trimmed); len(runes) > 3 {
		trimmed = string(runes[:3])
	}
	return strings.ToUpper(trimmed)
}

// FormatUID renders a staff or patient identifier, e.g. APO-NYC-D00001.
func FormatUID(orgCode, cityCode, tag string, n int64) string {
	return fmt.Sprintf("%s-%s-%s%05d", orgCode, cityCode, tag, n)
}

// FormatBillNumber renders a bill number, e.g. BILL-2026-000001.
func FormatBillNumber(year int, n int64) string {
	return fmt.Sprintf("BILL-%d-%06d", year, n)
}

// FormatOrderNumber renders a pharmacy order number, e.g. ORD-2026-000001.
func FormatOrderNumber(year int, n int64) string {
	return fmt.Sprintf("ORD-%d-%06d", year, n)
}
