package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/xela07ax/devpulse/internal/audit"
)

// AuditRepo sink журнала вызовов интеграций.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Количество колонок в таблице integration_audit
const auditFields = 9

func (r *AuditRepo) WriteBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	query, vals := buildAuditInsert(events)
	if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: write audit batch of %d: %w", len(events), err)
	}
	return nil
}

// buildAuditInsert динамически строит запрос для пакетной вставки
func buildAuditInsert(events []audit.Event) (string, []any) {
	var placeholders strings.Builder
	vals := make([]any, 0, len(events)*auditFields)

	for i, e := range events {
		p := i * auditFields
		if i > 0 {
			placeholders.WriteByte(',')
		}
		fmt.Fprintf(&placeholders, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8, p+9)

		vals = append(vals,
			e.ID, e.TraceID, e.Upstream, e.Operation, e.Target,
			e.Status, e.DurationMs, e.Error, e.Timestamp,
		)
	}

	query := "INSERT INTO integration_audit (id, trace_id, upstream, operation, target, status, duration_ms, error, timestamp) VALUES " +
		placeholders.String() + " ON CONFLICT (id) DO NOTHING"
	return query, vals
}
