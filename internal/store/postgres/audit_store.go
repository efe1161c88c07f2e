package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// AuditStore writes audit_log rows.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates an AuditStore.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

const insertAudit = `
	INSERT INTO audit_log (event, trade_id, detail)
	VALUES (@event, @trade_id, @detail)`

// Log appends an entry. detail is stored as JSONB and its "trade_id", when
// a non-empty string, is copied to the indexed trade_id column.
func (s *AuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	_, err := s.pool.Exec(ctx, insertAudit, auditArgs(event, detail))
	if err != nil {
		return fmt.Errorf("postgres: log audit %s: %w", event, err)
	}
	return nil
}

func auditArgs(event string, detail map[string]any) pgx.NamedArgs {
	var tradeID *string
	if id, ok := detail["trade_id"].(string); ok && id != "" {
		tradeID = &id
	}
	if detail == nil {
		detail = map[string]any{}
	}
	return pgx.NamedArgs{
		"event":    event,
		"trade_id": tradeID,
		"detail":   detail,
	}
}

var _ domain.AuditStore = (*AuditStore)(nil)
