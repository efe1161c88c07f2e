package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given
// connection pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

// MarkSeen inserts the opportunity or bumps last_seen, times_seen and edge
// on an existing row. A TRADED row keeps its status.
func (s *OpportunityStore) MarkSeen(ctx context.Context, rec domain.OpportunityRecord) error {
	seen := rec.LastSeen
	if seen.IsZero() {
		seen = time.Now().UTC()
	}
	status := rec.Status
	if status == "" {
		status = domain.OpportunityActive
	}

	const query = `
		INSERT INTO trade_opportunities (
			opportunity_hash, polymarket_market_id, odds_game_id, outcome,
			edge, first_seen, last_seen, times_seen, status
		) VALUES ($1, $2, $3, $4, $5, $6, $6, 1, $7)
		ON CONFLICT (opportunity_hash) DO UPDATE SET
			edge       = EXCLUDED.edge,
			last_seen  = EXCLUDED.last_seen,
			times_seen = trade_opportunities.times_seen + 1`

	_, err := s.pool.Exec(ctx, query,
		rec.Hash, rec.MarketID, rec.GameID, rec.Outcome,
		rec.Edge, seen, string(status),
	)
	if err != nil {
		return fmt.Errorf("postgres: mark opportunity %s seen: %w", rec.Hash, err)
	}
	return nil
}

// IsDuplicate reports whether the opportunity hash has already been traded.
func (s *OpportunityStore) IsDuplicate(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM trade_opportunities WHERE opportunity_hash = $1 AND status = $2)`,
		hash, string(domain.OpportunityTraded),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check opportunity %s: %w", hash, err)
	}
	return exists, nil
}

// RecentHashes returns hashes seen at or after since, most recent first.
func (s *OpportunityStore) RecentHashes(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT opportunity_hash FROM trade_opportunities WHERE last_seen >= $1 ORDER BY last_seen DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent opportunities: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity hash: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// DeleteBefore removes opportunities last seen before the given time.
func (s *OpportunityStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trade_opportunities WHERE last_seen < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of tracked opportunities.
func (s *OpportunityStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trade_opportunities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count opportunities: %w", err)
	}
	return n, nil
}

var _ domain.OpportunityStore = (*OpportunityStore)(nil)
