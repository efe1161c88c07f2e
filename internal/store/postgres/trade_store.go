package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, trade_id, polymarket_market_id, polymarket_slug, odds_game_id,
	outcome, polymarket_price, odds_price, edge, recommended_action,
	stake_amount::float8, expected_profit::float8, polymarket_order_id, status,
	created_at, executed_at, actual_profit::float8`

func scanTrade(row pgx.CollectableRow) (domain.TradeRecord, error) {
	var t domain.TradeRecord
	var action, status string
	err := row.Scan(
		&t.ID, &t.TradeID, &t.MarketID, &t.Slug, &t.GameID,
		&t.Outcome, &t.PolymarketPrice, &t.OddsPrice, &t.Edge, &action,
		&t.Stake, &t.ExpectedProfit, &t.OrderID, &status,
		&t.CreatedAt, &t.ExecutedAt, &t.ActualProfit,
	)
	t.Action = domain.Action(action)
	t.Status = domain.TradeStatus(status)
	return t, err
}

func scanTradeRows(rows pgx.Rows) ([]domain.TradeRecord, error) {
	return pgx.CollectRows(rows, scanTrade)
}

const insertTrade = `
	INSERT INTO executed_trades (
		trade_id, polymarket_market_id, polymarket_slug, odds_game_id, outcome,
		polymarket_price, odds_price, edge, recommended_action,
		stake_amount, expected_profit, polymarket_order_id, status,
		created_at, executed_at
	) VALUES (
		@trade_id, @market_id, @slug, @game_id, @outcome,
		@poly_price, @odds_price, @edge, @action,
		@stake, @expected_profit, @order_id, @status,
		@created_at, @executed_at
	)`

const markOpportunityTraded = `
	UPDATE trade_opportunities SET status = @status, last_seen = @seen
	WHERE opportunity_hash = @hash`

// tradeArgs binds rec to insertTrade. A zero CreatedAt becomes now.
func tradeArgs(rec domain.TradeRecord, now time.Time) pgx.NamedArgs {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return pgx.NamedArgs{
		"trade_id":        rec.TradeID,
		"market_id":       rec.MarketID,
		"slug":            rec.Slug,
		"game_id":         rec.GameID,
		"outcome":         rec.Outcome,
		"poly_price":      rec.PolymarketPrice,
		"odds_price":      rec.OddsPrice,
		"edge":            rec.Edge,
		"action":          string(rec.Action),
		"stake":           rec.Stake,
		"expected_profit": rec.ExpectedProfit,
		"order_id":        rec.OrderID,
		"status":          string(rec.Status),
		"created_at":      createdAt,
		"executed_at":     rec.ExecutedAt,
	}
}

// Record inserts the trade and flips the opportunity identified by oppHash
// to TRADED in one transaction, sent as a single batch. An empty oppHash
// skips the update.
func (s *TradeStore) Record(ctx context.Context, rec domain.TradeRecord, oppHash string) error {
	args := tradeArgs(rec, time.Now().UTC())

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(insertTrade, args)
		if oppHash != "" {
			batch.Queue(markOpportunityTraded, pgx.NamedArgs{
				"status": string(domain.OpportunityTraded),
				"seen":   args["created_at"],
				"hash":   oppHash,
			})
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("postgres: record trade %s: %w", rec.TradeID, err)
	}
	return nil
}

// UpdateStatus sets a trade's status.
func (s *TradeStore) UpdateStatus(ctx context.Context, tradeID string, status domain.TradeStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE executed_trades SET status = $2 WHERE trade_id = $1`,
		tradeID, string(status),
	)
	if err != nil {
		return fmt.Errorf("postgres: update trade status %s: %w", tradeID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update trade status %s: %w", tradeID, domain.ErrNotFound)
	}
	return nil
}

// Settle records a trade's realised profit and marks it SETTLED.
func (s *TradeStore) Settle(ctx context.Context, tradeID string, actualProfit float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE executed_trades SET actual_profit = $2, status = $3 WHERE trade_id = $1`,
		tradeID, actualProfit, string(domain.TradeStatusSettled),
	)
	if err != nil {
		return fmt.Errorf("postgres: settle trade %s: %w", tradeID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: settle trade %s: %w", tradeID, domain.ErrNotFound)
	}
	return nil
}

// List returns trades newest first with pagination and optional time
// filtering.
func (s *TradeStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tradeSelectCols+` FROM executed_trades`+pageClause, pageArgs(opts))
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades: %w", err)
	}
	return trades, nil
}

// ListActive returns executed trades that have not been settled.
func (s *TradeStore) ListActive(ctx context.Context) ([]domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM executed_trades
		 WHERE status = $1 AND actual_profit IS NULL
		 ORDER BY created_at DESC`,
		string(domain.TradeStatusExecuted),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active trades: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// ListBefore returns all trades created strictly before the given time (for archiving).
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM executed_trades WHERE created_at < $1 ORDER BY created_at ASC`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// DeleteBefore deletes all trades created before the given time. Returns the number deleted.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM executed_trades WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// HasRecent reports whether marketID/outcome was traded at or after since.
func (s *TradeStore) HasRecent(ctx context.Context, marketID, outcome string, since time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM executed_trades
			WHERE polymarket_market_id = $1 AND outcome = $2 AND created_at >= $3
		)`,
		marketID, outcome, since,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check recent trade: %w", err)
	}
	return exists, nil
}

// StakeBetween sums the stake of executed trades created in [from, to).
func (s *TradeStore) StakeBetween(ctx context.Context, from, to time.Time) (float64, error) {
	var total float64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(stake_amount), 0)::float8 FROM executed_trades
		WHERE created_at >= $1 AND created_at < $2 AND status <> $3`,
		from, to, string(domain.TradeStatusFailed),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("postgres: sum stake: %w", err)
	}
	return total, nil
}

// CountBetween counts executed trades created in [from, to).
func (s *TradeStore) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM executed_trades
		WHERE created_at >= $1 AND created_at < $2 AND status <> $3`,
		from, to, string(domain.TradeStatusFailed),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count trades: %w", err)
	}
	return n, nil
}

// DailyPerformance returns one row per UTC day since the given time,
// newest first.
func (s *TradeStore) DailyPerformance(ctx context.Context, since time.Time) ([]domain.DailyPerformance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT trade_date, trades_count, total_stake::float8, winning_trades,
		       total_profit::float8, avg_edge, settled_trades
		FROM daily_performance
		WHERE trade_date >= ($1::timestamptz AT TIME ZONE 'UTC')::date
		ORDER BY trade_date DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: daily performance: %w", err)
	}
	defer rows.Close()

	var out []domain.DailyPerformance
	for rows.Next() {
		var d domain.DailyPerformance
		var day time.Time
		var settled int
		if err := rows.Scan(&day, &d.TradesCount, &d.TotalStake, &d.WinningTrades,
			&d.TotalProfit, &d.AvgEdge, &settled); err != nil {
			return nil, fmt.Errorf("postgres: scan daily performance: %w", err)
		}
		d.Date = day.Format("2006-01-02")
		if settled > 0 {
			d.WinRate = float64(d.WinningTrades) / float64(settled)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: daily performance rows: %w", err)
	}
	return out, nil
}

// Stats aggregates executed and settled trades created since the given time.
func (s *TradeStore) Stats(ctx context.Context, since time.Time) (domain.TradeStats, error) {
	var st domain.TradeStats
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE actual_profit IS NOT NULL),
		       COUNT(*) FILTER (WHERE actual_profit > 0),
		       COALESCE(SUM(stake_amount), 0)::float8,
		       COALESCE(SUM(actual_profit), 0)::float8,
		       COALESCE(AVG(edge), 0)
		FROM executed_trades
		WHERE created_at >= $1 AND status IN ($2, $3)`,
		since, string(domain.TradeStatusExecuted), string(domain.TradeStatusSettled),
	).Scan(&st.Trades, &st.Settled, &st.Wins, &st.TotalStake, &st.TotalProfit, &st.AvgEdge)
	if err != nil {
		return domain.TradeStats{}, fmt.Errorf("postgres: trade stats: %w", err)
	}
	return st, nil
}

// Count returns the total number of trade rows.
func (s *TradeStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM executed_trades`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count trades: %w", err)
	}
	return n, nil
}

var _ domain.TradeStore = (*TradeStore)(nil)
