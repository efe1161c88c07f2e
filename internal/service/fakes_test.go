package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memOppStore is an in-memory domain.OpportunityStore.
type memOppStore struct {
	mu   sync.Mutex
	rows map[string]domain.OpportunityRecord
	seen map[string]int
}

func newMemOppStore() *memOppStore {
	return &memOppStore{rows: map[string]domain.OpportunityRecord{}, seen: map[string]int{}}
}

func (m *memOppStore) MarkSeen(ctx context.Context, rec domain.OpportunityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.rows[rec.Hash]; ok {
		old.LastSeen = rec.LastSeen
		old.Edge = rec.Edge
		m.rows[rec.Hash] = old
	} else {
		rec.FirstSeen = rec.LastSeen
		m.rows[rec.Hash] = rec
	}
	m.seen[rec.Hash]++
	return nil
}

func (m *memOppStore) IsDuplicate(ctx context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[hash].Status == domain.OpportunityTraded, nil
}

func (m *memOppStore) RecentHashes(ctx context.Context, since time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for h, r := range m.rows {
		if !r.LastSeen.Before(since) {
			out = append(out, h)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memOppStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for h, r := range m.rows {
		if r.LastSeen.Before(before) {
			delete(m.rows, h)
			n++
		}
	}
	return n, nil
}

func (m *memOppStore) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

func (m *memOppStore) status(hash string) domain.OpportunityStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[hash].Status
}

// memTradeStore is an in-memory domain.TradeStore that flips opportunities
// in opps when a trade is recorded.
type memTradeStore struct {
	mu   sync.Mutex
	rows []domain.TradeRecord
	opps *memOppStore
}

func (m *memTradeStore) Record(ctx context.Context, rec domain.TradeRecord, oppHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, rec)
	if m.opps != nil && oppHash != "" {
		m.opps.mu.Lock()
		r := m.opps.rows[oppHash]
		r.Status = domain.OpportunityTraded
		m.opps.rows[oppHash] = r
		m.opps.mu.Unlock()
	}
	return nil
}

func (m *memTradeStore) find(tradeID string) (int, bool) {
	for i, r := range m.rows {
		if r.TradeID == tradeID {
			return i, true
		}
	}
	return 0, false
}

func (m *memTradeStore) UpdateStatus(ctx context.Context, tradeID string, status domain.TradeStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.find(tradeID)
	if !ok {
		return domain.ErrNotFound
	}
	m.rows[i].Status = status
	return nil
}

func (m *memTradeStore) Settle(ctx context.Context, tradeID string, profit float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.find(tradeID)
	if !ok {
		return domain.ErrNotFound
	}
	m.rows[i].ActualProfit = &profit
	m.rows[i].Status = domain.TradeStatusSettled
	return nil
}

func (m *memTradeStore) newestFirst() []domain.TradeRecord {
	out := append([]domain.TradeRecord(nil), m.rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memTradeStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.newestFirst()
	if opts.Offset > len(out) {
		return nil, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *memTradeStore) ListActive(ctx context.Context) ([]domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TradeRecord
	for _, r := range m.newestFirst() {
		if r.Status == domain.TradeStatusExecuted && r.ActualProfit == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memTradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TradeRecord
	for _, r := range m.rows {
		if r.CreatedAt.Before(before) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memTradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	var n int64
	for _, r := range m.rows {
		if r.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

func (m *memTradeStore) HasRecent(ctx context.Context, marketID, outcome string, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.MarketID == marketID && r.Outcome == outcome && !r.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memTradeStore) inRange(r domain.TradeRecord, from, to time.Time) bool {
	return !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) && r.Status != domain.TradeStatusFailed
}

func (m *memTradeStore) StakeBetween(ctx context.Context, from, to time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum float64
	for _, r := range m.rows {
		if m.inRange(r, from, to) {
			sum += r.Stake
		}
	}
	return sum, nil
}

func (m *memTradeStore) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if m.inRange(r, from, to) {
			n++
		}
	}
	return n, nil
}

func (m *memTradeStore) DailyPerformance(ctx context.Context, since time.Time) ([]domain.DailyPerformance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byDay := map[string]*domain.DailyPerformance{}
	for _, r := range m.rows {
		if r.CreatedAt.Before(since) {
			continue
		}
		day := r.CreatedAt.UTC().Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &domain.DailyPerformance{Date: day}
			byDay[day] = d
		}
		d.TradesCount++
		d.TotalStake += r.Stake
		if r.ActualProfit != nil {
			d.TotalProfit += *r.ActualProfit
			if *r.ActualProfit > 0 {
				d.WinningTrades++
			}
		}
	}
	var out []domain.DailyPerformance
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (m *memTradeStore) Stats(ctx context.Context, since time.Time) (domain.TradeStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st domain.TradeStats
	var edgeSum float64
	for _, r := range m.rows {
		if r.CreatedAt.Before(since) || r.Status == domain.TradeStatusFailed {
			continue
		}
		st.Trades++
		st.TotalStake += r.Stake
		edgeSum += r.Edge
		if r.ActualProfit != nil {
			st.Settled++
			st.TotalProfit += *r.ActualProfit
			if *r.ActualProfit > 0 {
				st.Wins++
			}
		}
	}
	if st.Trades > 0 {
		st.AvgEdge = edgeSum / float64(st.Trades)
	}
	return st, nil
}

func (m *memTradeStore) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

// fakePlacer accepts every order unless reject is set.
type fakePlacer struct {
	mu     sync.Mutex
	orders []domain.OrderRequest
	reject string
}

func (f *fakePlacer) Place(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	if f.reject != "" {
		return domain.OrderResult{ErrorMessage: f.reject}, nil
	}
	return domain.OrderResult{Success: true, OrderID: fmt.Sprintf("ord-%d", len(f.orders))}, nil
}

type recordingBus struct {
	mu       sync.Mutex
	messages map[string]int
}

func newRecordingBus() *recordingBus { return &recordingBus{messages: map[string]int{}} }

func (b *recordingBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages[channel]++
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, fmt.Errorf("not supported")
}

type recordingArchiver struct {
	cutoff time.Time
	n      int64
	err    error
}

func (a *recordingArchiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	a.cutoff = before
	return a.n, a.err
}
