package matcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource is an in-memory MarketSource that records every slug queried.
type fakeSource struct {
	mu      sync.Mutex
	markets map[string]domain.Market
	errs    map[string]error
	delay   map[string]time.Duration
	calls   []string
}

func newFakeSource(markets ...domain.Market) *fakeSource {
	f := &fakeSource{
		markets: map[string]domain.Market{},
		errs:    map[string]error{},
		delay:   map[string]time.Duration{},
	}
	for _, m := range markets {
		f.markets[m.Slug] = m
	}
	return f
}

func (f *fakeSource) GetMarketBySlug(ctx context.Context, s string) (domain.Market, error) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	d := f.delay[s]
	err := f.errs[s]
	m, ok := f.markets[s]
	f.mu.Unlock()

	if d > 0 {
		time.Sleep(d)
	}
	if err != nil {
		return domain.Market{}, err
	}
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeSource) ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	return nil, nil
}

func (f *fakeSource) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]domain.Market
}

func (c *fakeCache) GetBySlug(ctx context.Context, s string) (domain.Market, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[s]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (c *fakeCache) SetBySlug(ctx context.Context, s string, m domain.Market) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[s] = m
	return nil
}

func TestVariantsOrder(t *testing.T) {
	got := Variants("nba-phx-sac-2025-01-15")
	want := []string{
		"nba-phx-sac-2025-01-15",
		"nba-phx-sac-2025-01-14",
		"nba-phx-sac-2025-01-16",
		"nba-sac-phx-2025-01-15",
		"nba-sac-phx-2025-01-14",
		"nba-sac-phx-2025-01-16",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Variants() =\n%v\nwant\n%v", got, want)
	}

	if got := Variants("not-a-slug"); !reflect.DeepEqual(got, []string{"not-a-slug"}) {
		t.Errorf("unparseable slug variants = %v", got)
	}
}

func TestLookupResolve(t *testing.T) {
	all := Variants("nba-phx-sac-2025-01-15")

	tests := []struct {
		name      string
		hitSlug   string
		wantOK    bool
		wantCalls []string
	}{
		{"exact", all[0], true, all[:1]},
		{"day before", all[1], true, all[:2]},
		{"day after", all[2], true, all[:3]},
		{"swapped", all[3], true, all[:4]},
		{"swapped day before", all[4], true, all[:5]},
		{"swapped day after", all[5], true, all},
		{"miss", "", false, all},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var src *fakeSource
			if tt.hitSlug != "" {
				src = newFakeSource(domain.Market{ID: "m1", Slug: tt.hitSlug})
			} else {
				src = newFakeSource()
			}
			l := NewLookup(src, nil, nil, discardLogger())

			m, ok := l.Resolve(context.Background(), all[0])
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && m.ID != "m1" {
				t.Errorf("market id = %q", m.ID)
			}
			if got := src.callLog(); !reflect.DeepEqual(got, tt.wantCalls) {
				t.Errorf("calls =\n%v\nwant\n%v", got, tt.wantCalls)
			}
		})
	}
}

func TestLookupTransportErrorIsMiss(t *testing.T) {
	all := Variants("nhl-tor-bos-2025-02-01")
	src := newFakeSource(domain.Market{ID: "m2", Slug: all[2]})
	src.errs[all[0]] = errors.New("connection reset")

	l := NewLookup(src, nil, nil, discardLogger())
	m, ok := l.Resolve(context.Background(), all[0])
	if !ok || m.ID != "m2" {
		t.Fatalf("Resolve() = %+v, %v", m, ok)
	}
}

func TestLookupEmptySlug(t *testing.T) {
	src := newFakeSource()
	l := NewLookup(src, nil, nil, discardLogger())
	if _, ok := l.Resolve(context.Background(), ""); ok {
		t.Fatal("empty slug should not resolve")
	}
	if len(src.callLog()) != 0 {
		t.Error("empty slug should not reach the source")
	}
}

func TestLookupUsesCache(t *testing.T) {
	s := "mlb-nyy-bos-2025-04-10"
	swapped := Variants(s)[3]
	src := newFakeSource(domain.Market{ID: "m3", Slug: swapped})
	cache := &fakeCache{entries: map[string]domain.Market{}}
	l := NewLookup(src, cache, nil, discardLogger())

	if _, ok := l.Resolve(context.Background(), s); !ok {
		t.Fatal("first resolve failed")
	}
	first := len(src.callLog())

	m, ok := l.Resolve(context.Background(), s)
	if !ok || m.ID != "m3" {
		t.Fatalf("cached resolve = %+v, %v", m, ok)
	}
	if got := len(src.callLog()); got != first {
		t.Errorf("second resolve hit the source: %d calls, want %d", got, first)
	}
}

func TestFreshLookupSkipsCacheRead(t *testing.T) {
	s := "nba-phx-sac-2025-01-15"
	src := newFakeSource(domain.Market{ID: "m1", Slug: s, OutcomePrices: `["0.62","0.38"]`})
	cache := &fakeCache{entries: map[string]domain.Market{
		s: {ID: "m1", Slug: s, OutcomePrices: `["0.50","0.50"]`},
	}}
	l := NewLookup(src, cache, nil, discardLogger()).Fresh()

	m, ok := l.Resolve(context.Background(), s)
	if !ok || m.OutcomePrices != `["0.62","0.38"]` {
		t.Fatalf("Resolve() = %+v, %v, want source prices", m, ok)
	}
	if calls := src.callLog(); len(calls) != 1 || calls[0] != s {
		t.Errorf("source calls = %v, want [%s]", calls, s)
	}
	if got := cache.entries[s].OutcomePrices; got != `["0.62","0.38"]` {
		t.Errorf("cache not refreshed: %s", got)
	}
}

func game(id, sport, away, home string, ts time.Time) domain.Game {
	return domain.Game{ID: id, SportKey: sport, AwayTeam: away, HomeTeam: home, CommenceTime: ts}
}

func TestMatcherPreservesInputOrder(t *testing.T) {
	day := time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC)
	games := []domain.Game{
		game("g1", "basketball_nba", "Phoenix Suns", "Sacramento Kings", day),
		game("g2", "basketball_nba", "Boston Celtics", "Miami Heat", day),
		game("g3", "americanfootball_nfl", "Dallas Cowboys", "New York Giants", day),
		game("g4", "basketball_nba", "Utah Jazz", "Denver Nuggets", day),
		game("g5", "basketball_nba", "Los Angeles Lakers", "Golden State Warriors", day),
	}

	src := newFakeSource(
		domain.Market{ID: "m1", Slug: "nba-phx-sac-2025-01-15"},
		domain.Market{ID: "m2", Slug: "nba-bos-mia-2025-01-14"},
		domain.Market{ID: "m5", Slug: "nba-gsw-lal-2025-01-15"},
	)
	// Make earlier games finish last.
	src.delay["nba-phx-sac-2025-01-15"] = 30 * time.Millisecond
	src.delay["nba-bos-mia-2025-01-15"] = 20 * time.Millisecond

	m := NewMatcher(NewLookup(src, nil, nil, discardLogger()), 8, discardLogger())
	pairs, stats := m.Match(context.Background(), games)

	want := []domain.MatchedPair{
		{MarketID: "m1", GameID: "g1"},
		{MarketID: "m2", GameID: "g2"},
		{MarketID: "m5", GameID: "g5"},
	}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("pairs = %+v, want %+v", pairs, want)
	}

	wantStats := MatchStats{Total: 5, NoSlug: 1, NoMarket: 1, Matched: 3}
	if stats != wantStats {
		t.Errorf("stats = %+v, want %+v", stats, wantStats)
	}
}

func TestMatcherDeterministic(t *testing.T) {
	day := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	games := []domain.Game{
		game("a", "icehockey_nhl", "Toronto Maple Leafs", "Boston Bruins", day),
		game("b", "icehockey_nhl", "Edmonton Oilers", "Calgary Flames", day),
		game("c", "icehockey_nhl", "Seattle Kraken", "Vancouver Canucks", day),
	}
	src := newFakeSource(
		domain.Market{ID: "1", Slug: "nhl-tor-bos-2025-03-02"},
		domain.Market{ID: "2", Slug: "nhl-cgy-edm-2025-03-02"},
		domain.Market{ID: "3", Slug: "nhl-sea-van-2025-03-03"},
	)
	m := NewMatcher(NewLookup(src, nil, nil, discardLogger()), 3, discardLogger())

	first, _ := m.Match(context.Background(), games)
	for i := 0; i < 5; i++ {
		got, _ := m.Match(context.Background(), games)
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, got, first)
		}
	}
	if len(first) != 3 {
		t.Errorf("expected 3 pairs, got %d", len(first))
	}
}

func TestMatcherEmpty(t *testing.T) {
	m := NewMatcher(NewLookup(newFakeSource(), nil, nil, discardLogger()), 0, discardLogger())
	pairs, stats := m.Match(context.Background(), nil)
	if len(pairs) != 0 || stats.Total != 0 {
		t.Errorf("got %v %+v", pairs, stats)
	}
}

func TestMatcherZeroCommenceTimeHasNoSlug(t *testing.T) {
	games := []domain.Game{game("g1", "basketball_nba", "Phoenix Suns", "Sacramento Kings", time.Time{})}
	src := newFakeSource(domain.Market{ID: "m1", Slug: "nba-phx-sac-0001-01-01"})

	m := NewMatcher(NewLookup(src, nil, nil, discardLogger()), 4, discardLogger())
	pairs, stats := m.Match(context.Background(), games)

	if len(pairs) != 0 {
		t.Errorf("pairs = %+v, want none", pairs)
	}
	if want := (MatchStats{Total: 1, NoSlug: 1}); stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if calls := src.callLog(); len(calls) != 0 {
		t.Errorf("source queried %v for a game without a commence time", calls)
	}
}
