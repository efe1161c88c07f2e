package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
	"github.com/alanyoungcy/sportsedge/internal/edge"
	"github.com/alanyoungcy/sportsedge/internal/matcher"
)

type fakeFeed struct {
	games []domain.Game
	err   error
	calls int
}

func (f *fakeFeed) FetchGames(ctx context.Context, sportKeys []string) ([]domain.Game, error) {
	f.calls++
	return f.games, f.err
}

type fakeMarkets struct {
	bySlug map[string]domain.Market
}

func (f *fakeMarkets) GetMarketBySlug(ctx context.Context, slug string) (domain.Market, error) {
	m, ok := f.bySlug[slug]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeMarkets) ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	return nil, nil
}

type fakeLocks struct {
	held     bool
	acquired int
	released int
}

func (l *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.held {
		return nil, fmt.Errorf("redis lock %s: %w", key, domain.ErrLockHeld)
	}
	l.acquired++
	return func() { l.released++ }, nil
}

func sunsKings() domain.Game {
	return domain.Game{
		ID:           "g1",
		SportKey:     "basketball_nba",
		AwayTeam:     "Phoenix Suns",
		HomeTeam:     "Sacramento Kings",
		CommenceTime: time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC),
		Bookmakers: []domain.Bookmaker{{
			Key:   "pinnacle",
			Title: "Pinnacle",
			Markets: []domain.BookMarket{{
				Key: domain.MarketKeyH2H,
				Outcomes: []domain.BookOutcome{
					{Name: "Phoenix Suns", Price: 1.80},
					{Name: "Sacramento Kings", Price: 2.10},
				},
			}},
		}},
	}
}

func newScanHarness(t *testing.T, dryRun bool) (*ScanService, *tradeHarness, *fakeFeed, *recordingBus) {
	t.Helper()
	feed := &fakeFeed{games: []domain.Game{sunsKings()}}
	markets := &fakeMarkets{bySlug: map[string]domain.Market{
		"nba-phx-sac-2025-01-15": {
			ID:            "0xabcdef1234",
			Slug:          "nba-phx-sac-2025-01-15",
			Outcomes:      `["Phoenix Suns","Sacramento Kings"]`,
			OutcomePrices: `["0.62","0.38"]`,
		},
	}}
	lookup := matcher.NewLookup(markets, nil, nil, discardLogger())
	m := matcher.NewMatcher(lookup, 4, discardLogger())
	a := matcher.NewAssembler(lookup, edge.NewSizer(10000), []string{"pinnacle"}, discardLogger())

	h := newTradeHarness(t)
	bus := newRecordingBus()
	s := NewScanService(feed, m, a, h.svc, ScanConfig{Sports: []string{"basketball_nba"}, DryRun: dryRun}, discardLogger())
	s.SetSignalBus(bus)
	s.seq = func() string { return "scan0001" }
	return s, h, feed, bus
}

func TestScanOnceDryRun(t *testing.T) {
	s, h, _, bus := newScanHarness(t, true)

	res, err := s.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("ScanOnce failed: %v", err)
	}
	if res.ID != "scan0001" || !res.DryRun {
		t.Errorf("result = %+v", res)
	}
	if res.Games != 1 || res.Match.Matched != 1 {
		t.Errorf("games = %d, match = %+v", res.Games, res.Match)
	}
	if len(res.Opportunities) != 2 {
		t.Fatalf("got %d opportunities, want 2", len(res.Opportunities))
	}
	if res.Opportunities[0].Action != domain.ActionBuyPolymarket || res.Opportunities[1].Action != domain.ActionBuyOdds {
		t.Errorf("actions = %s, %s", res.Opportunities[0].Action, res.Opportunities[1].Action)
	}
	if len(res.Trades) != 0 || len(h.placer.orders) != 0 {
		t.Errorf("dry run traded: %+v", res.Trades)
	}
	if bus.messages[domain.ChannelOpportunity] != 2 || bus.messages[domain.ChannelScan] != 1 {
		t.Errorf("bus = %v", bus.messages)
	}

	last, ok := s.Last()
	if !ok || last.ID != res.ID {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestScanOnceExecutes(t *testing.T) {
	s, h, _, bus := newScanHarness(t, false)

	res, err := s.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("ScanOnce failed: %v", err)
	}
	if res.DryRun {
		t.Error("live scan reported dry run")
	}
	if len(res.Trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(res.Trades))
	}
	for _, tr := range res.Trades {
		if !tr.Success {
			t.Errorf("trade %+v failed", tr)
		}
	}
	if len(h.trades.rows) != 2 {
		t.Errorf("recorded %d trades", len(h.trades.rows))
	}
	if bus.messages[domain.ChannelTrade] != 2 {
		t.Errorf("trade messages = %d", bus.messages[domain.ChannelTrade])
	}

	// Both outcomes are now traded, so a second pass finds them blocked.
	res, err = s.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("second ScanOnce failed: %v", err)
	}
	if len(res.Opportunities) != 2 || len(res.Trades) != 0 {
		t.Errorf("second pass: %d opportunities, %d trades", len(res.Opportunities), len(res.Trades))
	}
}

func TestScanOnceMinEdgeFilter(t *testing.T) {
	s, _, _, _ := newScanHarness(t, true)
	s.cfg.MinEdge = 0.2

	res, err := s.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("ScanOnce failed: %v", err)
	}
	if len(res.Opportunities) != 1 || res.Opportunities[0].Outcome != "Sacramento Kings" {
		t.Errorf("opportunities = %+v", res.Opportunities)
	}
}

func TestScanOnceLockHeld(t *testing.T) {
	s, _, feed, _ := newScanHarness(t, true)
	s.SetLockManager(&fakeLocks{held: true})

	_, err := s.ScanOnce(context.Background())
	if !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}
	if feed.calls != 0 {
		t.Error("feed fetched while lock held")
	}
	if _, ok := s.Last(); ok {
		t.Error("skipped scan should not be stored")
	}
}

func TestScanOnceReleasesLock(t *testing.T) {
	s, _, _, _ := newScanHarness(t, true)
	locks := &fakeLocks{}
	s.SetLockManager(locks)

	if _, err := s.ScanOnce(context.Background()); err != nil {
		t.Fatalf("ScanOnce failed: %v", err)
	}
	if locks.acquired != 1 || locks.released != 1 {
		t.Errorf("acquired %d, released %d", locks.acquired, locks.released)
	}
}

func TestScanOnceFeedError(t *testing.T) {
	s, _, feed, _ := newScanHarness(t, true)
	feed.err = domain.ErrUnauthorized

	_, err := s.ScanOnce(context.Background())
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	last, ok := s.Last()
	if !ok || last.Error == "" {
		t.Errorf("failed scan should be stored with its error: %+v", last)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _, feed, _ := newScanHarness(t, true)
	s.cfg.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := s.Last(); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first scan did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if feed.calls != 1 {
		t.Errorf("feed calls = %d, want 1", feed.calls)
	}
}

func TestPublishEncodeFailureLogged(t *testing.T) {
	s, _, _, bus := newScanHarness(t, true)
	var buf bytes.Buffer
	s.logger = slog.New(slog.NewTextHandler(&buf, nil))

	s.publish(context.Background(), domain.ChannelOpportunity, map[string]float64{"edge": math.Inf(1)})

	if n := bus.messages[domain.ChannelOpportunity]; n != 0 {
		t.Errorf("published %d messages, want 0", n)
	}
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "encode event failed") {
		t.Errorf("encode failure not logged at warn:\n%s", out)
	}
}
