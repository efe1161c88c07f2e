package matcher

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/sportsedge/internal/domain"
	"github.com/alanyoungcy/sportsedge/internal/slug"
)

const defaultConcurrency = 4

// MatchStats counts how a matching pass disposed of its games.
type MatchStats struct {
	Total    int `json:"total"`
	NoSlug   int `json:"no_slug"`
	NoMarket int `json:"no_market"`
	Matched  int `json:"matched"`
}

type matchOutcome int

const (
	outcomeNoSlug matchOutcome = iota
	outcomeNoMarket
	outcomeMatched
)

// Matcher pairs odds-feed games with Polymarket markets.
type Matcher struct {
	resolver    Resolver
	concurrency int
	logger      *slog.Logger
}

// NewMatcher creates a Matcher that runs at most concurrency lookups at a
// time. concurrency <= 0 uses the default of 4.
func NewMatcher(resolver Resolver, concurrency int, logger *slog.Logger) *Matcher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Matcher{
		resolver:    resolver,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "matcher")),
	}
}

// Match resolves every game and returns one pair per game that found a
// market. Pairs follow input order regardless of lookup completion order.
// Games without a slug or a market are skipped and counted.
func (m *Matcher) Match(ctx context.Context, games []domain.Game) ([]domain.MatchedPair, MatchStats) {
	outcomes := make([]matchOutcome, len(games))
	marketIDs := make([]string, len(games))

	var g errgroup.Group
	g.SetLimit(m.concurrency)

	for i, game := range games {
		s := slug.Generate(game.SportKey, game.AwayTeam, game.HomeTeam, game.CommenceTime)
		if s == "" {
			outcomes[i] = outcomeNoSlug
			m.logger.DebugContext(ctx, "no slug for game",
				slog.String("game_id", game.ID),
				slog.String("sport", game.SportKey),
				slog.String("away", game.AwayTeam),
				slog.String("home", game.HomeTeam),
			)
			continue
		}
		g.Go(func() error {
			market, ok := m.resolver.Resolve(ctx, s)
			if !ok {
				outcomes[i] = outcomeNoMarket
				return nil
			}
			outcomes[i] = outcomeMatched
			marketIDs[i] = market.ID
			return nil
		})
	}
	_ = g.Wait()

	stats := MatchStats{Total: len(games)}
	var pairs []domain.MatchedPair
	for i, o := range outcomes {
		switch o {
		case outcomeNoSlug:
			stats.NoSlug++
		case outcomeNoMarket:
			stats.NoMarket++
		case outcomeMatched:
			stats.Matched++
			pairs = append(pairs, domain.MatchedPair{
				MarketID: marketIDs[i],
				GameID:   games[i].ID,
			})
		}
	}

	m.logger.InfoContext(ctx, "matching complete",
		slog.Int("games", stats.Total),
		slog.Int("matched", stats.Matched),
		slog.Int("no_slug", stats.NoSlug),
		slog.Int("no_market", stats.NoMarket),
	)
	return pairs, stats
}
