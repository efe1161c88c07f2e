package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
	"github.com/alanyoungcy/sportsedge/internal/edge"
	"github.com/alanyoungcy/sportsedge/internal/slug"
)

// DefaultSharpBook is the bookmaker preferred when no list is configured.
const DefaultSharpBook = "pinnacle"

// PricedOutcome is one decoded Polymarket outcome and its price.
type PricedOutcome struct {
	Name  string
	Price float64
}

// flexFloat unmarshals from a JSON number or a numeric string, since
// outcomePrices arrives as ["0.62","0.38"] but is sometimes sent unquoted.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// DecodeOutcomes decodes a market's JSON-encoded outcome and price arrays.
func DecodeOutcomes(m domain.Market) ([]PricedOutcome, error) {
	var names []string
	if err := json.Unmarshal([]byte(m.Outcomes), &names); err != nil {
		return nil, fmt.Errorf("decode outcomes: %w", err)
	}
	var prices []flexFloat
	if err := json.Unmarshal([]byte(m.OutcomePrices), &prices); err != nil {
		return nil, fmt.Errorf("decode outcome prices: %w", err)
	}
	if len(names) != len(prices) {
		return nil, fmt.Errorf("outcome count %d does not match price count %d", len(names), len(prices))
	}

	out := make([]PricedOutcome, len(names))
	for i := range names {
		p := float64(prices[i])
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
			return nil, fmt.Errorf("outcome %q price %v outside [0,1]", names[i], p)
		}
		out[i] = PricedOutcome{Name: names[i], Price: p}
	}
	return out, nil
}

// PreferredBookmaker returns the first sharp book (in sharpBooks order) that
// quotes an h2h market, falling back to the first bookmaker with one.
func PreferredBookmaker(game domain.Game, sharpBooks []string) (domain.Bookmaker, domain.BookMarket, bool) {
	for _, key := range sharpBooks {
		for _, b := range game.Bookmakers {
			if !strings.EqualFold(b.Key, key) {
				continue
			}
			if m, ok := b.Market(domain.MarketKeyH2H); ok {
				return b, m, true
			}
		}
	}
	for _, b := range game.Bookmakers {
		if m, ok := b.Market(domain.MarketKeyH2H); ok {
			return b, m, true
		}
	}
	return domain.Bookmaker{}, domain.BookMarket{}, false
}

// Assembler builds opportunities for matched pairs.
type Assembler struct {
	resolver   Resolver
	sizer      *edge.Sizer
	sharpBooks []string
	logger     *slog.Logger
	now        func() time.Time
}

// NewAssembler creates an Assembler. An empty sharpBooks list prefers
// DefaultSharpBook.
func NewAssembler(resolver Resolver, sizer *edge.Sizer, sharpBooks []string, logger *slog.Logger) *Assembler {
	if len(sharpBooks) == 0 {
		sharpBooks = []string{DefaultSharpBook}
	}
	return &Assembler{
		resolver:   resolver,
		sizer:      sizer,
		sharpBooks: sharpBooks,
		logger:     logger.With(slog.String("component", "assembler")),
		now:        time.Now,
	}
}

// Assemble returns one opportunity per pairing of a market outcome with a
// bookmaker outcome whose names overlap. Every pairing is returned whatever
// its edge; filtering is left to the caller.
func (a *Assembler) Assemble(ctx context.Context, pair domain.MatchedPair, game domain.Game, market domain.Market) []domain.Opportunity {
	polyOutcomes, err := DecodeOutcomes(market)
	if err != nil {
		a.logger.WarnContext(ctx, "skipping market with malformed outcomes",
			slog.String("market_id", market.ID),
			slog.String("slug", market.Slug),
			slog.String("error", err.Error()),
		)
		return nil
	}

	book, h2h, ok := PreferredBookmaker(game, a.sharpBooks)
	if !ok {
		a.logger.DebugContext(ctx, "no h2h bookmaker for game",
			slog.String("game_id", game.ID),
		)
		return nil
	}

	detected := a.now().UTC()
	var opps []domain.Opportunity
	for _, po := range polyOutcomes {
		for _, bo := range h2h.Outcomes {
			if !slug.NamesOverlap(po.Name, bo.Name) {
				continue
			}
			ev := edge.Evaluate(po.Price, bo.Price)
			opps = append(opps, domain.Opportunity{
				MarketID:           pair.MarketID,
				Slug:               market.Slug,
				GameID:             pair.GameID,
				GameLabel:          game.Label(),
				Outcome:            po.Name,
				Bookmaker:          book.Key,
				PolymarketPrice:    po.Price,
				OddsPrice:          bo.Price,
				Edge:               ev.Edge,
				ImpliedProbability: ev.Combined,
				Action:             ev.Action,
				Stake:              a.sizer.Stake(ev.Edge),
				DetectedAt:         detected,
			})
		}
	}
	return opps
}

// AssembleAll re-resolves each pair's market and assembles opportunities in
// pair order. Prices are only as fresh as the resolver; wire it with
// Lookup.Fresh to bypass the market cache. Pairs whose game is unknown or
// whose market no longer resolves to the paired id are skipped.
func (a *Assembler) AssembleAll(ctx context.Context, pairs []domain.MatchedPair, games []domain.Game) []domain.Opportunity {
	byID := make(map[string]domain.Game, len(games))
	for _, g := range games {
		byID[g.ID] = g
	}

	var opps []domain.Opportunity
	for _, pair := range pairs {
		game, ok := byID[pair.GameID]
		if !ok {
			continue
		}
		s := slug.Generate(game.SportKey, game.AwayTeam, game.HomeTeam, game.CommenceTime)
		market, ok := a.resolver.Resolve(ctx, s)
		if !ok || market.ID != pair.MarketID {
			a.logger.DebugContext(ctx, "market no longer resolves",
				slog.String("market_id", pair.MarketID),
				slog.String("game_id", pair.GameID),
			)
			continue
		}
		opps = append(opps, a.Assemble(ctx, pair, game, market)...)
	}
	return opps
}

// FilterByMinEdge keeps opportunities whose edge is at least minEdge,
// preserving order.
func FilterByMinEdge(opps []domain.Opportunity, minEdge float64) []domain.Opportunity {
	out := make([]domain.Opportunity, 0, len(opps))
	for _, o := range opps {
		if o.Edge >= minEdge {
			out = append(out, o)
		}
	}
	return out
}
