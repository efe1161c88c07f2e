// Package matcher joins odds-feed games to Polymarket markets by slug and
// turns each joined pair into priced opportunities.
package matcher

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alanyoungcy/sportsedge/internal/domain"
	"github.com/alanyoungcy/sportsedge/internal/metrics"
	"github.com/alanyoungcy/sportsedge/internal/slug"
)

// Resolver resolves a slug to a market, absorbing date and home/away skew
// between the two sources.
type Resolver interface {
	Resolve(ctx context.Context, s string) (domain.Market, bool)
}

// Variants returns the slugs tried for s, in order: exact, day-1, day+1,
// swapped, swapped day-1, swapped day+1. A slug that does not parse yields
// only itself.
func Variants(s string) []string {
	p, ok := slug.Parse(s)
	if !ok {
		return []string{s}
	}
	sw := p.Swap()
	return []string{
		s,
		p.Shift(-1).String(),
		p.Shift(1).String(),
		sw.String(),
		sw.Shift(-1).String(),
		sw.Shift(1).String(),
	}
}

// Lookup resolves slugs against a MarketSource with an optional cache in
// front of it.
type Lookup struct {
	source  domain.MarketSource
	cache   domain.MarketCache
	metrics *metrics.Metrics
	logger  *slog.Logger
	// fresh skips cache reads. Resolved markets are still written back.
	fresh bool
}

// NewLookup creates a Lookup. cache and m may be nil.
func NewLookup(source domain.MarketSource, cache domain.MarketCache, m *metrics.Metrics, logger *slog.Logger) *Lookup {
	return &Lookup{
		source:  source,
		cache:   cache,
		metrics: m,
		logger:  logger.With(slog.String("component", "lookup")),
	}
}

// Fresh returns a Lookup over the same source and cache that always asks
// the source, refreshing the cache with what it finds.
func (l *Lookup) Fresh() *Lookup {
	c := *l
	c.fresh = true
	return &c
}

// Resolve tries each variant of s until one resolves. A miss on every
// variant is reported as false, not as an error. Source errors are logged
// and treated as a miss for that variant.
func (l *Lookup) Resolve(ctx context.Context, s string) (domain.Market, bool) {
	if s == "" {
		return domain.Market{}, false
	}

	if l.cache != nil && !l.fresh {
		m, err := l.cache.GetBySlug(ctx, s)
		if err == nil {
			l.metrics.ObserveLookup("cache")
			return m, true
		}
		if !errors.Is(err, domain.ErrNotFound) {
			l.logger.WarnContext(ctx, "market cache read failed",
				slog.String("slug", s),
				slog.String("error", err.Error()),
			)
		}
	}

	for i, v := range Variants(s) {
		m, err := l.source.GetMarketBySlug(ctx, v)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				l.logger.WarnContext(ctx, "market lookup failed",
					slog.String("slug", v),
					slog.String("error", err.Error()),
				)
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if i == 0 {
			l.metrics.ObserveLookup("exact")
		} else {
			l.metrics.ObserveLookup("fallback")
			l.logger.DebugContext(ctx, "resolved via fallback",
				slog.String("slug", s),
				slog.String("variant", v),
			)
		}

		if l.cache != nil {
			if err := l.cache.SetBySlug(ctx, s, m); err != nil {
				l.logger.WarnContext(ctx, "market cache write failed",
					slog.String("slug", s),
					slog.String("error", err.Error()),
				)
			}
		}
		return m, true
	}

	l.metrics.ObserveLookup("miss")
	return domain.Market{}, false
}
