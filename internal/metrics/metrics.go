// Package metrics provides Prometheus metrics for the scanner and trader.
// All recording methods are safe to call on a nil *Metrics, which records
// nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	LookupsTotal       *prometheus.CounterVec
	GamesTotal         *prometheus.CounterVec
	OpportunitiesTotal *prometheus.CounterVec
	OpportunityEdge    prometheus.Histogram
	TradesTotal        *prometheus.CounterVec
	TradeStake         prometheus.Histogram
	ScansTotal         *prometheus.CounterVec
	ScanDuration       prometheus.Histogram
	OddsQuotaRemaining prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sportsedge_market_lookups_total",
				Help: "Slug lookups by result (cache, exact, fallback, miss)",
			},
			[]string{"result"},
		),
		GamesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sportsedge_games_total",
				Help: "Odds-feed games seen by matching outcome",
			},
			[]string{"outcome"},
		),
		OpportunitiesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sportsedge_opportunities_total",
				Help: "Opportunities above the scan minimum edge",
			},
			[]string{"action"},
		),
		OpportunityEdge: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sportsedge_opportunity_edge",
				Help:    "Relative edge of surfaced opportunities",
				Buckets: []float64{0.02, 0.03, 0.05, 0.08, 0.1, 0.15, 0.2, 0.3, 0.5, 1},
			},
		),
		TradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sportsedge_trades_total",
				Help: "Trade attempts by status",
			},
			[]string{"status"},
		),
		TradeStake: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sportsedge_trade_stake_dollars",
				Help:    "Stake of executed trades",
				Buckets: []float64{10, 25, 50, 100, 200, 300, 500, 1000},
			},
		),
		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sportsedge_scans_total",
				Help: "Scan passes by result",
			},
			[]string{"result"},
		),
		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sportsedge_scan_duration_seconds",
				Help:    "Wall time of a scan pass",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
		OddsQuotaRemaining: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sportsedge_odds_api_requests_remaining",
				Help: "Remaining odds API request quota as last reported",
			},
		),
	}

	m.registry.MustRegister(
		m.LookupsTotal,
		m.GamesTotal,
		m.OpportunitiesTotal,
		m.OpportunityEdge,
		m.TradesTotal,
		m.TradeStake,
		m.ScansTotal,
		m.ScanDuration,
		m.OddsQuotaRemaining,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLookup counts a slug lookup.
func (m *Metrics) ObserveLookup(result string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(result).Inc()
}

// ObserveMatch records a matching pass.
func (m *Metrics) ObserveMatch(matched, noSlug, noMarket int) {
	if m == nil {
		return
	}
	m.GamesTotal.WithLabelValues("matched").Add(float64(matched))
	m.GamesTotal.WithLabelValues("no_slug").Add(float64(noSlug))
	m.GamesTotal.WithLabelValues("no_market").Add(float64(noMarket))
}

// ObserveOpportunity records a surfaced opportunity.
func (m *Metrics) ObserveOpportunity(action string, edge float64) {
	if m == nil {
		return
	}
	m.OpportunitiesTotal.WithLabelValues(action).Inc()
	m.OpportunityEdge.Observe(edge)
}

// ObserveTrade records a trade attempt. Stake is only observed for
// executed trades.
func (m *Metrics) ObserveTrade(status string, stake float64) {
	if m == nil {
		return
	}
	m.TradesTotal.WithLabelValues(status).Inc()
	if status == "EXECUTED" && stake > 0 {
		m.TradeStake.Observe(stake)
	}
}

// ObserveScan records a scan pass.
func (m *Metrics) ObserveScan(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(result).Inc()
	m.ScanDuration.Observe(d.Seconds())
}

// SetOddsQuota records the odds API's remaining request quota.
func (m *Metrics) SetOddsQuota(remaining float64) {
	if m == nil {
		return
	}
	m.OddsQuotaRemaining.Set(remaining)
}
