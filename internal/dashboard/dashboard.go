// Package dashboard renders trade history and performance as text tables.
package dashboard

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
	"github.com/alanyoungcy/sportsedge/internal/service"
)

// TradeReader is the read side of the trade service used by the dashboard.
type TradeReader interface {
	TotalProfit(ctx context.Context) (float64, error)
	WinRate(ctx context.Context, days int) (float64, error)
	ROI(ctx context.Context, days int) (float64, error)
	DailyStakeUsed(ctx context.Context, date time.Time) (float64, error)
	History(ctx context.Context, limit, offset int) ([]domain.TradeRecord, error)
	DailyPerformance(ctx context.Context, days int) ([]domain.DailyPerformance, error)
	ActiveTrades(ctx context.Context) ([]domain.TradeRecord, error)
}

// PositionReader reports live wallet positions.
type PositionReader interface {
	Summary(ctx context.Context) (service.PositionSummary, error)
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"

	statsDays     = 30
	fullTrades    = 5
	fullPerfDays  = 7
	historyTrades = 20
	perfDays      = 30
	slugWidth     = 25
	ruleWidth     = 80
)

// Dashboard writes views to an io.Writer.
type Dashboard struct {
	trades    TradeReader
	positions PositionReader
	out       io.Writer
	color     bool
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Dashboard writing to out. positions may be nil.
func New(trades TradeReader, positions PositionReader, out io.Writer, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		trades:    trades,
		positions: positions,
		out:       out,
		logger:    logger.With(slog.String("component", "dashboard")),
		now:       time.Now,
	}
}

// SetColor enables ANSI colours.
func (d *Dashboard) SetColor(on bool) { d.color = on }

func (d *Dashboard) paint(s, color string) string {
	if !d.color {
		return s
	}
	return color + s + colorReset
}

func (d *Dashboard) signed(v float64, s string) string {
	if v >= 0 {
		return d.paint(s, colorGreen)
	}
	return d.paint(s, colorRed)
}

func (d *Dashboard) header(title string) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(d.out, "\n%s\n  %s\n%s\n\n", rule, d.paint(title, colorBlue), rule)
}

func (d *Dashboard) fail(what string, err error) {
	d.logger.Warn("view failed", slog.String("view", what), slog.String("error", err.Error()))
	fmt.Fprintf(d.out, "%s %v\n\n", d.paint("Error loading "+what+":", colorRed), err)
}

func table(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

// Currency formats v as dollars with two decimals.
func Currency(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

// Percent formats a fraction as a percentage.
func Percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// Truncate shortens s to n runes, ending in "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func date(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// age renders how long ago t was, in the largest whole unit.
func age(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
}

// PortfolioSummary prints profit, win rate, ROI and today's stake.
func (d *Dashboard) PortfolioSummary(ctx context.Context) {
	d.header("PORTFOLIO SUMMARY")

	profit, err := d.trades.TotalProfit(ctx)
	if err != nil {
		d.fail("portfolio data", err)
		return
	}
	winRate, err := d.trades.WinRate(ctx, statsDays)
	if err != nil {
		d.fail("portfolio data", err)
		return
	}
	roi, err := d.trades.ROI(ctx, statsDays)
	if err != nil {
		d.fail("portfolio data", err)
		return
	}
	stake, err := d.trades.DailyStakeUsed(ctx, d.now())
	if err != nil {
		d.fail("portfolio data", err)
		return
	}

	w := table(d.out)
	if d.positions != nil {
		if sum, err := d.positions.Summary(ctx); err == nil {
			fmt.Fprintf(w, "Position Value:\t%s\n", d.paint(Currency(sum.CurrentValue), colorBlue))
			if sum.PortfolioValue > 0 {
				fmt.Fprintf(w, "Portfolio Value:\t%s\n", d.paint(Currency(sum.PortfolioValue), colorBlue))
			}
			fmt.Fprintf(w, "Unrealised P&L:\t%s\n", d.signed(sum.CashPnL, Currency(sum.CashPnL)))
		} else {
			d.logger.Debug("positions unavailable", slog.String("error", err.Error()))
		}
	}
	fmt.Fprintf(w, "Total P&L:\t%s\n", d.signed(profit, Currency(profit)))
	fmt.Fprintf(w, "Win Rate (%dd):\t%s\n", statsDays, d.paint(Percent(winRate), colorYellow))
	fmt.Fprintf(w, "ROI (%dd):\t%s\n", statsDays, d.signed(roi, Percent(roi)))
	fmt.Fprintf(w, "Today's Stake Used:\t%s\n", d.paint(Currency(stake), colorBlue))
	w.Flush()
	fmt.Fprintln(d.out)
}

// RecentTrades prints the latest limit trades.
func (d *Dashboard) RecentTrades(ctx context.Context, limit int) {
	d.header("RECENT TRADES")

	trades, err := d.trades.History(ctx, limit, 0)
	if err != nil {
		d.fail("trade history", err)
		return
	}
	if len(trades) == 0 {
		fmt.Fprintln(d.out, "No trades found.")
		return
	}

	w := table(d.out)
	fmt.Fprintln(w, "Date\tMarket\tOutcome\tStake\tEdge\tP&L\tStatus")
	for _, t := range trades {
		pnl := "-"
		if t.ActualProfit != nil {
			pnl = d.signed(*t.ActualProfit, Currency(*t.ActualProfit))
		}
		status := d.paint(string(t.Status), colorYellow)
		if t.Status == domain.TradeStatusSettled {
			status = d.paint(string(t.Status), colorGreen)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			date(t.CreatedAt), Truncate(t.Slug, slugWidth), t.Outcome,
			Currency(t.Stake), Percent(t.Edge), pnl, status)
	}
	w.Flush()
	fmt.Fprintln(d.out)
}

// DailyPerformance prints one row per day for the last days days.
func (d *Dashboard) DailyPerformance(ctx context.Context, days int) {
	d.header("DAILY PERFORMANCE")

	perf, err := d.trades.DailyPerformance(ctx, days)
	if err != nil {
		d.fail("performance data", err)
		return
	}
	if len(perf) == 0 {
		fmt.Fprintln(d.out, "No performance data available.")
		return
	}

	w := table(d.out)
	fmt.Fprintln(w, "Date\tTrades\tStake\tProfit\tWin Rate\tAvg Edge")
	for _, p := range perf {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			p.Date, p.TradesCount, Currency(p.TotalStake),
			d.signed(p.TotalProfit, Currency(p.TotalProfit)),
			Percent(p.WinRate), Percent(p.AvgEdge))
	}
	w.Flush()
	fmt.Fprintln(d.out)
}

// ActivePositions prints executed trades awaiting settlement.
func (d *Dashboard) ActivePositions(ctx context.Context) {
	d.header("ACTIVE POSITIONS")

	trades, err := d.trades.ActiveTrades(ctx)
	if err != nil {
		d.fail("active positions", err)
		return
	}
	if len(trades) == 0 {
		fmt.Fprintln(d.out, "No active positions.")
		return
	}

	now := d.now()
	w := table(d.out)
	fmt.Fprintln(w, "Market\tOutcome\tStake\tExpected P&L\tStatus\tAge")
	for _, t := range trades {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			Truncate(t.Slug, slugWidth), t.Outcome, Currency(t.Stake),
			Currency(t.ExpectedProfit), d.paint(string(t.Status), colorGreen), age(now, t.CreatedAt))
	}
	w.Flush()
	fmt.Fprintln(d.out)
}

// Opportunities prints opportunities from a scan.
func (d *Dashboard) Opportunities(opps []domain.Opportunity) {
	d.header("CURRENT POLYMARKET TRADING OPPORTUNITIES")
	if len(opps) == 0 {
		fmt.Fprintln(d.out, "No trading opportunities found.")
		return
	}

	w := table(d.out)
	fmt.Fprintln(w, "Market\tOutcome\tEdge\tPoly Price\tOdds Price\tAction\tStake")
	for _, o := range opps {
		edgeColor := colorYellow
		if o.Edge >= 0.05 {
			edgeColor = colorGreen
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\t%.2f\t%s\t%s\n",
			Truncate(o.Slug, slugWidth), Truncate(o.Outcome, 15),
			d.paint(Percent(o.Edge), edgeColor), o.PolymarketPrice, o.OddsPrice,
			o.Action, Currency(o.Stake))
	}
	w.Flush()
	fmt.Fprintln(d.out)
}

// Full prints the summary, recent trades, a week of performance and the
// active positions.
func (d *Dashboard) Full(ctx context.Context) {
	d.header("SPORTSEDGE TRADING DASHBOARD")
	d.PortfolioSummary(ctx)
	d.RecentTrades(ctx, fullTrades)
	d.DailyPerformance(ctx, fullPerfDays)
	d.ActivePositions(ctx)
	fmt.Fprintf(d.out, "Last updated: %s\n", d.now().Format(time.RFC1123))
}

// Interactive shows the full dashboard, then reads one command per line
// from in until q, EOF or ctx is done.
func (d *Dashboard) Interactive(ctx context.Context, in io.Reader) error {
	d.Full(ctx)
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprintf(d.out, "\n%s\n", d.paint("Interactive Commands:", colorBlue))
		fmt.Fprintln(d.out, "  [r] Refresh dashboard")
		fmt.Fprintln(d.out, "  [h] Show trade history")
		fmt.Fprintln(d.out, "  [p] Show performance metrics")
		fmt.Fprintln(d.out, "  [a] Show active positions")
		fmt.Fprintln(d.out, "  [q] Quit")
		fmt.Fprint(d.out, "\nEnter command: ")

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !sc.Scan() {
			return sc.Err()
		}
		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "r":
			d.Full(ctx)
		case "h":
			d.RecentTrades(ctx, historyTrades)
		case "p":
			d.DailyPerformance(ctx, perfDays)
		case "a":
			d.ActivePositions(ctx)
		case "q":
			return nil
		default:
			fmt.Fprintln(d.out, "Invalid command. Please try again.")
		}
	}
}
