// Package notify fans alerts out to Telegram and Discord. Events can be
// filtered so operators receive only the alerts they care about.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// Event names accepted by Notify and the notify.events config list.
const (
	EventOpportunity   = "opportunity_detected"
	EventTradeExecuted = "trade_executed"
	EventTradeFailed   = "trade_failed"
	EventError         = "error"
)

// Sender is one notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier dispatches to every Sender that passes the event filter.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. An empty events list allows every event.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.senders) > 0
}

// Allows reports whether event passes the filter.
func (n *Notifier) Allows(event string) bool {
	return len(n.events) == 0 || n.events[event]
}

// Notify sends when event passes the filter. A nil Notifier does nothing.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if n == nil {
		return nil
	}
	if !n.Allows(event) {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// dispatch delivers to every sender; one failing sender does not stop the
// rest.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// OpportunityMessage renders opportunities for an opportunity_detected alert.
func OpportunityMessage(opps []domain.Opportunity) (string, string) {
	title := fmt.Sprintf("%d opportunit%s detected", len(opps), plural(len(opps), "y", "ies"))
	var b strings.Builder
	for i, o := range opps {
		if i == 10 {
			fmt.Fprintf(&b, "... and %d more\n", len(opps)-10)
			break
		}
		fmt.Fprintf(&b, "%s | %s: poly %.3f vs %s %.2f | edge %.1f%% | %s $%.2f\n",
			o.GameLabel, o.Outcome, o.PolymarketPrice, o.Bookmaker, o.OddsPrice,
			o.Edge*100, o.Action, o.Stake)
	}
	return title, strings.TrimRight(b.String(), "\n")
}

// TradeMessage renders a trade result and reports which event it belongs to.
func TradeMessage(req domain.TradeRequest, res domain.TradeResult) (event, title, message string) {
	if res.Success {
		return EventTradeExecuted,
			"Trade executed",
			fmt.Sprintf("%s %s ($%.2f, edge %.1f%%)\norder %s, expected profit $%.2f",
				req.Slug, req.Outcome, res.ExecutedStake, req.Edge*100, res.OrderID, res.ExpectedProfit)
	}
	return EventTradeFailed,
		"Trade " + strings.ToLower(string(res.Status)),
		fmt.Sprintf("%s %s ($%.2f): %s", req.Slug, req.Outcome, req.Stake, res.ErrorMessage)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
