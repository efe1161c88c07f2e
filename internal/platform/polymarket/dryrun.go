package polymarket

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// DryRunExecutor accepts every order without sending it anywhere.
type DryRunExecutor struct {
	logger *slog.Logger
	placed atomic.Int64
}

// NewDryRunExecutor creates a DryRunExecutor.
func NewDryRunExecutor(logger *slog.Logger) *DryRunExecutor {
	return &DryRunExecutor{logger: logger.With(slog.String("component", "dry_run_executor"))}
}

// Place logs the order and reports success with a synthetic order id.
func (d *DryRunExecutor) Place(ctx context.Context, order domain.OrderRequest) (domain.OrderResult, error) {
	id := "dry-" + uuid.NewString()
	n := d.placed.Add(1)
	d.logger.InfoContext(ctx, "dry-run order",
		slog.String("order_id", id),
		slog.Int64("placed", n),
		slog.String("slug", order.MarketSlug),
		slog.String("outcome", order.Outcome),
		slog.String("side", string(order.Side)),
		slog.Float64("price", order.Price),
		slog.Float64("size", order.Size),
	)
	return domain.OrderResult{Success: true, OrderID: id}, nil
}

var _ domain.OrderExecutor = (*DryRunExecutor)(nil)
