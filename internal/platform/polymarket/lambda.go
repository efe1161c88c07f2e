package polymarket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// LambdaClient places orders through an external HTTP order executor that
// holds the trading wallet. This side only describes the order.
type LambdaClient struct {
	rest   rest
	apiKey string
}

// NewLambdaClient creates an executor client posting to url. apiKey, when
// set, is sent as x-api-key. timeout <= 0 uses 30s.
func NewLambdaClient(url, apiKey string, timeout time.Duration) *LambdaClient {
	return &LambdaClient{rest: newREST(url, timeout), apiKey: apiKey}
}

// Place submits the order. An order the executor rejects comes back as a
// result with Success false; only transport and HTTP failures are errors.
func (l *LambdaClient) Place(ctx context.Context, order domain.OrderRequest) (domain.OrderResult, error) {
	if l.rest.base == "" {
		return domain.OrderResult{}, fmt.Errorf("polymarket/lambda: executor url: %w", domain.ErrMissingKey)
	}

	c := call{method: http.MethodPost, body: order}
	if l.apiKey != "" {
		c.header = http.Header{"X-Api-Key": {l.apiKey}}
	}
	var res domain.OrderResult
	if err := l.rest.do(ctx, c, &res); err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/lambda: place %s: %w", order.MarketSlug, err)
	}
	return res, nil
}

var _ domain.OrderExecutor = (*LambdaClient)(nil)
