package polymarket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/alanyoungcy/sportsedge/internal/crypto"
	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// DataClient reads account state from the Polymarket Data API.
type DataClient struct {
	rest  rest
	creds crypto.Credentials
}

// NewDataClient creates a Data API client. When creds carries complete L2
// credentials every request is HMAC-signed; creds.Address is the default
// user for queries.
//
// baseURL is the Data API root, e.g. "https://data-api.polymarket.com".
func NewDataClient(baseURL string, creds crypto.Credentials) *DataClient {
	return &DataClient{rest: newREST(baseURL, 0), creds: creds}
}

// GetPositions returns the open positions of user, or of the configured
// address when user is empty.
func (d *DataClient) GetPositions(ctx context.Context, user string) ([]domain.Position, error) {
	user, err := d.user(user)
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get positions: %w", err)
	}

	params := url.Values{}
	params.Set("user", user)
	params.Set("sizeThreshold", "0.01")

	var apiPositions []APIPosition
	if err := d.get(ctx, "/positions", params, &apiPositions); err != nil {
		return nil, fmt.Errorf("polymarket/data: get positions: %w", err)
	}

	positions := make([]domain.Position, 0, len(apiPositions))
	for i := range apiPositions {
		positions = append(positions, apiPositions[i].ToDomainPosition())
	}
	return positions, nil
}

// GetPortfolioValue returns the current USDC value of user's positions.
func (d *DataClient) GetPortfolioValue(ctx context.Context, user string) (float64, error) {
	user, err := d.user(user)
	if err != nil {
		return 0, fmt.Errorf("polymarket/data: get value: %w", err)
	}

	params := url.Values{}
	params.Set("user", user)

	var values []APIValue
	if err := d.get(ctx, "/value", params, &values); err != nil {
		return 0, fmt.Errorf("polymarket/data: get value: %w", err)
	}
	if len(values) == 0 {
		return 0, nil
	}
	return values[0].Value, nil
}

func (d *DataClient) user(user string) (string, error) {
	if user != "" {
		return user, nil
	}
	if d.creds.Address != "" {
		return d.creds.Address, nil
	}
	return "", fmt.Errorf("%w: no user address", domain.ErrMissingKey)
}

// get signs the request with L2 headers when credentials allow.
func (d *DataClient) get(ctx context.Context, path string, q url.Values, out any) error {
	c := call{method: http.MethodGet, path: path, query: q}
	if d.creds.HasL2() {
		c.header = headerOf(d.creds.L2Headers(http.MethodGet, path, ""))
	}
	return d.rest.do(ctx, c, out)
}

var _ domain.PositionSource = (*DataClient)(nil)
