// Package oddsapi is the client for The Odds API v4 sports-odds feed.
package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/sportsedge/internal/domain"
	"github.com/alanyoungcy/sportsedge/internal/edge"
)

const (
	// DefaultBaseURL is The Odds API root.
	DefaultBaseURL = "https://api.the-odds-api.com"

	// DefaultRegions are the bookmaker regions requested.
	DefaultRegions = "us,uk"

	// FormatDecimal and FormatAmerican are the supported oddsFormat values.
	FormatDecimal  = "decimal"
	FormatAmerican = "american"

	commenceLayout = "2006-01-02T15:04:05Z"

	defaultWindow         = 7 * 24 * time.Hour
	defaultRequestsPerMin = 30
	sharedLimiterKey      = "ratelimit:oddsapi"
	sharedLimiterWindow   = time.Minute
	headerRequestsLeft    = "x-requests-remaining"
	headerRequestsUsed    = "x-requests-used"
)

// Quota is the request allowance last reported by the API.
type Quota struct {
	Remaining int       `json:"remaining"`
	Used      int       `json:"used"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Client fetches upcoming games with bookmaker prices.
type Client struct {
	baseURL    string
	apiKey     string
	regions    string
	oddsFormat string
	window     time.Duration
	perMinute  int

	httpClient *http.Client
	limiter    *rate.Limiter
	shared     domain.RateLimiter
	logger     *slog.Logger
	now        func() time.Time

	onQuota func(Quota)

	mu    sync.RWMutex
	quota Quota
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRegions overrides the bookmaker regions.
func WithRegions(regions string) ClientOption {
	return func(c *Client) {
		if regions != "" {
			c.regions = regions
		}
	}
}

// WithOddsFormat requests decimal or american prices. American prices are
// converted to decimal before they leave the client.
func WithOddsFormat(format string) ClientOption {
	return func(c *Client) {
		if format != "" {
			c.oddsFormat = format
		}
	}
}

// WithWindow sets how far ahead of now games are requested.
func WithWindow(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithRateLimit paces requests to perMinute.
func WithRateLimit(perMinute int) ClientOption {
	return func(c *Client) {
		if perMinute > 0 {
			c.perMinute = perMinute
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// WithSharedLimiter adds a cross-process limiter on top of the local one.
func WithSharedLimiter(rl domain.RateLimiter) ClientOption {
	return func(c *Client) {
		c.shared = rl
	}
}

// WithQuotaHook registers a callback run whenever the quota headers change.
func WithQuotaHook(fn func(Quota)) ClientOption {
	return func(c *Client) {
		c.onQuota = fn
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates an odds API client for apiKey.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		regions:    DefaultRegions,
		oddsFormat: FormatDecimal,
		window:     defaultWindow,
		perMinute:  defaultRequestsPerMin,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/defaultRequestsPerMin), 1),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "oddsapi"))
	return c
}

// Quota returns the last reported request allowance.
func (c *Client) Quota() Quota {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.quota
}

// FetchGames returns games for every sport key in order. A failing sport is
// logged and skipped; an error is returned only when the client cannot make
// requests at all or the context is done.
func (c *Client) FetchGames(ctx context.Context, sportKeys []string) ([]domain.Game, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("oddsapi: fetch games: %w", domain.ErrMissingKey)
	}

	var games []domain.Game
	for _, sport := range sportKeys {
		sg, err := c.FetchSport(ctx, sport)
		if err != nil {
			if ctx.Err() != nil {
				return games, fmt.Errorf("oddsapi: fetch games: %w", ctx.Err())
			}
			c.logger.WarnContext(ctx, "sport fetch failed",
				slog.String("sport", sport),
				slog.String("error", err.Error()),
			)
			continue
		}
		c.logger.DebugContext(ctx, "sport fetched",
			slog.String("sport", sport),
			slog.Int("games", len(sg)),
		)
		games = append(games, sg...)
	}
	return games, nil
}

// FetchSport returns the games for a single sport key.
func (c *Client) FetchSport(ctx context.Context, sport string) ([]domain.Game, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("oddsapi: fetch %s: %w", sport, domain.ErrMissingKey)
	}

	from := c.now().UTC()
	to := from.Add(c.window)

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("regions", c.regions)
	params.Set("markets", domain.MarketKeyH2H)
	params.Set("oddsFormat", c.oddsFormat)
	params.Set("commenceTimeFrom", from.Format(commenceLayout))
	params.Set("commenceTimeTo", to.Format(commenceLayout))

	path := fmt.Sprintf("/v4/sports/%s/odds", url.PathEscape(sport))

	var apiGames []APIGame
	if err := c.get(ctx, path, params, &apiGames); err != nil {
		return nil, fmt.Errorf("oddsapi: fetch %s: %w", sport, err)
	}

	var convert func(float64) float64
	if c.oddsFormat == FormatAmerican {
		convert = edge.AmericanToDecimal
	}

	games := make([]domain.Game, 0, len(apiGames))
	for i := range apiGames {
		games = append(games, apiGames[i].ToDomainGame(convert))
	}
	return games, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.shared != nil {
		if err := c.shared.Wait(ctx, sharedLimiterKey, c.perMinute, sharedLimiterWindow); err != nil {
			if ctx.Err() != nil {
				return err
			}
			// Fall back to local pacing only.
			c.logger.WarnContext(ctx, "shared rate limiter failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if err := c.wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	c.recordQuota(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) recordQuota(h http.Header) {
	remaining, errR := strconv.Atoi(h.Get(headerRequestsLeft))
	used, errU := strconv.Atoi(h.Get(headerRequestsUsed))
	if errR != nil && errU != nil {
		return
	}

	c.mu.Lock()
	if errR == nil {
		c.quota.Remaining = remaining
	}
	if errU == nil {
		c.quota.Used = used
	}
	c.quota.UpdatedAt = c.now().UTC()
	q := c.quota
	c.mu.Unlock()

	if c.onQuota != nil {
		c.onQuota(q)
	}
}

// checkHTTPStatus maps non-2xx status codes to domain sentinel errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

var _ domain.OddsFeed = (*Client)(nil)
