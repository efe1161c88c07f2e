package oddsapi

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

const nbaResponse = `[
  {
    "id": "e912304de2b2ce35b473ce2ecd3d1502",
    "sport_key": "basketball_nba",
    "sport_title": "NBA",
    "commence_time": "2025-01-15T03:00:00Z",
    "home_team": "Sacramento Kings",
    "away_team": "Phoenix Suns",
    "bookmakers": [
      {
        "key": "pinnacle",
        "title": "Pinnacle",
        "last_update": "2025-01-14T20:00:00Z",
        "markets": [
          {
            "key": "h2h",
            "last_update": "2025-01-14T20:00:00Z",
            "outcomes": [
              {"name": "Phoenix Suns", "price": 1.80},
              {"name": "Sacramento Kings", "price": 2.10}
            ]
          }
        ]
      }
    ]
  }
]`

func newTestClient(srv *httptest.Server, opts ...ClientOption) *Client {
	opts = append([]ClientOption{
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRateLimit(60000),
	}, opts...)
	c := NewClient("test-key", opts...)
	c.now = func() time.Time { return time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestFetchSport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/sports/basketball_nba/odds" {
			t.Errorf("Expected path /v4/sports/basketball_nba/odds, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		checks := map[string]string{
			"apiKey":           "test-key",
			"regions":          "us,uk",
			"markets":          "h2h",
			"oddsFormat":       "decimal",
			"commenceTimeFrom": "2025-01-14T12:00:00Z",
			"commenceTimeTo":   "2025-01-21T12:00:00Z",
		}
		for k, want := range checks {
			if got := q.Get(k); got != want {
				t.Errorf("query %s = %q, want %q", k, got, want)
			}
		}
		w.Header().Set("x-requests-remaining", "480")
		w.Header().Set("x-requests-used", "20")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(nbaResponse))
	}))
	defer srv.Close()

	var hooked Quota
	c := newTestClient(srv, WithQuotaHook(func(q Quota) { hooked = q }))
	games, err := c.FetchSport(context.Background(), "basketball_nba")
	if err != nil {
		t.Fatalf("FetchSport failed: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("Expected 1 game, got %d", len(games))
	}

	g := games[0]
	if g.AwayTeam != "Phoenix Suns" || g.HomeTeam != "Sacramento Kings" {
		t.Errorf("teams = %s @ %s", g.AwayTeam, g.HomeTeam)
	}
	if !g.CommenceTime.Equal(time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC)) {
		t.Errorf("commence time = %v", g.CommenceTime)
	}
	m, ok := g.Bookmakers[0].Market(domain.MarketKeyH2H)
	if !ok || len(m.Outcomes) != 2 || m.Outcomes[0].Price != 1.80 {
		t.Errorf("h2h market = %+v", m)
	}

	q := c.Quota()
	if q.Remaining != 480 || q.Used != 20 {
		t.Errorf("quota = %+v", q)
	}
	if hooked.Remaining != 480 {
		t.Errorf("quota hook saw %+v", hooked)
	}
}

func TestFetchSportAmericanOdds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("oddsFormat"); got != "american" {
			t.Errorf("oddsFormat = %q", got)
		}
		body := strings.NewReplacer("1.80", "-125", "2.10", "110").Replace(nbaResponse)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := newTestClient(srv, WithOddsFormat(FormatAmerican))
	games, err := c.FetchSport(context.Background(), "basketball_nba")
	if err != nil {
		t.Fatalf("FetchSport failed: %v", err)
	}
	outcomes := games[0].Bookmakers[0].Markets[0].Outcomes
	if math.Abs(outcomes[0].Price-1.8) > 1e-9 || math.Abs(outcomes[1].Price-2.1) > 1e-9 {
		t.Errorf("converted prices = %v, %v", outcomes[0].Price, outcomes[1].Price)
	}
}

func TestFetchGamesSkipsFailingSport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v4/sports/basketball_nba/odds":
			w.Write([]byte(nbaResponse))
		case "/v4/sports/icehockey_nhl/odds":
			http.Error(w, "upstream down", http.StatusBadGateway)
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	games, err := c.FetchGames(context.Background(), []string{"icehockey_nhl", "basketball_nba", "baseball_mlb"})
	if err != nil {
		t.Fatalf("FetchGames failed: %v", err)
	}
	if len(games) != 1 || games[0].SportKey != "basketball_nba" {
		t.Errorf("games = %+v", games)
	}
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrUnauthorized},
		{"quota exhausted", http.StatusTooManyRequests, domain.ErrRateLimited},
		{"unknown sport", http.StatusNotFound, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"message":"nope"}`, tt.status)
			}))
			defer srv.Close()

			_, err := newTestClient(srv).FetchSport(context.Background(), "basketball_nba")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMissingAPIKey(t *testing.T) {
	c := NewClient("")
	if _, err := c.FetchGames(context.Background(), []string{"basketball_nba"}); !errors.Is(err, domain.ErrMissingKey) {
		t.Errorf("err = %v, want ErrMissingKey", err)
	}
}

func TestMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).FetchSport(context.Background(), "basketball_nba"); err == nil {
		t.Error("expected decode error")
	}
}

type stubLimiter struct {
	calls int
	err   error
}

func (s *stubLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return true, nil
}

func (s *stubLimiter) Wait(ctx context.Context, key string, limit int, window time.Duration) error {
	s.calls++
	return s.err
}

func TestSharedLimiterFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	rl := &stubLimiter{err: errors.New("redis: connection refused")}
	c := newTestClient(srv, WithSharedLimiter(rl))
	if _, err := c.FetchSport(context.Background(), "baseball_mlb"); err != nil {
		t.Fatalf("FetchSport failed: %v", err)
	}
	if rl.calls != 1 {
		t.Errorf("shared limiter called %d times", rl.calls)
	}
}
