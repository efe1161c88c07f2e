package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

type recordingSender struct {
	name string
	err  error
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) Send(ctx context.Context, title, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, title)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNotifierFilter(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{EventTradeExecuted, " error "}, discard())

	tests := []struct {
		event string
		sent  bool
	}{
		{EventTradeExecuted, true},
		{EventError, true},
		{EventOpportunity, false},
		{EventTradeFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			before := len(s.sent)
			if err := n.Notify(context.Background(), tt.event, "t", "m"); err != nil {
				t.Fatalf("Notify: %v", err)
			}
			if got := len(s.sent) > before; got != tt.sent {
				t.Errorf("sent = %v, want %v", got, tt.sent)
			}
		})
	}
}

func TestNotifierEmptyFilterAllowsAll(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, nil, discard())
	_ = n.Notify(context.Background(), "anything", "t", "m")
	if len(s.sent) != 1 {
		t.Errorf("sent %d", len(s.sent))
	}
}

func TestNotifierCollectsErrors(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("boom")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discard())

	err := n.Notify(context.Background(), EventError, "t", "m")
	if err == nil || !strings.Contains(err.Error(), "bad: boom") {
		t.Fatalf("err = %v", err)
	}
	if len(good.sent) != 1 {
		t.Error("a failing sender must not block the others")
	}
}

func TestNilNotifier(t *testing.T) {
	var n *Notifier
	if n.Enabled() {
		t.Error("nil notifier reports enabled")
	}
	if err := n.Notify(context.Background(), EventError, "t", "m"); err != nil {
		t.Errorf("nil Notify: %v", err)
	}
}

func TestDiscordSender(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscordSender(srv.URL)
	d.now = func() time.Time { return time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC) }
	if err := d.Send(context.Background(), "Title", "body"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("embeds = %+v", got.Embeds)
	}
	e := got.Embeds[0]
	if e.Title != "Title" || e.Description != "body" || e.Timestamp != "2025-01-10T18:00:00Z" {
		t.Errorf("embed = %+v", e)
	}
	if got.Username != "sportsedge" {
		t.Errorf("username = %q", got.Username)
	}
}

func TestDiscordSenderErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		header  string
		wantErr string
	}{
		{"not found", http.StatusNotFound, "", "404"},
		{"rate limited", http.StatusTooManyRequests, "3", "retry after 3s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("Retry-After", tt.header)
				}
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			err := NewDiscordSender(srv.URL).Send(context.Background(), "T", "m")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("é", 5000)
	got := truncateRunes(long, discordDescriptionLimit)
	if n := utf8.RuneCountInString(got); n != discordDescriptionLimit {
		t.Errorf("rune count = %d", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("missing ellipsis")
	}
}

func TestTelegramSender(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"edge","username":"edgebot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			_ = r.ParseForm()
			mu.Lock()
			texts = append(texts, r.Form.Get("chat_id")+"|"+r.Form.Get("parse_mode")+"|"+r.Form.Get("text"))
			mu.Unlock()
			w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	s, err := newTelegramSender("TOKEN", "42", srv.URL+"/bot%s/%s", srv.Client())
	if err != nil {
		t.Fatalf("newTelegramSender: %v", err)
	}
	if err := s.Send(context.Background(), "Trade executed", "nba-phx-sac"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(texts) != 1 || texts[0] != "42|Markdown|*Trade executed*\nnba-phx-sac" {
		t.Errorf("sent = %q", texts)
	}
}

func TestTelegramSenderBadChatID(t *testing.T) {
	if _, err := NewTelegramSender("TOKEN", "@channel"); err == nil {
		t.Error("expected chat id error")
	}
}

func TestMessages(t *testing.T) {
	opps := []domain.Opportunity{{GameLabel: "Suns @ Kings", Outcome: "Suns", PolymarketPrice: 0.62, Bookmaker: "pinnacle", OddsPrice: 1.8, Edge: 0.116, Action: domain.ActionBuyPolymarket, Stake: 290}}
	title, msg := OpportunityMessage(opps)
	if title != "1 opportunity detected" || !strings.Contains(msg, "edge 11.6%") {
		t.Errorf("opportunity message = %q / %q", title, msg)
	}

	req := domain.TradeRequest{Slug: "nba-phx-sac-2025-01-15", Outcome: "Suns", Edge: 0.116, Stake: 290}
	event, _, _ := TradeMessage(req, domain.TradeResult{Success: true, ExecutedStake: 290})
	if event != EventTradeExecuted {
		t.Errorf("event = %s", event)
	}
	event, title, msg = TradeMessage(req, domain.TradeResult{Status: domain.TradeStatusBlocked, ErrorMessage: "recent"})
	if event != EventTradeFailed || title != "Trade blocked" || !strings.HasSuffix(msg, ": recent") {
		t.Errorf("failed trade message = %s %q %q", event, title, msg)
	}
}
