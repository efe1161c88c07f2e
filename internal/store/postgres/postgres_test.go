package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			name: "explicit dsn wins",
			cfg:  ClientConfig{DSN: "postgres://u:p@db/x", Host: "ignored"},
			want: "postgres://u:p@db/x",
		},
		{
			name: "defaults",
			cfg:  ClientConfig{Host: "localhost", Database: "sportsedge", User: "edge", Password: "pw"},
			want: "postgres://edge:pw@localhost:5432/sportsedge?sslmode=disable",
		},
		{
			name: "escaped credentials",
			cfg:  ClientConfig{Host: "db", Database: "d", User: "u", Password: "p@ss/word"},
			want: "postgres://u:p%40ss%2Fword@db:5432/d?sslmode=disable",
		},
		{
			name: "custom port and ssl",
			cfg:  ClientConfig{Host: "db", Port: 6543, Database: "d", User: "u", Password: "p", SSLMode: "require"},
			want: "postgres://u:p@db:6543/d?sslmode=require",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.cfg); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPageArgs(t *testing.T) {
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	args := pageArgs(domain.ListOpts{Since: &since, Limit: 10, Offset: 20})
	if got, ok := args["since"].(*time.Time); !ok || !got.Equal(since) {
		t.Errorf("since = %v", args["since"])
	}
	if got, ok := args["until"].(*time.Time); !ok || got != nil {
		t.Errorf("until = %v, want typed nil", args["until"])
	}
	if got, ok := args["limit"].(*int); !ok || got == nil || *got != 10 {
		t.Errorf("limit = %v", args["limit"])
	}
	if args["offset"] != 20 {
		t.Errorf("offset = %v", args["offset"])
	}

	unbounded := pageArgs(domain.ListOpts{Offset: -3})
	if got := unbounded["limit"].(*int); got != nil {
		t.Errorf("zero limit should bind NULL, got %d", *got)
	}
	if unbounded["offset"] != 0 {
		t.Errorf("negative offset = %v", unbounded["offset"])
	}
	for _, name := range []string{"@since", "@until", "@limit", "@offset"} {
		if !strings.Contains(pageClause, name) {
			t.Errorf("pageClause does not use %s", name)
		}
	}
}

func TestMigrationFiles(t *testing.T) {
	names, err := migrationFiles()
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	want := []string{"001_trades.sql", "002_daily_performance.sql", "003_audit_trade_id.sql"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("migrations = %v, want %v", names, want)
	}

	data, err := migrationsFS.ReadFile("migrations/001_trades.sql")
	if err != nil {
		t.Fatalf("read 001: %v", err)
	}
	for _, table := range []string{"executed_trades", "trade_opportunities", "audit_log"} {
		if !strings.Contains(string(data), table) {
			t.Errorf("001_trades.sql does not create %s", table)
		}
	}
}

func TestAuditArgs(t *testing.T) {
	args := auditArgs("trade.settled", map[string]any{"trade_id": "trade_1", "actual_profit": 12.5})
	if args["event"] != "trade.settled" {
		t.Errorf("event = %v", args["event"])
	}
	id, ok := args["trade_id"].(*string)
	if !ok || id == nil || *id != "trade_1" {
		t.Errorf("trade_id = %v", args["trade_id"])
	}

	args = auditArgs("trade.cleanup", nil)
	if id := args["trade_id"].(*string); id != nil {
		t.Errorf("trade_id = %q, want NULL", *id)
	}
	if d, ok := args["detail"].(map[string]any); !ok || d == nil {
		t.Errorf("detail = %#v, want empty object", args["detail"])
	}

	args = auditArgs("archive.trades", map[string]any{"trade_id": 42})
	if id := args["trade_id"].(*string); id != nil {
		t.Errorf("non-string trade_id should be NULL, got %q", *id)
	}
}

func TestTradeArgs(t *testing.T) {
	now := time.Date(2025, 1, 15, 2, 0, 0, 0, time.UTC)
	rec := domain.TradeRecord{
		TradeID: "trade_1",
		Slug:    "nba-phx-sac-2025-01-15",
		Action:  domain.ActionBuyPolymarket,
		Status:  domain.TradeStatusExecuted,
		Stake:   125.5,
	}

	args := tradeArgs(rec, now)
	if args["created_at"] != now {
		t.Errorf("zero created_at should default to now, got %v", args["created_at"])
	}
	if args["action"] != "BUY_POLYMARKET" || args["status"] != string(domain.TradeStatusExecuted) {
		t.Errorf("action/status = %v/%v", args["action"], args["status"])
	}
	for name := range args {
		if !strings.Contains(insertTrade, "@"+name) {
			t.Errorf("insertTrade does not bind @%s", name)
		}
	}

	rec.CreatedAt = now.Add(-time.Hour)
	if got := tradeArgs(rec, now)["created_at"]; got != rec.CreatedAt {
		t.Errorf("explicit created_at overwritten: %v", got)
	}
}
