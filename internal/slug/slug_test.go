package slug

import (
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		sport    string
		away     string
		home     string
		commence string
		want     string
	}{
		{
			name:     "nba",
			sport:    "basketball_nba",
			away:     "Phoenix Suns",
			home:     "Sacramento Kings",
			commence: "2025-01-15T03:00:00Z",
			want:     "nba-phx-sac-2025-01-15",
		},
		{
			name:     "summer league uses nba prefix",
			sport:    "basketball_nba_summer_league",
			away:     "Boston Celtics",
			home:     "Miami Heat",
			commence: "2025-07-12T20:30:00Z",
			want:     "nba-bos-mia-2025-07-12",
		},
		{
			name:     "nhl",
			sport:    "icehockey_nhl",
			away:     "Toronto Maple Leafs",
			home:     "Boston Bruins",
			commence: "2025-02-01T00:00:00Z",
			want:     "nhl-tor-bos-2025-02-01",
		},
		{
			name:     "mlb",
			sport:    "baseball_mlb",
			away:     "New York Yankees",
			home:     "Boston Red Sox",
			commence: "2025-04-10T23:05:00Z",
			want:     "mlb-nyy-bos-2025-04-10",
		},
		{
			name:     "offset time converted to utc date",
			sport:    "basketball_nba",
			away:     "Phoenix Suns",
			home:     "Sacramento Kings",
			commence: "2025-01-14T22:00:00-05:00",
			want:     "nba-phx-sac-2025-01-15",
		},
		{
			name:     "unsupported sport",
			sport:    "americanfootball_nfl",
			away:     "Phoenix Suns",
			home:     "Sacramento Kings",
			commence: "2025-01-15T03:00:00Z",
			want:     "",
		},
		{
			name:     "unmapped away team",
			sport:    "basketball_nba",
			away:     "Seattle SuperSonics",
			home:     "Sacramento Kings",
			commence: "2025-01-15T03:00:00Z",
			want:     "",
		},
		{
			name:     "lookup is exact",
			sport:    "basketball_nba",
			away:     "phoenix suns",
			home:     "Sacramento Kings",
			commence: "2025-01-15T03:00:00Z",
			want:     "",
		},
		{
			name:     "team from another league",
			sport:    "icehockey_nhl",
			away:     "Phoenix Suns",
			home:     "Boston Bruins",
			commence: "2025-01-15T03:00:00Z",
			want:     "",
		},
		{
			name:     "bad timestamp",
			sport:    "basketball_nba",
			away:     "Phoenix Suns",
			home:     "Sacramento Kings",
			commence: "tomorrow",
			want:     "",
		},
		{
			name:     "zero commence time",
			sport:    "basketball_nba",
			away:     "Phoenix Suns",
			home:     "Sacramento Kings",
			commence: "0001-01-01T00:00:00Z",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateISO(tt.sport, tt.away, tt.home, tt.commence)
			if got != tt.want {
				t.Errorf("GenerateISO() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateZeroTime(t *testing.T) {
	if got := Generate("basketball_nba", "Phoenix Suns", "Sacramento Kings", time.Time{}); got != "" {
		t.Errorf("Generate() with zero time = %q, want empty", got)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	ts := time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC)
	first := Generate("basketball_nba", "Phoenix Suns", "Sacramento Kings", ts)
	for i := 0; i < 10; i++ {
		if got := Generate("basketball_nba", "Phoenix Suns", "Sacramento Kings", ts); got != first {
			t.Fatalf("run %d: got %q, want %q", i, got, first)
		}
	}
}

func TestParse(t *testing.T) {
	p, ok := Parse("nba-phx-sac-2025-01-15")
	if !ok {
		t.Fatal("Parse failed")
	}
	if p.Prefix != "nba" || p.Away != "phx" || p.Home != "sac" {
		t.Errorf("unexpected parts: %+v", p)
	}
	if got := p.Date.Format(DateLayout); got != "2025-01-15" {
		t.Errorf("date = %s", got)
	}
	if got := p.String(); got != "nba-phx-sac-2025-01-15" {
		t.Errorf("round trip = %s", got)
	}

	for _, bad := range []string{"", "nba-phx-2025-01-15", "nba-phx-sac-2025-13-40", "nba--sac-2025-01-15", "will-the-suns-win"} {
		if _, ok := Parse(bad); ok {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}

func TestPartsShiftAndSwap(t *testing.T) {
	p, _ := Parse("nba-phx-sac-2025-01-01")

	if got := p.Shift(-1).String(); got != "nba-phx-sac-2024-12-31" {
		t.Errorf("Shift(-1) = %s", got)
	}
	if got := p.Shift(1).String(); got != "nba-phx-sac-2025-01-02" {
		t.Errorf("Shift(1) = %s", got)
	}
	if got := p.Swap().String(); got != "nba-sac-phx-2025-01-01" {
		t.Errorf("Swap() = %s", got)
	}
	if got := p.String(); got != "nba-phx-sac-2025-01-01" {
		t.Errorf("original mutated: %s", got)
	}
}

func TestNamesOverlap(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Boston Celtics", "Celtics", true},
		{"Celtics", "Boston Celtics", true},
		{"BOSTON  celtics", "boston celtics", true},
		{"Montréal Canadiens", "Montreal Canadiens", true},
		{"Lakers", "Clippers", false},
		{"", "Celtics", false},
	}
	for _, tt := range tests {
		if got := NamesOverlap(tt.a, tt.b); got != tt.want {
			t.Errorf("NamesOverlap(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSupportedSports(t *testing.T) {
	for _, s := range SupportedSports() {
		if _, ok := Prefix(s); !ok {
			t.Errorf("sport %s has no prefix", s)
		}
	}
	if _, ok := Prefix("soccer_epl"); ok {
		t.Error("soccer_epl should be unsupported")
	}
}
