// Package slug builds the deterministic market identifiers used to join
// odds-feed games to Polymarket sports markets, e.g. "nba-phx-sac-2025-01-15".
package slug

import (
	"strings"
	"time"
)

// DateLayout is the date portion of a slug.
const DateLayout = "2006-01-02"

// Generate returns the slug for a game, or "" when the sport is unsupported,
// either team is missing from the league's table, or commence is unset. The
// date is the UTC calendar date of commence.
func Generate(sportKey, away, home string, commence time.Time) string {
	if commence.IsZero() {
		return ""
	}
	prefix, ok := Prefix(sportKey)
	if !ok {
		return ""
	}
	awayCode, ok := TeamCode(prefix, away)
	if !ok {
		return ""
	}
	homeCode, ok := TeamCode(prefix, home)
	if !ok {
		return ""
	}
	return Parts{
		Prefix: prefix,
		Away:   awayCode,
		Home:   homeCode,
		Date:   commence.UTC(),
	}.String()
}

// GenerateISO is Generate for a raw ISO-8601 commence time. An unparseable
// time yields "".
func GenerateISO(sportKey, away, home, commence string) string {
	t, err := time.Parse(time.RFC3339, commence)
	if err != nil {
		return ""
	}
	return Generate(sportKey, away, home, t)
}

// Parts is a slug split into its components.
type Parts struct {
	Prefix string
	Away   string
	Home   string
	Date   time.Time
}

// String renders the parts in slug form.
func (p Parts) String() string {
	return p.Prefix + "-" + p.Away + "-" + p.Home + "-" + p.Date.Format(DateLayout)
}

// Shift returns a copy with the date moved by days.
func (p Parts) Shift(days int) Parts {
	p.Date = p.Date.AddDate(0, 0, days)
	return p
}

// Swap returns a copy with away and home exchanged.
func (p Parts) Swap() Parts {
	p.Away, p.Home = p.Home, p.Away
	return p
}

// Parse splits a slug produced by Generate. It reports false for anything
// that is not prefix-away-home-YYYY-MM-DD.
func Parse(s string) (Parts, bool) {
	fields := strings.Split(s, "-")
	if len(fields) != 6 {
		return Parts{}, false
	}
	for _, f := range fields[:3] {
		if f == "" {
			return Parts{}, false
		}
	}
	date, err := time.Parse(DateLayout, strings.Join(fields[3:], "-"))
	if err != nil {
		return Parts{}, false
	}
	return Parts{
		Prefix: fields[0],
		Away:   fields[1],
		Home:   fields[2],
		Date:   date,
	}, true
}
