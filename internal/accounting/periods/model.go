package periods

import (
	"fmt"
	"time"
)

// Token is a symbolic reporting period.
type Token string

const (
	ThisMonth   Token = "this_month"
	LastMonth   Token = "last_month"
	ThisQuarter Token = "this_quarter"
	LastQuarter Token = "last_quarter"
	ThisYear    Token = "this_year"
	LastYear    Token = "last_year"
	YearToDate  Token = "year_to_date"
	Last30Days  Token = "last_30_days"
	Last90Days  Token = "last_90_days"
	AllTime     Token = "all_time"
	// CustomRange labels periods built from explicit dates.
	CustomRange Token = "custom"
)

// Tokens lists every symbolic token the resolver recognises.
func Tokens() []Token {
	return []Token{ThisMonth, LastMonth, ThisQuarter, LastQuarter, ThisYear, LastYear, YearToDate, Last30Days, Last90Days, AllTime}
}

// Period is a closed date interval. Both bounds are inclusive.
type Period struct {
	Token Token     `json:"token"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls within the period.
func (p Period) Contains(t time.Time) bool {
	if !p.Start.IsZero() && t.Before(p.Start) {
		return false
	}
	return !t.After(p.End)
}

// Label renders the period for report headers.
func (p Period) Label() string {
	if p.Start.IsZero() {
		return fmt.Sprintf("up to %s", p.End.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s to %s", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

// Key renders a stable cache key fragment.
func (p Period) Key() string {
	start := "-"
	if !p.Start.IsZero() {
		start = p.Start.Format("20060102")
	}
	return fmt.Sprintf("%s:%s:%s", p.Token, start, p.End.Format("20060102"))
}
