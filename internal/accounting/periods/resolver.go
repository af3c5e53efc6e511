package periods

import (
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// DefaultAllTimeFloor is the lower bound used for all_time and unknown tokens.
var DefaultAllTimeFloor = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Resolver maps symbolic tokens onto concrete periods.
type Resolver struct {
	// Floor is the start of all_time. Zero means unbounded.
	Floor time.Time
}

// NewResolver builds a Resolver with the given all_time floor.
func NewResolver(floor time.Time) Resolver {
	return Resolver{Floor: floor}
}

// Resolve maps token to a period using the default floor.
func Resolve(token string, now time.Time) (Period, []shared.Warning) {
	return NewResolver(DefaultAllTimeFloor).Resolve(token, now)
}

// Resolve maps token to a period relative to now. Unknown tokens resolve to
// all_time and produce an unknown_period_token warning.
func (r Resolver) Resolve(token string, now time.Time) (Period, []shared.Warning) {
	var diags shared.Diagnostics
	now = Civil(now)
	loc := now.Location()
	today := startOfDay(now)
	normalised := Token(strings.ToLower(strings.TrimSpace(token)))

	switch normalised {
	case ThisMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return Period{Token: normalised, Start: start, End: endOfDay(start.AddDate(0, 1, -1))}, nil
	case LastMonth:
		start := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, loc)
		return Period{Token: normalised, Start: start, End: endOfDay(start.AddDate(0, 1, -1))}, nil
	case ThisQuarter:
		start := quarterStart(now)
		return Period{Token: normalised, Start: start, End: endOfDay(start.AddDate(0, 3, -1))}, nil
	case LastQuarter:
		start := quarterStart(now).AddDate(0, -3, 0)
		return Period{Token: normalised, Start: start, End: endOfDay(start.AddDate(0, 3, -1))}, nil
	case ThisYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return Period{Token: normalised, Start: start, End: endOfDay(time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, loc))}, nil
	case LastYear:
		start := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, loc)
		return Period{Token: normalised, Start: start, End: endOfDay(time.Date(now.Year()-1, time.December, 31, 0, 0, 0, 0, loc))}, nil
	case YearToDate:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return Period{Token: normalised, Start: start, End: endOfDay(today)}, nil
	case Last30Days:
		return Period{Token: normalised, Start: today.AddDate(0, 0, -29), End: endOfDay(today)}, nil
	case Last90Days:
		return Period{Token: normalised, Start: today.AddDate(0, 0, -89), End: endOfDay(today)}, nil
	case AllTime:
		return r.allTime(now), nil
	}
	diags.Add(shared.WarnUnknownPeriodToken, token, "period token %q not recognised, using %s", token, AllTime)
	return r.allTime(now), diags.Warnings()
}

func (r Resolver) allTime(now time.Time) Period {
	p := Period{Token: AllTime, End: now}
	if !r.Floor.IsZero() {
		p.Start = time.Date(r.Floor.Year(), r.Floor.Month(), r.Floor.Day(), 0, 0, 0, 0, now.Location())
	}
	return p
}

// Custom builds a period from explicit dates; to is extended to the end of its day.
// A zero from leaves the period unbounded below.
func Custom(from, to time.Time) Period {
	p := Period{Token: CustomRange, End: endOfDay(Civil(to))}
	if !from.IsZero() {
		p.Start = startOfDay(Civil(from))
	}
	return p
}

// AsOf is the unbounded period ending at the close of asOf's day.
func AsOf(asOf time.Time) Period {
	return Period{Token: CustomRange, End: EndOfDay(asOf)}
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return endOfDay(Civil(t))
}

// Civil keeps t's wall clock but moves it to UTC, the axis ledger dates
// live on.
func Civil(t time.Time) time.Time {
	if t.Location() == time.UTC {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func quarterStart(t time.Time) time.Time {
	month := ((int(t.Month())-1)/3)*3 + 1
	return time.Date(t.Year(), time.Month(month), 1, 0, 0, 0, 0, t.Location())
}
