package model

import (
	"fmt"
	"strings"
	"time"
)

// DateBound is one end of a date range. An AllDay bound names a calendar day
// and widens to the first or last instant of that day; otherwise Time is used as-is.
type DateBound struct {
	Time   time.Time
	AllDay bool
}

// Day returns an all-day bound for the calendar day containing t, in t's location.
func Day(t time.Time) DateBound {
	return DateBound{Time: startOfDay(t), AllDay: true}
}

// At returns a bound for the exact instant t.
func At(t time.Time) DateBound {
	return DateBound{Time: t}
}

// Start is the instant to use when b is a lower bound.
func (b DateBound) Start() time.Time {
	if b.AllDay {
		return startOfDay(b.Time)
	}
	return b.Time
}

// End is the instant to use when b is an upper bound.
func (b DateBound) End() time.Time {
	if b.AllDay {
		return startOfDay(b.Time).AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return b.Time
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseDateBound parses "2006-01-02" as an all-day bound and RFC 3339 or
// "2006-01-02 15:04[:05]" as an exact instant. Values without an offset are
// interpreted in loc.
func ParseDateBound(s string, loc *time.Location) (DateBound, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	if day, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return Day(day), nil
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return At(t), nil
		}
	}
	return DateBound{}, fmt.Errorf("unrecognized date %q (want YYYY-MM-DD or RFC 3339)", s)
}

// TransactionFilter holds the optional filters accepted by a transaction query.
// Zero values mean "not set"; amount bounds at or below zero are ignored.
type TransactionFilter struct {
	StartDate  *DateBound
	EndDate    *DateBound
	Type       TransactionType
	Category   string
	SearchText string
	MinAmount  float64
	MaxAmount  float64
}
