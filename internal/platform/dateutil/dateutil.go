// Package dateutil normalizes instants, calendar dates and wall-clock times
// against the center's configured time zone. Every date-bucketed query in the
// service derives its "today" and its date ranges from a Zone.
package dateutil

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the canonical calendar date format (YYYY-MM-DD).
	DateLayout = "2006-01-02"
	// ClockLayout is the canonical wall-clock format (HH:MM).
	ClockLayout = "15:04"

	DefaultTimeZone = "America/Guatemala"
)

// Zone converts instants into calendar dates in a fixed location.
type Zone struct {
	loc *time.Location
	now func() time.Time
}

// NewZone loads the named IANA location. An empty name selects DefaultTimeZone.
func NewZone(name string) (*Zone, error) {
	if name == "" {
		name = DefaultTimeZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return &Zone{loc: loc, now: time.Now}, nil
}

// MustZone is like NewZone but panics on error. Intended for tests and
// package-level defaults.
func MustZone(name string) *Zone {
	z, err := NewZone(name)
	if err != nil {
		panic(err)
	}
	return z
}

// WithClock returns a copy of the zone that reads the current instant from now.
func (z *Zone) WithClock(now func() time.Time) *Zone {
	return &Zone{loc: z.loc, now: now}
}

func (z *Zone) Location() *time.Location {
	return z.loc
}

// Now returns the current instant expressed in the zone.
func (z *Zone) Now() time.Time {
	return z.now().In(z.loc)
}

// DateOf returns the calendar date of t in the zone.
func (z *Zone) DateOf(t time.Time) string {
	return t.In(z.loc).Format(DateLayout)
}

func (z *Zone) Today() string {
	return z.DateOf(z.now())
}

func (z *Zone) Yesterday() string {
	d, _ := z.AddDays(z.Today(), -1)
	return d
}

func (z *Zone) Tomorrow() string {
	d, _ := z.AddDays(z.Today(), 1)
	return d
}

// ParseDate parses a YYYY-MM-DD string into midnight of that date in the zone.
func (z *Zone) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), z.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ValidDate reports whether s is a well-formed calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// AddDays moves a calendar date by n days. The arithmetic is done on the
// calendar fields so that DST transitions never shift the result.
func (z *Zone) AddDays(date string, n int) (string, error) {
	t, err := z.ParseDate(date)
	if err != nil {
		return "", err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, z.loc).Format(DateLayout), nil
}

// DatesBetween returns every calendar date from `from` through `to`, inclusive.
func (z *Zone) DatesBetween(from, to string) ([]string, error) {
	start, err := z.ParseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := z.ParseDate(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("range end %s is before start %s", to, from)
	}
	var dates []string
	y, m, d := start.Date()
	for i := 0; ; i++ {
		cur := time.Date(y, m, d+i, 0, 0, 0, 0, z.loc)
		if cur.After(end) {
			break
		}
		dates = append(dates, cur.Format(DateLayout))
	}
	return dates, nil
}

// At combines a calendar date and an HH:MM wall-clock time into an instant
// in the zone.
func (z *Zone) At(date, clock string) (time.Time, error) {
	day, err := z.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	mins, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, mins/60, mins%60, 0, 0, z.loc), nil
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into minutes since midnight.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	layout := ClockLayout
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// NormalizeClock rewrites "HH:MM[:SS]" as "HH:MM".
func NormalizeClock(s string) (string, error) {
	mins, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return FormatClock(mins), nil
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
