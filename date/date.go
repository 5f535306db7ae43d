// Package date provides a day-granularity Date, business-day calendars and
// dated value histories used for NAV and settlement computations.
package date

import (
	"encoding/json"
	"fmt"
	"time"
)

const readDateFormat = "2006-1-2" // Permissive read date format (allows single-digit month/day).

// DateFormat is the ISO-8601 format used to write dates.
const DateFormat = "2006-01-02"

// Day is the duration of a calendar day.
const Day = 24 * time.Hour

// Date represents a date with day-level granularity.
type Date struct {
	y int
	m time.Month
	d int
}

// time returns a canonical time.Time for that day (midnight UTC).
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// New returns a normalized Date for the given year, month, and day.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// FromTime returns the Date of t in its own location.
func FromTime(t time.Time) Date { return New(t.Date()) }

// Today returns the current date.
func Today() Date { return FromTime(time.Now()) }

func (d Date) Year() int             { return d.y }
func (d Date) Month() time.Month     { return d.m }
func (d Date) Day() int              { return d.d }
func (d Date) Weekday() time.Weekday { return d.time().Weekday() }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Before reports whether the day d is before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether the day d is after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// Add returns the date i calendar days after d (before d if i is negative).
func (d Date) Add(i int) Date { return New(d.y, d.m, d.d+i) }

// DaysSince returns the number of calendar days from x to d.
func (d Date) DaysSince(x Date) int {
	return int(d.time().Sub(x.time()) / Day)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string { return d.time().Format(DateFormat) }

// Parse parses a Date from a string. It is lenient and accepts formats like "2025-7-1".
func Parse(str string) (Date, error) {
	on, err := time.Parse(readDateFormat, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, DateFormat, err)
	}
	return FromTime(on), nil
}

// MustParse is like Parse but panics on error.
func MustParse(str string) Date {
	d, err := Parse(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// UnmarshalJSON reads a date from a JSON string. The empty string is the zero Date.
func (d *Date) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	if str == "" {
		*d = Date{}
		return nil
	}
	// backends sometimes send full timestamps, only the day part matters.
	if len(str) > len(DateFormat) {
		if t, err := time.Parse(time.RFC3339, str); err == nil {
			*d = FromTime(t)
			return nil
		}
	}
	v, err := Parse(str)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(d.String())
}

// MarshalText and UnmarshalText let dates be used in TOML documents and as map keys.
func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

var (
	_ json.Marshaler   = (*Date)(nil)
	_ json.Unmarshaler = (*Date)(nil)
)
