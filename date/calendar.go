package date

import (
	"fmt"
	"slices"
	"time"
)

// Calendar decides which days are business days for a market.
type Calendar interface {
	IsBusinessDay(Date) bool
}

// Weekends is the calendar where every weekday is a business day.
var Weekends Calendar = weekends{}

type weekends struct{}

func (weekends) IsBusinessDay(d Date) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// HolidayCalendar closes weekends and a set of market holidays.
// Its zero value behaves like Weekends.
type HolidayCalendar struct {
	holidays map[Date]struct{}
}

// NewHolidayCalendar returns a calendar closed on weekends and on the given days.
func NewHolidayCalendar(holidays ...Date) *HolidayCalendar {
	c := &HolidayCalendar{holidays: make(map[Date]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[h] = struct{}{}
	}
	return c
}

// ParseHolidayCalendar parses holiday dates in any format accepted by Parse.
func ParseHolidayCalendar(days []string) (*HolidayCalendar, error) {
	holidays := make([]Date, 0, len(days))
	for _, s := range days {
		d, err := Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday: %w", err)
		}
		holidays = append(holidays, d)
	}
	return NewHolidayCalendar(holidays...), nil
}

// IsHoliday reports whether d was declared as a holiday.
func (c *HolidayCalendar) IsHoliday(d Date) bool {
	if c == nil {
		return false
	}
	_, ok := c.holidays[d]
	return ok
}

func (c *HolidayCalendar) IsBusinessDay(d Date) bool {
	return Weekends.IsBusinessDay(d) && !c.IsHoliday(d)
}

// Holidays returns the declared holidays in chronological order.
func (c *HolidayCalendar) Holidays() []Date {
	if c == nil {
		return nil
	}
	days := make([]Date, 0, len(c.holidays))
	for d := range c.holidays {
		days = append(days, d)
	}
	slices.SortFunc(days, func(a, b Date) int { return a.time().Compare(b.time()) })
	return days
}

// maxScan bounds the search for a business day so a calendar closed on
// every day cannot loop forever.
const maxScan = 366

// NextBusinessDay returns d if it is a business day, otherwise the first
// business day after d.
func NextBusinessDay(cal Calendar, d Date) (Date, error) {
	for i := 0; i < maxScan; i++ {
		if cal.IsBusinessDay(d) {
			return d, nil
		}
		d = d.Add(1)
	}
	return Date{}, fmt.Errorf("no business day within %d days of %s", maxScan, d.Add(-maxScan))
}

// AddBusinessDays returns the date n business days after d. A start date that
// is not a business day is first rolled forward to the next business day, so
// that T+0 on a Saturday is the following Monday.
func AddBusinessDays(cal Calendar, d Date, n int) (Date, error) {
	if n < 0 {
		return Date{}, fmt.Errorf("business day lag must not be negative, got %d", n)
	}
	d, err := NextBusinessDay(cal, d)
	if err != nil {
		return Date{}, err
	}
	for ; n > 0; n-- {
		if d, err = NextBusinessDay(cal, d.Add(1)); err != nil {
			return Date{}, err
		}
	}
	return d, nil
}
