package model

import (
	"math"
	"time"
)

const calendarDayFormat = "2006-01-02"

// Calendar answers business-day questions. Saturdays and Sundays are never
// business days; an optional holiday set excludes further dates. The zero
// value is a weekend-only calendar.
type Calendar struct {
	holidays map[string]struct{}
}

// NewCalendar builds a calendar from a list of holiday dates given as
// YYYY-MM-DD strings. Unparseable entries are ignored.
func NewCalendar(holidays []string) Calendar {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		if _, err := time.Parse(calendarDayFormat, h); err != nil {
			continue
		}
		set[h] = struct{}{}
	}
	return Calendar{holidays: set}
}

func (c Calendar) IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if c.holidays != nil {
		if _, holiday := c.holidays[t.Format(calendarDayFormat)]; holiday {
			return false
		}
	}
	return true
}

// BusinessDaysBetween counts the business days whose date falls in
// [from, to), by calendar date. A span from Saturday to the following
// Monday covers Saturday and Sunday only and therefore counts 0. Returns
// 0 when to is not after from.
func (c Calendar) BusinessDaysBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	day := truncateToDay(from)
	end := truncateToDay(to)
	count := 0
	for day.Before(end) {
		if c.IsBusinessDay(day) {
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return count
}

// CalendarDaysBetween is the ceiling of the elapsed time divided by 24h,
// so any started day counts as a full day. A zero-length span reports 0.
func CalendarDaysBetween(from, to time.Time) int {
	diff := to.Sub(from)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(diff.Hours() / 24))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
