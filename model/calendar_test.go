package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d, hour, min int) time.Time {
	return time.Date(y, m, d, hour, min, 0, 0, time.UTC)
}

func TestBusinessDaysBetween_WeekendOnly(t *testing.T) {
	cal := NewCalendar(nil)
	// Saturday 00:00 to Monday 00:00 covers Saturday and Sunday only.
	sat := date(2024, time.March, 2, 0, 0)
	mon := date(2024, time.March, 4, 0, 0)
	assert.Equal(t, 0, cal.BusinessDaysBetween(sat, mon))
	assert.Equal(t, 2, CalendarDaysBetween(sat, mon))
}

func TestBusinessDaysBetween_SameDay(t *testing.T) {
	cal := NewCalendar(nil)
	from := date(2024, time.March, 4, 9, 0)
	to := date(2024, time.March, 4, 17, 0)
	assert.Equal(t, 0, cal.BusinessDaysBetween(from, to))
}

func TestBusinessDaysBetween_AcrossWeek(t *testing.T) {
	cal := NewCalendar(nil)
	// Monday evening to Wednesday morning spans Monday and Tuesday.
	from := date(2024, time.March, 4, 17, 0)
	to := date(2024, time.March, 6, 9, 0)
	assert.Equal(t, 2, cal.BusinessDaysBetween(from, to))
}

func TestBusinessDaysBetween_FullWeek(t *testing.T) {
	cal := NewCalendar(nil)
	from := date(2024, time.March, 4, 0, 0) // Monday
	to := date(2024, time.March, 11, 0, 0)  // next Monday
	assert.Equal(t, 5, cal.BusinessDaysBetween(from, to))
}

func TestBusinessDaysBetween_Holidays(t *testing.T) {
	cal := NewCalendar([]string{"2024-03-05", "not-a-date"})
	from := date(2024, time.March, 4, 0, 0)
	to := date(2024, time.March, 7, 0, 0)
	// Mon, Tue (holiday), Wed -> 2 business days.
	assert.Equal(t, 2, cal.BusinessDaysBetween(from, to))
	assert.False(t, cal.IsBusinessDay(date(2024, time.March, 5, 12, 0)))
}

func TestBusinessDaysBetween_ReversedRange(t *testing.T) {
	cal := NewCalendar(nil)
	from := date(2024, time.March, 6, 0, 0)
	to := date(2024, time.March, 4, 0, 0)
	assert.Equal(t, 0, cal.BusinessDaysBetween(from, to))
}

func TestCalendarDaysBetween_PartialDayRoundsUp(t *testing.T) {
	from := date(2024, time.March, 4, 9, 0)
	assert.Equal(t, 1, CalendarDaysBetween(from, from.Add(8*time.Hour)))
	assert.Equal(t, 2, CalendarDaysBetween(from, from.Add(25*time.Hour)))
}

func TestCalendarDaysBetween_SameInstantIsZero(t *testing.T) {
	at := date(2024, time.March, 4, 9, 0)
	assert.Equal(t, 0, CalendarDaysBetween(at, at))
}
