// Package holiday answers holiday and business-day questions for US federal
// holidays plus common observances. Recurring events can opt out of holiday
// occurrences, and the API exposes the holidays inside a date window.
package holiday

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// Observances the service recognizes beyond the federal holidays.
var observances = []*cal.Holiday{
	{Name: "Valentine's Day", Type: cal.ObservanceOther, Month: time.February, Day: 14, Func: cal.CalcDayOfMonth},
	{Name: "Halloween", Type: cal.ObservanceOther, Month: time.October, Day: 31, Func: cal.CalcDayOfMonth},
	// Thanksgiving is the fourth Thursday of November; Black Friday and
	// Cyber Monday are offsets from it.
	{Name: "Black Friday", Type: cal.ObservanceOther, Month: time.November, Weekday: time.Thursday, Offset: 4, CalcOffset: 1, Func: cal.CalcWeekdayOffset},
	{Name: "Cyber Monday", Type: cal.ObservanceOther, Month: time.November, Weekday: time.Thursday, Offset: 4, CalcOffset: 4, Func: cal.CalcWeekdayOffset},
	{Name: "Christmas Eve", Type: cal.ObservanceOther, Month: time.December, Day: 24, Func: cal.CalcDayOfMonth},
	{Name: "New Year's Eve", Type: cal.ObservanceOther, Month: time.December, Day: 31, Func: cal.CalcDayOfMonth},
}

// Holiday is one observed day inside a queried window.
type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// Calendar wraps the holiday definitions behind simple date predicates.
type Calendar struct {
	cal *cal.Calendar
}

func NewCalendar() *Calendar {
	c := &cal.Calendar{Name: "US holidays and observances", Cacheable: true}
	c.AddHoliday(us.Holidays...)
	c.AddHoliday(observances...)
	return &Calendar{cal: c}
}

// IsHoliday reports whether the date falls on a holiday or observance.
func (c *Calendar) IsHoliday(t time.Time) bool {
	actual, _, _ := c.cal.IsHoliday(t)
	return actual
}

// Name returns the holiday name for a date, if it is one.
func (c *Calendar) Name(t time.Time) (string, bool) {
	actual, _, h := c.cal.IsHoliday(t)
	if !actual || h == nil {
		return "", false
	}
	return h.Name, true
}

// Between lists the holidays falling within [start, end), one entry per day,
// in chronological order.
func (c *Calendar) Between(start, end time.Time) []Holiday {
	out := []Holiday{}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	for day.Before(end) {
		if name, ok := c.Name(day); ok {
			out = append(out, Holiday{Date: day, Name: name})
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

// IsBusinessDay reports whether the date is a weekday that is not a holiday.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !c.IsHoliday(t)
}

// NextBusinessDay returns the first business day strictly after t, at the
// same clock time.
func (c *Calendar) NextBusinessDay(t time.Time) time.Time {
	day := t.AddDate(0, 0, 1)
	for !c.IsBusinessDay(day) {
		day = day.AddDate(0, 0, 1)
	}
	return day
}
