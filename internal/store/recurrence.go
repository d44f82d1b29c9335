package store

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"calagent/internal/models"
)

// Safety cap so a malformed or unbounded rule cannot expand forever.
const maxOccurrencesPerEvent = 1000

// Range returns all event occurrences starting within [start, end), ordered
// by start time. Recurring events are expanded into concrete occurrences
// within the window, so a re-fetch always yields the full authoritative set
// for that window.
func (s *Store) Range(start, end time.Time) []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Event
	for _, ev := range s.byID {
		if ev.Recurrence == "" {
			if !ev.StartTime.Before(start) && ev.StartTime.Before(end) {
				out = append(out, ev)
			}
			continue
		}
		out = append(out, expandOccurrences(ev, start, end, s.holidays)...)
	}
	sortByStart(out)
	return out
}

// expandOccurrences yields concrete occurrences of a recurring event whose
// start falls within [start, end). An unparseable rule degrades to the base
// event treated as non-recurring. Events that opt out of holidays have
// occurrences on holiday dates suppressed.
func expandOccurrences(ev models.Event, start, end time.Time, holidays HolidayChecker) []models.Event {
	opt, err := rrule.StrToROption(strings.TrimPrefix(ev.Recurrence, "RRULE:"))
	if err != nil {
		if !ev.StartTime.Before(start) && ev.StartTime.Before(end) {
			return []models.Event{ev}
		}
		return nil
	}
	opt.Dtstart = ev.StartTime
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		if !ev.StartTime.Before(start) && ev.StartTime.Before(end) {
			return []models.Event{ev}
		}
		return nil
	}

	duration := ev.EndTime.Sub(ev.StartTime)
	var out []models.Event
	// Between is inclusive on both bounds; the range contract excludes end.
	for _, t := range rule.Between(start, end, true) {
		if !t.Before(end) {
			continue
		}
		if ev.SkipHolidays && holidays != nil && holidays.IsHoliday(t) {
			continue
		}
		occ := ev
		occ.StartTime = t
		occ.EndTime = t.Add(duration)
		out = append(out, occ)
		if len(out) >= maxOccurrencesPerEvent {
			break
		}
	}
	return out
}
