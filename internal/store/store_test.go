package store

import (
	"testing"
	"time"

	"calagent/internal/models"
)

func mkEvent(id string, start time.Time, d time.Duration) models.Event {
	return models.Event{ID: id, Title: "event " + id, StartTime: start, EndTime: start.Add(d)}
}

func TestPutGetDelete(t *testing.T) {
	s := New()
	ev := mkEvent("a", time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC), time.Hour)
	s.Put(ev)

	got, err := s.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != ev.Title {
		t.Fatalf("expected %q, got %q", ev.Title, got.Title)
	}

	if err := s.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("a"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get("a"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRangeFiltersAndOrders(t *testing.T) {
	s := New()
	base := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	s.Put(mkEvent("late", base.Add(15*time.Hour), time.Hour))
	s.Put(mkEvent("early", base.Add(9*time.Hour), time.Hour))
	s.Put(mkEvent("outside", base.Add(30*time.Hour), time.Hour))

	got := s.Range(base, base.AddDate(0, 0, 1))
	if len(got) != 2 {
		t.Fatalf("expected 2 events in window, got %d", len(got))
	}
	if got[0].ID != "early" || got[1].ID != "late" {
		t.Fatalf("expected start-time order, got %s then %s", got[0].ID, got[1].ID)
	}
}

func TestRangeExpandsRecurrence(t *testing.T) {
	s := New()
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC) // a Monday
	ev := mkEvent("standup", start, 30*time.Minute)
	ev.Recurrence = "FREQ=DAILY;COUNT=10"
	s.Put(ev)

	weekStart := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	got := s.Range(weekStart, weekStart.AddDate(0, 0, 7))
	if len(got) != 6 {
		t.Fatalf("expected 6 occurrences within the week, got %d", len(got))
	}
	for i, occ := range got {
		want := start.AddDate(0, 0, i)
		if !occ.StartTime.Equal(want) {
			t.Fatalf("occurrence %d: expected %v, got %v", i, want, occ.StartTime)
		}
		if occ.EndTime.Sub(occ.StartTime) != 30*time.Minute {
			t.Fatalf("occurrence %d: duration not preserved", i)
		}
	}
}

func TestRangeRecurrenceWithPrefix(t *testing.T) {
	s := New()
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	ev := mkEvent("weekly", start, time.Hour)
	ev.Recurrence = "RRULE:FREQ=WEEKLY;COUNT=4"
	s.Put(ev)

	got := s.Range(start.AddDate(0, 0, -1), start.AddDate(0, 0, 15))
	if len(got) != 3 {
		t.Fatalf("expected 3 weekly occurrences, got %d", len(got))
	}
}

type fakeHolidays struct {
	days map[string]bool
}

func (f fakeHolidays) IsHoliday(t time.Time) bool {
	return f.days[t.Format("2006-01-02")]
}

func TestRangeSkipsHolidayOccurrences(t *testing.T) {
	s := New()
	s.SetHolidayChecker(fakeHolidays{days: map[string]bool{"2025-03-04": true}})

	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	skipper := mkEvent("standup", start, 15*time.Minute)
	skipper.Recurrence = "FREQ=DAILY;COUNT=5"
	skipper.SkipHolidays = true
	s.Put(skipper)

	got := s.Range(start.AddDate(0, 0, -1), start.AddDate(0, 0, 7))
	if len(got) != 4 {
		t.Fatalf("expected 4 occurrences with the holiday suppressed, got %d", len(got))
	}
	for _, occ := range got {
		if occ.StartTime.Day() == 4 {
			t.Fatalf("holiday occurrence should be suppressed: %v", occ.StartTime)
		}
	}
}

func TestRangeKeepsHolidayOccurrencesByDefault(t *testing.T) {
	s := New()
	s.SetHolidayChecker(fakeHolidays{days: map[string]bool{"2025-03-04": true}})

	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	ev := mkEvent("standup", start, 15*time.Minute)
	ev.Recurrence = "FREQ=DAILY;COUNT=5"
	s.Put(ev)

	if got := s.Range(start.AddDate(0, 0, -1), start.AddDate(0, 0, 7)); len(got) != 5 {
		t.Fatalf("events without the opt-out keep all occurrences, got %d", len(got))
	}
}

func TestRangeBadRecurrenceDegradesToSingle(t *testing.T) {
	s := New()
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	ev := mkEvent("broken", start, time.Hour)
	ev.Recurrence = "FREQ=NONSENSE"
	s.Put(ev)

	got := s.Range(start.AddDate(0, 0, -1), start.AddDate(0, 0, 1))
	if len(got) != 1 {
		t.Fatalf("expected the base event only, got %d", len(got))
	}
}

func TestByGoogleID(t *testing.T) {
	s := New()
	a := mkEvent("a", time.Now(), time.Hour)
	a.GoogleID = "g1"
	a.CalendarID = "cal1"
	b := mkEvent("b", time.Now(), time.Hour)
	b.GoogleID = "g2"
	b.CalendarID = "cal2"
	local := mkEvent("c", time.Now(), time.Hour)
	s.Put(a)
	s.Put(b)
	s.Put(local)

	got := s.ByGoogleID("cal1")
	if len(got) != 1 {
		t.Fatalf("expected 1 event for cal1, got %d", len(got))
	}
	if got["g1"].ID != "a" {
		t.Fatalf("wrong event indexed: %+v", got)
	}
}
