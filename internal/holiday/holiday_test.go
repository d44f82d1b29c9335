package holiday

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsHoliday(t *testing.T) {
	c := NewCalendar()
	cases := []struct {
		day  time.Time
		want bool
	}{
		{date(2025, time.July, 4), true},      // Independence Day
		{date(2025, time.November, 27), true}, // Thanksgiving, 4th Thursday
		{date(2025, time.November, 28), true}, // Black Friday
		{date(2025, time.December, 1), true},  // Cyber Monday
		{date(2025, time.October, 31), true},  // Halloween
		{date(2025, time.February, 14), true}, // Valentine's Day
		{date(2025, time.December, 24), true},
		{date(2025, time.March, 5), false},
		{date(2025, time.August, 12), false},
	}
	for _, tc := range cases {
		if got := c.IsHoliday(tc.day); got != tc.want {
			t.Errorf("IsHoliday(%s) = %v, want %v", tc.day.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestName(t *testing.T) {
	c := NewCalendar()
	if name, ok := c.Name(date(2025, time.July, 4)); !ok || name != "Independence Day" {
		t.Fatalf("Name(July 4) = %q, %v", name, ok)
	}
	if name, ok := c.Name(date(2025, time.November, 28)); !ok || name != "Black Friday" {
		t.Fatalf("Name(Nov 28) = %q, %v", name, ok)
	}
	if _, ok := c.Name(date(2025, time.March, 5)); ok {
		t.Fatal("ordinary day should have no holiday name")
	}
}

func TestBetween(t *testing.T) {
	c := NewCalendar()
	// Thanksgiving week plus Cyber Monday.
	got := c.Between(date(2025, time.November, 24), date(2025, time.December, 2))
	if len(got) != 3 {
		t.Fatalf("expected 3 holidays, got %v", got)
	}
	if got[0].Name != "Thanksgiving Day" || got[1].Name != "Black Friday" || got[2].Name != "Cyber Monday" {
		t.Fatalf("unexpected order or names: %v", got)
	}

	if got := c.Between(date(2025, time.March, 3), date(2025, time.March, 8)); len(got) != 0 {
		t.Fatalf("expected no holidays in a plain week, got %v", got)
	}
}

func TestBusinessDays(t *testing.T) {
	c := NewCalendar()
	if c.IsBusinessDay(date(2025, time.July, 4)) { // Friday, but a holiday
		t.Fatal("holiday must not be a business day")
	}
	if c.IsBusinessDay(date(2025, time.March, 8)) { // Saturday
		t.Fatal("weekend must not be a business day")
	}
	if !c.IsBusinessDay(date(2025, time.March, 5)) { // plain Wednesday
		t.Fatal("ordinary weekday should be a business day")
	}

	// July 3rd 2025 is a Thursday; the 4th is a holiday and then the weekend.
	next := c.NextBusinessDay(date(2025, time.July, 3))
	if want := date(2025, time.July, 7); !next.Equal(want) {
		t.Fatalf("NextBusinessDay = %v, want %v", next, want)
	}
}
