package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"calagent/internal/models"
	"calagent/internal/store"
)

type fakeProvider struct {
	events map[string][]*models.Event
	errs   map[string]error
	calls  int
}

func (f *fakeProvider) EventsBetween(ctx context.Context, calendarID string, start, end time.Time) ([]*models.Event, error) {
	f.calls++
	if err := f.errs[calendarID]; err != nil {
		return nil, err
	}
	return f.events[calendarID], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
}

func newTestSyncer(p Provider, st *store.Store, cals []string) *Syncer {
	s := New(testLogger(), p, st, cals, 30*24*time.Hour, 90*24*time.Hour, false)
	s.now = fixedNow
	return s
}

func TestSyncCreatesUpdatesDeletes(t *testing.T) {
	st := store.New()
	now := fixedNow()

	// Already known and unchanged.
	st.Put(models.Event{ID: "local-1", GoogleID: "g1", CalendarID: "cal", Title: "unchanged",
		StartTime: now.Add(24 * time.Hour), EndTime: now.Add(25 * time.Hour), Source: "google"})
	// Known but retitled upstream.
	st.Put(models.Event{ID: "local-2", GoogleID: "g2", CalendarID: "cal", Title: "old title",
		StartTime: now.Add(48 * time.Hour), EndTime: now.Add(49 * time.Hour), Source: "google"})
	// Deleted upstream: inside the sync window but absent from the provider.
	st.Put(models.Event{ID: "local-3", GoogleID: "g3", CalendarID: "cal", Title: "gone",
		StartTime: now.Add(72 * time.Hour), EndTime: now.Add(73 * time.Hour), Source: "google"})

	provider := &fakeProvider{events: map[string][]*models.Event{
		"cal": {
			{GoogleID: "g1", CalendarID: "cal", Title: "unchanged",
				StartTime: now.Add(24 * time.Hour), EndTime: now.Add(25 * time.Hour), Source: "google"},
			{GoogleID: "g2", CalendarID: "cal", Title: "new title",
				StartTime: now.Add(48 * time.Hour), EndTime: now.Add(49 * time.Hour), Source: "google"},
			{GoogleID: "g4", CalendarID: "cal", Title: "brand new",
				StartTime: now.Add(96 * time.Hour), EndTime: now.Add(97 * time.Hour), Source: "google"},
		},
	}}

	s := newTestSyncer(provider, st, []string{"cal"})
	status, err := s.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if !status.Success {
		t.Fatalf("expected success, got %+v", status)
	}
	if status.NewEvents != 1 || status.UpdatedEvents != 1 || status.DeletedEvents != 1 {
		t.Fatalf("expected counts 1/1/1, got %d/%d/%d", status.NewEvents, status.UpdatedEvents, status.DeletedEvents)
	}
	if len(status.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", status.Errors)
	}

	// Updated event keeps its local identity.
	got, err := st.Get("local-2")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "new title" {
		t.Fatalf("expected updated title, got %q", got.Title)
	}
	if _, err := st.Get("local-3"); err != store.ErrNotFound {
		t.Fatal("expected upstream-deleted event removed from store")
	}
}

func TestSyncCollectsPerCalendarErrors(t *testing.T) {
	st := store.New()
	now := fixedNow()
	provider := &fakeProvider{
		events: map[string][]*models.Event{
			"good": {{GoogleID: "g1", CalendarID: "good", Title: "ok",
				StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour), Source: "google"}},
		},
		errs: map[string]error{"bad": errors.New("quota exceeded")},
	}

	s := newTestSyncer(provider, st, []string{"bad", "good"})
	status, err := s.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if !status.Success {
		t.Fatal("one healthy calendar should still yield success")
	}
	if status.NewEvents != 1 {
		t.Fatalf("expected the healthy calendar synced, got %d new", status.NewEvents)
	}
	if len(status.Errors) != 1 {
		t.Fatalf("expected one collected error, got %v", status.Errors)
	}
}

func TestSyncWithoutProvider(t *testing.T) {
	s := newTestSyncer(nil, store.New(), []string{"cal"})
	status, err := s.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status.Success || len(status.Errors) != 1 {
		t.Fatalf("expected failed status with one error, got %+v", status)
	}
}

func TestSyncWithoutCalendars(t *testing.T) {
	provider := &fakeProvider{}
	s := newTestSyncer(provider, store.New(), nil)
	status, err := s.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status.Success {
		t.Fatalf("expected failure with no calendars, got %+v", status)
	}
	if provider.calls != 0 {
		t.Fatal("provider should not be called without calendar IDs")
	}
}

func TestSyncDryRunTouchesNothing(t *testing.T) {
	st := store.New()
	now := fixedNow()
	st.Put(models.Event{ID: "local-1", GoogleID: "g-old", CalendarID: "cal", Title: "stale",
		StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour), Source: "google"})

	provider := &fakeProvider{events: map[string][]*models.Event{
		"cal": {{GoogleID: "g-new", CalendarID: "cal", Title: "incoming",
			StartTime: now.Add(3 * time.Hour), EndTime: now.Add(4 * time.Hour), Source: "google"}},
	}}

	s := New(testLogger(), provider, st, []string{"cal"}, 30*24*time.Hour, 90*24*time.Hour, true)
	s.now = fixedNow
	status, err := s.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if status.NewEvents != 1 || status.DeletedEvents != 1 {
		t.Fatalf("dry run should still report counts, got %+v", status)
	}
	if _, err := st.Get("local-1"); err != nil {
		t.Fatal("dry run must not delete events")
	}
	if len(st.All()) != 1 {
		t.Fatalf("dry run must not add events, store has %d", len(st.All()))
	}
}
