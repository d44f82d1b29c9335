package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"calagent/internal/models"
)

// ErrNotFound is returned when an event ID does not exist in the store.
var ErrNotFound = errors.New("event not found")

// HolidayChecker reports whether a date falls on a holiday. Range consults it
// for recurring events that opt out of holiday occurrences.
type HolidayChecker interface {
	IsHoliday(t time.Time) bool
}

// Store is the in-memory event cache backing the API. It is the single
// authoritative copy on the server side; the sync cycle reconciles it against
// the provider and API handlers read from it.
type Store struct {
	mu       sync.RWMutex
	byID     map[string]models.Event
	holidays HolidayChecker
}

func New() *Store {
	return &Store{byID: make(map[string]models.Event)}
}

// SetHolidayChecker installs the calendar used to suppress holiday
// occurrences. A nil checker disables suppression.
func (s *Store) SetHolidayChecker(hc HolidayChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holidays = hc
}

// Put inserts or replaces an event by ID.
func (s *Store) Put(ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[ev.ID] = ev
}

// Get returns the event with the given ID.
func (s *Store) Get(id string) (models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.byID[id]
	if !ok {
		return models.Event{}, ErrNotFound
	}
	return ev, nil
}

// Delete removes the event with the given ID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

// All returns every stored event ordered by start time.
func (s *Store) All() []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Event, 0, len(s.byID))
	for _, ev := range s.byID {
		out = append(out, ev)
	}
	sortByStart(out)
	return out
}

// ByGoogleID returns a snapshot of google-sourced events for the given
// calendar, keyed by their provider identifier. Used by the sync cycle to
// reconcile provider state against the store.
func (s *Store) ByGoogleID(calendarID string) map[string]models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Event)
	for _, ev := range s.byID {
		if ev.GoogleID != "" && ev.CalendarID == calendarID {
			out[ev.GoogleID] = ev
		}
	}
	return out
}

func sortByStart(events []models.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartTime.Before(events[j].StartTime)
	})
}
