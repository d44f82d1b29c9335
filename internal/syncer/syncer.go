package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"calagent/internal/models"
	"calagent/internal/store"
)

// Provider is the slice of the calendar provider the syncer depends on.
// *google.CalendarClient satisfies it.
type Provider interface {
	EventsBetween(ctx context.Context, calendarID string, start, end time.Time) ([]*models.Event, error)
}

// Syncer reconciles the local event store against the calendar provider.
// One Sync call is one sync attempt; its outcome is reported as a single
// SyncStatus value.
type Syncer struct {
	logger      *slog.Logger
	provider    Provider
	store       *store.Store
	calendarIDs []string
	lookBehind  time.Duration
	lookAhead   time.Duration
	dryRun      bool
	now         func() time.Time
}

// New creates a Syncer covering the given calendars over a window of
// [now-lookBehind, now+lookAhead).
func New(logger *slog.Logger, provider Provider, st *store.Store, calendarIDs []string, lookBehind, lookAhead time.Duration, dryRun bool) *Syncer {
	return &Syncer{
		logger:      logger,
		provider:    provider,
		store:       st,
		calendarIDs: calendarIDs,
		lookBehind:  lookBehind,
		lookAhead:   lookAhead,
		dryRun:      dryRun,
		now:         time.Now,
	}
}

// Sync performs a full synchronization cycle against every configured
// calendar. Per-calendar failures are collected into the status rather than
// aborting the cycle, so one broken calendar does not block the rest.
func (s *Syncer) Sync(ctx context.Context) (models.SyncStatus, error) {
	status := models.SyncStatus{Errors: []string{}}

	if s.provider == nil {
		status.Errors = append(status.Errors, "no calendar provider configured")
		return status, nil
	}
	if len(s.calendarIDs) == 0 {
		status.Errors = append(status.Errors, "no calendar IDs configured")
		return status, nil
	}

	s.logger.Info("Starting sync cycle.", "calendars", len(s.calendarIDs))
	now := s.now()
	start := now.Add(-s.lookBehind)
	end := now.Add(s.lookAhead)

	synced := 0
	for _, calID := range s.calendarIDs {
		if err := s.syncCalendar(ctx, calID, start, end, &status); err != nil {
			s.logger.Error("Could not sync calendar", "calendarID", calID, "error", err)
			status.Errors = append(status.Errors, fmt.Sprintf("calendar %s: %v", calID, err))
			continue
		}
		synced++
	}

	status.Success = synced > 0
	s.logger.Info("Sync cycle finished.",
		"new", status.NewEvents, "updated", status.UpdatedEvents,
		"deleted", status.DeletedEvents, "errors", len(status.Errors))
	return status, nil
}

// syncCalendar reconciles one calendar: provider events not yet stored are
// created, changed ones updated, and stored events that vanished from the
// provider window are removed.
func (s *Syncer) syncCalendar(ctx context.Context, calendarID string, start, end time.Time, status *models.SyncStatus) error {
	providerEvents, err := s.provider.EventsBetween(ctx, calendarID, start, end)
	if err != nil {
		return fmt.Errorf("failed to fetch provider events: %w", err)
	}

	existing := s.store.ByGoogleID(calendarID)
	seen := make(map[string]bool, len(providerEvents))

	for _, ev := range providerEvents {
		if ev.GoogleID == "" {
			continue
		}
		seen[ev.GoogleID] = true

		prev, ok := existing[ev.GoogleID]
		if !ok {
			created := *ev
			if created.ID == "" {
				created.ID = uuid.New().String()
			}
			if !s.dryRun {
				s.store.Put(created)
			}
			status.NewEvents++
			s.logger.Debug("New event from provider", "title", created.Title, "googleID", created.GoogleID)
			continue
		}

		updated := *ev
		updated.ID = prev.ID // keep local identity stable across syncs
		if eventChanged(prev, updated) {
			if !s.dryRun {
				s.store.Put(updated)
			}
			status.UpdatedEvents++
			s.logger.Debug("Updated event from provider", "title", updated.Title, "googleID", updated.GoogleID)
		}
	}

	// Events we hold for this calendar that the provider no longer returns
	// inside the sync window were deleted upstream.
	for googleID, ev := range existing {
		if seen[googleID] {
			continue
		}
		if ev.StartTime.Before(start) || !ev.StartTime.Before(end) {
			continue
		}
		if !s.dryRun {
			if err := s.store.Delete(ev.ID); err != nil {
				continue
			}
		}
		status.DeletedEvents++
		s.logger.Debug("Removed event deleted upstream", "title", ev.Title, "googleID", googleID)
	}

	return nil
}

func eventChanged(a, b models.Event) bool {
	if a.Title != b.Title || a.Description != b.Description || a.Location != b.Location {
		return true
	}
	if !a.StartTime.Equal(b.StartTime) || !a.EndTime.Equal(b.EndTime) {
		return true
	}
	if len(a.Participants) != len(b.Participants) {
		return true
	}
	for i := range a.Participants {
		if a.Participants[i] != b.Participants[i] {
			return true
		}
	}
	return false
}
