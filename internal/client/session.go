// Package client implements the browser-facing session core: a single
// reconnecting subscription to the server's notification channel, a heartbeat,
// a sync-status reducer and an event fetch coordinator. A UI shell owns one
// Session, starts it, reads Snapshot for rendering and stops it on unmount.
package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"calagent/internal/models"
)

// ConnState is the lifecycle state of the notification-channel connection.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Open
	Closing
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	default:
		return "disconnected"
	}
}

// RangeKind selects how wide the displayed calendar window is.
type RangeKind string

const (
	RangeDay   RangeKind = "day"
	RangeWeek  RangeKind = "week"
	RangeMonth RangeKind = "month"
)

// Selection is the (date, range) pair currently displayed. It determines the
// window events are fetched for.
type Selection struct {
	Date  time.Time
	Range RangeKind
}

// Window resolves the selection to a concrete [start, end) interval in loc.
// Weeks start on Sunday.
func (sel Selection) Window(loc *time.Location) (time.Time, time.Time) {
	d := sel.Date.In(loc)
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	switch sel.Range {
	case RangeWeek:
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return start, start.AddDate(0, 0, 7)
	case RangeMonth:
		start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	default:
		return day, day.AddDate(0, 0, 1)
	}
}

// API is the server surface the session core depends on.
type API interface {
	EventsBetween(ctx context.Context, start, end time.Time) ([]models.Event, error)
	Sync(ctx context.Context) (models.SyncStatus, error)
}

// Config carries the session parameters. Zero fields get defaults.
type Config struct {
	StreamURL         string         // notification channel endpoint (ws://.../ws)
	MaxAttempts       int            // reconnect budget, default 5
	BaseBackoff       time.Duration  // first reconnect delay, default 1s
	MaxBackoff        time.Duration  // backoff cap, default 10s
	HeartbeatInterval time.Duration  // liveness probe interval, default 30s
	Location          *time.Location // timezone for selection windows, default UTC
	Selection         Selection      // initial selection, default: today, day range
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Selection.Date.IsZero() {
		c.Selection = Selection{Date: time.Now(), Range: RangeDay}
	}
	if c.Selection.Range == "" {
		c.Selection.Range = RangeDay
	}
}

// View is the renderable snapshot the UI shell reads. The displayed events
// always correspond to the most recent successful fetch for the current
// selection; on fetch failure the set is empty and LastError is set.
type View struct {
	Events     []models.Event
	SyncStatus models.SyncStatus
	Conn       ConnState
	Syncing    bool
	LastError  string
	Selection  Selection
}

// Session owns the single logical subscription and the cached event set.
// All state transitions happen on one internal goroutine; public methods only
// enqueue inputs, mirroring the single-threaded model of a browser UI thread.
type Session struct {
	cfg    Config
	logger *slog.Logger
	dialer Dialer
	api    API

	events chan any
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	view View

	// Loop-owned state, never touched outside the run goroutine.
	connState      ConnState
	attempts       int
	connGen        int
	conn           Conn
	reconnectTimer *time.Timer
	fetchGen       uint64
	selection      Selection
}

// NewSession builds a session; call Start to begin connecting and fetching.
func NewSession(cfg Config, logger *slog.Logger, dialer Dialer, api API) *Session {
	cfg.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:       cfg,
		logger:    logger,
		dialer:    dialer,
		api:       api,
		events:    make(chan any, 64),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		selection: cfg.Selection,
		view:      View{Events: []models.Event{}, SyncStatus: models.SyncStatus{Errors: []string{}}, Selection: cfg.Selection},
	}
}

// Start launches the session loop, opens the subscription and issues the
// initial fetch.
func (s *Session) Start() {
	go s.run()
}

// Stop tears the session down: it cancels any pending reconnect timer, stops
// the heartbeat and explicitly closes an open connection. Safe to call more
// than once.
func (s *Session) Stop() {
	done := make(chan struct{})
	select {
	case s.events <- evStop{done: done}:
		<-done
	case <-s.done:
	}
}

// SetSelection switches the displayed (date, range) pair and triggers a
// fetch for the new window.
func (s *Session) SetSelection(sel Selection) {
	if sel.Range == "" {
		sel.Range = RangeDay
	}
	s.post(evSetSelection{sel: sel})
}

// Refresh re-fetches events for the current selection.
func (s *Session) Refresh() {
	s.post(evRefresh{})
}

// Sync runs a user-initiated sync against the server. The syncing flag stays
// true until either the direct response or a sync_complete notification
// arrives, whichever is first.
func (s *Session) Sync() {
	s.post(evSync{})
}

// Reconnect is the manual retry path for when the automatic budget is
// exhausted: it resets the attempt counter and connects again.
func (s *Session) Reconnect() {
	s.post(evReconnect{})
}

// Snapshot returns a copy of the current view for rendering.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.view
	v.Events = append([]models.Event(nil), s.view.Events...)
	v.SyncStatus.Errors = append([]string(nil), s.view.SyncStatus.Errors...)
	return v
}

// Done is closed once the session loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) post(ev any) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// backoffDelay is the reconnect schedule: min(base * 2^attempt, max).
func backoffDelay(cfg Config, attempt int) time.Duration {
	d := cfg.BaseBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cfg.MaxBackoff {
			return cfg.MaxBackoff
		}
	}
	if d > cfg.MaxBackoff {
		return cfg.MaxBackoff
	}
	return d
}
