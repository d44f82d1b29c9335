package client

import (
	"encoding/json"
	"time"

	"calagent/internal/models"
)

// Inputs to the session loop. Everything that can happen to the session —
// dial results, transport closes, inbound frames, timers and API calls — is
// funneled through one queue, so the state machine runs strictly serially.
type (
	evDialed struct {
		gen  int
		conn Conn
		err  error
	}
	evClosed struct {
		gen int
		err error
	}
	evFrame struct {
		gen  int
		data []byte
	}
	evReconnectTimer struct{}
	evReconnect      struct{}
	evSetSelection   struct{ sel Selection }
	evRefresh        struct{}
	evFetchDone      struct {
		gen    uint64
		events []models.Event
		err    error
	}
	evSync     struct{}
	evSyncDone struct {
		status models.SyncStatus
		err    error
	}
	evStop struct{ done chan struct{} }
)

func (s *Session) run() {
	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	s.connect()
	s.refresh()

	for {
		select {
		case <-heartbeat.C:
			if s.connState == Open {
				s.sendFrame(models.Message{Type: models.TypePing})
			}
		case ev := <-s.events:
			if stop, ok := ev.(evStop); ok {
				s.shutdown()
				close(stop.done)
				return
			}
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev any) {
	switch ev := ev.(type) {
	case evDialed:
		s.handleDialed(ev)
	case evClosed:
		if ev.gen != s.connGen {
			return // close signal from a torn-down connection
		}
		s.logger.Info("Notification channel closed", "error", ev.err)
		s.conn = nil
		s.setConnState(Disconnected)
		s.scheduleReconnect()
	case evFrame:
		if ev.gen != s.connGen {
			return
		}
		s.handleFrame(ev.data)
	case evReconnectTimer:
		s.reconnectTimer = nil
		s.connect()
	case evReconnect:
		s.attempts = 0
		s.cancelReconnectTimer()
		s.connect()
	case evSetSelection:
		s.selection = ev.sel
		s.mu.Lock()
		s.view.Selection = ev.sel
		s.mu.Unlock()
		s.refresh()
	case evRefresh:
		s.refresh()
	case evFetchDone:
		s.handleFetchDone(ev)
	case evSync:
		s.startSync()
	case evSyncDone:
		s.handleSyncDone(ev)
	}
}

// connect opens a new subscription. It is a no-op while a dial is in flight
// or once the retry budget is exhausted; any prior transport is torn down
// first so at most one live subscription exists.
func (s *Session) connect() {
	if s.connState == Connecting {
		return
	}
	if s.attempts >= s.cfg.MaxAttempts {
		s.logger.Warn("Reconnect budget exhausted, staying disconnected", "attempts", s.attempts)
		return
	}
	if s.conn != nil {
		s.setConnState(Closing)
		_ = s.conn.Close()
		s.conn = nil
	}
	s.cancelReconnectTimer()

	s.setConnState(Connecting)
	s.connGen++
	gen := s.connGen
	s.logger.Info("Connecting to notification channel", "url", s.cfg.StreamURL, "attempt", s.attempts)
	go func() {
		conn, err := s.dialer.Dial(s.ctx, s.cfg.StreamURL)
		if conn != nil && s.ctx.Err() != nil {
			_ = conn.Close() // session stopped while the dial was in flight
			return
		}
		s.post(evDialed{gen: gen, conn: conn, err: err})
	}()
}

func (s *Session) handleDialed(ev evDialed) {
	if ev.gen != s.connGen {
		if ev.conn != nil {
			_ = ev.conn.Close()
		}
		return
	}
	if ev.err != nil {
		s.logger.Error("Failed to open notification channel", "error", ev.err)
		s.setConnState(Disconnected)
		s.scheduleReconnect()
		return
	}

	s.conn = ev.conn
	s.attempts = 0
	s.cancelReconnectTimer()
	s.setConnState(Open)
	s.logger.Info("Notification channel open")

	// Immediate liveness probe on open.
	s.sendFrame(models.Message{Type: models.TypePing})

	go s.readPump(ev.conn, ev.gen)
}

func (s *Session) readPump(conn Conn, gen int) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			s.post(evClosed{gen: gen, err: err})
			return
		}
		s.post(evFrame{gen: gen, data: data})
	}
}

// scheduleReconnect arms a single backoff timer for the next attempt. The
// delay for attempt n is min(base*2^n, max); once the budget is spent no
// further timer is armed and only a manual Reconnect can revive the session.
func (s *Session) scheduleReconnect() {
	if s.reconnectTimer != nil {
		return
	}
	if s.attempts >= s.cfg.MaxAttempts {
		s.logger.Warn("Not reconnecting, attempt budget exhausted", "attempts", s.attempts)
		return
	}
	delay := backoffDelay(s.cfg, s.attempts)
	s.attempts++
	s.logger.Info("Scheduling reconnect", "delay", delay, "attempt", s.attempts)
	s.reconnectTimer = time.AfterFunc(delay, func() {
		s.post(evReconnectTimer{})
	})
}

func (s *Session) cancelReconnectTimer() {
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
}

// handleFrame parses and dispatches one inbound frame. Malformed frames are
// logged and dropped without touching the connection.
func (s *Session) handleFrame(data []byte) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		s.logger.Error("Dropping malformed frame", "error", err)
		return
	}

	switch msg.Type {
	case models.TypePing:
		s.sendFrame(models.Message{Type: models.TypePong})
	case models.TypePong:
		s.logger.Debug("Pong received")
	case models.TypeConnectionEstablished:
		s.logger.Debug("Connection acknowledged by server")
	case models.TypeSyncComplete:
		payload := msg.Data
		if len(payload) == 0 {
			payload = msg.Stats // legacy payload shape
		}
		status := models.DecodeSyncStatus(payload)
		s.commitSyncStatus(status)
		s.refresh()
	default:
		s.logger.Warn("Unrecognized message type", "type", msg.Type)
	}
}

func (s *Session) sendFrame(msg models.Message) {
	if s.conn == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := s.conn.WriteMessage(data); err != nil {
		// The transport's close signaling will drive the reconnect.
		s.logger.Error("Failed to write frame", "type", msg.Type, "error", err)
	}
}

// refresh issues a fetch for the current selection, tagged with a generation.
// Results for a superseded generation are discarded, so the last-issued
// selection always wins regardless of completion order.
func (s *Session) refresh() {
	s.fetchGen++
	gen := s.fetchGen
	start, end := s.selection.Window(s.cfg.Location)
	go func() {
		events, err := s.api.EventsBetween(s.ctx, start, end)
		s.post(evFetchDone{gen: gen, events: events, err: err})
	}()
}

func (s *Session) handleFetchDone(ev evFetchDone) {
	if ev.gen != s.fetchGen {
		s.logger.Debug("Discarding stale fetch result", "gen", ev.gen, "current", s.fetchGen)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.err != nil {
		// Fail-safe-empty: never show data known to be wrong next to an error.
		s.view.Events = []models.Event{}
		s.view.LastError = ev.err.Error()
		s.logger.Error("Event fetch failed", "error", ev.err)
		return
	}
	if ev.events == nil {
		ev.events = []models.Event{}
	}
	s.view.Events = ev.events
	s.view.LastError = ""
}

func (s *Session) startSync() {
	s.mu.Lock()
	s.view.Syncing = true
	s.mu.Unlock()
	go func() {
		status, err := s.api.Sync(s.ctx)
		s.post(evSyncDone{status: status, err: err})
	}()
}

func (s *Session) handleSyncDone(ev evSyncDone) {
	if ev.err != nil {
		s.commitSyncStatus(models.SyncStatus{Success: false, Errors: []string{ev.err.Error()}})
	} else {
		s.commitSyncStatus(ev.status)
	}
	s.refresh()
}

// commitSyncStatus replaces the held SyncStatus wholesale and clears the
// syncing flag. Both completion paths (direct response and sync_complete
// notification) land here, so clearing is idempotent.
func (s *Session) commitSyncStatus(status models.SyncStatus) {
	if status.Errors == nil {
		status.Errors = []string{}
	}
	s.mu.Lock()
	s.view.SyncStatus = status
	s.view.Syncing = false
	s.mu.Unlock()
}

func (s *Session) setConnState(state ConnState) {
	s.connState = state
	s.mu.Lock()
	s.view.Conn = state
	s.mu.Unlock()
}

func (s *Session) shutdown() {
	s.cancelReconnectTimer()
	if s.conn != nil {
		s.setConnState(Closing)
		_ = s.conn.Close()
		s.conn = nil
	}
	s.setConnState(Disconnected)
	s.cancel()
	close(s.done)
}
