package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"calagent/internal/command"
	"calagent/internal/holiday"
	"calagent/internal/models"
	"calagent/internal/store"
)

// SyncRunner is the slice of the syncer the API depends on.
type SyncRunner interface {
	Sync(ctx context.Context) (models.SyncStatus, error)
}

// Broadcaster pushes messages onto the notification channel.
type Broadcaster interface {
	Broadcast(msg models.Message)
}

// ProviderWriter mutates events at the calendar provider. It is nil when the
// service runs without provider credentials; events then live only locally.
type ProviderWriter interface {
	CreateEvent(ctx context.Context, calendarID string, ev *models.Event) (string, error)
	DeleteEvent(ctx context.Context, calendarID, googleID string) error
}

// Handlers holds the dependencies for all REST endpoints.
type Handlers struct {
	logger     *slog.Logger
	store      *store.Store
	syncer     SyncRunner
	hub        Broadcaster
	provider   ProviderWriter
	parser     *command.Parser
	holidays   *holiday.Calendar
	tz         *time.Location
	calendarID string
	now        func() time.Time
}

func NewHandlers(logger *slog.Logger, st *store.Store, syncer SyncRunner, hub Broadcaster, provider ProviderWriter, parser *command.Parser, holidays *holiday.Calendar, tz *time.Location, calendarID string) *Handlers {
	if tz == nil {
		tz = time.UTC
	}
	if holidays == nil {
		holidays = holiday.NewCalendar()
	}
	return &Handlers{
		logger:     logger,
		store:      st,
		syncer:     syncer,
		hub:        hub,
		provider:   provider,
		parser:     parser,
		holidays:   holidays,
		tz:         tz,
		calendarID: calendarID,
		now:        time.Now,
	}
}

// CommandResponse is the reply to POST /command.
type CommandResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Events  []models.Event `json:"events,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type statusResponse struct {
	Success bool          `json:"success"`
	Event   *models.Event `json:"event,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func (h *Handlers) TodayEvents(c *gin.Context) {
	start := h.midnight(h.now().In(h.tz))
	c.JSON(http.StatusOK, h.eventsBetween(start, start.AddDate(0, 0, 1)))
}

func (h *Handlers) WeekEvents(c *gin.Context) {
	now := h.now().In(h.tz)
	start := h.midnight(now).AddDate(0, 0, -int(now.Weekday()))
	c.JSON(http.StatusOK, h.eventsBetween(start, start.AddDate(0, 0, 7)))
}

func (h *Handlers) MonthEvents(c *gin.Context) {
	now := h.now().In(h.tz)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.tz)
	c.JSON(http.StatusOK, h.eventsBetween(start, start.AddDate(0, 1, 0)))
}

func (h *Handlers) RangeEvents(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing start parameter"})
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing end parameter"})
		return
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must not be before start"})
		return
	}
	c.JSON(http.StatusOK, h.eventsBetween(start, end))
}

// Holidays lists the holidays and observances within [start, end). Without
// query parameters it covers the current calendar year.
func (h *Handlers) Holidays(c *gin.Context) {
	now := h.now().In(h.tz)
	start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, h.tz)
	end := start.AddDate(1, 0, 0)

	if q := c.Query("start"); q != "" {
		t, err := time.Parse(time.RFC3339, q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start parameter"})
			return
		}
		start = t
	}
	if q := c.Query("end"); q != "" {
		t, err := time.Parse(time.RFC3339, q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end parameter"})
			return
		}
		end = t
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must not be before start"})
		return
	}
	c.JSON(http.StatusOK, h.holidays.Between(start, end))
}

func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.EventCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, statusResponse{Error: "invalid json body"})
		return
	}

	ev, errMsg := h.createEvent(c.Request.Context(), req)
	if errMsg != "" {
		c.JSON(http.StatusBadRequest, statusResponse{Error: errMsg})
		return
	}
	c.JSON(http.StatusOK, statusResponse{Success: true, Event: ev})
}

func (h *Handlers) DeleteEvent(c *gin.Context) {
	id := c.Param("id")
	ev, err := h.store.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, statusResponse{Error: "event not found"})
		return
	}

	if h.provider != nil && ev.GoogleID != "" {
		if err := h.provider.DeleteEvent(c.Request.Context(), ev.CalendarID, ev.GoogleID); err != nil {
			h.logger.Error("Failed to delete event at provider", "id", id, "error", err)
			c.JSON(http.StatusBadGateway, statusResponse{Error: err.Error()})
			return
		}
	}
	if err := h.store.Delete(id); err != nil {
		c.JSON(http.StatusNotFound, statusResponse{Error: "event not found"})
		return
	}

	h.broadcastEvent(models.TypeEventDeleted, ev)
	c.JSON(http.StatusOK, statusResponse{Success: true})
}

func (h *Handlers) Command(c *gin.Context) {
	var req struct {
		Command string `json:"command"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Command) == "" {
		c.JSON(http.StatusBadRequest, CommandResponse{Error: "missing command"})
		return
	}

	h.logger.Info("Processing command", "command", req.Command)
	parsed := h.parser.Parse(req.Command)

	switch parsed.Intent {
	case command.IntentQuery:
		now := h.now().In(h.tz)
		var start, end time.Time
		switch parsed.QueryRange {
		case "week":
			start = h.midnight(now).AddDate(0, 0, -int(now.Weekday()))
			end = start.AddDate(0, 0, 7)
		case "month":
			start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.tz)
			end = start.AddDate(0, 1, 0)
		default:
			start = h.midnight(now)
			end = start.AddDate(0, 0, 1)
		}
		events := h.eventsBetween(start, end)
		c.JSON(http.StatusOK, CommandResponse{
			Success: true,
			Message: "Events retrieved successfully",
			Events:  events,
		})

	case command.IntentSchedule:
		if parsed.Title == "" {
			c.JSON(http.StatusOK, CommandResponse{Message: "Could not determine an event title", Error: "missing title"})
			return
		}
		if !parsed.HasTime {
			c.JSON(http.StatusOK, CommandResponse{Message: "Could not determine when to schedule the event", Error: "missing time"})
			return
		}
		ev, errMsg := h.createEvent(c.Request.Context(), models.EventCreateRequest{
			Title:        parsed.Title,
			StartTime:    parsed.Start,
			EndTime:      parsed.End,
			Participants: parsed.Participants,
			SkipHolidays: parsed.SkipHolidays,
		})
		if errMsg != "" {
			c.JSON(http.StatusOK, CommandResponse{Message: "Failed to schedule event", Error: errMsg})
			return
		}
		c.JSON(http.StatusOK, CommandResponse{
			Success: true,
			Message: "Event '" + ev.Title + "' scheduled successfully",
			Events:  []models.Event{*ev},
		})

	case command.IntentCancel:
		if parsed.Title == "" {
			c.JSON(http.StatusOK, CommandResponse{Message: "Could not determine which event to cancel", Error: "missing title"})
			return
		}
		target, ok := h.findByTitle(parsed.Title)
		if !ok {
			c.JSON(http.StatusOK, CommandResponse{Message: "No matching event found", Error: "not found"})
			return
		}
		if h.provider != nil && target.GoogleID != "" {
			if err := h.provider.DeleteEvent(c.Request.Context(), target.CalendarID, target.GoogleID); err != nil {
				c.JSON(http.StatusOK, CommandResponse{Message: "Failed to cancel event", Error: err.Error()})
				return
			}
		}
		if err := h.store.Delete(target.ID); err != nil {
			c.JSON(http.StatusOK, CommandResponse{Message: "Failed to cancel event", Error: err.Error()})
			return
		}
		h.broadcastEvent(models.TypeEventDeleted, target)
		c.JSON(http.StatusOK, CommandResponse{Success: true, Message: "Event '" + target.Title + "' cancelled successfully"})

	default:
		c.JSON(http.StatusBadRequest, CommandResponse{Message: "Unknown command intent", Error: "unknown intent"})
	}
}

func (h *Handlers) Sync(c *gin.Context) {
	status, err := h.syncer.Sync(c.Request.Context())
	if err != nil {
		h.logger.Error("Sync failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.hub.Broadcast(models.NewSyncCompleteMessage(status, h.now()))
	c.JSON(http.StatusOK, status)
}

// createEvent validates the request, writes to the provider when one is
// configured, stores the event and announces it on the notification channel.
func (h *Handlers) createEvent(ctx context.Context, req models.EventCreateRequest) (*models.Event, string) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, "title is required"
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return nil, "start_time and end_time are required"
	}
	if req.EndTime.Before(req.StartTime) {
		return nil, "end_time must not be before start_time"
	}

	ev := models.Event{
		ID:           uuid.New().String(),
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Location:     req.Location,
		Participants: req.Participants,
		Recurrence:   req.Recurrence,
		SkipHolidays: req.SkipHolidays,
		Source:       "local",
	}

	if h.provider != nil && h.calendarID != "" {
		googleID, err := h.provider.CreateEvent(ctx, h.calendarID, &ev)
		if err != nil {
			h.logger.Error("Failed to create event at provider", "title", ev.Title, "error", err)
			return nil, err.Error()
		}
		ev.GoogleID = googleID
		ev.CalendarID = h.calendarID
		ev.Source = "google"
	}

	h.store.Put(ev)
	h.broadcastEvent(models.TypeEventCreated, ev)
	h.logger.Info("Event created", "title", ev.Title, "id", ev.ID)
	return &ev, ""
}

func (h *Handlers) eventsBetween(start, end time.Time) []models.Event {
	events := h.store.Range(start, end)
	if events == nil {
		events = []models.Event{}
	}
	return events
}

func (h *Handlers) findByTitle(title string) (models.Event, bool) {
	for _, ev := range h.store.All() {
		if strings.EqualFold(ev.Title, title) || strings.Contains(strings.ToLower(ev.Title), strings.ToLower(title)) {
			return ev, true
		}
	}
	return models.Event{}, false
}

func (h *Handlers) broadcastEvent(msgType string, ev models.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.hub.Broadcast(models.Message{
		Type:      msgType,
		Timestamp: h.now().Format(time.RFC3339),
		Data:      payload,
	})
}

func (h *Handlers) midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, h.tz)
}
