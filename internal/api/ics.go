package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/emersion/go-ical"
	"github.com/gin-gonic/gin"

	"calagent/internal/models"
)

// ICSFeed renders the full event set as an iCalendar document, so any
// standards-compliant calendar app can subscribe to this service read-only.
func (h *Handlers) ICSFeed(c *gin.Context) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//calagent//EN")

	for _, ev := range h.store.All() {
		cal.Children = append(cal.Children, toICal(ev))
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		h.logger.Error("Failed to encode ICS feed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode calendar"})
		return
	}
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

// toICal converts an internal Event to an ical VEVENT component.
func toICal(event models.Event) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, event.ID)
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime)

	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		ve.Props.SetText(ical.PropLocation, event.Location)
	}
	if event.Recurrence != "" {
		p := ical.NewProp(ical.PropRecurrenceRule)
		p.Value = event.Recurrence
		ve.Props.Add(p)
	}
	for _, attendee := range event.Participants {
		p := ical.NewProp(ical.PropAttendee)
		p.SetText(fmt.Sprintf("mailto:%s", attendee))
		ve.Props.Add(p)
	}
	return ve
}
