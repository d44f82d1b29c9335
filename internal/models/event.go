package models

import "time"

// Event represents a standard calendar event.
// This is an internal representation, independent of any specific calendar provider.
type Event struct {
	ID           string    `json:"id"`                     // Unique, provider-stable identifier
	GoogleID     string    `json:"google_id,omitempty"`    // Identifier of the event at the provider, if synced
	Title        string    `json:"title"`                  // Summary or title of the event
	Description  string    `json:"description,omitempty"`  // Detailed description of the event
	StartTime    time.Time `json:"start_time"`             // Start of the event
	EndTime      time.Time `json:"end_time"`               // End of the event, never before StartTime
	Location     string    `json:"location,omitempty"`     // Location of the event
	Participants []string  `json:"participants,omitempty"` // Participant identifiers (emails)
	CalendarID   string    `json:"calendar_id,omitempty"`  // Provider calendar this event belongs to
	Source       string    `json:"source,omitempty"`       // Origin of the event (e.g., "google", "local")
	Recurrence   string    `json:"recurrence,omitempty"`   // RRULE string for recurring events, empty otherwise
	SkipHolidays bool      `json:"skip_holidays,omitempty"` // Recurring occurrences falling on holidays are suppressed
}

// EventCreateRequest is the payload accepted when creating an event through the API.
type EventCreateRequest struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Location     string    `json:"location"`
	Participants []string  `json:"participants"`
	Recurrence   string    `json:"recurrence"`
	SkipHolidays bool      `json:"skip_holidays"`
}
