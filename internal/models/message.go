package models

import (
	"encoding/json"
	"time"
)

// Message types carried on the notification channel. Every frame is a JSON
// object with a mandatory "type" discriminator; receivers ignore types they
// do not recognize.
const (
	TypePing                  = "ping"
	TypePong                  = "pong"
	TypeConnectionEstablished = "connection_established"
	TypeSyncComplete          = "sync_complete"
	TypeEventCreated          = "event_created"
	TypeEventDeleted          = "event_deleted"
)

// Message is the wire envelope for the notification channel. sync_complete
// frames carry their payload under "data"; older producers used "stats", so
// both are decoded (data preferred).
type Message struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Stats     json.RawMessage `json:"stats,omitempty"`
}

// NewSyncCompleteMessage wraps a sync outcome in the envelope every producer
// of sync_complete frames uses, so user-triggered and scheduled syncs cannot
// announce themselves differently.
func NewSyncCompleteMessage(status SyncStatus, ts time.Time) Message {
	payload, err := json.Marshal(status)
	if err != nil {
		payload = nil
	}
	return Message{
		Type:      TypeSyncComplete,
		Timestamp: ts.Format(time.RFC3339),
		Data:      payload,
	}
}

// SyncCompletePayload mirrors SyncStatus but with optional fields, because the
// notification payload shape is not contractually guaranteed by the producer.
// DecodeSyncStatus turns it into a total SyncStatus value.
type SyncCompletePayload struct {
	Success       *bool    `json:"success"`
	NewEvents     *int     `json:"new_events"`
	UpdatedEvents *int     `json:"updated_events"`
	DeletedEvents *int     `json:"deleted_events"`
	Errors        []string `json:"errors"`
}

// DecodeSyncStatus converts a possibly partial sync_complete payload into a
// SyncStatus, defaulting every missing numeric field to 0, the success flag
// to false and the error list to an empty slice.
func DecodeSyncStatus(raw json.RawMessage) SyncStatus {
	out := SyncStatus{Errors: []string{}}
	if len(raw) == 0 {
		return out
	}
	var p SyncCompletePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return out
	}
	if p.Success != nil {
		out.Success = *p.Success
	}
	if p.NewEvents != nil && *p.NewEvents > 0 {
		out.NewEvents = *p.NewEvents
	}
	if p.UpdatedEvents != nil && *p.UpdatedEvents > 0 {
		out.UpdatedEvents = *p.UpdatedEvents
	}
	if p.DeletedEvents != nil && *p.DeletedEvents > 0 {
		out.DeletedEvents = *p.DeletedEvents
	}
	if p.Errors != nil {
		out.Errors = p.Errors
	}
	return out
}
