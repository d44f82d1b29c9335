package models

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestNewSyncCompleteMessage(t *testing.T) {
	ts := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	status := SyncStatus{Success: true, NewEvents: 2, Errors: []string{"calendar a: boom"}}

	msg := NewSyncCompleteMessage(status, ts)
	if msg.Type != TypeSyncComplete {
		t.Fatalf("expected %s, got %s", TypeSyncComplete, msg.Type)
	}
	if msg.Timestamp != ts.Format(time.RFC3339) {
		t.Fatalf("timestamp = %q", msg.Timestamp)
	}
	if got := DecodeSyncStatus(msg.Data); !reflect.DeepEqual(got, status) {
		t.Fatalf("payload round trip mismatch: %+v", got)
	}
}

func TestDecodeSyncStatusEmptyPayload(t *testing.T) {
	got := DecodeSyncStatus(json.RawMessage(`{}`))
	want := SyncStatus{Success: false, NewEvents: 0, UpdatedEvents: 0, DeletedEvents: 0, Errors: []string{}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected fully defaulted status, got %+v", got)
	}
}

func TestDecodeSyncStatusMissingPayload(t *testing.T) {
	got := DecodeSyncStatus(nil)
	if got.Success || got.NewEvents != 0 || got.Errors == nil || len(got.Errors) != 0 {
		t.Fatalf("expected defaulted status for absent payload, got %+v", got)
	}
}

func TestDecodeSyncStatusFullPayload(t *testing.T) {
	raw := json.RawMessage(`{"success":true,"new_events":3,"updated_events":1,"deleted_events":0,"errors":[]}`)
	got := DecodeSyncStatus(raw)
	want := SyncStatus{Success: true, NewEvents: 3, UpdatedEvents: 1, DeletedEvents: 0, Errors: []string{}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected payload passed through exactly, got %+v", got)
	}
}

func TestDecodeSyncStatusMalformed(t *testing.T) {
	got := DecodeSyncStatus(json.RawMessage(`"not an object"`))
	if got.Success || got.NewEvents != 0 || len(got.Errors) != 0 {
		t.Fatalf("malformed payload must default, got %+v", got)
	}
}

func TestDecodeSyncStatusNegativeCountsClamped(t *testing.T) {
	raw := json.RawMessage(`{"new_events":-4,"updated_events":-1}`)
	got := DecodeSyncStatus(raw)
	if got.NewEvents != 0 || got.UpdatedEvents != 0 {
		t.Fatalf("negative counts must clamp to zero, got %+v", got)
	}
}

func TestDecodeSyncStatusErrorsKept(t *testing.T) {
	raw := json.RawMessage(`{"success":false,"errors":["calendar a: boom","calendar b: nope"]}`)
	got := DecodeSyncStatus(raw)
	if len(got.Errors) != 2 || got.Errors[0] != "calendar a: boom" {
		t.Fatalf("expected error list preserved in order, got %+v", got.Errors)
	}
}
