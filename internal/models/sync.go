package models

// SyncStatus is the outcome of exactly one sync attempt against the calendar
// provider. A new sync completion replaces the previous value wholesale; the
// fields are never merged individually.
type SyncStatus struct {
	Success       bool     `json:"success"`
	NewEvents     int      `json:"new_events"`
	UpdatedEvents int      `json:"updated_events"`
	DeletedEvents int      `json:"deleted_events"`
	Errors        []string `json:"errors"`
}
