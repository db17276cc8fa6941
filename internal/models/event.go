package models

import "time"

// Analytics event types
const (
	EventPageView        = "view"
	EventClick           = "click"
	EventUpload          = "upload"
	EventGenerateClick   = "generate_click"
	EventGenerateSuccess = "generate_success"
	EventGenerateFailure = "generate_failure"
)

// Event is a best-effort analytics row.
type Event struct {
	ID          string
	Type        string
	Fingerprint string
	UserID      *string
	Page        string
	Metadata    map[string]string
	IPHash      string
	CreatedAt   time.Time
}
