package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ExtractionRun tracks one end-to-end pipeline run. The API returns a run_id
// on POST /api/v1/extractions; the client polls GET /api/v1/extractions/{run_id}
// until status is completed or failed. This is the local audit record, not the
// remote job snapshot, which only lives for the duration of the orchestration.
type ExtractionRun struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	ListingURL   string     `db:"listing_url"   json:"listing_url"`
	Status       string     `db:"status"        json:"status"`
	Degraded     bool       `db:"degraded"      json:"degraded"`
	RoomCount    int        `db:"room_count"    json:"room_count"`
	ImageCount   int        `db:"image_count"   json:"image_count"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	StartedAt    *time.Time `db:"started_at"    json:"started_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at"  json:"completed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}
