package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusEmpty     RunStatus = "empty"
	RunStatusFailed    RunStatus = "failed"
)

type Run struct {
	ID          string        `json:"id" db:"id"`
	TriggeredBy string        `json:"triggered_by" db:"triggered_by"` // "schedule", "command" or a user id
	Status      RunStatus     `json:"status" db:"status"`
	Theme       string        `json:"theme" db:"theme"`
	DealCount   int           `json:"deal_count" db:"deal_count"`
	StartedAt   time.Time     `json:"started_at" db:"started_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty" db:"finished_at"`
	Duration    *int64        `json:"duration_ms,omitempty" db:"duration_ms"`
	Brands      BrandOutcomes `json:"brands" db:"brands"`
	Error       *string       `json:"error,omitempty" db:"error"`
}

// BrandOutcome is the per-brand result of one run.
type BrandOutcome struct {
	Brand      string `json:"brand"`
	DealCount  int    `json:"deal_count"`
	PosterPath string `json:"poster_path,omitempty"`
	Rendered   bool   `json:"rendered"`
	Delivered  int    `json:"delivered"`
	Degraded   int    `json:"degraded"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
}

type BrandOutcomes []BrandOutcome

func (b BrandOutcomes) Value() (driver.Value, error) {
	return json.Marshal(b)
}

func (b *BrandOutcomes) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, b)
}

// DeliveryRecord is one destination attempt persisted alongside a run.
type DeliveryRecord struct {
	ID          string    `json:"id" db:"id"`
	RunID       string    `json:"run_id" db:"run_id"`
	Brand       string    `json:"brand" db:"brand"`
	Destination string    `json:"destination" db:"destination"`
	Status      string    `json:"status" db:"status"`
	Error       *string   `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Finish marks the run as done with status at now.
func (r *Run) Finish(status RunStatus, now time.Time) {
	r.Status = status
	r.FinishedAt = &now
	ms := now.Sub(r.StartedAt).Milliseconds()
	r.Duration = &ms
}

// Fail marks the run as failed with err.
func (r *Run) Fail(err error, now time.Time) {
	msg := err.Error()
	r.Error = &msg
	r.Finish(RunStatusFailed, now)
}
