package model

import "time"

// ScheduledJob describes a recurring daily job registered with the scheduler.
type ScheduledJob struct {
	ID           string        `json:"id"`
	Hour         int           `json:"hour"`
	Minute       int           `json:"minute"`
	MisfireGrace time.Duration `json:"misfire_grace"`
	Next         *time.Time    `json:"next_run_at,omitempty"`
}
