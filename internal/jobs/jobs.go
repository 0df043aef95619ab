// Package jobs runs background work off a sqlite-backed queue: the hourly
// overdue-invoice sweep and contact inquiry follow-ups.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Job types handled by this portal.
const (
	TypeMarkOverdue     = "invoices.mark_overdue"
	TypeContactReceived = "contact.received"
)

// Job statuses.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusRetry   = "retry"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Job is one row of the jobs table.
type Job struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	ScheduledAt int64           `json:"scheduled_at"`
	NextTryAt   *int64          `json:"next_try_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Created     int64           `json:"created"`
	Updated     int64           `json:"updated"`
}

// Handler processes one job. A nil error marks the job done; a non-nil error
// schedules a retry until MaxAttempts, then the job moves to the dead letter
// table.
type Handler func(ctx context.Context, j *Job) error

// ErrMaxAttempts indicates the job reached max attempts.
var ErrMaxAttempts = errors.New("max attempts reached")

// BackoffDuration returns the retry delay for attempt n: 2^n seconds capped
// at five minutes.
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	max := 5 * time.Minute
	if d > max {
		return max
	}
	return d
}
