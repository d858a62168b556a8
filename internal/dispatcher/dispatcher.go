// Package dispatcher is the asynchronous job substrate: an at-least-once
// Redis-backed queue with bounded exponential backoff. Handlers must be
// idempotent; the same job can be delivered more than once.
package dispatcher

import (
	"context"
	"encoding/json"
	"time"
)

type JobType string

const (
	JobTypeMandateAuthorize JobType = "mandate.authorize"
	JobTypePaymentCharge    JobType = "payment.charge"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusRetrying   JobStatus = "retrying"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      JobStatus       `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Enqueuer is the narrow contract services depend on.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType JobType, payload interface{}) (string, error)
}

// Processor handles one job type. Handle returns an error only for
// transient failures: terminal outcomes (rejections) must be recorded by
// the handler itself and reported as success so the job is not retried.
// OnExhausted fires once when the retry budget is spent.
type Processor struct {
	Handle      func(ctx context.Context, payload json.RawMessage) error
	OnExhausted func(ctx context.Context, payload json.RawMessage, lastErr error)
}

type Config struct {
	Workers        int
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	SweepInterval  time.Duration
	StuckJobAge    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 5
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 2 * time.Second
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 2 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.StuckJobAge <= 0 {
		c.StuckJobAge = 10 * time.Minute
	}
	return c
}

// RetryDelay computes the backoff before the given attempt number
// (1-based): base * 2^(attempt-1), capped at max.
func RetryDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
