// Package queue provides durable, at-least-once work queues with exclusive
// leases, bounded retries with exponential backoff, and retention purging.
// Two engines implement the same contract: a Postgres engine for production
// and an in-memory engine for tests and single-process deployments.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmpty is returned by Lease when no entry is eligible.
var ErrEmpty = errors.New("queue: no entry available")

// Entry is one unit of deliverable work. Attempts counts finished (failed)
// delivery attempts; the attempt a worker is currently running is Attempts+1.
type Entry struct {
	ID          string
	Queue       string
	Payload     []byte
	Attempts    int
	MaxAttempts int
}

// FinalAttempt reports whether the current delivery is the last one the
// retry policy allows.
func (e *Entry) FinalAttempt() bool {
	return e.Attempts+1 >= e.MaxAttempts
}

// Config tunes retry, lease, and retention behavior of an engine.
type Config struct {
	MaxAttempts   int
	LeaseDuration time.Duration
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	Retention     time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = 5 * time.Minute
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 2 * time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 5 * time.Minute
	}
	if c.Retention <= 0 {
		c.Retention = 24 * time.Hour
	}
	return c
}

// Engine is the work queue contract.
//
// Enqueue never blocks on execution; an infrastructure failure surfaces
// synchronously so the caller can treat the job as never started. Lease hands
// the next eligible entry to exactly one worker for the lease duration; an
// entry whose lease expires without Ack or Fail becomes eligible again via
// RequeueExpired, consuming an attempt. Ack and Fail take the settling
// worker's id and apply only while that worker still holds the lease: once a
// lease has expired and the entry was handed to someone else, the late settle
// is a no-op, so a slow worker can never release or re-ready an entry out
// from under the current holder. Fail either schedules a retry after an
// exponential backoff or, when attempts are exhausted or the cause is
// permanent, parks the entry as dead. Completed and dead entries are kept
// until Purge removes those older than the retention cutoff.
type Engine interface {
	Enqueue(ctx context.Context, queue string, payload []byte) (string, error)
	Lease(ctx context.Context, queue, workerID string) (*Entry, error)
	Ack(ctx context.Context, entryID, workerID string) error
	Fail(ctx context.Context, entryID, workerID string, cause error) error
	RequeueExpired(ctx context.Context, now time.Time) (int, error)
	Purge(ctx context.Context, olderThan time.Time) (int, error)
	Close() error
}

// PermanentError marks a failure that must not be retried: the entry goes
// straight to dead regardless of remaining attempts.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the queue will not redeliver the entry.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is (or wraps) a non-retryable failure.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

func causeMessage(cause error) string {
	if cause == nil {
		return "unknown failure"
	}
	return cause.Error()
}
