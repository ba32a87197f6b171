package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memStatus string

const (
	memReady     memStatus = "ready"
	memLeased    memStatus = "leased"
	memCompleted memStatus = "completed"
	memDead      memStatus = "dead"
)

type memEntry struct {
	id           string
	queue        string
	payload      []byte
	status       memStatus
	attempts     int
	maxAttempts  int
	notBefore    time.Time
	leaseExpires time.Time
	leasedBy     string
	lastError    string
	seq          uint64
	finishedAt   time.Time
}

// MemoryEngine is an in-process Engine with the same lease/retry semantics as
// the Postgres engine. It backs tests and single-process deployments.
type MemoryEngine struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*memEntry
	seq     uint64
	closed  bool
}

func NewMemoryEngine(cfg Config) *MemoryEngine {
	return &MemoryEngine{cfg: cfg.withDefaults(), entries: make(map[string]*memEntry)}
}

func (e *MemoryEngine) Enqueue(ctx context.Context, queue string, payload []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return "", context.Canceled
	}
	e.seq++
	entry := &memEntry{
		id:          uuid.NewString(),
		queue:       queue,
		payload:     append([]byte(nil), payload...),
		status:      memReady,
		maxAttempts: e.cfg.MaxAttempts,
		notBefore:   time.Now(),
		seq:         e.seq,
	}
	e.entries[entry.id] = entry
	return entry.id, nil
}

func (e *MemoryEngine) Lease(ctx context.Context, queue, workerID string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	var candidate *memEntry
	for _, entry := range e.entries {
		if entry.queue != queue || entry.status != memReady || entry.notBefore.After(now) {
			continue
		}
		if candidate == nil || entry.notBefore.Before(candidate.notBefore) ||
			(entry.notBefore.Equal(candidate.notBefore) && entry.seq < candidate.seq) {
			candidate = entry
		}
	}
	if candidate == nil {
		return nil, ErrEmpty
	}

	candidate.status = memLeased
	candidate.leasedBy = workerID
	candidate.leaseExpires = now.Add(e.cfg.LeaseDuration)
	return &Entry{
		ID:          candidate.id,
		Queue:       candidate.queue,
		Payload:     append([]byte(nil), candidate.payload...),
		Attempts:    candidate.attempts,
		MaxAttempts: candidate.maxAttempts,
	}, nil
}

// Ack completes the entry if workerID still holds its lease. A stale ack,
// arriving after the lease expired and the entry moved on, changes nothing.
func (e *MemoryEngine) Ack(ctx context.Context, entryID, workerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.entries[entryID]
	if !ok || entry.status != memLeased || entry.leasedBy != workerID {
		return nil
	}
	entry.status = memCompleted
	entry.leasedBy = ""
	entry.finishedAt = time.Now()
	return nil
}

// Fail records a failed attempt if workerID still holds the lease; a stale
// fail is a no-op so it cannot re-ready an entry someone else is running.
func (e *MemoryEngine) Fail(ctx context.Context, entryID, workerID string, cause error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.entries[entryID]
	if !ok || entry.status != memLeased || entry.leasedBy != workerID {
		return nil
	}
	e.failLocked(entry, cause, time.Now())
	return nil
}

func (e *MemoryEngine) failLocked(entry *memEntry, cause error, now time.Time) {
	entry.attempts++
	entry.lastError = causeMessage(cause)
	entry.leasedBy = ""
	if IsPermanent(cause) || entry.attempts >= entry.maxAttempts {
		entry.status = memDead
		entry.finishedAt = now
		return
	}
	entry.status = memReady
	entry.notBefore = now.Add(Backoff(e.cfg.BackoffBase, entry.attempts, e.cfg.BackoffMax))
}

func (e *MemoryEngine) RequeueExpired(ctx context.Context, now time.Time) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := 0
	for _, entry := range e.entries {
		if entry.status == memLeased && entry.leaseExpires.Before(now) {
			e.failLocked(entry, errLeaseExpired, now)
			count++
		}
	}
	return count, nil
}

func (e *MemoryEngine) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := 0
	for id, entry := range e.entries {
		if (entry.status == memCompleted || entry.status == memDead) && entry.finishedAt.Before(olderThan) {
			delete(e.entries, id)
			count++
		}
	}
	return count, nil
}

func (e *MemoryEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var errLeaseExpired = &leaseExpiredError{}

type leaseExpiredError struct{}

func (*leaseExpiredError) Error() string { return "lease expired" }

var _ Engine = (*MemoryEngine)(nil)
