package domain

import "time"

// GenerationKind enumerates supported generation job families. Each kind is
// served by its own queue and worker pool.
type GenerationKind string

const (
	KindRestoration GenerationKind = "restoration"
	KindEffect      GenerationKind = "effect"
	KindUpgrade     GenerationKind = "upgrade"
	KindVideo       GenerationKind = "video"
)

// QueueName returns the work queue that serves this kind.
func (k GenerationKind) QueueName() string {
	return "generations:" + string(k)
}

// GenerationStatus enumerates job lifecycle states. Transitions are forward
// only; COMPLETED and FAILED are terminal.
type GenerationStatus string

const (
	StatusPending    GenerationStatus = "PENDING"
	StatusProcessing GenerationStatus = "PROCESSING"
	StatusCompleted  GenerationStatus = "COMPLETED"
	StatusFailed     GenerationStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s GenerationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Generation is the durable record of one generation attempt. It outlives the
// queue entry that carried it and is never deleted by the core.
type Generation struct {
	ID           string
	UserID       int64
	Kind         GenerationKind
	Status       GenerationStatus
	InputRefs    []string
	OutputRefs   []string
	ErrorMessage string
	// ProviderRef holds the tracking identifier returned by asynchronous
	// providers; the completion webhook correlates on it.
	ProviderRef string
	ChatID      int64
	MessageID   int
	// CostPaid is the exact amount debited for this generation. Refunds
	// credit this value back, never a re-read configuration price.
	CostPaid  int
	CreatedAt time.Time
	UpdatedAt time.Time
}
