package domain

import "context"

// GenerationRepository defines persistence for generation records. The Mark*
// methods enforce forward-only transitions: moving a record that is already
// terminal returns ErrAlreadyFinal, which callers use for idempotency.
type GenerationRepository interface {
	Create(ctx context.Context, gen *Generation) error
	GetByID(ctx context.Context, id string) (*Generation, error)
	// MarkProcessing records the debited cost and moves the record to
	// PROCESSING. Re-entrant for retry attempts of a non-terminal record.
	MarkProcessing(ctx context.Context, id string, costPaid int) error
	// SetProviderRef stores the async provider tracking identifier.
	SetProviderRef(ctx context.Context, id, providerRef string) error
	MarkCompleted(ctx context.Context, id string, outputRefs []string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
}

// BalanceLedger mutates the per-user remaining-generations counter. Both
// mutations are single atomic store operations; Debit fails with
// ErrInsufficientBalance instead of driving the counter negative.
type BalanceLedger interface {
	Debit(ctx context.Context, userID int64, amount int) (remaining int, err error)
	Credit(ctx context.Context, userID int64, amount int) (remaining int, err error)
	Remaining(ctx context.Context, userID int64) (int, error)
}
