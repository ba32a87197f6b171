package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"photobot/internal/infra"
	"photobot/internal/sqlinline"
)

// PostgresEngine persists queue entries in the queue_entries table. Leasing
// relies on `for update skip locked`, so no two workers can claim the same
// entry even across processes.
type PostgresEngine struct {
	sql    infra.SQLExecutor
	cfg    Config
	logger zerolog.Logger
}

// NewPostgresEngine constructs an engine over an existing SQL executor. The
// executor's pool lifecycle belongs to the caller.
func NewPostgresEngine(sql infra.SQLExecutor, cfg Config, logger zerolog.Logger) *PostgresEngine {
	return &PostgresEngine{sql: sql, cfg: cfg.withDefaults(), logger: logger}
}

func (e *PostgresEngine) Enqueue(ctx context.Context, queue string, payload []byte) (string, error) {
	id := uuid.NewString()
	if _, err := e.sql.Exec(ctx, sqlinline.QEnqueueEntry, id, queue, payload, e.cfg.MaxAttempts); err != nil {
		return "", fmt.Errorf("queue: enqueue: %w", err)
	}
	return id, nil
}

func (e *PostgresEngine) Lease(ctx context.Context, queue, workerID string) (*Entry, error) {
	row := e.sql.QueryRow(ctx, sqlinline.QLeaseEntry, queue, workerID, e.cfg.LeaseDuration.Seconds())
	var entry Entry
	if err := row.Scan(&entry.ID, &entry.Queue, &entry.Payload, &entry.Attempts, &entry.MaxAttempts); err != nil {
		if infra.IsNoRows(err) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("queue: lease: %w", err)
	}
	return &entry, nil
}

// Ack is conditional on workerID still holding the lease; a stale ack
// matches zero rows and settles nothing.
func (e *PostgresEngine) Ack(ctx context.Context, entryID, workerID string) error {
	if _, err := e.sql.Exec(ctx, sqlinline.QAckEntry, entryID, workerID); err != nil {
		return fmt.Errorf("queue: ack %s: %w", entryID, err)
	}
	return nil
}

func (e *PostgresEngine) Fail(ctx context.Context, entryID, workerID string, cause error) error {
	var attempts, maxAttempts int
	row := e.sql.QueryRow(ctx, sqlinline.QSelectLeasedEntry, entryID, workerID)
	if err := row.Scan(&attempts, &maxAttempts); err != nil {
		if infra.IsNoRows(err) {
			// The lease expired and the entry moved on; the sweeper already
			// charged this attempt, so there is nothing left to settle.
			e.logger.Debug().Str("entry_id", entryID).Str("worker_id", workerID).Msg("queue: stale fail ignored")
			return nil
		}
		return fmt.Errorf("queue: fail %s: %w", entryID, err)
	}

	attempt := attempts + 1
	if IsPermanent(cause) || attempt >= maxAttempts {
		if _, err := e.sql.Exec(ctx, sqlinline.QMarkEntryDead, entryID, causeMessage(cause), workerID); err != nil {
			return fmt.Errorf("queue: mark dead %s: %w", entryID, err)
		}
		e.logger.Warn().Str("entry_id", entryID).Int("attempts", attempt).Msg("queue: entry permanently failed")
		return nil
	}

	delay := Backoff(e.cfg.BackoffBase, attempt, e.cfg.BackoffMax)
	if _, err := e.sql.Exec(ctx, sqlinline.QScheduleEntryRetry, entryID, causeMessage(cause), delay.Seconds(), workerID); err != nil {
		return fmt.Errorf("queue: schedule retry %s: %w", entryID, err)
	}
	e.logger.Info().Str("entry_id", entryID).Int("attempt", attempt).Dur("delay", delay).Msg("queue: retry scheduled")
	return nil
}

func (e *PostgresEngine) RequeueExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := e.sql.Exec(ctx, sqlinline.QRequeueExpired, now, e.cfg.BackoffBase.Seconds(), e.cfg.BackoffMax.Seconds())
	if err != nil {
		return 0, fmt.Errorf("queue: requeue expired: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (e *PostgresEngine) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := e.sql.Exec(ctx, sqlinline.QPurgeEntries, olderThan)
	if err != nil {
		return 0, fmt.Errorf("queue: purge: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Close is part of the Engine contract; the underlying pool is owned by the
// caller, so there is nothing to release here.
func (e *PostgresEngine) Close() error { return nil }

var _ Engine = (*PostgresEngine)(nil)
