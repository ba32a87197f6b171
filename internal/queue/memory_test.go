package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MaxAttempts:   3,
		LeaseDuration: 50 * time.Millisecond,
		BackoffBase:   time.Millisecond,
		BackoffMax:    5 * time.Millisecond,
		Retention:     time.Hour,
	}
}

func TestMemoryEngineLeaseIsExclusive(t *testing.T) {
	engine := NewMemoryEngine(testConfig())
	ctx := context.Background()

	_, err := engine.Enqueue(ctx, "q", []byte(`{"n":1}`))
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	leased := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := engine.Lease(ctx, "q", "w")
			if err == nil && entry != nil {
				mu.Lock()
				leased++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, leased)
}

func TestMemoryEngineLeaseOrderIsFIFO(t *testing.T) {
	engine := NewMemoryEngine(testConfig())
	ctx := context.Background()

	first, err := engine.Enqueue(ctx, "q", []byte(`1`))
	require.NoError(t, err)
	_, err = engine.Enqueue(ctx, "q", []byte(`2`))
	require.NoError(t, err)

	entry, err := engine.Lease(ctx, "q", "w")
	require.NoError(t, err)
	assert.Equal(t, first, entry.ID)
}

func TestMemoryEngineRetryThenDead(t *testing.T) {
	engine := NewMemoryEngine(testConfig())
	ctx := context.Background()

	id, err := engine.Enqueue(ctx, "q", []byte(`{}`))
	require.NoError(t, err)

	for attempt := 0; attempt < 3; attempt++ {
		var entry *Entry
		require.Eventually(t, func() bool {
			var leaseErr error
			entry, leaseErr = engine.Lease(ctx, "q", "w")
			return leaseErr == nil
		}, time.Second, time.Millisecond, "entry should become leasable again after backoff")
		assert.Equal(t, id, entry.ID)
		assert.Equal(t, attempt, entry.Attempts)
		require.NoError(t, engine.Fail(ctx, entry.ID, "w", errors.New("boom")))
	}

	// Attempts exhausted: the entry is dead and never redelivered.
	time.Sleep(10 * time.Millisecond)
	_, err = engine.Lease(ctx, "q", "w")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestMemoryEnginePermanentFailureSkipsRetries(t *testing.T) {
	engine := NewMemoryEngine(testConfig())
	ctx := context.Background()

	_, err := engine.Enqueue(ctx, "q", []byte(`{}`))
	require.NoError(t, err)

	entry, err := engine.Lease(ctx, "q", "w")
	require.NoError(t, err)
	require.NoError(t, engine.Fail(ctx, entry.ID, "w", Permanent(errors.New("unknown effect"))))

	time.Sleep(10 * time.Millisecond)
	_, err = engine.Lease(ctx, "q", "w")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestMemoryEngineRequeueExpiredRecoversStalledLease(t *testing.T) {
	engine := NewMemoryEngine(testConfig())
	ctx := context.Background()

	id, err := engine.Enqueue(ctx, "q", []byte(`{}`))
	require.NoError(t, err)

	entry, err := engine.Lease(ctx, "q", "w-crashed")
	require.NoError(t, err)
	require.Equal(t, id, entry.ID)

	// Before expiry nothing moves.
	requeued, err := engine.RequeueExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, requeued)

	// The short test lease runs out and the sweeper reclaims the entry.
	require.Eventually(t, func() bool {
		n, sweepErr := engine.RequeueExpired(ctx, time.Now())
		return sweepErr == nil && n == 1
	}, time.Second, 5*time.Millisecond)

	var recovered *Entry
	require.Eventually(t, func() bool {
		var leaseErr error
		recovered, leaseErr = engine.Lease(ctx, "q", "w-2")
		return leaseErr == nil
	}, time.Second, time.Millisecond)
	assert.Equal(t, id, recovered.ID)
	// The expired lease consumed an attempt.
	assert.Equal(t, 1, recovered.Attempts)
}

func TestMemoryEngineStaleSettleIsNoOp(t *testing.T) {
	engine := NewMemoryEngine(testConfig())
	ctx := context.Background()

	id, err := engine.Enqueue(ctx, "q", []byte(`{}`))
	require.NoError(t, err)

	// Worker A stalls past its lease and the entry is handed to worker B.
	entry, err := engine.Lease(ctx, "q", "w-a")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		n, sweepErr := engine.RequeueExpired(ctx, time.Now())
		return sweepErr == nil && n == 1
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		_, leaseErr := engine.Lease(ctx, "q", "w-b")
		return leaseErr == nil
	}, time.Second, time.Millisecond)

	// A's late settle must not touch B's live lease: no second delivery may
	// open up, and the entry must not be parked.
	require.NoError(t, engine.Fail(ctx, entry.ID, "w-a", errors.New("late")))
	require.NoError(t, engine.Ack(ctx, entry.ID, "w-a"))
	_, err = engine.Lease(ctx, "q", "w-c")
	assert.ErrorIs(t, err, ErrEmpty, "the entry belongs to w-b until its lease ends")

	// B, the current holder, still settles normally.
	require.NoError(t, engine.Ack(ctx, id, "w-b"))
	purged, err := engine.Purge(ctx, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
}

func TestMemoryEnginePurgeRemovesFinishedEntries(t *testing.T) {
	engine := NewMemoryEngine(testConfig())
	ctx := context.Background()

	ackedID, err := engine.Enqueue(ctx, "q", []byte(`{}`))
	require.NoError(t, err)
	entry, err := engine.Lease(ctx, "q", "w")
	require.NoError(t, err)
	require.Equal(t, ackedID, entry.ID)
	require.NoError(t, engine.Ack(ctx, entry.ID, "w"))

	pendingID, err := engine.Enqueue(ctx, "q", []byte(`{}`))
	require.NoError(t, err)

	purged, err := engine.Purge(ctx, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	// The unfinished entry survives retention.
	survivor, err := engine.Lease(ctx, "q", "w")
	require.NoError(t, err)
	assert.Equal(t, pendingID, survivor.ID)
}

func TestEntryFinalAttempt(t *testing.T) {
	entry := &Entry{Attempts: 0, MaxAttempts: 3}
	assert.False(t, entry.FinalAttempt())
	entry.Attempts = 2
	assert.True(t, entry.FinalAttempt())
}
