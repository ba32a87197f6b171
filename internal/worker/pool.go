package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"photobot/internal/queue"
)

// Pool drains one queue with a fixed number of worker goroutines. Each
// goroutine leases, executes, and then acks or fails; the queue engine owns
// all retry bookkeeping.
type Pool struct {
	engine       queue.Engine
	queueName    string
	runner       *Runner
	concurrency  int
	pollInterval time.Duration
	logger       zerolog.Logger
}

func NewPool(engine queue.Engine, queueName string, runner *Runner, concurrency int, pollInterval time.Duration, logger zerolog.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Pool{
		engine:       engine,
		queueName:    queueName,
		runner:       runner,
		concurrency:  concurrency,
		pollInterval: pollInterval,
		logger:       logger.With().Str("queue", queueName).Logger(),
	}
}

// Run blocks until ctx is canceled and all workers have drained their
// in-flight entries.
func (p *Pool) Run(ctx context.Context) {
	p.logger.Info().Int("concurrency", p.concurrency).Msg("pool: starting")
	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		workerID := fmt.Sprintf("%s-%d", p.queueName, i)
		go func() {
			defer wg.Done()
			p.work(ctx, workerID)
		}()
	}
	wg.Wait()
	p.logger.Info().Msg("pool: stopped")
}

func (p *Pool) work(ctx context.Context, workerID string) {
	for {
		if ctx.Err() != nil {
			return
		}
		entry, err := p.engine.Lease(ctx, p.queueName, workerID)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				p.sleep(ctx)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			p.logger.Error().Err(err).Str("worker_id", workerID).Msg("pool: lease failed")
			p.sleep(ctx)
			continue
		}
		p.handle(ctx, workerID, entry)
	}
}

func (p *Pool) handle(ctx context.Context, workerID string, entry *queue.Entry) {
	err := p.runner.Execute(ctx, entry)
	// Settle with a fresh context so shutdown cannot strand a finished entry
	// until its lease expires. The engine matches the settle against this
	// worker's lease, so a settle arriving after expiry is a no-op.
	settleCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err == nil {
		if ackErr := p.engine.Ack(settleCtx, entry.ID, workerID); ackErr != nil {
			p.logger.Error().Err(ackErr).Str("entry_id", entry.ID).Msg("pool: ack failed")
		}
		return
	}
	if failErr := p.engine.Fail(settleCtx, entry.ID, workerID, err); failErr != nil {
		p.logger.Error().Err(failErr).Str("entry_id", entry.ID).Str("worker_id", workerID).Msg("pool: fail bookkeeping failed")
	}
}

func (p *Pool) sleep(ctx context.Context) {
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
