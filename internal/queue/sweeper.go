package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically recovers stalled leases and purges entries past the
// retention cutoff. One sweeper serves all queues of an engine.
type Sweeper struct {
	engine    Engine
	interval  time.Duration
	retention time.Duration
	logger    zerolog.Logger
}

func NewSweeper(engine Engine, interval, retention time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{engine: engine, interval: interval, retention: retention, logger: logger}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			requeued, err := s.engine.RequeueExpired(ctx, now)
			if err != nil {
				s.logger.Error().Err(err).Msg("sweeper: requeue expired failed")
			} else if requeued > 0 {
				s.logger.Info().Int("count", requeued).Msg("sweeper: redelivered stalled entries")
			}
			purged, err := s.engine.Purge(ctx, now.Add(-s.retention))
			if err != nil {
				s.logger.Error().Err(err).Msg("sweeper: purge failed")
			} else if purged > 0 {
				s.logger.Info().Int("count", purged).Msg("sweeper: purged finished entries")
			}
		}
	}
}
