package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CycleFunc runs one ingestion pass and reports how many events it applied.
type CycleFunc func(ctx context.Context) (int, error)

// Options tune scheduler behaviour. ActiveInterval is the pause after a
// cycle that applied events; IdleInterval after an empty cycle, so a quiet
// ledger is polled less aggressively.
type Options struct {
	ActiveInterval time.Duration
	IdleInterval   time.Duration
	StartupDelay   time.Duration
}

// Scheduler drives repeated ingestion cycles with adaptive pacing.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.ActiveInterval <= 0 || opts.IdleInterval <= 0 {
		panic("scheduler intervals must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the cycle function until ctx is cancelled. A cycle
// error is logged and does not stop the loop; the next pause uses the idle
// interval.
func (s *Scheduler) Run(ctx context.Context, cycle CycleFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := sleep(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		processed, err := cycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error().Err(err).Msg("ingestion cycle failed")
		}

		delay := s.opts.IdleInterval
		if processed > 0 && err == nil {
			delay = s.opts.ActiveInterval
			s.logger.Debug().Int("events", processed).Dur("delay", delay).Msg("active cycle complete")
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
