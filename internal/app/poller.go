package app

import (
	"context"
	"time"

	"github.com/five82/crewsync/internal/state"
)

const (
	defaultPollInterval = 5 * time.Minute
	retryInterval       = 2 * time.Second
	maxBackoff          = 30 * time.Second
)

// syncer is the part of the engine the poller drives.
type syncer interface {
	Sync(ctx context.Context) bool
	State() state.EngineState
}

// StartPoller launches a background goroutine that runs a sync cycle at a
// fixed cadence, retrying sooner with exponential backoff while cycles fail.
// It returns immediately; the returned channel closes once the goroutine has
// exited after ctx is cancelled.
func StartPoller(ctx context.Context, eng syncer, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if ctx.Err() != nil {
				return
			}
			// A cycle started from elsewhere wins; this tick is dropped.
			eng.Sync(ctx)

			timer := time.NewTimer(nextDelay(eng.State().ConsecutiveFailures, interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
	return done
}

// nextDelay is the regular interval after a good cycle and a backoff starting
// at retryInterval after failed ones, never longer than interval.
func nextDelay(failures int, interval time.Duration) time.Duration {
	if failures <= 0 {
		return interval
	}
	return min(calculateBackoff(failures-1, retryInterval), interval)
}

// calculateBackoff doubles base per failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
