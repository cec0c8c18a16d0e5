package engine

import (
	"context"
	"sync"
	"time"
)

// Result is the terminal signal of a background sync.
type Result int

const (
	// ResultNoData means the cycle found no changes, or the budget ran out
	// before changes were confirmed.
	ResultNoData Result = iota
	// ResultNewData means fetched data changed the tracked day.
	ResultNewData
	// ResultFailed means fetch or decode failed and built-in data was used.
	ResultFailed
	// ResultSkipped means another cycle was already in flight.
	ResultSkipped
)

func (r Result) String() string {
	switch r {
	case ResultNoData:
		return "no-data"
	case ResultNewData:
		return "new-data"
	case ResultFailed:
		return "failed"
	case ResultSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

func (o outcome) result() Result {
	switch {
	case o.fallback:
		return ResultFailed
	case o.changes > 0:
		return ResultNewData
	default:
		return ResultNoData
	}
}

// BackgroundSync starts a cycle bounded by budget and returns immediately.
// done is called exactly once: with the cycle's result if it ends in time,
// or with ResultNoData when the budget expires first. On expiry the cycle's
// context is cancelled so the in-flight request is abandoned.
func (e *Engine) BackgroundSync(ctx context.Context, budget time.Duration, done func(Result)) {
	var once sync.Once
	signal := func(r Result) {
		once.Do(func() {
			if done != nil {
				done(r)
			}
		})
	}

	if !e.tryBegin() {
		signal(ResultSkipped)
		return
	}

	cycleCtx, cancel := context.WithCancel(ctx)
	finished := make(chan struct{})

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		defer e.inflight.Release(1)
		defer close(finished)
		defer cancel()
		out := e.runCycle(cycleCtx)
		signal(out.result())
	}()

	// The deadline timer is independent of the request so the host gets its
	// signal even if the fetcher ignores cancellation.
	go func() {
		defer e.wg.Done()
		timer := time.NewTimer(budget)
		defer timer.Stop()
		select {
		case <-finished:
		case <-timer.C:
			if e.metrics != nil {
				e.metrics.BudgetExpired.Inc()
			}
			e.log.Warn("background sync budget expired", "budget", budget)
			signal(ResultNoData)
			cancel()
		}
	}()
}

// SyncWithBudget runs BackgroundSync and blocks until its terminal signal.
func (e *Engine) SyncWithBudget(ctx context.Context, budget time.Duration) Result {
	results := make(chan Result, 1)
	e.BackgroundSync(ctx, budget, func(r Result) { results <- r })
	return <-results
}
