package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/five82/crewsync/internal/crewapi"
	"github.com/five82/crewsync/internal/diff"
	"github.com/five82/crewsync/internal/fallback"
	"github.com/five82/crewsync/internal/logging"
	"github.com/five82/crewsync/internal/metrics"
	"github.com/five82/crewsync/internal/roster"
	"github.com/five82/crewsync/internal/state"
)

// SnapshotCache is the durable snapshot store. *cache.Store implements it.
type SnapshotCache interface {
	Load() (*roster.Snapshot, error)
	Save(roster.Snapshot) error
}

// Options configure an Engine. Fetcher, Store and UserID are required.
type Options struct {
	Fetcher crewapi.Fetcher
	Cache   SnapshotCache
	Store   *state.Store
	Logger  logging.Logger
	Metrics *metrics.Metrics
	UserID  string

	// TrackedDay resolves the tracked day key at the start of each cycle.
	// Defaults to the local calendar day of now.
	TrackedDay func(now time.Time) string
	// Fallback supplies data when fetch or decode fails. Defaults to
	// fallback.Provide.
	Fallback func(trackedDay string) (previous, current roster.Snapshot)
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine runs sync cycles: fetch, decode, diff against the previous
// snapshot, publish, cache. At most one cycle is in flight at a time.
type Engine struct {
	fetcher    crewapi.Fetcher
	cache      SnapshotCache
	store      *state.Store
	log        logging.Logger
	metrics    *metrics.Metrics
	body       []byte
	trackedDay func(time.Time) string
	fallback   func(string) (roster.Snapshot, roster.Snapshot)
	now        func() time.Time

	inflight *semaphore.Weighted
	cycles   atomic.Uint64
	pinned   atomic.Pointer[string]
	notify   chan diff.Summary
	wg       sync.WaitGroup
}

// New validates opts and builds an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("engine requires a fetcher")
	}
	if opts.Store == nil {
		return nil, errors.New("engine requires a state store")
	}
	body, err := crewapi.RequestBody(opts.UserID)
	if err != nil {
		return nil, fmt.Errorf("build request body: %w", err)
	}

	e := &Engine{
		fetcher:    opts.Fetcher,
		cache:      opts.Cache,
		store:      opts.Store,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		body:       body,
		trackedDay: opts.TrackedDay,
		fallback:   opts.Fallback,
		now:        opts.Now,
		inflight:   semaphore.NewWeighted(1),
		notify:     make(chan diff.Summary, 1),
	}
	if e.cache == nil {
		e.cache = noCache{}
	}
	if e.log == nil {
		e.log = logging.Nop()
	}
	if e.trackedDay == nil {
		e.trackedDay = func(now time.Time) string { return roster.DayKey(now.Local()) }
	}
	if e.fallback == nil {
		e.fallback = fallback.Provide
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Seed publishes the cached snapshot, if any, so consumers have data before
// the first network round trip. A cache fault is logged and treated as an
// empty cache. It reports whether a snapshot was seeded.
func (e *Engine) Seed() bool {
	snap, err := e.cache.Load()
	if err != nil {
		e.log.Warn("cache load failed, starting without seed data", "error", err)
		return false
	}
	if snap == nil {
		e.log.Debug("no cached schedule")
		return false
	}

	tracked := e.currentTrackedDay(e.now())
	seeded := false
	e.store.Publish(func(s *state.EngineState) {
		if s.Snapshot != nil {
			return
		}
		s.Snapshot = snap
		s.TrackedDay = tracked
		seeded = true
	})
	if seeded {
		e.log.Info("seeded schedule from cache", "days", len(snap.Days), "fetched_at", snap.FetchedAt)
	}
	return seeded
}

// Sync runs one cycle and blocks until it ends. It returns false without
// doing anything when another cycle is already in flight.
func (e *Engine) Sync(ctx context.Context) bool {
	if !e.tryBegin() {
		return false
	}
	defer e.inflight.Release(1)
	e.runCycle(ctx)
	return true
}

// Go starts a cycle in the background and returns immediately. The
// single-flight decision is made before returning: false means another
// cycle was in flight and this request was dropped.
func (e *Engine) Go(ctx context.Context) bool {
	if !e.tryBegin() {
		return false
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.inflight.Release(1)
		e.runCycle(ctx)
	}()
	return true
}

// Wait blocks until cycles started by Go or BackgroundSync have finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// State returns a copy of the published engine state.
func (e *Engine) State() state.EngineState {
	return e.store.Snapshot()
}

// Subscribe streams engine state transitions. See state.Store.Subscribe.
func (e *Engine) Subscribe() (<-chan state.EngineState, func()) {
	return e.store.Subscribe()
}

// Notifications delivers a summary each time a cycle ends with pending
// changes. Undelivered summaries are replaced by newer ones.
func (e *Engine) Notifications() <-chan diff.Summary {
	return e.notify
}

// AcknowledgeChanges clears the pending-changes flag once a consumer has
// shown them. The change list itself stays until the next cycle.
func (e *Engine) AcknowledgeChanges() {
	e.store.Publish(func(s *state.EngineState) {
		s.HasPendingChanges = false
	})
}

// PinTrackedDay overrides the tracked day for future cycles. An empty key
// restores the default resolution.
func (e *Engine) PinTrackedDay(key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		e.pinned.Store(nil)
	} else {
		e.pinned.Store(&key)
	}
	tracked := e.currentTrackedDay(e.now())
	e.store.Publish(func(s *state.EngineState) {
		s.TrackedDay = tracked
	})
}

func (e *Engine) currentTrackedDay(now time.Time) string {
	if p := e.pinned.Load(); p != nil {
		return *p
	}
	return e.trackedDay(now)
}

func (e *Engine) tryBegin() bool {
	if e.inflight.TryAcquire(1) {
		return true
	}
	if e.metrics != nil {
		e.metrics.SkippedSyncs.Inc()
	}
	e.log.Debug("sync already in flight, dropping request")
	return false
}

// outcome is what one cycle produced.
type outcome struct {
	fallback bool
	changes  int
}

func (e *Engine) runCycle(ctx context.Context) outcome {
	start := e.now()
	cycle := e.cycles.Add(1)
	tracked := e.currentTrackedDay(start)
	log := e.log.With("cycle", cycle, "cycle_id", uuid.NewString(), "tracked_day", tracked)

	// The previous snapshot is captured in the same transition that marks
	// the cycle as started.
	var previous roster.Snapshot
	e.store.Publish(func(s *state.EngineState) {
		if s.Snapshot != nil {
			previous = s.Snapshot.Clone()
		}
		s.Phase = state.PhaseFetching
		s.Loading = true
		s.TrackedDay = tracked
		s.Cycle = cycle
	})

	current, err := e.fetchAndDecode(ctx, start, log)

	usingFallback := err != nil
	if usingFallback {
		e.store.Publish(func(s *state.EngineState) {
			s.Phase = state.PhaseFallback
		})
		previous, current = e.fallback(tracked)
		log.Warn("using built-in schedule", "error", err)
	}

	e.store.Publish(func(s *state.EngineState) {
		s.Phase = state.PhaseDiffing
	})
	changes := diff.Compare(previous, current, tracked)

	finished := e.now()
	e.store.Publish(func(s *state.EngineState) {
		snap := current
		s.Phase = state.PhasePublishing
		s.Snapshot = &snap
		s.Changes = changes
		s.HasPendingChanges = diff.HasChanges(changes)
		s.LastError = err
		s.UsingFallback = usingFallback
		if usingFallback {
			s.ConsecutiveFailures++
		} else {
			s.ConsecutiveFailures = 0
			s.LastSynced = finished
		}
	})

	var saveErr error
	if !usingFallback {
		if saveErr = e.cache.Save(current); saveErr != nil {
			if e.metrics != nil {
				e.metrics.CacheSaveFailures.Inc()
			}
			log.Error("cache save failed", "error", saveErr)
		}
	}

	e.store.Publish(func(s *state.EngineState) {
		s.Phase = state.PhaseIdle
		s.Loading = false
		s.CacheError = saveErr
	})

	if diff.HasChanges(changes) {
		summary := diff.Summarize(tracked, changes)
		e.offer(summary)
		log.Info("schedule changed", "changes", len(changes), "summary", summary.Body())
	}

	out := outcome{fallback: usingFallback, changes: len(changes)}
	label := metrics.OutcomeSuccess
	if usingFallback {
		label = metrics.OutcomeFallback
	}
	e.metrics.ObserveCycle(label, e.now().Sub(start), len(changes), finished)
	log.Info("sync cycle finished", "outcome", label, "days", len(current.Days), "took", e.now().Sub(start))
	return out
}

func (e *Engine) fetchAndDecode(ctx context.Context, fetchedAt time.Time, log logging.Logger) (roster.Snapshot, error) {
	raw, err := e.fetcher.Fetch(ctx, e.body)
	if err != nil {
		if e.metrics != nil {
			e.metrics.FetchFailures.Inc()
		}
		return roster.Snapshot{}, fmt.Errorf("fetch schedule: %w", err)
	}
	log.Debug("fetched schedule", "bytes", len(raw))

	e.store.Publish(func(s *state.EngineState) {
		s.Phase = state.PhaseDecoding
	})
	snap, err := roster.Decode(raw, fetchedAt)
	if err != nil {
		if e.metrics != nil {
			e.metrics.DecodeFailures.Inc()
		}
		var decErr *roster.DecodeError
		if errors.As(err, &decErr) {
			log.Warn("response matched no schedule shape",
				"bytes", len(raw),
				"array_error", decErr.Cause(roster.ShapeArray),
				"wrapped_error", decErr.Cause(roster.ShapeWrapped),
			)
		}
		return roster.Snapshot{}, err
	}
	return snap, nil
}

func (e *Engine) offer(summary diff.Summary) {
	select {
	case e.notify <- summary:
		return
	default:
	}
	select {
	case <-e.notify:
	default:
	}
	select {
	case e.notify <- summary:
	default:
	}
}

type noCache struct{}

func (noCache) Load() (*roster.Snapshot, error) { return nil, nil }
func (noCache) Save(roster.Snapshot) error      { return nil }
