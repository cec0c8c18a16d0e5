package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/five82/crewsync/internal/cache"
	"github.com/five82/crewsync/internal/crewapi"
	"github.com/five82/crewsync/internal/fallback"
	"github.com/five82/crewsync/internal/logging"
	"github.com/five82/crewsync/internal/metrics"
	"github.com/five82/crewsync/internal/roster"
	"github.com/five82/crewsync/internal/state"
)

const trackedDay = "Wed 08 Oct"

var clock = time.Date(2025, 10, 8, 5, 0, 0, 0, time.UTC)

// fakeFetcher answers with body/err and counts calls. When gate is set each
// call waits for it or for ctx.
type fakeFetcher struct {
	mu      sync.Mutex
	body    []byte
	err     error
	gate    chan struct{}
	started chan struct{}
	calls   atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, _ []byte) ([]byte, error) {
	f.calls.Add(1)
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.body, f.err
}

func (f *fakeFetcher) respond(body []byte, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body, f.err = body, err
}

type memCache struct {
	mu      sync.Mutex
	snap    *roster.Snapshot
	loadErr error
	saveErr error
	saves   int
}

func (c *memCache) Load() (*roster.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap, c.loadErr
}

func (c *memCache) Save(s roster.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	if c.saveErr != nil {
		return c.saveErr
	}
	c.snap = &s
	return nil
}

func schedule(dep, arr string) roster.Snapshot {
	return roster.NewSnapshot([]roster.Day{
		{Key: "Tue 07 Oct", DutyType: "Day Off"},
		{Key: trackedDay, Flights: []roster.Flight{
			{Duty: "A", Origin: "OSL", Destination: "BGO", DepTime: dep, ArrivalTime: arr},
		}},
	}, clock)
}

func encode(t *testing.T, s roster.Snapshot) []byte {
	t.Helper()
	raw, err := roster.Encode(s)
	require.NoError(t, err)
	return raw
}

type harness struct {
	engine  *Engine
	fetcher *fakeFetcher
	cache   *memCache
	store   *state.Store
	metrics *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		fetcher: &fakeFetcher{},
		cache:   &memCache{},
		store:   &state.Store{},
		metrics: metrics.New(),
	}
	eng, err := New(Options{
		Fetcher:    h.fetcher,
		Cache:      h.cache,
		Store:      h.store,
		Metrics:    h.metrics,
		UserID:     "4711",
		TrackedDay: func(time.Time) string { return trackedDay },
		Now:        func() time.Time { return clock },
	})
	require.NoError(t, err)
	h.engine = eng
	return h
}

func TestNew_ValidatesOptions(t *testing.T) {
	_, err := New(Options{Store: &state.Store{}, UserID: "1"})
	assert.Error(t, err)
	_, err = New(Options{Fetcher: &fakeFetcher{}, UserID: "1"})
	assert.Error(t, err)
	_, err = New(Options{Fetcher: &fakeFetcher{}, Store: &state.Store{}})
	assert.Error(t, err)
}

func TestSeed_PublishesCachedSnapshotBeforeNetwork(t *testing.T) {
	h := newHarness(t)
	cached := schedule("04:45", "07:45")
	h.cache.snap = &cached

	require.True(t, h.engine.Seed())

	st := h.engine.State()
	require.True(t, st.HasSnapshot())
	assert.Equal(t, cached, *st.Snapshot)
	assert.Equal(t, trackedDay, st.TrackedDay)
	assert.False(t, st.Loading)
	assert.Zero(t, h.fetcher.calls.Load())
}

func TestSeed_CacheFaultIsTreatedAsAbsent(t *testing.T) {
	h := newHarness(t)
	h.cache.loadErr = &cache.StorageError{Op: "read", Path: "x", Err: errors.New("io")}

	assert.False(t, h.engine.Seed())
	assert.False(t, h.engine.State().HasSnapshot())
}

func TestSync_SuccessDetectsChangesAndCaches(t *testing.T) {
	h := newHarness(t)
	prev := schedule("04:45", "07:45")
	h.cache.snap = &prev
	h.engine.Seed()
	h.fetcher.respond(encode(t, schedule("05:15", "07:45")), nil)

	require.True(t, h.engine.Sync(context.Background()))

	st := h.engine.State()
	assert.Equal(t, state.PhaseIdle, st.Phase)
	assert.False(t, st.Loading)
	assert.NoError(t, st.LastError)
	assert.False(t, st.UsingFallback)
	assert.True(t, st.HasPendingChanges)
	require.Len(t, st.Changes, 1)
	assert.True(t, st.Changes[0].IsNewDepTime)
	assert.Equal(t, "04:45", st.Changes[0].OldDepTime)
	assert.Equal(t, schedule("05:15", "07:45"), *st.Snapshot)
	assert.Equal(t, clock, st.LastSynced)

	assert.Equal(t, 1, h.cache.saves)
	assert.Equal(t, schedule("05:15", "07:45"), *h.cache.snap)

	select {
	case summary := <-h.engine.Notifications():
		assert.Equal(t, trackedDay, summary.TrackedDay)
		assert.Contains(t, summary.Body(), "departs 05:15 (was 04:45)")
	default:
		t.Fatal("no change notification offered")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CyclesTotal.WithLabelValues(metrics.OutcomeSuccess)))
}

func TestSync_UnchangedScheduleHasNoPendingChanges(t *testing.T) {
	h := newHarness(t)
	prev := schedule("04:45", "07:45")
	h.cache.snap = &prev
	h.engine.Seed()
	h.fetcher.respond(encode(t, prev), nil)

	h.engine.Sync(context.Background())

	st := h.engine.State()
	assert.Empty(t, st.Changes)
	assert.False(t, st.HasPendingChanges)
	select {
	case s := <-h.engine.Notifications():
		t.Fatalf("unexpected notification %q", s.Title)
	default:
	}
}

func TestSync_NetworkErrorUsesFallback(t *testing.T) {
	h := newHarness(t)
	cached := schedule("04:45", "07:45")
	h.cache.snap = &cached
	h.engine.Seed()
	h.fetcher.respond(nil, &crewapi.NetworkError{Op: "post /roster", StatusCode: 503, Err: crewapi.ErrStatus})

	h.engine.Sync(context.Background())

	st := h.engine.State()
	_, wantCurrent := fallback.Provide(trackedDay)
	require.True(t, st.HasSnapshot())
	assert.Equal(t, wantCurrent, *st.Snapshot)
	assert.True(t, st.UsingFallback)
	assert.Equal(t, 1, st.ConsecutiveFailures)
	var netErr *crewapi.NetworkError
	require.ErrorAs(t, st.LastError, &netErr)
	assert.Equal(t, 503, netErr.StatusCode)
	assert.Len(t, st.Changes, 3)
	assert.True(t, st.HasPendingChanges)
	assert.Zero(t, h.cache.saves, "fallback data must not be cached")
	assert.Equal(t, cached, *h.cache.snap)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.FetchFailures))
}

func TestSync_MalformedBytesUseFallback(t *testing.T) {
	h := newHarness(t)
	h.fetcher.respond([]byte("{not-json"), nil)

	h.engine.Sync(context.Background())

	st := h.engine.State()
	require.True(t, st.HasSnapshot())
	var decErr *roster.DecodeError
	require.ErrorAs(t, st.LastError, &decErr)
	assert.Len(t, decErr.Attempts, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.DecodeFailures))
}

func TestSync_DecodeFailureLogsEachShape(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	fetcher := &fakeFetcher{}
	fetcher.respond([]byte(`{"roster": []}`), nil)
	eng, err := New(Options{
		Fetcher:    fetcher,
		Store:      &state.Store{},
		Logger:     logging.FromZap(zap.New(core)),
		UserID:     "4711",
		TrackedDay: func(time.Time) string { return trackedDay },
		Now:        func() time.Time { return clock },
	})
	require.NoError(t, err)

	require.True(t, eng.Sync(context.Background()))

	entries := logs.FilterMessage("response matched no schedule shape").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Contains(t, fields["array_error"], "expected array")
	assert.Contains(t, fields["wrapped_error"], "schedule")
}

func TestSync_RecoveryResetsFailures(t *testing.T) {
	h := newHarness(t)
	h.fetcher.respond(nil, errors.New("offline"))
	h.engine.Sync(context.Background())
	h.engine.Sync(context.Background())
	assert.True(t, h.engine.State().IsOffline())

	h.fetcher.respond(encode(t, schedule("04:45", "07:45")), nil)
	h.engine.Sync(context.Background())

	st := h.engine.State()
	assert.Zero(t, st.ConsecutiveFailures)
	assert.NoError(t, st.LastError)
	assert.False(t, st.UsingFallback)
	assert.Equal(t, uint64(3), st.Cycle)
}

func TestSync_SaveErrorDoesNotRollBack(t *testing.T) {
	h := newHarness(t)
	h.cache.saveErr = &cache.StorageError{Op: "write", Path: "x", Err: errors.New("disk full")}
	h.fetcher.respond(encode(t, schedule("04:45", "07:45")), nil)

	h.engine.Sync(context.Background())

	st := h.engine.State()
	require.True(t, st.HasSnapshot())
	assert.Equal(t, schedule("04:45", "07:45"), *st.Snapshot)
	assert.NoError(t, st.LastError)
	var storageErr *cache.StorageError
	assert.ErrorAs(t, st.CacheError, &storageErr)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CacheSaveFailures))
}

func TestSync_EmptyScheduleDoesNotOverwriteCache(t *testing.T) {
	store := cache.New(filepath.Join(t.TempDir(), "schedule.json"))
	good := schedule("04:45", "07:45")
	require.NoError(t, store.Save(good))

	fetcher := &fakeFetcher{body: []byte(`{"schedule":[]}`)}
	eng, err := New(Options{Fetcher: fetcher, Cache: store, Store: &state.Store{}, UserID: "4711", Now: func() time.Time { return clock }})
	require.NoError(t, err)

	eng.Seed()
	eng.Sync(context.Background())

	assert.True(t, eng.State().Snapshot.IsEmpty())
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, good, *loaded)
}

func TestSync_SingleFlight(t *testing.T) {
	h := newHarness(t)
	h.fetcher.gate = make(chan struct{})
	h.fetcher.started = make(chan struct{}, 1)
	h.fetcher.respond(encode(t, schedule("04:45", "07:45")), nil)

	require.True(t, h.engine.Go(context.Background()))
	<-h.fetcher.started

	assert.False(t, h.engine.Go(context.Background()))
	assert.False(t, h.engine.Sync(context.Background()))
	assert.True(t, h.engine.State().Loading)

	close(h.fetcher.gate)
	h.engine.Wait()

	assert.Equal(t, int32(1), h.fetcher.calls.Load())
	assert.Equal(t, uint64(1), h.engine.State().Cycle)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CyclesTotal.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.SkippedSyncs))

	// The slot is free again once the cycle ends.
	assert.True(t, h.engine.Sync(context.Background()))
}

func TestSync_ComparesAgainstSnapshotFromCycleStart(t *testing.T) {
	h := newHarness(t)
	prev := schedule("04:45", "07:45")
	h.cache.snap = &prev
	h.engine.Seed()
	h.fetcher.gate = make(chan struct{})
	h.fetcher.started = make(chan struct{}, 1)
	h.fetcher.respond(encode(t, schedule("05:15", "07:45")), nil)

	h.engine.Go(context.Background())
	<-h.fetcher.started

	// A writer sneaking in mid-cycle must not become the comparison base.
	sneaky := schedule("05:15", "07:45")
	h.store.Publish(func(s *state.EngineState) { s.Snapshot = &sneaky })

	close(h.fetcher.gate)
	h.engine.Wait()

	changes := h.engine.State().Changes
	require.Len(t, changes, 1)
	assert.Equal(t, "04:45", changes[0].OldDepTime)
}

func TestAcknowledgeChanges(t *testing.T) {
	h := newHarness(t)
	h.fetcher.respond(nil, errors.New("offline"))
	h.engine.Sync(context.Background())
	require.True(t, h.engine.State().HasPendingChanges)

	h.engine.AcknowledgeChanges()

	st := h.engine.State()
	assert.False(t, st.HasPendingChanges)
	assert.NotEmpty(t, st.Changes)
}

func TestPinTrackedDay(t *testing.T) {
	h := newHarness(t)
	h.fetcher.respond(nil, errors.New("offline"))

	h.engine.PinTrackedDay("Sat 18 Oct")
	assert.Equal(t, "Sat 18 Oct", h.engine.State().TrackedDay)

	h.engine.Sync(context.Background())
	st := h.engine.State()
	assert.Equal(t, "Sat 18 Oct", st.TrackedDay)
	_, ok := st.Snapshot.Day("Sat 18 Oct")
	assert.True(t, ok)
	assert.Len(t, st.Changes, 3)

	h.engine.PinTrackedDay("")
	assert.Equal(t, trackedDay, h.engine.State().TrackedDay)
}
