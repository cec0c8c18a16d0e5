package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/crewsync/internal/cache"
	"github.com/five82/crewsync/internal/config"
	"github.com/five82/crewsync/internal/engine"
	"github.com/five82/crewsync/internal/fallback"
	"github.com/five82/crewsync/internal/roster"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

const trackedDay = "Wed 08 Oct"

// rosterServer answers schedule POSTs with whatever body and status it holds.
type rosterServer struct {
	mu       sync.Mutex
	status   int
	body     []byte
	requests []string
}

func (s *rosterServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.Method+" "+string(raw))
	if s.status != 0 && s.status != http.StatusOK {
		w.WriteHeader(s.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(s.body)
}

func (s *rosterServer) respond(t *testing.T, status int, snap roster.Snapshot) {
	t.Helper()
	raw, err := roster.EncodeWrapped(snap)
	require.NoError(t, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.body = raw
}

func schedule(dep string) roster.Snapshot {
	return roster.NewSnapshot([]roster.Day{
		{Key: "Tue 07 Oct", DutyType: "Day Off"},
		{Key: trackedDay, Flights: []roster.Flight{
			{Duty: "DY600", Origin: "OSL", Destination: "BGO", DepTime: dep, ArrivalTime: "07:45"},
		}},
	}, time.Now())
}

type fixture struct {
	server *rosterServer
	opts   Options
	dir    string
	out    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{config.EnvEndpoint, config.EnvUserID, config.EnvTrackedDay, config.EnvMetricsAddr, config.EnvLogLevel} {
		t.Setenv(key, "")
	}

	f := &fixture{server: &rosterServer{}, dir: t.TempDir(), out: &bytes.Buffer{}}
	srv := httptest.NewServer(f.server)
	t.Cleanup(srv.Close)

	cfgPath := filepath.Join(f.dir, "config.toml")
	body := fmt.Sprintf(`
endpoint = %q
user_id = "4711"
cache_path = %q
log_dir = %q
tracked_day = %q
`, srv.URL, filepath.Join(f.dir, "schedule.json"), filepath.Join(f.dir, "logs"), trackedDay)
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))

	f.opts = Options{
		ConfigPath: cfgPath,
		PrefsPath:  filepath.Join(f.dir, "prefs.toml"),
		Stdout:     f.out,
	}
	return f
}

func (f *fixture) runOnce(t *testing.T) (engine.Result, string) {
	t.Helper()
	f.out.Reset()
	res, err := RunOnce(context.Background(), f.opts, 5*time.Second)
	require.NoError(t, err)
	return res, f.out.String()
}

func TestRunOnce_DetectsChangesAcrossRuns(t *testing.T) {
	f := newFixture(t)

	f.server.respond(t, http.StatusOK, schedule("04:45"))
	res, out := f.runOnce(t)
	assert.Equal(t, engine.ResultNoData, res)
	assert.Contains(t, out, "Sync no-data")
	assert.Contains(t, out, "No changes on Wed 08 Oct")
	assert.FileExists(t, filepath.Join(f.dir, "schedule.json"))

	f.server.respond(t, http.StatusOK, schedule("05:15"))
	res, out = f.runOnce(t)
	assert.Equal(t, engine.ResultNewData, res)
	assert.Contains(t, out, "Schedule change on Wed 08 Oct: 1 flight updated")
	assert.Contains(t, out, "DY600 OSL-BGO departs 05:15 (was 04:45)")

	f.server.mu.Lock()
	defer f.server.mu.Unlock()
	require.Len(t, f.server.requests, 2)
	assert.Equal(t, `POST {"userId":"4711"}`, f.server.requests[0])
}

func TestRunOnce_ServerErrorFallsBackWithoutTouchingCache(t *testing.T) {
	f := newFixture(t)
	f.server.respond(t, http.StatusOK, schedule("04:45"))
	f.runOnce(t)

	f.server.respond(t, http.StatusServiceUnavailable, schedule("04:45"))
	res, out := f.runOnce(t)
	assert.Equal(t, engine.ResultFailed, res)
	assert.Contains(t, out, "Sync failed")
	assert.Contains(t, out, "Using built-in schedule:")
	assert.Contains(t, out, "status 503")

	cached, err := cache.New(filepath.Join(f.dir, "schedule.json")).Load()
	require.NoError(t, err)
	require.NotNil(t, cached)
	d, ok := cached.Day(trackedDay)
	require.True(t, ok)
	assert.Equal(t, "04:45", d.Flights[0].DepTime)
}

func TestRunOnce_DayOverridePinsTrackedDay(t *testing.T) {
	f := newFixture(t)
	f.server.respond(t, http.StatusServiceUnavailable, schedule("04:45"))
	f.opts.TrackedDay = "Sat 18 Oct"

	_, out := f.runOnce(t)
	assert.Contains(t, out, "Schedule change on Sat 18 Oct: 3 flights updated")
}

func TestRunOnce_IncompleteConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{config.EnvEndpoint, config.EnvUserID} {
		t.Setenv(key, "")
	}
	_, err := RunOnce(context.Background(), Options{ConfigPath: filepath.Join(t.TempDir(), "missing.toml")}, time.Second)
	assert.True(t, errors.Is(err, config.ErrIncomplete), "got %v", err)
}

func TestShow_Golden(t *testing.T) {
	f := newFixture(t)
	_, current := fallback.Provide(fallback.DefaultTrackedDay)
	require.NoError(t, cache.New(filepath.Join(f.dir, "schedule.json")).Save(current))

	require.NoError(t, Show(f.opts, ""))

	g := goldie.New(t)
	g.Assert(t, "snapshot", f.out.Bytes())
}

func TestShow_SingleDay(t *testing.T) {
	f := newFixture(t)
	_, current := fallback.Provide(fallback.DefaultTrackedDay)
	require.NoError(t, cache.New(filepath.Join(f.dir, "schedule.json")).Save(current))

	require.NoError(t, Show(f.opts, "Tue 07 Oct"))
	assert.Contains(t, f.out.String(), "DY1302")
	assert.NotContains(t, f.out.String(), "DY600")

	assert.Error(t, Show(f.opts, "Sun 01 Jan"))
}

func TestShow_NoCache(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, Show(f.opts, ""))
	assert.Contains(t, f.out.String(), "No cached schedule at")
}

func TestHandler_HealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	f.server.respond(t, http.StatusOK, schedule("04:45"))

	rt, err := newRuntime(f.opts, false)
	require.NoError(t, err)
	defer rt.close()
	require.True(t, rt.engine.Sync(context.Background()))

	h := rt.handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "idle", body.Phase)
	assert.Equal(t, trackedDay, body.TrackedDay)
	assert.False(t, body.UsingFallback)
	assert.Zero(t, body.ConsecutiveFailures)
	assert.Empty(t, body.LastError)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `crewsync_sync_cycles_total{outcome="success"} 1`)
}

func TestHandler_OfflineHealth(t *testing.T) {
	tests := []struct {
		name     string
		failures int
	}{
		{name: "single fallback", failures: 1},
		{name: "repeated fallbacks", failures: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.server.respond(t, http.StatusInternalServerError, schedule("04:45"))

			rt, err := newRuntime(f.opts, false)
			require.NoError(t, err)
			defer rt.close()
			for range tt.failures {
				require.True(t, rt.engine.Sync(context.Background()))
			}

			rec := httptest.NewRecorder()
			rt.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			var body health
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "offline", body.Status)
			assert.True(t, body.UsingFallback)
			assert.Equal(t, tt.failures, body.ConsecutiveFailures)
			assert.Contains(t, body.LastError, "status 500")
		})
	}
}

func TestHandler_RecoversAfterFallback(t *testing.T) {
	f := newFixture(t)
	f.server.respond(t, http.StatusInternalServerError, schedule("04:45"))

	rt, err := newRuntime(f.opts, false)
	require.NoError(t, err)
	defer rt.close()
	require.True(t, rt.engine.Sync(context.Background()))

	f.server.respond(t, http.StatusOK, schedule("04:45"))
	require.True(t, rt.engine.Sync(context.Background()))

	rec := httptest.NewRecorder()
	rt.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"consecutive_failures":0`)
}

func TestServe_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.server.respond(t, http.StatusOK, schedule("04:45"))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- Serve(ctx, f.opts) }()

	cachePath := filepath.Join(f.dir, "schedule.json")
	require.Eventually(t, func() bool {
		_, err := os.Stat(cachePath)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond, "first poll did not cache the schedule")

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestLogs_PrintsCycleEntries(t *testing.T) {
	f := newFixture(t)
	f.server.respond(t, http.StatusOK, schedule("04:45"))
	f.runOnce(t)

	f.out.Reset()
	require.NoError(t, Logs(f.opts, 50, "info"))
	assert.Contains(t, f.out.String(), "sync cycle finished")
	assert.Contains(t, f.out.String(), "outcome=success")

	f.out.Reset()
	require.NoError(t, Logs(f.opts, 50, "error"))
	assert.Contains(t, f.out.String(), "No log entries in")
}
