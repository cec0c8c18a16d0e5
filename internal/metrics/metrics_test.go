package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCycle(t *testing.T) {
	m := New()
	at := time.Unix(1_760_000_000, 0)

	m.ObserveCycle(OutcomeSuccess, 250*time.Millisecond, 2, at)
	m.ObserveCycle(OutcomeFallback, time.Second, 3, at.Add(time.Hour))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues(OutcomeFallback)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PendingChanges))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.LastSuccess))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCycle(OutcomeSuccess, time.Second, 0, time.Now())
}

func TestNew_RegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.SkippedSyncs.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.SkippedSyncs))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SkippedSyncs))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.FetchFailures.Inc()

	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "crewsync_fetch_failures_total 1")
	assert.Contains(t, string(body), "crewsync_sync_cycle_duration_seconds_bucket")
}
