package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const shutdownTimeout = 5 * time.Second

// Serve runs the poller headless until ctx is cancelled. Change summaries are
// logged as notifications, and when metrics_addr is set the Prometheus
// registry is served at /metrics next to a /healthz status endpoint.
func Serve(ctx context.Context, opts Options) error {
	rt, err := newRuntime(opts, true)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt.engine.Seed()

	var srv *http.Server
	srvErr := make(chan error, 1)
	if addr := rt.cfg.MetricsAddr; addr != "" {
		srv = &http.Server{
			Addr:              addr,
			Handler:           rt.handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				srvErr <- err
			}
		}()
		rt.log.Info("metrics endpoint listening", "addr", addr)
	}

	interval := rt.pollInterval(opts)
	poller := StartPoller(ctx, rt.engine, interval)
	rt.log.Info("crewsync serving", "poll_interval", interval, "tracked_day", rt.engine.State().TrackedDay)

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err := <-srvErr:
			runErr = fmt.Errorf("metrics endpoint: %w", err)
			break loop
		case summary := <-rt.engine.Notifications():
			rt.log.Info(summary.Title,
				"event", "schedule_change",
				"tracked_day", summary.TrackedDay,
				"changes", summary.Lines,
			)
		}
	}

	cancel()
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rt.log.Warn("metrics endpoint shutdown failed", "error", err)
		}
	}
	<-poller
	rt.engine.Wait()
	rt.log.Info("crewsync stopped")
	return runErr
}

// health is the /healthz response body.
type health struct {
	Status              string    `json:"status"`
	Phase               string    `json:"phase"`
	TrackedDay          string    `json:"tracked_day"`
	LastSynced          time.Time `json:"last_synced,omitzero"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	UsingFallback       bool      `json:"using_fallback"`
	PendingChanges      int       `json:"pending_changes"`
	LastError           string    `json:"last_error,omitempty"`
}

func (rt *runtime) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", rt.metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		st := rt.engine.State()
		body := health{
			Status:              "ok",
			Phase:               st.Phase.String(),
			TrackedDay:          st.TrackedDay,
			LastSynced:          st.LastSynced,
			ConsecutiveFailures: st.ConsecutiveFailures,
			UsingFallback:       st.UsingFallback,
		}
		if st.HasPendingChanges {
			body.PendingChanges = len(st.Changes)
		}
		if st.LastError != nil {
			body.LastError = st.LastError.Error()
		}
		// Any cycle that ended on built-in data means the API is unreachable.
		code := http.StatusOK
		if st.UsingFallback {
			body.Status = "offline"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	})
	return mux
}
