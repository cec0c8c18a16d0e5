// Package app is the composition root of crewsync.
//
// # Overview
//
// Every command builds the same runtime from configuration and preferences:
//
//	┌──────────────┐
//	│ newRuntime() │
//	└──────┬───────┘
//	       ├─────> config.Load()       TOML + CREWSYNC_* overrides
//	       ├─────> prefs.Load()        theme, pinned tracked day
//	       ├─────> logging.New()       zap → rotating file (and stderr)
//	       ├─────> crewapi.NewClient() schedule endpoint
//	       ├─────> cache.New()         last good snapshot on disk
//	       └─────> engine.New()        sync engine + state store + metrics
//
// and then drives it differently:
//
//   - Run: seed from cache, start the poller, block in the viewer
//   - RunOnce: one cycle under a time budget, print the outcome
//   - Serve: headless poller, change summaries logged as notifications,
//     optional /metrics and /healthz endpoint
//   - Show: print the cached schedule, no network
//   - Logs: print recent entries of the engine log
//
// # Health Endpoint
//
// GET /healthz answers with the published engine state as JSON:
//
//	{"status":"ok","phase":"idle","tracked_day":"Wed 08 Oct",
//	 "last_synced":"...","consecutive_failures":0,"using_fallback":false,
//	 "pending_changes":0}
//
// While the last cycle fell back to built-in data the status is "offline"
// and the code is 503, from the first failed cycle until one succeeds.
//
// # Polling Behavior
//
// StartPoller runs a cycle immediately and then once per poll interval. When
// cycles fail (the engine fell back to built-in data) the next attempt comes
// sooner: two seconds, doubling per failure, capped at thirty seconds and
// never later than the regular interval. A tick that finds a cycle already in
// flight is dropped by the engine.
//
// # Error Handling
//
// Only setup errors are returned: unreadable or invalid config, missing
// endpoint or user id, log directory failures. Fetch, decode and cache faults
// during cycles are absorbed by the engine and surface in its state.
package app
