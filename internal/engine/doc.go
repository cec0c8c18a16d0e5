// Package engine is the schedule sync engine.
//
// # Overview
//
// The engine owns the sync cycle: fetch the schedule from the crew API,
// decode it, compare the tracked day against the snapshot that was current
// when the cycle started, publish the result to the state store, and save
// fetched data to the local cache. Hosts (the viewer, the headless server,
// the one-shot CLI command) only call entry points and read published state.
//
// # Cycle Phases
//
// One sync cycle moves through these phases, publishing each transition to
// the state store:
//
//	Idle → Fetching → Decoding → Diffing → Publishing → Idle
//	          │           │
//	          └───────────┴──→ Fallback → Diffing → ...
//
// A failed fetch or an undecodable response does not abort the cycle. The
// built-in fallback pair is substituted and the regular diff and publish
// steps run on it, so every cycle ends with a usable snapshot and change
// list. The failure is kept in EngineState.LastError and counted in
// EngineState.ConsecutiveFailures until a cycle succeeds again.
//
// # Single-Flight
//
// At most one cycle runs at a time. Sync, Go and BackgroundSync all try to
// take a weight-one semaphore without blocking; a caller that loses is
// dropped, not queued:
//
//	eng.Go(ctx)   // true: cycle started
//	eng.Go(ctx)   // false: dropped, first cycle still running
//	eng.Sync(ctx) // false: dropped
//
// The snapshot that was current when the winning cycle started is the one
// it compares against. It is captured in the same store transition that
// marks the cycle as fetching, so a concurrent reader never sees a cycle in
// flight without its baseline.
//
// # Entry Points
//
//   - Seed: publish the cached snapshot before the first network round trip
//   - Sync: run one cycle and block (manual retry, poller)
//   - Go: fire-and-forget cycle (foreground refresh)
//   - BackgroundSync / SyncWithBudget: cycle bounded by a time budget with
//     exactly one terminal signal (background fetch hooks)
//   - State / Subscribe: read the published EngineState
//   - Notifications: change summaries for the notification collaborator
//   - AcknowledgeChanges: clear the pending flag once changes were shown
//   - PinTrackedDay: override the tracked day for later cycles
//   - Wait: block until cycles started by Go or BackgroundSync return
//
// # Background Budget
//
// BackgroundSync runs the cycle and an independent timer side by side:
//
//	cycle ends first  → done(result of the cycle)
//	timer fires first → done(ResultNoData), cycle context cancelled
//
// done is guarded by sync.Once, so a late cycle cannot signal a second time.
// The cancelled cycle still unwinds through the fallback path and publishes,
// which keeps the store consistent for the next foreground reader.
//
// Result mapping:
//
//   - ResultNewData: fetched data changed the tracked day
//   - ResultNoData: no changes, or the budget expired
//   - ResultFailed: fetch or decode failed and built-in data was used
//   - ResultSkipped: another cycle was already in flight
//
// # Caching
//
// Seed loads the cache before any network activity. After a cycle that used
// fetched data the new snapshot is saved; fallback data is never cached. A
// failed save is logged and surfaced as EngineState.CacheError but does not
// undo the published snapshot. An empty fetched snapshot is published but the
// cache keeps the last non-empty one.
//
// # Observability
//
// Every cycle logs with a cycle number and a random cycle id. Decode
// failures log the reason each wire shape was rejected. When a Metrics set
// is configured the engine counts cycles by outcome, skipped requests,
// fetch, decode and cache failures, and budget expiries.
//
// # Testing
//
// Options accepts a Fetcher, a SnapshotCache, a clock and a tracked-day
// resolver, so tests drive cycles with in-memory doubles and a fixed time.
package engine
