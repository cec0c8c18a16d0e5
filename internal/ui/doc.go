// Package ui is the crewsync terminal viewer, built on Bubble Tea.
//
// The viewer subscribes to engine state transitions and renders:
//
//   - a header with the tracked day, last sync time and status badges
//   - the day list, with the tracked day marked
//   - the selected day's flights; on the tracked day, moved times and new
//     duties are highlighted with their previous values
//   - a footer with key help and the last action's status
//
// It holds no schedule logic of its own. Key presses become engine calls
// (Go, PinTrackedDay, AcknowledgeChanges); theme and pinned day are saved to
// the prefs file.
//
// # State Updates
//
// New subscribes to the engine's state store. Init returns a command that
// blocks on the subscription; each received state is applied and the wait is
// re-armed, so exactly one receive is pending at any time:
//
//	Subscribe → waitForState → updateMsg → applyState → waitForState ...
//
// The store keeps only the newest undelivered state, so a slow render never
// queues stale frames. Close ends the subscription; a closed channel stops
// the loop. After a key press the model also reads State once directly so
// the status line reflects the action without waiting for the next cycle.
package ui
