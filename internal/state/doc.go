// Package state holds the sync engine's published state.
//
// # Overview
//
// EngineState is the only shared mutable data in crewsync. The sync engine
// writes it at every phase transition; the viewer, the CLI and the
// notification hook read it.
//
//	Writer (engine):                 Readers:
//	┌──────────────────┐            ┌──────────────────┐
//	│ Publish(Fetching)│            │ store.Snapshot() │
//	│ Publish(Decoding)│───────────→│ store.Subscribe()│
//	│ Publish(Idle)    │  (mutex)   │   render / log   │
//	└──────────────────┘            └──────────────────┘
//
// # Update Semantics
//
// Publish takes a transition function and runs it under the write lock, so
// a reader sees either the state before or after a transition and never a
// mix of the two:
//
//	store.Publish(func(s *state.EngineState) {
//		s.Phase = state.PhaseIdle
//		s.Loading = false
//		s.Snapshot = &current
//		s.Changes = changes
//	})
//
// # Defensive Copying
//
// Snapshot and subscriber deliveries deep-copy the schedule and the change
// list. Callers may keep or modify what they receive.
//
// # Subscriptions
//
// Subscribe hands out a channel with a buffer of one. A reader that falls
// behind skips intermediate states and receives only the newest one. The
// current state is delivered immediately on subscription.
//
// # Testing Considerations
//
// The zero Store is ready to use:
//
//	store := &state.Store{}
package state
