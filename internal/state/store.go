package state

import (
	"sync"
	"time"

	"github.com/five82/crewsync/internal/diff"
	"github.com/five82/crewsync/internal/roster"
)

// Phase is the step of the sync cycle the engine is in.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseDecoding
	PhaseDiffing
	PhasePublishing
	PhaseFallback
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	case PhaseDecoding:
		return "decoding"
	case PhaseDiffing:
		return "diffing"
	case PhasePublishing:
		return "publishing"
	case PhaseFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// EngineState is what the sync engine exposes to its consumers.
type EngineState struct {
	Snapshot            *roster.Snapshot
	Phase               Phase
	Loading             bool
	LastError           error
	CacheError          error
	Changes             []diff.Change
	HasPendingChanges   bool
	TrackedDay          string
	LastSynced          time.Time
	UsingFallback       bool
	ConsecutiveFailures int // Number of consecutive cycles that needed the fallback
	Cycle               uint64
}

// IsOffline returns true when the API has been unreachable for multiple cycles.
func (s EngineState) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// HasSnapshot reports whether there is any schedule to display.
func (s EngineState) HasSnapshot() bool {
	return s.Snapshot != nil
}

// Store coordinates concurrent access to the engine state. The engine is the
// only writer; any number of readers take copies.
type Store struct {
	mu     sync.RWMutex
	state  EngineState
	subs   map[int]chan EngineState
	nextID int
}

// Publish applies one state transition atomically and notifies subscribers.
// Readers never observe a partially applied transition.
func (s *Store) Publish(transition func(*EngineState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	transition(&s.state)
	if len(s.subs) == 0 {
		return
	}
	snap := clone(s.state)
	for _, ch := range s.subs {
		offer(ch, snap)
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() EngineState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.state)
}

// Subscribe returns a channel that receives the state after every
// transition. Slow readers only see the newest state. The returned function
// unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan EngineState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs == nil {
		s.subs = make(map[int]chan EngineState)
	}
	id := s.nextID
	s.nextID++
	ch := make(chan EngineState, 1)
	s.subs[id] = ch
	ch <- clone(s.state)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func offer(ch chan EngineState, snap EngineState) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func clone(in EngineState) EngineState {
	out := in
	if in.Snapshot != nil {
		snap := in.Snapshot.Clone()
		out.Snapshot = &snap
	}
	if len(in.Changes) > 0 {
		out.Changes = make([]diff.Change, len(in.Changes))
		copy(out.Changes, in.Changes)
	} else {
		out.Changes = nil
	}
	return out
}
