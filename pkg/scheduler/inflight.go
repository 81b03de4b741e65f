package scheduler

import (
	"sync"

	"github.com/google/uuid"
)

// InFlightSet is an in-process, mutex-protected set of ids a control loop
// has claimed and is currently processing. It replaces the original
// implementation's module-level global sets (SUBMITTED_PROCESSING_JOBS_IDS
// et al.) with a per-loop instance, since this server has no equivalent of
// Python's single-process-wide import-time singletons and each loop's
// in-flight membership is its own concern (spec.md §9 design note).
type InFlightSet struct {
	mu  sync.Mutex
	ids map[uuid.UUID]struct{}
}

// NewInFlightSet builds an empty InFlightSet.
func NewInFlightSet() *InFlightSet {
	return &InFlightSet{ids: make(map[uuid.UUID]struct{})}
}

// TryClaim adds id to the set if absent, returning false if it was already
// claimed. Callers must pair a successful claim with a deferred Release.
func (s *InFlightSet) TryClaim(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Release removes id from the set.
func (s *InFlightSet) Release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

// Snapshot returns every currently-claimed id, for building a NOT IN (...)
// exclusion list in the next claim query.
func (s *InFlightSet) Snapshot() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uuid.UUID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

// Len reports how many ids are currently claimed.
func (s *InFlightSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
