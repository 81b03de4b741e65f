package instance

import "fmt"

// IllegalTransitionError reports an attempt to move an Instance between
// statuses spec.md §4.4's diagram doesn't allow.
type IllegalTransitionError struct {
	From, To Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("instance: illegal transition %s -> %s", e.From, e.To)
}

// legalTransitions encodes the Instance diagram in spec.md §4.4:
// PENDING → CREATING → STARTING → READY → BUSY ↔ IDLE → TERMINATING →
// TERMINATED, plus * → TERMINATING on explicit destroy. An instance is only
// ever claimed from READY once (the agent's first confirmed-reachable
// moment); every claim after a release comes from IDLE instead.
var legalTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusCreating:    true,
		StatusTerminating: true,
	},
	StatusCreating: {
		StatusStarting:    true,
		StatusTerminating: true,
	},
	StatusStarting: {
		StatusReady:       true,
		StatusTerminating: true,
	},
	StatusReady: {
		StatusBusy:        true,
		StatusTerminating: true,
	},
	StatusIdle: {
		StatusBusy:        true,
		StatusTerminating: true,
	},
	StatusBusy: {
		StatusIdle:        true,
		StatusTerminating: true,
	},
	StatusTerminating: {
		StatusTerminated: true,
	},
}

// Transition moves i from its current status to to, returning
// *IllegalTransitionError if the diagram doesn't allow it.
func (i *Instance) Transition(to Status) error {
	allowed, ok := legalTransitions[i.Status]
	if !ok || !allowed[to] {
		return &IllegalTransitionError{From: i.Status, To: to}
	}
	i.Status = to
	return nil
}
