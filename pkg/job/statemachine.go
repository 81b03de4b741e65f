package job

import "fmt"

// IllegalTransitionError reports an attempt to move a Job between statuses
// that spec.md §4.4's diagram doesn't allow.
type IllegalTransitionError struct {
	From, To Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("job: illegal transition %s -> %s", e.From, e.To)
}

// legalTransitions encodes the diagram in spec.md §4.4, plus the PENDING
// retry-holding state and the terminal exits (FAILED/ABORTED/DONE) reachable
// from several non-terminal statuses.
var legalTransitions = map[Status]map[Status]bool{
	StatusSubmitted: {
		StatusProvisioning: true,
		StatusPending:      true,
		StatusFailed:        true,
		StatusTerminating:  true, // user stop
		StatusAborted:      true, // user abort
	},
	StatusPending: {
		StatusSubmitted:    true, // re-examined on next tick, re-enters scheduling
		StatusProvisioning: true,
		StatusFailed:       true,
		StatusTerminating:  true, // user stop
		StatusAborted:      true, // user abort
	},
	StatusProvisioning: {
		StatusPulling:     true,
		StatusFailed:      true,
		StatusPending:     true,
		StatusTerminating: true,
		StatusAborted:     true, // user abort
	},
	StatusPulling: {
		StatusRunning:     true,
		StatusTerminating: true,
		StatusFailed:      true,
		StatusAborted:     true, // user abort
	},
	StatusRunning: {
		StatusTerminating: true,
		StatusDone:        true,
		StatusFailed:      true,
		StatusAborted:     true,
	},
	StatusTerminating: {
		StatusTerminated: true,
	},
}

// Transition moves j from its current status to to, returning
// *IllegalTransitionError if the diagram doesn't allow it. The caller is
// responsible for persisting the mutated Job.
func (j *Job) Transition(to Status) error {
	allowed, ok := legalTransitions[j.Status]
	if !ok || !allowed[to] {
		return &IllegalTransitionError{From: j.Status, To: to}
	}
	j.Status = to
	return nil
}

// CanOwnInstance reports whether a Job in this status may hold a non-terminal
// instance back-reference (spec.md §3 invariant: a job in a non-terminal
// status owns at most one Instance; terminal jobs own none).
func (s Status) CanOwnInstance() bool {
	return !s.Terminal()
}
