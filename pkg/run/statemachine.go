package run

import (
	"fmt"

	"github.com/skyfleet/orchestrator/pkg/job"
)

// IllegalTransitionError reports an attempt to move a Run between statuses
// spec.md §4.4 doesn't allow. Run status is normally derived from its jobs
// (DeriveStatus) rather than transitioned directly; this machine governs the
// few run-level actions users can take directly: stop and abort.
type IllegalTransitionError struct {
	From, To Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("run: illegal transition %s -> %s", e.From, e.To)
}

// legalUserTransitions lists the statuses from which a user-initiated
// stop/abort may move a Run, mirroring the job machine's terminal exits.
var legalUserTransitions = map[Status]map[Status]bool{
	Status(job.StatusSubmitted):   {Status(job.StatusTerminating): true, Status(job.StatusAborted): true},
	Status(job.StatusPending):     {Status(job.StatusTerminating): true, Status(job.StatusAborted): true},
	Status(job.StatusProvisioning): {Status(job.StatusTerminating): true, Status(job.StatusAborted): true},
	Status(job.StatusPulling):     {Status(job.StatusTerminating): true, Status(job.StatusAborted): true},
	Status(job.StatusRunning):     {Status(job.StatusTerminating): true, Status(job.StatusAborted): true},
}

// Transition moves r from its current status to to, returning
// *IllegalTransitionError if no user action reaches to from r's status.
func (r *Run) Transition(to Status) error {
	allowed, ok := legalUserTransitions[r.Status]
	if !ok || !allowed[to] {
		return &IllegalTransitionError{From: r.Status, To: to}
	}
	r.Status = to
	return nil
}
