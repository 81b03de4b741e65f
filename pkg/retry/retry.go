// Package retry implements C6: pure functions deciding whether a failed job
// should be held for a later retry attempt or failed outright, grounded on
// original_source's runs.py/process_submitted_jobs.py retry-window
// semantics.
package retry

import (
	"time"

	"github.com/skyfleet/orchestrator/pkg/profile"
)

// Active reports whether a run's retry policy is still within its window,
// measured from the run's submission time (the Open Question resolution
// recorded in DESIGN.md: the window starts at submission, not at first
// failure).
func Active(r profile.Retry, submittedAt, now time.Time) bool {
	if !r.Enabled {
		return false
	}
	return now.Before(submittedAt.Add(r.EffectiveWindow()))
}

// Decision is the outcome of evaluating a failed job's retry eligibility.
type Decision int

const (
	// DecisionFail moves the job straight to FAILED; no retry policy is
	// active, or its window has elapsed.
	DecisionFail Decision = iota
	// DecisionHold moves the job to PENDING to be re-examined by the next
	// process_submitted_jobs tick, within the run's retry window.
	DecisionHold
)

// Evaluate decides what process_submitted_jobs (C5) should do with a job
// that just failed to provision, per spec.md §4.5/§4.6.
func Evaluate(r profile.Retry, submittedAt, now time.Time) Decision {
	if Active(r, submittedAt, now) {
		return DecisionHold
	}
	return DecisionFail
}
