package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/skyfleet/orchestrator/internal/telemetry"
	"github.com/skyfleet/orchestrator/pkg/instance"
	"github.com/skyfleet/orchestrator/pkg/job"
	"github.com/skyfleet/orchestrator/pkg/profile"
	"github.com/skyfleet/orchestrator/pkg/retry"
	"github.com/skyfleet/orchestrator/pkg/run"
)

// runSubmittedLoop drives process_submitted_jobs: for every SUBMITTED job
// not already claimed by a sibling tick, try the pool first, then fall
// through to the Provisioner. Grounded on original_source's
// process_submitted_jobs.py, with the module-level in-flight set replaced
// by s.submittedInFlight (spec.md §9).
func (s *Scheduler) runSubmittedLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.SubmittedInterval)
	defer ticker.Stop()

	var wake <-chan string
	var unsubscribe func() error
	if s.RDB != nil {
		wake, unsubscribe = subscribeFastWake(ctx, s.RDB, FastWakeChannel)
		defer unsubscribe()
	}

	tick := s.timeTick("process_submitted_jobs", s.tickSubmitted)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-wake:
			tick(ctx)
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// tickSubmitted claims both SUBMITTED and PENDING jobs: PENDING is the
// retry-holding status a job lands in when provisioning fails within its
// run's retry window (spec.md §4.4), and must be re-examined by this same
// loop on every subsequent tick until the window elapses or capacity
// appears — there is no separate PENDING-specific loop.
func (s *Scheduler) tickSubmitted(ctx context.Context) error {
	for _, status := range []job.Status{job.StatusSubmitted, job.StatusPending} {
		jobs, err := s.Jobs.ListByStatus(ctx, status, s.submittedInFlight.Snapshot(), claimBatchSize)
		if err != nil {
			return fmt.Errorf("listing %s jobs: %w", status, err)
		}
		for _, j := range jobs {
			if !s.submittedInFlight.TryClaim(j.ID) {
				continue
			}
			go func(j job.Job) {
				defer s.submittedInFlight.Release(j.ID)
				if err := s.processSubmittedJob(ctx, j); err != nil {
					s.Logger.Error("processing submitted job", "job_id", j.ID, "error", err)
				}
			}(j)
		}
	}
	return nil
}

// processSubmittedJob implements the per-job decision tree from
// process_submitted_jobs.py's `_process_submitted_job`: try the pool, then
// (if the creation policy allows) provision a fresh instance, then apply
// the retry policy on failure.
func (s *Scheduler) processSubmittedJob(ctx context.Context, j job.Job) error {
	if j.JobNum > 0 {
		ready, err := s.primaryJobReady(ctx, j.RunID)
		if err != nil {
			return fmt.Errorf("checking primary job for run %s: %w", j.RunID, err)
		}
		if !ready {
			return nil
		}
	}

	r, err := s.Runs.Get(ctx, j.RunID)
	if err != nil {
		return fmt.Errorf("loading run %s: %w", j.RunID, err)
	}
	prof := r.Spec.Profile.Normalized()

	if inst, found, err := s.PoolMgr.ClaimIdle(ctx, r.ProjectID, j.ID, j.Spec.Requirements, prof); err != nil {
		return fmt.Errorf("claiming pool instance: %w", err)
	} else if found {
		return s.markProvisioningFromInstance(ctx, j, inst)
	}

	if prof.CreationPolicy == profile.CreationPolicyReuse {
		return s.failNoCapacity(ctx, j)
	}

	pl, err := s.Pools.EnsureDefault(ctx, r.ProjectID, prof.PoolName)
	if err != nil {
		return fmt.Errorf("resolving pool: %w", err)
	}

	project, err := s.Projects.Get(ctx, r.ProjectID)
	if err != nil {
		return fmt.Errorf("loading project %s: %w", r.ProjectID, err)
	}

	offers, err := s.Provisioner.Offers(ctx, j.Spec.Requirements, prof)
	if err != nil {
		s.Logger.Warn("offer fetch failed", "job_id", j.ID, "error", err)
		return s.applyProvisioningFailure(ctx, j, r)
	}

	result, err := s.Provisioner.Provision(ctx, j.ID, pl.ID, offers, j.Spec.Requirements, prof, j.Spec.JobName, project.SSHPublicKey)
	if err != nil {
		s.Logger.Warn("launch failed", "job_id", j.ID, "error", err)
		return s.applyProvisioningFailure(ctx, j, r)
	}
	if result == nil {
		return s.applyProvisioningFailure(ctx, j, r)
	}

	now := time.Now()
	newInst := instance.Instance{
		PoolID:    pl.ID,
		ProjectID: r.ProjectID,
		Offer:     result.Offer,
		Status:    instance.StatusPending,
	}
	createdInst, err := s.Instances.Create(ctx, newInst)
	if err != nil {
		return fmt.Errorf("creating instance row: %w", err)
	}

	// The Provisioner's backend.Launch call already returned successfully by
	// this point, so CREATING/STARTING/READY are walked synchronously rather
	// than polled for: there is no separate agent-reachability check in this
	// control loop, only the compute.Compute contract's launch/terminate
	// pair (see DESIGN.md's control loop implementation notes).
	for _, st := range []instance.Status{instance.StatusCreating, instance.StatusStarting, instance.StatusReady, instance.StatusBusy} {
		if err := createdInst.Transition(st); err != nil {
			return fmt.Errorf("transitioning instance %s: %w", createdInst.ID, err)
		}
	}
	createdInst.ProvisioningData = &result.ProvisioningData
	jobID := j.ID
	createdInst.JobID = &jobID
	if err := s.Instances.Update(ctx, createdInst); err != nil {
		return fmt.Errorf("updating instance %s: %w", createdInst.ID, err)
	}

	j.ProvisioningData = &result.ProvisioningData
	j.InstanceID = &createdInst.ID
	if err := j.Transition(job.StatusProvisioning); err != nil {
		return fmt.Errorf("transitioning job %s: %w", j.ID, err)
	}
	j.LastProcessedAt = &now
	telemetry.JobsProvisionedTotal.WithLabelValues("launch").Inc()
	return s.Jobs.Update(ctx, j)
}

// primaryJobReady implements spec.md §4.6's sibling-wait edge case: a
// job_num>0 job of a multi-job run must not be processed until the run's
// job_num==0 job has reached PROVISIONING or later, so siblings never race
// the primary job for pool/provisioner capacity. A cheap short-circuit, not
// a full dependency scheduler — it only ever looks at job_num 0.
func (s *Scheduler) primaryJobReady(ctx context.Context, runID uuid.UUID) (bool, error) {
	siblings, err := s.Jobs.ListByRun(ctx, runID)
	if err != nil {
		return false, fmt.Errorf("listing jobs for run %s: %w", runID, err)
	}
	var primary job.Job
	var found bool
	for _, sib := range siblings {
		if sib.JobNum != 0 {
			continue
		}
		if !found || sib.SubmissionNum > primary.SubmissionNum {
			primary = sib
			found = true
		}
	}
	if !found {
		return false, nil
	}
	switch primary.Status {
	case job.StatusSubmitted, job.StatusPending:
		return false, nil
	default:
		return true, nil
	}
}

func (s *Scheduler) markProvisioningFromInstance(ctx context.Context, j job.Job, inst instance.Instance) error {
	now := time.Now()
	j.ProvisioningData = inst.ProvisioningData
	j.InstanceID = &inst.ID
	if err := j.Transition(job.StatusProvisioning); err != nil {
		return fmt.Errorf("transitioning job %s: %w", j.ID, err)
	}
	j.LastProcessedAt = &now
	telemetry.JobsProvisionedTotal.WithLabelValues("pool").Inc()
	return s.Jobs.Update(ctx, j)
}

// applyProvisioningFailure implements the retry-vs-fail decision (C6):
// a job within its run's retry window is held PENDING for the next tick,
// otherwise it fails outright with FAILED_TO_START_DUE_TO_NO_CAPACITY.
func (s *Scheduler) applyProvisioningFailure(ctx context.Context, j job.Job, r run.Run) error {
	if retry.Active(r.Spec.Profile.Retry, r.SubmittedAt, time.Now()) {
		now := time.Now()
		if j.Status != job.StatusPending {
			if err := j.Transition(job.StatusPending); err != nil {
				return fmt.Errorf("transitioning job %s: %w", j.ID, err)
			}
		}
		j.LastProcessedAt = &now
		telemetry.JobsRetriedTotal.Inc()
		return s.Jobs.Update(ctx, j)
	}
	return s.failNoCapacity(ctx, j)
}

func (s *Scheduler) failNoCapacity(ctx context.Context, j job.Job) error {
	now := time.Now()
	ec := job.ErrorCodeNoCapacity
	if err := j.Transition(job.StatusFailed); err != nil {
		return fmt.Errorf("transitioning job %s: %w", j.ID, err)
	}
	j.ErrorCode = &ec
	j.LastProcessedAt = &now
	telemetry.JobsFailedTotal.WithLabelValues(string(ec)).Inc()
	return s.Jobs.Update(ctx, j)
}

// subscribeFastWake wraps a Redis pub/sub subscription as a read-only
// string channel plus an unsubscribe func, mirroring the teacher's
// escalation.Engine.Run subscribe pattern.
func subscribeFastWake(ctx context.Context, rdb *redis.Client, channel string) (<-chan string, func() error) {
	pubsub := rdb.Subscribe(ctx, channel)
	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			out <- msg.Payload
		}
	}()
	return out, pubsub.Close
}
