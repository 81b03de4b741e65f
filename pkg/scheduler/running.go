package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/skyfleet/orchestrator/internal/telemetry"
	"github.com/skyfleet/orchestrator/pkg/job"
)

// runRunningLoop drives process_running_jobs: poll the on-host agent for
// every PULLING/RUNNING job's status, advancing to RUNNING, DONE, or FAILED
// and releasing the instance back to its pool once the job ends.
func (s *Scheduler) runRunningLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.RunningInterval)
	defer ticker.Stop()
	tick := s.timeTick("process_running_jobs", s.tickRunning)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tick(ctx)
		}
	}
}

func (s *Scheduler) tickRunning(ctx context.Context) error {
	for _, status := range []job.Status{job.StatusPulling, job.StatusRunning} {
		jobs, err := s.Jobs.ListByStatus(ctx, status, s.runningInFlight.Snapshot(), claimBatchSize)
		if err != nil {
			return fmt.Errorf("listing %s jobs: %w", status, err)
		}
		for _, j := range jobs {
			if !s.runningInFlight.TryClaim(j.ID) {
				continue
			}
			go func(j job.Job) {
				defer s.runningInFlight.Release(j.ID)
				if err := s.processRunningJob(ctx, j); err != nil {
					s.Logger.Error("processing running job", "job_id", j.ID, "error", err)
				}
			}(j)
		}
	}
	return nil
}

func (s *Scheduler) processRunningJob(ctx context.Context, j job.Job) error {
	if j.ProvisioningData == nil {
		return fmt.Errorf("job %s has no provisioning data", j.ID)
	}
	backend, ok := s.Registry.Get(j.ProvisioningData.Backend)
	if !ok {
		return fmt.Errorf("no backend registered for %s", j.ProvisioningData.Backend)
	}

	status, err := backend.PollRuntime(ctx, *j.ProvisioningData)
	if err != nil {
		s.Logger.Warn("polling runtime status", "job_id", j.ID, "error", err)
		return nil // transient poll failure: leave the job as-is for the next tick
	}

	now := time.Now()
	switch {
	case status.Unreachable:
		return s.failJobAndReleaseInstance(ctx, j, job.ErrorCodeInstanceTerminated)
	case status.Failed:
		return s.failJobAndReleaseInstance(ctx, j, job.ErrorCodeContainerExitedError)
	case status.Done:
		if err := j.Transition(job.StatusDone); err != nil {
			return fmt.Errorf("transitioning job %s: %w", j.ID, err)
		}
		j.LastProcessedAt = &now
		if err := s.Jobs.Update(ctx, j); err != nil {
			return err
		}
		return s.releaseJobInstance(ctx, j)
	case status.Running && j.Status == job.StatusPulling:
		if err := j.Transition(job.StatusRunning); err != nil {
			return fmt.Errorf("transitioning job %s: %w", j.ID, err)
		}
		j.LastProcessedAt = &now
		return s.Jobs.Update(ctx, j)
	default:
		j.LastProcessedAt = &now
		return s.Jobs.Update(ctx, j)
	}
}

func (s *Scheduler) failJobAndReleaseInstance(ctx context.Context, j job.Job, ec job.ErrorCode) error {
	now := time.Now()
	if err := j.Transition(job.StatusFailed); err != nil {
		return fmt.Errorf("transitioning job %s: %w", j.ID, err)
	}
	j.ErrorCode = &ec
	j.LastProcessedAt = &now
	telemetry.JobsFailedTotal.WithLabelValues(string(ec)).Inc()
	if err := s.Jobs.Update(ctx, j); err != nil {
		return err
	}
	return s.releaseJobInstance(ctx, j)
}

func (s *Scheduler) releaseJobInstance(ctx context.Context, j job.Job) error {
	if j.InstanceID == nil {
		return nil
	}
	return s.PoolMgr.Release(ctx, *j.InstanceID)
}
