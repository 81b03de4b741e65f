package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skyfleet/orchestrator/internal/telemetry"
	"github.com/skyfleet/orchestrator/pkg/instance"
	"github.com/skyfleet/orchestrator/pkg/job"
)

// GraceWindow is how long process_terminating_jobs waits for a graceful
// agent-side stop before forcing backend instance termination (spec.md
// §4.6's cancellation design, default 30s).
const GraceWindow = 30 * time.Second

// runTerminatingLoop drives process_terminating_jobs: tell the agent to
// stop, and once the grace window elapses (tracked via last_processed_at),
// fall back to terminating the backend instance outright.
func (s *Scheduler) runTerminatingLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.TerminatingInterval)
	defer ticker.Stop()
	tick := s.timeTick("process_terminating_jobs", s.tickTerminating)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tick(ctx)
		}
	}
}

func (s *Scheduler) tickTerminating(ctx context.Context) error {
	jobs, err := s.Jobs.ListByStatus(ctx, job.StatusTerminating, s.terminatingInFlight.Snapshot(), claimBatchSize)
	if err != nil {
		return fmt.Errorf("listing terminating jobs: %w", err)
	}
	for _, j := range jobs {
		if !s.terminatingInFlight.TryClaim(j.ID) {
			continue
		}
		go func(j job.Job) {
			defer s.terminatingInFlight.Release(j.ID)
			if err := s.processTerminatingJob(ctx, j); err != nil {
				s.Logger.Error("processing terminating job", "job_id", j.ID, "error", err)
			}
		}(j)
	}
	return nil
}

func (s *Scheduler) processTerminatingJob(ctx context.Context, j job.Job) error {
	if j.ProvisioningData == nil || j.InstanceID == nil {
		// Never made it past scheduling; nothing to tear down on a backend.
		return s.finishTermination(ctx, j)
	}

	firstSeen := j.SubmittedAt
	if j.LastProcessedAt != nil {
		firstSeen = *j.LastProcessedAt
	}
	withinGrace := time.Since(firstSeen) < GraceWindow

	backend, ok := s.Registry.Get(j.ProvisioningData.Backend)
	if !ok {
		return fmt.Errorf("no backend registered for %s", j.ProvisioningData.Backend)
	}

	if withinGrace {
		if err := backend.StopRuntime(ctx, *j.ProvisioningData); err != nil {
			s.Logger.Warn("graceful stop request failed, will retry within grace window", "job_id", j.ID, "error", err)
		}
		if j.LastProcessedAt == nil {
			now := time.Now()
			j.LastProcessedAt = &now
			return s.Jobs.Update(ctx, j)
		}
		return nil
	}

	if err := backend.Terminate(ctx, *j.ProvisioningData); err != nil {
		return fmt.Errorf("terminating backend instance for job %s: %w", j.ID, err)
	}
	if err := s.terminateInstance(ctx, *j.InstanceID, "job_terminating"); err != nil {
		return err
	}
	return s.finishTermination(ctx, j)
}

func (s *Scheduler) finishTermination(ctx context.Context, j job.Job) error {
	now := time.Now()
	if err := j.Transition(job.StatusTerminated); err != nil {
		return fmt.Errorf("transitioning job %s: %w", j.ID, err)
	}
	j.LastProcessedAt = &now
	return s.Jobs.Update(ctx, j)
}

// terminateInstance moves an instance to TERMINATED and records the reason
// it was torn down, for the instances_terminated_total metric's label.
func (s *Scheduler) terminateInstance(ctx context.Context, instanceID uuid.UUID, reason string) error {
	inst, err := s.Instances.Get(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("loading instance %s: %w", instanceID, err)
	}
	if inst.Status.Terminal() {
		return nil
	}
	if inst.Status != instance.StatusTerminating {
		if err := inst.Transition(instance.StatusTerminating); err != nil {
			return fmt.Errorf("transitioning instance %s: %w", instanceID, err)
		}
		if err := s.Instances.Update(ctx, inst); err != nil {
			return err
		}
	}
	if err := inst.Transition(instance.StatusTerminated); err != nil {
		return fmt.Errorf("transitioning instance %s: %w", instanceID, err)
	}
	if err := s.Instances.Update(ctx, inst); err != nil {
		return err
	}
	telemetry.InstancesTerminatedTotal.WithLabelValues(reason).Inc()
	return nil
}
