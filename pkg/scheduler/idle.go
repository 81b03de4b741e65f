package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/skyfleet/orchestrator/pkg/profile"
)

// runIdleLoop drives process_idle_instances: terminate instances that have
// sat IDLE longer than profile.DefaultTerminationIdleTime. That default is
// the cutoff for every instance; no run's or pool's termination_policy or
// termination_idle_time is consulted, so dont-destroy instances are
// terminated too. Grounded on the teacher's simpler single-purpose
// reaper shape (pkg/roster/worker.go's RunScheduleTopUpLoop) rather than the
// per-tenant fan-out engine, since this loop's query is already global.
func (s *Scheduler) runIdleLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.IdleInterval)
	defer ticker.Stop()
	tick := s.timeTick("process_idle_instances", s.tickIdle)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// tickIdle fetches instances whose idle_since is older than
// profile.DefaultTerminationIdleTime and re-checks each one's idle age
// against that same default before terminating it. It does not look up any
// termination policy or per-run idle window: idle_since alone doesn't carry
// the policy, and every instance is held to the default.
func (s *Scheduler) tickIdle(ctx context.Context) error {
	cutoff := time.Now().Add(-profile.DefaultTerminationIdleTime)
	candidates, err := s.Instances.ListIdleOlderThan(ctx, cutoff, claimBatchSize)
	if err != nil {
		return fmt.Errorf("listing stale idle instances: %w", err)
	}
	for _, inst := range candidates {
		if inst.IdleSince == nil {
			continue
		}
		if time.Since(*inst.IdleSince) < profile.DefaultTerminationIdleTime {
			continue
		}
		if err := s.terminateInstance(ctx, inst.ID, "idle_timeout"); err != nil {
			s.Logger.Error("terminating idle instance", "instance_id", inst.ID, "error", err)
		}
	}
	return nil
}
