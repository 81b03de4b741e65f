package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/skyfleet/orchestrator/pkg/gateway"
	"github.com/skyfleet/orchestrator/pkg/job"
	"github.com/skyfleet/orchestrator/pkg/run"
)

// runGatewayLoop drives process_gateways: ensure every running service-type
// job has an active gateway registration, and unregister ones that have
// ended. Only started when a Gateway collaborator is configured.
func (s *Scheduler) runGatewayLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.GatewayInterval)
	defer ticker.Stop()
	tick := s.timeTick("process_gateways", s.tickGateways)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tick(ctx)
		}
	}
}

func (s *Scheduler) tickGateways(ctx context.Context) error {
	projects, err := s.Projects.List(ctx)
	if err != nil {
		return fmt.Errorf("listing projects: %w", err)
	}
	for _, p := range projects {
		runs, err := s.Runs.ListByProject(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("listing runs for project %s: %w", p.ID, err)
		}
		for _, r := range runs {
			if err := s.reconcileRunGateway(ctx, r); err != nil {
				s.Logger.Error("reconciling gateway", "run_id", r.ID, "error", err)
			}
		}
	}
	return nil
}

func (s *Scheduler) reconcileRunGateway(ctx context.Context, r run.Run) error {
	svc, ok := r.Spec.Configuration.(run.ServiceConfiguration)
	if !ok {
		return nil
	}
	jobs, err := s.Jobs.ListByRun(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("listing jobs for run %s: %w", r.ID, err)
	}

	running := false
	var hostname, backendAddr string
	for _, j := range jobs {
		if j.Status == job.StatusRunning && j.ProvisioningData != nil {
			running = true
			hostname = j.ProvisioningData.Hostname
			backendAddr = fmt.Sprintf("%s:%d", j.ProvisioningData.Hostname, svc.Port)
			break
		}
	}

	if running {
		return s.Gateway.RegisterService(ctx, gateway.ServiceRegistration{
			RunName:  r.RunName,
			Hostname: hostname,
			Backend:  backendAddr,
		})
	}
	return s.Gateway.UnregisterService(ctx, r.RunName)
}
