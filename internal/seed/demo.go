package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyfleet/orchestrator/pkg/audit"
	"github.com/skyfleet/orchestrator/pkg/fleet"
	"github.com/skyfleet/orchestrator/pkg/instance"
	"github.com/skyfleet/orchestrator/pkg/job"
	"github.com/skyfleet/orchestrator/pkg/offer"
	"github.com/skyfleet/orchestrator/pkg/pool"
	"github.com/skyfleet/orchestrator/pkg/profile"
	"github.com/skyfleet/orchestrator/pkg/project"
	"github.com/skyfleet/orchestrator/pkg/run"
)

// DemoProjectName is the project provisioned by RunDemo.
const DemoProjectName = "demo"

// RunDemo provisions the "demo" project with a comprehensive set of sample
// data: multiple pools, a standing fleet, warm idle instances, and runs in
// a spread of configuration kinds and statuses. It is destructive: it drops
// the project (and everything under it) if it already exists, so repeated
// invocations always produce a fresh, consistent dataset.
func RunDemo(ctx context.Context, pgPool *pgxpool.Pool, logger *slog.Logger) error {
	projects := project.NewStore(pgPool)

	if existing, err := projects.GetByName(ctx, DemoProjectName); err == nil {
		logger.Info("seed-demo: dropping existing project", "project", DemoProjectName)
		for _, stmt := range []string{
			`DELETE FROM instances WHERE project_id = $1`,
			`DELETE FROM jobs WHERE run_id IN (SELECT id FROM runs WHERE project_id = $1)`,
			`DELETE FROM runs WHERE project_id = $1`,
			`DELETE FROM fleets WHERE project_id = $1`,
			`DELETE FROM pools WHERE project_id = $1`,
			`DELETE FROM project_config WHERE project_id = $1`,
			`DELETE FROM projects WHERE id = $1`,
		} {
			if _, err := pgPool.Exec(ctx, stmt, existing.ID); err != nil {
				return fmt.Errorf("dropping demo project: %w", err)
			}
		}
	}

	p, err := projects.Create(ctx, project.Project{
		Name:            DemoProjectName,
		EnabledBackends: []offer.BackendType{"aws", "gcp", "azure"},
		SSHPublicKey:    "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIDemoSeedKeyDoNotUseInProduction demo@orchestrator",
	})
	if err != nil {
		return fmt.Errorf("provisioning demo project: %w", err)
	}
	logger.Info("seed-demo: created project", "id", p.ID, "name", p.Name)

	pools := pool.NewStore(pgPool)
	defaultPool, err := pools.EnsureDefault(ctx, p.ID, profile.DefaultPoolName)
	if err != nil {
		return fmt.Errorf("ensuring default pool: %w", err)
	}
	gpuPool, err := pools.EnsureDefault(ctx, p.ID, "gpu-pool")
	if err != nil {
		return fmt.Errorf("ensuring gpu pool: %w", err)
	}
	logger.Info("seed-demo: created pools", "default", defaultPool.ID, "gpu", gpuPool.ID)

	// ── Standing fleet in the GPU pool ──────────────────────────────────
	fleetProfile := profile.Profile{
		Backends:   []string{"aws"},
		Regions:    []string{"us-east-1"},
		SpotPolicy: profile.SpotPolicyAuto,
	}.Normalized()

	fleets := fleet.NewStore(pgPool)
	f, err := fleets.Create(ctx, fleet.Fleet{
		ProjectID: p.ID,
		PoolID:    gpuPool.ID,
		Name:      "gpu-standing-capacity",
		Size:      2,
		Profile:   fleetProfile,
	})
	if err != nil {
		return fmt.Errorf("creating demo fleet: %w", err)
	}
	logger.Info("seed-demo: created fleet", "id", f.ID, "size", f.Size)

	// ── Warm idle instances backing the fleet ──────────────────────────
	instances := instance.NewStore(pgPool)
	gpuOffers := []offer.Offer{
		{Backend: "aws", Region: "us-east-1", InstanceType: offer.InstanceResources{Name: "g5.xlarge", CPUs: 4, MemoryMiB: 16384, GPU: &offer.GPUSpec{Count: 1, Name: "A10G", MemoryMiB: 24576}}, Spot: true, Price: 0.42, Available: true},
		{Backend: "aws", Region: "us-east-1", InstanceType: offer.InstanceResources{Name: "g5.2xlarge", CPUs: 8, MemoryMiB: 32768, GPU: &offer.GPUSpec{Count: 1, Name: "A10G", MemoryMiB: 24576}}, Spot: false, Price: 1.21, Available: true},
	}
	warmInstanceIDs := make([]uuid.UUID, 0, len(gpuOffers))
	for i, o := range gpuOffers {
		inst, err := instances.Create(ctx, instance.Instance{
			PoolID:    gpuPool.ID,
			ProjectID: p.ID,
			Offer:     o,
			Status:    instance.StatusPending,
		})
		if err != nil {
			return fmt.Errorf("creating demo instance %d: %w", i, err)
		}
		inst.ProvisioningData = &job.ProvisioningData{
			Backend:      o.Backend,
			InstanceType: o.InstanceType.Name,
			InstanceID:   fmt.Sprintf("i-demo%02d", i),
			Region:       o.Region,
			Price:        o.Price,
			Dockerized:   true,
			PoolID:       gpuPool.ID,
		}
		now := time.Now()
		// Warm pool instances are seeded as already having been used once and
		// released, so they land in IDLE via the same CREATING/STARTING/READY/
		// BUSY/IDLE sequence a real provision-then-release cycle walks.
		for _, st := range []instance.Status{instance.StatusCreating, instance.StatusStarting, instance.StatusReady, instance.StatusBusy, instance.StatusIdle} {
			if err := inst.Transition(st); err != nil {
				return fmt.Errorf("transitioning demo instance %d to %s: %w", i, st, err)
			}
		}
		inst.IdleSince = &now
		if err := instances.Update(ctx, inst); err != nil {
			return fmt.Errorf("marking demo instance %d idle: %w", i, err)
		}
		warmInstanceIDs = append(warmInstanceIDs, inst.ID)
	}
	logger.Info("seed-demo: created idle instances", "count", len(gpuOffers))

	// ── Runs across every configuration kind ───────────────────────────
	runs := run.NewStore(pgPool)
	jobs := job.NewStore(pgPool)
	runSvc := run.NewService(runs, jobs)

	demoRuns := []run.Spec{
		{
			RunName:       "data-prep-pipeline",
			Configuration: run.TaskConfiguration{Commands: []string{"python prepare_data.py --shard=all"}, Nodes: 4},
			Profile:       profile.Profile{Backends: []string{"aws", "gcp"}, SpotPolicy: profile.SpotPolicyAuto}.Normalized(),
		},
		{
			RunName:       "jupyter-dev",
			Configuration: run.DevEnvironmentConfiguration{IDE: "vscode"},
			Profile:       profile.Profile{Backends: []string{"aws"}, CreationPolicy: profile.CreationPolicyReuseOrCreate}.Normalized(),
		},
		{
			RunName:       "inference-api",
			Configuration: run.ServiceConfiguration{Commands: []string{"python serve.py"}, Port: 8000, Replicas: 2},
			Profile:       profile.Profile{Backends: []string{"aws"}, PoolName: gpuPool.Name}.Normalized(),
		},
	}

	createdRuns := make([]run.Run, 0, len(demoRuns))
	for _, spec := range demoRuns {
		r, err := runSvc.Submit(ctx, p.ID, spec)
		if err != nil {
			return fmt.Errorf("submitting demo run %s: %w", spec.RunName, err)
		}
		createdRuns = append(createdRuns, r)
	}
	logger.Info("seed-demo: created runs", "count", len(createdRuns))

	// ── Audit trail for the instances' BUSY -> IDLE transitions ──
	writer := audit.NewWriter(pgPool, logger)
	writer.Start(ctx)
	for _, id := range warmInstanceIDs {
		writer.Log(audit.Entry{
			EntityType: audit.EntityInstance,
			EntityID:   id,
			FromStatus: string(instance.StatusBusy),
			ToStatus:   string(instance.StatusIdle),
			Reason:     "seed_demo_warm_pool",
		})
	}
	writer.Close()

	logger.Info("seed-demo: completed",
		"project", p.Name,
		"pools", 2,
		"fleets", 1,
		"instances", len(gpuOffers),
		"runs", len(createdRuns),
	)
	return nil
}
