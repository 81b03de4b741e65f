// Package seed provisions development data: a project, its default pool,
// and a small run so a freshly migrated database isn't empty.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyfleet/orchestrator/pkg/job"
	"github.com/skyfleet/orchestrator/pkg/offer"
	"github.com/skyfleet/orchestrator/pkg/pool"
	"github.com/skyfleet/orchestrator/pkg/profile"
	"github.com/skyfleet/orchestrator/pkg/project"
	"github.com/skyfleet/orchestrator/pkg/run"
)

// DevProjectName is the project seeded for development/testing.
const DevProjectName = "main"

// Run provisions a single development project with a default pool and one
// sample run. It is idempotent: if the project already exists it logs and
// returns nil.
func Run(ctx context.Context, pgPool *pgxpool.Pool, logger *slog.Logger) error {
	projects := project.NewStore(pgPool)

	if _, err := projects.GetByName(ctx, DevProjectName); err == nil {
		logger.Info("seed: project already exists, skipping", "project", DevProjectName)
		return nil
	}

	p, err := projects.Create(ctx, project.Project{
		Name:            DevProjectName,
		EnabledBackends: []offer.BackendType{"aws", "gcp"},
		SSHPublicKey:    "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIDevSeedKeyDoNotUseInProduction dev@orchestrator",
	})
	if err != nil {
		return fmt.Errorf("creating seed project: %w", err)
	}
	logger.Info("seed: created project", "id", p.ID, "name", p.Name)

	pools := pool.NewStore(pgPool)
	defaultPool, err := pools.EnsureDefault(ctx, p.ID, profile.DefaultPoolName)
	if err != nil {
		return fmt.Errorf("ensuring default pool: %w", err)
	}
	logger.Info("seed: ensured default pool", "id", defaultPool.ID, "name", defaultPool.Name)

	runs := run.NewStore(pgPool)
	jobs := job.NewStore(pgPool)
	runSvc := run.NewService(runs, jobs)

	spec := run.Spec{
		RunName: "hello-world",
		Configuration: run.TaskConfiguration{
			Commands: []string{"echo hello from the orchestrator"},
		},
		Profile: profile.Profile{
			Backends:       []string{"aws"},
			SpotPolicy:     profile.SpotPolicyOnDemand,
			CreationPolicy: profile.CreationPolicyReuseOrCreate,
		}.Normalized(),
	}

	r, err := runSvc.Submit(ctx, p.ID, spec)
	if err != nil {
		return fmt.Errorf("submitting seed run: %w", err)
	}
	logger.Info("seed: submitted run", "id", r.ID, "name", r.RunName, "status", r.Status)

	logger.Info("seed: completed successfully", "project", p.Name, "pools", 1, "runs", 1)
	return nil
}
