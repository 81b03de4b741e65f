package run

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skyfleet/orchestrator/pkg/job"
)

// Service implements the Run-facing operations: submission (including
// resubmission), listing, and the user-initiated stop/abort actions.
type Service struct {
	runs *Store
	jobs *job.Store
}

// NewService builds a Service over the given stores. Submit's
// soft-delete-then-create is atomic only when both stores share a single
// transaction's DBTX; the callers in this module (internal/seed) pass the
// connection pool, so there it is not atomic.
func NewService(runs *Store, jobs *job.Store) *Service {
	return &Service{runs: runs, jobs: jobs}
}

// jobCount returns how many jobs a Configuration variant submits, per
// spec.md §4.1: dev-environment is always one job, task/service fan out
// across their declared node/replica count (minimum one).
func jobCount(c Configuration) int {
	switch v := c.(type) {
	case TaskConfiguration:
		if v.Nodes > 1 {
			return v.Nodes
		}
	case ServiceConfiguration:
		if v.Replicas > 1 {
			return v.Replicas
		}
	}
	return 1
}

// Submit creates a new run, or — if an active run with the same name already
// exists — soft-deletes it first and creates a fresh one with
// submission_num reset to 0 (spec.md §10, grounded on original_source's
// runs.py resubmission handling, labeled L2 in SPEC_FULL.md).
func (s *Service) Submit(ctx context.Context, projectID uuid.UUID, spec Spec) (Run, error) {
	if existing, err := s.runs.GetActiveByName(ctx, projectID, spec.RunName); err == nil {
		if err := s.runs.SoftDelete(ctx, existing.ID); err != nil {
			return Run{}, fmt.Errorf("soft-deleting prior run %s: %w", existing.ID, err)
		}
	}

	now := time.Now()
	r := Run{
		ProjectID:   projectID,
		RunName:     spec.RunName,
		Spec:        spec,
		Status:      Status(job.StatusSubmitted),
		SubmittedAt: now,
	}
	r, err := s.runs.Create(ctx, r)
	if err != nil {
		return Run{}, fmt.Errorf("creating run %s: %w", spec.RunName, err)
	}

	n := jobCount(spec.Configuration)
	for jobNum := 0; jobNum < n; jobNum++ {
		j := job.Job{
			RunID:         r.ID,
			JobNum:        jobNum,
			SubmissionNum: 0,
			Spec:          jobSpecFor(spec, jobNum),
			Status:        job.StatusSubmitted,
			SubmittedAt:   now,
		}
		if _, err := s.jobs.Create(ctx, j); err != nil {
			return Run{}, fmt.Errorf("creating job %d for run %s: %w", jobNum, r.ID, err)
		}
	}
	return r, nil
}

// jobSpecFor derives a Job's Spec from its owning Run's Spec and job_num.
// Per-node/per-replica customization (distinct env, ranks) is the CLI
// collaborator's concern; the core only needs the shared command/image/
// requirements carried through identically across jobNum siblings.
func jobSpecFor(spec Spec, jobNum int) job.Spec {
	js := job.Spec{
		JobName: fmt.Sprintf("%s-%d", spec.RunName, jobNum),
	}
	switch c := spec.Configuration.(type) {
	case TaskConfiguration:
		js.Commands = c.Commands
	case ServiceConfiguration:
		js.Commands = c.Commands
		if c.Port != 0 {
			js.Ports = []job.PortMapping{{ContainerPort: c.Port}}
			js.Gateway = &job.GatewayHint{}
		}
	case DevEnvironmentConfiguration:
		js.Commands = nil
	}
	return js
}

// Get returns a single run by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	return s.runs.Get(ctx, id)
}

// List returns non-deleted runs in a project.
func (s *Service) List(ctx context.Context, projectID uuid.UUID) ([]Run, error) {
	return s.runs.ListByProject(ctx, projectID)
}

// Stop requests a graceful stop: the run and its non-terminal jobs move to
// TERMINATING, and the scheduler's process_terminating_jobs loop (C5) drives
// the actual instance teardown.
func (s *Service) Stop(ctx context.Context, id uuid.UUID) error {
	return s.transitionRun(ctx, id, Status(job.StatusTerminating))
}

// Abort requests an immediate abort, bypassing graceful termination.
func (s *Service) Abort(ctx context.Context, id uuid.UUID) error {
	return s.transitionRun(ctx, id, Status(job.StatusAborted))
}

func (s *Service) transitionRun(ctx context.Context, id uuid.UUID, to Status) error {
	r, err := s.runs.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("loading run %s: %w", id, err)
	}
	if err := r.Transition(to); err != nil {
		return err
	}
	jobs, err := s.jobs.ListByRun(ctx, id)
	if err != nil {
		return fmt.Errorf("listing jobs for run %s: %w", id, err)
	}
	latest := latestSubmissionPerJobNum(jobs)
	for _, j := range latest {
		if j.Status.Terminal() {
			continue
		}
		if err := j.Transition(job.Status(to)); err != nil {
			return fmt.Errorf("transitioning job %s: %w", j.ID, err)
		}
		if err := s.jobs.Update(ctx, j); err != nil {
			return fmt.Errorf("updating job %s: %w", j.ID, err)
		}
	}
	return s.runs.UpdateStatus(ctx, id, to)
}

// latestSubmissionPerJobNum reduces a run's full job history (every
// resubmission of every job_num) down to the one row per job_num that
// currently owns scheduling, mirroring DeriveStatus's input contract.
func latestSubmissionPerJobNum(jobs []job.Job) []job.Job {
	byNum := map[int]job.Job{}
	for _, j := range jobs {
		cur, ok := byNum[j.JobNum]
		if !ok || j.SubmissionNum > cur.SubmissionNum {
			byNum[j.JobNum] = j
		}
	}
	out := make([]job.Job, 0, len(byNum))
	for _, j := range byNum {
		out = append(out, j)
	}
	return out
}
