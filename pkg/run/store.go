package run

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skyfleet/orchestrator/internal/db"
)

// Store provides database operations for runs, following the teacher's
// hand-written-SQL-over-DBTX pattern (pkg/incident/store.go).
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a Store backed by the given database handle.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const runColumns = `id, project_id, run_name, spec, status, deleted, submitted_at`

func scanRun(row pgx.Row) (Run, error) {
	var r Run
	var specRaw []byte
	err := row.Scan(&r.ID, &r.ProjectID, &r.RunName, &specRaw, &r.Status, &r.Deleted, &r.SubmittedAt)
	if err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal(specRaw, &r.Spec); err != nil {
		return Run{}, fmt.Errorf("decoding run spec: %w", err)
	}
	return r, nil
}

// Create inserts a new run row.
func (s *Store) Create(ctx context.Context, r Run) (Run, error) {
	specRaw, err := json.Marshal(r.Spec)
	if err != nil {
		return Run{}, fmt.Errorf("marshaling run spec: %w", err)
	}
	query := `INSERT INTO runs (project_id, run_name, spec, status, deleted, submitted_at)
		VALUES ($1, $2, $3, $4, false, $5)
		RETURNING ` + runColumns
	row := s.dbtx.QueryRow(ctx, query, r.ProjectID, r.RunName, specRaw, r.Status, r.SubmittedAt)
	return scanRun(row)
}

// Get returns a single run by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`
	return scanRun(s.dbtx.QueryRow(ctx, query, id))
}

// GetActiveByName returns the non-deleted run named runName within a
// project, used by Submit to decide between a fresh create and a resubmit
// (spec.md §10 / original_source's runs.py resubmission handling).
func (s *Store) GetActiveByName(ctx context.Context, projectID uuid.UUID, runName string) (Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE project_id = $1 AND run_name = $2 AND deleted = false`
	return scanRun(s.dbtx.QueryRow(ctx, query, projectID, runName))
}

// ListByProject returns non-deleted runs in a project, most recent first.
func (s *Store) ListByProject(ctx context.Context, projectID uuid.UUID) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE project_id = $1 AND deleted = false ORDER BY submitted_at DESC`
	rows, err := s.dbtx.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing runs by project: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateStatus persists a run's derived status.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	_, err := s.dbtx.Exec(ctx, `UPDATE runs SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("updating run %s status: %w", id, err)
	}
	return nil
}

// SoftDelete marks a run deleted without removing its row, so its name can
// be resubmitted while historical jobs/instances remain queryable (spec.md
// §10's resubmission semantics).
func (s *Store) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := s.dbtx.Exec(ctx, `UPDATE runs SET deleted = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("soft-deleting run %s: %w", id, err)
	}
	return nil
}
