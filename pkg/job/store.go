package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skyfleet/orchestrator/internal/db"
	"github.com/skyfleet/orchestrator/internal/jsonstrict"
)

// Store provides database operations for jobs, following the teacher's
// hand-written-SQL-over-DBTX pattern (pkg/incident/store.go, pkg/roster/store.go).
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a Store backed by the given database handle.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const jobColumns = `id, run_id, job_num, submission_num, spec, status, error_code,
	provisioning_data, instance_id, last_processed_at, submitted_at`

func scanJob(row pgx.Row) (Job, error) {
	var j Job
	var specRaw, pdataRaw []byte
	var errorCode *string
	err := row.Scan(
		&j.ID, &j.RunID, &j.JobNum, &j.SubmissionNum, &specRaw, &j.Status,
		&errorCode, &pdataRaw, &j.InstanceID, &j.LastProcessedAt, &j.SubmittedAt,
	)
	if err != nil {
		return Job{}, err
	}
	if err := jsonstrict.Unmarshal(specRaw, &j.Spec); err != nil {
		return Job{}, fmt.Errorf("decoding job spec: %w", err)
	}
	if errorCode != nil {
		ec := ErrorCode(*errorCode)
		j.ErrorCode = &ec
	}
	if len(pdataRaw) > 0 {
		var pdata ProvisioningData
		if err := jsonstrict.Unmarshal(pdataRaw, &pdata); err != nil {
			return Job{}, fmt.Errorf("decoding job provisioning data: %w", err)
		}
		j.ProvisioningData = &pdata
	}
	return j, nil
}

// Create inserts a new job row for run submission or resubmission.
func (s *Store) Create(ctx context.Context, j Job) (Job, error) {
	specRaw, err := json.Marshal(j.Spec)
	if err != nil {
		return Job{}, fmt.Errorf("marshaling job spec: %w", err)
	}
	query := `INSERT INTO jobs (run_id, job_num, submission_num, spec, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + jobColumns
	row := s.dbtx.QueryRow(ctx, query, j.RunID, j.JobNum, j.SubmissionNum, specRaw, j.Status, j.SubmittedAt)
	return scanJob(row)
}

// Get returns a single job by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	return scanJob(s.dbtx.QueryRow(ctx, query, id))
}

// ListByRun returns every job belonging to a run, ordered by job_num then
// submission_num, so the caller can find "the latest submission of job_num".
func (s *Store) ListByRun(ctx context.Context, runID uuid.UUID) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE run_id = $1 ORDER BY job_num, submission_num`
	rows, err := s.dbtx.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("listing jobs by run: %w", err)
	}
	defer rows.Close()
	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ListByStatus returns jobs in the given status across every project,
// excluding ids already claimed by a control loop (spec.md §4.5 step 1).
func (s *Store) ListByStatus(ctx context.Context, status Status, excludeIDs []uuid.UUID, limit int) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1 AND NOT (id = ANY($2)) ORDER BY submitted_at LIMIT $3`
	rows, err := s.dbtx.Query(ctx, query, status, excludeIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs by status: %w", err)
	}
	defer rows.Close()
	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// Update persists a job's mutable fields (status, error code, provisioning
// data, instance reference, last_processed_at). The job's spec and identity
// fields never change after creation.
func (s *Store) Update(ctx context.Context, j Job) error {
	var pdataRaw []byte
	if j.ProvisioningData != nil {
		var err error
		pdataRaw, err = json.Marshal(j.ProvisioningData)
		if err != nil {
			return fmt.Errorf("marshaling job provisioning data: %w", err)
		}
	}
	now := time.Now()
	query := `UPDATE jobs SET status = $2, error_code = $3, provisioning_data = $4,
		instance_id = $5, last_processed_at = $6 WHERE id = $1`
	_, err := s.dbtx.Exec(ctx, query, j.ID, j.Status, j.ErrorCode, pdataRaw, j.InstanceID, now)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", j.ID, err)
	}
	return nil
}
