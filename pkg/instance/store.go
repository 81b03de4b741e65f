package instance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skyfleet/orchestrator/internal/db"
	"github.com/skyfleet/orchestrator/internal/jsonstrict"
	"github.com/skyfleet/orchestrator/pkg/job"
)

// Store provides database operations for instances, following the teacher's
// hand-written-SQL-over-DBTX pattern (pkg/incident/store.go).
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a Store backed by the given database handle.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const instanceColumns = `id, pool_id, project_id, offer, provisioning_data, status, job_id, idle_since, created_at`

func scanInstance(row pgx.Row) (Instance, error) {
	var i Instance
	var offerRaw, pdataRaw []byte
	err := row.Scan(&i.ID, &i.PoolID, &i.ProjectID, &offerRaw, &pdataRaw, &i.Status, &i.JobID, &i.IdleSince, &i.CreatedAt)
	if err != nil {
		return Instance{}, err
	}
	if err := jsonstrict.Unmarshal(offerRaw, &i.Offer); err != nil {
		return Instance{}, fmt.Errorf("decoding instance offer: %w", err)
	}
	if len(pdataRaw) > 0 {
		var pdata job.ProvisioningData
		if err := jsonstrict.Unmarshal(pdataRaw, &pdata); err != nil {
			return Instance{}, fmt.Errorf("decoding instance provisioning data: %w", err)
		}
		i.ProvisioningData = &pdata
	}
	return i, nil
}

// Create inserts a new instance row, PENDING until the Provisioner reports
// back (spec.md §4.3).
func (s *Store) Create(ctx context.Context, i Instance) (Instance, error) {
	offerRaw, err := json.Marshal(i.Offer)
	if err != nil {
		return Instance{}, fmt.Errorf("marshaling instance offer: %w", err)
	}
	now := time.Now()
	query := `INSERT INTO instances (pool_id, project_id, offer, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + instanceColumns
	row := s.dbtx.QueryRow(ctx, query, i.PoolID, i.ProjectID, offerRaw, i.Status, now)
	return scanInstance(row)
}

// Get returns a single instance by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE id = $1`
	return scanInstance(s.dbtx.QueryRow(ctx, query, id))
}

// ListClaimableInPool returns a pool's READY and IDLE instances, used by the
// Pool Manager (C2) to find reuse candidates before falling through to
// provisioning (spec.md §4.2's filter(..., status=READY), broadened to also
// cover the IDLE instances a prior release left behind).
func (s *Store) ListClaimableInPool(ctx context.Context, poolID uuid.UUID) ([]Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE pool_id = $1 AND status IN ($2, $3) ORDER BY idle_since`
	rows, err := s.dbtx.Query(ctx, query, poolID, StatusReady, StatusIdle)
	if err != nil {
		return nil, fmt.Errorf("listing claimable instances: %w", err)
	}
	defer rows.Close()
	var out []Instance
	for rows.Next() {
		i, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning instance row: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// ListIdleOlderThan returns idle instances whose idle_since predates cutoff,
// used by process_idle_instances (C5) to find termination candidates.
func (s *Store) ListIdleOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE status = $1 AND idle_since < $2 ORDER BY idle_since LIMIT $3`
	rows, err := s.dbtx.Query(ctx, query, StatusIdle, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("listing stale idle instances: %w", err)
	}
	defer rows.Close()
	var out []Instance
	for rows.Next() {
		i, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning instance row: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// TryClaim atomically moves one READY-or-IDLE instance to BUSY and assigns
// jobID, using a conditional UPDATE so two control-loop goroutines racing on
// the same pool cannot both win the same instance (spec.md §4.2's
// claim(instance, job), §8 scenario 6). ok is false if the instance was no
// longer claimable by the time this ran.
func (s *Store) TryClaim(ctx context.Context, instanceID, jobID uuid.UUID) (ok bool, err error) {
	tag, err := s.dbtx.Exec(ctx,
		`UPDATE instances SET status = $3, job_id = $2, idle_since = NULL WHERE id = $1 AND status IN ($4, $5)`,
		instanceID, jobID, StatusBusy, StatusReady, StatusIdle)
	if err != nil {
		return false, fmt.Errorf("claiming instance %s: %w", instanceID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release moves an instance back to IDLE with a fresh idle_since, called
// when its owning job finishes (spec.md §4.2).
func (s *Store) Release(ctx context.Context, instanceID uuid.UUID) error {
	now := time.Now()
	_, err := s.dbtx.Exec(ctx, `UPDATE instances SET status = $2, job_id = NULL, idle_since = $3 WHERE id = $1`,
		instanceID, StatusIdle, now)
	if err != nil {
		return fmt.Errorf("releasing instance %s: %w", instanceID, err)
	}
	return nil
}

// Update persists an instance's status, provisioning data, and job/idle
// references.
func (s *Store) Update(ctx context.Context, i Instance) error {
	var pdataRaw []byte
	if i.ProvisioningData != nil {
		var err error
		pdataRaw, err = json.Marshal(i.ProvisioningData)
		if err != nil {
			return fmt.Errorf("marshaling instance provisioning data: %w", err)
		}
	}
	query := `UPDATE instances SET status = $2, provisioning_data = $3, job_id = $4, idle_since = $5 WHERE id = $1`
	_, err := s.dbtx.Exec(ctx, query, i.ID, i.Status, pdataRaw, i.JobID, i.IdleSince)
	if err != nil {
		return fmt.Errorf("updating instance %s: %w", i.ID, err)
	}
	return nil
}
