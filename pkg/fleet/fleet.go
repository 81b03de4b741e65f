// Package fleet implements the Fleet entity: a declarative request for N
// standing instances matching a profile, independent of any particular run
// (spec.md §10, supplementing the distilled spec from original_source's
// fleets feature). Fleets are stored and listed only: no control loop reads
// them, and nothing provisions instances to keep a fleet filled.
package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skyfleet/orchestrator/internal/db"
	"github.com/skyfleet/orchestrator/internal/jsonstrict"
	"github.com/skyfleet/orchestrator/pkg/profile"
)

// Fleet declares that a project wants Size standing instances matching
// Profile in PoolID, regardless of job demand.
type Fleet struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	PoolID    uuid.UUID
	Name      string
	Size      int
	Profile   profile.Profile
	Deleted   bool
	CreatedAt time.Time
}

// Store provides database operations for fleets, following the teacher's
// hand-written-SQL-over-DBTX pattern (pkg/incident/store.go).
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a Store backed by the given database handle.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const fleetColumns = `id, project_id, pool_id, name, size, profile, deleted, created_at`

func scanFleet(row pgx.Row) (Fleet, error) {
	var f Fleet
	var profileRaw []byte
	err := row.Scan(&f.ID, &f.ProjectID, &f.PoolID, &f.Name, &f.Size, &profileRaw, &f.Deleted, &f.CreatedAt)
	if err != nil {
		return Fleet{}, err
	}
	if err := jsonstrict.Unmarshal(profileRaw, &f.Profile); err != nil {
		return Fleet{}, fmt.Errorf("decoding fleet profile: %w", err)
	}
	return f, nil
}

// Create inserts a new fleet row.
func (s *Store) Create(ctx context.Context, f Fleet) (Fleet, error) {
	profileRaw, err := json.Marshal(f.Profile)
	if err != nil {
		return Fleet{}, fmt.Errorf("marshaling fleet profile: %w", err)
	}
	query := `INSERT INTO fleets (project_id, pool_id, name, size, profile, deleted, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)
		RETURNING ` + fleetColumns
	row := s.dbtx.QueryRow(ctx, query, f.ProjectID, f.PoolID, f.Name, f.Size, profileRaw, time.Now())
	return scanFleet(row)
}

// ListActive returns non-deleted fleets across every project, oldest first.
// No scheduler loop calls it.
func (s *Store) ListActive(ctx context.Context) ([]Fleet, error) {
	query := `SELECT ` + fleetColumns + ` FROM fleets WHERE deleted = false ORDER BY created_at`
	rows, err := s.dbtx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing active fleets: %w", err)
	}
	defer rows.Close()
	var out []Fleet
	for rows.Next() {
		f, err := scanFleet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fleet row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
