package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skyfleet/orchestrator/internal/db"
	"github.com/skyfleet/orchestrator/pkg/profile"
)

// Store provides database operations for pools, following the teacher's
// hand-written-SQL-over-DBTX pattern (pkg/incident/store.go).
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a Store backed by the given database handle.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const poolColumns = `id, project_id, name, created_at`

func scanPool(row pgx.Row) (Pool, error) {
	var p Pool
	err := row.Scan(&p.ID, &p.ProjectID, &p.Name, &p.CreatedAt)
	return p, err
}

// EnsureDefault idempotently creates the project's pool named name (the
// DefaultPoolName unless the run's profile names another), resolving
// spec.md §7's "pools are auto-created on first reference" open question
// via an ON CONFLICT DO NOTHING upsert followed by a re-read — grounded on
// the teacher's `UpsertScheduleWeek` idempotent-upsert pattern
// (pkg/roster/store.go).
func (s *Store) EnsureDefault(ctx context.Context, projectID uuid.UUID, name string) (Pool, error) {
	if name == "" {
		name = profile.DefaultPoolName
	}
	_, err := s.dbtx.Exec(ctx,
		`INSERT INTO pools (project_id, name, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (project_id, name) DO NOTHING`,
		projectID, name, time.Now())
	if err != nil {
		return Pool{}, fmt.Errorf("upserting pool %s/%s: %w", projectID, name, err)
	}
	query := `SELECT ` + poolColumns + ` FROM pools WHERE project_id = $1 AND name = $2`
	return scanPool(s.dbtx.QueryRow(ctx, query, projectID, name))
}

// Get returns a single pool by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE id = $1`
	return scanPool(s.dbtx.QueryRow(ctx, query, id))
}

// ListByProject returns every pool in a project.
func (s *Store) ListByProject(ctx context.Context, projectID uuid.UUID) ([]Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE project_id = $1 ORDER BY name`
	rows, err := s.dbtx.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing pools by project: %w", err)
	}
	defer rows.Close()
	var out []Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pool row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
