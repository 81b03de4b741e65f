// Package project implements the Project entity: the top-level tenancy
// boundary that owns runs, pools, fleets, and backend configuration.
package project

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skyfleet/orchestrator/internal/db"
	"github.com/skyfleet/orchestrator/pkg/offer"
)

// Project is the tenancy boundary for runs, pools, fleets, and backend
// credentials.
type Project struct {
	ID              uuid.UUID
	Name            string
	EnabledBackends []offer.BackendType
	SSHPublicKey    string
	Deleted         bool
	CreatedAt       time.Time
}

// Store provides database operations for projects, following the teacher's
// hand-written-SQL-over-DBTX pattern (pkg/incident/store.go).
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a Store backed by the given database handle.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const projectColumns = `id, name, enabled_backends, ssh_public_key, deleted, created_at`

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	var backends []string
	err := row.Scan(&p.ID, &p.Name, &backends, &p.SSHPublicKey, &p.Deleted, &p.CreatedAt)
	if err != nil {
		return Project{}, err
	}
	for _, b := range backends {
		p.EnabledBackends = append(p.EnabledBackends, offer.BackendType(b))
	}
	return p, nil
}

// Create inserts a new project row.
func (s *Store) Create(ctx context.Context, p Project) (Project, error) {
	backends := make([]string, len(p.EnabledBackends))
	for i, b := range p.EnabledBackends {
		backends[i] = string(b)
	}
	query := `INSERT INTO projects (name, enabled_backends, ssh_public_key, deleted, created_at)
		VALUES ($1, $2, $3, false, $4)
		RETURNING ` + projectColumns
	row := s.dbtx.QueryRow(ctx, query, p.Name, backends, p.SSHPublicKey, time.Now())
	return scanProject(row)
}

// Get returns a single project by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProject(s.dbtx.QueryRow(ctx, query, id))
}

// GetByName returns a non-deleted project by name.
func (s *Store) GetByName(ctx context.Context, name string) (Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE name = $1 AND deleted = false`
	return scanProject(s.dbtx.QueryRow(ctx, query, name))
}

// List returns every non-deleted project, used by the scheduler's
// fan-out-over-projects control loops (C5).
func (s *Store) List(ctx context.Context) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE deleted = false ORDER BY name`
	rows, err := s.dbtx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()
	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
