// Package configstore implements the ConfigStore capability (C7): a thin
// key/value wrapper scoped to per-project configuration (backend
// credentials references, default profile overrides), distinct from the
// Storage capability's general-purpose cache/signalling role.
package configstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skyfleet/orchestrator/internal/db"
)

// ConfigStore persists small project-scoped configuration values.
type ConfigStore interface {
	Set(ctx context.Context, projectID uuid.UUID, key, value string) error
	Get(ctx context.Context, projectID uuid.UUID, key string) (string, bool, error)
}

// PostgresConfigStore implements ConfigStore over the relational store,
// following the teacher's hand-written-SQL-over-DBTX pattern.
type PostgresConfigStore struct {
	dbtx db.DBTX
}

// NewPostgresConfigStore builds a PostgresConfigStore backed by dbtx.
func NewPostgresConfigStore(dbtx db.DBTX) *PostgresConfigStore {
	return &PostgresConfigStore{dbtx: dbtx}
}

func (s *PostgresConfigStore) Set(ctx context.Context, projectID uuid.UUID, key, value string) error {
	query := `INSERT INTO project_config (project_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (project_id, key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := s.dbtx.Exec(ctx, query, projectID, key, value); err != nil {
		return fmt.Errorf("setting config %s/%s: %w", projectID, key, err)
	}
	return nil
}

func (s *PostgresConfigStore) Get(ctx context.Context, projectID uuid.UUID, key string) (string, bool, error) {
	var value string
	err := s.dbtx.QueryRow(ctx, `SELECT value FROM project_config WHERE project_id = $1 AND key = $2`, projectID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("getting config %s/%s: %w", projectID, key, err)
	}
	return value, true, nil
}
