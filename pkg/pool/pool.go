// Package pool implements the Pool Manager (C2): a named bucket of
// Instances within a Project that jobs claim from before falling through to
// fresh provisioning.
package pool

import (
	"time"

	"github.com/google/uuid"
)

// Pool is a named bucket of instances within a project (spec.md §4.2).
type Pool struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	Name      string
	CreatedAt time.Time
}
