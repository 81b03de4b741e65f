package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skyfleet/orchestrator/internal/db"
)

// Record is one row read back from the audit log.
type Record struct {
	ID         uuid.UUID
	EntityType EntityType
	EntityID   uuid.UUID
	FromStatus string
	ToStatus   string
	Reason     string
	CreatedAt  time.Time
}

// Store provides read access to the audit log.
type Store struct {
	dbtx db.DBTX
}

func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const recordColumns = "id, entity_type, entity_id, from_status, to_status, reason, created_at"

func scanRecord(row interface {
	Scan(dest ...any) error
}) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.EntityType, &r.EntityID, &r.FromStatus, &r.ToStatus, &r.Reason, &r.CreatedAt)
	return r, err
}

// ListByEntity returns the transition history for a single entity, most
// recent first.
func (s *Store) ListByEntity(ctx context.Context, entityType EntityType, entityID uuid.UUID, limit, offset int) ([]Record, error) {
	rows, err := s.dbtx.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM audit_log WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`, recordColumns),
		entityType, entityID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning audit log row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountByEntity returns the total number of recorded transitions for an
// entity, used to compute total_pages for offset pagination.
func (s *Store) CountByEntity(ctx context.Context, entityType EntityType, entityID uuid.UUID) (int, error) {
	var total int
	err := s.dbtx.QueryRow(ctx,
		`SELECT count(*) FROM audit_log WHERE entity_type = $1 AND entity_id = $2`,
		entityType, entityID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("counting audit log rows: %w", err)
	}
	return total, nil
}
