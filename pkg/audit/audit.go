// Package audit records state transitions (run/job/instance) to a durable
// log, independent of the entity tables themselves. Writes are async and
// batched so a control loop tick is never slowed down by the audit sink.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EntityType identifies which domain entity a transition belongs to.
type EntityType string

const (
	EntityRun      EntityType = "run"
	EntityJob      EntityType = "job"
	EntityInstance EntityType = "instance"
)

// Entry is a single recorded transition.
type Entry struct {
	EntityType EntityType
	EntityID   uuid.UUID
	FromStatus string
	ToStatus   string
	Reason     string // e.g. "idle_timeout", "no_capacity", "user_abort"
}

const (
	bufferSize    = 256
	flushInterval = 2 * time.Second
	flushBatch    = 32
)

// Writer is an async, buffered audit log writer, grounded on the teacher's
// internal/audit.Writer buffered-channel shape (there, per-tenant schema
// fan-out; here, a single table since the orchestrator has no tenant
// schemas).
type Writer struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	entries chan Entry
	wg      sync.WaitGroup
}

// NewWriter creates an audit Writer. Call Start to begin processing entries.
func NewWriter(pool *pgxpool.Pool, logger *slog.Logger) *Writer {
	return &Writer{
		pool:    pool,
		logger:  logger,
		entries: make(chan Entry, bufferSize),
	}
}

// Start begins the background flush goroutine and returns immediately;
// Close waits for that goroutine to drain the channel.
func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Close waits for all pending entries to be flushed.
func (w *Writer) Close() {
	close(w.entries)
	w.wg.Wait()
}

// Log enqueues an audit entry. It never blocks the caller; if the buffer is
// full the entry is dropped and a warning is logged — control loop
// correctness must never depend on audit delivery.
func (w *Writer) Log(entry Entry) {
	select {
	case w.entries <- entry:
	default:
		w.logger.Warn("audit log buffer full, dropping entry",
			"entity_type", entry.EntityType, "entity_id", entry.EntityID, "to_status", entry.ToStatus)
	}
}

func (w *Writer) run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, flushBatch)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case entry, ok := <-w.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= flushBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case entry, ok := <-w.entries:
					if !ok {
						flush()
						return
					}
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (w *Writer) flush(entries []Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		w.logger.Error("acquiring connection for audit flush", "error", err)
		return
	}
	defer conn.Release()

	for _, e := range entries {
		const q = `INSERT INTO audit_log (id, entity_type, entity_id, from_status, to_status, reason, created_at)
		            VALUES ($1, $2, $3, $4, $5, $6, now())`
		if _, err := conn.Exec(ctx, q, uuid.New(), e.EntityType, e.EntityID, e.FromStatus, e.ToStatus, e.Reason); err != nil {
			w.logger.Error("writing audit log entry", "error", err,
				"entity_type", e.EntityType, "entity_id", e.EntityID)
		}
	}
}
