package audit

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestLog_DropsWhenFull(t *testing.T) {
	w := NewWriter(nil, slog.Default())
	// Don't start the background goroutine — nothing drains the channel.

	for i := 0; i < bufferSize; i++ {
		w.Log(Entry{EntityType: EntityJob, EntityID: uuid.New(), ToStatus: "submitted"})
	}

	// The next log should be dropped (non-blocking), not deadlock the test.
	w.Log(Entry{EntityType: EntityJob, EntityID: uuid.New(), ToStatus: "dropped"})

	if len(w.entries) != bufferSize {
		t.Errorf("buffer size = %d, want %d", len(w.entries), bufferSize)
	}
}

func TestLog_EnqueuesEntry(t *testing.T) {
	w := NewWriter(nil, slog.Default())

	id := uuid.New()
	w.Log(Entry{EntityType: EntityInstance, EntityID: id, FromStatus: "idle", ToStatus: "terminating", Reason: "idle_timeout"})

	entry := <-w.entries
	if entry.EntityType != EntityInstance {
		t.Errorf("EntityType = %q, want %q", entry.EntityType, EntityInstance)
	}
	if entry.EntityID != id {
		t.Errorf("EntityID = %v, want %v", entry.EntityID, id)
	}
	if entry.Reason != "idle_timeout" {
		t.Errorf("Reason = %q, want %q", entry.Reason, "idle_timeout")
	}
}
