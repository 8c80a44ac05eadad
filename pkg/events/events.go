// Package events is the Driver's append-only stage-lifecycle log
// (spec.md §6's pipeline_events.jsonl), grounded on tarsy's
// pkg/events/payloads.go typed-event-payload idiom (StageStatusPayload:
// session/stage id, status, RFC3339Nano timestamp) and its
// EventTypeStageStatus vocabulary (started/completed/failed/timed_out/
// cancelled) from pkg/events/types.go — adapted from that package's
// WebSocket+PostgreSQL NOTIFY/LISTEN transport (pkg/events/manager.go; no
// analogue in a single-process batch CLI, see DESIGN.md) to a local
// JSON-Lines file any later run can replay for resume/inspection.
package events

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stage lifecycle status values, same vocabulary as tarsy's StageStatus*
// constants.
const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusTimedOut  = "timed_out"
	StatusCancelled = "cancelled"
)

// StageEvent is one line of the pipeline's event log — the run-scoped
// analogue of tarsy's StageStatusPayload (session_id becomes run_id;
// stage_name/stage_index drop since the recipe's stage list is the single
// source of truth for those here). EventID and Timestamp are stamped by
// Append, matching tarsy's id-generation convention of assigning a fresh
// uuid per emitted event.
type StageEvent struct {
	EventID   string    `json:"event_id,omitempty"`
	RunID     string    `json:"run_id"`
	StageID   string    `json:"stage_id"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Log appends StageEvents to an on-disk JSON-Lines file. Safe for
// concurrent use by a worker pool emitting events from parallel stage
// invocations.
type Log struct {
	mu  sync.Mutex
	w   io.WriteCloser
	enc *json.Encoder
}

// Open creates (or appends to) the event log at path.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("events: open log: %w", err)
	}
	return &Log{w: f, enc: json.NewEncoder(f)}, nil
}

// Append writes one stage-lifecycle event as a single JSON line, stamping
// a fresh event id and the current time if not already set.
func (l *Log) Append(e StageEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enc.Encode(e); err != nil {
		return fmt.Errorf("events: append: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Close()
}
