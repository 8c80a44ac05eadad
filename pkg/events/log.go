package events

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Log is the sole writer of a run's pipeline_events.jsonl, per spec.md §5
// ("the driver is the sole writer of pipeline_state.json and
// pipeline_events.jsonl; no other component mutates them"). Appends are
// serialized by a mutex since stage workers may log concurrently.
type Log struct {
	mu    sync.Mutex
	file  *os.File
	runID string
}

// Open creates (or truncates) the events log at path for runID.
func Open(path, runID string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open events log %s: %w", path, err)
	}
	return &Log{file: f, runID: runID}, nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Record appends one event line, stamping its id and timestamp.
func (l *Log) Record(typ EventType, stageID, moduleID, message string) error {
	ev := Event{
		ID:        uuid.NewString(),
		Type:      typ,
		RunID:     l.runID,
		StageID:   stageID,
		ModuleID:  moduleID,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}
