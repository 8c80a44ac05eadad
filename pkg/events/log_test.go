package events_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/copperdogma/gamebook-pipeline/pkg/events"
	"github.com/stretchr/testify/require"
)

func TestLog_RecordAppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline_events.jsonl")

	log, err := events.Open(path, "run-123")
	require.NoError(t, err)

	require.NoError(t, log.Record(events.EventStageStarted, "reduce", "ir_reducer", ""))
	require.NoError(t, log.Record(events.EventStageDone, "reduce", "ir_reducer", "ok"))
	require.NoError(t, log.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []events.Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev events.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		lines = append(lines, ev)
	}
	require.Len(t, lines, 2)
	require.Equal(t, "run-123", lines[0].RunID)
	require.Equal(t, events.EventStageStarted, lines[0].Type)
	require.NotEmpty(t, lines[0].ID)
	require.Equal(t, events.EventStageDone, lines[1].Type)
}
