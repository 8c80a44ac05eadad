package driver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
	"github.com/copperdogma/gamebook-pipeline/pkg/version"
)

// stamp applies the run's stamp metadata to every Stamped record.
func stamp[T model.Stamped](records []T, moduleID, runID string) {
	s := model.Stamp{
		SchemaVersion: version.SchemaVersion,
		ModuleID:      moduleID,
		RunID:         runID,
		CreatedAt:     time.Now(),
	}
	for _, r := range records {
		r.SetStamp(s)
	}
}

// writeJSON atomically replaces path with v marshaled as indented JSON, per
// spec.md §5's "artifacts are atomically replaced on re-execution" rule:
// write to a temp file in the same directory, then rename over the target.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("driver: mkdir %s: %w", filepath.Dir(path), err)
	}
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("driver: marshal %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return fmt.Errorf("driver: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("driver: rename %s: %w", tmp, err)
	}
	return nil
}

// readJSON unmarshals path into v.
func readJSON(path string, v any) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("driver: read %s: %w", path, err)
	}
	if err := json.Unmarshal(buf, v); err != nil {
		return fmt.Errorf("driver: unmarshal %s: %w", path, err)
	}
	return nil
}

// writeJSONL replaces path with one JSON object per line, atomically via
// a temp-file rename, same rule as writeJSON.
func writeJSONL[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("driver: mkdir %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("driver: create %s: %w", tmp, err)
	}
	enc := json.NewEncoder(f)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			f.Close()
			return fmt.Errorf("driver: encode row in %s: %w", tmp, err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("driver: close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("driver: rename %s: %w", tmp, err)
	}
	return nil
}

// readJSONL reads one JSON object per line from path into a slice of T.
func readJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("driver: open %s: %w", path, err)
	}
	defer f.Close()

	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("driver: decode row in %s: %w", path, err)
		}
		out = append(out, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("driver: scan %s: %w", path, err)
	}
	return out, nil
}
