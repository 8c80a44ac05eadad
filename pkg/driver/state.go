package driver

import (
	"os"
	"time"
)

// Stage lifecycle statuses, per spec.md §5: pending → running → done | failed | skipped.
const (
	StagePending = "pending"
	StageRunning = "running"
	StageDone    = "done"
	StageFailed  = "failed"
	StageSkipped = "skipped"
)

// Run-level statuses recorded in pipeline_state.json's run_status field.
const (
	RunRunning = "running"
	RunPassed  = "passed"
	RunFailed  = "failed"
)

// StageState is one stage's lifecycle record in pipeline_state.json.
type StageState struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// PipelineState is the Driver's sole persisted run ledger (spec.md §5's
// "shared-resource policy": the driver is the sole writer of
// pipeline_state.json; no other component mutates it).
type PipelineState struct {
	Stages    []StageState `json:"stages"`
	RunStatus string       `json:"run_status"`
}

func (s *PipelineState) byID(id string) *StageState {
	for i := range s.Stages {
		if s.Stages[i].ID == id {
			return &s.Stages[i]
		}
	}
	return nil
}

// ensure adds a pending entry for id if absent, preserving existing state.
func (s *PipelineState) ensure(id string) *StageState {
	if existing := s.byID(id); existing != nil {
		return existing
	}
	s.Stages = append(s.Stages, StageState{ID: id, Status: StagePending})
	return &s.Stages[len(s.Stages)-1]
}

func loadState(path string) (*PipelineState, error) {
	var st PipelineState
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &PipelineState{RunStatus: RunRunning}, nil
	}
	if err := readJSON(path, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *PipelineState) save(path string) error {
	return writeJSON(path, s)
}

// resetFrom marks id and every stage after it (in order) back to pending,
// for --start-from resume semantics.
func (s *PipelineState) resetFrom(order []string, id string) {
	found := false
	for _, sid := range order {
		if sid == id {
			found = true
		}
		if found {
			if st := s.byID(sid); st != nil {
				st.Status = StagePending
				st.StartedAt = nil
				st.EndedAt = nil
			}
		}
	}
}
