// Package driver implements the Driver/DAG runtime (spec.md §4.D): it plans
// a recipe's stages into topological order, creates the run directory,
// invokes each stage's Go implementation in sequence, stamps every output
// record, and persists pipeline_state.json / pipeline_events.jsonl /
// instrumentation.json — the three files spec.md §5's shared-resource
// policy reserves to the Driver alone.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/copperdogma/gamebook-pipeline/pkg/events"
	"github.com/copperdogma/gamebook-pipeline/pkg/forensics"
	"github.com/copperdogma/gamebook-pipeline/pkg/instrument"
	"github.com/copperdogma/gamebook-pipeline/pkg/llm"
	"github.com/copperdogma/gamebook-pipeline/pkg/model"
	"github.com/copperdogma/gamebook-pipeline/pkg/recipe"
	"github.com/copperdogma/gamebook-pipeline/pkg/validate"
)

// Options configures one driver invocation, mirroring the Driver CLI flags
// of spec.md §6.
type Options struct {
	Recipe           *recipe.Recipe
	RunID            string
	OutputDir        string // default "output/runs"
	InputPath        string // --input-pdf override; here, a pre-extracted raw-elements JSON file
	Force            bool
	AllowRunIDReuse  bool
	StartFrom        string
	DryRun           bool
	LLM              llm.Client
	MaxAICallsPerRun int // 0 = unlimited
}

// RunContext is the mutable state threaded through one run's stage
// invocations: accumulated artifact paths (for `{stage.artifact}`
// templating) plus the in-memory handoffs later stages need that the
// recipe's params never name directly (full element list, conflicts,
// verification results) because they are the Driver's own wiring decision,
// not part of the spec's artifact contract.
type RunContext struct {
	RunID     string
	Recipe    *recipe.Recipe
	Known     model.KnownMissing
	InputPath string
	LLM       llm.Client
	Budget    *llm.Budget

	outputDir string
	artifacts map[string]map[string]string // stage id -> artifact name -> path

	conflicts       []model.OrderingConflict
	verification    model.BoundaryVerification
	gamebook        model.Gamebook
	validateResult  validate.Result
	forensicsReport forensics.Report
}

// Result summarizes a completed (or dry-run) invocation for the CLI to turn
// into an exit code.
type Result struct {
	RunDir     string
	Passed     bool
	FailedStage string
	Plan       []string // stage ids in execution order; populated for --dry-run too
	GameReady  *instrument.GameReadyReport
}

// Run plans, executes (or just plans, for --dry-run) one recipe invocation.
func Run(ctx context.Context, opts Options) (Result, error) {
	waves, err := plan(opts.Recipe.Stages)
	if err != nil {
		return Result{}, err
	}
	order := flatten(waves)

	planIDs := make([]string, len(order))
	for i, s := range order {
		planIDs[i] = s.ID
	}
	if opts.StartFrom != "" {
		found := false
		for _, id := range planIDs {
			found = found || id == opts.StartFrom
		}
		if !found {
			return Result{}, fmt.Errorf("%w: %s", ErrStageNotFound, opts.StartFrom)
		}
	}
	if opts.DryRun {
		return Result{Plan: planIDs}, nil
	}

	runDir := filepath.Join(opts.OutputDir, opts.RunID)
	if err := prepareRunDir(runDir, opts, order); err != nil {
		return Result{}, err
	}

	statePath := filepath.Join(runDir, "pipeline_state.json")
	state, err := loadState(statePath)
	if err != nil {
		return Result{}, err
	}
	for _, s := range order {
		state.ensure(s.ID)
	}
	if opts.Force {
		state.resetFrom(planIDs, planIDs[0])
	}
	if opts.StartFrom != "" {
		state.resetFrom(planIDs, opts.StartFrom)
	}

	evLog, err := events.Open(filepath.Join(runDir, "pipeline_events.jsonl"))
	if err != nil {
		return Result{}, err
	}
	defer evLog.Close()

	rec := instrument.NewRecorder(filepath.Join(runDir, "instrumentation.json"), model.Stamp{
		RunID: opts.RunID, ModuleID: "driver", SchemaVersion: "1.0.0", CreatedAt: time.Now(),
	})

	budget := llm.NewBudget(opts.MaxAICallsPerRun)
	rc := &RunContext{
		RunID:     opts.RunID,
		Recipe:    opts.Recipe,
		Known:     model.NewKnownMissing(opts.Recipe.KnownMissingSections),
		InputPath: opts.InputPath,
		LLM:       opts.LLM,
		Budget:    budget,
		outputDir: filepath.Join(runDir, "output"),
		artifacts: make(map[string]map[string]string),
	}

	cache := newProgramCache(64)
	result := Result{RunDir: runDir, Plan: planIDs}

	for _, s := range order {
		st := state.byID(s.ID)
		if st.Status == StageDone {
			if err := rc.rehydrate(s, runDir, order); err != nil {
				return result, err
			}
			continue
		}

		stageDir := stageDirFor(runDir, order, s)
		params, err := resolveStageParams(cache, s, rc.artifacts)
		if err != nil {
			return result, err
		}

		fn, ok := stageRegistry[s.ModuleID]
		if !ok {
			return result, fmt.Errorf("%w: %s", ErrUnknownModule, s.ModuleID)
		}

		slog.Info("stage starting", "stage", s.ID, "module_id", s.ModuleID)
		now := time.Now()
		st.Status = StageRunning
		st.StartedAt = &now
		_ = state.save(statePath)
		_ = evLog.Append(events.StageEvent{RunID: opts.RunID, StageID: s.ID, Status: events.StatusStarted})

		before := budget.Spent()
		outputs, runErr := fn(ctx, rc, params, stageDir)
		duration := time.Since(now)
		_ = rec.Record(s.ID, duration, llm.Usage{Calls: budget.Spent() - before})

		ended := time.Now()
		st.EndedAt = &ended
		if runErr != nil {
			st.Status = StageFailed
			state.RunStatus = RunFailed
			_ = state.save(statePath)
			_ = evLog.Append(events.StageEvent{RunID: opts.RunID, StageID: s.ID, Status: events.StatusFailed, Error: runErr.Error()})
			result.FailedStage = s.ID
			slog.Error("stage failed", "stage", s.ID, "error", runErr)
			return result, fmt.Errorf("driver: stage %q failed: %w", s.ID, runErr)
		}

		rc.artifacts[s.ID] = outputs
		st.Status = StageDone
		_ = state.save(statePath)
		_ = evLog.Append(events.StageEvent{RunID: opts.RunID, StageID: s.ID, Status: events.StatusCompleted})
		slog.Info("stage done", "stage", s.ID, "duration", duration)
	}

	report := instrument.BuildGameReadyReport(instrument.Inputs{
		Gamebook:  rc.gamebook,
		Validate:  rc.validateResult,
		Forensics: rc.forensicsReport,
		Known:     rc.Known,
		Artifacts: map[string]string{
			"gamebook":           filepath.Join(rc.outputDir, "gamebook.json"),
			"validation_report":  filepath.Join(rc.outputDir, "validation_report.json"),
		},
	})
	result.GameReady = &report
	result.Passed = report.Status == "pass"

	if err := writeJSON(filepath.Join(rc.outputDir, "validation_report.json"), report); err != nil {
		return result, err
	}

	state.RunStatus = RunPassed
	if !result.Passed {
		state.RunStatus = RunFailed
	}
	if err := state.save(statePath); err != nil {
		return result, err
	}

	if !result.Passed {
		return result, fmt.Errorf("%w: run %s", ErrGameNotReady, opts.RunID)
	}
	return result, nil
}

// prepareRunDir creates <output-dir>/<run_id>/output/ and enforces resume
// semantics: a fresh run_id is always fine; an existing one requires
// --force or --allow-run-id-reuse (spec.md §5's "Resume semantics").
func prepareRunDir(runDir string, opts Options, order []recipe.Stage) error {
	_, err := os.Stat(runDir)
	exists := err == nil
	if exists && !opts.Force && !opts.AllowRunIDReuse {
		return ErrRunExists
	}
	if exists && opts.Force {
		for _, s := range order {
			_ = os.RemoveAll(stageDirFor(runDir, order, s))
		}
	}
	return os.MkdirAll(filepath.Join(runDir, "output"), 0o755)
}

// stageDirFor names a stage's artifact directory NN_<module_id> per spec.md
// §6, 1-indexed by position in execution order.
func stageDirFor(runDir string, order []recipe.Stage, target recipe.Stage) string {
	for i, s := range order {
		if s.ID == target.ID {
			return filepath.Join(runDir, fmt.Sprintf("%02d_%s", i+1, s.ModuleID))
		}
	}
	return filepath.Join(runDir, target.ModuleID)
}

func resolveStageParams(cache *programCache, s recipe.Stage, artifacts map[string]map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(s.Params))
	for k, raw := range s.Params {
		resolved, err := cache.resolveParam(raw, artifacts)
		if err != nil {
			return nil, fmt.Errorf("driver: stage %q param %q: %w", s.ID, k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

// rehydrate restores in-memory RunContext state (elements cache keys,
// conflicts, gamebook, validate/forensics results) for a stage that a
// resumed run skips because it is already StageDone, by re-deriving its
// declared output paths instead of re-running it.
func (rc *RunContext) rehydrate(s recipe.Stage, runDir string, order []recipe.Stage) error {
	// The artifact paths are deterministic given the stage's position in
	// this run's own execution order, so a resumed run can reconstruct them
	// without re-executing the stage.
	dir := stageDirFor(runDir, order, s)

	switch s.ModuleID {
	case "ir_reducer":
		rc.artifacts[s.ID] = map[string]string{"elements_core": filepath.Join(dir, "elements_core.jsonl")}
	case "header_classifier":
		rc.artifacts[s.ID] = map[string]string{"header_candidates": filepath.Join(dir, "header_candidates.jsonl")}
	case "global_structurer":
		rc.artifacts[s.ID] = map[string]string{"sections_structured": filepath.Join(dir, "sections_structured.json")}
	case "boundary_assembler":
		rc.artifacts[s.ID] = map[string]string{
			"section_boundaries": filepath.Join(dir, "section_boundaries.jsonl"),
			"ordering_conflicts": filepath.Join(dir, "ordering_conflicts.jsonl"),
		}
		conflicts, err := readJSONL[model.OrderingConflict](filepath.Join(dir, "ordering_conflicts.jsonl"))
		if err != nil {
			return err
		}
		rc.conflicts = conflicts
	case "boundary_verifier":
		rc.artifacts[s.ID] = map[string]string{"boundary_verification": filepath.Join(dir, "boundary_verification.json")}
		return readJSON(filepath.Join(dir, "boundary_verification.json"), &rc.verification)
	case "section_extractor":
		rc.artifacts[s.ID] = map[string]string{"portions_enriched": filepath.Join(dir, "portions_enriched.jsonl")}
	case "sequence_ordering":
		rc.artifacts[s.ID] = map[string]string{
			"portions_enriched": filepath.Join(dir, "portions_enriched.jsonl"),
			"sequences":         filepath.Join(dir, "sequences.jsonl"),
		}
	case "gamebook_builder":
		rc.artifacts[s.ID] = map[string]string{"gamebook": filepath.Join(rc.outputDir, "gamebook.json")}
		return readJSON(filepath.Join(rc.outputDir, "gamebook.json"), &rc.gamebook)
	case "node_validator":
		rc.artifacts[s.ID] = map[string]string{"validate_result": filepath.Join(dir, "validate_result.json")}
		return readJSON(filepath.Join(dir, "validate_result.json"), &rc.validateResult)
	case "forensics_validator":
		rc.artifacts[s.ID] = map[string]string{"forensics_report": filepath.Join(dir, "forensics_report.json")}
		return readJSON(filepath.Join(dir, "forensics_report.json"), &rc.forensicsReport)
	}
	return nil
}
