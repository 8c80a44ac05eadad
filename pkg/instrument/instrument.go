// Package instrument implements per-stage timing/usage recording and the
// consolidated validate_game_ready report (spec.md §4.I), grounded on
// tarsy's pkg/config/validator.go aggregate-then-report idiom (collect
// every field error before deciding pass/fail) generalized from config
// validation to pipeline-run validation.
package instrument

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/copperdogma/gamebook-pipeline/pkg/forensics"
	"github.com/copperdogma/gamebook-pipeline/pkg/llm"
	"github.com/copperdogma/gamebook-pipeline/pkg/model"
	"github.com/copperdogma/gamebook-pipeline/pkg/validate"
)

// StageTiming is one stage's recorded duration and AI usage.
type StageTiming struct {
	StageID  string    `json:"stage_id"`
	Duration time.Duration `json:"duration_ns"`
	Usage    llm.Usage `json:"usage"`
}

// Instrumentation is instrumentation.json's shape: every stage's timing,
// written incrementally as each stage completes rather than recomputed
// downstream, per spec.md §4.I.
type Instrumentation struct {
	Stages []StageTiming `json:"stages"`
	Stamp  model.Stamp   `json:"stamp,omitempty"`
}

// SetStamp implements model.Stamped.
func (i *Instrumentation) SetStamp(s model.Stamp) { i.Stamp = s }

// Recorder accumulates StageTimings and persists the whole Instrumentation
// document after every Record call, so a crash mid-run never loses earlier
// stages' numbers.
type Recorder struct {
	mu   sync.Mutex
	path string
	data Instrumentation
}

// NewRecorder creates a Recorder that persists to path.
func NewRecorder(path string, stamp model.Stamp) *Recorder {
	return &Recorder{path: path, data: Instrumentation{Stamp: stamp}}
}

// Record appends one stage's timing and usage, then rewrites
// instrumentation.json in full.
func (r *Recorder) Record(stageID string, duration time.Duration, usage llm.Usage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.Stages = append(r.data.Stages, StageTiming{StageID: stageID, Duration: duration, Usage: usage})

	buf, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return fmt.Errorf("instrument: marshal: %w", err)
	}
	if err := os.WriteFile(r.path, buf, 0o644); err != nil {
		return fmt.Errorf("instrument: write %s: %w", r.path, err)
	}
	return nil
}

// Snapshot returns the Instrumentation recorded so far.
func (r *Recorder) Snapshot() Instrumentation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

// Attempts tallies the escalation loop's per-category retry counts.
type Attempts struct {
	OrphanAttempts     int `json:"orphan_attempts"`
	BrokenLinkAttempts int `json:"broken_link_attempts"`
}

// SectionCounts summarizes expected vs. present vs. missing gameplay
// sections.
type SectionCounts struct {
	Expected int `json:"expected"`
	Present  int `json:"present"`
	Missing  int `json:"missing"`
}

// ChoiceCompletenessSummary mirrors forensics.ChoiceCompleteness in the
// consolidated report's shape.
type ChoiceCompletenessSummary struct {
	FlaggedCount    int      `json:"flagged_count"`
	FlaggedSections []string `json:"flagged_sections,omitempty"`
}

// ReachabilitySummary counts broken links and orphaned sections.
type ReachabilitySummary struct {
	BrokenLinks int `json:"broken_links"`
	Orphans     int `json:"orphans"`
}

// SchemaValidationSummary counts schema-level errors/warnings.
type SchemaValidationSummary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// IssuesReportSummary mirrors the forensics report's headline counts.
type IssuesReportSummary struct {
	OrphanedNoSourcesCount    int `json:"orphaned_no_sources_count"`
	BoundaryOrderingConflicts int `json:"boundary_ordering_conflicts"`
	DuplicateHeaders          int `json:"duplicate_headers"`
	Items                     int `json:"items"`
}

// GameReadyReport is validate_game_ready's consolidated output, per
// spec.md §4.I.
type GameReadyReport struct {
	Status               string                    `json:"status"`
	SectionCounts        SectionCounts             `json:"section_counts"`
	ChoiceCompleteness   ChoiceCompletenessSummary `json:"choice_completeness"`
	Reachability         ReachabilitySummary       `json:"reachability"`
	SchemaValidation     SchemaValidationSummary   `json:"schema_validation"`
	IssuesReport         IssuesReportSummary       `json:"issues_report"`
	Attempts             Attempts                  `json:"attempts"`
	KnownMissingSections []string                  `json:"known_missing_sections"`
	Artifacts            map[string]string         `json:"artifacts,omitempty"`
}

// Inputs gathers every upstream result validate_game_ready needs.
type Inputs struct {
	Gamebook      model.Gamebook
	Validate      validate.Result
	Forensics     forensics.Report
	Known         model.KnownMissing
	Attempts      Attempts
	DuplicateHeaders int
	Artifacts     map[string]string
}

// BuildGameReadyReport aggregates every validator's findings into the
// consolidated report and evaluates spec.md §4.I's pass gate:
// schema_errors == 0 ∧ orphans == 0 ∧ broken_links == 0 ∧
// missing_sections ⊆ known_missing ∧ choice_completeness.flagged == 0 ∧
// boundary_ordering_conflicts == 0. Stubs count as missing.
func BuildGameReadyReport(in Inputs) GameReadyReport {
	lo, hi := in.Gamebook.Metadata.ExpectedRange[0], in.Gamebook.Metadata.ExpectedRange[1]
	expected := hi - lo + 1
	missingCount := countMatching(in.Validate.Errors, "missing section")
	brokenLinks := countMatching(in.Validate.Errors, "broken link to")

	known := make([]string, 0, len(in.Known.SectionIDs))
	for id := range in.Known.SectionIDs {
		known = append(known, id)
	}

	report := GameReadyReport{
		SectionCounts: SectionCounts{
			Expected: expected,
			Present:  expected - missingCount,
			Missing:  missingCount,
		},
		ChoiceCompleteness: ChoiceCompletenessSummary{
			FlaggedCount:    in.Forensics.ChoiceCompleteness.FlaggedCount,
			FlaggedSections: in.Forensics.ChoiceCompleteness.FlaggedSections,
		},
		Reachability: ReachabilitySummary{
			BrokenLinks: brokenLinks,
			Orphans:     len(in.Forensics.Orphans),
		},
		SchemaValidation: SchemaValidationSummary{
			Errors:   len(in.Validate.SchemaErrors),
			Warnings: len(in.Validate.Warnings),
		},
		IssuesReport: IssuesReportSummary{
			OrphanedNoSourcesCount:    in.Forensics.OrphanedNoSourcesCount,
			BoundaryOrderingConflicts: len(in.Forensics.BoundaryOrderingConflicts),
			DuplicateHeaders:          in.DuplicateHeaders,
			Items:                     len(in.Forensics.TextQualityWarnings) + len(in.Forensics.ChoiceTextAlignmentIssues),
		},
		Attempts:             in.Attempts,
		KnownMissingSections: known,
		Artifacts:            in.Artifacts,
	}

	pass := len(in.Validate.SchemaErrors) == 0 &&
		report.Reachability.Orphans == 0 &&
		report.Reachability.BrokenLinks == 0 &&
		report.SectionCounts.Missing == 0 &&
		report.ChoiceCompleteness.FlaggedCount == 0 &&
		report.IssuesReport.BoundaryOrderingConflicts == 0

	if pass {
		report.Status = "pass"
	} else {
		report.Status = "fail"
	}
	return report
}

func countMatching(errs []string, substr string) int {
	n := 0
	for _, e := range errs {
		if strings.Contains(e, substr) {
			n++
		}
	}
	return n
}
