package instrument_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/copperdogma/gamebook-pipeline/pkg/forensics"
	"github.com/copperdogma/gamebook-pipeline/pkg/instrument"
	"github.com/copperdogma/gamebook-pipeline/pkg/llm"
	"github.com/copperdogma/gamebook-pipeline/pkg/model"
	"github.com/copperdogma/gamebook-pipeline/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_WritesIncrementallyAfterEachStage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instrumentation.json")
	rec := instrument.NewRecorder(path, model.Stamp{RunID: "run1"})

	require.NoError(t, rec.Record("reducer", 5*time.Millisecond, llm.Usage{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var first instrument.Instrumentation
	require.NoError(t, json.Unmarshal(data, &first))
	require.Len(t, first.Stages, 1)

	require.NoError(t, rec.Record("header", 20*time.Millisecond, llm.Usage{Calls: 3, PromptTokens: 100}))

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	var second instrument.Instrumentation
	require.NoError(t, json.Unmarshal(data, &second))
	require.Len(t, second.Stages, 2)
	assert.Equal(t, "header", second.Stages[1].StageID)
	assert.Equal(t, 3, second.Stages[1].Usage.Calls)
}

func TestBuildGameReadyReport_PassesWhenEverythingClean(t *testing.T) {
	gb := model.Gamebook{Metadata: model.Metadata{ExpectedRange: [2]int{1, 2}}}
	in := instrument.Inputs{
		Gamebook: gb,
		Validate: validate.Result{},
		Forensics: forensics.Report{
			ChoiceCompleteness: forensics.ChoiceCompleteness{},
		},
		Known: model.KnownMissing{},
	}

	report := instrument.BuildGameReadyReport(in)
	assert.Equal(t, "pass", report.Status)
	assert.Equal(t, 2, report.SectionCounts.Expected)
	assert.Equal(t, 0, report.SectionCounts.Missing)
}

func TestBuildGameReadyReport_FailsOnMissingSection(t *testing.T) {
	gb := model.Gamebook{Metadata: model.Metadata{ExpectedRange: [2]int{1, 3}}}
	in := instrument.Inputs{
		Gamebook: gb,
		Validate: validate.Result{Errors: []string{`missing section "2"`}},
	}

	report := instrument.BuildGameReadyReport(in)
	assert.Equal(t, "fail", report.Status)
	assert.Equal(t, 1, report.SectionCounts.Missing)
}

func TestBuildGameReadyReport_FailsOnFlaggedChoiceCompleteness(t *testing.T) {
	gb := model.Gamebook{Metadata: model.Metadata{ExpectedRange: [2]int{1, 1}}}
	in := instrument.Inputs{
		Gamebook: gb,
		Forensics: forensics.Report{
			ChoiceCompleteness: forensics.ChoiceCompleteness{FlaggedCount: 1, FlaggedSections: []string{"1"}},
		},
	}

	report := instrument.BuildGameReadyReport(in)
	assert.Equal(t, "fail", report.Status)
	assert.Equal(t, 1, report.ChoiceCompleteness.FlaggedCount)
}

func TestBuildGameReadyReport_MissingSectionAllowlistedStillPasses(t *testing.T) {
	gb := model.Gamebook{Metadata: model.Metadata{ExpectedRange: [2]int{1, 2}}}
	in := instrument.Inputs{
		Gamebook: gb,
		Validate: validate.Result{}, // validate.Validate already suppresses allowlisted missing errors
		Known:    model.NewKnownMissing([]string{"2"}),
	}

	report := instrument.BuildGameReadyReport(in)
	assert.Equal(t, "pass", report.Status)
	assert.Equal(t, []string{"2"}, report.KnownMissingSections)
}
