package boundary_test

import (
	"context"
	"testing"

	"github.com/copperdogma/gamebook-pipeline/pkg/boundary"
	"github.com/copperdogma/gamebook-pipeline/pkg/llm"
	"github.com/copperdogma/gamebook-pipeline/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_ZoomInFlagsMidSentenceStart(t *testing.T) {
	boundaries := []model.SectionBoundary{
		{SectionID: "1", StartSeq: 1, EndSeq: 2},
		{SectionID: "2", StartSeq: 3, EndSeq: 4},
	}
	elements := []model.ElementCore{
		{ID: "e1", Seq: 1, Text: "1"},
		{ID: "e2", Seq: 2, Text: "text"},
		{ID: "e3", Seq: 3, Text: "and the story continues without a number"},
		{ID: "e4", Seq: 4, Text: "more text"},
	}

	report := boundary.Verify(context.Background(), boundaries, elements, nil, boundary.VerifyOptions{Window: 1})
	require.Len(t, report.ZoomInWarnings, 1)
	assert.Contains(t, report.ZoomInWarnings[0], "section 2")
}

func TestVerify_DuplicatesAndMissingAgainstExpectedRange(t *testing.T) {
	boundaries := []model.SectionBoundary{
		{SectionID: "1", StartSeq: 1}, {SectionID: "1", StartSeq: 1},
		{SectionID: "3", StartSeq: 10},
	}
	elements := []model.ElementCore{{ID: "e1", Seq: 1, Text: "1"}, {ID: "e10", Seq: 10, Text: "3"}}

	report := boundary.Verify(context.Background(), boundaries, elements, nil, boundary.VerifyOptions{ExpectedMax: 3})
	assert.Equal(t, []string{"1"}, report.Duplicates)
	assert.Equal(t, []string{"2"}, report.Missing)
}

func TestVerify_MissingRespectsAllowlist(t *testing.T) {
	boundaries := []model.SectionBoundary{{SectionID: "1", StartSeq: 1}}
	elements := []model.ElementCore{{ID: "e1", Seq: 1, Text: "1"}}

	report := boundary.Verify(context.Background(), boundaries, elements, nil, boundary.VerifyOptions{
		ExpectedMax: 2,
		Allowlist:   map[string]bool{"2": true},
	})
	assert.Empty(t, report.Missing)
}

func TestVerify_AIPassAnnotatesSuspiciousOnlyWithinBudget(t *testing.T) {
	boundaries := []model.SectionBoundary{
		{SectionID: "1", StartSeq: 1},
		{SectionID: "2", StartSeq: 3},
	}
	elements := []model.ElementCore{
		{ID: "e1", Seq: 1, Text: "mid-sentence text with no anchor"},
		{ID: "e3", Seq: 3, Text: "more unanchored prose"},
	}
	client := &llm.FakeClient{Responses: []llm.Response{{Content: `{"note": "looks odd"}`}}}
	budget := llm.NewBudget(1)

	report := boundary.Verify(context.Background(), boundaries, elements, nil, boundary.VerifyOptions{
		AIBudget: budget,
		AIClient: client,
	})
	require.Len(t, report.AIAnnotations, 1)
	assert.Equal(t, 1, budget.Spent())
}

func TestVerify_PassesThroughConflicts(t *testing.T) {
	conflicts := []model.OrderingConflict{{FirstSectionID: "1", SecondSectionID: "2"}}
	report := boundary.Verify(context.Background(), nil, nil, conflicts, boundary.VerifyOptions{})
	assert.Equal(t, conflicts, report.Conflicts)
}
