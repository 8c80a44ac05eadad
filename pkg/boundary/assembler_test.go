package boundary_test

import (
	"testing"

	"github.com/copperdogma/gamebook-pipeline/pkg/boundary"
	"github.com/copperdogma/gamebook-pipeline/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_ComputesEndSeqFromNextStart(t *testing.T) {
	sections := []model.GameSection{
		{SectionID: 1, StartSeq: 1, Status: model.StatusCertain},
		{SectionID: 2, StartSeq: 5, Status: model.StatusCertain},
		{SectionID: 3, StartSeq: 9, Status: model.StatusUncertain},
	}
	elements := []model.ElementCore{
		{ID: "e1", Seq: 1}, {ID: "e4", Seq: 4}, {ID: "e5", Seq: 5},
		{ID: "e8", Seq: 8}, {ID: "e9", Seq: 9}, {ID: "e12", Seq: 12},
	}

	boundaries, conflicts := boundary.Assemble(sections, elements)
	require.Empty(t, conflicts)
	require.Len(t, boundaries, 3)

	assert.Equal(t, "1", boundaries[0].SectionID)
	assert.Equal(t, 1, boundaries[0].StartSeq)
	assert.Equal(t, 4, boundaries[0].EndSeq)
	assert.Equal(t, "e4", boundaries[0].EndElementID)

	assert.Equal(t, "2", boundaries[1].SectionID)
	assert.Equal(t, 8, boundaries[1].EndSeq)

	// last section runs to the max seq in the element stream
	assert.Equal(t, "3", boundaries[2].SectionID)
	assert.Equal(t, 12, boundaries[2].EndSeq)
	assert.Equal(t, model.SourceUncertain, boundaries[2].Source)
}

func TestAssemble_SortsOutputBySectionID(t *testing.T) {
	sections := []model.GameSection{
		{SectionID: 10, StartSeq: 1, Status: model.StatusCertain},
		{SectionID: 2, StartSeq: 5, Status: model.StatusCertain},
	}
	elements := []model.ElementCore{{ID: "e1", Seq: 1}, {ID: "e5", Seq: 5}, {ID: "e9", Seq: 9}}

	boundaries, _ := boundary.Assemble(sections, elements)
	require.Len(t, boundaries, 2)
	assert.Equal(t, "2", boundaries[0].SectionID)
	assert.Equal(t, "10", boundaries[1].SectionID)
}

func TestAssemble_DetectsOrderingConflictDirectInput(t *testing.T) {
	// Bypassing the structurer's own invariant (not guaranteed by this
	// package's caller contract) to exercise the safety-net conflict check.
	sections := []model.GameSection{
		{SectionID: 1, StartSeq: 1, Status: model.StatusCertain},
		{SectionID: 2, StartSeq: 1, Status: model.StatusCertain},
	}
	elements := []model.ElementCore{{ID: "e1", Seq: 1}, {ID: "e2", Seq: 2}}

	_, conflicts := boundary.Assemble(sections, elements)
	require.Len(t, conflicts, 1)
}
