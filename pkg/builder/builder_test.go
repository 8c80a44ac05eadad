package builder_test

import (
	"testing"

	"github.com/copperdogma/gamebook-pipeline/pkg/builder"
	"github.com/copperdogma/gamebook-pipeline/pkg/model"
	"github.com/copperdogma/gamebook-pipeline/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_StampsMetadata(t *testing.T) {
	gb := builder.Build(nil, builder.Options{
		Title:  "Test Book",
		Author: "A. Author",
		NMax:   5,
	})

	assert.Equal(t, "Test Book", gb.Metadata.Title)
	assert.Equal(t, "1", gb.Metadata.StartSection)
	assert.Equal(t, version.ValidatorVersion, gb.Metadata.ValidatorVersion)
	assert.Equal(t, [2]int{1, 5}, gb.Metadata.ExpectedRange)
}

func TestBuild_CopiesTextChoicesAndSequence(t *testing.T) {
	in := []builder.SectionInput{
		{
			SectionID: "1",
			Type:      model.SectionTypeGameplay,
			Text:      "You   stand   at a crossroads.",
			Choices:   []model.Choice{{Target: "2"}},
			Sequence:  []model.Event{{Kind: model.EventChoice, TargetSection: "2"}},
		},
	}
	gb := builder.Build(in, builder.Options{NMax: 1})

	require.Len(t, gb.Sections, 1)
	s := gb.Sections[0]
	assert.Equal(t, "1", s.ID)
	require.NotNil(t, s.SectionNum)
	assert.Equal(t, 1, *s.SectionNum)
	assert.True(t, s.IsGameplaySection)
	assert.Equal(t, "You stand at a crossroads.", s.CleanText)
	require.Len(t, s.Choices, 1)
	require.Len(t, s.Sequence, 1)
	assert.Nil(t, s.Provenance)
}

func TestBuild_SynthesizesStubsOnlyForAllowlistedMissingIDs(t *testing.T) {
	in := []builder.SectionInput{
		{SectionID: "1", Type: model.SectionTypeGameplay, Sequence: []model.Event{}},
		{SectionID: "3", Type: model.SectionTypeGameplay, Sequence: []model.Event{}},
	}
	gb := builder.Build(in, builder.Options{
		NMax:  3,
		Known: model.NewKnownMissing([]string{"2"}),
	})

	require.Len(t, gb.Sections, 3)
	var stub *model.Section
	for i := range gb.Sections {
		if gb.Sections[i].ID == "2" {
			stub = &gb.Sections[i]
		}
	}
	require.NotNil(t, stub)
	require.NotNil(t, stub.Provenance)
	assert.True(t, stub.Provenance.Stub)
	assert.Empty(t, stub.Sequence)
}

func TestBuild_DoesNotSynthesizeStubsForUnallowlistedMissingIDs(t *testing.T) {
	in := []builder.SectionInput{
		{SectionID: "1", Type: model.SectionTypeGameplay},
	}
	gb := builder.Build(in, builder.Options{NMax: 3})

	// section 2 and 3 are missing but not allowlisted: no stub synthesized.
	require.Len(t, gb.Sections, 1)
}

func TestBuild_OrdersBackgroundFirstThenAscendingNumeric(t *testing.T) {
	in := []builder.SectionInput{
		{SectionID: "2", Type: model.SectionTypeGameplay},
		{SectionID: model.BackgroundSectionID, Type: model.SectionTypeBackground},
		{SectionID: "1", Type: model.SectionTypeGameplay},
	}
	gb := builder.Build(in, builder.Options{NMax: 2})

	require.Len(t, gb.Sections, 3)
	assert.Equal(t, model.BackgroundSectionID, gb.Sections[0].ID)
	assert.Equal(t, "1", gb.Sections[1].ID)
	assert.Equal(t, "2", gb.Sections[2].ID)
}
