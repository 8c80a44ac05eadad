package sequence_test

import (
	"testing"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
	"github.com/copperdogma/gamebook-pipeline/pkg/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_ChoiceOrderingRespectsAnchorOffset(t *testing.T) {
	portion := model.EnrichedPortion{
		RawText: "filler",
		Choices: []model.Choice{
			{Target: "200", Offset: 120},
			{Target: "392", Offset: 45},
			{Target: "177", Offset: 300},
		},
	}

	out := sequence.Build(portion)
	require.Len(t, out, 3)
	assert.Equal(t, "392", out[0].TargetSection)
	assert.Equal(t, "200", out[1].TargetSection)
	assert.Equal(t, "177", out[2].TargetSection)
}

func TestBuild_TerminalDeathNormalizationOnStatCheckFailBranch(t *testing.T) {
	text := "Test your SKILL. If you pass, turn to 40. If you fail, death (no section number)."
	portion := model.EnrichedPortion{
		RawText: text,
		StatModifications: []model.Event{
			{Kind: model.EventStatCheck, Stat: model.StatSkill, Offset: 0},
		},
	}

	out := sequence.Build(portion)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Fail)
	assert.Equal(t, "death", out[0].Fail.Terminal)
	require.NotNil(t, out[0].Pass)
	assert.Equal(t, "40", out[0].Pass.TargetSection)
}

func TestBuild_CompoundConditionBecomesItemsAllAndSemantics(t *testing.T) {
	text := "If you have the coil of rope and a grappling iron, turn to 315."
	portion := model.EnrichedPortion{RawText: text}

	out := sequence.Build(portion)
	require.Len(t, out, 1)
	assert.Equal(t, model.EventItemCheck, out[0].Kind)
	assert.Equal(t, []string{"coil of rope", "grappling iron"}, out[0].ItemsAll)
	require.NotNil(t, out[0].Has)
	assert.Equal(t, "315", out[0].Has.TargetSection)
}

func TestBuild_SurvivalNoOpIsDropped(t *testing.T) {
	text := "If you are still alive lose 2 STAMINA from the fall."
	idx := len("If you are still alive ")
	portion := model.EnrichedPortion{
		RawText: text,
		StatModifications: []model.Event{
			{Kind: model.EventStatChange, Stat: model.StatStamina, Amount: model.LiteralAmount(-2), Offset: idx},
		},
	}
	out := sequence.Build(portion)
	assert.Empty(t, out)
}

func TestBuild_DedupesIdenticalStatChanges(t *testing.T) {
	portion := model.EnrichedPortion{
		RawText: "irrelevant",
		StatModifications: []model.Event{
			{Kind: model.EventStatChange, Stat: model.StatLuck, Amount: model.LiteralAmount(1), Offset: 10},
			{Kind: model.EventStatChange, Stat: model.StatLuck, Amount: model.LiteralAmount(1), Offset: 10},
		},
	}
	out := sequence.Build(portion)
	require.Len(t, out, 1)

	// idempotent: running Build again on the same portion yields the same result.
	out2 := sequence.Build(portion)
	assert.Equal(t, out, out2)
}

func TestBuild_CombatOutcomesAttachedToCombatEvent(t *testing.T) {
	text := "GREY WOLF SKILL 6 STAMINA 7. If you win, turn to 50. If you lose, turn to 51."
	portion := model.EnrichedPortion{
		RawText: text,
		Combat: []model.CombatBlock{
			{Enemies: []model.Enemy{{Name: "GREY WOLF", Skill: 6, Stamina: 7}}, Offset: 0},
		},
	}
	out := sequence.Build(portion)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Outcomes)
	require.NotNil(t, out[0].Outcomes.Win)
	assert.Equal(t, "50", out[0].Outcomes.Win.TargetSection)
	require.NotNil(t, out[0].Outcomes.Lose)
	assert.Equal(t, "51", out[0].Outcomes.Lose.TargetSection)
}

func TestBuild_OptionalTakeEffectAttachedToChoice(t *testing.T) {
	portion := model.EnrichedPortion{
		RawText: "irrelevant",
		Choices: []model.Choice{
			{Target: "20", AnchorText: "take the Rusty Sword", Offset: 0},
		},
		ItemChecks: []model.Event{
			{Kind: model.EventItem, Action: model.ItemAdd, Name: "Rusty Sword", Offset: 50},
		},
	}
	out := sequence.Build(portion)
	require.Len(t, out, 1)
	require.Len(t, out[0].Effects, 1)
	assert.Equal(t, "Rusty Sword", out[0].Effects[0].Name)
}

func TestEnsureBackgroundLink_AddsChoiceWhenMissing(t *testing.T) {
	out := sequence.EnsureBackgroundLink(nil)
	require.Len(t, out, 1)
	assert.Equal(t, model.EventChoice, out[0].Kind)
	assert.Equal(t, "1", out[0].TargetSection)
}

func TestEnsureBackgroundLink_DropsSpuriousEventsWhenLinkPresent(t *testing.T) {
	events := []model.Event{
		{Kind: model.EventStatChange, Stat: model.StatGold, Amount: model.LiteralAmount(5)},
		{Kind: model.EventChoice, TargetSection: "1"},
	}
	out := sequence.EnsureBackgroundLink(events)
	require.Len(t, out, 1)
	assert.Equal(t, model.EventChoice, out[0].Kind)
	assert.Equal(t, "1", out[0].TargetSection)
}
