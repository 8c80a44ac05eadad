package extractor_test

import (
	"testing"

	"github.com/copperdogma/gamebook-pipeline/pkg/extractor"
	"github.com/copperdogma/gamebook-pipeline/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_ChoicesFromAnchorsAndPhrases(t *testing.T) {
	html := `<p>You may <a href="#45">turn to 45</a> or flee.</p><p>If you stay, go to 12.</p>`
	text := "You may turn to 45 or flee. If you stay, go to 12."

	portion, err := extractor.Extract(model.SectionBoundary{SectionID: "3"}, text, html, nil, 1, 1)
	require.NoError(t, err)
	require.Len(t, portion.Choices, 2)

	targets := map[string]bool{}
	for _, c := range portion.Choices {
		targets[c.Target] = true
	}
	assert.True(t, targets["45"])
	assert.True(t, targets["12"])
}

func TestExtract_StatChanges(t *testing.T) {
	text := "Lose 2 STAMINA from the fall. Roll -(1d6+1) STAMINA for the poison."
	portion, err := extractor.Extract(model.SectionBoundary{SectionID: "9"}, text, "<p/>", nil, 1, 1)
	require.NoError(t, err)
	require.Len(t, portion.StatModifications, 2)

	assert.Equal(t, model.StatStamina, portion.StatModifications[0].Stat)
	require.NotNil(t, portion.StatModifications[0].Amount.Literal)
	assert.Equal(t, -2, *portion.StatModifications[0].Amount.Literal)

	assert.Equal(t, model.DiceExpr("-(1d6+1)"), portion.StatModifications[1].Amount.Dice)
}

func TestExtract_ItemAddAndRemoveWithPronounBackreference(t *testing.T) {
	text := "You find a Silver Key. Put it in your backpack. Later, take the Silver Key out of your backpack to open the door."
	portion, err := extractor.Extract(model.SectionBoundary{SectionID: "4"}, text, "<p/>", nil, 1, 1)
	require.NoError(t, err)
	require.Len(t, portion.ItemChecks, 2)

	assert.Equal(t, model.ItemAdd, portion.ItemChecks[0].Action)
	assert.Equal(t, "Silver Key", portion.ItemChecks[0].Name)
	assert.Equal(t, model.ItemRemove, portion.ItemChecks[1].Action)
	assert.Equal(t, "Silver Key", portion.ItemChecks[1].Name)
}

func TestExtract_OptionalTakeIsFiltered(t *testing.T) {
	text := "You may put the Rusty Sword in your backpack."
	portion, err := extractor.Extract(model.SectionBoundary{SectionID: "7"}, text, "<p/>", nil, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, portion.ItemChecks)
}

func TestExtract_StateCheck(t *testing.T) {
	text := "If you have read the scroll, turn to 88."
	portion, err := extractor.Extract(model.SectionBoundary{SectionID: "5"}, text, "<p/>", nil, 1, 1)
	require.NoError(t, err)
	require.Len(t, portion.StateChecks, 1)
	assert.Contains(t, portion.StateChecks[0].ConditionText, "read the scroll")
}

func TestExtract_Combat(t *testing.T) {
	text := "GREY WOLF SKILL 6 STAMINA 7\nIf you win, turn to 50."
	portion, err := extractor.Extract(model.SectionBoundary{SectionID: "6"}, text, "<p/>", nil, 1, 1)
	require.NoError(t, err)
	require.Len(t, portion.Combat, 1)
	require.Len(t, portion.Combat[0].Enemies, 1)
	assert.Equal(t, "GREY WOLF", portion.Combat[0].Enemies[0].Name)
	assert.Equal(t, 6, portion.Combat[0].Enemies[0].Skill)
	assert.Equal(t, 7, portion.Combat[0].Enemies[0].Stamina)
}

func TestExtract_TerminalDeath(t *testing.T) {
	text := "The trap springs shut. Your adventure ends here, in the dark."
	portion, err := extractor.Extract(model.SectionBoundary{SectionID: "99"}, text, "<p/>", nil, 1, 1)
	require.NoError(t, err)
	require.Len(t, portion.TerminalOutcomes, 1)
	assert.Equal(t, "death", portion.TerminalOutcomes[0].Outcome)
}

func TestExtract_LuckTestAndStatCheck(t *testing.T) {
	text := "Test your Luck. If you are lucky, turn to 20. If you are unlucky, turn to 21. " +
		"Test your SKILL. If you pass, turn to 30. If you fail, turn to 31."
	portion, err := extractor.Extract(model.SectionBoundary{SectionID: "11"}, text, "<p/>", nil, 1, 1)
	require.NoError(t, err)
	require.Len(t, portion.LuckTest, 1)
	require.Len(t, portion.StatModifications, 1)
	assert.Equal(t, model.EventStatCheck, portion.StatModifications[0].Kind)
	assert.Equal(t, model.StatSkill, portion.StatModifications[0].Stat)
}
