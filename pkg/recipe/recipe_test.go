package recipe_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/copperdogma/gamebook-pipeline/pkg/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRecipe(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recipe.yaml"), []byte(content), 0o644))
}

func TestLoad_MergesOverBuiltinStages(t *testing.T) {
	dir := t.TempDir()
	writeRecipe(t, dir, `
stages:
  - id: classify_headers
    module_id: header_classifier
    max_calls: 99
known_missing_sections: ["13", "87"]
expected_range_max: 50
`)

	r, err := recipe.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 50, r.ExpectedMax())
	assert.Equal(t, []string{"13", "87"}, r.KnownMissingSections)

	s, ok := r.StageByID("classify_headers")
	require.True(t, ok)
	assert.Equal(t, 99, s.MaxCalls)

	// builtin stages not mentioned by the user recipe survive untouched.
	reduceStage, ok := r.StageByID("reduce")
	require.True(t, ok)
	assert.Equal(t, "ir_reducer", reduceStage.ModuleID)
}

func TestLoad_MissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := recipe.Load(dir)
	require.ErrorIs(t, err, recipe.ErrRecipeNotFound)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("GAMEBOOK_TITLE", "The Forest of Doom")
	dir := t.TempDir()
	writeRecipe(t, dir, `
title: "${GAMEBOOK_TITLE}"
stages:
  - id: extra
    module_id: noop
`)
	r, err := recipe.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "The Forest of Doom", r.Title)
}

func TestTopologicalOrder_DetectsCycle(t *testing.T) {
	stages := []recipe.Stage{
		{ID: "a", ModuleID: "m", Needs: []string{"b"}},
		{ID: "b", ModuleID: "m", Needs: []string{"a"}},
	}
	_, err := recipe.TopologicalOrder(stages)
	require.ErrorIs(t, err, recipe.ErrCycleDetected)
}

func TestTopologicalOrder_RespectsDependencies(t *testing.T) {
	stages := []recipe.Stage{
		{ID: "c", ModuleID: "m", Needs: []string{"b"}},
		{ID: "b", ModuleID: "m", Needs: []string{"a"}},
		{ID: "a", ModuleID: "m"},
	}
	order, err := recipe.TopologicalOrder(stages)
	require.NoError(t, err)
	require.Len(t, order, 3)
	assert.Equal(t, "a", order[0].ID)
	assert.Equal(t, "b", order[1].ID)
	assert.Equal(t, "c", order[2].ID)
}

func TestValidate_UnknownDependency(t *testing.T) {
	dir := t.TempDir()
	writeRecipe(t, dir, `
stages:
  - id: extra
    module_id: noop
    needs: ["does_not_exist"]
`)
	_, err := recipe.Load(dir)
	require.ErrorIs(t, err, recipe.ErrStageNotFound)
}
