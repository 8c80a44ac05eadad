package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperdogma/gamebook-pipeline/pkg/recipe"
)

func TestPlan_OrdersByDependencyWaves(t *testing.T) {
	stages := []recipe.Stage{
		{ID: "c", ModuleID: "m", Needs: []string{"a", "b"}},
		{ID: "a", ModuleID: "m"},
		{ID: "b", ModuleID: "m", Needs: []string{"a"}},
	}

	waves, err := plan(stages)
	require.NoError(t, err)
	require.Len(t, waves, 3)
	assert.Equal(t, "a", waves[0][0].ID)
	assert.Equal(t, "b", waves[1][0].ID)
	assert.Equal(t, "c", waves[2][0].ID)

	order := flatten(waves)
	require.Len(t, order, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{order[0].ID, order[1].ID, order[2].ID})
}

func TestPlan_DetectsCycle(t *testing.T) {
	stages := []recipe.Stage{
		{ID: "a", ModuleID: "m", Needs: []string{"b"}},
		{ID: "b", ModuleID: "m", Needs: []string{"a"}},
	}

	_, err := plan(stages)
	assert.ErrorIs(t, err, errCycle)
}

func TestResolveParam_ExpandsArtifactReference(t *testing.T) {
	cache := newProgramCache(64)
	artifacts := map[string]map[string]string{
		"reduce": {"elements_core": "/run/01_ir_reducer/elements_core.jsonl"},
	}

	resolved, err := cache.resolveParam("{reduce.elements_core}", artifacts)
	require.NoError(t, err)
	assert.Equal(t, "/run/01_ir_reducer/elements_core.jsonl", resolved)
}

func TestResolveParam_CachesCompiledProgramAcrossCalls(t *testing.T) {
	cache := newProgramCache(64)

	_, err := cache.resolveParam("{a.x}", map[string]map[string]string{"a": {"x": "first"}})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.order.Len())

	resolved, err := cache.resolveParam("{a.x}", map[string]map[string]string{"a": {"x": "second"}})
	require.NoError(t, err)
	assert.Equal(t, "second", resolved)
	assert.Equal(t, 1, cache.order.Len(), "same template string should reuse the cached compiled program")
}

func TestResolveParam_MalformedTemplateErrors(t *testing.T) {
	cache := newProgramCache(64)
	_, err := cache.resolveParam("{1bad.field}", map[string]map[string]string{})
	assert.Error(t, err)
}

func TestPipelineState_ResetFromRestartsTailOnly(t *testing.T) {
	order := []string{"a", "b", "c", "d"}
	st := &PipelineState{}
	for _, id := range order {
		s := st.ensure(id)
		s.Status = StageDone
	}

	st.resetFrom(order, "c")

	assert.Equal(t, StageDone, st.byID("a").Status)
	assert.Equal(t, StageDone, st.byID("b").Status)
	assert.Equal(t, StagePending, st.byID("c").Status)
	assert.Equal(t, StagePending, st.byID("d").Status)
}

func TestStageDirFor_NamesByExecutionPosition(t *testing.T) {
	order := []recipe.Stage{
		{ID: "reduce", ModuleID: "ir_reducer"},
		{ID: "classify", ModuleID: "header_classifier"},
	}

	assert.Equal(t, filepath.Join("run", "01_ir_reducer"), stageDirFor("run", order, order[0]))
	assert.Equal(t, filepath.Join("run", "02_header_classifier"), stageDirFor("run", order, order[1]))
}

// noop stages let Run()'s lifecycle (state/event persistence, resume
// semantics) be exercised without needing a realistic document flowing
// through every real stage.
func registerNoopStages(t *testing.T) {
	t.Helper()
	original := stageRegistry
	stageRegistry = map[string]stageFunc{
		"noop_a": func(_ context.Context, _ *RunContext, _ map[string]string, dir string) (map[string]string, error) {
			out := filepath.Join(dir, "out.json")
			return map[string]string{"out": out}, writeJSON(out, map[string]string{"stage": "a"})
		},
		"noop_b": func(_ context.Context, _ *RunContext, _ map[string]string, dir string) (map[string]string, error) {
			out := filepath.Join(dir, "out.json")
			return map[string]string{"out": out}, writeJSON(out, map[string]string{"stage": "b"})
		},
	}
	t.Cleanup(func() { stageRegistry = original })
}

func noopRecipe() *recipe.Recipe {
	return &recipe.Recipe{
		Stages: []recipe.Stage{
			{ID: "a", ModuleID: "noop_a"},
			{ID: "b", ModuleID: "noop_b", Needs: []string{"a"}},
		},
	}
}

func TestRun_DryRunReturnsPlanWithoutExecuting(t *testing.T) {
	registerNoopStages(t)
	dir := t.TempDir()

	result, err := Run(context.Background(), Options{
		Recipe:    noopRecipe(),
		RunID:     "run1",
		OutputDir: dir,
		DryRun:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, result.Plan)
	assert.Empty(t, result.RunDir)

	_, statErr := os.Stat(filepath.Join(dir, "run1"))
	assert.True(t, os.IsNotExist(statErr), "dry-run must not create a run directory")
}

func TestRun_ExistingRunIDWithoutForceReturnsErrRunExists(t *testing.T) {
	registerNoopStages(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "run1"), 0o755))

	_, err := Run(context.Background(), Options{
		Recipe:    noopRecipe(),
		RunID:     "run1",
		OutputDir: dir,
	})
	assert.ErrorIs(t, err, ErrRunExists)
}

func TestRun_ForceWipesStageDirsAndResetsState(t *testing.T) {
	registerNoopStages(t)
	dir := t.TempDir()

	_, err := Run(context.Background(), Options{
		Recipe:    noopRecipe(),
		RunID:     "run1",
		OutputDir: dir,
	})
	require.NoError(t, err)

	stale := filepath.Join(dir, "run1", "01_noop_a", "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

	_, err = Run(context.Background(), Options{
		Recipe:    noopRecipe(),
		RunID:     "run1",
		OutputDir: dir,
		Force:     true,
	})
	require.NoError(t, err)

	_, statErr := os.Stat(stale)
	assert.True(t, os.IsNotExist(statErr), "--force must wipe existing stage directories")
}

func TestRun_StartFromResumesOnlyTailStages(t *testing.T) {
	registerNoopStages(t)
	dir := t.TempDir()

	_, err := Run(context.Background(), Options{
		Recipe:    noopRecipe(),
		RunID:     "run1",
		OutputDir: dir,
	})
	require.NoError(t, err)

	firstArtifact := filepath.Join(dir, "run1", "01_noop_a", "out.json")
	info1, err := os.Stat(firstArtifact)
	require.NoError(t, err)

	result, err := Run(context.Background(), Options{
		Recipe:          noopRecipe(),
		RunID:           "run1",
		OutputDir:       dir,
		AllowRunIDReuse: true,
		StartFrom:       "b",
	})
	require.NoError(t, err)
	assert.True(t, result.Passed)

	info2, err := os.Stat(firstArtifact)
	require.NoError(t, err)
	assert.Equal(t, info1.ModTime(), info2.ModTime(), "a stage before --start-from must not re-run")
}

func TestRun_IdempotentReexecutionProducesByteIdenticalArtifacts(t *testing.T) {
	registerNoopStages(t)
	dir := t.TempDir()

	opts := Options{Recipe: noopRecipe(), RunID: "run1", OutputDir: dir, Force: true}

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(dir, "run1", "02_noop_b", "out.json"))
	require.NoError(t, err)

	_, err = Run(context.Background(), opts)
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, "run1", "02_noop_b", "out.json"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
