package driver

import (
	"github.com/copperdogma/gamebook-pipeline/pkg/recipe"
)

// wave is a set of stages whose `needs` are already satisfied by earlier
// waves; no two stages in the same wave depend on each other.
type wave []recipe.Stage

// plan computes the recipe's dependency waves via Kahn's algorithm, mirroring
// mbflow's engine.BuildDAG/TopologicalSort shape, then flattens them to the
// single sequential order spec.md §5 requires ("stages executed
// sequentially"). Waves are still computed (not just a topological sort)
// because they double as an independent cycle check ahead of flattening.
// --dry-run reports only the flattened order, not the waves.
func plan(stages []recipe.Stage) ([]wave, error) {
	byID := make(map[string]recipe.Stage, len(stages))
	inDegree := make(map[string]int, len(stages))
	dependents := make(map[string][]string, len(stages))
	for _, s := range stages {
		byID[s.ID] = s
		if _, ok := inDegree[s.ID]; !ok {
			inDegree[s.ID] = 0
		}
		for _, need := range s.Needs {
			inDegree[s.ID]++
			dependents[need] = append(dependents[need], s.ID)
		}
	}

	var waves []wave
	remaining := len(stages)
	for remaining > 0 {
		var current wave
		for _, s := range stages {
			if inDegree[s.ID] == 0 {
				current = append(current, s)
			}
		}
		if len(current) == 0 {
			return nil, errCycle
		}
		for _, s := range current {
			delete(inDegree, s.ID)
			remaining--
			for _, depID := range dependents[s.ID] {
				inDegree[depID]--
			}
		}
		waves = append(waves, current)
	}
	return waves, nil
}

// flatten converts wave-based topology to the Driver's single sequential
// execution order.
func flatten(waves []wave) []recipe.Stage {
	var out []recipe.Stage
	for _, w := range waves {
		out = append(out, w...)
	}
	return out
}
