package recipe

import "fmt"

// validate performs comprehensive validation on a loaded Recipe, matching
// tarsy's Validator.ValidateAll fail-fast shape (stop at first error, wrap
// with a component-scoped ValidationError).
func validate(r *Recipe) error {
	if len(r.Stages) == 0 {
		return NewValidationError("<recipe>", "stages", fmt.Errorf("at least one stage is required"))
	}

	seen := make(map[string]bool, len(r.Stages))
	for _, s := range r.Stages {
		if s.ID == "" {
			return NewValidationError("<unknown>", "id", fmt.Errorf("stage id is required"))
		}
		if s.ModuleID == "" {
			return NewValidationError(s.ID, "module_id", fmt.Errorf("module_id is required"))
		}
		if seen[s.ID] {
			return NewValidationError(s.ID, "id", fmt.Errorf("duplicate stage id"))
		}
		seen[s.ID] = true
	}

	for _, s := range r.Stages {
		for _, need := range s.Needs {
			if !seen[need] {
				return NewValidationError(s.ID, "needs", fmt.Errorf("%w: %s", ErrStageNotFound, need))
			}
		}
	}

	if _, err := TopologicalOrder(r.Stages); err != nil {
		return NewValidationError("<recipe>", "needs", err)
	}

	return nil
}

// TopologicalOrder returns stages ordered so every stage follows all stages
// it needs, detecting cycles. Used by validate; the driver plans with its
// own wave-based planner.
func TopologicalOrder(stages []Stage) ([]Stage, error) {
	byID := make(map[string]Stage, len(stages))
	for _, s := range stages {
		byID[s.ID] = s
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(stages))
	var order []Stage

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("%w: %v -> %s", ErrCycleDetected, path, id)
		}
		color[id] = gray
		s := byID[id]
		for _, dep := range s.Needs {
			if err := visit(dep, append(path, id)); err != nil {
				return err
			}
		}
		color[id] = black
		order = append(order, s)
		return nil
	}

	for _, s := range stages {
		if err := visit(s.ID, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}
