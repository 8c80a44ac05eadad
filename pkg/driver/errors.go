package driver

import "errors"

// Sentinel errors returned by the planner and runner.
var (
	errCycle          = errors.New("driver: cycle detected in stage dependency graph")
	ErrRunExists       = errors.New("driver: run_id already exists; pass --allow-run-id-reuse or --force")
	ErrUnknownModule   = errors.New("driver: no runner registered for module_id")
	ErrStageNotFound   = errors.New("driver: start-from stage not found in recipe")
	ErrGameNotReady    = errors.New("driver: game-ready gate failed")
)
