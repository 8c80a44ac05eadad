// Package recipe loads and validates the driver's recipe.yaml: the ordered
// stage list, per-stage params, AI budget caps, and the known-missing-
// sections allowlist.
package recipe

import "time"

// Stage is one node in the recipe's dependency graph.
type Stage struct {
	ID             string            `yaml:"id" validate:"required"`
	ModuleID       string            `yaml:"module_id" validate:"required"`
	Needs          []string          `yaml:"needs,omitempty"`
	Params         map[string]string `yaml:"params,omitempty"`
	OutputSchema   string            `yaml:"output_schema,omitempty"`
	MaxCalls       int               `yaml:"max_calls,omitempty"`
	CallTimeoutSec int               `yaml:"call_timeout_seconds,omitempty"`
}

// CallTimeout returns the per-call AI timeout as a Duration, defaulting to
// 30s when unset.
func (s Stage) CallTimeout() time.Duration {
	if s.CallTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.CallTimeoutSec) * time.Second
}

// Budget reports the stage's max_calls cap (0 = unlimited).
func (s Stage) Budget() int { return s.MaxCalls }

// Recipe is the parsed recipe.yaml.
type Recipe struct {
	Stages               []Stage  `yaml:"stages" validate:"required"`
	KnownMissingSections []string `yaml:"known_missing_sections,omitempty"`
	ExpectedRangeMax     int      `yaml:"expected_range_max,omitempty"`
	Title                string   `yaml:"title,omitempty"`
	Author               string   `yaml:"author,omitempty"`

	configDir string
}

// ConfigDir returns the directory the recipe was loaded from.
func (r *Recipe) ConfigDir() string { return r.configDir }

// ExpectedMax returns N_max, the expected upper section number bound,
// defaulting to 400 per spec.md §4.H.
func (r *Recipe) ExpectedMax() int {
	if r.ExpectedRangeMax <= 0 {
		return 400
	}
	return r.ExpectedRangeMax
}

// StageByID finds a stage by id.
func (r *Recipe) StageByID(id string) (Stage, bool) {
	for _, s := range r.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return Stage{}, false
}
