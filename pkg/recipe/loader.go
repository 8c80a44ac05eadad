package recipe

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads recipe.yaml from configDir, expands environment variables,
// merges it over the built-in stage defaults, and validates the result.
// This is the primary entry point, mirroring tarsy's config.Initialize.
func Load(configDir string) (*Recipe, error) {
	log := slog.With("config_dir", configDir)
	log.Info("loading recipe")

	r, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}

	if err := validate(r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	log.Info("recipe loaded", "stages", len(r.Stages))
	return r, nil
}

func load(configDir string) (*Recipe, error) {
	path := filepath.Join(configDir, "recipe.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewLoadError(path, ErrRecipeNotFound)
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var user Recipe
	if err := yaml.Unmarshal(data, &user); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	merged, err := mergeStages(BuiltinStages(), user.Stages)
	if err != nil {
		return nil, NewLoadError(path, err)
	}
	user.Stages = merged
	user.configDir = configDir
	return &user, nil
}
