// Command gamebook-pipeline drives one end-to-end run of the segmentation,
// building, and validation stages over a pre-extracted raw-element stream,
// per spec.md §6's Driver CLI contract.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/copperdogma/gamebook-pipeline/pkg/driver"
	"github.com/copperdogma/gamebook-pipeline/pkg/llm"
	"github.com/copperdogma/gamebook-pipeline/pkg/recipe"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a driver/recipe error to spec.md §6's exit codes: 0
// success, 1 run failed (a stage or the game-ready gate), 2 invalid
// recipe/arguments.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case isArgumentError(err):
		return 2
	default:
		return 1
	}
}

func isArgumentError(err error) bool {
	return errors.Is(err, recipe.ErrRecipeNotFound) ||
		errors.Is(err, recipe.ErrInvalidYAML) ||
		errors.Is(err, recipe.ErrValidationFailed) ||
		errors.Is(err, driver.ErrStageNotFound) ||
		errors.Is(err, driver.ErrRunExists)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gamebook-pipeline",
		Short: "Run the gamebook extraction and validation pipeline",
	}
	root.AddCommand(newRunCmd())
	return root
}

type runFlags struct {
	recipeDir       string
	runID           string
	outputDir       string
	inputPath       string
	force           bool
	allowReuse      bool
	startFrom       string
	dryRun          bool
	logFormat       string
	maxAICalls      int
	llmEndpoint     string
	llmModel        string
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Plan and execute one recipe invocation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.recipeDir, "recipe", "./deploy/config", "directory containing recipe.yaml")
	flags.StringVar(&f.runID, "run-id", "", "run identifier (required)")
	flags.StringVar(&f.outputDir, "output-dir", "output/runs", "parent directory for run output")
	flags.StringVar(&f.inputPath, "input-pdf", "", "pre-extracted raw-element JSON path (required unless --dry-run)")
	flags.BoolVar(&f.force, "force", false, "wipe existing run state and stage directories before executing")
	flags.BoolVar(&f.allowReuse, "allow-run-id-reuse", false, "resume an existing run_id without wiping it")
	flags.StringVar(&f.startFrom, "start-from", "", "reset this stage and every stage after it, then resume")
	flags.BoolVar(&f.dryRun, "dry-run", false, "print the planned execution order without running any stage")
	flags.StringVar(&f.logFormat, "log-format", "json", "log output format: json or text")
	flags.IntVar(&f.maxAICalls, "max-ai-calls", 0, "cap on AI calls for the whole run; 0 means unlimited")
	flags.StringVar(&f.llmEndpoint, "llm-endpoint", os.Getenv("LLM_ENDPOINT"), "OpenAI-compatible base URL for AI-backed stages")
	flags.StringVar(&f.llmModel, "llm-model", os.Getenv("LLM_MODEL"), "model name to request from --llm-endpoint")

	_ = cmd.MarkFlagRequired("run-id")

	return cmd
}

func runPipeline(ctx context.Context, f runFlags) error {
	setupLogging(f.logFormat)

	envPath := filepath.Join(f.recipeDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	r, err := recipe.Load(f.recipeDir)
	if err != nil {
		return err
	}

	opts := driver.Options{
		Recipe:           r,
		RunID:            f.runID,
		OutputDir:        f.outputDir,
		InputPath:        f.inputPath,
		Force:            f.force,
		AllowRunIDReuse:  f.allowReuse,
		StartFrom:        f.startFrom,
		DryRun:           f.dryRun,
		LLM:              buildLLMClient(f),
		MaxAICallsPerRun: f.maxAICalls,
	}

	result, err := driver.Run(ctx, opts)
	if result.Plan != nil {
		if opts.DryRun {
			fmt.Println("planned execution order:")
			for i, id := range result.Plan {
				fmt.Printf("  %02d. %s\n", i+1, id)
			}
			return nil
		}
		fmt.Printf("run directory: %s\n", result.RunDir)
	}
	if err != nil {
		return err
	}
	if result.GameReady != nil {
		fmt.Printf("game-ready status: %s\n", result.GameReady.Status)
	}
	return nil
}

// buildLLMClient wires the header classifier, global structurer, and
// escalation loop to an OpenAI-compatible endpoint when one is configured.
// No endpoint means every AI call fails: the header classifier and the
// escalation loop fall back to their deterministic results, while the global
// structurer has no deterministic fallback and its stage fails.
func buildLLMClient(f runFlags) llm.Client {
	if f.llmEndpoint == "" {
		return &llm.FakeClient{Errs: []error{llm.ErrEmptyResponse}}
	}
	return &llm.HTTPClient{
		BaseURL: f.llmEndpoint,
		APIKey:  os.Getenv("LLM_API_KEY"),
		Model:   f.llmModel,
	}
}

func setupLogging(format string) {
	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, nil)
	default:
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))
}
