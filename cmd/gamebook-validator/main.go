// Command gamebook-validator runs the schema and logic checks over a
// gamebook.json file outside the full pipeline, per spec.md §6's portable
// validator CLI contract: print a JSON report, exit 0 on pass, 1 on fail.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
	"github.com/copperdogma/gamebook-pipeline/pkg/validate"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("gamebook-validator", flag.ContinueOnError)
	gamebookPath := fs.String("gamebook", "", "path to a gamebook.json file (required)")
	knownMissingPath := fs.String("known-missing", "", "optional path to a known_missing.json allowlist")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *gamebookPath == "" {
		fmt.Fprintln(stderr, "gamebook-validator: --gamebook is required")
		return 2
	}

	gb, err := loadGamebook(*gamebookPath)
	if err != nil {
		fmt.Fprintf(stderr, "gamebook-validator: %v\n", err)
		return 2
	}

	known, err := loadKnownMissing(*knownMissingPath)
	if err != nil {
		fmt.Fprintf(stderr, "gamebook-validator: %v\n", err)
		return 2
	}

	result, err := validate.Validate(gb, known)
	if err != nil {
		fmt.Fprintf(stderr, "gamebook-validator: %v\n", err)
		return 2
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(stderr, "gamebook-validator: encode report: %v\n", err)
		return 2
	}

	if !result.Pass() {
		return 1
	}
	return 0
}

func loadGamebook(path string) (model.Gamebook, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return model.Gamebook{}, fmt.Errorf("read %s: %w", path, err)
	}
	var gb model.Gamebook
	if err := json.Unmarshal(buf, &gb); err != nil {
		return model.Gamebook{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return gb, nil
}

func loadKnownMissing(path string) (model.KnownMissing, error) {
	if path == "" {
		return model.KnownMissing{}, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return model.KnownMissing{}, fmt.Errorf("read %s: %w", path, err)
	}
	var ids []string
	if err := json.Unmarshal(buf, &ids); err != nil {
		return model.KnownMissing{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return model.NewKnownMissing(ids), nil
}
