// Package validate implements the Node/Portable Validator (spec.md §4.N):
// schema validation plus the logic pass, packaged so it can back both
// cmd/gamebook-validator and any engine embedding this module directly.
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
	"github.com/copperdogma/gamebook-pipeline/pkg/version"
	"github.com/xeipuuv/gojsonschema"
)

// Validate runs the schema half then the logic pass over gb. A schema
// failure short-circuits the logic pass, since the logic checks assume a
// well-shaped document.
func Validate(gb model.Gamebook, known model.KnownMissing) (Result, error) {
	doc, err := json.Marshal(gb)
	if err != nil {
		return Result{}, fmt.Errorf("validate: marshal gamebook: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(gamebookSchema)
	docLoader := gojsonschema.NewBytesLoader(doc)
	schemaResult, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return Result{}, fmt.Errorf("validate: schema compile: %w", err)
	}

	var res Result
	if !schemaResult.Valid() {
		for _, e := range schemaResult.Errors() {
			res.SchemaErrors = append(res.SchemaErrors, e.String())
		}
		return res, nil
	}

	res = runLogic(gb, known)
	checkVersionStamp(gb, &res)
	return res, nil
}

// checkVersionStamp compares the gamebook's stamped validatorVersion
// against this package's own version — a mismatch is a warning only, never
// a gate failure, per spec.md §4.N.
func checkVersionStamp(gb model.Gamebook, res *Result) {
	if gb.Metadata.ValidatorVersion != "" && gb.Metadata.ValidatorVersion != version.ValidatorVersion {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"gamebook validatorVersion %q does not match validator version %q",
			gb.Metadata.ValidatorVersion, version.ValidatorVersion))
	}
}
