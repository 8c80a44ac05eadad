package recipe

import "dario.cat/mergo"

// BuiltinStages is the default stage list a recipe.yaml may omit entirely
// (typical recipes only override params), merged under user stages with
// dario.cat/mergo the way tarsy layers built-in agents under user overrides
// in pkg/config/loader.go.
func BuiltinStages() []Stage {
	return []Stage{
		{ID: "reduce", ModuleID: "ir_reducer"},
		{ID: "classify_headers", ModuleID: "header_classifier", MaxCalls: 40, CallTimeoutSec: 45,
			Params: map[string]string{"elements": "{reduce.elements_core}"}},
		{ID: "structure", ModuleID: "global_structurer", MaxCalls: 2, CallTimeoutSec: 90,
			Needs:  []string{"classify_headers"},
			Params: map[string]string{"candidates": "{classify_headers.header_candidates}"}},
		{ID: "assemble_boundaries", ModuleID: "boundary_assembler",
			Needs:  []string{"structure"},
			Params: map[string]string{"structured": "{structure.sections_structured}"}},
		{ID: "verify_boundaries", ModuleID: "boundary_verifier", MaxCalls: 10, CallTimeoutSec: 30,
			Needs:  []string{"assemble_boundaries"},
			Params: map[string]string{"boundaries": "{assemble_boundaries.section_boundaries}"}},
		{ID: "extract_sections", ModuleID: "section_extractor", MaxCalls: 0,
			Needs:  []string{"verify_boundaries"},
			Params: map[string]string{"boundaries": "{assemble_boundaries.section_boundaries}"}},
		{ID: "order_sequence", ModuleID: "sequence_ordering",
			Needs:  []string{"extract_sections"},
			Params: map[string]string{"portions": "{extract_sections.portions_enriched}"}},
		{ID: "build_gamebook", ModuleID: "gamebook_builder",
			Needs:  []string{"order_sequence"},
			Params: map[string]string{"portions": "{order_sequence.portions_enriched}"}},
		{ID: "validate_game_ready", ModuleID: "node_validator",
			Needs:  []string{"build_gamebook"},
			Params: map[string]string{"gamebook": "{build_gamebook.gamebook}"}},
		{ID: "forensics", ModuleID: "forensics_validator",
			Needs: []string{"build_gamebook", "verify_boundaries"},
			Params: map[string]string{
				"gamebook":   "{build_gamebook.gamebook}",
				"boundaries": "{assemble_boundaries.section_boundaries}",
			}},
	}
}

// mergeStages layers user-declared stages over the builtin defaults: a user
// stage with the same id has its non-zero fields merged onto the builtin
// entry in place (dario.cat/mergo, as tarsy's loader merges QueueConfig
// onto its defaults), a new id is appended, and order follows the builtin
// list first then new user stages in declaration order.
func mergeStages(builtin, user []Stage) ([]Stage, error) {
	if len(user) == 0 {
		return builtin, nil
	}
	byID := make(map[string]int, len(builtin))
	merged := make([]Stage, len(builtin))
	copy(merged, builtin)
	for i, s := range merged {
		byID[s.ID] = i
	}
	for _, s := range user {
		if i, ok := byID[s.ID]; ok {
			if err := mergo.Merge(&merged[i], s, mergo.WithOverride); err != nil {
				return nil, err
			}
		} else {
			byID[s.ID] = len(merged)
			merged = append(merged, s)
		}
	}
	return merged, nil
}
