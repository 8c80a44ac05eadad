package extractor

import (
	"regexp"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// Non-item conditions: "if you have read the scroll", "if you have
// previously seen the spirit" — free-text state rather than an inventory
// check. Compound "X and Y" conditions are left intact here; the AND
// rewrite into item_check{itemsAll} vs state_check routing happens in
// sequence ordering (spec.md §4.S).
var stateConditionPhrase = regexp.MustCompile(`(?i)if you (?:have|had) (?:read|seen|previously (?:read|seen|visited|met)|already (?:read|seen|visited|met))[^.?!]*`)

// extractStateChecks is extractor pass 5, per spec.md §4.X step 5.
func extractStateChecks(text string) []model.Event {
	var out []model.Event
	for _, m := range stateConditionPhrase.FindAllStringIndex(text, -1) {
		out = append(out, model.Event{
			Kind:          model.EventStateCheck,
			ConditionText: text[m[0]:m[1]],
			Offset:        m[0],
		})
	}
	return out
}
