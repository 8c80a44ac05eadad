package sequence

import (
	"regexp"
	"strings"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// Compound item conditions — "if you have the coil of rope and a
// grappling iron, turn to N" — synthesize an item_check with AND
// semantics directly from the section text during ordering, per spec.md
// §4.S: "Compound conditions (X and Y) become item_check with
// itemsAll:[X,Y]". Condition verbs that name a remembered event rather
// than carried inventory ("read", "seen", "previously", "found") are
// handled by the extractor's state_check pass instead.
var compoundItemCondition = regexp.MustCompile(
	`(?i)if you have (?:the |a |an )?([a-z][a-z '-]*?) and (?:the |a |an )?([a-z][a-z '-]*?),?\s*(turn to|go to|proceed to)\s+(\d+|death(?:\s*\([^)]*\))?)`)

var stateVerb = regexp.MustCompile(`(?i)\b(read|seen|previously|found|visited|met)\b`)

// extractCompoundItemChecks scans rawText for the "X and Y" item pattern,
// per spec.md §4.S.
func extractCompoundItemChecks(rawText string) []model.Event {
	var out []model.Event
	for _, m := range compoundItemCondition.FindAllStringSubmatchIndex(rawText, -1) {
		first := rawText[m[2]:m[3]]
		second := rawText[m[4]:m[5]]
		if stateVerb.MatchString(first) || stateVerb.MatchString(second) {
			continue
		}
		target := rawText[m[8]:m[9]]
		has := normalizeTarget(target)
		if has.IsZero() {
			continue
		}
		out = append(out, model.Event{
			Kind:     model.EventItemCheck,
			ItemsAll: []string{strings.TrimSpace(first), strings.TrimSpace(second)},
			Has:      &has,
			Offset:   m[0],
		})
	}
	return out
}
