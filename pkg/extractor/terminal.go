package extractor

import (
	"regexp"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

var deathPhrase = regexp.MustCompile(`(?i)(your (life|adventure) ends here|you have died|this is the end)[^.?!]*`)

// extractTerminalOutcomes is extractor pass 7, per spec.md §4.X step 7:
// explicit death markers synthesize a terminal death event.
func extractTerminalOutcomes(text string) []model.Event {
	var out []model.Event
	for _, m := range deathPhrase.FindAllStringIndex(text, -1) {
		out = append(out, model.Event{
			Kind:        model.EventDeath,
			Outcome:     "death",
			Description: text[m[0]:m[1]],
			Offset:      m[0],
		})
	}
	return out
}
