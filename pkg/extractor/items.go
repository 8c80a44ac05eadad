package extractor

import (
	"regexp"
	"strings"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// "put the Silver Key in your backpack" -> add; "take the Silver Key out of
// your backpack" -> remove. A bare pronoun ("it") backreferences the
// nearest preceding concrete noun phrase rather than being treated as an
// item name.
var itemAdd = regexp.MustCompile(`(?i)put (the |a |an )?([A-Za-z][A-Za-z '-]*?) (?:in|into) your backpack`)
var itemRemove = regexp.MustCompile(`(?i)take (the |a |an )?([A-Za-z][A-Za-z '-]*?) out of your backpack`)

// optional-take prompts ("you may take the X if you wish") are filtered —
// they describe a choice-conditional pickup, not an unconditional add, and
// are rewritten onto the choice's Effects during sequence ordering.
var optionalTake = regexp.MustCompile(`(?i)you may|if you (wish|want) to`)

var pronoun = regexp.MustCompile(`(?i)^(it|them|this|that)$`)

var nearestNoun = regexp.MustCompile(`(?i)\b(the |a |an )?([A-Z][a-z]+(?: [A-Z][a-z]+)*)\b`)

// extractItemEvents is extractor pass 4: inventory add/remove events, per
// spec.md §4.X step 4.
func extractItemEvents(text string) []model.Event {
	var out []model.Event

	for _, m := range itemAdd.FindAllStringSubmatchIndex(text, -1) {
		if isOptionalTake(text, m[0]) {
			continue
		}
		name := resolveItemName(text, m[0], text[m[4]:m[5]])
		out = append(out, model.Event{Kind: model.EventItem, Action: model.ItemAdd, Name: name, Offset: m[0]})
	}

	for _, m := range itemRemove.FindAllStringSubmatchIndex(text, -1) {
		name := resolveItemName(text, m[0], text[m[4]:m[5]])
		out = append(out, model.Event{Kind: model.EventItem, Action: model.ItemRemove, Name: name, Offset: m[0]})
	}

	return out
}

func isOptionalTake(text string, offset int) bool {
	start := offset - 40
	if start < 0 {
		start = 0
	}
	return optionalTake.MatchString(text[start:offset])
}

// resolveItemName returns name unless it is a bare pronoun, in which case
// it backreferences the nearest concrete noun phrase before offset.
func resolveItemName(text string, offset int, name string) string {
	trimmed := strings.TrimSpace(name)
	if !pronoun.MatchString(trimmed) {
		return trimmed
	}
	preceding := text[:offset]
	matches := nearestNoun.FindAllStringSubmatch(preceding, -1)
	if len(matches) == 0 {
		return trimmed
	}
	return matches[len(matches)-1][2]
}
