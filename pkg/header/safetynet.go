package header

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

var standaloneInt = regexp.MustCompile(`^\d{1,4}$`)

var rulesContextWords = []string{"dice", "d6", "d10", "skill", "stamina", "luck", "combat", "roll"}

// looksLikeRulesContext reports whether text reads like rules/list prose
// rather than narrative — the numeric safety net's exception (a).
func looksLikeRulesContext(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range rulesContextWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// looksLikeListContinuation reports whether text reads like a short
// comma-separated continuation of a preceding list rather than section
// prose — the numeric safety net's exception (b).
func looksLikeListContinuation(text string) bool {
	if len(text) > 48 {
		return false
	}
	return strings.Contains(text, ",") || looksLikeRulesContext(text)
}

// applySafetyNet auto-boosts standalone integers in [1, nMax] to
// game_section_header candidates, per spec.md §4.H step 4, unless the
// surrounding context marks the line as rules/list prose.
func applySafetyNet(candidates []model.HeaderCandidate, elements []model.ElementCore, nMax int) {
	bySeq := make(map[int]int, len(elements))
	for i, e := range elements {
		bySeq[e.Seq] = i
	}

	for i := range candidates {
		c := &candidates[i]
		if c.GameSectionHeader {
			continue
		}
		idx, ok := bySeq[c.Seq]
		if !ok {
			continue
		}
		text := strings.TrimSpace(elements[idx].Text)
		if !standaloneInt.MatchString(text) {
			continue
		}
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 || n > nMax {
			continue
		}
		if idx > 0 && looksLikeRulesContext(elements[idx-1].Text) {
			continue
		}
		if idx+1 < len(elements) && looksLikeListContinuation(elements[idx+1].Text) {
			continue
		}
		c.GameSectionHeader = true
		n2 := n
		c.ClaimedSectionNumber = &n2
		if c.Confidence < 0.7 {
			c.Confidence = 0.7
		}
		if c.MacroHeader == model.MacroNone || c.MacroHeader == "" {
			c.MacroHeader = model.MacroGameSection
		}
	}
}
