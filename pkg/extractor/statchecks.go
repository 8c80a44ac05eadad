package extractor

import (
	"regexp"
	"strings"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// "Test your Luck" and variants; the lucky/unlucky branches are resolved by
// the sequence-ordering stage from the surrounding "turn to N" text, so
// here we only record that a luck test occurs at this offset.
var luckTestPhrase = regexp.MustCompile(`(?i)test your luck`)

// "Test your SKILL" / "Test your STAMINA" for a non-luck stat check.
var statTestPhrase = regexp.MustCompile(`(?i)test your (SKILL|STAMINA)`)

var passFailWord = regexp.MustCompile(`(?i)\bif you (pass|fail|are lucky|are unlucky)\b`)

// extractStatAndLuckChecks is extractor pass 3: stat checks and test_luck,
// per spec.md §4.X step 3.
func extractStatAndLuckChecks(text string) (statChecks, luckTests []model.Event) {
	for _, m := range statTestPhrase.FindAllStringSubmatchIndex(text, -1) {
		stat := statWords[strings.ToLower(text[m[2]:m[3]])]
		ev := model.Event{Kind: model.EventStatCheck, Stat: stat, Offset: m[0]}
		window := windowAfter(text, m[1], 200)
		if pf := passFailWord.FindAllStringSubmatch(window, -1); len(pf) > 0 {
			for _, p := range pf {
				switch strings.ToLower(p[1]) {
				case "pass":
					ev.PassCondition = strings.TrimSpace(p[0])
				case "fail":
					ev.FailCondition = strings.TrimSpace(p[0])
				}
			}
		}
		statChecks = append(statChecks, ev)
	}

	for _, m := range luckTestPhrase.FindAllStringIndex(text, -1) {
		luckTests = append(luckTests, model.Event{Kind: model.EventTestLuck, Offset: m[0]})
	}

	return statChecks, luckTests
}

func windowAfter(text string, from, length int) string {
	end := from + length
	if end > len(text) {
		end = len(text)
	}
	if from > len(text) {
		return ""
	}
	return text[from:end]
}
