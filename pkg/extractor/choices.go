package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

var choicePhrase = regexp.MustCompile(`(?i)(?:turn to|go to|proceed to)\s+(\d+|death)\b`)

var hrefTarget = regexp.MustCompile(`^#?(\d+)$`)

// extractChoices is extractor pass 1: relaxed regex on anchors plus "turn
// to N" / "go to N" / "proceed to N" phrasing, per spec.md §4.X step 1.
func extractChoices(doc *goquery.Document, rawText string) []model.Choice {
	var choices []model.Choice
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		m := hrefTarget.FindStringSubmatch(href)
		if m == nil {
			return
		}
		text := strings.TrimSpace(s.Text())
		offset := strings.Index(rawText, text)
		key := "anchor:" + m[1] + ":" + text
		if seen[key] {
			return
		}
		seen[key] = true
		choices = append(choices, model.Choice{Target: m[1], AnchorText: text, Offset: offset})
	})

	anchors := choices
	for _, m := range choicePhrase.FindAllStringSubmatchIndex(rawText, -1) {
		target := rawText[m[2]:m[3]]
		offset := m[0]
		covered := false
		for _, c := range anchors {
			if c.Target == target && c.Offset >= 0 && c.Offset <= m[0] && m[1] <= c.Offset+len(c.AnchorText) {
				covered = true
				break
			}
		}
		if covered {
			continue // the phrase is this anchor's own text, already recorded
		}
		key := fmt.Sprintf("phrase:%s:%d", target, offset)
		if seen[key] {
			continue
		}
		seen[key] = true
		choices = append(choices, model.Choice{
			Target:     target,
			AnchorText: strings.TrimSpace(rawText[m[0]:m[1]]),
			Offset:     offset,
		})
	}

	return choices
}
