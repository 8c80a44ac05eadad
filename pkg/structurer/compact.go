package structurer

import (
	"fmt"
	"strings"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// buildSummary keeps only candidates carrying signal worth the structurer's
// attention — per spec.md §4.G step 1, "only candidates with macro_header ≠
// none or game_section_header=true (+ light context)". Light context is the
// immediately preceding element's text, truncated, so the model can tell a
// genuine header from a number embedded mid-sentence.
func buildSummary(candidates []model.HeaderCandidate) string {
	var sb strings.Builder
	for i, c := range candidates {
		if !c.IsCandidate() {
			continue
		}
		claimed := "null"
		if c.ClaimedSectionNumber != nil {
			claimed = fmt.Sprintf("%d", *c.ClaimedSectionNumber)
		}
		context := ""
		if i > 0 {
			context = truncate(candidates[i-1].Text, 80)
		}
		fmt.Fprintf(&sb, "seq=%d macro=%s game_header=%t claimed=%s conf=%.2f text=%q prev=%q\n",
			c.Seq, c.MacroHeader, c.GameSectionHeader, claimed, c.Confidence, truncate(c.Text, 120), context)
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
