package extractor

import (
	"regexp"
	"strconv"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// "GREY WOLF  SKILL 6  STAMINA 7" style enemy stat blocks, one capture per
// enemy; books vary punctuation so the separator between name and stats is
// permissive.
var enemyBlock = regexp.MustCompile(`(?i)([A-Z][A-Za-z' -]+?)\s*[:\-]?\s*SKILL\s+(\d+)\s*[,;]?\s*STAMINA\s+(\d+)`)

// extractCombat is extractor pass 6, per spec.md §4.X step 6. Outcomes are
// left unset here — win/lose/escape endpoints are resolved from the
// surrounding choice text during sequence ordering.
func extractCombat(text string) []model.CombatBlock {
	matches := enemyBlock.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	var block model.CombatBlock
	block.Offset = matches[0][0]
	for _, m := range matches {
		skill, _ := strconv.Atoi(text[m[4]:m[5]])
		stamina, _ := strconv.Atoi(text[m[6]:m[7]])
		block.Enemies = append(block.Enemies, model.Enemy{
			Name:    text[m[2]:m[3]],
			Skill:   skill,
			Stamina: stamina,
		})
	}
	return []model.CombatBlock{block}
}
