package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

var statWords = map[string]model.Stat{
	"skill":   model.StatSkill,
	"stamina": model.StatStamina,
	"luck":    model.StatLuck,
	"gold":    model.StatGold,
}

// matches "lose 2 STAMINA", "gain 1 LUCK point", "deduct 3 SKILL"
var statDelta = regexp.MustCompile(`(?i)\b(lose|gain|deduct|add)\s+(\d+)\s+(SKILL|STAMINA|LUCK|GOLD)\b`)

// matches dice-expression deltas like "-(1d6+2) STAMINA" or "d6 LUCK"; prose such as
// "roll one die and lose that many STAMINA" is not matched
var diceDelta = regexp.MustCompile(`(?i)([+-]?\(?\d*d\d+(?:[+-]\d+)?\)?)\s+(SKILL|STAMINA|LUCK|GOLD)\b`)

// extractStatChanges is extractor pass 2: literal and dice-expression stat
// deltas, per spec.md §4.X step 2.
func extractStatChanges(text string) []model.Event {
	var out []model.Event

	for _, m := range statDelta.FindAllStringSubmatchIndex(text, -1) {
		verb := strings.ToLower(text[m[2]:m[3]])
		n, _ := strconv.Atoi(text[m[4]:m[5]])
		if verb == "lose" || verb == "deduct" {
			n = -n
		}
		stat := statWords[strings.ToLower(text[m[6]:m[7]])]
		out = append(out, model.Event{
			Kind:   model.EventStatChange,
			Stat:   stat,
			Amount: model.LiteralAmount(n),
			Offset: m[0],
		})
	}

	for _, m := range diceDelta.FindAllStringSubmatchIndex(text, -1) {
		expr := text[m[2]:m[3]]
		stat := statWords[strings.ToLower(text[m[4]:m[5]])]
		out = append(out, model.Event{
			Kind:   model.EventStatChange,
			Stat:   stat,
			Amount: model.DiceAmount(model.DiceExpr(expr)),
			Offset: m[0],
		})
	}

	return out
}
