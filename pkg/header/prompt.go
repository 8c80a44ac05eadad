package header

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/copperdogma/gamebook-pipeline/pkg/llm"
	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

const candidateSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["seq", "macro_header", "game_section_header", "confidence"],
    "properties": {
      "seq": {"type": "integer"},
      "macro_header": {"type": "string"},
      "game_section_header": {"type": "boolean"},
      "claimed_section_number": {"type": ["integer", "null"]},
      "confidence": {"type": "number"}
    }
  }
}`

// verdict is one element's classification as returned by the model, keyed
// by seq so forward and backward passes can be aggregated afterward.
type verdict struct {
	Seq                  int     `json:"seq"`
	MacroHeader          string  `json:"macro_header"`
	GameSectionHeader    bool    `json:"game_section_header"`
	ClaimedSectionNumber *int    `json:"claimed_section_number"`
	Confidence           float64 `json:"confidence"`
}

// buildRequest frames the batch as candidate detection, not final decision,
// per spec.md §4.H step 2.
func buildRequest(b batch, nMax int) llm.Request {
	var sb strings.Builder
	for _, e := range b.elements {
		fmt.Fprintf(&sb, "seq=%d page=%d text=%q\n", e.Seq, e.Page, e.Text)
	}
	return llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: fmt.Sprintf(
				"You are a candidate detector for a gamebook's structural headers. "+
					"Err on the side of marking potential headers as candidates; a later "+
					"stage decides what is real. Game section numbers fall in [1, %d]. "+
					"Label every element given below. Output a JSON array, one object per "+
					"input element, each with seq, macro_header "+
					"(one of none|cover|rules|front_matter|background|game_sections|endmatter), "+
					"game_section_header (bool), claimed_section_number (int or null), "+
					"confidence (0..1).", nMax)},
			{Role: llm.RoleUser, Content: sb.String()},
		},
		ResponseSchema: candidateSchema,
	}
}

// parseVerdicts decodes a model response into per-seq verdicts, ignoring
// any row whose seq does not correspond to an element in the batch — per
// spec.md §4.H contract, "no candidate is invented that does not correspond
// to an existing seq."
func parseVerdicts(content string, b batch) ([]verdict, error) {
	var raw []verdict
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("header: malformed candidate response: %w", err)
	}
	known := make(map[int]bool, len(b.elements))
	for _, e := range b.elements {
		known[e.Seq] = true
	}
	out := raw[:0]
	for _, v := range raw {
		if known[v.Seq] {
			out = append(out, v)
		}
	}
	return out, nil
}

func toMacroHeader(s string) model.MacroHeader {
	switch model.MacroHeader(s) {
	case model.MacroCover, model.MacroRules, model.MacroFrontMatter,
		model.MacroBackground, model.MacroGameSection, model.MacroEndmatter:
		return model.MacroHeader(s)
	default:
		return model.MacroNone
	}
}
