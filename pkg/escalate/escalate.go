// Package escalate implements the Try -> Validate -> Escalate loop (spec.md
// §4.E) that runs around extraction and choice repair: the deterministic
// extractor's output is validated against the section's own text, and only
// sections with unresolved gaps get a targeted, budget-bounded AI repair
// call — grounded on tarsy's pkg/agent/controller/react.go iteration shape,
// generalized from tool-call iteration to validate/repair iteration.
package escalate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/copperdogma/gamebook-pipeline/pkg/forensics"
	"github.com/copperdogma/gamebook-pipeline/pkg/llm"
	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// Section is the escalate loop's per-section working set: raw extractor
// output before the ordering stage has run.
type Section struct {
	ID      string
	RawText string
	RawHTML string
	Choices []model.Choice
}

// Outcome is one section's repair result.
type Outcome struct {
	SectionID     string
	AddedChoices  []model.Choice
	StillMissing  []string
	AttemptsSpent int
}

// Run executes the loop over every section in a single round: a section whose
// validate step finds gaps gets one repair request (sent through
// CallWithRetry), and there is no second round. Deterministic when client is
// nil or the shared budget is already exhausted: every section just reports
// its Validate findings with zero attempts spent.
func Run(ctx context.Context, client llm.Client, budget *llm.Budget, sections []Section) []Outcome {
	out := make([]Outcome, 0, len(sections))
	for _, s := range sections {
		out = append(out, runSection(ctx, client, budget, s))
	}
	return out
}

func runSection(ctx context.Context, client llm.Client, budget *llm.Budget, s Section) Outcome {
	// 1. Try: s.Choices is the deterministic extractor's result, already
	// computed by the caller.
	// 2. Validate.
	missing := forensics.UnextractedReferences(s.RawText, s.Choices)
	if len(missing) == 0 {
		return Outcome{SectionID: s.ID}
	}
	if client == nil {
		return Outcome{SectionID: s.ID, StillMissing: missing}
	}

	// 3. Escalate: one targeted, grounded repair call.
	resp, err := llm.CallWithRetry(ctx, boundedOrDirect(client, budget), buildRepairRequest(s, missing))
	if errors.Is(err, llm.ErrBudgetExhausted) {
		return Outcome{SectionID: s.ID, StillMissing: missing}
	}
	if err != nil {
		return Outcome{SectionID: s.ID, StillMissing: missing, AttemptsSpent: 1}
	}

	added := parseAndGroundRepairs(resp.Content, s, missing)

	// 4. Re-validate: anything the repair didn't ground for is still missing.
	accepted := make(map[string]bool, len(added))
	for _, c := range added {
		accepted[c.Target] = true
	}
	var stillMissing []string
	for _, ref := range missing {
		if !accepted[ref] {
			stillMissing = append(stillMissing, ref)
		}
	}

	return Outcome{SectionID: s.ID, AddedChoices: added, StillMissing: stillMissing, AttemptsSpent: 1}
}

func boundedOrDirect(client llm.Client, budget *llm.Budget) llm.Client {
	if budget == nil {
		return client
	}
	return &llm.BoundedClient{Client: client, Budget: budget}
}

const repairSchema = `{
  "type": "object",
  "required": ["choices"],
  "properties": {
    "choices": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["target", "anchor_text"],
        "properties": {
          "target": {"type": "string"},
          "anchor_text": {"type": "string"}
        }
      }
    }
  }
}`

func buildRepairRequest(s Section, missing []string) llm.Request {
	prompt := fmt.Sprintf(
		"The following section text explicitly references section numbers %s via \"turn to\"/\"go to\"/\"proceed to\" phrasing, but no matching choice was extracted. "+
			"Propose only choices you can ground directly in the quoted text below — do not invent a target that isn't already written there, and never suggest a different number than what the text literally says. "+
			"Section text:\n%s",
		strings.Join(missing, ", "), s.RawText)

	return llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You repair missing choice extractions. Ground every suggestion in the provided text verbatim."},
			{Role: llm.RoleUser, Content: prompt},
		},
		ResponseSchema: repairSchema,
	}
}

type repairResponse struct {
	Choices []struct {
		Target     string `json:"target"`
		AnchorText string `json:"anchor_text"`
	} `json:"choices"`
}

// parseAndGroundRepairs decodes the AI reply and applies the guard from
// spec.md §4.E: reject any suggestion whose target isn't one of the
// section's own missing references (prevents the "200 rewritten to 303"
// failure mode — the repair stage must never contradict an explicit
// numeric target already present in the raw HTML) or isn't actually present
// verbatim in the section's raw text.
func parseAndGroundRepairs(content string, s Section, missing []string) []model.Choice {
	var parsed repairResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil
	}

	allowed := make(map[string]bool, len(missing))
	for _, m := range missing {
		allowed[m] = true
	}

	var out []model.Choice
	seen := make(map[string]bool)
	for _, c := range parsed.Choices {
		if !allowed[c.Target] || seen[c.Target] {
			continue
		}
		if !strings.Contains(s.RawText, c.Target) {
			continue
		}
		seen[c.Target] = true
		out = append(out, model.Choice{Target: c.Target, AnchorText: c.AnchorText})
	}
	return out
}
