// Package structurer implements the Global Structurer (spec.md §4.G): one
// AI call that turns high-recall header candidates into a coherent
// macro/game section structure, retried once on invariant violation and
// enriched with full section text for downstream verification.
package structurer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/copperdogma/gamebook-pipeline/pkg/llm"
	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

const structureSchema = `{
  "type": "object",
  "required": ["macro_sections", "game_sections"],
  "properties": {
    "macro_sections": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "start_seq"],
        "properties": {
          "name": {"type": "string"},
          "start_seq": {"type": "integer"},
          "end_seq": {"type": ["integer", "null"]}
        }
      }
    },
    "game_sections": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["section_id", "start_seq", "status"],
        "properties": {
          "section_id": {"type": "integer"},
          "start_seq": {"type": "integer"},
          "status": {"type": "string", "enum": ["certain", "uncertain"]}
        }
      }
    }
  }
}`

// Result carries the structured output plus non-fatal warnings surfaced
// during the conservative duplicate-resolution pass.
type Result struct {
	Structured model.SectionsStructured
	Dropped    []model.GameSection
}

// Structure runs the single-shot structuring call, retries once if the
// response violates strict ordering or uniqueness, and otherwise saves with
// warnings recorded in Result.Dropped, per spec.md §4.G step 3.
func Structure(ctx context.Context, client llm.Client, candidates []model.HeaderCandidate, elements []model.ElementCore) (Result, error) {
	summary := buildSummary(candidates)
	req := buildRequest(summary)

	var parsed wireStructure
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := llm.CallWithRetry(ctx, client, req)
		if err != nil {
			return Result{}, fmt.Errorf("structurer: AI call failed: %w", err)
		}
		parsed, lastErr = decode(resp.Content)
		if lastErr == nil {
			kept, dropped := enforceConservativeRule(parsed.toModel())
			if checkInvariants(kept) == nil {
				enrichText(kept, elements)
				return Result{
					Structured: model.SectionsStructured{
						MacroSections: parsed.macroSections(),
						GameSections:  kept,
					},
					Dropped: dropped,
				}, nil
			}
			lastErr = ErrInvalidStructure
		}
		slog.Warn("structurer: invalid response, retrying", "attempt", attempt, "error", lastErr)
	}
	return Result{}, fmt.Errorf("structurer: giving up after retry: %w", lastErr)
}

func buildRequest(summary string) llm.Request {
	return llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You turn candidate section headers into a coherent " +
				"document structure. Produce macro_sections (front_matter/rules/game/endmatter " +
				"regions) and game_sections (numbered gameplay sections). start_seq must strictly " +
				"increase across game_sections in document order; section_id values must be unique. " +
				"Cover the expected range as completely as possible; prefer status=uncertain over " +
				"omitting a section entirely."},
			{Role: llm.RoleUser, Content: summary},
		},
		ResponseSchema: structureSchema,
	}
}

type wireMacroSection struct {
	Name     string `json:"name"`
	StartSeq int    `json:"start_seq"`
	EndSeq   *int   `json:"end_seq"`
}

type wireGameSection struct {
	SectionID int    `json:"section_id"`
	StartSeq  int    `json:"start_seq"`
	Status    string `json:"status"`
}

type wireStructure struct {
	MacroSectionsRaw []wireMacroSection `json:"macro_sections"`
	GameSectionsRaw  []wireGameSection  `json:"game_sections"`
}

func decode(content string) (wireStructure, error) {
	var ws wireStructure
	if err := json.Unmarshal([]byte(content), &ws); err != nil {
		return wireStructure{}, fmt.Errorf("malformed structure response: %w", err)
	}
	return ws, nil
}

func (w wireStructure) macroSections() []model.MacroSection {
	out := make([]model.MacroSection, 0, len(w.MacroSectionsRaw))
	for _, m := range w.MacroSectionsRaw {
		out = append(out, model.MacroSection{Name: m.Name, StartSeq: m.StartSeq, EndSeq: m.EndSeq})
	}
	return out
}

func (w wireStructure) toModel() []model.GameSection {
	out := make([]model.GameSection, 0, len(w.GameSectionsRaw))
	for _, g := range w.GameSectionsRaw {
		status := model.StatusUncertain
		if g.Status == string(model.StatusCertain) {
			status = model.StatusCertain
		}
		out = append(out, model.GameSection{SectionID: g.SectionID, StartSeq: g.StartSeq, Status: status})
	}
	return out
}
