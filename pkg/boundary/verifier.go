package boundary

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/copperdogma/gamebook-pipeline/pkg/llm"
	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// VerifyOptions configures the deterministic checks and optional AI spot
// checks.
type VerifyOptions struct {
	// Window is the ±K element window used by the zoom-in check. Defaults
	// to 2.
	Window int
	// ExpectedMax is the top of the expected section-id range (default the
	// highest section_id actually present).
	ExpectedMax int
	// Allowlist names section ids known to be physically missing — they are
	// excluded from the Missing report.
	Allowlist map[string]bool
	// AIBudget bounds the number of AI spot checks issued for suspicious
	// boundaries. nil means no AI pass is run.
	AIBudget *llm.Budget
	AIClient llm.Client
}

func (o VerifyOptions) withDefaults() VerifyOptions {
	if o.Window <= 0 {
		o.Window = 2
	}
	return o
}

// Verify runs the deterministic zoom-in/zoom-out checks and duplicate/
// missing reporting, then (if configured) a budget-bounded AI pass that
// only annotates suspicious boundaries — it never overwrites them, per
// spec.md §4.V's "must not overwrite boundaries; only annotate".
func Verify(ctx context.Context, boundaries []model.SectionBoundary, elements []model.ElementCore, conflicts []model.OrderingConflict, opts VerifyOptions) model.BoundaryVerification {
	opts = opts.withDefaults()

	elementBySeq := make(map[int]model.ElementCore, len(elements))
	for _, e := range elements {
		elementBySeq[e.Seq] = e
	}

	report := model.BoundaryVerification{Conflicts: conflicts}

	ordered := make([]model.SectionBoundary, len(boundaries))
	copy(ordered, boundaries)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].StartSeq < ordered[j].StartSeq })

	var suspicious []model.SectionBoundary
	for i, b := range ordered {
		if w := zoomIn(b, elementBySeq, opts.Window); w != "" {
			report.ZoomInWarnings = append(report.ZoomInWarnings, w)
			suspicious = append(suspicious, b)
		}
		if i+1 < len(ordered) {
			if w := zoomOut(b, ordered[i+1], elementBySeq); w != "" {
				report.ZoomOutWarnings = append(report.ZoomOutWarnings, w)
			}
		}
	}

	report.Duplicates, report.Missing = duplicatesAndMissing(boundaries, opts)

	if opts.AIBudget != nil && opts.AIClient != nil {
		report.AIAnnotations = spotCheck(ctx, opts.AIClient, opts.AIBudget, suspicious, elementBySeq)
	}

	return report
}

// zoomIn confirms the text at a section's start element reads like a
// standalone section start: a numeric anchor present, not a mid-sentence
// continuation. Mid-sentence starts yield a warning, never an error.
func zoomIn(b model.SectionBoundary, bySeq map[int]model.ElementCore, window int) string {
	start, ok := bySeq[b.StartSeq]
	if !ok {
		return fmt.Sprintf("section %s: start element seq %d not found", b.SectionID, b.StartSeq)
	}
	trimmed := strings.TrimSpace(start.Text)
	if _, err := strconv.Atoi(trimmed); err == nil {
		return ""
	}
	// Not a bare numeric anchor on its own line: check the small window
	// around it for one, otherwise flag as a possible mid-sentence start.
	for seq := b.StartSeq - window; seq <= b.StartSeq+window; seq++ {
		if e, ok := bySeq[seq]; ok {
			if _, err := strconv.Atoi(strings.TrimSpace(e.Text)); err == nil {
				return ""
			}
		}
	}
	return fmt.Sprintf("section %s: start text %q has no nearby numeric anchor", b.SectionID, trimmed)
}

// zoomOut samples the transition between two adjacent sections and warns
// if the first section's text appears to run past its recorded end (the
// next section's first element reads like a continuation fragment rather
// than a new start).
func zoomOut(first, second model.SectionBoundary, bySeq map[int]model.ElementCore) string {
	next, ok := bySeq[second.StartSeq]
	if !ok {
		return ""
	}
	trimmed := strings.TrimSpace(next.Text)
	if trimmed == "" {
		return ""
	}
	firstRune := []rune(trimmed)[0]
	if strings.ContainsRune("abcdefghijklmnopqrstuvwxyz,;:", firstRune) {
		return fmt.Sprintf("sections %s/%s: transition text %q reads like mid-sentence continuation",
			first.SectionID, second.SectionID, trimmed)
	}
	return ""
}

func duplicatesAndMissing(boundaries []model.SectionBoundary, opts VerifyOptions) (duplicates, missing []string) {
	seen := make(map[string]int, len(boundaries))
	for _, b := range boundaries {
		seen[b.SectionID]++
	}
	ids := make([]string, 0, len(seen))
	for id, count := range seen {
		ids = append(ids, id)
		if count > 1 {
			duplicates = append(duplicates, id)
		}
	}
	sort.Strings(duplicates)

	maxID := opts.ExpectedMax
	if maxID == 0 {
		for _, id := range ids {
			if n, err := strconv.Atoi(id); err == nil && n > maxID {
				maxID = n
			}
		}
	}
	for n := 1; n <= maxID; n++ {
		id := strconv.Itoa(n)
		if opts.Allowlist != nil && opts.Allowlist[id] {
			continue
		}
		if seen[id] == 0 {
			missing = append(missing, id)
		}
	}
	return duplicates, missing
}

const spotCheckSchema = `{"type": "object", "required": ["note"], "properties": {"note": {"type": "string"}}}`

// spotCheck issues one bounded AI call per suspicious boundary and returns
// its annotation, stopping early once the budget is exhausted.
func spotCheck(ctx context.Context, client llm.Client, budget *llm.Budget, suspicious []model.SectionBoundary, bySeq map[int]model.ElementCore) []string {
	var annotations []string
	for _, b := range suspicious {
		if err := budget.Reserve(); err != nil {
			break
		}
		start := bySeq[b.StartSeq]
		req := llm.Request{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: "Look at this possible section boundary and note " +
					"anything suspicious in one sentence. Do not propose a replacement boundary."},
				{Role: llm.RoleUser, Content: fmt.Sprintf("section %s starts at: %q", b.SectionID, start.Text)},
			},
			ResponseSchema: spotCheckSchema,
		}
		resp, err := client.Call(ctx, req)
		if err != nil {
			continue
		}
		annotations = append(annotations, fmt.Sprintf("section %s: %s", b.SectionID, resp.Content))
	}
	return annotations
}
