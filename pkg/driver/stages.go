package driver

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/copperdogma/gamebook-pipeline/pkg/boundary"
	"github.com/copperdogma/gamebook-pipeline/pkg/builder"
	"github.com/copperdogma/gamebook-pipeline/pkg/escalate"
	"github.com/copperdogma/gamebook-pipeline/pkg/extractor"
	"github.com/copperdogma/gamebook-pipeline/pkg/forensics"
	"github.com/copperdogma/gamebook-pipeline/pkg/header"
	"github.com/copperdogma/gamebook-pipeline/pkg/model"
	"github.com/copperdogma/gamebook-pipeline/pkg/reducer"
	"github.com/copperdogma/gamebook-pipeline/pkg/sequence"
	"github.com/copperdogma/gamebook-pipeline/pkg/structurer"
	"github.com/copperdogma/gamebook-pipeline/pkg/validate"
)

// stageFunc runs one stage given its resolved input paths (stage.Params
// already expanded against env) and the run's shared context, and returns
// the output artifacts it produced, keyed by the artifact name other
// stages' params reference it by (e.g. "elements_core").
type stageFunc func(ctx context.Context, rc *RunContext, params map[string]string, dir string) (map[string]string, error)

// stageRegistry maps a recipe stage's module_id to its implementation. Every
// module named in spec.md §2's component table has an entry here except D
// (the Driver itself), I (ambient, not a gated stage) and E (the escalation
// loop, which runs inside runSectionExtractor).
var stageRegistry = map[string]stageFunc{
	"ir_reducer":         runReducer,
	"header_classifier":  runHeaderClassifier,
	"global_structurer":  runGlobalStructurer,
	"boundary_assembler": runBoundaryAssembler,
	"boundary_verifier":  runBoundaryVerifier,
	"section_extractor":  runSectionExtractor,
	"sequence_ordering":  runSequenceOrdering,
	"gamebook_builder":   runGamebookBuilder,
	"node_validator":     runNodeValidator,
	"forensics_validator": runForensicsValidator,
}

func runReducer(_ context.Context, rc *RunContext, params map[string]string, dir string) (map[string]string, error) {
	rawPath := params["raw_elements"]
	if rawPath == "" {
		rawPath = rc.InputPath
	}
	raw, err := readJSONL[model.RawElement](rawPath)
	if err != nil {
		return nil, err
	}
	elements := reducer.Reduce(raw)
	stamp(toPtrs(elements), "ir_reducer", rc.RunID)

	out := dir + "/elements_core.jsonl"
	if err := writeJSONL(out, elements); err != nil {
		return nil, err
	}
	return map[string]string{"elements_core": out}, nil
}

func runHeaderClassifier(ctx context.Context, rc *RunContext, params map[string]string, dir string) (map[string]string, error) {
	elements, err := readJSONL[model.ElementCore](params["elements"])
	if err != nil {
		return nil, err
	}

	opts := header.Options{NMax: rc.Recipe.ExpectedMax(), Budget: rc.Budget}
	candidates, err := header.Classify(ctx, rc.LLM, elements, opts)
	if err != nil {
		return nil, fmt.Errorf("header_classifier: %w", err)
	}
	stamp(toPtrs(candidates), "header_classifier", rc.RunID)

	out := dir + "/header_candidates.jsonl"
	if err := writeJSONL(out, candidates); err != nil {
		return nil, err
	}
	return map[string]string{"header_candidates": out}, nil
}

func runGlobalStructurer(ctx context.Context, rc *RunContext, params map[string]string, dir string) (map[string]string, error) {
	candidates, err := readJSONL[model.HeaderCandidate](params["candidates"])
	if err != nil {
		return nil, err
	}
	elements, err := rc.elementsCore()
	if err != nil {
		return nil, err
	}

	result, err := structurer.Structure(ctx, rc.LLM, candidates, elements)
	if err != nil {
		return nil, fmt.Errorf("global_structurer: %w", err)
	}
	stamp([]*model.SectionsStructured{&result.Structured}, "global_structurer", rc.RunID)

	out := dir + "/sections_structured.json"
	if err := writeJSON(out, result.Structured); err != nil {
		return nil, err
	}
	return map[string]string{"sections_structured": out}, nil
}

func runBoundaryAssembler(_ context.Context, rc *RunContext, params map[string]string, dir string) (map[string]string, error) {
	var structured model.SectionsStructured
	if err := readJSON(params["structured"], &structured); err != nil {
		return nil, err
	}
	elements, err := rc.elementsCore()
	if err != nil {
		return nil, err
	}

	boundaries, conflicts := boundary.Assemble(structured.GameSections, elements)
	stamp(toPtrs(boundaries), "boundary_assembler", rc.RunID)
	rc.conflicts = conflicts

	boundariesPath := dir + "/section_boundaries.jsonl"
	if err := writeJSONL(boundariesPath, boundaries); err != nil {
		return nil, err
	}
	conflictsPath := dir + "/ordering_conflicts.jsonl"
	if err := writeJSONL(conflictsPath, conflicts); err != nil {
		return nil, err
	}
	return map[string]string{"section_boundaries": boundariesPath, "ordering_conflicts": conflictsPath}, nil
}

func runBoundaryVerifier(ctx context.Context, rc *RunContext, params map[string]string, dir string) (map[string]string, error) {
	boundaries, err := readJSONL[model.SectionBoundary](params["boundaries"])
	if err != nil {
		return nil, err
	}
	elements, err := rc.elementsCore()
	if err != nil {
		return nil, err
	}
	conflicts := rc.conflicts

	opts := boundary.VerifyOptions{
		ExpectedMax: rc.Recipe.ExpectedMax(),
		Allowlist:   rc.Known.SectionIDs,
		AIBudget:    rc.Budget,
		AIClient:    rc.LLM,
	}
	verification := boundary.Verify(ctx, boundaries, elements, conflicts, opts)
	stamp([]*model.BoundaryVerification{&verification}, "boundary_verifier", rc.RunID)
	rc.verification = verification

	out := dir + "/boundary_verification.json"
	if err := writeJSON(out, verification); err != nil {
		return nil, err
	}
	return map[string]string{"boundary_verification": out}, nil
}

func runSectionExtractor(ctx context.Context, rc *RunContext, params map[string]string, dir string) (map[string]string, error) {
	boundaries, err := readJSONL[model.SectionBoundary](params["boundaries"])
	if err != nil {
		return nil, err
	}
	elements, err := rc.elementsCore()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.ElementCore, len(elements))
	for _, e := range elements {
		byID[e.ID] = e
	}

	portions := make([]model.EnrichedPortion, 0, len(boundaries))
	var escalateSections []escalate.Section
	for _, b := range boundaries {
		text, html, ids, pageStart, pageEnd := sliceSection(elements, b)
		portion, err := extractor.Extract(b, text, html, ids, pageStart, pageEnd)
		if err != nil {
			return nil, fmt.Errorf("section_extractor: section %s: %w", b.SectionID, err)
		}
		portions = append(portions, portion)
		escalateSections = append(escalateSections, escalate.Section{
			ID: b.SectionID, RawText: text, RawHTML: html, Choices: portion.Choices,
		})
	}

	if rc.LLM != nil {
		outcomes := escalate.Run(ctx, rc.LLM, rc.Budget, escalateSections)
		byOutcomeID := make(map[string]escalate.Outcome, len(outcomes))
		for _, o := range outcomes {
			byOutcomeID[o.SectionID] = o
		}
		for i := range portions {
			if o, ok := byOutcomeID[portions[i].SectionID]; ok && len(o.AddedChoices) > 0 {
				portions[i].Choices = append(portions[i].Choices, o.AddedChoices...)
			}
		}
	}

	stamp(toPtrs(portions), "section_extractor", rc.RunID)
	out := dir + "/portions_enriched.jsonl"
	if err := writeJSONL(out, portions); err != nil {
		return nil, err
	}
	return map[string]string{"portions_enriched": out}, nil
}

func runSequenceOrdering(_ context.Context, rc *RunContext, params map[string]string, dir string) (map[string]string, error) {
	portions, err := readJSONL[model.EnrichedPortion](params["portions"])
	if err != nil {
		return nil, err
	}

	// sequence.Build returns each section's ordered []model.Event derived
	// from the portion's unordered extractor arrays; it is published
	// alongside portions_enriched.jsonl (which keeps its extractor shape
	// unchanged) as a parallel, same-index sequences.jsonl for the builder
	// stage to consume.
	sequences := make([][]model.Event, len(portions))
	for i, p := range portions {
		seq := sequence.Build(p)
		if p.SectionID == model.BackgroundSectionID {
			seq = sequence.EnsureBackgroundLink(seq)
		}
		sequences[i] = seq
	}

	stamp(toPtrs(portions), "sequence_ordering", rc.RunID)
	out := dir + "/portions_enriched.jsonl"
	if err := writeJSONL(out, portions); err != nil {
		return nil, err
	}
	seqOut := dir + "/sequences.jsonl"
	if err := writeJSONL(seqOut, sequences); err != nil {
		return nil, err
	}
	return map[string]string{"portions_enriched": out, "sequences": seqOut}, nil
}

func runGamebookBuilder(_ context.Context, rc *RunContext, params map[string]string, dir string) (map[string]string, error) {
	portions, err := readJSONL[model.EnrichedPortion](params["portions"])
	if err != nil {
		return nil, err
	}
	sequencesPath := rc.sibling(params["portions"], "sequences.jsonl")
	sequences, err := readJSONL[[]model.Event](sequencesPath)
	if err != nil {
		return nil, err
	}

	sections := make([]builder.SectionInput, len(portions))
	for i, p := range portions {
		seq := []model.Event{}
		if i < len(sequences) {
			seq = sequences[i]
		}
		sections[i] = builder.SectionInput{
			SectionID: p.SectionID,
			Type:      model.SectionTypeGameplay,
			Text:      p.RawText,
			Choices:   p.Choices,
			Sequence:  seq,
		}
	}

	gb := builder.Build(sections, builder.Options{
		Title: rc.Recipe.Title, Author: rc.Recipe.Author,
		NMax: rc.Recipe.ExpectedMax(), Known: rc.Known,
	})
	rc.gamebook = gb

	out := rc.outputDir + "/gamebook.json"
	if err := writeJSON(out, gb); err != nil {
		return nil, err
	}
	return map[string]string{"gamebook": out}, nil
}

func runNodeValidator(_ context.Context, rc *RunContext, params map[string]string, dir string) (map[string]string, error) {
	var gb model.Gamebook
	if err := readJSON(params["gamebook"], &gb); err != nil {
		return nil, err
	}
	result, err := validate.Validate(gb, rc.Known)
	if err != nil {
		return nil, fmt.Errorf("node_validator: %w", err)
	}
	rc.validateResult = result

	out := dir + "/validate_result.json"
	if err := writeJSON(out, result); err != nil {
		return nil, err
	}
	return map[string]string{"validate_result": out}, nil
}

var unreachableRe = regexp.MustCompile(`unreachable gameplay section "([^"]+)"`)

func runForensicsValidator(_ context.Context, rc *RunContext, params map[string]string, dir string) (map[string]string, error) {
	var gb model.Gamebook
	if err := readJSON(params["gamebook"], &gb); err != nil {
		return nil, err
	}

	var unreachable []string
	for _, w := range rc.validateResult.Warnings {
		if m := unreachableRe.FindStringSubmatch(w); m != nil {
			unreachable = append(unreachable, m[1])
		}
	}

	report := forensics.BuildReport(gb, rc.conflicts, unreachable)
	rc.forensicsReport = report

	out := dir + "/forensics_report.json"
	if err := writeJSON(out, report); err != nil {
		return nil, err
	}
	return map[string]string{"forensics_report": out}, nil
}

// sliceSection joins the element text window [b.StartSeq, b.EndSeq] into a
// raw-text string and a minimal synthetic HTML document (one <p> per
// element) for the extractor's goquery pass — there is no richer HTML
// source once PDF rasterization is out of scope (see SPEC_FULL.md
// Non-goals), so element text is the only evidence available.
func sliceSection(elements []model.ElementCore, b model.SectionBoundary) (text, html string, ids []string, pageStart, pageEnd int) {
	var textParts []string
	var htmlParts []string
	pageStart, pageEnd = -1, -1
	for _, e := range elements {
		if e.Seq < b.StartSeq || e.Seq > b.EndSeq {
			continue
		}
		textParts = append(textParts, e.Text)
		htmlParts = append(htmlParts, "<p>"+e.Text+"</p>")
		ids = append(ids, e.ID)
		if pageStart == -1 || e.Page < pageStart {
			pageStart = e.Page
		}
		if e.Page > pageEnd {
			pageEnd = e.Page
		}
	}
	if pageStart == -1 {
		pageStart, pageEnd = 0, 0
	}
	return strings.Join(textParts, " "), strings.Join(htmlParts, ""), ids, pageStart, pageEnd
}

// toPtrs returns a slice of pointers into s, letting callers stamp records
// in place without the caller awkwardly taking &s[i] at every call site.
func toPtrs[T any](s []T) []*T {
	out := make([]*T, len(s))
	for i := range s {
		out[i] = &s[i]
	}
	return out
}

// elementsCore re-reads the reduce stage's output, the one artifact every
// later stage that needs full-document element context pulls directly by
// stage id rather than through the recipe's declared params (which only
// name each stage's primary upstream artifact).
func (rc *RunContext) elementsCore() ([]model.ElementCore, error) {
	path, ok := rc.artifacts["reduce"]["elements_core"]
	if !ok {
		return nil, fmt.Errorf("driver: elements_core not yet produced")
	}
	return readJSONL[model.ElementCore](path)
}

// sibling returns a path in the same directory as ref but with a different
// filename.
func (rc *RunContext) sibling(ref, filename string) string {
	idx := strings.LastIndex(ref, "/")
	if idx < 0 {
		return filename
	}
	return ref[:idx+1] + filename
}
