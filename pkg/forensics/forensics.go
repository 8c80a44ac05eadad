// Package forensics implements the Forensics Validator (spec.md §4.F): a
// richer, human-facing diagnostic report that never gates engine readiness.
package forensics

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// turnToRef matches an explicit textual reference to a section number,
// the same phrasing pkg/extractor and pkg/sequence recognize elsewhere.
var turnToRef = regexp.MustCompile(`(?i)(?:turn to|go to|proceed to)\s+(\d+)\b`)

// ChoiceCompleteness reports sections whose raw text references a section
// number that was never extracted as a choice.
type ChoiceCompleteness struct {
	FlaggedCount    int      `json:"flagged_count"`
	FlaggedSections []string `json:"flagged_sections,omitempty"`
}

// OrphanRecord is an unreachable gameplay section plus every section whose
// raw text contains an explicit "turn to <id>" reference to it.
type OrphanRecord struct {
	SectionID string   `json:"section_id"`
	Sources   []string `json:"sources,omitempty"`
}

// Report is the Forensics Validator's output, serialized to
// forensics_report.json.
type Report struct {
	StubCount                 int                 `json:"stub_count"`
	TextQualityWarnings       []string            `json:"text_quality_warnings,omitempty"`
	BoundaryOrderingConflicts []model.OrderingConflict `json:"boundary_ordering_conflicts,omitempty"`
	ChoiceCompleteness        ChoiceCompleteness  `json:"choice_completeness"`
	ChoiceTextAlignmentIssues []string            `json:"choice_text_alignment_issues,omitempty"`
	Orphans                   []OrphanRecord      `json:"orphans,omitempty"`
	OrphanedNoSourcesCount    int                 `json:"orphaned_no_sources_count"`
}

// BuildReport assembles the Forensics Validator's diagnostic report.
// unreachable is the set of gameplay section ids the Node/Portable
// Validator's reachability BFS found unreachable (spec.md §4.N), excluding
// any already allowlisted — trace_orphans_text runs only over those.
func BuildReport(gb model.Gamebook, conflicts []model.OrderingConflict, unreachable []string) Report {
	rawTextByID := make(map[string]string, len(gb.Sections))
	for _, s := range gb.Sections {
		rawTextByID[s.ID] = s.Text
	}

	var report Report
	report.BoundaryOrderingConflicts = conflicts

	for _, s := range gb.Sections {
		if s.Provenance != nil && s.Provenance.Stub {
			report.StubCount++
			continue
		}
		checkTextQuality(s, &report)
		checkChoiceCompleteness(s, &report)
		checkChoiceTextAlignment(s, &report)
	}
	report.ChoiceCompleteness.FlaggedCount = len(report.ChoiceCompleteness.FlaggedSections)

	for _, orphanID := range unreachable {
		sources := TraceOrphanText(orphanID, rawTextByID)
		report.Orphans = append(report.Orphans, OrphanRecord{SectionID: orphanID, Sources: sources})
		if len(sources) == 0 {
			report.OrphanedNoSourcesCount++
		}
	}

	sort.Strings(report.TextQualityWarnings)
	sort.Strings(report.ChoiceTextAlignmentIssues)
	return report
}

func checkTextQuality(s model.Section, report *Report) {
	const shortTextThreshold = 20
	if len(s.Text) < shortTextThreshold {
		report.TextQualityWarnings = append(report.TextQualityWarnings,
			fmt.Sprintf("section %q has suspiciously short text (%d chars)", s.ID, len(s.Text)))
	}
}

// checkChoiceCompleteness flags a section whose text references a section
// number by explicit phrase ("turn to N") that was never extracted as one
// of its choices — validate_choice_completeness, per spec.md §4.E step 2.
func checkChoiceCompleteness(s model.Section, report *Report) {
	if len(UnextractedReferences(s.Text, s.Choices)) > 0 {
		report.ChoiceCompleteness.FlaggedSections = append(report.ChoiceCompleteness.FlaggedSections, s.ID)
	}
}

// checkChoiceTextAlignment flags an extracted choice whose target number
// cannot be found anywhere in the section's own raw text — a sign the
// extractor's choice came from an unrelated source (href mismatch, stray
// anchor) rather than the section's own prose.
func checkChoiceTextAlignment(s model.Section, report *Report) {
	for _, target := range UnsupportedChoiceTargets(s.Text, s.Choices) {
		report.ChoiceTextAlignmentIssues = append(report.ChoiceTextAlignmentIssues,
			fmt.Sprintf("section %q: choice to %q has no matching text reference", s.ID, target))
	}
}

// UnextractedReferences returns every section number text explicitly
// references ("turn to N") that was never extracted as one of choices'
// targets — validate_choice_completeness, shared with pkg/escalate.
func UnextractedReferences(text string, choices []model.Choice) []string {
	extracted := make(map[string]bool, len(choices))
	for _, c := range choices {
		extracted[normalizeRef(c.Target)] = true
	}

	var missing []string
	seen := make(map[string]bool)
	for _, m := range turnToRef.FindAllStringSubmatch(text, -1) {
		ref := m[1]
		if extracted[ref] || seen[ref] {
			continue
		}
		seen[ref] = true
		missing = append(missing, ref)
	}
	sort.Strings(missing)
	return missing
}

// UnsupportedChoiceTargets returns every extracted choice's target that has
// no matching "turn to N" reference anywhere in text — validate_choice_
// text_alignment.
func UnsupportedChoiceTargets(text string, choices []model.Choice) []string {
	referenced := make(map[string]bool)
	for _, m := range turnToRef.FindAllStringSubmatch(text, -1) {
		referenced[m[1]] = true
	}

	var unsupported []string
	for _, c := range choices {
		target := normalizeRef(c.Target)
		if target == "" || referenced[target] {
			continue
		}
		unsupported = append(unsupported, c.Target)
	}
	return unsupported
}

// TraceOrphanText scans every section's raw text for an explicit
// "turn to <orphanID>" reference — trace_orphans_text, spec.md §4.E step 2.
func TraceOrphanText(orphanID string, rawTextByID map[string]string) []string {
	var sources []string
	for id, text := range rawTextByID {
		for _, m := range turnToRef.FindAllStringSubmatch(text, -1) {
			if m[1] == orphanID {
				sources = append(sources, id)
				break
			}
		}
	}
	sort.Strings(sources)
	return sources
}

var bareNumberRef = regexp.MustCompile(`^\d+$`)
var parentheticalRef = regexp.MustCompile(`^(\d+)\s*\(`)

// normalizeRef strips a trailing parenthetical from a raw choice target so
// it compares against turnToRef's bare-number captures.
func normalizeRef(raw string) string {
	if bareNumberRef.MatchString(raw) {
		return raw
	}
	if m := parentheticalRef.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}
