// Package extractor implements the Section Extractor (spec.md §4.X):
// evidence-only, deterministic event extraction from a section's raw HTML,
// run as seven fixed-order passes over the same text.
package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// Extract slices nothing itself — callers pass the already-sliced per-
// section raw text and HTML from the boundary stage — and runs every
// deterministic extractor in the fixed order spec.md §4.X prescribes, each
// over the full section HTML/text. Every emitted event is grounded in a
// concrete snippet of rawText; no extractor invents content absent
// from it.
func Extract(boundary model.SectionBoundary, rawText, rawHTML string, elementIDs []string, pageStart, pageEnd int) (model.EnrichedPortion, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return model.EnrichedPortion{}, fmt.Errorf("extractor: failed to parse section %s HTML: %w", boundary.SectionID, err)
	}

	portion := model.EnrichedPortion{
		SectionID:  boundary.SectionID,
		RawText:    rawText,
		RawHTML:    rawHTML,
		ElementIDs: elementIDs,
		PageStart:  pageStart,
		PageEnd:    pageEnd,
	}

	// 1. choice extraction
	portion.Choices = extractChoices(doc, rawText)
	// 2. stat modifications
	portion.StatModifications = extractStatChanges(rawText)
	// 3. stat checks / test_luck
	statChecks, luckTests := extractStatAndLuckChecks(rawText)
	portion.StatModifications = append(portion.StatModifications, statChecks...)
	portion.LuckTest = luckTests
	// 4. item events
	itemEvents := extractItemEvents(rawText)
	// 5. state checks
	portion.StateChecks = extractStateChecks(rawText)
	// item_check vs plain item/state routing happens in sequence ordering
	// (spec.md §4.S); here we only surface the raw item events detected.
	portion.ItemChecks = itemEvents
	// 6. combat blocks
	portion.Combat = extractCombat(rawText)
	// 7. terminal outcomes
	portion.TerminalOutcomes = extractTerminalOutcomes(rawText)

	return portion, nil
}
