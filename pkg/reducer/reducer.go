// Package reducer implements the IR Reducer (spec.md §4.R): collapsing
// vendor-native OCR elements into the minimal ElementCore stream every later
// stage consumes.
package reducer

import (
	"strings"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// kindMap normalizes vendor-native element type strings to the four
// ElementCore kinds. Anything absent from this map falls back to KindText.
var kindMap = map[string]model.ElementKind{
	"text":      model.KindText,
	"paragraph": model.KindText,
	"line":      model.KindText,
	"heading":   model.KindText,
	"image":     model.KindImage,
	"figure":    model.KindImage,
	"table":     model.KindTable,
}

func normalizeKind(vendorKind string) model.ElementKind {
	if k, ok := kindMap[strings.ToLower(vendorKind)]; ok {
		return k
	}
	return model.KindText
}

// normalizeText performs the only content rewriting the reducer is allowed:
// CR→LF normalization and outer whitespace trimming. No other rewriting.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

// Reduce maps raw OCR elements to ElementCore records, filtering any whose
// trimmed text is empty. The original seq is preserved on survivors, so
// gaps in the output record filtered positions rather than being
// renumbered — testable property #1 in spec.md §8.
func Reduce(raw []model.RawElement) []model.ElementCore {
	out := make([]model.ElementCore, 0, len(raw))
	for _, r := range raw {
		text := normalizeText(r.Text)
		if text == "" {
			continue
		}
		out = append(out, model.ElementCore{
			ID:     r.ID,
			Seq:    r.Seq,
			Page:   r.Page,
			Kind:   normalizeKind(r.Kind),
			Text:   text,
			Layout: r.Layout,
		})
	}
	return out
}
