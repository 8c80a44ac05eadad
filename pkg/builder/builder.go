// Package builder implements the Gamebook Builder (spec.md §4.B): assembling
// the final engine-ready gamebook.json from enriched portions and their
// derived sequence arrays.
package builder

import (
	"sort"
	"strconv"
	"strings"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
	"github.com/copperdogma/gamebook-pipeline/pkg/version"
)

// SectionInput is one section's builder-ready data: extractor text plus the
// ordering stage's final sequence array.
type SectionInput struct {
	SectionID string
	Type      model.SectionType
	Text      string
	Choices   []model.Choice
	Sequence  []model.Event
}

// Options configures the final metadata stamp.
type Options struct {
	Title   string
	Author  string
	NMax    int
	Known   model.KnownMissing
}

// Build assembles the final Gamebook document, per spec.md §4.B: copies
// text/clean_text/sequence, strips legacy fields (structurally absent from
// model.Section), stamps metadata, and synthesizes allowlisted stub
// sections for ids physically missing from the input.
func Build(sections []SectionInput, opts Options) model.Gamebook {
	out := make([]model.Section, 0, len(sections))
	present := make(map[int]bool, len(sections))

	for _, in := range sections {
		s := model.Section{
			ID:                in.SectionID,
			Type:              in.Type,
			IsGameplaySection: in.Type == model.SectionTypeGameplay,
			Text:              in.Text,
			CleanText:         cleanText(in.Text),
			Choices:           in.Choices,
			Sequence:          in.Sequence,
		}
		if n, err := strconv.Atoi(in.SectionID); err == nil {
			num := n
			s.SectionNum = &num
			present[n] = true
		}
		out = append(out, s)
	}

	for n := 1; n <= opts.NMax; n++ {
		id := strconv.Itoa(n)
		if present[n] || !opts.Known.Contains(id) {
			continue
		}
		num := n
		out = append(out, model.Section{
			ID:                id,
			SectionNum:        &num,
			Type:              model.SectionTypeGameplay,
			IsGameplaySection: true,
			Sequence:          []model.Event{},
			Provenance:        &model.Provenance{Stub: true},
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return sectionOrderKey(out[i]) < sectionOrderKey(out[j]) })

	return model.Gamebook{
		Metadata: model.Metadata{
			Title:            opts.Title,
			Author:           opts.Author,
			StartSection:     "1",
			ValidatorVersion: version.ValidatorVersion,
			ExpectedRange:    [2]int{1, opts.NMax},
		},
		Sections: out,
	}
}

// sectionOrderKey places the background section first, then gameplay
// sections in ascending numeric order, then any remaining non-numeric
// sections by id.
func sectionOrderKey(s model.Section) int {
	if s.ID == model.BackgroundSectionID {
		return -1
	}
	if s.SectionNum != nil {
		return *s.SectionNum
	}
	return 1 << 30
}

// cleanText collapses all whitespace runs to single spaces.
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
