package structurer

import (
	"errors"
	"sort"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// ErrInvalidStructure is returned when a structured response violates the
// strict-ordering or uniqueness invariants after the one permitted retry.
var ErrInvalidStructure = errors.New("structurer: output violates ordering or uniqueness invariants")

// enforceConservativeRule applies spec.md §4.G's "earlier wins" rule: game
// sections are sorted by start_seq, and whenever a later section claims a
// section_id already claimed by an earlier one, the later one is dropped
// (its number was almost certainly a page-running-footer restating the
// prior section, not a new one) and flagged in the returned list.
func enforceConservativeRule(sections []model.GameSection) (kept []model.GameSection, dropped []model.GameSection) {
	sort.Slice(sections, func(i, j int) bool { return sections[i].StartSeq < sections[j].StartSeq })

	seen := make(map[int]bool, len(sections))
	for _, s := range sections {
		if seen[s.SectionID] {
			dropped = append(dropped, s)
			continue
		}
		seen[s.SectionID] = true
		kept = append(kept, s)
	}
	return kept, dropped
}

// checkInvariants reports whether sections satisfy spec.md §3's
// SectionsStructured invariants: start_seq strictly increasing in document
// order, section_id values unique. Call after enforceConservativeRule so
// only a genuine ordering violation (not a duplicate id) can still fail.
func checkInvariants(sections []model.GameSection) error {
	seen := make(map[int]bool, len(sections))
	for i, s := range sections {
		if seen[s.SectionID] {
			return ErrInvalidStructure
		}
		seen[s.SectionID] = true
		if i > 0 && s.StartSeq <= sections[i-1].StartSeq {
			return ErrInvalidStructure
		}
	}
	return nil
}
