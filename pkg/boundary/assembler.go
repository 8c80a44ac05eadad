// Package boundary implements the Boundary Assembler and Boundary Verifier
// (spec.md §4.A, §4.V): deterministic span computation in document order,
// plus deterministic and optionally AI-assisted verification of the
// resulting spans. Both stages share a package because they operate on the
// same SectionBoundary records and the verifier never mutates what the
// assembler produced.
package boundary

import (
	"fmt"
	"sort"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// Assemble computes deterministic spans for every game section: sections
// are ordered by start_seq (document order), each section's end_seq is the
// next section's start_seq minus one (or the maximum element seq for the
// final section), and start/end seq are mapped back to concrete element
// ids. Ordering violations — any pair where end_seq_k >= start_seq_{k+1} —
// are detected and recorded, never silently repaired, per spec.md §4.A
// step 3.
//
// The returned boundaries are sorted by numeric section_id for consumer
// convenience; reading order remains recoverable from start_seq.
func Assemble(sections []model.GameSection, elements []model.ElementCore) ([]model.SectionBoundary, []model.OrderingConflict) {
	ordered := make([]model.GameSection, len(sections))
	copy(ordered, sections)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].StartSeq < ordered[j].StartSeq })

	elementBySeq := make(map[int]string, len(elements))
	maxSeq := 0
	for _, e := range elements {
		elementBySeq[e.Seq] = e.ID
		if e.Seq > maxSeq {
			maxSeq = e.Seq
		}
	}

	boundaries := make([]model.SectionBoundary, 0, len(ordered))
	var conflicts []model.OrderingConflict

	for i, s := range ordered {
		endSeq := maxSeq
		if i+1 < len(ordered) {
			endSeq = ordered[i+1].StartSeq - 1
		}

		source := model.SourceUncertain
		if s.Status == model.StatusCertain {
			source = model.SourceCertain
		}

		boundaries = append(boundaries, model.SectionBoundary{
			SectionID:      fmt.Sprintf("%d", s.SectionID),
			StartElementID: elementBySeq[s.StartSeq],
			EndElementID:   elementBySeq[endSeq],
			StartSeq:       s.StartSeq,
			EndSeq:         endSeq,
			Source:         source,
		})

		// endSeq is derived as next.start_seq-1 so it can never itself equal
		// or exceed next.start_seq; the one way two spans can still collide
		// is duplicate start_seq values reaching this function directly
		// (e.g. a caller bypassing the structurer's own invariant check).
		if i+1 < len(ordered) && ordered[i+1].StartSeq <= s.StartSeq {
			conflicts = append(conflicts, model.OrderingConflict{
				FirstSectionID:  fmt.Sprintf("%d", s.SectionID),
				SecondSectionID: fmt.Sprintf("%d", ordered[i+1].SectionID),
				FirstEndSeq:     endSeq,
				SecondStartSeq:  ordered[i+1].StartSeq,
			})
		}
	}

	sort.Slice(boundaries, func(i, j int) bool {
		return numericID(boundaries[i].SectionID) < numericID(boundaries[j].SectionID)
	})

	return boundaries, conflicts
}

func numericID(s string) int {
	var n int
	fmt.Sscanf(s, "%d", &n)
	return n
}
