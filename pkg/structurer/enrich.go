package structurer

import (
	"strings"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// enrichText fills each game section's Text by slicing elements_core on
// [start_seq, next.start_seq) in document order — spec.md §4.G step 4,
// "the key 'look at the actual content' verification input". The final
// section runs to the end of the element stream.
func enrichText(sections []model.GameSection, elements []model.ElementCore) {
	for i := range sections {
		start := sections[i].StartSeq
		end := -1
		if i+1 < len(sections) {
			end = sections[i+1].StartSeq
		}
		var sb strings.Builder
		for _, e := range elements {
			if e.Seq < start {
				continue
			}
			if end >= 0 && e.Seq >= end {
				break
			}
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(e.Text)
		}
		sections[i].Text = sb.String()
	}
}
