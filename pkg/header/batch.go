package header

import "github.com/copperdogma/gamebook-pipeline/pkg/model"

// batch is a contiguous (possibly overlapping) slice of elements submitted
// to one AI call.
type batch struct {
	elements []model.ElementCore
}

// partition splits elements into batches of size elements, overlapping the
// last overlap elements of each batch with the first of the next — spec.md
// §4.H step 1 ("overlap at batch seams allowed") exists so a header sitting
// exactly on a seam gets classified by two independent calls rather than
// falling into whichever batch happened to cut it off.
func partition(elements []model.ElementCore, size, overlap int) []batch {
	if size <= 0 {
		size = defaultBatchSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	var out []batch
	step := size - overlap
	for start := 0; start < len(elements); start += step {
		end := start + size
		if end > len(elements) {
			end = len(elements)
		}
		out = append(out, batch{elements: elements[start:end]})
		if end == len(elements) {
			break
		}
	}
	return out
}

// reversed returns a copy of elements in reverse order, for the backward
// redundancy pass.
func reversed(elements []model.ElementCore) []model.ElementCore {
	out := make([]model.ElementCore, len(elements))
	for i, e := range elements {
		out[len(elements)-1-i] = e
	}
	return out
}
