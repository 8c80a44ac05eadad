package validate

import (
	"fmt"
	"sort"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// Result is the Node/Portable Validator's logic-pass outcome (spec.md
// §4.N). Exit code 0 when Pass() holds (no schema or logic errors), 1
// otherwise.
type Result struct {
	SchemaErrors []string
	Errors       []string
	Warnings     []string
}

// Pass reports whether the gate condition holds: no schema or logic errors.
func (r Result) Pass() bool {
	return len(r.SchemaErrors) == 0 && len(r.Errors) == 0
}

// runLogic runs every check in spec.md §4.N's logic pass over an
// already-schema-valid gamebook.
func runLogic(gb model.Gamebook, known model.KnownMissing) Result {
	var res Result

	bySectionID := make(map[string]model.Section, len(gb.Sections))
	var dupes []string
	seen := make(map[string]bool, len(gb.Sections))
	for _, s := range gb.Sections {
		if seen[s.ID] {
			dupes = append(dupes, s.ID)
			continue
		}
		seen[s.ID] = true
		bySectionID[s.ID] = s
	}
	for _, id := range dupes {
		res.Errors = append(res.Errors, fmt.Sprintf("duplicate section id %q", id))
	}

	checkMissing(gb, bySectionID, known, &res)
	checkEmptyAndDeadEnd(gb.Sections, &res)
	checkTargetIntegrity(gb.Sections, bySectionID, &res)
	checkReachability(gb, bySectionID, known, &res)

	sort.Strings(res.Errors)
	sort.Strings(res.Warnings)
	return res
}

func checkMissing(gb model.Gamebook, bySectionID map[string]model.Section, known model.KnownMissing, res *Result) {
	lo, hi := gb.Metadata.ExpectedRange[0], gb.Metadata.ExpectedRange[1]
	for n := lo; n <= hi; n++ {
		id := fmt.Sprintf("%d", n)
		s, ok := bySectionID[id]
		if !ok {
			if !known.Contains(id) {
				res.Errors = append(res.Errors, fmt.Sprintf("missing section %q", id))
			}
			continue
		}
		if s.Provenance != nil && s.Provenance.Stub && !known.Contains(id) {
			res.Errors = append(res.Errors, fmt.Sprintf("missing section %q", id))
		}
	}
}

func checkEmptyAndDeadEnd(sections []model.Section, res *Result) {
	for _, s := range sections {
		stub := s.Provenance != nil && s.Provenance.Stub
		if !stub && s.Text == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("section %q has empty text", s.ID))
		}
		if s.IsGameplaySection && !hasOutgoingEdge(s) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("gameplay section %q has no outgoing edges", s.ID))
		}
	}
}

func hasOutgoingEdge(s model.Section) bool {
	for _, e := range s.Sequence {
		if len(endpoints(e)) > 0 {
			return true
		}
	}
	return false
}

// terminalAllowlist names the accepted terminal outcome strings.
var terminalAllowlist = map[string]bool{"death": true, "win": true, "timeout": true}

func checkTargetIntegrity(sections []model.Section, bySectionID map[string]model.Section, res *Result) {
	for _, s := range sections {
		for _, e := range s.Sequence {
			for _, ep := range endpoints(e) {
				validateEndpoint(s.ID, ep, bySectionID, res)
			}
		}
	}
}

func validateEndpoint(fromID string, ep model.Endpoint, bySectionID map[string]model.Section, res *Result) {
	if ep.Terminal != "" {
		if !terminalAllowlist[ep.Terminal] {
			res.Errors = append(res.Errors, fmt.Sprintf("section %q: unknown terminal %q", fromID, ep.Terminal))
		}
		return
	}
	if ep.TargetSection == "" {
		return
	}
	if _, ok := bySectionID[ep.TargetSection]; !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("section %q: broken link to %q", fromID, ep.TargetSection))
	}
}

// endpoints flattens every target endpoint an event can carry, including
// nested conditional.then/else branches, per spec.md §4.N's "reachable
// graph (including nested conditional.then/else, pass/fail, has/missing,
// combat outcomes)" rule.
func endpoints(e model.Event) []model.Endpoint {
	var out []model.Endpoint
	add := func(ep *model.Endpoint) {
		if ep != nil {
			out = append(out, *ep)
		}
	}

	if e.Kind == model.EventChoice && (e.TargetSection != "" || e.Terminal != "") {
		out = append(out, model.Endpoint{TargetSection: e.TargetSection, Terminal: e.Terminal})
	}
	add(e.Pass)
	add(e.Fail)
	add(e.Has)
	add(e.Missing)
	add(e.Lucky)
	add(e.Unlucky)
	if e.Outcomes != nil {
		add(e.Outcomes.Win)
		add(e.Outcomes.Lose)
		add(e.Outcomes.Escape)
	}
	for _, nested := range e.Then {
		out = append(out, endpoints(nested)...)
	}
	for _, nested := range e.Else {
		out = append(out, endpoints(nested)...)
	}
	return out
}

func checkReachability(gb model.Gamebook, bySectionID map[string]model.Section, known model.KnownMissing, res *Result) {
	start := gb.Metadata.StartSection
	if start == "" {
		start = "1"
	}
	visited := map[string]bool{}
	queue := []string{start}
	if _, ok := bySectionID[start]; ok {
		visited[start] = true
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		s, ok := bySectionID[id]
		if !ok {
			continue
		}
		for _, e := range s.Sequence {
			for _, ep := range endpoints(e) {
				if ep.TargetSection == "" || visited[ep.TargetSection] {
					continue
				}
				if _, ok := bySectionID[ep.TargetSection]; !ok {
					continue // already reported by checkTargetIntegrity
				}
				visited[ep.TargetSection] = true
				queue = append(queue, ep.TargetSection)
			}
		}
	}

	for _, s := range gb.Sections {
		if !s.IsGameplaySection || visited[s.ID] {
			continue
		}
		if known.Contains(s.ID) {
			continue
		}
		res.Warnings = append(res.Warnings, fmt.Sprintf("unreachable gameplay section %q", s.ID))
	}
}
