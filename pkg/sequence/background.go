package sequence

import "github.com/copperdogma/gamebook-pipeline/pkg/model"

// EnsureBackgroundLink applies spec.md §4.S's background-section rule: the
// background section always reaches section 1. Any extracted inventory or
// stat events are spurious for this synthetic section and are dropped;
// if the extracted sequence doesn't already contain a choice to section 1,
// one is appended.
func EnsureBackgroundLink(events []model.Event) []model.Event {
	var out []model.Event
	hasLinkToOne := false
	for _, e := range events {
		switch e.Kind {
		case model.EventItem, model.EventItemCheck, model.EventStatChange, model.EventStatCheck:
			continue
		}
		if e.Kind == model.EventChoice && e.TargetSection == "1" {
			hasLinkToOne = true
		}
		out = append(out, e)
	}
	if !hasLinkToOne {
		out = append(out, model.Event{Kind: model.EventChoice, TargetSection: "1"})
	}
	return out
}
