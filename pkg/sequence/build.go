package sequence

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

// survivalNoOp matches the "If you are still alive ..." stat_change
// preamble, which is dropped — survival is global, per spec.md §4.S.
var survivalNoOp = regexp.MustCompile(`(?i)if you are still alive`)

var takePhrase = regexp.MustCompile(`(?i)take the ([a-z][a-z '-]*)`)

type offsetEvent struct {
	offset int
	event  model.Event
}

// Build turns one section's extracted-but-unordered portion into its final
// ordered sequence array, per spec.md §4.S.
func Build(portion model.EnrichedPortion) []model.Event {
	var oes []offsetEvent

	choices := buildChoiceEvents(portion)
	for _, c := range choices {
		oes = append(oes, c)
	}

	for _, e := range dedupeStatChanges(filterSurvivalNoOp(portion.StatModifications, portion.RawText)) {
		if e.Kind == model.EventStatCheck {
			e.Pass, e.Fail = resolveBranches(portion.RawText, e.Offset, ifYouPass, ifYouFail)
		}
		oes = append(oes, offsetEvent{e.Offset, e})
	}

	for _, e := range portion.LuckTest {
		e.Lucky, e.Unlucky = resolveBranches(portion.RawText, e.Offset, ifYouLucky, ifYouUnlucky)
		oes = append(oes, offsetEvent{e.Offset, e})
	}

	takenNames := attachedItemNames(choices, portion.RawText)
	for _, e := range portion.ItemChecks {
		if e.Action == model.ItemAdd && takenNames[e.Name] {
			continue // moved onto the matching choice's Effects instead
		}
		oes = append(oes, offsetEvent{e.Offset, e})
	}

	oes = append(oes, toOffsetEvents(portion.StateChecks)...)
	oes = append(oes, toOffsetEvents(extractCompoundItemChecks(portion.RawText))...)
	oes = append(oes, toOffsetEvents(portion.TerminalOutcomes)...)

	for _, block := range portion.Combat {
		ev := model.Event{
			Kind:     model.EventCombat,
			Enemies:  block.Enemies,
			Outcomes: resolveCombatOutcomes(portion.RawText, block.Offset),
			Offset:   block.Offset,
		}
		oes = append(oes, offsetEvent{block.Offset, ev})
	}

	sort.SliceStable(oes, func(i, j int) bool { return oes[i].offset < oes[j].offset })

	out := make([]model.Event, 0, len(oes))
	for _, oe := range oes {
		out = append(out, oe.event)
	}
	return out
}

func toOffsetEvents(events []model.Event) []offsetEvent {
	out := make([]offsetEvent, 0, len(events))
	for _, e := range events {
		out = append(out, offsetEvent{e.Offset, e})
	}
	return out
}

// buildChoiceEvents converts raw extracted choices into choice events,
// attaching an item-add effect when the choice's own anchor text reads
// "take the X" — spec.md §4.S's optional-take rewrite.
func buildChoiceEvents(portion model.EnrichedPortion) []offsetEvent {
	var out []offsetEvent
	for _, c := range portion.Choices {
		ep := normalizeTarget(c.Target)
		if ep.IsZero() {
			continue
		}
		ev := model.Event{
			Kind:          model.EventChoice,
			ChoiceText:    c.AnchorText,
			TargetSection: ep.TargetSection,
			Terminal:      ep.Terminal,
			Offset:        c.Offset,
		}
		if m := takePhrase.FindStringSubmatch(c.AnchorText); m != nil {
			ev.Effects = append(ev.Effects, model.ItemEvent{
				Kind:   model.EventItem,
				Action: model.ItemAdd,
				Name:   strings.TrimSpace(m[1]),
			})
		}
		out = append(out, offsetEvent{c.Offset, ev})
	}
	return out
}

// attachedItemNames reports which item names were rewritten onto a
// choice's Effects, so the standalone item event for the same name is
// dropped rather than duplicated.
func attachedItemNames(choices []offsetEvent, _ string) map[string]bool {
	out := make(map[string]bool)
	for _, c := range choices {
		for _, eff := range c.event.Effects {
			out[eff.Name] = true
		}
	}
	return out
}

// filterSurvivalNoOp drops stat_change events whose triggering text is the
// "If you are still alive ..." preamble.
func filterSurvivalNoOp(events []model.Event, rawText string) []model.Event {
	var out []model.Event
	for _, e := range events {
		if e.Kind == model.EventStatChange {
			start := e.Offset - 40
			if start < 0 {
				start = 0
			}
			if survivalNoOp.MatchString(rawText[start:e.Offset]) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// dedupeStatChanges drops duplicate stat_change events sharing stat,
// amount, and offset — spec.md §4.S's dedup rule. Idempotent: running it
// twice on its own output is a no-op.
func dedupeStatChanges(events []model.Event) []model.Event {
	seen := make(map[string]bool, len(events))
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e.Kind != model.EventStatChange {
			out = append(out, e)
			continue
		}
		amount := ""
		if e.Amount != nil {
			amount = string(e.Amount.Dice)
			if e.Amount.Literal != nil {
				amount = fmt.Sprint(*e.Amount.Literal)
			}
		}
		key := fmt.Sprintf("%s:%s:%d", e.Stat, amount, e.Offset)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

var winPhrase = regexp.MustCompile(`(?i)if you win`)
var losePhrase = regexp.MustCompile(`(?i)if you lose`)
var escapePhrase = regexp.MustCompile(`(?i)if you escape`)

// resolveCombatOutcomes finds win/lose/escape branch targets following a
// combat block, per spec.md §4.S: "Combat outcomes.{win|lose|escape}
// choices are placed after the combat event" — here, folded directly into
// the combat event rather than emitted as separate choice events.
func resolveCombatOutcomes(text string, from int) *model.CombatOutcomes {
	win := resolveSingleBranch(text, from, winPhrase)
	lose := resolveSingleBranch(text, from, losePhrase)
	escape := resolveSingleBranch(text, from, escapePhrase)

	if win == nil && lose == nil && escape == nil {
		return nil
	}
	return &model.CombatOutcomes{Win: win, Lose: lose, Escape: escape}
}
