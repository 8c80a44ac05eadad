package sequence

import (
	"regexp"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

var nextTarget = regexp.MustCompile(`(?i)(?:turn to|go to|proceed to)\s+(\d+(?:\s*\([^)]*\))?)|death(?:\s*\([^)]*\))?`)

// findNextTarget scans text[from:] for the nearest recognizable branch
// target and normalizes it. Returns nil if nothing is found within the
// window, or if what was found doesn't normalize to a resolved endpoint.
func findNextTarget(text string, from, window int) *model.Endpoint {
	end := from + window
	if end > len(text) {
		end = len(text)
	}
	if from < 0 || from > len(text) {
		return nil
	}
	m := nextTarget.FindStringSubmatchIndex(text[from:end])
	if m == nil {
		return nil
	}
	// Group 1 is the numeric capture for "turn to|go to|proceed to N"; fall
	// back to the whole match for the bare "death" alternative.
	var raw string
	if m[2] != -1 {
		raw = text[from+m[2] : from+m[3]]
	} else {
		raw = text[from+m[0] : from+m[1]]
	}
	ep := normalizeTarget(raw)
	if ep.IsZero() {
		return nil
	}
	return &ep
}

var ifYouPass = regexp.MustCompile(`(?i)if you pass`)
var ifYouFail = regexp.MustCompile(`(?i)if you fail`)
var ifYouLucky = regexp.MustCompile(`(?i)if you are lucky`)
var ifYouUnlucky = regexp.MustCompile(`(?i)if you are unlucky`)

// resolveBranches finds the pass/fail (or lucky/unlucky) targets following
// a check's offset within a bounded window of source text. Either result is
// nil when unresolved.
func resolveBranches(text string, from int, passRe, failRe *regexp.Regexp) (pass, fail *model.Endpoint) {
	return resolveSingleBranch(text, from, passRe), resolveSingleBranch(text, from, failRe)
}

// resolveSingleBranch finds the first target following the nearest match
// of re after from, within a bounded window of source text.
func resolveSingleBranch(text string, from int, re *regexp.Regexp) *model.Endpoint {
	const window = 300
	end := from + window
	if end > len(text) {
		end = len(text)
	}
	if from < 0 || from > len(text) {
		return nil
	}
	loc := re.FindStringIndex(text[from:end])
	if loc == nil {
		return nil
	}
	return findNextTarget(text, from+loc[1], window)
}
