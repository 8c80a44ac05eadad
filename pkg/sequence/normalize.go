// Package sequence implements Sequence Ordering (spec.md §4.S): turning a
// section's deterministically extracted but still-unordered events into the
// final, source-text-ordered sequence array.
package sequence

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

var trailingParenthetical = regexp.MustCompile(`^(\d+)\s*\([^)]*\)$`)
var bareNumber = regexp.MustCompile(`^\d+$`)

// normalizeTarget resolves a raw extracted target string into an Endpoint,
// per spec.md §4.S: `"16 (try again)"` -> {targetSection:"16"}; `"death (no
// section number)"` -> {terminal:"death"}; value 0 or unresolved -> the
// zero Endpoint, which callers must drop rather than emit.
func normalizeTarget(raw string) model.Endpoint {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)

	if strings.HasPrefix(lower, "death") {
		return model.TerminalEndpoint("death")
	}
	if strings.HasPrefix(lower, "win") {
		return model.TerminalEndpoint("win")
	}
	if strings.HasPrefix(lower, "timeout") {
		return model.TerminalEndpoint("timeout")
	}

	if bareNumber.MatchString(raw) {
		if n, err := strconv.Atoi(raw); err == nil && n != 0 {
			return model.TargetEndpoint(raw)
		}
		return model.Endpoint{}
	}

	if m := trailingParenthetical.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n != 0 {
			return model.TargetEndpoint(m[1])
		}
	}

	return model.Endpoint{}
}
