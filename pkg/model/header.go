package model

// MacroHeader is the coarse document region a candidate header announces.
type MacroHeader string

const (
	MacroNone        MacroHeader = "none"
	MacroCover       MacroHeader = "cover"
	MacroRules       MacroHeader = "rules"
	MacroFrontMatter MacroHeader = "front_matter"
	MacroBackground  MacroHeader = "background"
	MacroGameSection MacroHeader = "game_sections"
	MacroEndmatter   MacroHeader = "endmatter"
)

// HeaderCandidate is one row per surviving element, produced by the Header
// Classifier. Output is deliberately high-recall, low-precision: candidates
// outnumber true section headers several-fold on a typical book.
type HeaderCandidate struct {
	Seq                  int         `json:"seq"`
	Page                 int         `json:"page"`
	MacroHeader          MacroHeader `json:"macro_header"`
	GameSectionHeader    bool        `json:"game_section_header"`
	ClaimedSectionNumber *int        `json:"claimed_section_number,omitempty"`
	Confidence           float64     `json:"confidence"`
	Text                 string      `json:"text,omitempty"`
	Stamp                Stamp       `json:"stamp,omitempty"`
}

// SetStamp implements Stamped.
func (h *HeaderCandidate) SetStamp(s Stamp) { h.Stamp = s }

// IsCandidate reports whether this row carries any signal worth passing to
// the global structurer (a macro header or a claimed game-section header).
func (h HeaderCandidate) IsCandidate() bool {
	return h.MacroHeader != MacroNone && h.MacroHeader != "" || h.GameSectionHeader
}
