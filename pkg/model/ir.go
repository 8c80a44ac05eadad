package model

// ElementKind classifies a reduced IR element. Any OCR-vendor type that does
// not map to one of the other three kinds is normalized to Text.
type ElementKind string

const (
	KindText  ElementKind = "text"
	KindImage ElementKind = "image"
	KindTable ElementKind = "table"
	KindOther ElementKind = "other"
)

// HAlign is the horizontal alignment signal carried in Layout, when present.
type HAlign string

const (
	AlignLeft   HAlign = "left"
	AlignCenter HAlign = "center"
	AlignRight  HAlign = "right"
)

// Layout carries optional positional signal, copied through by the IR
// reducer; no later stage reads it. Omitted entirely when the OCR stage did
// not report page-box-relative coordinates.
type Layout struct {
	HAlign HAlign  `json:"h_align,omitempty"`
	Y      float64 `json:"y,omitempty"`
}

// ElementCore is the minimal per-element record the IR Reducer emits. Seq is
// dense and strictly increasing across the surviving elements; the original
// page-order seq is preserved (gaps record filtered positions), never
// renumbered from zero.
type ElementCore struct {
	ID     string      `json:"id"`
	Seq    int         `json:"seq"`
	Page   int         `json:"page"`
	Kind   ElementKind `json:"kind"`
	Text   string      `json:"text"`
	Layout *Layout     `json:"layout,omitempty"`
	Stamp  Stamp       `json:"stamp,omitempty"`
}

// SetStamp implements Stamped.
func (e *ElementCore) SetStamp(s Stamp) { e.Stamp = s }

// RawElement is the vendor-native OCR element the reducer consumes. Kind is
// a free-form vendor string; Text may be empty (such rows are filtered).
type RawElement struct {
	ID     string
	Seq    int
	Page   int
	Kind   string
	Text   string
	Layout *Layout
}
