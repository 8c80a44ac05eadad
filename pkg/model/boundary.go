package model

// BoundarySource records why a boundary's start position was trusted.
type BoundarySource string

const (
	SourceCertain   BoundarySource = "certain"
	SourceUncertain BoundarySource = "uncertain"
	SourceOverride  BoundarySource = "override"
)

// SectionBoundary is one confirmed section span in the document, with both
// endpoints resolved to concrete element ids. EndSeq is always
// next.StartSeq-1 in document order (or the max seq for the last section);
// the field is the source of truth, NOT the file's on-disk ordering, which
// is by SectionID for human convenience.
type SectionBoundary struct {
	SectionID       string         `json:"section_id"`
	StartElementID  string         `json:"start_element_id"`
	EndElementID    string         `json:"end_element_id"`
	StartSeq        int            `json:"start_seq"`
	EndSeq          int            `json:"end_seq"`
	Source          BoundarySource `json:"source"`
	Stamp           Stamp          `json:"stamp,omitempty"`
}

// SetStamp implements Stamped.
func (b *SectionBoundary) SetStamp(s Stamp) { b.Stamp = s }

// OrderingConflict records a pair of boundaries whose spans overlap in
// document order. Never silently repaired — surfaced to the verifier and the
// forensics report.
type OrderingConflict struct {
	FirstSectionID  string `json:"first_section_id"`
	SecondSectionID string `json:"second_section_id"`
	FirstEndSeq     int    `json:"first_end_seq"`
	SecondStartSeq  int    `json:"second_start_seq"`
}

// BoundaryVerification is the Boundary Verifier's report.
type BoundaryVerification struct {
	ZoomInWarnings  []string           `json:"zoom_in_warnings,omitempty"`
	ZoomOutWarnings []string           `json:"zoom_out_warnings,omitempty"`
	Duplicates      []string           `json:"duplicates,omitempty"`
	Missing         []string           `json:"missing,omitempty"`
	AIAnnotations   []string           `json:"ai_annotations,omitempty"`
	Conflicts       []OrderingConflict `json:"conflicts,omitempty"`
	Stamp           Stamp              `json:"stamp,omitempty"`
}

// SetStamp implements Stamped.
func (v *BoundaryVerification) SetStamp(s Stamp) { v.Stamp = s }
