// Package model defines the artifact types that flow between pipeline stages:
// the reduced IR, header candidates, structured sections, boundaries, enriched
// portions, gameplay sequence events, and the final Gamebook document.
package model

import "time"

// Stamp is the metadata every artifact record carries, written by the driver
// after a stage finishes. It never changes shape across schema versions: new
// fields belong on the record, not here.
type Stamp struct {
	SchemaVersion string    `json:"schema_version"`
	ModuleID      string    `json:"module_id"`
	RunID         string    `json:"run_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Stamped is satisfied by any record the driver can stamp after a stage run.
type Stamped interface {
	SetStamp(Stamp)
}

// KnownMissing is the per-run allowlist of section ids that are physically
// absent from the source scan. It suppresses missing-section errors across
// the boundary verifier, builder, validator and forensics report.
type KnownMissing struct {
	SectionIDs map[string]bool
}

// NewKnownMissing builds a lookup set from a list of ids.
func NewKnownMissing(ids []string) KnownMissing {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return KnownMissing{SectionIDs: m}
}

// Contains reports whether id is on the allowlist.
func (k KnownMissing) Contains(id string) bool {
	if k.SectionIDs == nil {
		return false
	}
	return k.SectionIDs[id]
}
