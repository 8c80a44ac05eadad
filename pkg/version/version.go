// Package version exposes the application version derived from build
// metadata, plus the fixed schema/validator version numbers stamped onto
// artifacts and gamebook.json's metadata.
//
// Go 1.18+ automatically embeds VCS info (git commit, dirty flag, etc.)
// into the binary via runtime/debug.BuildInfo. No -ldflags required.
//
// Usage:
//
//	version.GitCommit  // "a3f8c2d1" or "dev"
//	version.Full()     // "gamebook-pipeline/a3f8c2d1" or "gamebook-pipeline/dev"
package version

import "runtime/debug"

// AppName is the application name used in version strings and logging.
const AppName = "gamebook-pipeline"

// SchemaVersion is the artifact stamp version (model.Stamp.SchemaVersion).
// Bump when any on-disk artifact's field shape changes.
const SchemaVersion = "1.0.0"

// ValidatorVersion is compared against gamebook.json's
// metadata.validatorVersion by the Node/Portable Validator. A mismatch is a
// warning, never a gate failure, per spec.md §4.N.
const ValidatorVersion = "1.0.0"

// GitCommit is the short git commit hash (8 chars) from build info.
// Set to "dev" when build info is unavailable (e.g., `go test`, non-git builds).
var GitCommit = initGitCommit()

func initGitCommit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 8 {
				return s.Value[:8]
			}
			return s.Value
		}
	}
	return "dev"
}

// Full returns "gamebook-pipeline/<commit>" for use in logging, user-agent
// strings, etc.
func Full() string {
	return AppName + "/" + GitCommit
}
