package main

import (
	"runtime/debug"
	"strings"
)

// Build-time variables injected via ldflags
//
//nolint:gochecknoglobals // These are build-time injected variables
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// BuildInfo reports version details, preferring ldflags values and falling
// back to the module build information
type BuildInfo struct {
	version   string
	commit    string
	buildDate string
	modified  bool
}

// NewBuildInfo collects the build information of the running binary
func NewBuildInfo() *BuildInfo {
	bi := &BuildInfo{version: Version, commit: Commit, buildDate: BuildDate}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return bi.normalize()
	}

	if isUnset(bi.version) && info.Main.Version != "" && info.Main.Version != "(devel)" {
		bi.version = info.Main.Version
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if isUnset(bi.commit) && setting.Value != "" {
				bi.commit = setting.Value
				if len(bi.commit) > 7 {
					bi.commit = bi.commit[:7]
				}
			}
		case "vcs.time":
			if isUnset(bi.buildDate) && setting.Value != "" {
				bi.buildDate = setting.Value
			}
		case "vcs.modified":
			bi.modified = setting.Value == "true"
		}
	}
	return bi.normalize()
}

// normalize replaces empty and unexpanded template values with defaults
func (b *BuildInfo) normalize() *BuildInfo {
	if isUnset(b.version) {
		b.version = "dev"
	}
	if isUnset(b.commit) {
		b.commit = "none"
	}
	if isUnset(b.buildDate) {
		b.buildDate = "unknown"
	}
	return b
}

// Version returns the release version
func (b *BuildInfo) Version() string { return b.version }

// Commit returns the short VCS revision
func (b *BuildInfo) Commit() string { return b.commit }

// BuildDate returns when the binary was built
func (b *BuildInfo) BuildDate() string { return b.buildDate }

// IsModified reports whether the working tree had uncommitted changes at build time
func (b *BuildInfo) IsModified() bool { return b.modified }

func isUnset(s string) bool {
	switch s {
	case "", "dev", "none", "unknown":
		return true
	}
	return isTemplateString(s)
}

// isTemplateString detects ldflags placeholders that were never substituted
func isTemplateString(s string) bool {
	return strings.Contains(s, "{{") && strings.Contains(s, "}}")
}
