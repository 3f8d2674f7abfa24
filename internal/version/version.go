// Package version reports the build's module path and version string.
package version

import (
	"runtime/debug"
	"strings"
)

const defaultModule = "github.com/MapoMagpie/z7-vui"

// buildVersion is set via -ldflags "-X github.com/MapoMagpie/z7-vui/internal/version.buildVersion=...".
var buildVersion = ""

// Current returns the injected build version when present, else the
// module version from build info, else a placeholder.
func Current() string {
	if v := strings.TrimSpace(buildVersion); v != "" {
		return v
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			return v
		}
	}
	return "v0.0.0-unknown"
}

// Module returns the module path from build info when available.
func Module() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}
