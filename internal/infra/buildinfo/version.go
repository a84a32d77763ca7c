// Package buildinfo exposes the binary's build identity.
//
// Release builds inject the values through ldflags:
//
//	go build -ldflags "-X github.com/kvgate/kvgate/internal/infra/buildinfo.Version=v0.3.0"
//
// When ldflags are absent, the commit and build time fall back to the
// VCS stamps the Go toolchain embeds in the binary.
package buildinfo

import (
	"runtime"
	"runtime/debug"
)

const unset = "unknown"

// Overridden through ldflags on release builds.
var (
	// Version is the release tag.
	Version = "dev"

	// Commit identifies the source revision.
	Commit = unset

	// BuildTime records when the binary was produced.
	BuildTime = unset
)

func init() {
	if Commit != unset && BuildTime != unset {
		return
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && Commit == unset:
			Commit = s.Value
		case s.Key == "vcs.time" && BuildTime == unset:
			BuildTime = s.Value
		}
	}
}

// Info is a snapshot of the build identity.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the build information. GoVersion comes from the runtime,
// not ldflags, so it is always accurate.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String renders a one-line version banner.
func String() string {
	return Version + " (" + Commit + ") built at " + BuildTime
}
