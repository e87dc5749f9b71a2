// Package version exposes the harness build identity.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags on release builds. When absent, Commit falls back to the
// VCS revision stamped into the binary's build info.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// String renders the one-line version banner.
func String() string {
	s := fmt.Sprintf("idxbench %s", Version)
	if c := commit(); c != "" {
		s += fmt.Sprintf(" (%s)", c)
	}
	if Date != "" {
		s += " built " + Date
	}
	return fmt.Sprintf("%s %s %s/%s", s, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func commit() string {
	if Commit != "" {
		return Commit
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range bi.Settings {
		if setting.Key == "vcs.revision" {
			if len(setting.Value) > 12 {
				return setting.Value[:12]
			}
			return setting.Value
		}
	}
	return ""
}
