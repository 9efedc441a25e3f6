// Package version carries build metadata stamped in by the linker.
package version

import (
	"fmt"
	"runtime"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/soyeahso/gork/internal/version.Version=1.0.0
//	  -X github.com/soyeahso/gork/internal/version.Commit=abc123
//	  -X github.com/soyeahso/gork/internal/version.Date=2026-01-01"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns a one-line version string.
func Info() string {
	return fmt.Sprintf("gork %s (commit: %s, built: %s, %s/%s)",
		Version, Short(), Date, runtime.GOOS, runtime.GOARCH)
}

// Short returns the abbreviated commit hash.
func Short() string {
	return short(Commit)
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
