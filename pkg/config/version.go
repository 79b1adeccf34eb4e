// Package config exposes build metadata for the Slate binaries.
package config

import (
	"fmt"
	"runtime"
)

// Set at build time:
//
//	-ldflags "-X github.com/slatehq/slate/pkg/config.Version=v1.2.0 ..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildInfo is the full build fingerprint, as served by the version
// commands and the build_info metric.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the build fingerprint of the running binary.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// VersionString formats the build fingerprint for human consumption.
func VersionString() string {
	return fmt.Sprintf("slate %s (%s) built at %s with %s",
		Version, Commit, BuildTime, runtime.Version())
}

// ShortVersionString returns just the version.
func ShortVersionString() string {
	return Version
}
