// Package version holds the build version, overridable at link time with
// -ldflags "-X github.com/alvmarrod/harvester/internal/version.Version=...".
package version

// Version is the harvester release.
var Version = "0.3.0"
