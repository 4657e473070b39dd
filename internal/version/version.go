// Package version holds the build version string.
package version

// Version is the engine version, overridable at build time via
// -ldflags "-X github.com/christikaes/macaroni-arch/internal/version.Version=...".
var Version = "0.1.0-dev"
