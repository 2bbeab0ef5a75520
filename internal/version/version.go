// Package version carries the release string, set at link time with
// -ldflags "-X bqtools/internal/version.Version=...".
package version

var Version = "dev"
