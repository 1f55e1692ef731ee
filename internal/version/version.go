// Package version carries build metadata for the adaptivequiz binaries,
// stamped at build time via -ldflags.
package version

var (
	// Version is the release tag, or "dev" for local builds
	Version = "dev"
	// Commit is the git revision the binary was built from
	Commit = "dev"
	// BuildTime is the UTC timestamp of the build
	BuildTime = "unknown"
)
