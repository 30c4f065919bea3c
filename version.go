package appshelf

// Build information for appshelf.
// The BuildInfo variables can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/ZaguanLabs/appshelf.GitCommit=$(git rev-parse HEAD)"
const (
	// Name is the application name.
	Name = "appshelf"

	// Description is a short description of the application.
	Description = "App catalog edge: API proxy and cached translation"

	// Version is the semantic version of the application.
	// Bumped on release.
	Version = "0.3.0"

	// Repository is the source code repository URL.
	Repository = "https://github.com/ZaguanLabs/appshelf"

	// License is the software license.
	License = "MIT"
)

// BuildInfo contains build-time information.
// These are typically set via ldflags during build.
var (
	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// GitBranch is the git branch name.
	GitBranch = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"

	// GoVersion is the Go version used to build.
	GoVersion = "unknown"
)

// FullVersion returns the version string with optional build info.
func FullVersion() string {
	v := Version
	if GitCommit != "unknown" && GitCommit != "" {
		short := GitCommit
		if len(short) > 7 {
			short = short[:7]
		}
		v += "+" + short
	}
	return v
}

// UserAgent returns the User-Agent sent to the translation backend.
func UserAgent() string {
	return Name + "/" + FullVersion()
}
