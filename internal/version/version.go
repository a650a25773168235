// Package version provides build version information for the engine.
// This is a separate package to avoid import cycles between the api client
// and the packages that report the version.
package version

// Version is the build version string, set by ldflags during build.
// Format: vX.Y.Z or vX.Y.Z-dev for development builds.
var Version = "v1.2.0"

// BuildTime is the build timestamp, set by ldflags during build.
var BuildTime = "unknown"

// UserAgent identifies the engine on every portal request.
func UserAgent() string {
	return "depot-engine/" + Version
}
