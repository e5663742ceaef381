// Package contracts holds the version identity and, in its subpackages,
// the wire types shared between the service, its clients, and the report
// tooling.
package contracts

import "runtime"

const (
	// Version is the application version reported by /api/version.
	Version = "1.2.0"

	// APIVersion versions the HTTP and WebSocket message contracts.
	APIVersion = "v1"
)

// Stamped at build time:
//
//	-ldflags "-X salespulse/pkg/contracts.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ) \
//	          -X salespulse/pkg/contracts.GitCommit=$(git rev-parse --short HEAD)"
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is the full build identity.
type VersionInfo struct {
	Version      string `json:"version"`
	APIVersion   string `json:"api_version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
}

// GetVersionInfo returns the build identity of the running binary.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		APIVersion:   APIVersion,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}
}
