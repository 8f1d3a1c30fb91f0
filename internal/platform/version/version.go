package version

import (
	"fmt"
	"runtime"
)

// Name identifies the service in logs and on /version.
const Name = "economy-fun-bot"

// Build information, injected via ldflags at build time
var (
	// Version is the git tag or semantic version
	Version = "dev"
	// Commit is the git commit SHA
	Commit = "unknown"
	// BuildTime is the ISO 8601 build timestamp
	BuildTime = "unknown"
)

// Info holds complete build information
type Info struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	BuildTime  string `json:"build_time"`
	GoVersion  string `json:"go_version"`
	InstanceID string `json:"instance_id,omitempty"`
}

// Get returns the current build information for the given instance.
func Get(instanceID string) Info {
	return Info{
		Name:       Name,
		Version:    Version,
		Commit:     Commit,
		BuildTime:  BuildTime,
		GoVersion:  runtime.Version(),
		InstanceID: instanceID,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s, built %s, %s)", i.Name, i.Version, i.Commit, i.BuildTime, i.GoVersion)
}
