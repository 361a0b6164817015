// Package version holds vmc build information and the version command.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/jongio/vmc/version.Version=...".
var (
	Version   = "0.0.0-dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Info holds version information for a binary.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitCommit string `json:"gitCommit"`
	GoVersion string `json:"goVersion"`
}

// New returns the build information for the named binary.
func New(name string) *Info {
	return &Info{
		Name:      name,
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
	}
}

// String returns a human-readable version string.
func (i *Info) String() string {
	return fmt.Sprintf("%s version %s (commit: %s, built: %s)", i.Name, i.Version, i.GitCommit, i.BuildDate)
}

// UserAgent is sent with control plane requests.
func (i *Info) UserAgent() string {
	return fmt.Sprintf("%s/%s (%s/%s)", i.Name, i.Version, runtime.GOOS, runtime.GOARCH)
}
