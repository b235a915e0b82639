// Package buildinfo contains build-time metadata separate from user configuration
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// UnknownValue is reported for metadata that was not injected at build time
const UnknownValue = "unknown"

// BuildInfo provides an interface for accessing build-time metadata.
type BuildInfo interface {
	// GetVersion returns the build version string
	GetVersion() string
	// GetBuildDate returns the build date string
	GetBuildDate() string
	// GetCommit returns the VCS revision the binary was built from
	GetCommit() string
}

// Context contains build-time metadata that is not user-configurable.
// Values are injected with -ldflags at build time.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string

	// Commit is the VCS revision
	Commit string
}

// NewContext creates a Context. An empty commit is filled from the module
// build info when the binary was built from a VCS checkout.
func NewContext(version, buildDate, commit string) *Context {
	if commit == "" {
		commit = vcsRevision()
	}
	return &Context{Version: version, BuildDate: buildDate, Commit: commit}
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}

// GetVersion implements BuildInfo.GetVersion
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate implements BuildInfo.GetBuildDate
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// GetCommit implements BuildInfo.GetCommit
func (c *Context) GetCommit() string {
	if c == nil || c.Commit == "" {
		return UnknownValue
	}
	return c.Commit
}

// String formats the metadata for the version command
func (c *Context) String() string {
	return fmt.Sprintf("merak %s (commit %s, built %s, %s %s/%s)",
		c.GetVersion(), c.GetCommit(), c.GetBuildDate(),
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
