// Package buildinfo contains build-time metadata separate from user configuration
package buildinfo

import "fmt"

const (
	// DefaultVersion is reported by binaries built without -ldflags.
	DefaultVersion = "dev"

	appName = "dualcapture"
)

// Context contains build-time metadata that is not user-configurable.
// It is injected at startup from variables set by the linker.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}

// New returns build metadata, substituting defaults for empty values.
func New(version, buildDate string) *Context {
	if version == "" {
		version = DefaultVersion
	}
	if buildDate == "" {
		buildDate = "unknown"
	}
	return &Context{Version: version, BuildDate: buildDate}
}

// Release returns the release identifier attached to telemetry events.
func (c *Context) Release() string {
	return appName + "@" + c.Version
}

// String returns the version line printed by --version.
func (c *Context) String() string {
	return fmt.Sprintf("%s (built %s)", c.Version, c.BuildDate)
}
