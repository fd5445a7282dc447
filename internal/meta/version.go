package meta

import (
	"fmt"
	"runtime"
)

// Info describes the build a homelink binary came from. Everything but the
// platform and Go version is injected by the linker, see the vars below.
type Info struct {
	Version   string
	Build     string
	Branch    string
	BuildTime string
	Platform  string
	GoVersion string
	GoTag     string
}

// Set with -ldflags "-X github.com/luma/homelink/internal/meta.Version=..."
var (
	// Version is the release tag, empty for development builds
	Version string

	// Build is the git commit
	Build string

	// Branch is the git branch
	Branch string

	// BuildTimeUTC is formatted as year/month/day hour:min:sec
	BuildTimeUTC string

	// GoTag lists the build tags the binary was compiled with
	GoTag string

	platform = fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH)
)

// GetInfo returns an Info struct populated with the build information.
func GetInfo() Info {
	return Info{
		GoVersion: runtime.Version(),
		Version:   Version,
		Build:     Build,
		Branch:    Branch,
		BuildTime: BuildTimeUTC,
		GoTag:     GoTag,
		Platform:  platform,
	}
}

func (i Info) String() string {
	version := i.Version
	if version == "" {
		version = "dev"
	}

	s := fmt.Sprintf("homelink %s (%s, %s)", version, i.Platform, i.GoVersion)
	if i.Build != "" {
		s += fmt.Sprintf(" build %s", i.Build)
	}

	if i.Branch != "" {
		s += fmt.Sprintf(" on %s", i.Branch)
	}

	if i.BuildTime != "" {
		s += fmt.Sprintf(" at %s", i.BuildTime)
	}

	return s
}
