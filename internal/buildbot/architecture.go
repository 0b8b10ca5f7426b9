package buildbot

import "strings"

// Architecture is the target architecture a builder queue produces.
type Architecture string

const (
	ArchitectureX86_64  Architecture = "x86_64"
	ArchitectureX86     Architecture = "x86"
	ArchitectureX86GCC2 Architecture = "x86_gcc2"
)

// Architectures lists the known architectures in dashboard order.
var Architectures = []Architecture{ArchitectureX86_64, ArchitectureX86, ArchitectureX86GCC2}

// ParseArchitecture accepts the bare architecture names as well as the
// "<arch>Target" spelling used by buildmaster queue tables. Unrecognized
// tags are returned verbatim with ok=false so callers can apply a policy.
func ParseArchitecture(raw string) (Architecture, bool) {
	v := strings.TrimSpace(raw)
	v = strings.TrimSuffix(v, "Target")
	switch Architecture(v) {
	case ArchitectureX86_64, ArchitectureX86, ArchitectureX86GCC2:
		return Architecture(v), true
	default:
		return Architecture(strings.TrimSpace(raw)), false
	}
}

type BuildType string

const (
	BuildTypeRelease BuildType = "release"
	BuildTypeDebug   BuildType = "debug"
)

// Title is the label prefix used for a build type ("Release", "Debug").
func (t BuildType) Title() string {
	if t == BuildTypeDebug {
		return "Debug"
	}
	return "Release"
}
