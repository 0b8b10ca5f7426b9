package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Version is set at build time with:
// -ldflags "-X github.com/izzyreal/bbdash/internal/version.Version=vX.Y.Z"
var Version = "dev"

func Current() string {
	v := strings.TrimSpace(Version)
	if v == "" {
		return "dev"
	}
	return v
}

// Compatible reports whether a client built as Current can talk to a server
// reporting the given version. Development builds are compatible with
// anything; released builds must share a major version.
func Compatible(server string) bool {
	local := canonical(Current())
	remote := canonical(server)
	if local == "" || remote == "" {
		return true
	}
	return semver.Major(local) == semver.Major(remote)
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || v == "dev" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}
