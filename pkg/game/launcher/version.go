package launcher

import (
	"regexp"

	"golang.org/x/mod/semver"

	"limeal.fr/mclaunch/pkg/game/manifests"
)

var releaseRe = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?$`)

// canonical turns a release id such as "1.20" into "v1.20.0". Anything
// that is not a plain release id yields "".
func canonical(gameVersion string) string {
	m := releaseRe.FindStringSubmatch(gameVersion)
	if m == nil {
		return ""
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	return semver.Canonical("v" + m[1] + "." + m[2] + "." + patch)
}

// CompareGameVersions orders release ids. Non-release ids sort before
// every release and equal to each other.
func CompareGameVersions(a, b string) int {
	return semver.Compare(canonical(a), canonical(b))
}

func VersionLT(a, b string) bool { return CompareGameVersions(a, b) < 0 }

var javaBreakpoints = []struct {
	from  string
	major int
}{
	{"1.20.5", 21},
	{"1.18", 17},
	{"1.17", 16},
}

// GetJavaVersionForVersion maps a release id to the Java major it ships
// with. Unknown ids get the newest.
func GetJavaVersionForVersion(gameVersion string) int {
	if canonical(gameVersion) == "" {
		return javaBreakpoints[0].major
	}
	for _, bp := range javaBreakpoints {
		if !VersionLT(gameVersion, bp.from) {
			return bp.major
		}
	}
	return 8
}

// RecommendedJavaMajor prefers the descriptor's javaVersion block and
// falls back to the release mapping of the main jar's version.
func RecommendedJavaMajor(d *manifests.VersionDescriptor) int {
	if d.JavaVersion != nil && d.JavaVersion.MajorVersion > 0 {
		return d.JavaVersion.MajorVersion
	}
	return GetJavaVersionForVersion(d.JarID())
}
