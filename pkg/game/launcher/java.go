package launcher

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

const javaProbeTimeout = 8 * time.Second

// JavaInstall is a java executable that answered -version.
type JavaInstall struct {
	Path    string
	Version string
	Major   int
}

// FindJava picks a java for the given major: the first discovered install
// with that major, else the first working install, else plain "java" left
// to PATH resolution at launch.
func FindJava(ctx context.Context, major int, logger hclog.Logger) string {
	installs := DiscoverJava(ctx)
	for _, j := range installs {
		if j.Major == major {
			return j.Path
		}
	}
	if len(installs) > 0 {
		if logger != nil {
			logger.Warn("no java matches the recommended major", "want", major, "using", installs[0].Path, "found", installs[0].Major)
		}
		return installs[0].Path
	}
	return javaBinary()
}

var versionSpecRe = regexp.MustCompile(`^\d+(\.\d+)*(_\d+)?$`)

// ResolveJava turns the configured java setting into an executable. An
// empty setting is discovered for major, a bare version ("17", "1.8",
// "17.0.8") selects a matching install, anything else is a path.
func ResolveJava(ctx context.Context, configured string, major int, logger hclog.Logger) (string, error) {
	configured = strings.TrimSpace(configured)
	switch {
	case configured == "":
		return FindJava(ctx, major, logger), nil
	case versionSpecRe.MatchString(configured):
		return GetJavaPath(ctx, configured, runtime.GOARCH)
	}
	return configured, nil
}

// GetJavaPath finds a java matching verSpec ("17", "1.8", "17.0.8").
// On macOS archSpec ("arm64", "x86_64", "amd64", "universal") also has
// to match.
func GetJavaPath(ctx context.Context, verSpec, archSpec string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, javaProbeTimeout)
	defer cancel()

	for _, c := range javaCandidates(ctx) {
		if runtime.GOOS == "darwin" && archSpec != "" && !candidateHasArch(ctx, c, archSpec) {
			continue
		}
		if v, err := javaVersion(ctx, c); err == nil && versionMatches(verSpec, v) {
			return c, nil
		}
	}
	return "", fmt.Errorf("no java matching version %q found", verSpec)
}

// DiscoverJava probes every candidate java and returns the working ones
// in discovery order.
func DiscoverJava(ctx context.Context) []JavaInstall {
	ctx, cancel := context.WithTimeout(ctx, javaProbeTimeout)
	defer cancel()

	installs := []JavaInstall{}
	for _, c := range javaCandidates(ctx) {
		v, err := javaVersion(ctx, c)
		if err != nil {
			continue
		}
		installs = append(installs, JavaInstall{Path: c, Version: v, Major: majorOf(v)})
	}
	return installs
}

func javaBinary() string {
	if runtime.GOOS == "windows" {
		return "java.exe"
	}
	return "java"
}

// javaCandidates lists absolute, de-duplicated java paths: JAVA_HOME
// first, then the per-OS JVM roots, then PATH.
func javaCandidates(ctx context.Context) []string {
	var raw []string
	if home := os.Getenv("JAVA_HOME"); home != "" {
		raw = append(raw, filepath.Join(home, "bin", javaBinary()))
	}

	switch runtime.GOOS {
	case "darwin":
		raw = append(raw, globAll(darwinJavaGlobs(ctx))...)
	case "linux":
		raw = append(raw, updateAlternatives(ctx)...)
		raw = append(raw, globAll([]string{"/usr/lib/jvm/*/bin/java", "/usr/java/*/bin/java", "/opt/java/*/bin/java"})...)
	case "windows":
		raw = append(raw, globAll(windowsJavaGlobs())...)
	}

	if p, err := exec.LookPath(javaBinary()); err == nil {
		raw = append(raw, p)
	}

	seen := map[string]bool{}
	out := []string{}
	for _, c := range raw {
		abs, err := filepath.Abs(c)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if info, err := os.Stat(abs); err != nil || info.IsDir() {
			continue
		}
		out = append(out, abs)
	}
	return out
}

func globAll(patterns []string) []string {
	var out []string
	for _, g := range patterns {
		if matches, _ := filepath.Glob(g); len(matches) > 0 {
			out = append(out, matches...)
		}
	}
	return out
}

/////////////////////////////////////////////////////////////////////
// Per-OS roots
/////////////////////////////////////////////////////////////////////

func darwinJavaGlobs(ctx context.Context) []string {
	home := os.Getenv("HOME")
	globs := []string{
		"/Library/Java/JavaVirtualMachines/*/Contents/Home/bin/java",
		filepath.Join(home, "Library/Java/JavaVirtualMachines/*/Contents/Home/bin/java"),
	}
	for _, prefix := range brewPrefixes(ctx) {
		globs = append(globs,
			filepath.Join(prefix, "opt", "openjdk*", "libexec", "openjdk.jdk", "Contents", "Home", "bin", "java"),
			filepath.Join(prefix, "Cellar", "openjdk*", "*", "libexec", "openjdk.jdk", "Contents", "Home", "bin", "java"),
		)
	}
	return globs
}

func brewPrefixes(ctx context.Context) []string {
	if out, err := exec.CommandContext(ctx, "brew", "--prefix").Output(); err == nil {
		return []string{strings.TrimSpace(string(out))}
	}
	return []string{"/opt/homebrew", "/usr/local"}
}

func updateAlternatives(ctx context.Context) []string {
	out, err := exec.CommandContext(ctx, "update-alternatives", "--list", "java").Output()
	if err != nil {
		return nil
	}
	return strings.Fields(string(out))
}

func windowsJavaGlobs() []string {
	var globs []string
	for _, root := range []string{os.Getenv("ProgramFiles"), os.Getenv("ProgramFiles(x86)"), `C:\Program Files`} {
		if root == "" {
			continue
		}
		for _, vendor := range []string{`Java\*`, `Eclipse Adoptium\jdk-*`, `Microsoft\jdk-*`, `Zulu\zulu*`} {
			globs = append(globs, filepath.Join(root, vendor, "bin", "java.exe"))
		}
	}
	return globs
}

// candidateHasArch reports whether a macOS binary contains the requested
// slice. Undeterminable binaries are accepted.
func candidateHasArch(ctx context.Context, javaPath, archSpec string) bool {
	if tgt, err := filepath.EvalSymlinks(javaPath); err == nil {
		javaPath = tgt
	}
	out, err := exec.CommandContext(ctx, "/usr/bin/lipo", "-archs", javaPath).Output()
	if err != nil {
		return true
	}
	arches := strings.Fields(strings.ReplaceAll(string(out), "arm64e", "arm64"))
	has := func(a string) bool {
		for _, x := range arches {
			if x == a {
				return true
			}
		}
		return false
	}

	switch archSpec {
	case "universal":
		return has("arm64") && has("x86_64")
	case "amd64":
		return has("x86_64")
	}
	return has(archSpec)
}

/////////////////////////////////////////////////////////////////////
// Version probing
/////////////////////////////////////////////////////////////////////

var versionRe = regexp.MustCompile(`version "(.*?)"`) // "17.0.10", "1.8.0_392"

func javaVersion(ctx context.Context, javaPath string) (string, error) {
	cmd := exec.CommandContext(ctx, javaPath, "-version")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	setupWindowsProcessAttributes(cmd)
	if err := cmd.Run(); err != nil {
		return "", err
	}
	m := versionRe.FindStringSubmatch(out.String())
	if len(m) < 2 {
		return "", fmt.Errorf("failed to parse java version from %q", out.String())
	}
	return m[1], nil
}

func versionMatches(spec, actual string) bool {
	spec = strings.TrimSpace(spec)
	actual = strings.TrimSpace(actual)
	if spec == "" || actual == "" {
		return false
	}
	if majorOf(spec) != majorOf(actual) {
		return false
	}
	// a bare major ("17", "1.8") accepts any update of it
	if _, err := strconv.Atoi(spec); err == nil || spec == "1."+strconv.Itoa(majorOf(spec)) {
		return true
	}
	return strings.HasPrefix(actual, spec)
}

// majorOf normalizes "1.8.0_392" to 8 and "17.0.8" to 17.
func majorOf(v string) int {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "1.") {
		v = strings.TrimPrefix(v, "1.")
	}
	end := 0
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(v[:end])
	return n
}
