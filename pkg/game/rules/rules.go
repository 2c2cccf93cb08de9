package rules

import (
	"fmt"
	"runtime"
	"strings"

	"limeal.fr/mclaunch/pkg/errs"
	"limeal.fr/mclaunch/pkg/game/manifests"
)

const (
	OSWindows = "windows"
	OSLinux   = "linux"
	OSMac     = "osx"
)

type Env struct {
	OS   string // windows | linux | osx
	Arch string // x86_64 | aarch64 | x86 | arm
}

func DetectEnv() Env {
	return Env{
		OS:   NormalizeOS(runtime.GOOS),
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

// NormalizeOS maps Go and manifest spellings onto the manifest names.
// Mojang historically uses "osx"; newer files use "macos".
func NormalizeOS(name string) string {
	switch strings.ToLower(name) {
	case "darwin", "osx", "macos", "mac-os":
		return OSMac
	case "windows":
		return OSWindows
	case "linux":
		return OSLinux
	}
	return strings.ToLower(name)
}

func NormalizeArch(arch string) string {
	arch = strings.ToLower(arch)
	if mapped, ok := map[string]string{"amd64": "x86_64", "arm64": "aarch64", "386": "x86", "i386": "x86"}[arch]; ok {
		return mapped
	}
	return arch
}

// Bits is the value substituted for ${arch} in native classifiers.
func (e Env) Bits() string {
	switch e.Arch {
	case "x86", "arm":
		return "32"
	}
	return "64"
}

func (e Env) String() string {
	return e.OS + "/" + e.Arch
}

func (e Env) matches(os *manifests.OSConstraint) bool {
	if os == nil {
		return true
	}
	if os.Name != "" && NormalizeOS(os.Name) != e.OS {
		return false
	}
	if os.Arch != "" && NormalizeArch(os.Arch) != e.Arch {
		return false
	}
	return true
}

// ShouldInclude folds the rules left to right. An empty list always
// applies; a disallow whose OS constraint matches stops the fold, one
// without an OS constraint is ignored. Rules gated on launcher features
// never match.
func ShouldInclude(rulesList []manifests.Rule, env Env) (bool, error) {
	if len(rulesList) == 0 {
		return true, nil
	}

	allowed := false
	for i, r := range rulesList {
		applies := r.Features == nil && env.matches(r.OS)

		switch r.Action {
		case manifests.ActionAllow:
			if applies {
				allowed = true
			}
		case manifests.ActionDisallow:
			if applies && r.OS != nil {
				return false, nil
			}
		default:
			return false, &errs.InvalidManifestDataError{Reason: fmt.Sprintf("rule %d has unknown action %q", i, r.Action)}
		}
	}
	return allowed, nil
}

// IsActive reports whether the library applies on env.
func IsActive(lib *manifests.Library, env Env) (bool, error) {
	ok, err := ShouldInclude(lib.Rules, env)
	if err != nil {
		return false, fmt.Errorf("library %s: %w", lib.Name, err)
	}
	return ok, nil
}

// NativeClassifier returns the classifier name for env, with the ${arch}
// placeholder substituted, or "" when the library ships no native for it.
func NativeClassifier(lib *manifests.Library, env Env) string {
	if len(lib.Natives) == 0 {
		return ""
	}

	keys := []string{env.OS}
	if env.OS == OSMac {
		keys = append(keys, "macos")
	}
	for _, k := range keys {
		if classifier, ok := lib.Natives[k]; ok && classifier != "" {
			return strings.ReplaceAll(classifier, "${arch}", env.Bits())
		}
	}
	return ""
}
