package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limeal.fr/mclaunch/pkg/errs"
	"limeal.fr/mclaunch/pkg/game/manifests"
)

var (
	linux   = Env{OS: OSLinux, Arch: "x86_64"}
	windows = Env{OS: OSWindows, Arch: "x86_64"}
	mac     = Env{OS: OSMac, Arch: "aarch64"}
)

func allow(os string) manifests.Rule {
	r := manifests.Rule{Action: manifests.ActionAllow}
	if os != "" {
		r.OS = &manifests.OSConstraint{Name: os}
	}
	return r
}

func disallow(os string) manifests.Rule {
	r := manifests.Rule{Action: manifests.ActionDisallow}
	if os != "" {
		r.OS = &manifests.OSConstraint{Name: os}
	}
	return r
}

func include(t *testing.T, rs []manifests.Rule, env Env) bool {
	t.Helper()
	ok, err := ShouldInclude(rs, env)
	require.NoError(t, err)
	return ok
}

func TestEmptyRulesAlwaysApply(t *testing.T) {
	for _, env := range []Env{linux, windows, mac} {
		assert.True(t, include(t, nil, env))
		assert.True(t, include(t, []manifests.Rule{}, env))
	}
}

func TestUnconstrainedAllow(t *testing.T) {
	assert.True(t, include(t, []manifests.Rule{allow("")}, linux))
}

func TestMatchingDisallowWinsOverPriorAllows(t *testing.T) {
	rs := []manifests.Rule{allow(""), allow("osx"), disallow("osx")}
	assert.False(t, include(t, rs, mac))
	assert.True(t, include(t, rs, linux))
}

func TestDisallowShortCircuits(t *testing.T) {
	rs := []manifests.Rule{disallow("linux"), allow("")}
	assert.False(t, include(t, rs, linux))
	assert.True(t, include(t, rs, windows))
}

func TestDisallowWithoutOSIsIgnored(t *testing.T) {
	assert.True(t, include(t, []manifests.Rule{allow(""), disallow("")}, linux))
	assert.True(t, include(t, []manifests.Rule{disallow(""), allow("")}, windows))
	assert.False(t, include(t, []manifests.Rule{disallow("")}, linux))
}

func TestOSOnlyAllow(t *testing.T) {
	rs := []manifests.Rule{allow("windows")}
	assert.True(t, include(t, rs, windows))
	assert.False(t, include(t, rs, linux))
	assert.False(t, include(t, rs, mac))
}

func TestMacAliases(t *testing.T) {
	assert.True(t, include(t, []manifests.Rule{allow("macos")}, mac))
	assert.True(t, include(t, []manifests.Rule{allow("osx")}, mac))
}

func TestArchConstraint(t *testing.T) {
	rs := []manifests.Rule{{Action: manifests.ActionAllow, OS: &manifests.OSConstraint{Name: "windows", Arch: "x86"}}}
	assert.False(t, include(t, rs, windows))
	assert.True(t, include(t, rs, Env{OS: OSWindows, Arch: "x86"}))
}

func TestFeatureRulesNeverMatch(t *testing.T) {
	rs := []manifests.Rule{{Action: manifests.ActionAllow, Features: map[string]bool{"is_demo_user": true}}}
	assert.False(t, include(t, rs, linux))
}

func TestUnknownActionIsInvalidManifestData(t *testing.T) {
	_, err := ShouldInclude([]manifests.Rule{{Action: "maybe"}}, linux)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidManifestData)
}

func TestNativeClassifier(t *testing.T) {
	lib := &manifests.Library{Natives: map[string]string{
		"linux":   "natives-linux",
		"windows": "natives-windows-${arch}",
		"osx":     "natives-osx",
	}}

	assert.Equal(t, "natives-linux", NativeClassifier(lib, linux))
	assert.Equal(t, "natives-windows-64", NativeClassifier(lib, windows))
	assert.Equal(t, "natives-windows-32", NativeClassifier(lib, Env{OS: OSWindows, Arch: "x86"}))
	assert.Equal(t, "natives-osx", NativeClassifier(lib, mac))
	assert.Equal(t, "", NativeClassifier(&manifests.Library{}, linux))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, OSMac, NormalizeOS("darwin"))
	assert.Equal(t, "x86_64", NormalizeArch("amd64"))
	assert.Equal(t, "aarch64", NormalizeArch("arm64"))
	assert.Equal(t, "32", Env{Arch: "x86"}.Bits())
}
