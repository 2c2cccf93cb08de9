package manifests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limeal.fr/mclaunch/pkg/errs"
)

const vanillaJSON = `{
  "id": "1.20.1",
  "type": "release",
  "mainClass": "net.minecraft.client.main.Main",
  "assets": "5",
  "assetIndex": {"id": "5", "url": "https://piston-meta.mojang.com/v1/packages/abc/5.json"},
  "downloads": {"client": {"sha1": "aa", "size": 10, "url": "https://piston-data.mojang.com/v1/objects/aa/client.jar"}},
  "libraries": [
    {"name": "com.mojang:logging:1.1.1", "downloads": {"artifact": {"path": "com/mojang/logging/1.1.1/logging-1.1.1.jar", "url": "https://libraries.minecraft.net/com/mojang/logging/1.1.1/logging-1.1.1.jar"}}},
    {"name": "org.lwjgl:lwjgl:3.3.1:natives-windows", "downloads": {"artifact": {"path": "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-windows.jar", "url": "https://libraries.minecraft.net/org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-windows.jar"}}, "rules": [{"action": "allow", "os": {"name": "windows"}}]}
  ]
}`

func TestParseVersion(t *testing.T) {
	d, err := ParseVersion("1.20.1.json", []byte(vanillaJSON))
	require.NoError(t, err)

	assert.Equal(t, "1.20.1", d.ID)
	assert.Equal(t, "5", d.AssetsID())
	assert.Equal(t, "1.20.1", d.JarID())
	assert.Equal(t, "https://piston-data.mojang.com/v1/objects/aa/client.jar", d.ClientURL())
	require.Len(t, d.Libraries, 2)
	assert.Equal(t, ActionAllow, d.Libraries[1].Rules[0].Action)
	assert.Equal(t, "windows", d.Libraries[1].Rules[0].OS.Name)
	assert.JSONEq(t, vanillaJSON, string(d.Raw))
}

func TestParseVersionRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"id": `,
		"missing id":     `{"mainClass": "x"}`,
		"unknown action": `{"id": "x", "libraries": [{"name": "a:b:1", "rules": [{"action": "maybe"}]}]}`,
		"wrong shape":    `{"id": "x", "libraries": {"name": "a:b:1"}}`,
	}
	for name, body := range cases {
		_, err := ParseVersion(name, []byte(body))
		require.Error(t, err, name)
		assert.ErrorIs(t, err, errs.ErrInvalidManifestData, name)
	}
}

func TestParseManifestFind(t *testing.T) {
	m, err := ParseManifest("manifest", []byte(`{"latest": {"release": "1.20.1"}, "versions": [
		{"id": "1.20.1", "url": "https://a/1.json", "type": "release"},
		{"id": "23w31a", "url": "https://a/2.json", "type": "snapshot"},
		{"id": "1.20.1", "url": "https://a/dup.json", "type": "release"}
	]}`))
	require.NoError(t, err)

	v, ok := m.Find("1.20.1")
	require.True(t, ok)
	assert.Equal(t, "https://a/1.json", v.URL)

	_, ok = m.Find("nope")
	assert.False(t, ok)

	assert.Equal(t, []string{"1.20.1", "1.20.1"}, m.IDs(true))
	assert.Len(t, m.IDs(false), 3)
}

func TestMainArtifactFromMavenName(t *testing.T) {
	lib := Library{Name: "net.fabricmc:sponge-mixin:0.12.5+mixin.0.8.5", URL: "https://maven.fabricmc.net/"}
	a := lib.MainArtifact()
	require.NotNil(t, a)
	assert.Equal(t, "net/fabricmc/sponge-mixin/0.12.5+mixin.0.8.5/sponge-mixin-0.12.5+mixin.0.8.5.jar", a.Path)
	assert.Equal(t, "https://maven.fabricmc.net/"+a.Path, a.URL)

	bare := Library{Name: "com.google.guava:guava:31.1-jre"}
	assert.Equal(t, DefaultLibraryBase+"com/google/guava/guava/31.1-jre/guava-31.1-jre.jar", bare.MainArtifact().URL)

	nativesOnly := Library{
		Name:      "org.lwjgl.lwjgl:lwjgl-platform:2.9.4",
		Natives:   map[string]string{"linux": "natives-linux"},
		Downloads: &LibraryDownloads{Classifiers: map[string]*Artifact{"natives-linux": {Path: "p.jar", URL: "u"}}},
	}
	assert.Nil(t, nativesOnly.MainArtifact())
	assert.Equal(t, "p.jar", nativesOnly.NativeArtifact("natives-linux").Path)
}

func TestMergeChildFirst(t *testing.T) {
	parent, err := ParseVersion("parent", []byte(vanillaJSON))
	require.NoError(t, err)

	child := &VersionDescriptor{
		ID:           "fabric-loader-0.14.21-1.20.1",
		InheritsFrom: "1.20.1",
		MainClass:    "net.fabricmc.loader.impl.launch.knot.KnotClient",
		Libraries: []Library{
			{Name: "net.fabricmc:fabric-loader:0.14.21", URL: "https://maven.fabricmc.net/"},
			{Name: "com.mojang:logging:1.2.0", URL: "https://maven.fabricmc.net/"},
		},
	}

	merged := Merge(child, parent)
	assert.Equal(t, "fabric-loader-0.14.21-1.20.1", merged.ID)
	assert.Equal(t, "1.20.1", merged.JarID())
	assert.Equal(t, "5", merged.AssetsID())
	assert.Equal(t, child.MainClass, merged.MainClass)
	require.Len(t, merged.Libraries, 3)
	assert.Equal(t, "net.fabricmc:fabric-loader:0.14.21", merged.Libraries[0].Name)
	assert.Equal(t, "com.mojang:logging:1.2.0", merged.Libraries[1].Name)
	assert.Equal(t, "org.lwjgl:lwjgl:3.3.1:natives-windows", merged.Libraries[2].Name)
}
