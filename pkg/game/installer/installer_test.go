package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limeal.fr/mclaunch/pkg/download"
	"limeal.fr/mclaunch/pkg/errs"
	"limeal.fr/mclaunch/pkg/game/folder"
	"limeal.fr/mclaunch/pkg/game/gametest"
	"limeal.fr/mclaunch/pkg/game/manifests"
	"limeal.fr/mclaunch/pkg/game/mirror"
	"limeal.fr/mclaunch/pkg/game/rules"
)

var linux = rules.Env{OS: rules.OSLinux, Arch: "x86_64"}

func newInstaller(t *testing.T, env rules.Env) (*Installer, *folder.GameFolder) {
	t.Helper()
	g := folder.New(t.TempDir())
	d := download.New(download.Options{BackoffUnit: time.Millisecond, FileTimeout: 5 * time.Second})
	t.Cleanup(func() { d.Close() })
	return New(g, d, Options{Env: env, Workers: 4}), g
}

// descriptor1201 serves a 1.20.1 descriptor with one unconditional and one
// windows-only library.
func descriptor1201(t *testing.T, srv *gametest.Server) *manifests.VersionDescriptor {
	t.Helper()
	srv.PutString("/client.jar", "client")
	srv.PutString("/indexes/5.json", `{"objects": {}}`)
	srv.PutString("/maven/com/mojang/logging/1.1.1/logging-1.1.1.jar", "logging")
	srv.PutString("/maven/com/mojang/winonly/1.0/winonly-1.0.jar", "winonly")

	raw := fmt.Sprintf(`{
  "id": "1.20.1",
  "mainClass": "net.minecraft.client.main.Main",
  "assets": "5",
  "assetIndex": {"id": "5", "url": "%[1]s/indexes/5.json"},
  "downloads": {"client": {"url": "%[1]s/client.jar"}},
  "libraries": [
    {"name": "com.mojang:logging:1.1.1", "downloads": {"artifact": {"path": "com/mojang/logging/1.1.1/logging-1.1.1.jar", "url": "%[1]s/maven/com/mojang/logging/1.1.1/logging-1.1.1.jar"}}},
    {"name": "com.mojang:winonly:1.0", "downloads": {"artifact": {"path": "com/mojang/winonly/1.0/winonly-1.0.jar", "url": "%[1]s/maven/com/mojang/winonly/1.0/winonly-1.0.jar"}}, "rules": [{"action": "allow", "os": {"name": "windows"}}]}
  ]
}`, srv.URL)

	d, err := manifests.ParseVersion("1.20.1", []byte(raw))
	require.NoError(t, err)
	return d
}

func TestInstallVersionSkipsInactiveLibraries(t *testing.T) {
	srv := gametest.NewServer(t)
	d := descriptor1201(t, srv)
	inst, g := newInstaller(t, linux)

	report, err := inst.InstallVersion(context.Background(), d, mirror.Official)
	require.NoError(t, err)

	assert.Equal(t, []string{g.LibraryPath("com/mojang/logging/1.1.1/logging-1.1.1.jar")}, report.Libraries)
	assert.FileExists(t, g.JarPath("1.20.1"))
	assert.FileExists(t, g.AssetIndexPath("5"))
	assert.FileExists(t, g.DescriptorPath("1.20.1"))
	assert.NoFileExists(t, g.LibraryPath("com/mojang/winonly/1.0/winonly-1.0.jar"))
	assert.Equal(t, 0, srv.Hits("/maven/com/mojang/winonly/1.0/winonly-1.0.jar"))

	saved, err := os.ReadFile(g.DescriptorPath("1.20.1"))
	require.NoError(t, err)
	assert.Equal(t, string(d.Raw), string(saved))
}

func TestInstallVersionClientJarFailureIsFatal(t *testing.T) {
	srv := gametest.NewServer(t)
	d := descriptor1201(t, srv)
	srv.Remove("/client.jar")
	inst, _ := newInstaller(t, linux)

	_, err := inst.InstallVersion(context.Background(), d, mirror.Official)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client jar")
}

func TestInstallLibrariesSkipsFailures(t *testing.T) {
	srv := gametest.NewServer(t)
	d := descriptor1201(t, srv)
	srv.Remove("/maven/com/mojang/logging/1.1.1/logging-1.1.1.jar")
	inst, _ := newInstaller(t, rules.Env{OS: rules.OSWindows, Arch: "x86_64"})

	var mu sync.Mutex
	var calls int
	inst.onProgress = func(section string, current, total int, description string) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		assert.Equal(t, 2, total)
	}

	paths, err := inst.InstallLibraries(context.Background(), d, mirror.Official)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "winonly-1.0.jar", filepath.Base(paths[0]))
	assert.Equal(t, 2, calls)
}

func TestInstallLibrariesKeepsPresentFiles(t *testing.T) {
	srv := gametest.NewServer(t)
	d := descriptor1201(t, srv)
	inst, g := newInstaller(t, linux)

	path := g.LibraryPath("com/mojang/logging/1.1.1/logging-1.1.1.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("already here"), 0644))

	paths, err := inst.InstallLibraries(context.Background(), d, mirror.Official)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, paths)
	assert.Equal(t, 0, srv.Hits("/maven/com/mojang/logging/1.1.1/logging-1.1.1.jar"))
}

func TestInstallNativesLegacyClassifier(t *testing.T) {
	srv := gametest.NewServer(t)
	srv.Put("/maven/org/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar", gametest.ZipBytes(t, map[string]string{
		"liblwjgl64.so":        "so",
		"META-INF/MANIFEST.MF": "mf",
	}))

	raw := fmt.Sprintf(`{"id": "1.12.2", "libraries": [{
  "name": "org.lwjgl.lwjgl:lwjgl-platform:2.9.4",
  "natives": {"linux": "natives-linux", "windows": "natives-windows-${arch}"},
  "extract": {"exclude": ["META-INF/"]},
  "downloads": {"classifiers": {
    "natives-linux": {"path": "org/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar", "url": "%s/maven/org/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar"}
  }}
}]}`, srv.URL)
	d, err := manifests.ParseVersion("1.12.2", []byte(raw))
	require.NoError(t, err)

	inst, g := newInstaller(t, linux)
	stale := filepath.Join(g.NativesDir("1.12.2"), "stale.so")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	natives, err := inst.InstallNatives(context.Background(), d, mirror.Official)
	require.NoError(t, err)
	assert.Len(t, natives, 1)

	entries, err := os.ReadDir(g.NativesDir("1.12.2"))
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"liblwjgl64.so"}, names, "stale file, archive and excluded entries are gone")
	assert.FileExists(t, g.LibraryPath("org/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar"))
}

func legacyNatives(t *testing.T, srv *gametest.Server) *manifests.VersionDescriptor {
	t.Helper()
	srv.Put("/maven/org/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar", gametest.ZipBytes(t, map[string]string{
		"liblwjgl64.so": "so",
	}))
	raw := fmt.Sprintf(`{"id": "1.12.2", "libraries": [{
  "name": "org.lwjgl.lwjgl:lwjgl-platform:2.9.4",
  "natives": {"linux": "natives-linux"},
  "downloads": {"classifiers": {
    "natives-linux": {"path": "org/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar", "url": "%s/maven/org/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar"}
  }}
}]}`, srv.URL)
	d, err := manifests.ParseVersion("1.12.2", []byte(raw))
	require.NoError(t, err)
	return d
}

func TestEnsureNativesRebuildsOffline(t *testing.T) {
	srv := gametest.NewServer(t)
	d := legacyNatives(t, srv)
	inst, g := newInstaller(t, linux)
	ctx := context.Background()

	_, err := inst.InstallNatives(ctx, d, mirror.Official)
	require.NoError(t, err)
	srv.Remove("/maven/org/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar")
	require.NoError(t, os.RemoveAll(g.NativesDir("1.12.2")))

	require.NoError(t, inst.EnsureNatives(ctx, d, mirror.Official))
	assert.FileExists(t, filepath.Join(g.NativesDir("1.12.2"), "liblwjgl64.so"))
}

func TestEnsureNativesKeepsPopulatedDir(t *testing.T) {
	srv := gametest.NewServer(t)
	d := legacyNatives(t, srv)
	inst, g := newInstaller(t, linux)
	ctx := context.Background()

	_, err := inst.InstallNatives(ctx, d, mirror.Official)
	require.NoError(t, err)
	marker := filepath.Join(g.NativesDir("1.12.2"), "in-use.so")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0644))

	require.NoError(t, inst.EnsureNatives(ctx, d, mirror.Official))
	assert.FileExists(t, marker)
	assert.Equal(t, 1, srv.Hits("/maven/org/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar"))
}

func TestEnsureNativesFailsWhenNothingExtracted(t *testing.T) {
	srv := gametest.NewServer(t)
	d := legacyNatives(t, srv)
	srv.Remove("/maven/org/lwjgl/lwjgl-platform/2.9.4/lwjgl-platform-2.9.4-natives-linux.jar")
	inst, _ := newInstaller(t, linux)

	err := inst.EnsureNatives(context.Background(), d, mirror.Official)
	require.ErrorIs(t, err, errs.ErrMissingDependency)

	var missingErr *errs.MissingDependencyError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, []string{"native org.lwjgl.lwjgl:lwjgl-platform:2.9.4:natives-linux"}, missingErr.Missing)
}

func TestInstallNativesFailureIsSkipped(t *testing.T) {
	srv := gametest.NewServer(t)
	raw := fmt.Sprintf(`{"id": "1.12.2", "libraries": [{
  "name": "org.lwjgl.lwjgl:lwjgl-platform:2.9.4",
  "natives": {"linux": "natives-linux"},
  "downloads": {"classifiers": {"natives-linux": {"path": "x.jar", "url": "%s/missing.jar"}}}
}]}`, srv.URL)
	d, err := manifests.ParseVersion("1.12.2", []byte(raw))
	require.NoError(t, err)

	inst, _ := newInstaller(t, linux)
	natives, err := inst.InstallNatives(context.Background(), d, mirror.Official)
	require.NoError(t, err)
	assert.Empty(t, natives)
}

func TestInstallAssetsFetchesMissingObjects(t *testing.T) {
	srv := gametest.NewServer(t)
	d := descriptor1201(t, srv)
	srv.PutString("/indexes/5.json", `{"objects": {
  "minecraft/sounds/a.ogg": {"hash": "aa11223344", "size": 3},
  "minecraft/sounds/b.ogg": {"hash": "bb11223344", "size": 3},
  "minecraft/lang/c.json": {"hash": "cc11223344", "size": 3}
}}`)
	srv.PutString("/assets/aa/aa11223344", "aaa")
	srv.PutString("/assets/bb/bb11223344", "bbb")

	g := folder.New(t.TempDir())
	dl := download.New(download.Options{BackoffUnit: time.Millisecond})
	t.Cleanup(func() { dl.Close() })
	inst := New(g, dl, Options{Env: linux, Assets: true})

	present := g.AssetObjectPath("cc/cc11223344")
	require.NoError(t, os.MkdirAll(filepath.Dir(present), 0755))
	require.NoError(t, os.WriteFile(present, []byte("ccc"), 0644))

	report, err := inst.InstallVersion(context.Background(), d, mirror.Lookup(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Assets)
	assert.FileExists(t, g.AssetObjectPath("aa/aa11223344"))
	assert.Equal(t, 0, srv.Hits("/assets/cc/cc11223344"))
}
