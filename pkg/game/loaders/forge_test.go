package loaders

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limeal.fr/mclaunch/pkg/errs"
	"limeal.fr/mclaunch/pkg/game/folder"
	"limeal.fr/mclaunch/pkg/game/gametest"
	"limeal.fr/mclaunch/pkg/game/manifests"
	"limeal.fr/mclaunch/pkg/game/mirror"
)

const forgeInstallerPath = "/maven/net/minecraftforge/forge/1.12.2-14.23.5.2859/forge-1.12.2-14.23.5.2859-installer.jar"

func newForge(t *testing.T, mode, id string) (*Forge, *folder.GameFolder) {
	t.Helper()
	g := folder.New(t.TempDir())
	f := NewForge(g, newDownloader(t), nil)
	f.JavaPath = os.Args[0]
	f.Env = []string{helperEnv + "=" + mode, "MCLAUNCH_FORGE_ID=" + id}
	f.goos = "windows"
	return f, g
}

func TestForgeListVersions(t *testing.T) {
	srv := gametest.NewServer(t)
	srv.PutString("/forge/minecraft/1.12.2", `[
  {"build": 100, "version": "14.23.5.2847", "mcversion": "1.12.2"},
  {"build": 102, "version": "14.23.5.2859", "mcversion": "1.12.2"}
]`)
	f, _ := newForge(t, "ok", "")

	versions, err := f.ListVersions(context.Background(), "1.12.2", mirror.Lookup(srv.URL))
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "14.23.5.2859", versions[0].Version)
}

func TestForgeListingBase(t *testing.T) {
	assert.Equal(t, mirror.BMCLAPI.BaseURL, listingBase(mirror.Official))
	assert.Equal(t, mirror.MCBBS.BaseURL, listingBase(mirror.MCBBS))
}

func TestInstallerURL(t *testing.T) {
	assert.Equal(t,
		"https://maven.minecraftforge.net/net/minecraftforge/forge/1.12.2-14.23.5.2859/forge-1.12.2-14.23.5.2859-installer.jar",
		InstallerURL("1.12.2", "14.23.5.2859"))
	assert.Equal(t, []string{"1.12.2-forge14.23.5.2859", "1.12.2-forge-14.23.5.2859"}, ExpectedIDs("1.12.2", "14.23.5.2859"))
}

func TestForgeInstall(t *testing.T) {
	srv := gametest.NewServer(t)
	url := srv.PutString(forgeInstallerPath, "installer")
	f, g := newForge(t, "ok", "1.12.2-forge14.23.5.2859")
	m := mirror.Lookup(srv.URL)

	id, err := f.Install(context.Background(), "1.12.2", LoaderVersion{Version: "14.23.5.2859", URL: url}, m)
	require.NoError(t, err)
	assert.Equal(t, "1.12.2-forge14.23.5.2859", id)
	assert.NoFileExists(t, g.InstallerPath())

	d, err := g.ReadDescriptor(id)
	require.NoError(t, err)
	assert.Equal(t, manifests.VariantForge, d.Variant)

	args, err := os.ReadFile(filepath.Join(g.VersionDir(id), "args.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"-jar", g.InstallerPath(), "--installClient", "--mirror", m.BaseURL}, strings.Split(string(args), "\n"))
}

func TestForgeInstallAcceptsDashedID(t *testing.T) {
	srv := gametest.NewServer(t)
	url := srv.PutString(forgeInstallerPath, "installer")
	f, _ := newForge(t, "ok", "1.12.2-forge-14.23.5.2859")
	f.goos = "linux"

	id, err := f.Install(context.Background(), "1.12.2", LoaderVersion{Version: "14.23.5.2859", URL: url}, mirror.Lookup(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "1.12.2-forge-14.23.5.2859", id)
	assert.Equal(t, "--installServer", f.installFlag())
}

func TestForgeInstallerFailureKeepsInstaller(t *testing.T) {
	srv := gametest.NewServer(t)
	url := srv.PutString(forgeInstallerPath, "installer")
	f, g := newForge(t, "fail", "")

	_, err := f.Install(context.Background(), "1.12.2", LoaderVersion{Version: "14.23.5.2859", URL: url}, mirror.Lookup(srv.URL))
	require.ErrorIs(t, err, errs.ErrExternalInstaller)

	var installerErr *errs.ExternalInstallerError
	require.ErrorAs(t, err, &installerErr)
	assert.Equal(t, 1, installerErr.ExitCode)
	assert.FileExists(t, g.InstallerPath())

	for _, id := range ExpectedIDs("1.12.2", "14.23.5.2859") {
		assert.NoDirExists(t, g.VersionDir(id))
	}
}

func TestForgeInstallIncomplete(t *testing.T) {
	srv := gametest.NewServer(t)
	url := srv.PutString(forgeInstallerPath, "installer")
	f, g := newForge(t, "noop", "")

	_, err := f.Install(context.Background(), "1.12.2", LoaderVersion{Version: "14.23.5.2859", URL: url}, mirror.Lookup(srv.URL))
	assert.ErrorIs(t, err, errs.ErrInstallationIncomplete)
	assert.NoFileExists(t, g.InstallerPath())
}

func TestForgeInstallerDownloadFailure(t *testing.T) {
	srv := gametest.NewServer(t)
	f, g := newForge(t, "ok", "")

	_, err := f.Install(context.Background(), "1.12.2", LoaderVersion{Version: "14.23.5.2859", URL: srv.URL + forgeInstallerPath}, mirror.Lookup(srv.URL))
	require.Error(t, err)
	assert.NoFileExists(t, g.InstallerPath())
}
