package loaders

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/hashicorp/go-hclog"

	"limeal.fr/mclaunch/pkg/download"
	"limeal.fr/mclaunch/pkg/errs"
	"limeal.fr/mclaunch/pkg/events"
	"limeal.fr/mclaunch/pkg/game/folder"
	"limeal.fr/mclaunch/pkg/game/launcher"
	"limeal.fr/mclaunch/pkg/game/manifests"
	"limeal.fr/mclaunch/pkg/game/mirror"
	"limeal.fr/mclaunch/pkg/logging"
)

const ForgeMavenURL = "https://maven.minecraftforge.net"

// Forge installs a loader by running its self-installing jar against the
// game folder.
type Forge struct {
	Folder     *folder.GameFolder
	Downloader *download.Downloader

	// JavaPath runs the installer, as understood by launcher.ResolveJava.
	JavaPath string
	// Env is appended to the installer's environment.
	Env []string
	// Sink receives the installer output lines. Without one they are
	// logged.
	Sink events.Sink

	goos   string
	logger hclog.Logger
}

func NewForge(g *folder.GameFolder, d *download.Downloader, logger hclog.Logger) *Forge {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Forge{
		Folder:     g,
		Downloader: d,
		goos:       runtime.GOOS,
		logger:     logger.Named("forge"),
	}
}

// listingBase is where the version listing lives. The official profile
// has no forge listing, so it borrows BMCLAPI's.
func listingBase(m mirror.Profile) string {
	if m.IsOfficial() {
		return mirror.BMCLAPI.BaseURL
	}
	return m.BaseURL
}

// ListVersions returns the forge builds published for base, highest
// build first.
func (f *Forge) ListVersions(ctx context.Context, base string, m mirror.Profile) ([]LoaderVersion, error) {
	source := listingBase(m) + "/forge/minecraft/" + base
	data, err := f.Downloader.Fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to list forge versions: %w", err)
	}
	versions, err := parseListing(source, data)
	if err != nil {
		return nil, err
	}
	sortByBuild(versions)
	return versions, nil
}

// InstallerURL is the canonical installer artifact for a build.
func InstallerURL(base, version string) string {
	coord := base + "-" + version
	return fmt.Sprintf("%s/net/minecraftforge/forge/%s/forge-%s-installer.jar", ForgeMavenURL, coord, coord)
}

// ExpectedIDs are the version ids the installer may create.
func ExpectedIDs(base, version string) []string {
	return []string{base + "-forge" + version, base + "-forge-" + version}
}

func (f *Forge) installFlag() string {
	if f.goos == "linux" {
		return "--installServer"
	}
	return "--installClient"
}

// Install downloads and runs the installer for v. A failed run keeps the
// installer jar in place; a successful one removes it and checks that
// the derived version directory exists. It returns the derived id.
func (f *Forge) Install(ctx context.Context, base string, v LoaderVersion, m mirror.Profile) (string, error) {
	if err := f.Folder.Init(); err != nil {
		return "", err
	}

	source := v.URL
	if source == "" {
		source = InstallerURL(base, v.Version)
	}
	installerPath := f.Folder.InstallerPath()

	f.logger.Info("downloading forge installer", "base", base, "version", v.Version)
	if _, err := f.Downloader.FetchToFile(ctx, m.Candidates(source), installerPath, nil); err != nil {
		return "", fmt.Errorf("failed to download forge installer: %w", err)
	}

	javaPath, err := launcher.ResolveJava(ctx, f.JavaPath, launcher.GetJavaVersionForVersion(base), f.logger)
	if err != nil {
		return "", &errs.ExternalInstallerError{Installer: installerPath, ExitCode: -1, Err: err}
	}

	cmd := launcher.Command{
		Path: javaPath,
		Args: []string{"-jar", installerPath, f.installFlag(), "--mirror", m.BaseURL},
		Dir:  f.Folder.GetPath(),
		Env:  f.Env,
	}
	f.logger.Info("running forge installer", "command", cmd.String())

	p, err := launcher.Start(ctx, cmd, launcher.SuperviseOptions{Sink: f.Sink, Source: "forge", Logger: f.logger})
	if err != nil {
		return "", &errs.ExternalInstallerError{Installer: installerPath, ExitCode: -1, Err: err}
	}
	code, err := p.Wait()
	if err != nil {
		return "", &errs.ExternalInstallerError{Installer: installerPath, ExitCode: code, Err: err}
	}
	if code != 0 {
		return "", &errs.ExternalInstallerError{Installer: installerPath, ExitCode: code}
	}

	if err := os.Remove(installerPath); err != nil && !os.IsNotExist(err) {
		f.logger.Warn("failed to remove forge installer", "path", installerPath, "error", err)
	}

	ids := ExpectedIDs(base, v.Version)
	for _, id := range ids {
		if info, err := os.Stat(f.Folder.VersionDir(id)); err != nil || !info.IsDir() {
			continue
		}
		if err := f.tag(id); err != nil {
			f.logger.Warn("failed to tag forge descriptor", "version", id, "error", err)
		}
		f.logger.Info("forge installed", "version", id)
		return id, nil
	}
	return "", &errs.InstallationIncompleteError{VersionID: ids[0], Path: f.Folder.VersionDir(ids[0])}
}

func (f *Forge) tag(id string) error {
	if !f.Folder.HasVersion(id) {
		return fmt.Errorf("descriptor %s not written by installer", f.Folder.DescriptorPath(id))
	}
	raw, err := os.ReadFile(f.Folder.DescriptorPath(id))
	if err != nil {
		return err
	}
	tagged, err := tagVariant(raw, manifests.VariantForge)
	if err != nil {
		return err
	}
	return f.Folder.SaveDescriptor(id, tagged)
}
