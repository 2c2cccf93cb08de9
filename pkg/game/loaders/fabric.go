package loaders

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hashicorp/go-hclog"

	"limeal.fr/mclaunch/pkg/errs"
	"limeal.fr/mclaunch/pkg/game/installer"
	"limeal.fr/mclaunch/pkg/game/manifests"
	"limeal.fr/mclaunch/pkg/game/mirror"
	"limeal.fr/mclaunch/pkg/logging"
)

const FabricMetaURL = "https://meta.fabricmc.net/v2"

// Fabric installs loader profiles from the fabric meta service. The
// profile is a descriptor inheriting from the base version, so
// installing it is persisting it and fetching its libraries.
type Fabric struct {
	MetaURL string

	installer *installer.Installer
	logger    hclog.Logger
}

func NewFabric(inst *installer.Installer, logger hclog.Logger) *Fabric {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Fabric{
		MetaURL:   FabricMetaURL,
		installer: inst,
		logger:    logger.Named("fabric"),
	}
}

func (f *Fabric) listingURL() string {
	return f.MetaURL + "/versions/loader"
}

func (f *Fabric) profileURL(base, loader string) string {
	return fmt.Sprintf("%s/versions/loader/%s/%s/profile/json", f.MetaURL, url.PathEscape(base), url.PathEscape(loader))
}

// ListVersions returns every published loader version, newest first.
func (f *Fabric) ListVersions(ctx context.Context) ([]LoaderVersion, error) {
	data, err := f.installer.Downloader.Fetch(ctx, f.listingURL())
	if err != nil {
		return nil, fmt.Errorf("failed to list fabric loaders: %w", err)
	}
	return parseListing(f.listingURL(), data)
}

// Install fetches the profile for (base, loader), persists it tagged as
// a fabric descriptor and downloads its libraries. An empty loader picks
// the latest stable one. It returns the derived version id.
func (f *Fabric) Install(ctx context.Context, base, loader string, m mirror.Profile) (string, error) {
	if loader == "" {
		versions, err := f.ListVersions(ctx)
		if err != nil {
			return "", err
		}
		latest, ok := LatestStable(versions)
		if !ok {
			return "", &errs.VersionNotFoundError{VersionID: "fabric-loader (stable)"}
		}
		loader = latest.Version
	}

	source := f.profileURL(base, loader)
	f.logger.Info("fetching fabric profile", "base", base, "loader", loader)
	raw, err := f.installer.Downloader.Fetch(ctx, source)
	if err != nil {
		return "", fmt.Errorf("failed to fetch fabric profile: %w", err)
	}

	tagged, err := tagVariant(raw, manifests.VariantFabric)
	if err != nil {
		return "", &errs.InvalidManifestDataError{Source: source, Err: err}
	}
	d, err := manifests.ParseVersion(source, tagged)
	if err != nil {
		return "", err
	}
	if d.InheritsFrom != "" && d.InheritsFrom != base {
		return "", &errs.InvalidManifestDataError{Source: source, Reason: fmt.Sprintf("profile inherits from %s, expected %s", d.InheritsFrom, base)}
	}

	g := f.installer.Folder
	if err := g.Init(); err != nil {
		return "", err
	}
	if err := g.SaveDescriptor(d.ID, d.Raw); err != nil {
		return "", err
	}

	libs, err := f.installer.InstallLibraries(ctx, d, m)
	if err != nil {
		return "", err
	}

	natives := []string{}
	if d.InheritsFrom == "" || g.HasVersion(d.InheritsFrom) {
		merged, err := g.LoadDescriptor(d.ID)
		if err != nil {
			return "", err
		}
		if natives, err = f.installer.InstallNatives(ctx, merged, m); err != nil {
			return "", err
		}
	} else {
		f.logger.Warn("base version not installed, natives are extracted at launch", "base", d.InheritsFrom)
	}

	f.logger.Info("fabric installed", "version", d.ID, "libraries", len(libs), "natives", len(natives))
	return d.ID, nil
}
