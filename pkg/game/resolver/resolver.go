package resolver

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"limeal.fr/mclaunch/pkg/download"
	"limeal.fr/mclaunch/pkg/errs"
	"limeal.fr/mclaunch/pkg/game/manifests"
	"limeal.fr/mclaunch/pkg/game/mirror"
	"limeal.fr/mclaunch/pkg/logging"
)

// Resolver turns version ids into descriptors using the remote manifest
// of a mirror profile.
type Resolver struct {
	downloader *download.Downloader
	logger     hclog.Logger
}

func New(d *download.Downloader, logger hclog.Logger) *Resolver {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Resolver{downloader: d, logger: logger.Named("resolver")}
}

// FetchManifest downloads the top-level version manifest from the mirror,
// falling back to the official manifest when the mirror is unreachable.
func (r *Resolver) FetchManifest(ctx context.Context, m mirror.Profile) (*manifests.VersionManifest, error) {
	var lastErr error
	for _, url := range manifestCandidates(m) {
		data, err := r.downloader.Fetch(ctx, url)
		if err != nil {
			r.logger.Warn("manifest unavailable", "url", url, "error", err)
			lastErr = err
			continue
		}
		return manifests.ParseManifest(url, data)
	}
	return nil, lastErr
}

func manifestCandidates(m mirror.Profile) []string {
	if m.IsOfficial() {
		return []string{m.ManifestURL()}
	}
	return []string{m.ManifestURL(), mirror.Official.ManifestURL()}
}

// ListVersions returns the remote version ids in manifest order.
func (r *Resolver) ListVersions(ctx context.Context, m mirror.Profile, releaseOnly bool) ([]string, error) {
	manifest, err := r.FetchManifest(ctx, m)
	if err != nil {
		return nil, err
	}
	return manifest.IDs(releaseOnly), nil
}

// ResolveVersion finds id in the manifest (first match wins) and fetches
// its descriptor through the mirror. The returned descriptor keeps the
// fetched bytes in Raw.
func (r *Resolver) ResolveVersion(ctx context.Context, id string, m mirror.Profile) (*manifests.VersionDescriptor, error) {
	manifest, err := r.FetchManifest(ctx, m)
	if err != nil {
		return nil, err
	}

	info, ok := manifest.Find(id)
	if !ok {
		return nil, &errs.VersionNotFoundError{VersionID: id}
	}
	return r.FetchDescriptor(ctx, info, m)
}

// FetchDescriptor downloads the descriptor a manifest entry points to,
// trying the mirror copy before the canonical URL.
func (r *Resolver) FetchDescriptor(ctx context.Context, info manifests.VersionInfo, m mirror.Profile) (*manifests.VersionDescriptor, error) {
	var lastErr error
	for _, url := range m.Candidates(info.URL) {
		data, err := r.downloader.Fetch(ctx, url)
		if err != nil {
			r.logger.Warn("descriptor unavailable", "version", info.ID, "url", url, "error", err)
			lastErr = err
			continue
		}

		d, err := manifests.ParseVersion(url, data)
		if err != nil {
			return nil, err
		}
		if d.ID != info.ID {
			return nil, &errs.InvalidManifestDataError{Source: url, Reason: fmt.Sprintf("descriptor id %q does not match %q", d.ID, info.ID)}
		}
		r.logger.Debug("descriptor resolved", "version", d.ID, "url", url)
		return d, nil
	}
	return nil, lastErr
}
