package installer

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"limeal.fr/mclaunch/pkg/game/manifests"
	"limeal.fr/mclaunch/pkg/game/mirror"
)

/////////////////////////////////////////////////////////////////////
// Assets
/////////////////////////////////////////////////////////////////////

func (i *Installer) filterAssets(idx *manifests.AssetIndex) []manifests.AssetObject {
	seen := map[string]bool{}
	missing := []manifests.AssetObject{}
	for _, o := range idx.Objects {
		if seen[o.Hash] {
			continue
		}
		seen[o.Hash] = true

		info, err := os.Stat(i.Folder.AssetObjectPath(o.RelPath()))
		if err == nil && (o.Size == 0 || info.Size() == o.Size) {
			continue
		}
		missing = append(missing, o)
	}
	sort.Slice(missing, func(a, b int) bool { return missing[a].Hash < missing[b].Hash })
	return missing
}

// InstallAssets downloads the objects listed by the version's asset index
// that are not on disk yet. It returns how many objects were fetched;
// objects that fail are logged and skipped.
func (i *Installer) InstallAssets(ctx context.Context, d *manifests.VersionDescriptor, m mirror.Profile) (int, error) {
	path := i.Folder.AssetIndexPath(d.AssetsID())
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read asset index: %w", err)
	}
	idx, err := manifests.ParseAssetIndex(path, data)
	if err != nil {
		return 0, err
	}

	objects := i.filterAssets(idx)
	total := len(objects)
	var done, fetched int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)

	for _, o := range objects {
		o := o
		g.Go(func() error {
			url := mirror.AssetObjectURL(o.Hash)
			if _, err := i.Downloader.FetchToFile(gctx, m.Candidates(url), i.Folder.AssetObjectPath(o.RelPath()), nil); err != nil {
				i.logger.Warn("asset download failed, skipping", "hash", o.Hash, "error", err)
			} else {
				atomic.AddInt64(&fetched, 1)
			}
			i.progress("Downloading assets", int(atomic.AddInt64(&done, 1)), total, o.Hash)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	i.logger.Debug("assets installed", "index", d.AssetsID(), "fetched", fetched, "objects", len(idx.Objects))
	return int(fetched), nil
}
