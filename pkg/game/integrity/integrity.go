package integrity

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"limeal.fr/mclaunch/pkg/download"
	"limeal.fr/mclaunch/pkg/game/folder"
	"limeal.fr/mclaunch/pkg/game/installer"
	"limeal.fr/mclaunch/pkg/game/manifests"
	"limeal.fr/mclaunch/pkg/game/mirror"
	"limeal.fr/mclaunch/pkg/game/rules"
	"limeal.fr/mclaunch/pkg/logging"
	"limeal.fr/mclaunch/pkg/utils"
)

type Kind string

const (
	KindJar        Kind = "jar"
	KindAssetIndex Kind = "assetIndex"
	KindLibrary    Kind = "library"
)

// MissingFile is a logical reference to a file a version needs: the jar's
// version id, the asset index id or a library's maven path. URL is the
// canonical source it is repaired from.
type MissingFile struct {
	Kind    Kind
	Ref     string
	URL     string
	SHA1    string
	Corrupt bool
}

func (f MissingFile) String() string {
	if f.Corrupt {
		return fmt.Sprintf("%s %s (checksum mismatch)", f.Kind, f.Ref)
	}
	return fmt.Sprintf("%s %s", f.Kind, f.Ref)
}

func (f MissingFile) path(g *folder.GameFolder) string {
	switch f.Kind {
	case KindJar:
		return g.JarPath(f.Ref)
	case KindAssetIndex:
		return g.AssetIndexPath(f.Ref)
	default:
		return g.LibraryPath(f.Ref)
	}
}

type Options struct {
	// Checksums also reports files whose SHA-1 differs from the descriptor.
	Checksums bool
}

/////////////////////////////////////////////////////////////////////
// Verify
/////////////////////////////////////////////////////////////////////

// Verify lists what d still lacks on disk: the main jar, the asset index,
// then every active library artifact in descriptor order.
func Verify(g *folder.GameFolder, d *manifests.VersionDescriptor, env rules.Env, opts Options) ([]MissingFile, error) {
	missing := []MissingFile{}
	check := func(f MissingFile) {
		p := f.path(g)
		if !utils.FileExists(p) {
			missing = append(missing, f)
			return
		}
		if opts.Checksums && f.SHA1 != "" && utils.FileSHA1(p) != f.SHA1 {
			f.Corrupt = true
			missing = append(missing, f)
		}
	}

	jar := MissingFile{Kind: KindJar, Ref: d.JarID(), URL: d.ClientURL()}
	if d.Downloads != nil && d.Downloads.Client != nil {
		jar.SHA1 = d.Downloads.Client.SHA1
	}
	check(jar)

	// without an assetIndex entry there is no source, Repair reports it
	if id := d.AssetsID(); id != "" {
		index := MissingFile{Kind: KindAssetIndex, Ref: id}
		if d.AssetIndex != nil {
			index.URL = d.AssetIndex.URL
			index.SHA1 = d.AssetIndex.SHA1
		}
		check(index)
	}

	libs, err := installer.ActiveArtifacts(d, env)
	if err != nil {
		return nil, err
	}
	for _, lib := range libs {
		a := lib.MainArtifact()
		check(MissingFile{Kind: KindLibrary, Ref: a.Path, URL: a.URL, SHA1: a.SHA1})
	}

	return missing, nil
}

/////////////////////////////////////////////////////////////////////
// Repair
/////////////////////////////////////////////////////////////////////

type RepairResult struct {
	Repaired []MissingFile
	Failed   []MissingFile
}

// Remaining is how many referenced files are still missing.
func (r *RepairResult) Remaining() int {
	return len(r.Failed)
}

// Repairer re-downloads files reported by Verify.
type Repairer struct {
	folder     *folder.GameFolder
	downloader *download.Downloader
	logger     hclog.Logger
}

func NewRepairer(g *folder.GameFolder, d *download.Downloader, logger hclog.Logger) *Repairer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Repairer{folder: g, downloader: d, logger: logger.Named("integrity")}
}

// Repair fetches exactly the referenced files through the mirror. It is
// best effort: a failing file is recorded and the rest are still tried;
// files already repaired stay in place.
func (r *Repairer) Repair(ctx context.Context, missing []MissingFile, m mirror.Profile) (*RepairResult, error) {
	result := &RepairResult{Repaired: []MissingFile{}, Failed: []MissingFile{}}

	for _, f := range missing {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if f.URL == "" {
			r.logger.Warn("no source url, cannot repair", "file", f.String())
			result.Failed = append(result.Failed, f)
			continue
		}

		if _, err := r.downloader.FetchToFile(ctx, m.Candidates(f.URL), f.path(r.folder), nil); err != nil {
			r.logger.Warn("repair failed", "file", f.String(), "error", err)
			result.Failed = append(result.Failed, f)
			continue
		}
		r.logger.Info("repaired", "file", f.String())
		result.Repaired = append(result.Repaired, f)
	}

	return result, nil
}
