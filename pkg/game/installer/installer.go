package installer

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"limeal.fr/mclaunch/pkg/download"
	"limeal.fr/mclaunch/pkg/errs"
	"limeal.fr/mclaunch/pkg/game/folder"
	"limeal.fr/mclaunch/pkg/game/manifests"
	"limeal.fr/mclaunch/pkg/game/mirror"
	"limeal.fr/mclaunch/pkg/game/rules"
	"limeal.fr/mclaunch/pkg/logging"
	"limeal.fr/mclaunch/pkg/utils"
)

// ProgressCallback reports item-level progress of a bulk step.
type ProgressCallback func(section string, current int, total int, description string)

type Options struct {
	Env     rules.Env
	Workers int
	Logger  hclog.Logger

	// Assets also fetches the objects listed by the asset index.
	Assets bool

	OnProgress ProgressCallback
	OnTransfer download.ProgressFunc
}

// Installer downloads everything a version descriptor references into a
// game folder.
type Installer struct {
	Folder     *folder.GameFolder
	Downloader *download.Downloader

	env        rules.Env
	workers    int
	assets     bool
	logger     hclog.Logger
	onProgress ProgressCallback
	onTransfer download.ProgressFunc
}

func New(g *folder.GameFolder, d *download.Downloader, opts Options) *Installer {
	if opts.Env.OS == "" {
		opts.Env = rules.DetectEnv()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	return &Installer{
		Folder:     g,
		Downloader: d,
		env:        opts.Env,
		workers:    opts.Workers,
		assets:     opts.Assets,
		logger:     opts.Logger.Named("installer"),
		onProgress: opts.OnProgress,
		onTransfer: opts.OnTransfer,
	}
}

func (i *Installer) Env() rules.Env {
	return i.env
}

func (i *Installer) progress(section string, current, total int, description string) {
	if i.onProgress != nil {
		i.onProgress(section, current, total, description)
	}
}

// Report lists what an installation run put on disk.
type Report struct {
	Libraries []string
	Natives   []string
	Assets    int
}

/////////////////////////////////////////////////////////////////////
// Version
/////////////////////////////////////////////////////////////////////

// InstallVersion persists the descriptor and fetches the client jar and
// asset index (both fatal), then assets when enabled, libraries and
// natives. Per-item failures in the bulk steps are logged and skipped.
func (i *Installer) InstallVersion(ctx context.Context, d *manifests.VersionDescriptor, m mirror.Profile) (*Report, error) {
	if err := i.Folder.Init(); err != nil {
		return nil, err
	}
	if len(d.Raw) > 0 {
		if err := i.Folder.SaveDescriptor(d.ID, d.Raw); err != nil {
			return nil, err
		}
	}

	if url := d.ClientURL(); url != "" {
		expected := ""
		if d.Downloads.Client != nil {
			expected = d.Downloads.Client.SHA1
		}
		if err := i.fetchIfMissing(ctx, url, i.Folder.JarPath(d.ID), expected, m); err != nil {
			return nil, fmt.Errorf("failed to download client jar: %w", err)
		}
	}

	if d.AssetIndex != nil && d.AssetIndex.URL != "" {
		if err := i.fetchIfMissing(ctx, d.AssetIndex.URL, i.Folder.AssetIndexPath(d.AssetsID()), d.AssetIndex.SHA1, m); err != nil {
			return nil, fmt.Errorf("failed to download asset index: %w", err)
		}
	}

	report := &Report{}
	if i.assets && d.AssetIndex != nil {
		n, err := i.InstallAssets(ctx, d, m)
		if err != nil {
			return nil, err
		}
		report.Assets = n
	}

	libs, err := i.InstallLibraries(ctx, d, m)
	if err != nil {
		return nil, err
	}
	report.Libraries = libs

	natives, err := i.InstallNatives(ctx, d, m)
	if err != nil {
		return nil, err
	}
	report.Natives = natives

	i.logger.Info("version installed", "version", d.ID, "libraries", len(libs), "natives", len(natives), "assets", report.Assets)
	return report, nil
}

func (i *Installer) fetchIfMissing(ctx context.Context, url, dest, sha1 string, m mirror.Profile) error {
	if utils.FileExists(dest) && (sha1 == "" || utils.FileSHA1(dest) == sha1) {
		return nil
	}
	_, err := i.Downloader.FetchToFile(ctx, m.Candidates(url), dest, i.onTransfer)
	return err
}

/////////////////////////////////////////////////////////////////////
// Libraries
/////////////////////////////////////////////////////////////////////

type libraryJob struct {
	name string
	url  string
	dest string
}

// ActiveArtifacts lists the libraries that apply on env and carry a main
// artifact, in descriptor order.
func ActiveArtifacts(d *manifests.VersionDescriptor, env rules.Env) ([]*manifests.Library, error) {
	libs := []*manifests.Library{}
	for idx := range d.Libraries {
		lib := &d.Libraries[idx]
		active, err := rules.IsActive(lib, env)
		if err != nil {
			return nil, err
		}
		if !active {
			continue
		}
		if a := lib.MainArtifact(); a != nil && a.Path != "" {
			libs = append(libs, lib)
		}
	}
	return libs, nil
}

// InstallLibraries downloads every active library artifact not yet on
// disk and returns the artifact paths present afterwards, in descriptor
// order. A failed library is logged and left out.
func (i *Installer) InstallLibraries(ctx context.Context, d *manifests.VersionDescriptor, m mirror.Profile) ([]string, error) {
	libs, err := ActiveArtifacts(d, i.env)
	if err != nil {
		return nil, err
	}

	jobs := make([]libraryJob, len(libs))
	for idx, lib := range libs {
		a := lib.MainArtifact()
		jobs[idx] = libraryJob{name: lib.Name, url: a.URL, dest: i.Folder.LibraryPath(a.Path)}
	}

	installed := make([]bool, len(jobs))
	total := len(jobs)
	var done int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)

	for idx, job := range jobs {
		idx, job := idx, job
		if utils.FileExists(job.dest) {
			installed[idx] = true
			i.progress("Downloading libraries", int(atomic.AddInt64(&done, 1)), total, job.name)
			continue
		}
		if job.url == "" {
			i.logger.Warn("library has no download url, skipping", "library", job.name)
			i.progress("Downloading libraries", int(atomic.AddInt64(&done, 1)), total, job.name)
			continue
		}

		g.Go(func() error {
			if _, err := i.Downloader.FetchToFile(gctx, m.Candidates(job.url), job.dest, i.onTransfer); err != nil {
				i.logger.Warn("library download failed, skipping", "library", job.name, "error", err)
			} else {
				installed[idx] = true
			}
			i.progress("Downloading libraries", int(atomic.AddInt64(&done, 1)), total, job.name)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths := []string{}
	for idx, ok := range installed {
		if ok {
			paths = append(paths, jobs[idx].dest)
		}
	}
	return paths, nil
}

/////////////////////////////////////////////////////////////////////
// Natives
/////////////////////////////////////////////////////////////////////

type nativeJob struct {
	name    string
	url     string
	archive string
	exclude []string
	temp    bool // archive has no library path, delete it once extracted
}

// InstallNatives resets versions/<id>/natives and fills it with the
// native libraries for the current platform. Classifier archives are
// kept under libraries/ so the directory can be rebuilt offline.
func (i *Installer) InstallNatives(ctx context.Context, d *manifests.VersionDescriptor, m mirror.Profile) ([]string, error) {
	jobs, err := i.nativeJobs(d)
	if err != nil {
		return nil, err
	}
	return i.extractNatives(ctx, d.ID, jobs, m)
}

// EnsureNatives leaves a populated natives directory alone and rebuilds
// a missing or empty one. It fails when the version needs natives and
// none could be extracted.
func (i *Installer) EnsureNatives(ctx context.Context, d *manifests.VersionDescriptor, m mirror.Profile) error {
	jobs, err := i.nativeJobs(d)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}
	if entries, err := os.ReadDir(i.Folder.NativesDir(d.ID)); err == nil && len(entries) > 0 {
		return nil
	}

	i.logger.Info("natives directory empty, extracting", "version", d.ID)
	extracted, err := i.extractNatives(ctx, d.ID, jobs, m)
	if err != nil {
		return err
	}
	if len(extracted) == 0 {
		missing := make([]string, len(jobs))
		for idx, job := range jobs {
			missing[idx] = "native " + job.name
		}
		return &errs.MissingDependencyError{VersionID: d.ID, Missing: missing}
	}
	return nil
}

func (i *Installer) extractNatives(ctx context.Context, id string, jobs []nativeJob, m mirror.Profile) ([]string, error) {
	dir, err := i.Folder.ResetNatives(id)
	if err != nil {
		return nil, err
	}

	extracted := []string{}
	for idx, job := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		i.progress("Extracting natives", idx+1, len(jobs), job.name)

		archive := job.archive
		if job.temp {
			archive = filepath.Join(dir, path.Base(job.url))
		}
		if !utils.FileExists(archive) {
			if job.url == "" {
				i.logger.Warn("native library missing, skipping", "library", job.name, "path", archive)
				continue
			}
			if _, err := i.Downloader.FetchToFile(ctx, m.Candidates(job.url), archive, i.onTransfer); err != nil {
				i.logger.Warn("native download failed, skipping", "library", job.name, "error", err)
				continue
			}
		}

		n, err := utils.ExtractNatives(archive, dir, job.exclude)
		if job.temp {
			os.Remove(archive)
		}
		if err != nil {
			i.logger.Warn("native extraction failed, skipping", "library", job.name, "error", err)
			continue
		}

		i.logger.Debug("natives extracted", "library", job.name, "files", n)
		extracted = append(extracted, job.name)
	}

	return extracted, nil
}

func (i *Installer) nativeJobs(d *manifests.VersionDescriptor) ([]nativeJob, error) {
	jobs := []nativeJob{}
	for idx := range d.Libraries {
		lib := &d.Libraries[idx]
		active, err := rules.IsActive(lib, i.env)
		if err != nil {
			return nil, err
		}
		if !active {
			continue
		}

		var exclude []string
		if lib.Extract != nil {
			exclude = lib.Extract.Exclude
		}

		// legacy layout: natives map + classifier artifact
		if classifier := rules.NativeClassifier(lib, i.env); classifier != "" {
			a := lib.NativeArtifact(classifier)
			if a == nil || (a.URL == "" && a.Path == "") {
				i.logger.Warn("native classifier not found", "library", lib.Name, "classifier", classifier)
				continue
			}
			job := nativeJob{name: lib.Name + ":" + classifier, url: a.URL, exclude: exclude}
			if a.Path != "" {
				job.archive = i.Folder.LibraryPath(a.Path)
			} else {
				job.temp = true
			}
			jobs = append(jobs, job)
			continue
		}

		// 1.19+ layout: the native jar is an ordinary rule-gated library
		if a := lib.MainArtifact(); a != nil && strings.Contains(path.Base(a.Path), "-natives-") {
			if exclude == nil {
				exclude = []string{"META-INF/"}
			}
			jobs = append(jobs, nativeJob{name: lib.Name, url: a.URL, archive: i.Folder.LibraryPath(a.Path), exclude: exclude})
		}
	}
	return jobs, nil
}
