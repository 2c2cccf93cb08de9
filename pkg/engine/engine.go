package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-hclog"

	"limeal.fr/mclaunch/pkg/config"
	"limeal.fr/mclaunch/pkg/download"
	"limeal.fr/mclaunch/pkg/errs"
	"limeal.fr/mclaunch/pkg/events"
	"limeal.fr/mclaunch/pkg/game/folder"
	"limeal.fr/mclaunch/pkg/game/installer"
	"limeal.fr/mclaunch/pkg/game/integrity"
	"limeal.fr/mclaunch/pkg/game/launcher"
	"limeal.fr/mclaunch/pkg/game/loaders"
	"limeal.fr/mclaunch/pkg/game/mirror"
	"limeal.fr/mclaunch/pkg/game/resolver"
	"limeal.fr/mclaunch/pkg/game/rules"
	"limeal.fr/mclaunch/pkg/logging"
)

var ErrAlreadyRunning = errors.New("a game is already running")

type Options struct {
	Config *config.Config

	// Sink receives log, progress and completion events. Every logger
	// entry is forwarded to it as well.
	Sink events.Sink

	// LogOutput is where the logger writes besides the session log.
	// Defaults to stderr.
	LogOutput io.Writer

	// Env overrides the detected platform.
	Env rules.Env

	Download   download.Options
	OnProgress installer.ProgressCallback

	// Checksums makes Verify compare SHA-1 sums as well.
	Checksums bool
}

// Engine wires the installation and launch components over one game
// folder and mirror. Operations on the same version must not run
// concurrently.
type Engine struct {
	Config *config.Config
	Folder *folder.GameFolder
	Mirror mirror.Profile

	env       rules.Env
	checksums bool
	sink      events.Sink
	logs      *logging.Logger
	logger    hclog.Logger

	downloader *download.Downloader
	resolver   *resolver.Resolver
	installer  *installer.Installer
	repairer   *integrity.Repairer
	fabric     *loaders.Fabric
	forge      *loaders.Forge

	mu      sync.Mutex
	running *launcher.Process
}

func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Defaults()
	}
	if opts.Env.OS == "" {
		opts.Env = rules.DetectEnv()
	}
	g := cfg.Folder()
	if err := g.Init(); err != nil {
		return nil, err
	}

	logs, err := logging.New(logging.Options{
		Name:       "mclaunch",
		Level:      cfg.LogLevel,
		SessionLog: g.SessionLogPath(),
		Output:     opts.LogOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	if opts.Sink != nil {
		logs.RegisterSink(&events.LogSink{Sink: opts.Sink})
	}

	e := &Engine{
		Config:    cfg,
		Folder:    g,
		Mirror:    cfg.MirrorProfile(),
		env:       opts.Env,
		checksums: opts.Checksums,
		sink:      opts.Sink,
		logs:      logs,
		logger:    logs,
	}

	dlOpts := opts.Download
	dlOpts.Logger = logs
	e.downloader = download.New(dlOpts)
	e.resolver = resolver.New(e.downloader, logs)

	instOpts := installer.Options{
		Env:        opts.Env,
		Workers:    cfg.Workers,
		Logger:     logs,
		Assets:     cfg.DownloadAssets,
		OnProgress: opts.OnProgress,
	}
	if opts.Sink != nil {
		instOpts.OnTransfer = func(p events.Progress) { opts.Sink.Emit(events.ProgressEvent(p)) }
	}
	e.installer = installer.New(g, e.downloader, instOpts)
	e.repairer = integrity.NewRepairer(g, e.downloader, logs)
	e.fabric = loaders.NewFabric(e.installer, logs)
	e.forge = loaders.NewForge(g, e.downloader, logs)
	e.forge.JavaPath = cfg.JavaPath
	e.forge.Sink = opts.Sink

	e.logger.Debug("engine ready", "game_dir", g.GetPath(), "mirror", e.Mirror.Name, "os", opts.Env.OS, "arch", opts.Env.Arch)
	return e, nil
}

// Close terminates a running game and releases connectors and the
// session log.
func (e *Engine) Close() error {
	if err := e.Terminate(); err != nil {
		e.logger.Warn("failed to stop game", "error", err)
	}
	err := e.downloader.Close()
	if lerr := e.logs.Close(); err == nil {
		err = lerr
	}
	return err
}

func (e *Engine) Logger() hclog.Logger {
	return e.logger
}

func (e *Engine) done(msg string, err error) {
	if e.sink != nil {
		e.sink.Emit(events.Done(msg, err))
	}
}

/////////////////////////////////////////////////////////////////////
// Versions
/////////////////////////////////////////////////////////////////////

func (e *Engine) ListRemote(ctx context.Context, releaseOnly bool) ([]string, error) {
	return e.resolver.ListVersions(ctx, e.Mirror, releaseOnly)
}

func (e *Engine) ListInstalled() ([]string, error) {
	return e.Folder.ListVersions()
}

func (e *Engine) DeleteVersion(id string) error {
	if err := e.Folder.DeleteVersion(id); err != nil {
		return err
	}
	e.logger.Info("version deleted", "version", id)
	return nil
}

// LatestCrashReport returns the newest crash report path, "" if none.
func (e *Engine) LatestCrashReport() (string, error) {
	return e.Folder.LatestCrashReport()
}

/////////////////////////////////////////////////////////////////////
// Install
/////////////////////////////////////////////////////////////////////

func (e *Engine) InstallVersion(ctx context.Context, id string) (*installer.Report, error) {
	report, err := e.installVersion(ctx, id)
	e.done(fmt.Sprintf("installed %s", id), err)
	return report, err
}

func (e *Engine) installVersion(ctx context.Context, id string) (*installer.Report, error) {
	d, err := e.resolver.ResolveVersion(ctx, id, e.Mirror)
	if err != nil {
		return nil, err
	}
	return e.installer.InstallVersion(ctx, d, e.Mirror)
}

func (e *Engine) ensureBase(ctx context.Context, base string) error {
	if e.Folder.HasVersion(base) {
		return nil
	}
	e.logger.Info("base version not installed, installing it first", "version", base)
	_, err := e.installVersion(ctx, base)
	return err
}

// InstallFabric installs base if needed, then the fabric loader. An
// empty loader selects the latest stable one.
func (e *Engine) InstallFabric(ctx context.Context, base, loader string) (string, error) {
	id, err := func() (string, error) {
		if err := e.ensureBase(ctx, base); err != nil {
			return "", err
		}
		return e.fabric.Install(ctx, base, loader, e.Mirror)
	}()
	e.done(fmt.Sprintf("installed fabric %s", id), err)
	return id, err
}

func (e *Engine) ListFabric(ctx context.Context) ([]loaders.LoaderVersion, error) {
	return e.fabric.ListVersions(ctx)
}

func (e *Engine) ListForge(ctx context.Context, base string) ([]loaders.LoaderVersion, error) {
	return e.forge.ListVersions(ctx, base, e.Mirror)
}

// InstallForge installs base if needed and runs the forge installer.
// An empty version selects the highest published build.
func (e *Engine) InstallForge(ctx context.Context, base, version string) (string, error) {
	id, err := func() (string, error) {
		if err := e.ensureBase(ctx, base); err != nil {
			return "", err
		}
		v, err := e.forgeVersion(ctx, base, version)
		if err != nil {
			return "", err
		}
		id, err := e.forge.Install(ctx, base, v, e.Mirror)
		if err != nil {
			return "", err
		}
		d, err := e.Folder.LoadDescriptor(id)
		if err != nil {
			return "", err
		}
		if _, err := e.installer.InstallNatives(ctx, d, e.Mirror); err != nil {
			return "", err
		}
		return id, nil
	}()
	e.done(fmt.Sprintf("installed forge %s", id), err)
	return id, err
}

// forgeVersion looks the build up in the listing for its installer URL.
// When the listing is unreachable a named build falls back to the
// canonical maven artifact; when the listing lacks it, the maven
// artifact has to exist.
func (e *Engine) forgeVersion(ctx context.Context, base, version string) (loaders.LoaderVersion, error) {
	versions, err := e.forge.ListVersions(ctx, base, e.Mirror)
	if err != nil {
		if version == "" {
			return loaders.LoaderVersion{}, err
		}
		e.logger.Warn("forge listing unavailable, using maven", "error", err)
		return loaders.LoaderVersion{Version: version}, nil
	}
	if version == "" {
		if len(versions) == 0 {
			return loaders.LoaderVersion{}, &errs.VersionNotFoundError{VersionID: "forge for " + base}
		}
		return versions[0], nil
	}
	for _, v := range versions {
		if v.Version == version {
			return v, nil
		}
	}
	url, ok := e.downloader.Exists(ctx, e.Mirror.Candidates(loaders.InstallerURL(base, version)))
	if !ok {
		return loaders.LoaderVersion{}, &errs.VersionNotFoundError{VersionID: fmt.Sprintf("forge %s for %s", version, base)}
	}
	return loaders.LoaderVersion{Version: version, URL: url}, nil
}

/////////////////////////////////////////////////////////////////////
// Integrity
/////////////////////////////////////////////////////////////////////

func (e *Engine) Verify(id string) ([]integrity.MissingFile, error) {
	d, err := e.Folder.LoadDescriptor(id)
	if err != nil {
		return nil, err
	}
	return integrity.Verify(e.Folder, d, e.env, integrity.Options{Checksums: e.checksums})
}

// Repair re-downloads whatever Verify reports for id.
func (e *Engine) Repair(ctx context.Context, id string) (*integrity.RepairResult, error) {
	missing, err := e.Verify(id)
	if err != nil {
		return nil, err
	}
	result, err := e.repairer.Repair(ctx, missing, e.Mirror)
	if err == nil && result.Remaining() > 0 {
		e.logger.Warn("repair incomplete", "version", id, "remaining", result.Remaining())
	}
	e.done(fmt.Sprintf("repaired %s", id), err)
	return result, err
}
