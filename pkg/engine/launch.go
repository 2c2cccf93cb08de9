package engine

import (
	"context"

	"limeal.fr/mclaunch/pkg/errs"
	"limeal.fr/mclaunch/pkg/game/launcher"
)

// Prepare gets an installed version ready to start: it verifies the
// files, repairs them when AutoRepair is on, rebuilds an empty natives
// directory and builds the launch plan. It touches nothing while a game
// is running.
func (e *Engine) Prepare(ctx context.Context, id string) (*launcher.LaunchPlan, error) {
	if e.Running() {
		return nil, ErrAlreadyRunning
	}

	d, err := e.Folder.LoadDescriptor(id)
	if err != nil {
		return nil, err
	}

	missing, err := e.Verify(id)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 && e.Config.AutoRepair {
		e.logger.Info("missing files, repairing", "version", id, "count", len(missing))
		if _, err := e.repairer.Repair(ctx, missing, e.Mirror); err != nil {
			return nil, err
		}
		if missing, err = e.Verify(id); err != nil {
			return nil, err
		}
	}
	if len(missing) > 0 {
		refs := make([]string, len(missing))
		for i, f := range missing {
			refs[i] = f.String()
		}
		return nil, &errs.MissingDependencyError{VersionID: id, Missing: refs}
	}

	if err := e.installer.EnsureNatives(ctx, d, e.Mirror); err != nil {
		return nil, err
	}

	javaPath, err := launcher.ResolveJava(ctx, e.Config.JavaPath, launcher.RecommendedJavaMajor(d), e.logger)
	if err != nil {
		return nil, err
	}

	plan, err := launcher.Build(e.Folder, d, e.env, launcher.RuntimeConfig{
		JavaPath:  javaPath,
		Username:  e.Config.Username,
		MaxMemory: e.Config.Memory,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range plan.Warnings {
		e.logger.Warn(w)
	}
	return plan, nil
}

// Launch prepares id, starts the game and blocks until it exits. A
// nonzero exit is reported as a ProcessLaunchError carrying the newest
// crash report.
func (e *Engine) Launch(ctx context.Context, id string) error {
	err := e.launch(ctx, id)
	e.done("game exited", err)
	return err
}

func (e *Engine) launch(ctx context.Context, id string) error {
	plan, err := e.Prepare(ctx, id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.running != nil {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	cmd := plan.Command()
	e.logger.Info("launching", "version", id, "variant", plan.Variant, "java", plan.JavaPath)
	e.logger.Debug("launch command", "command", cmd.String())

	p, err := launcher.Start(ctx, cmd, launcher.SuperviseOptions{
		LogFile: e.Folder.GameOutputLogPath(),
		Sink:    e.sink,
		Source:  "game",
		Logger:  e.logger,
	})
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.running = p
	e.mu.Unlock()

	code, err := p.Wait()

	e.mu.Lock()
	e.running = nil
	e.mu.Unlock()

	if err != nil {
		return &errs.ProcessLaunchError{Command: plan.JavaPath, ExitCode: code, Err: err}
	}
	if code != 0 {
		crash, _ := e.Folder.LatestCrashReport()
		return &errs.ProcessLaunchError{Command: plan.JavaPath, ExitCode: code, CrashReport: crash}
	}
	e.logger.Info("game exited normally", "version", id)
	return nil
}

// Terminate stops the running game, if any.
func (e *Engine) Terminate() error {
	e.mu.Lock()
	p := e.running
	e.mu.Unlock()
	if p == nil {
		return nil
	}
	e.logger.Info("terminating game", "pid", p.PID())
	return p.Terminate(launcher.DefaultTerminateGrace)
}

// Running reports whether a game started by Launch is still alive.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running != nil
}
