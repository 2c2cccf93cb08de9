package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"limeal.fr/mclaunch/pkg/config"
	"limeal.fr/mclaunch/pkg/engine"
	"limeal.fr/mclaunch/pkg/game/folder"
	"limeal.fr/mclaunch/pkg/game/mirror"
	"limeal.fr/mclaunch/pkg/utils"
)

var (
	debug      bool
	configPath string
	gameDir    string
	mirrorName string
)

var rootCmd = &cobra.Command{
	Use:   "mclaunch",
	Short: "mclaunch installs and launches minecraft",
	Long: `mclaunch installs and launches minecraft.
It downloads versions through a mirror, installs fabric and forge, checks
installed files and starts the game with the right java.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to launcher_config.json (default: <game_dir>/launcher_config.json)")
	rootCmd.PersistentFlags().StringVarP(&gameDir, "game-dir", "g", "", "The game directory")
	rootCmd.PersistentFlags().StringVarP(&mirrorName, "mirror", "m", "", "Mirror profile ("+strings.Join(mirror.Names(), ", ")+") or a base url")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		pterm.Error.Println(err)
		stop()
		os.Exit(1)
	}
}

/////////////////////////////////////////////////////////////////////
// Session
/////////////////////////////////////////////////////////////////////

// session is an engine opened from the config file and the global
// flags.
type session struct {
	*engine.Engine

	cfg        *config.Config
	configPath string
	progress   *utils.Progress
}

func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		base := gameDir
		if base == "" {
			base = config.Defaults().GameDir
		}
		path = filepath.Join(base, folder.CONFIG_FILE)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if gameDir != "" {
		cfg.GameDir = gameDir
	}
	if mirrorName != "" {
		cfg.Mirror = mirrorName
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	return cfg, path, nil
}

func openSession(opts engine.Options) (*session, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}

	progress := &utils.Progress{}
	opts.Config = cfg
	opts.OnProgress = progress.PrintProgress

	e, err := engine.New(opts)
	if err != nil {
		return nil, err
	}
	return &session{Engine: e, cfg: cfg, configPath: path, progress: progress}, nil
}

func (s *session) Close() {
	s.progress.Stop()
	s.Engine.Close()
}

func (s *session) rememberVersion(id string) {
	s.cfg.LastVersion = id
	if err := config.SetLastVersion(s.configPath, id); err != nil {
		pterm.Warning.Println("failed to save config:", err)
	}
}
