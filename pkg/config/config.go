package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"limeal.fr/mclaunch/pkg/game/folder"
	"limeal.fr/mclaunch/pkg/game/mirror"
)

const EnvPrefix = "MCLAUNCH_"

// Config is the flat launcher_config.json document. Every field can be
// overridden by MCLAUNCH_<NAME>.
type Config struct {
	Username string `json:"username"  env:"USERNAME"`
	Memory   string `json:"memory"    env:"MEMORY"`
	JavaPath string `json:"java_path" env:"JAVA_PATH"`
	Mirror   string `json:"mirror"    env:"MIRROR"`
	GameDir  string `json:"game_dir"  env:"GAME_DIR"`

	LastVersion   string `json:"last_version"   env:"LAST_VERSION"`
	FabricVersion string `json:"fabric_version" env:"FABRIC_VERSION"`
	ForgeVersion  string `json:"forge_version"  env:"FORGE_VERSION"`

	LogLevel string `json:"log_level" env:"LOG_LEVEL"`
	// Workers bounds parallel library downloads; 0 means one per CPU.
	Workers        int  `json:"workers"         env:"WORKERS"`
	DownloadAssets bool `json:"download_assets" env:"DOWNLOAD_ASSETS"`
	AutoRepair     bool `json:"auto_repair"     env:"AUTO_REPAIR"`
}

func Defaults() *Config {
	gameDir, err := folder.DefaultGamePath()
	if err != nil {
		gameDir = "." + folder.DEFAULT_FOLDER_NAME
	}
	return &Config{
		Username:   "Player",
		Memory:     "2048",
		Mirror:     mirror.BMCLAPI.Name,
		GameDir:    gameDir,
		LogLevel:   "info",
		AutoRepair: true,
	}
}

// DefaultPath is launcher_config.json in the default game directory.
func DefaultPath() string {
	return filepath.Join(Defaults().GameDir, folder.CONFIG_FILE)
}

// Load layers the file at path and then the environment over the
// defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return cfg, nil
}

// SetLastVersion records id in the file at path. Only last_version
// changes; environment overrides and command flags never reach the file.
func SetLastVersion(path, id string) error {
	cfg, err := loadFile(path)
	if err != nil {
		return err
	}
	cfg.LastVersion = id
	return cfg.Save(path)
}

// Save writes cfg as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

func (c *Config) MirrorProfile() mirror.Profile {
	return mirror.Lookup(c.Mirror)
}

func (c *Config) Folder() *folder.GameFolder {
	return folder.New(c.GameDir)
}
