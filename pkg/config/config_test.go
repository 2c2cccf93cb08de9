package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limeal.fr/mclaunch/pkg/game/mirror"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "launcher_config.json"))
	require.NoError(t, err)
	if diff := cmp.Diff(Defaults(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, mirror.BMCLAPI, cfg.MirrorProfile())
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"username": "Steve", "memory": "4096", "mirror": "MCBBS", "workers": 3}`), 0644))
	t.Setenv("MCLAUNCH_MEMORY", "6144")
	t.Setenv("MCLAUNCH_AUTO_REPAIR", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Steve", cfg.Username)
	assert.Equal(t, "6144", cfg.Memory)
	assert.Equal(t, 3, cfg.Workers)
	assert.False(t, cfg.AutoRepair)
	assert.Equal(t, mirror.MCBBS, cfg.MirrorProfile())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"username": `), 0644))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0644))
	t.Setenv("MCLAUNCH_WORKERS", "many")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "launcher_config.json")
	cfg := Defaults()
	cfg.LastVersion = "1.20.1"
	cfg.GameDir = filepath.Dir(path)
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"last_version\": \"1.20.1\"")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, filepath.Dir(path), loaded.Folder().GetPath())
}

func TestSetLastVersionOnlyTouchesLastVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"username": "Steve", "memory": "4096"}`), 0644))
	t.Setenv("MCLAUNCH_MEMORY", "8192")
	t.Setenv("MCLAUNCH_JAVA_PATH", "/opt/jdk/bin/java")

	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.Username = "Alex"

	require.NoError(t, SetLastVersion(path, "1.20.1"))

	onDisk, err := loadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1.20.1", onDisk.LastVersion)
	assert.Equal(t, "Steve", onDisk.Username)
	assert.Equal(t, "4096", onDisk.Memory)
	assert.Empty(t, onDisk.JavaPath)
}

func TestSetLastVersionCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "launcher_config.json")
	t.Setenv("MCLAUNCH_USERNAME", "Alex")

	require.NoError(t, SetLastVersion(path, "1.12.2"))

	onDisk, err := loadFile(path)
	require.NoError(t, err)
	want := Defaults()
	want.LastVersion = "1.12.2"
	assert.Empty(t, cmp.Diff(want, onDisk))
}
