package folder

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"limeal.fr/mclaunch/pkg/errs"
	"limeal.fr/mclaunch/pkg/game/manifests"
	"limeal.fr/mclaunch/pkg/game/rules"
	"limeal.fr/mclaunch/pkg/utils"
)

type Directory string

const (
	DirectoryVersions     Directory = "versions"
	DirectoryLibraries    Directory = "libraries"
	DirectoryAssets       Directory = "assets"
	DirectoryAssetIndexes Directory = "assets/indexes"
	DirectoryAssetObjects Directory = "assets/objects"
	DirectoryLogs         Directory = "logs"
	DirectoryCrashReports Directory = "crash-reports"
	DirectoryMods         Directory = "mods"
)

var REQUIRED_DIRECTORIES = []Directory{
	DirectoryVersions,
	DirectoryLibraries,
	DirectoryAssets,
	DirectoryAssetIndexes,
	DirectoryAssetObjects,
	DirectoryLogs,
	DirectoryCrashReports,
	DirectoryMods,
}

const (
	DEFAULT_FOLDER_NAME = "minecraft"
	CONFIG_FILE         = "launcher_config.json"
	SESSION_LOG_FILE    = "launcher.log"
	GAME_OUTPUT_LOG     = "launcher_output.log"
	INSTALLER_FILE      = "forge_installer.jar"
	NATIVES_DIR         = "natives"

	maxInheritanceDepth = 8
)

// GameFolder is the on-disk installation root.
type GameFolder struct {
	Path string
}

func GetGameFolderPathForFolder(folderName string) (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", folderName), nil
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "."+folderName), nil
	case "linux":
		return filepath.Join(os.Getenv("HOME"), "."+folderName), nil
	}
	return "", fmt.Errorf("unsupported OS")
}

func DefaultGamePath() (string, error) {
	return GetGameFolderPathForFolder(DEFAULT_FOLDER_NAME)
}

func New(path string) *GameFolder {
	return &GameFolder{Path: path}
}

// Init creates the directory skeleton. It is idempotent.
func (g *GameFolder) Init() error {
	for _, dir := range REQUIRED_DIRECTORIES {
		if err := os.MkdirAll(g.GetDirectory(dir), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func (g *GameFolder) GetPath() string {
	return g.Path
}

func (g *GameFolder) GetDirectory(directory Directory) string {
	return filepath.Join(g.Path, filepath.FromSlash(string(directory)))
}

/////////////////////////////////////////////////////////////////////
// Layout
/////////////////////////////////////////////////////////////////////

func (g *GameFolder) VersionDir(id string) string {
	return filepath.Join(g.GetDirectory(DirectoryVersions), id)
}

func (g *GameFolder) DescriptorPath(id string) string {
	return filepath.Join(g.VersionDir(id), id+".json")
}

func (g *GameFolder) JarPath(id string) string {
	return filepath.Join(g.VersionDir(id), id+".jar")
}

func (g *GameFolder) NativesDir(id string) string {
	return filepath.Join(g.VersionDir(id), NATIVES_DIR)
}

// LibraryPath maps a maven-relative artifact path under libraries/.
func (g *GameFolder) LibraryPath(rel string) string {
	return filepath.Join(g.GetDirectory(DirectoryLibraries), filepath.FromSlash(rel))
}

func (g *GameFolder) AssetIndexPath(assetsID string) string {
	return filepath.Join(g.GetDirectory(DirectoryAssetIndexes), assetsID+".json")
}

func (g *GameFolder) AssetObjectPath(rel string) string {
	return filepath.Join(g.GetDirectory(DirectoryAssetObjects), filepath.FromSlash(rel))
}

func (g *GameFolder) SessionLogPath() string {
	return filepath.Join(g.Path, SESSION_LOG_FILE)
}

func (g *GameFolder) GameOutputLogPath() string {
	return filepath.Join(g.GetDirectory(DirectoryLogs), GAME_OUTPUT_LOG)
}

func (g *GameFolder) ConfigPath() string {
	return filepath.Join(g.Path, CONFIG_FILE)
}

func (g *GameFolder) InstallerPath() string {
	return filepath.Join(g.Path, INSTALLER_FILE)
}

/////////////////////////////////////////////////////////////////////
// Versions
/////////////////////////////////////////////////////////////////////

// SaveDescriptor persists the descriptor bytes verbatim.
func (g *GameFolder) SaveDescriptor(id string, raw []byte) error {
	if err := os.MkdirAll(g.VersionDir(id), 0755); err != nil {
		return fmt.Errorf("failed to create version directory: %w", err)
	}
	if err := os.WriteFile(g.DescriptorPath(id), raw, 0644); err != nil {
		return fmt.Errorf("failed to write descriptor for %s: %w", id, err)
	}
	return nil
}

// ReadDescriptor parses versions/<id>/<id>.json without resolving
// inheritance.
func (g *GameFolder) ReadDescriptor(id string) (*manifests.VersionDescriptor, error) {
	path := g.DescriptorPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errs.VersionNotFoundError{VersionID: id}
		}
		return nil, fmt.Errorf("failed to read descriptor %s: %w", path, err)
	}
	return manifests.ParseVersion(path, data)
}

// LoadDescriptor reads a descriptor and merges it with its inheritsFrom
// chain.
func (g *GameFolder) LoadDescriptor(id string) (*manifests.VersionDescriptor, error) {
	d, err := g.ReadDescriptor(id)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{id: true}
	for depth := 0; d.InheritsFrom != ""; depth++ {
		parentID := d.InheritsFrom
		if depth >= maxInheritanceDepth || seen[parentID] {
			return nil, &errs.InvalidManifestDataError{Source: g.DescriptorPath(id), Reason: "inheritsFrom chain loops or is too deep"}
		}
		seen[parentID] = true

		parent, err := g.ReadDescriptor(parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent %s of %s: %w", parentID, id, err)
		}
		raw := d.Raw
		variant := d.Variant
		d = manifests.Merge(d, parent)
		d.Raw = raw
		d.Variant = variant
	}
	return d, nil
}

func (g *GameFolder) HasVersion(id string) bool {
	return utils.FileExists(g.DescriptorPath(id))
}

// ListVersions returns the ids of every directory holding its descriptor.
func (g *GameFolder) ListVersions() ([]string, error) {
	entries, err := os.ReadDir(g.GetDirectory(DirectoryVersions))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	ids := []string{}
	for _, e := range entries {
		if e.IsDir() && g.HasVersion(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (g *GameFolder) DeleteVersion(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid version id %q", id)
	}
	if !g.HasVersion(id) {
		return &errs.VersionNotFoundError{VersionID: id}
	}
	return os.RemoveAll(g.VersionDir(id))
}

// ResetNatives removes and recreates versions/<id>/natives.
func (g *GameFolder) ResetNatives(id string) (string, error) {
	dir := g.NativesDir(id)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to clear natives: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create natives: %w", err)
	}
	return dir, nil
}

// LatestCrashReport returns the lexicographically greatest
// crash-reports/crash-*.txt, or "" when there is none.
func (g *GameFolder) LatestCrashReport() (string, error) {
	matches, err := filepath.Glob(filepath.Join(g.GetDirectory(DirectoryCrashReports), "crash-*.txt"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

/////////////////////////////////////////////////////////////////////
// Classpath
/////////////////////////////////////////////////////////////////////

// GetCP lists the main jar followed by every active library artifact
// present on disk, in descriptor order.
func (g *GameFolder) GetCP(d *manifests.VersionDescriptor, env rules.Env) ([]string, error) {
	cp := []string{g.JarPath(d.JarID())}
	seen := map[string]bool{cp[0]: true}

	for i := range d.Libraries {
		lib := &d.Libraries[i]
		active, err := rules.IsActive(lib, env)
		if err != nil {
			return nil, err
		}
		if !active {
			continue
		}
		artifact := lib.MainArtifact()
		if artifact == nil || artifact.Path == "" {
			continue
		}
		path := g.LibraryPath(artifact.Path)
		if seen[path] || !utils.FileExists(path) {
			continue
		}
		seen[path] = true
		cp = append(cp, path)
	}
	return cp, nil
}
