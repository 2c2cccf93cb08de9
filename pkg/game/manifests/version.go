package manifests

import (
	"encoding/json"
	"fmt"
	"strings"

	"limeal.fr/mclaunch/pkg/errs"
	"limeal.fr/mclaunch/pkg/utils"
)

/////////////////////////////////////////////////////////////////////
// VersionManifest: top-level list of installable versions
/////////////////////////////////////////////////////////////////////

type VersionManifest struct {
	Latest   LatestVersions `json:"latest"`
	Versions []VersionInfo  `json:"versions"`
}

type LatestVersions struct {
	Release  string `json:"release"`
	Snapshot string `json:"snapshot"`
}

type VersionInfo struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	SHA1 string `json:"sha1,omitempty"`
	Type string `json:"type"`
}

// Find returns the first entry whose id matches.
func (m *VersionManifest) Find(id string) (VersionInfo, bool) {
	for _, v := range m.Versions {
		if v.ID == id {
			return v, true
		}
	}
	return VersionInfo{}, false
}

func (m *VersionManifest) IDs(releaseOnly bool) []string {
	ids := []string{}
	for _, v := range m.Versions {
		if releaseOnly && v.Type != "release" {
			continue
		}
		ids = append(ids, v.ID)
	}
	return ids
}

func ParseManifest(source string, data []byte) (*VersionManifest, error) {
	var m VersionManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &errs.InvalidManifestDataError{Source: source, Err: err}
	}
	for i, v := range m.Versions {
		if v.ID == "" || v.URL == "" {
			return nil, &errs.InvalidManifestDataError{Source: source, Reason: fmt.Sprintf("entry %d has no id or url", i)}
		}
	}
	return &m, nil
}

/////////////////////////////////////////////////////////////////////
// VersionDescriptor
/////////////////////////////////////////////////////////////////////

type Variant string

const (
	VariantVanilla Variant = "vanilla"
	VariantFabric  Variant = "fabric"
	VariantForge   Variant = "forge"
)

type DownloadEntry struct {
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

type AssetIndexRef struct {
	ID        string `json:"id"`
	SHA1      string `json:"sha1,omitempty"`
	Size      int64  `json:"size,omitempty"`
	TotalSize int64  `json:"totalSize,omitempty"`
	URL       string `json:"url"`
}

type Downloads struct {
	Client *DownloadEntry `json:"client,omitempty"`
	Server *DownloadEntry `json:"server,omitempty"`
}

type JavaVersion struct {
	Component    string `json:"component"`
	MajorVersion int    `json:"majorVersion"`
}

type VersionDescriptor struct {
	ID           string         `json:"id"`
	InheritsFrom string         `json:"inheritsFrom,omitempty"`
	Jar          string         `json:"jar,omitempty"`
	Type         string         `json:"type,omitempty"`
	MainClass    string         `json:"mainClass"`
	Assets       string         `json:"assets,omitempty"`
	AssetIndex   *AssetIndexRef `json:"assetIndex,omitempty"`
	Downloads    *Downloads     `json:"downloads,omitempty"`
	Libraries    []Library      `json:"libraries"`
	JavaVersion  *JavaVersion   `json:"javaVersion,omitempty"`
	Arguments    *Arguments     `json:"arguments,omitempty"`

	// Set by the loader installers on the persisted copy.
	Variant Variant `json:"launcherVariant,omitempty"`

	// Raw is the document exactly as fetched; it is what gets persisted.
	Raw json.RawMessage `json:"-"`
}

// ParseVersion decodes a descriptor and checks the fields every later step
// dereferences.
func ParseVersion(source string, data []byte) (*VersionDescriptor, error) {
	var d VersionDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &errs.InvalidManifestDataError{Source: source, Err: err}
	}
	if d.ID == "" {
		return nil, &errs.InvalidManifestDataError{Source: source, Reason: "missing id"}
	}
	for i, lib := range d.Libraries {
		if lib.Name == "" && (lib.Downloads == nil || lib.Downloads.Artifact == nil) {
			return nil, &errs.InvalidManifestDataError{Source: source, Reason: fmt.Sprintf("library %d has neither name nor artifact", i)}
		}
	}
	d.Raw = append(json.RawMessage(nil), data...)
	return &d, nil
}

// JarID names the version directory holding the main jar.
func (d *VersionDescriptor) JarID() string {
	if d.Jar != "" {
		return d.Jar
	}
	if d.InheritsFrom != "" {
		return d.InheritsFrom
	}
	return d.ID
}

// AssetsID is the asset index identifier used for the index file name and
// the --assetIndex argument.
func (d *VersionDescriptor) AssetsID() string {
	if d.Assets != "" {
		return d.Assets
	}
	if d.AssetIndex != nil {
		return d.AssetIndex.ID
	}
	return ""
}

func (d *VersionDescriptor) ClientURL() string {
	if d.Downloads == nil || d.Downloads.Client == nil {
		return ""
	}
	return d.Downloads.Client.URL
}

// Merge layers a child descriptor (loader profile) over its parent.
// Child libraries come first and win on duplicate group:artifact[:classifier].
// Arguments are never inherited.
func Merge(child, parent *VersionDescriptor) *VersionDescriptor {
	merged := *child
	if merged.MainClass == "" {
		merged.MainClass = parent.MainClass
	}
	if merged.Assets == "" {
		merged.Assets = parent.Assets
	}
	if merged.AssetIndex == nil {
		merged.AssetIndex = parent.AssetIndex
	}
	if merged.Downloads == nil {
		merged.Downloads = parent.Downloads
	}
	if merged.JavaVersion == nil {
		merged.JavaVersion = parent.JavaVersion
	}
	if merged.Type == "" {
		merged.Type = parent.Type
	}
	if merged.Jar == "" {
		merged.Jar = parent.JarID()
	}
	merged.InheritsFrom = parent.InheritsFrom

	seen := map[string]struct{}{}
	libs := make([]Library, 0, len(child.Libraries)+len(parent.Libraries))
	for _, group := range [][]Library{child.Libraries, parent.Libraries} {
		for _, lib := range group {
			key := lib.DedupKey()
			if _, ok := seen[key]; ok && key != "" {
				continue
			}
			seen[key] = struct{}{}
			libs = append(libs, lib)
		}
	}
	merged.Libraries = libs
	return &merged
}

/////////////////////////////////////////////////////////////////////
// Library
/////////////////////////////////////////////////////////////////////

type Artifact struct {
	Path string `json:"path"`
	SHA1 string `json:"sha1,omitempty"`
	Size int64  `json:"size,omitempty"`
	URL  string `json:"url"`
}

type LibraryDownloads struct {
	Artifact    *Artifact            `json:"artifact,omitempty"`
	Classifiers map[string]*Artifact `json:"classifiers,omitempty"`
}

type ExtractRules struct {
	Exclude []string `json:"exclude,omitempty"`
}

type Library struct {
	Name      string            `json:"name"`
	URL       string            `json:"url,omitempty"` // maven base for loader profiles
	SHA1      string            `json:"sha1,omitempty"`
	Size      int64             `json:"size,omitempty"`
	Downloads *LibraryDownloads `json:"downloads,omitempty"`
	Natives   map[string]string `json:"natives,omitempty"`
	Rules     []Rule            `json:"rules,omitempty"`
	Extract   *ExtractRules     `json:"extract,omitempty"`
}

const DefaultLibraryBase = "https://libraries.minecraft.net/"

// MainArtifact returns the library's jar, deriving it from the maven
// coordinate when the descriptor only lists name and repository.
func (l *Library) MainArtifact() *Artifact {
	if l.Downloads != nil && l.Downloads.Artifact != nil {
		a := *l.Downloads.Artifact
		if a.Path == "" && l.Name != "" {
			if p, err := utils.MavenPath(l.Name); err == nil {
				a.Path = p
			}
		}
		return &a
	}
	// natives-only entries (lwjgl-platform and friends) carry no main jar
	if l.Downloads != nil || l.Name == "" || len(l.Natives) > 0 {
		return nil
	}
	base := l.URL
	if base == "" {
		base = DefaultLibraryBase
	}
	url, path, err := utils.BuildDownloadURLFromMavenPath(base, l.Name)
	if err != nil {
		return nil
	}
	return &Artifact{Path: path, URL: url, SHA1: l.SHA1, Size: l.Size}
}

// NativeArtifact returns the classifier artifact registered under key.
func (l *Library) NativeArtifact(classifier string) *Artifact {
	if classifier == "" {
		return nil
	}
	if l.Downloads != nil && l.Downloads.Classifiers != nil {
		if a, ok := l.Downloads.Classifiers[classifier]; ok && a != nil {
			return a
		}
	}
	if l.Name == "" {
		return nil
	}
	base := l.URL
	if base == "" {
		base = DefaultLibraryBase
	}
	url, path, err := utils.BuildDownloadURLFromMavenPath(base, l.Name+":"+classifier)
	if err != nil {
		return nil
	}
	return &Artifact{Path: path, URL: url}
}

// DedupKey is group:artifact[:classifier], version stripped.
func (l *Library) DedupKey() string {
	parts := strings.Split(l.Name, ":")
	if len(parts) < 3 {
		return l.Name
	}
	key := parts[0] + ":" + parts[1]
	if len(parts) > 3 {
		key += ":" + parts[3]
	}
	return key
}

/////////////////////////////////////////////////////////////////////
// AssetIndex: hashed objects referenced by assets/indexes/<id>.json
/////////////////////////////////////////////////////////////////////

type AssetIndex struct {
	Objects map[string]AssetObject `json:"objects"`
}

type AssetObject struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// RelPath is the object's location under assets/objects.
func (o AssetObject) RelPath() string {
	return o.Hash[:2] + "/" + o.Hash
}

func ParseAssetIndex(source string, data []byte) (*AssetIndex, error) {
	var idx AssetIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, &errs.InvalidManifestDataError{Source: source, Err: err}
	}
	for name, o := range idx.Objects {
		if len(o.Hash) < 3 {
			return nil, &errs.InvalidManifestDataError{Source: source, Reason: fmt.Sprintf("asset %q has an invalid hash", name)}
		}
	}
	return &idx, nil
}
