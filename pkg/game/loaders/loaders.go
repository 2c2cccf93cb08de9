package loaders

import (
	"sort"

	"github.com/buger/jsonparser"
	"github.com/tidwall/gjson"

	"limeal.fr/mclaunch/pkg/errs"
	"limeal.fr/mclaunch/pkg/game/manifests"
)

// LoaderVersion is one entry of a loader's version listing. URL is only
// set when the listing names the installer artifact directly.
type LoaderVersion struct {
	Version string
	Stable  bool
	Build   int64
	URL     string
}

// parseListing reads a JSON array of loader entries without a full
// schema; the listings carry many fields the installers never use.
func parseListing(source string, data []byte) ([]LoaderVersion, error) {
	if !gjson.ValidBytes(data) {
		return nil, &errs.InvalidManifestDataError{Source: source, Reason: "listing is not valid JSON"}
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, &errs.InvalidManifestDataError{Source: source, Reason: "listing is not an array"}
	}

	versions := []LoaderVersion{}
	root.ForEach(func(_, entry gjson.Result) bool {
		v := entry.Get("version").String()
		if v == "" {
			return true
		}
		versions = append(versions, LoaderVersion{
			Version: v,
			Stable:  entry.Get("stable").Bool(),
			Build:   entry.Get("build").Int(),
			URL:     entry.Get("url").String(),
		})
		return true
	})
	return versions, nil
}

// LatestStable returns the first stable entry; listings are newest first.
func LatestStable(versions []LoaderVersion) (LoaderVersion, bool) {
	for _, v := range versions {
		if v.Stable {
			return v, true
		}
	}
	return LoaderVersion{}, false
}

func sortByBuild(versions []LoaderVersion) {
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].Build > versions[j].Build
	})
}

// tagVariant records which loader produced a descriptor so the launcher
// does not have to guess from the id.
func tagVariant(raw []byte, variant manifests.Variant) ([]byte, error) {
	return jsonparser.Set(raw, []byte(`"`+string(variant)+`"`), "launcherVariant")
}
