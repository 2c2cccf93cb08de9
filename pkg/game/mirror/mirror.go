package mirror

import (
	"net/url"
	"strings"
)

// Profile is a named download source. Official never rewrites anything.
type Profile struct {
	Name    string
	BaseURL string
}

var (
	BMCLAPI  = Profile{Name: "BMCLAPI", BaseURL: "https://bmclapi2.bangbang93.com"}
	MCBBS    = Profile{Name: "MCBBS", BaseURL: "https://download.mcbbs.net"}
	Official = Profile{Name: "Official", BaseURL: "https://launchermeta.mojang.com"}
)

var PROFILES = map[string]Profile{
	strings.ToLower(BMCLAPI.Name):  BMCLAPI,
	strings.ToLower(MCBBS.Name):    MCBBS,
	strings.ToLower(Official.Name): Official,
}

// Lookup resolves a profile by name (case-insensitive); unknown names fall
// back to Official. A custom base URL (http, https, file or sftp) becomes
// an ad-hoc profile.
func Lookup(name string) Profile {
	if p, ok := PROFILES[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	if u, err := url.Parse(name); (err == nil && u.Scheme != "" && u.Host != "") || strings.HasPrefix(name, "file://") {
		return Profile{Name: name, BaseURL: strings.TrimSuffix(name, "/")}
	}
	return Official
}

func Names() []string {
	return []string{BMCLAPI.Name, MCBBS.Name, Official.Name}
}

func (p Profile) IsOfficial() bool {
	return p.BaseURL == Official.BaseURL
}

// ManifestURL is where the top-level version manifest lives for p.
func (p Profile) ManifestURL() string {
	return p.BaseURL + "/mc/game/version_manifest.json"
}

// Maven is the mirror's maven root.
func (p Profile) Maven() string {
	if p.IsOfficial() {
		return "https://libraries.minecraft.net"
	}
	return p.BaseURL + "/maven"
}

const AssetsBase = "https://resources.download.minecraft.net"

type hostRule struct {
	host       string
	pathPrefix string // stripped before re-rooting
	maven      bool
	assets     bool
}

// Order matters: longer path prefixes for the same host come first.
var hostRules = []hostRule{
	{host: "launchermeta.mojang.com"},
	{host: "piston-meta.mojang.com"},
	{host: "launcher.mojang.com"},
	{host: "piston-data.mojang.com"},
	{host: "libraries.minecraft.net", maven: true},
	{host: "maven.fabricmc.net", maven: true},
	{host: "maven.minecraftforge.net", maven: true},
	{host: "files.minecraftforge.net", pathPrefix: "/maven", maven: true},
	{host: "resources.download.minecraft.net", assets: true},
}

// Rewrite re-roots a canonical upstream URL onto the mirror. Only exact
// hostnames are matched; anything else is returned unchanged, which also
// makes Rewrite idempotent.
func (p Profile) Rewrite(raw string) string {
	if p.IsOfficial() {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	host := strings.ToLower(u.Hostname())
	for _, rule := range hostRules {
		if host != rule.host {
			continue
		}
		path := u.Path
		if rule.pathPrefix != "" {
			if !strings.HasPrefix(path, rule.pathPrefix+"/") {
				continue
			}
			path = strings.TrimPrefix(path, rule.pathPrefix)
		}

		base := p.BaseURL
		switch {
		case rule.maven:
			base = p.Maven()
		case rule.assets:
			base = p.BaseURL + "/assets"
		}
		out := base + path
		if u.RawQuery != "" {
			out += "?" + u.RawQuery
		}
		return out
	}

	return raw
}

// AssetObjectURL is the canonical location of a hashed asset object.
func AssetObjectURL(hash string) string {
	return AssetsBase + "/" + hash[:2] + "/" + hash
}

// Candidates lists the sources to try for a canonical URL: the mirror
// copy first, then the canonical URL itself.
func (p Profile) Candidates(raw string) []string {
	rewritten := p.Rewrite(raw)
	if rewritten == raw {
		return []string{raw}
	}
	return []string{rewritten, raw}
}
