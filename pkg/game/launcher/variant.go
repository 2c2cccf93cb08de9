package launcher

import (
	"strings"

	"limeal.fr/mclaunch/pkg/game/manifests"
)

// DetectVariant prefers the tag written by the loader installers and
// falls back to sniffing the id for versions installed by other tools.
func DetectVariant(d *manifests.VersionDescriptor) manifests.Variant {
	switch d.Variant {
	case manifests.VariantFabric, manifests.VariantForge, manifests.VariantVanilla:
		return d.Variant
	}
	return VariantFromID(d.ID)
}

func VariantFromID(id string) manifests.Variant {
	lower := strings.ToLower(id)
	switch {
	case strings.Contains(lower, "fabric"):
		return manifests.VariantFabric
	case strings.Contains(lower, "forge"):
		return manifests.VariantForge
	}
	return manifests.VariantVanilla
}
