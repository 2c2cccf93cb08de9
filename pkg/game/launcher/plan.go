package launcher

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"limeal.fr/mclaunch/pkg/game/folder"
	"limeal.fr/mclaunch/pkg/game/manifests"
	"limeal.fr/mclaunch/pkg/game/rules"
)

const (
	DefaultMaxHeapMB  = 2048
	DefaultMinHeapMB  = 1024
	MinimumHeapFloor  = 512
	RecommendedHeapMB = 1024

	VanillaMainClass = "net.minecraft.client.main.Main"
	FabricMainClass  = "net.fabricmc.loader.impl.launch.knot.KnotClient"
	ForgeMainClass   = "net.minecraft.launchwrapper.Launch"
	ForgeTweakClass  = "net.minecraftforge.fml.common.launcher.FMLTweaker"

	LauncherName    = "mclaunch"
	LauncherVersion = "1.0.0"
)

var variantProperties = map[manifests.Variant][]string{
	manifests.VariantVanilla: {"-Dfml.ignoreInvalidMinecraftCertificates=true", "-Dfml.ignorePatchDiscrepancies=true"},
	manifests.VariantFabric:  {"-Dfabric.skipMcProvider=true"},
	manifests.VariantForge:   {"-Dfml.ignoreInvalidMinecraftCertificates=true", "-Dfml.ignorePatchDiscrepancies=true"},
}

// RuntimeConfig is what the user controls about a launch.
type RuntimeConfig struct {
	JavaPath string
	Username string

	// MaxMemory is the requested maximum heap in megabytes, as typed.
	MaxMemory string

	ExtraJVMArgs []string
}

// LaunchPlan is everything needed to start the game, in order.
type LaunchPlan struct {
	JavaPath  string
	VersionID string
	Variant   manifests.Variant
	MainClass string
	MaxHeapMB int
	MinHeapMB int
	JVMArgs   []string
	Classpath []string
	GameArgs  []string
	WorkDir   string

	// Warnings are recoverable problems found while building.
	Warnings []string
}

// Args is the full java argument vector.
func (p *LaunchPlan) Args() []string {
	args := []string{
		fmt.Sprintf("-Xmx%dM", p.MaxHeapMB),
		fmt.Sprintf("-Xms%dM", p.MinHeapMB),
	}
	args = append(args, p.JVMArgs...)
	args = append(args, "-cp", strings.Join(p.Classpath, string(os.PathListSeparator)))
	args = append(args, p.MainClass)
	return append(args, p.GameArgs...)
}

func (p *LaunchPlan) Command() Command {
	return Command{Path: p.JavaPath, Args: p.Args(), Dir: p.WorkDir}
}

// ParseHeap reads the requested maximum heap. Invalid values fall back to
// the defaults with a warning instead of failing.
func ParseHeap(requested string) (maxMB, minMB int, warnings []string) {
	maxMB, err := strconv.Atoi(strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(requested)), "M"))
	if err != nil || maxMB <= 0 {
		return DefaultMaxHeapMB, DefaultMinHeapMB, []string{
			fmt.Sprintf("invalid memory value %q, using default %dMB", requested, DefaultMaxHeapMB),
		}
	}
	if maxMB < RecommendedHeapMB {
		warnings = append(warnings, fmt.Sprintf("%dMB is below the recommended %dMB", maxMB, RecommendedHeapMB))
	}

	minMB = max(MinimumHeapFloor, maxMB/2)
	if minMB > maxMB {
		minMB = maxMB
	}
	return maxMB, minMB, warnings
}

// mainClassFor applies the variant override. Loader profiles that name
// their own entry point keep it.
func mainClassFor(variant manifests.Variant, declared string) string {
	overridable := declared == "" || declared == VanillaMainClass
	switch {
	case variant == manifests.VariantFabric && overridable:
		return FabricMainClass
	case variant == manifests.VariantForge && overridable:
		return ForgeMainClass
	case declared == "":
		return VanillaMainClass
	}
	return declared
}

/////////////////////////////////////////////////////////////////////
// Build
/////////////////////////////////////////////////////////////////////

// Build assembles the launch plan for an already merged descriptor. It
// only reads the file system to pick classpath entries that exist.
func Build(g *folder.GameFolder, d *manifests.VersionDescriptor, env rules.Env, cfg RuntimeConfig) (*LaunchPlan, error) {
	cp, err := g.GetCP(d, env)
	if err != nil {
		return nil, err
	}

	variant := DetectVariant(d)
	maxMB, minMB, warnings := ParseHeap(cfg.MaxMemory)

	javaPath := cfg.JavaPath
	if javaPath == "" {
		javaPath = javaBinary()
	}
	username := cfg.Username
	if username == "" {
		username = "Player"
	}

	plan := &LaunchPlan{
		JavaPath:  javaPath,
		VersionID: d.ID,
		Variant:   variant,
		MainClass: mainClassFor(variant, d.MainClass),
		MaxHeapMB: maxMB,
		MinHeapMB: minMB,
		Classpath: cp,
		WorkDir:   g.GetPath(),
		Warnings:  warnings,
	}

	nativesDir := g.NativesDir(d.ID)
	plan.JVMArgs = []string{
		"-Djava.library.path=" + nativesDir,
		"-Dminecraft.client.jar=" + g.JarPath(d.JarID()),
	}
	plan.JVMArgs = append(plan.JVMArgs, variantProperties[variant]...)

	plan.GameArgs = []string{
		"--username", username,
		"--version", d.ID,
		"--gameDir", g.GetPath(),
		"--assetsDir", g.GetDirectory(folder.DirectoryAssets),
		"--assetIndex", d.AssetsID(),
		"--accessToken", "0",
		"--userType", "legacy",
		"--versionType", "release",
	}

	switch {
	case variant == manifests.VariantVanilla:
		plan.GameArgs = append(plan.GameArgs, "--width", "854", "--height", "480")
	case variant == manifests.VariantForge && plan.MainClass == ForgeMainClass:
		plan.GameArgs = append(plan.GameArgs, "--tweakClass", ForgeTweakClass)
	}

	if variant != manifests.VariantVanilla && d.Arguments != nil {
		ph := placeholders(g, d, plan, username)
		plan.JVMArgs = append(plan.JVMArgs, formatArgs(d.Arguments.JVM, env, ph)...)
		plan.GameArgs = append(plan.GameArgs, formatArgs(d.Arguments.Game, env, ph)...)
	}
	plan.JVMArgs = append(plan.JVMArgs, cfg.ExtraJVMArgs...)

	return plan, nil
}

/////////////////////////////////////////////////////////////////////
// Loader profile arguments
/////////////////////////////////////////////////////////////////////

func placeholders(g *folder.GameFolder, d *manifests.VersionDescriptor, plan *LaunchPlan, username string) map[string]string {
	return map[string]string{
		"auth_player_name":    username,
		"version_name":        d.ID,
		"game_directory":      g.GetPath(),
		"assets_root":         g.GetDirectory(folder.DirectoryAssets),
		"assets_index_name":   d.AssetsID(),
		"auth_uuid":           "00000000-0000-0000-0000-000000000000",
		"auth_access_token":   "0",
		"clientid":            "0",
		"auth_xuid":           "0",
		"user_type":           "legacy",
		"version_type":        "release",
		"natives_directory":   g.NativesDir(d.ID),
		"library_directory":   g.GetDirectory(folder.DirectoryLibraries),
		"classpath_separator": string(os.PathListSeparator),
		"classpath":           strings.Join(plan.Classpath, string(os.PathListSeparator)),
		"launcher_name":       LauncherName,
		"launcher_version":    LauncherVersion,
	}
}

func formatArg(arg string, ph map[string]string) string {
	for key, value := range ph {
		arg = strings.ReplaceAll(arg, "${"+key+"}", value)
	}
	return arg
}

// formatArgs expands the rule-active entries of a loader profile's own
// argument list. Classpath flags are dropped since the launcher sets -cp.
func formatArgs(args []manifests.Argument, env rules.Env, ph map[string]string) []string {
	out := []string{}
	skipNext := false
	for _, a := range args {
		if ok, err := rules.ShouldInclude(a.Rules, env); err != nil || !ok {
			continue
		}
		for _, v := range a.Values {
			if skipNext {
				skipNext = false
				continue
			}
			if v == "-cp" || v == "-classpath" {
				skipNext = true
				continue
			}
			out = append(out, formatArg(v, ph))
		}
	}
	return out
}
