package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"limeal.fr/mclaunch/pkg/engine"
	"limeal.fr/mclaunch/pkg/game/loaders"
)

var listLoaders bool

var fabricCmd = &cobra.Command{
	Use:   "fabric <base_version> [loader_version]",
	Short: "Install the fabric loader on top of a version",
	Long: `Install the fabric loader on top of a version.

Arguments:
  <base_version>    The minecraft version fabric is installed on.
  [loader_version]  The fabric loader version (default: latest stable).

The base version is installed first when it is missing.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(engine.Options{})
		if err != nil {
			return err
		}
		defer s.Close()

		if listLoaders {
			versions, err := s.ListFabric(cmd.Context())
			if err != nil {
				return err
			}
			printLoaders(versions)
			return nil
		}

		loader := s.cfg.FabricVersion
		if len(args) > 1 {
			loader = args[1]
		}
		id, err := s.InstallFabric(cmd.Context(), args[0], loader)
		s.progress.Stop()
		if err != nil {
			return err
		}

		pterm.Success.Println("Installed", id)
		s.rememberVersion(id)
		return nil
	},
}

var forgeCmd = &cobra.Command{
	Use:   "forge <base_version> [forge_version]",
	Short: "Install forge on top of a version",
	Long: `Install forge on top of a version.

Arguments:
  <base_version>   The minecraft version forge is installed on.
  [forge_version]  The forge build (default: the newest listed build).

The forge installer is downloaded to the game directory and run with java.
It is kept there when it fails.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(engine.Options{})
		if err != nil {
			return err
		}
		defer s.Close()

		if listLoaders {
			versions, err := s.ListForge(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printLoaders(versions)
			return nil
		}

		version := s.cfg.ForgeVersion
		if len(args) > 1 {
			version = args[1]
		}
		id, err := s.InstallForge(cmd.Context(), args[0], version)
		s.progress.Stop()
		if err != nil {
			return err
		}

		pterm.Success.Println("Installed", id)
		s.rememberVersion(id)
		return nil
	},
}

func printLoaders(versions []loaders.LoaderVersion) {
	rows := make([][]string, len(versions))
	for i, v := range versions {
		stable := ""
		if v.Stable {
			stable = "yes"
		}
		rows[i] = []string{v.Version, stable}
	}
	printColumns([]string{"VERSION:", "STABLE:"}, rows)
}

func init() {
	rootCmd.AddCommand(fabricCmd)
	rootCmd.AddCommand(forgeCmd)
	fabricCmd.Flags().BoolVarP(&listLoaders, "list", "l", false, "List the available loader versions instead of installing")
	forgeCmd.Flags().BoolVarP(&listLoaders, "list", "l", false, "List the available forge builds instead of installing")
}
