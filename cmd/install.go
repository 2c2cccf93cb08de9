package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"limeal.fr/mclaunch/pkg/engine"
)

var installCmd = &cobra.Command{
	Use:   "install <version>",
	Short: "Install a minecraft version",
	Long: `Install a minecraft version.

Arguments:
  <version>  The version id to install (e.g. "1.20.1").

The descriptor, client jar, asset index, libraries and natives are downloaded
through the configured mirror. Libraries that fail are skipped and reported
by "verify".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(engine.Options{})
		if err != nil {
			return err
		}
		defer s.Close()

		report, err := s.InstallVersion(cmd.Context(), args[0])
		s.progress.Stop()
		if err != nil {
			return err
		}

		pterm.Success.Printfln("Installed %s (%d libraries, %d natives, %d assets)", args[0], len(report.Libraries), len(report.Natives), report.Assets)
		s.rememberVersion(args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
