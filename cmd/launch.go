package cmd

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"limeal.fr/mclaunch/pkg/engine"
	"limeal.fr/mclaunch/pkg/errs"
)

var (
	memory   string
	username string
	javaPath string
	dryRun   bool
)

var launchCmd = &cobra.Command{
	Use:   "launch [version]",
	Short: "Launch an installed version",
	Long: `Launch an installed version.

Arguments:
  [version]  The version to launch (default: the last installed or launched one).

Missing files are downloaded again before the launch unless auto_repair is off.
The game output is written to logs/launcher_output.log.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(engine.Options{})
		if err != nil {
			return err
		}
		defer s.Close()

		version := s.cfg.LastVersion
		if len(args) > 0 {
			version = args[0]
		}
		if version == "" {
			return fmt.Errorf("no version given and no version launched before")
		}
		if memory != "" {
			s.cfg.Memory = memory
		}
		if username != "" {
			s.cfg.Username = username
		}
		if javaPath != "" {
			s.cfg.JavaPath = javaPath
		}

		if dryRun {
			plan, err := s.Prepare(cmd.Context(), version)
			if err != nil {
				return err
			}
			fmt.Println(plan.Command().String())
			return nil
		}

		s.rememberVersion(version)

		pterm.Info.Println("Launching", version)
		err = s.Launch(cmd.Context(), version)
		var launchErr *errs.ProcessLaunchError
		if errors.As(err, &launchErr) && launchErr.CrashReport != "" {
			pterm.Error.Println("The game crashed, see", launchErr.CrashReport)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(launchCmd)
	launchCmd.Flags().StringVarP(&memory, "memory", "x", "", "Maximum heap in MB (e.g. 4096)")
	launchCmd.Flags().StringVarP(&username, "username", "u", "", "The offline player name")
	launchCmd.Flags().StringVarP(&javaPath, "java", "j", "", "The path to the java executable")
	launchCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the java command instead of running it")
}
