package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"limeal.fr/mclaunch/pkg/engine"
)

var assumeYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <version>",
	Short: "Delete an installed version",
	Long: `Delete an installed version.

Only versions/<version> is removed. Libraries and assets shared with other
versions stay in place.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(engine.Options{})
		if err != nil {
			return err
		}
		defer s.Close()

		if !assumeYes {
			ok, err := pterm.DefaultInteractiveConfirm.Show(fmt.Sprintf("Delete %s?", args[0]))
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}

		if err := s.DeleteVersion(args[0]); err != nil {
			return err
		}
		if s.cfg.LastVersion == args[0] {
			s.rememberVersion("")
		}
		pterm.Success.Println("Deleted", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
}
