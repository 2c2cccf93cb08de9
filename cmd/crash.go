package cmd

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"limeal.fr/mclaunch/pkg/engine"
)

var printReport bool

var crashReportCmd = &cobra.Command{
	Use:   "crash-report",
	Short: "Show the latest crash report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(engine.Options{})
		if err != nil {
			return err
		}
		defer s.Close()

		path, err := s.LatestCrashReport()
		if err != nil {
			return err
		}
		if path == "" {
			pterm.Info.Println("No crash report")
			return nil
		}

		fmt.Println(path)
		if printReport {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(crashReportCmd)
	crashReportCmd.Flags().BoolVarP(&printReport, "print", "p", false, "Print the report content")
}
