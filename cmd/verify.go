package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"limeal.fr/mclaunch/pkg/engine"
)

var (
	repairFiles bool
	checksums   bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <version>",
	Short: "Check that an installed version is complete",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(engine.Options{Checksums: checksums})
		if err != nil {
			return err
		}
		defer s.Close()

		missing, err := s.Verify(args[0])
		if err != nil {
			return err
		}
		if len(missing) == 0 {
			pterm.Success.Println(args[0], "is complete")
			return nil
		}

		rows := make([][]string, len(missing))
		for i, f := range missing {
			state := "missing"
			if f.Corrupt {
				state = "corrupt"
			}
			rows[i] = []string{string(f.Kind), f.Ref, state}
		}
		printColumns([]string{"KIND:", "FILE:", "STATE:"}, rows)

		if !repairFiles {
			pterm.Warning.Printfln("%d file(s) missing, run with --repair to fetch them", len(missing))
			return nil
		}

		result, err := s.Repair(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if result.Remaining() > 0 {
			pterm.Warning.Printfln("Repaired %d file(s), %d still missing", len(result.Repaired), result.Remaining())
			return nil
		}
		pterm.Success.Printfln("Repaired %d file(s)", len(result.Repaired))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().BoolVarP(&repairFiles, "repair", "r", false, "Download the missing files")
	verifyCmd.Flags().BoolVar(&checksums, "checksums", false, "Also compare SHA-1 checksums")
}
