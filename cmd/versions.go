package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"limeal.fr/mclaunch/pkg/engine"
	"limeal.fr/mclaunch/pkg/game/launcher"
)

var (
	remoteVersions bool
	allVersions    bool
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List installed or remote versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(engine.Options{})
		if err != nil {
			return err
		}
		defer s.Close()

		if remoteVersions {
			ids, err := s.ListRemote(cmd.Context(), !allVersions)
			if err != nil {
				return err
			}
			rows := make([][]string, len(ids))
			for i, id := range ids {
				installed := ""
				if s.Folder.HasVersion(id) {
					installed = "yes"
				}
				rows[i] = []string{id, installed}
			}
			printColumns([]string{"VERSION:", "INSTALLED:"}, rows)
			return nil
		}

		ids, err := s.ListInstalled()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			pterm.Info.Println("No version installed in", s.Folder.GetPath())
			return nil
		}
		rows := make([][]string, len(ids))
		for i, id := range ids {
			variant, java := "?", "?"
			if d, err := s.Folder.LoadDescriptor(id); err == nil {
				variant = string(launcher.DetectVariant(d))
				java = fmt.Sprintf("java %d", launcher.RecommendedJavaMajor(d))
			}
			last := ""
			if id == s.cfg.LastVersion {
				last = "*"
			}
			rows[i] = []string{id, variant, java, last}
		}
		printColumns([]string{"VERSION:", "VARIANT:", "JAVA:", "LAST:"}, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionsCmd)
	versionsCmd.Flags().BoolVarP(&remoteVersions, "remote", "r", false, "List versions available from the mirror")
	versionsCmd.Flags().BoolVarP(&allVersions, "all", "a", false, "Include snapshots and old versions in the remote list")
}
