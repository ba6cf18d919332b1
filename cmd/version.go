package cmd

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

const version = "v0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "display version",
	Run: func(cmd *cobra.Command, args []string) {
		long, err := cmd.Flags().GetBool("long")
		cobra.CheckErr(err)
		out := cmd.OutOrStdout()
		fmt.Fprint(out, version)
		if long {
			if info, ok := debug.ReadBuildInfo(); ok {
				for _, setting := range info.Settings {
					if strings.HasPrefix(setting.Key, "vcs") {
						fmt.Fprint(out, " "+setting.Value)
					}
				}
			}
		}
		fmt.Fprintln(out)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("long", "l", false, "display vcs details")
}
