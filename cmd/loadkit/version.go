package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/loadkit"
	"github.com/aretw0/loadkit/internal/presentation/tui"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of loadkit",
	Run: func(cmd *cobra.Command, args []string) {
		short, _ := cmd.Flags().GetBool("short")
		if short {
			fmt.Printf("loadkit version %s\n", strings.TrimSpace(loadkit.Version))
			return
		}
		out := termenv.NewOutput(os.Stdout)
		out.WriteString(tui.Banner(out.Profile, loadkit.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("short", false, "Print only the version line")
}
