package main

import (
	"context"
	"errors"
	"os"

	"github.com/aretw0/loadkit/internal/cli"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load <path|url>...",
	Short: "Load a dataset and print its events",
	Long: `Loads the given files or URLs as one dataset and prints every load event.
A single .json item is loaded as a saved state document instead.

Press Ctrl+X (or Ctrl+C) to abort the load.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		headers, _ := cmd.Flags().GetStringArray("header")
		charset, _ := cmd.Flags().GetString("charset")
		quiet, _ := cmd.Flags().GetBool("quiet")

		out := termenv.NewOutput(os.Stdout)
		logger := cli.NewLogger(cfg, true)

		res, err := cli.RunLoad(cmd.Context(), cfg, logger, cli.LoadOptions{
			Targets: args,
			Headers: headers,
			Charset: charset,
			Stdin:   os.Stdin,
			Out:     out,
			Profile: out.Profile,
			Quiet:   quiet,
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
		if res.Record != nil && !quiet {
			out.WriteString(string(res.Record.Outcome) + "\n")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().StringArrayP("header", "H", nil, "Request header for URL loads, as name=value (repeatable)")
	loadCmd.Flags().String("charset", "", "Default character set of the dataset")
	loadCmd.Flags().BoolP("quiet", "q", false, "Do not print events")
}
