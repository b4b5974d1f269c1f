package main

import (
	"os"

	"github.com/aretw0/loadkit/internal/cli"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the load journal",
	Long: `Lists finished image loads, newest first. The journal is kept in memory per process
unless a redis address is configured, so this is mostly useful with redis.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		jsonMode, _ := cmd.Flags().GetBool("json")
		wrap, _ := cmd.Flags().GetInt("wrap")

		return cli.RunHistory(cmd.Context(), cfg, cli.NewLogger(cfg, true), cli.HistoryOptions{
			Limit: limit,
			JSON:  jsonMode,
			Wrap:  wrap,
			Out:   os.Stdout,
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of records (0 for all)")
	historyCmd.Flags().Bool("json", false, "Print records as JSON")
	historyCmd.Flags().Int("wrap", 0, "Word wrap of the rendered table")
}
