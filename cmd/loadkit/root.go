package main

import (
	"fmt"
	"os"

	"github.com/aretw0/loadkit/internal/config"
	"github.com/spf13/cobra"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "loadkit",
	Short: "loadkit loads imaging datasets from files or URLs",
	Long: `loadkit drives pluggable load backends for imaging datasets and saved state documents,
relaying a uniform stream of load events. It can run one load from the terminal, or serve
the controller over HTTP or the Model Context Protocol.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if !cmd.Flags().Changed("config") {
			path = config.Find(".")
		}

		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}

		if cmd.Flags().Changed("debug") {
			cfg.Debug, _ = cmd.Flags().GetBool("debug")
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
			return cfg.Validate()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", config.DefaultFile, "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}
