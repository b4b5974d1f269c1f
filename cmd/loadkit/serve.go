package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/loadkit/internal/cli"
	httpAdapter "github.com/aretw0/loadkit/pkg/adapters/http"
	"github.com/aretw0/loadkit/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the load controller in server mode, exposing a JSON API over HTTP.
Load events are streamed with Server-Sent Events on /events and metrics are exposed
on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.HTTPAddr, _ = cmd.Flags().GetString("addr")
		}
		logger := cli.NewLogger(cfg, false)

		// Create a context that cancels on interrupt signal
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := cli.NewRuntime(ctx, cfg, logger, cli.RuntimeOptions{})
		if err != nil {
			return fmt.Errorf("error initializing loadkit: %w", err)
		}
		defer rt.Close()

		if cfg.FileRoot == "" {
			logger.Warn("file loads are disabled, set file_root to enable them")
		}
		opts := []httpAdapter.Option{httpAdapter.WithLogger(logger), httpAdapter.WithRedactor(rt.Redactor)}
		if cfg.Metrics {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			observability.NewMetrics(reg).Attach(rt.Controller)
			opts = append(opts, httpAdapter.WithMetrics(reg))
		}

		handler := httpAdapter.NewHandler(rt.Controller, opts...)
		if err := httpAdapter.ListenAndServe(ctx, cfg.HTTPAddr, handler, logger); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		// abort what is still running
		<-rt.Controller.AbortLoad()
		logger.Info("loadkit server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
}
