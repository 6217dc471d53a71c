package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/takutakahashi/cogs/pkg/metrics"
	"github.com/takutakahashi/cogs/pkg/server"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd shares one engine, and so one token, across HTTP clients
var ServeCmd = NewServeCmd()

// NewServeCmd returns a fresh serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the translation HTTP server",
		Long:  "Serve GET /translate, /health and /metrics from a single engine so every request reuses one cached token",
		RunE:  runServe,
	}
	cmd.Flags().StringP("listen", "l", ":8080", "Address to listen on")
	addCommonFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	eng := newEngine(cfg, log, metrics.NewCollectorWithRegistry(registry))
	srv := server.New(eng, cfg.TranslateURL, registry, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Listen)
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("[SERVER] shutdown signal received, shutting down gracefully")
	if err := srv.Shutdown(shutdownTimeout); err != nil {
		log.Error("[SERVER] shutdown failed", "error", err)
		return err
	}
	log.Info("[SERVER] shutdown complete")
	return nil
}
