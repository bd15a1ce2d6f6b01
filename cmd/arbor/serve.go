package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/arbor/internal/cli"
	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the arbor document service, exposing a JSON API for drag gestures,
direct moves and reconciliation, plus a Server-Sent Events stream of tree diffs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		backend, err := cli.OpenBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		var metrics *observability.Metrics
		if cfg.Metrics.Enabled {
			metrics = observability.NewMetrics(nil)
		}
		ws := cli.NewWorkspace(cfg, backend, logger, metrics)

		servers := []*http.Server{{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: httpAdapter.NewHandler(ws, httpAdapter.WithLogger(logger)),
		}}
		if metrics != nil {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			servers = append(servers, &http.Server{
				Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
				Handler: mux,
			})
		}

		// Channel to listen for errors coming from the listeners.
		serverErrors := make(chan error, len(servers))
		for _, srv := range servers {
			go func(srv *http.Server) {
				logger.Info("Starting arbor server", "addr", srv.Addr, "store", cfg.Store.Backend)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErrors <- err
				}
			}(srv)
		}

		select {
		case err := <-serverErrors:
			shutdown(logger, servers)
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			logger.Info("Start shutdown...", "signal", ctx.Signal())
			shutdown(logger, servers)
			logger.Info("Arbor server stopped gracefully")
			return nil
		}
	},
}

// shutdown gives outstanding requests a deadline, then forces the listeners closed.
func shutdown(logger *slog.Logger, servers []*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "addr", srv.Addr, "timeout", shutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				logger.Error("Error killing server", "addr", srv.Addr, "err", err)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides server.port)")
}
