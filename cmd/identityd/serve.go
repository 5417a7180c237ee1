// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/identityd/internal/config"
	"github.com/holomush/identityd/internal/httpapi"
	"github.com/holomush/identityd/internal/observability"
	"github.com/holomush/identityd/internal/query"
)

// serveFlagKeys maps serve flags onto config keys.
var serveFlagKeys = map[string]string{
	"http-addr":    "http.addr",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the identity HTTP API",
		Long: `Run the identity HTTP API together with the metrics and health
endpoints until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts, serveFlagKeys)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, logger, nil)
		},
	}

	cmd.Flags().String("http-addr", "", "API listen address (overrides http.addr)")
	cmd.Flags().String("metrics-addr", "", "metrics/health listen address, empty disables (overrides metrics.addr)")
	cmd.Flags().String("log-format", "", "log format: json or text (overrides log.format)")
	cmd.Flags().String("log-level", "", "log level (overrides log.level)")

	return cmd
}

// runServe serves until ctx is cancelled or a listener fails. ready, when
// non-nil, receives the bound API address once the server accepts requests.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, ready chan<- string) error {
	registry := observability.NewRegistry()

	a, err := newApp(ctx, cfg, logger, registry)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var workers sync.WaitGroup
	if a.sweeper != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			a.sweeper.Run(ctx)
		}()
	}

	var obsServer *observability.Server
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, registry, a.checks, logger)
		obsErrCh, startErr := obsServer.Start()
		if startErr != nil {
			cancel()
			workers.Wait()
			return startErr
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
	}

	listener, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		cancel()
		stopObservability(obsServer, cfg, logger)
		workers.Wait()
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	apiServer := &http.Server{
		Handler: httpapi.NewRouter(httpapi.Deps{
			Identity: a.service,
			Queries:  query.NewAnswerer(a.clock),
			Metrics:  observability.NewHTTPMetrics(registry),
			Logger:   logger,
		}),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	apiErrCh := make(chan error, 1)
	go func() {
		defer close(apiErrCh)
		if serveErr := apiServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			apiErrCh <- serveErr
		}
	}()

	logger.Info("identityd ready", "http_addr", listener.Addr().String())
	if ready != nil {
		ready <- listener.Addr().String()
	}

	var result error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr, ok := <-apiErrCh:
		if ok {
			result = oops.Code("HTTP_SERVE_FAILED").Wrap(serveErr)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping API server", "error", err)
	}
	stopObservability(obsServer, cfg, logger)

	cancel()
	workers.Wait()
	logger.Info("shutdown complete")
	return result
}

func stopObservability(server *observability.Server, cfg *config.Config, logger *slog.Logger) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports a failure.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
