package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teilomillet/promptopt/optimizer"
	"github.com/teilomillet/promptopt/server"
)

// serveCmd starts the HTTP API server
func serveCmd() *cobra.Command {
	var (
		addr    string
		profile string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Endpoints:
  POST /api/v1/optimize  score, analyze and improve a prompt
  POST /api/v1/score     score a prompt
  GET  /healthz          liveness
  GET  /metrics          Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.HTTPAddr
			}
			p, err := loadProfile(profile)
			if err != nil {
				return err
			}
			factory := func() (*optimizer.Optimizer, error) {
				return buildOptimizer(llmClient, p)
			}
			return runServer(cmd.Context(), addr, server.NewServer(factory, logger))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: HTTP_ADDR)")
	cmd.Flags().StringVar(&profile, "profile", "", "YAML profile applied to every request")
	return cmd
}

func runServer(ctx context.Context, addr string, srv *server.Server) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
