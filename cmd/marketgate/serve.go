package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, logger, err := newContainer()
		if err != nil {
			return err
		}
		defer func() {
			if err := c.Close(); err != nil {
				logger.Error("shutdown error", "err", err)
			}
		}()

		ctx := cmd.Context()
		if serveMigrate {
			if err := c.Migrate(ctx); err != nil {
				return err
			}
		}
		if _, err := c.SeedGate(ctx); err != nil {
			return err
		}

		cfg := c.Config()
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           c.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			logger.Info("HTTP server listening",
				"addr", cfg.HTTPAddr,
				"gate_mode", cfg.GateMode,
				"cache_backend", cfg.CacheBackend,
				"flush_policy", string(cfg.Policy()),
			)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
		case err, ok := <-serveErr:
			if ok {
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "create the schema before serving")
}
