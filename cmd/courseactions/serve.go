package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/artiefy/course-actions/internal/handler"
	"github.com/artiefy/course-actions/pkg/logger"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve invocation events over HTTP (POST /invoke)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port > 0 {
			cfg.Server.Port = port
		}

		ad, err := newAdapter(cfg)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      handler.NewActionHandler(ad, logger.Named("http")),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		logger.Info("starting server",
			zap.String("version", Version),
			zap.String("addr", srv.Addr),
		)

		errCh := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		case <-quit:
		}

		logger.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
		}

		logger.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
}
