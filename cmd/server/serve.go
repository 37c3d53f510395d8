package main

import (
	"cloud-doc/internal/api"
	"cloud-doc/internal/auth"
	"cloud-doc/internal/config"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "cloud-doc/docs"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP server port (env: SERVER_PORT)")
	serveCmd.Flags().String("backend", "", "storage backend: gcs, s3 (env: STORAGE_BACKEND)")
	serveCmd.Flags().String("bucket", "", "bucket holding user files (env: STORAGE_BUCKET)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.DB, cfg.DB.AutoMigrate)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("connected to database", "driver", cfg.DB.Driver)

	gateway, closeGateway, err := newGateway(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create storage gateway: %w", err)
	}
	defer closeGateway()
	slog.Info("using bucket", "backend", cfg.Storage.Backend, "bucket", cfg.Storage.Bucket)

	verifier := auth.NewGoogleVerifier(auth.GoogleVerifierConfig{
		Audience: cfg.Identity.Audience,
		Issuers:  cfg.Identity.Issuers,
		JWKSURL:  cfg.Identity.JWKSURL,
	})
	if cfg.Identity.Audience == "" {
		slog.Warn("identity.audience is empty, tokens for any client id are accepted")
	}

	server := api.NewServer(cfg, store, gateway, verifier)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Routes(),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
