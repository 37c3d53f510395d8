package main

import (
	"cloud-doc/internal/config"
	"cloud-doc/internal/database"
	"cloud-doc/internal/storage"
	"context"
	"fmt"
	"log/slog"
)

// openStore connects to the share registry and makes sure its schema exists.
func openStore(ctx context.Context, cfg config.DBConfig, migrate bool) (database.ShareStore, error) {
	store, err := database.Open(ctx, cfg.Driver, cfg.Source)
	if err != nil {
		return nil, err
	}

	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if migrate {
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		slog.Info("database migration complete", "driver", cfg.Driver)
	}

	if err := store.Validate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("validate database schema: %w", err)
	}

	return store, nil
}

// newGateway builds the bucket client for the configured backend. The
// returned func releases it.
func newGateway(ctx context.Context, cfg *config.Config) (storage.Gateway, func(), error) {
	switch cfg.Storage.Backend {
	case "gcs":
		key, err := cfg.Google.ServiceAccountJSON()
		if err != nil {
			return nil, nil, err
		}
		gateway, err := storage.NewGCSGateway(ctx, cfg.Storage.Bucket, key)
		if err != nil {
			return nil, nil, err
		}
		return gateway, func() {
			if err := gateway.Close(); err != nil {
				slog.Warn("failed to close gcs client", "error", err)
			}
		}, nil

	case "s3":
		s3cfg := cfg.Storage.S3
		gateway, err := storage.NewS3Gateway(ctx, cfg.Storage.Bucket, storage.S3Options{
			Region:       s3cfg.Region,
			Endpoint:     s3cfg.Endpoint,
			AccessKey:    s3cfg.AccessKey,
			SecretKey:    s3cfg.SecretKey,
			UsePathStyle: s3cfg.UsePathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return gateway, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
