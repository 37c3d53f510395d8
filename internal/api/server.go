package api

import (
	"cloud-doc/internal/auth"
	"cloud-doc/internal/config"
	"cloud-doc/internal/database"
	"cloud-doc/internal/storage"
	"context"
)

// TokenVerifier turns a bearer token into a verified identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

type Server struct {
	config   *config.Config
	store    database.ShareStore
	storage  storage.Gateway
	verifier TokenVerifier
}

func NewServer(cfg *config.Config, store database.ShareStore, gateway storage.Gateway, verifier TokenVerifier) *Server {
	return &Server{
		config:   cfg,
		store:    store,
		storage:  gateway,
		verifier: verifier,
	}
}
