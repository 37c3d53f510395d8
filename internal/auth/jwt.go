// Package auth verifies Google issued ID tokens and extracts the caller's
// email address.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

var DefaultIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// ErrUnauthenticated is the only error callers see from Verify; the actual
// cause is logged.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the verified caller.
type Identity struct {
	Email string `json:"email"`
}

type GoogleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

type GoogleVerifierConfig struct {
	// Audience is the OAuth client ID tokens must be issued for. Empty skips
	// the audience check.
	Audience string
	Issuers  []string
	JWKSURL  string
	Client   *http.Client
}

// GoogleVerifier checks RS256 ID tokens against the issuer's published keys.
// Keys are fetched on every call.
type GoogleVerifier struct {
	audience string
	issuers  []string
	jwksURL  string
	client   *http.Client
}

func NewGoogleVerifier(cfg GoogleVerifierConfig) *GoogleVerifier {
	if len(cfg.Issuers) == 0 {
		cfg.Issuers = DefaultIssuers
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = DefaultJWKSURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}

	return &GoogleVerifier{
		audience: cfg.Audience,
		issuers:  cfg.Issuers,
		jwksURL:  cfg.JWKSURL,
		client:   cfg.Client,
	}
}

func (v *GoogleVerifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	claims, err := v.parse(ctx, tokenString)
	if err != nil {
		slog.DebugContext(ctx, "token verification failed", "error", err)
		return nil, ErrUnauthenticated
	}
	return &Identity{Email: claims.Email}, nil
}

func (v *GoogleVerifier) parse(ctx context.Context, tokenString string) (*GoogleClaims, error) {
	keys, err := v.fetchKeys(ctx)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &GoogleClaims{}, keys.Keyfunc, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*GoogleClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	if !slices.Contains(v.issuers, claims.Issuer) {
		return nil, fmt.Errorf("%w: issuer %q", jwt.ErrTokenInvalidIssuer, claims.Issuer)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: missing email", jwt.ErrTokenInvalidClaims)
	}
	if !claims.EmailVerified {
		return nil, fmt.Errorf("%w: email %q not verified", jwt.ErrTokenInvalidClaims, claims.Email)
	}

	return claims, nil
}

// fetchKeys downloads the issuer's JWKS document and builds a key lookup from it.
func (v *GoogleVerifier) fetchKeys(ctx context.Context) (keyfunc.Keyfunc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch jwks: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read jwks: %w", err)
	}

	keys, err := keyfunc.NewJWKSetJSON(json.RawMessage(raw))
	if err != nil {
		return nil, fmt.Errorf("parse jwks: %w", err)
	}
	return keys, nil
}
