package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const redacted = "[redacted]"

var ErrNoServiceAccount = errors.New("no google service account configured: set google.credentials_file or google.client_email and google.private_key")

type configKey struct{}

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	DB       DBConfig       `mapstructure:"db" yaml:"db"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`
	Google   GoogleConfig   `mapstructure:"google" yaml:"google"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Port          int    `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	AllowedOrigin string `mapstructure:"allowed_origin" yaml:"allowed_origin" validate:"required"`
	// MaxUploadBytes caps multipart bodies; 0 means no limit.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes" validate:"min=0"`
	// ExposeErrors appends the underlying error text to 500 responses.
	ExposeErrors bool `mapstructure:"expose_errors" yaml:"expose_errors"`
}

type DBConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver" validate:"required,oneof=sqlite postgres"`
	Source      string `mapstructure:"source" yaml:"source" validate:"required"`
	AutoMigrate bool   `mapstructure:"auto_migrate" yaml:"auto_migrate"`
}

type StorageConfig struct {
	Backend string   `mapstructure:"backend" yaml:"backend" validate:"required,oneof=gcs s3"`
	Bucket  string   `mapstructure:"bucket" yaml:"bucket" validate:"required"`
	S3      S3Config `mapstructure:"s3" yaml:"s3"`
}

type S3Config struct {
	Region       string `mapstructure:"region" yaml:"region"`
	Endpoint     string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey    string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey    string `mapstructure:"secret_key" yaml:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style" yaml:"use_path_style"`
}

type IdentityConfig struct {
	// Audience is the OAuth client ID of the frontend. Empty disables the
	// audience check.
	Audience string   `mapstructure:"audience" yaml:"audience"`
	Issuers  []string `mapstructure:"issuers" yaml:"issuers" validate:"required,min=1,dive,required"`
	JWKSURL  string   `mapstructure:"jwks_url" yaml:"jwks_url" validate:"required,url"`
}

// GoogleConfig is the service account used for bucket access and URL
// signing. Either CredentialsFile or the inline key fields are used.
type GoogleConfig struct {
	CredentialsFile         string `mapstructure:"credentials_file" yaml:"credentials_file"`
	Type                    string `mapstructure:"type" yaml:"type"`
	ProjectID               string `mapstructure:"project_id" yaml:"project_id"`
	PrivateKeyID            string `mapstructure:"private_key_id" yaml:"private_key_id"`
	PrivateKey              string `mapstructure:"private_key" yaml:"private_key"`
	ClientEmail             string `mapstructure:"client_email" yaml:"client_email"`
	ClientID                string `mapstructure:"client_id" yaml:"client_id"`
	AuthURI                 string `mapstructure:"auth_uri" yaml:"auth_uri"`
	TokenURI                string `mapstructure:"token_uri" yaml:"token_uri"`
	AuthProviderX509CertURL string `mapstructure:"auth_provider_cert_url" yaml:"auth_provider_cert_url"`
	ClientX509CertURL       string `mapstructure:"client_cert_url" yaml:"client_cert_url"`
	UniverseDomain          string `mapstructure:"universe_domain" yaml:"universe_domain"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
}

// ServiceAccountJSON returns the service account key as a JSON document,
// read from CredentialsFile or assembled from the inline fields. Escaped
// newlines in PrivateKey are expanded so the key can live in one env var.
func (g GoogleConfig) ServiceAccountJSON() ([]byte, error) {
	if g.CredentialsFile != "" {
		data, err := os.ReadFile(g.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		return data, nil
	}

	if g.ClientEmail == "" || g.PrivateKey == "" {
		return nil, ErrNoServiceAccount
	}

	key := map[string]string{
		"type":                        g.Type,
		"project_id":                  g.ProjectID,
		"private_key_id":              g.PrivateKeyID,
		"private_key":                 strings.ReplaceAll(g.PrivateKey, `\n`, "\n"),
		"client_email":                g.ClientEmail,
		"client_id":                   g.ClientID,
		"auth_uri":                    g.AuthURI,
		"token_uri":                   g.TokenURI,
		"auth_provider_x509_cert_url": g.AuthProviderX509CertURL,
		"client_x509_cert_url":        g.ClientX509CertURL,
	}
	if g.UniverseDomain != "" {
		key["universe_domain"] = g.UniverseDomain
	}

	return json.Marshal(key)
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return redacted
	}

	c.Google.PrivateKey = mask(c.Google.PrivateKey)
	c.Google.PrivateKeyID = mask(c.Google.PrivateKeyID)
	c.Storage.S3.SecretKey = mask(c.Storage.S3.SecretKey)
	if c.DB.Driver == "postgres" {
		c.DB.Source = mask(c.DB.Source)
	}
	c.Identity.Issuers = append([]string(nil), c.Identity.Issuers...)
	return c
}

var flagToViperKey = map[string]string{
	"port":       "server.port",
	"db-driver":  "db.driver",
	"db-source":  "db.source",
	"bucket":     "storage.bucket",
	"backend":    "storage.backend",
	"log-level":  "log.level",
	"log-format": "log.format",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagToViperKey[f.Name]
		if !ok || !f.Changed {
			return
		}
		_ = v.BindPFlag(key, f)
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origin", "http://localhost:5173")
	v.SetDefault("server.max_upload_bytes", 0)
	v.SetDefault("server.expose_errors", false)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.source", "cloud_doc.db")
	v.SetDefault("db.auto_migrate", false)

	v.SetDefault("storage.backend", "gcs")
	v.SetDefault("storage.bucket", "cloud-doc-bucket")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.use_path_style", false)

	v.SetDefault("identity.audience", "")
	v.SetDefault("identity.issuers", []string{"accounts.google.com", "https://accounts.google.com"})
	v.SetDefault("identity.jwks_url", "https://www.googleapis.com/oauth2/v3/certs")

	v.SetDefault("google.credentials_file", "")
	v.SetDefault("google.type", "service_account")
	v.SetDefault("google.project_id", "")
	v.SetDefault("google.private_key_id", "")
	v.SetDefault("google.private_key", "")
	v.SetDefault("google.client_email", "")
	v.SetDefault("google.client_id", "")
	v.SetDefault("google.auth_uri", "https://accounts.google.com/o/oauth2/auth")
	v.SetDefault("google.token_uri", "https://oauth2.googleapis.com/token")
	v.SetDefault("google.auth_provider_cert_url", "https://www.googleapis.com/oauth2/v1/certs")
	v.SetDefault("google.client_cert_url", "")
	v.SetDefault("google.universe_domain", "googleapis.com")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads settings.yml from ./configs or /configs (or configFile when
// given), then environment variables (db.source -> DB_SOURCE), then changed
// flags. The result is validated.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath("./configs")
		v.AddConfigPath("/configs")
		v.SetConfigName("settings")
		v.SetConfigType("yml")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("google.credentials_file", "GOOGLE_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		slog.Debug("no settings file found, using defaults and environment")
	}

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
