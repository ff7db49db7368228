// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config maps environment variables onto a typed [Config] using 'caarlos0/env'.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Once loaded the configuration is read-only and handed to constructors.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Asset store drivers accepted by ASSET_DRIVER.
const (
	AssetDriverS3    = "s3"
	AssetDriverMinIO = "minio"
	AssetDriverNone  = "none"
)

// # Configuration Schema

// Config holds all runtime configuration for the comicverse API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"16"`
	DBMinConns    int32  `env:"DB_MIN_CONNS" envDefault:"2"`

	// Key-Value Cache (Redis)
	RedisURL      string        `env:"REDIS_URL,required,notEmpty"`
	RedisPoolSize int           `env:"REDIS_POOL_SIZE" envDefault:"20"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	// Tokens are issued elsewhere; only the public key is needed to verify them.
	JWTPubKeyPath string `env:"JWT_PUBLIC_KEY_PATH,required,notEmpty"`
	JWTIssuer     string `env:"JWT_ISSUER" envDefault:"comicverse.app"`

	// Asset store selection
	AssetDriver string `env:"ASSET_DRIVER" envDefault:"none"`

	// Object Storage (Cloudflare R2 / S3-compatible)
	S3 S3Config `envPrefix:"S3_"`

	// Self-hosted object storage
	MinIO MinIOConfig `envPrefix:"MINIO_"`

	// Cross-Origin Resource Sharing
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`
}

// S3Config configures the aws-sdk-go-v2 backed asset driver.
type S3Config struct {
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION" envDefault:"auto"`
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

// MinIOConfig configures the minio-go backed asset driver.
type MinIOConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and checks that the
// selected asset driver has what it needs.
func Load() (*Config, error) {
	cfg := &Config{}

	// Fails if any field marked 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validateAssetDriver(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validateAssetDriver() error {
	switch c.AssetDriver {
	case AssetDriverS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("config: S3_BUCKET is required when ASSET_DRIVER=s3")
		}
	case AssetDriverMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("config: MINIO_ENDPOINT and MINIO_BUCKET are required when ASSET_DRIVER=minio")
		}
	case AssetDriverNone:
	default:
		return fmt.Errorf("config: unknown ASSET_DRIVER %q", c.AssetDriver)
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns the extra CORS origins configured for production.
func (c *Config) AllowedOrigins() []string {
	return c.ExtraOrigins
}
