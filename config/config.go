package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration (rate limiting)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// JWT configuration
	JWTSecret string

	// Media storage: local directory for uploaded recipe images, or an S3
	// bucket when set.
	MediaDir     string
	S3BucketName string

	// Allowed CORS origins, comma separated in the environment.
	CORSOrigins []string

	// Directory holding SQL migration files.
	MigrationsDir string
}

// LoadConfig builds a Config from environment variables, falling back to
// docker secrets for credentials in production.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort:    envDefault("SERVER_PORT", "8000"),
		ServerHost:    envDefault("SERVER_HOST", "0.0.0.0"),
		DBHost:        envDefault("DB_HOST", "localhost"),
		DBPort:        envDefault("DB_PORT", "5432"),
		DBUser:        envOrSecret("DB_USER", "db_user"),
		DBPassword:    envOrSecret("DB_PASSWORD", "db_password"),
		DBName:        envDefault("DB_NAME", "foodgram"),
		DBSSLMode:     envDefault("DB_SSL_MODE", "disable"),
		RedisHost:     envDefault("REDIS_HOST", "localhost"),
		RedisPort:     envDefault("REDIS_PORT", "6379"),
		RedisPassword: envOrSecret("REDIS_PASSWORD", "redis_password"),
		RedisURL:      os.Getenv("REDIS_URL"),
		JWTSecret:     envOrSecret("JWT_SECRET", "jwt_secret"),
		MediaDir:      envDefault("MEDIA_DIR", "media"),
		S3BucketName:  os.Getenv("S3_BUCKET_NAME"),
		MigrationsDir: envDefault("MIGRATIONS_DIR", "migrations"),
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if GetEnvironment() == Production {
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" {
			return fmt.Errorf("DB_SSL_MODE must not be 'disable' in production")
		}
	}
	return nil
}

func envDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// envOrSecret prefers the environment variable and falls back to a docker
// secret file of the given name.
func envOrSecret(envName, secretName string) string {
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return readSecret(secretName)
}

// readSecret reads a docker secret from the secrets directory.
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
