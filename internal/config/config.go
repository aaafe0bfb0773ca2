// Package config loads filedashd's runtime configuration from a TOML file
// layered with environment variable overrides, resolved per nested section.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all runtime configuration for filedashd.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Files    FilesConfig    `toml:"files"`
	Auth     AuthConfig     `toml:"auth"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Security SecurityConfig `toml:"security"`
	Admin    AdminConfig    `toml:"admin"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type FilesConfig struct {
	HomeDirectory string `toml:"home_directory"`
	MaxUploadSize int64  `toml:"max_upload_size"`
	MinFreeBytes  int64  `toml:"min_free_bytes"`
}

type AuthConfig struct {
	JWTSecret       string `toml:"jwt_secret"`
	TokenExpiration int    `toml:"token_expiration"` // seconds
	EnableAuth      bool   `toml:"enable_auth"`
}

type DatabaseConfig struct {
	URL string `toml:"url"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type SecurityConfig struct {
	CORSAllowedOrigins   []string `toml:"cors_allowed_origins"`
	MaxRequestSize       int64    `toml:"max_request_size"`
	MaxConcurrentUploads int      `toml:"max_concurrent_uploads"`
}

type AdminConfig struct {
	DefaultEmail    string `toml:"default_email"`
	DefaultPassword string `toml:"default_password"`
}

// Defaults returns a Config with the same baseline values the reference
// deployment ships with, before the TOML file and environment are applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Files: FilesConfig{
			HomeDirectory: "./data/files",
			MaxUploadSize: 10 << 30, // 10 GiB
			MinFreeBytes:  100 << 20, // 100 MiB
		},
		Auth: AuthConfig{
			TokenExpiration: 24 * 60 * 60,
			EnableAuth:      true,
		},
		Database: DatabaseConfig{URL: "./data/filedash.db"},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Security: SecurityConfig{
			CORSAllowedOrigins:   []string{"*"},
			MaxRequestSize:       10 << 30,
			MaxConcurrentUploads: 32,
		},
		Admin: AdminConfig{DefaultEmail: "admin@filedash.local", DefaultPassword: "admin123"},
	}
}

// Load reads path (if it exists) into a Config seeded with Defaults(), then
// applies FILEDASH_<section>__<key> environment overrides, then validates.
// An empty path skips the TOML step and only applies defaults + env.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, fmt.Errorf("config: parse %q: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %q: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces required invariants at startup: a signing secret of at
// least 32 bytes, a non-empty files.home_directory, and a server.port in
// 1..65535. Whether the home directory exists or can be created is not
// checked here.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("config: auth.jwt_secret must be at least 32 bytes, got %d", len(c.Auth.JWTSecret))
	}
	if c.Files.HomeDirectory == "" {
		return fmt.Errorf("config: files.home_directory is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	return nil
}
