// Package config loads application settings from environment variables.
// Both binaries read the same variables, so a .env file configures the
// server and the CLI alike.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Clean    CleanConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including the wait for
	// running cleans to finish (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 2m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"2m"`
}

// DatabaseConfig holds the optional Postgres export target.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Export is disabled when empty.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"4"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ExportTable is the table cleaned data is copied into (default: apc_clean)
	ExportTable string `env:"DB_EXPORT_TABLE" default:"apc_clean"`
}

// CleanConfig holds the default cleaning plan and loader settings.
type CleanConfig struct {
	// Encoding is the charset of input files (default: ISO-8859-1)
	Encoding string `env:"CLEAN_ENCODING" default:"ISO-8859-1"`

	IDColumn    string   `env:"CLEAN_ID_COLUMN" default:"PMID/PMCID"`
	NameColumns []string `env:"CLEAN_NAME_COLUMNS" default:"Publisher,Journal title"`
	CostColumn  string   `env:"CLEAN_COST_COLUMN" default:"COST (£) charged to Wellcome (inc VAT when charged)"`

	// CostThreshold caps costs at or above it with the column's 90th
	// percentile. Zero disables capping (default: 0)
	CostThreshold float64 `env:"CLEAN_COST_THRESHOLD" default:"0"`

	// OnCostError is abort, skip or keep (default: abort)
	OnCostError string `env:"CLEAN_COST_ON_ERROR" default:"abort"`

	// NullTokens replaces the loader's default missing-value tokens.
	// The empty cell is always missing.
	NullTokens []string `env:"CLEAN_NULL_TOKENS"`

	// SynonymsFile is an optional YAML file extending the synonym table.
	SynonymsFile string `env:"CLEAN_SYNONYMS_FILE"`

	// MaxConcurrent is the number of cleans the server runs at once (default: 4)
	MaxConcurrent int `env:"CLEAN_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a request waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"CLEAN_MAX_WAIT_TIME" default:"30s"`

	// MaxFileSize is the largest accepted upload in bytes (default: 50MB)
	MaxFileSize int64 `env:"CLEAN_MAX_FILE_SIZE" default:"52428800"`
}

// SecurityConfig holds settings for running behind a proxy.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP and X-Forwarded-For headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ExportEnabled reports whether a database is configured.
func (c *DatabaseConfig) ExportEnabled() bool {
	return c.URL != ""
}

// NullTokenList returns the tokens for the loader, or nil to keep its
// defaults.
func (c *CleanConfig) NullTokenList() []string {
	if len(c.NullTokens) == 0 {
		return nil
	}
	return append([]string{""}, c.NullTokens...)
}
