// Package config provides unified configuration for the ecotrade server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (ECOTRADE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the ecotrade server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Products      ProductsConfig      `yaml:"products"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 15s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 10s
	MaxBodySize     int64         `yaml:"max_body_size"`    // bytes, default: 1 MiB

	// CORSAllowedOrigins lists origins allowed for browser requests.
	// Empty disables CORS headers.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig configures verification of identity provider tokens. At least
// one of Secret (HMAC) or JWKSURL (RSA) must be set.
type JWTConfig struct {
	Secret       string        `yaml:"secret"`
	SecretFile   string        `yaml:"secret_file"` // _file variant for secret
	JWKSURL      string        `yaml:"jwks_url"`
	Issuer       string        `yaml:"issuer"`        // optional, checked when set
	Audience     string        `yaml:"audience"`      // optional, checked when set
	EmailClaim   string        `yaml:"email_claim"`   // default: "email"
	SubjectClaim string        `yaml:"subject_claim"` // default: "sub"
	Leeway       time.Duration `yaml:"leeway"`        // default: 0
	CacheTTL     time.Duration `yaml:"cache_ttl"`     // JWKS cache, default: 1h
}

// ProductsConfig holds product service settings.
type ProductsConfig struct {
	// EnforceOwnership restricts product mutations to the owner.
	EnforceOwnership bool `yaml:"enforce_ownership"` // default: true
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error", default: "info"
	Format string `yaml:"format"` // "json" or "text", default: "json"

	// Debug lists debug categories to enable, comma-separated
	// (auth, identity, products, storage, transport, config, all).
	// ECOTRADE_DEBUG takes precedence.
	Debug string `yaml:"debug"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodySize:     1 << 20,
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Auth: AuthConfig{
			JWT: JWTConfig{
				EmailClaim:   "email",
				SubjectClaim: "sub",
				CacheTTL:     time.Hour,
			},
		},
		Products: ProductsConfig{
			EnforceOwnership: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
