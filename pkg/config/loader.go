package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, ECOTRADE_CONFIG env, ./config.yaml, /etc/ecotrade/config.yaml)
//  3. ECOTRADE_* environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. ECOTRADE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/ecotrade/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("ECOTRADE_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/ecotrade/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps ECOTRADE_* environment variables onto config
// fields. Malformed numeric, boolean, or duration values are errors.
func applyEnvOverrides(cfg *Config) error {
	var errs envErrors

	setString := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("ECOTRADE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		errs.add("ECOTRADE_PORT", err)
		if err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ECOTRADE_CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.CORSAllowedOrigins = splitList(v)
	}

	setString("ECOTRADE_STORAGE", &cfg.Storage.Type)
	setString("ECOTRADE_DATABASE_URL", &cfg.Storage.Postgres.DSN)
	setString("ECOTRADE_DATABASE_URL_FILE", &cfg.Storage.Postgres.DSNFile)
	if v := os.Getenv("ECOTRADE_MIGRATE_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		errs.add("ECOTRADE_MIGRATE_ON_START", err)
		if err == nil {
			cfg.Storage.Postgres.MigrateOnStart = b
		}
	}

	setString("ECOTRADE_JWT_SECRET", &cfg.Auth.JWT.Secret)
	setString("ECOTRADE_JWT_SECRET_FILE", &cfg.Auth.JWT.SecretFile)
	setString("ECOTRADE_JWT_JWKS_URL", &cfg.Auth.JWT.JWKSURL)
	setString("ECOTRADE_JWT_ISSUER", &cfg.Auth.JWT.Issuer)
	setString("ECOTRADE_JWT_AUDIENCE", &cfg.Auth.JWT.Audience)
	if v := os.Getenv("ECOTRADE_JWT_LEEWAY"); v != "" {
		d, err := time.ParseDuration(v)
		errs.add("ECOTRADE_JWT_LEEWAY", err)
		if err == nil {
			cfg.Auth.JWT.Leeway = d
		}
	}

	if v := os.Getenv("ECOTRADE_ENFORCE_OWNERSHIP"); v != "" {
		b, err := strconv.ParseBool(v)
		errs.add("ECOTRADE_ENFORCE_OWNERSHIP", err)
		if err == nil {
			cfg.Products.EnforceOwnership = b
		}
	}

	setString("ECOTRADE_LOG_LEVEL", &cfg.Logging.Level)
	setString("ECOTRADE_LOG_FORMAT", &cfg.Logging.Format)

	return errs.err()
}

// envErrors collects malformed environment variables.
type envErrors []string

func (e *envErrors) add(name string, err error) {
	if err != nil {
		*e = append(*e, fmt.Sprintf("%s: %v", name, err))
	}
}

func (e envErrors) err() error {
	if len(e) == 0 {
		return nil
	}
	return fmt.Errorf("invalid environment variables: %s", strings.Join(e, "; "))
}

// splitList splits a comma-separated list and drops empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	// auth.jwt.secret_file -> auth.jwt.secret
	if cfg.Auth.JWT.SecretFile != "" && cfg.Auth.JWT.Secret == "" {
		val, err := readSecretFile(cfg.Auth.JWT.SecretFile)
		if err != nil {
			return fmt.Errorf("auth.jwt.secret_file: %w", err)
		}
		cfg.Auth.JWT.Secret = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
