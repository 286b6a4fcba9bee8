// Command server runs the ecotrade marketplace API.
//
// Usage:
//
//	server [-config path] [serve]
//	server [-config path] migrate up|down
//
// Configuration is read from the YAML file given with -config (or
// discovered at ./config.yaml or /etc/ecotrade/config.yaml) and overridden
// by ECOTRADE_* environment variables:
//
//	ECOTRADE_PORT          - Listen port (default: 8080)
//	ECOTRADE_STORAGE       - Storage type: "memory" or "postgres" (default: "memory")
//	ECOTRADE_DATABASE_URL  - PostgreSQL DSN (required for postgres)
//	ECOTRADE_JWT_SECRET    - Shared HMAC secret of the identity provider
//	ECOTRADE_JWT_JWKS_URL  - JWKS endpoint of the identity provider
//	ECOTRADE_LOG_LEVEL     - debug, info, warn, error (default: info)
//	ECOTRADE_DEBUG         - Debug categories, e.g. "auth,identity"
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	authjwt "github.com/rhuss/ecotrade/pkg/auth/jwt"
	"github.com/rhuss/ecotrade/pkg/config"
	"github.com/rhuss/ecotrade/pkg/debug"
	"github.com/rhuss/ecotrade/pkg/identity"
	"github.com/rhuss/ecotrade/pkg/product"
	"github.com/rhuss/ecotrade/pkg/storage/memory"
	"github.com/rhuss/ecotrade/pkg/storage/postgres"
	transporthttp "github.com/rhuss/ecotrade/pkg/transport/http"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// store is what the server needs from a storage backend.
type store interface {
	identity.UserStore
	product.Store
	product.OwnerStore
	Ping(ctx context.Context) error
	Close() error
}

func run(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := debug.Init(os.Stderr, debug.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Categories: cfg.Logging.Debug,
	})
	debug.Log("config", "configuration loaded",
		"storage", cfg.Storage.Type,
		"port", cfg.Server.Port,
		"enforce_ownership", cfg.Products.EnforceOwnership,
	)

	cmd := fs.Arg(0)
	switch cmd {
	case "", "serve":
		return serve(cfg, logger)
	case "migrate":
		return migrate(cfg, fs.Arg(1), logger)
	default:
		return fmt.Errorf("unknown command %q (want serve or migrate)", cmd)
	}
}

func serve(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	verifier, err := authjwt.New(authjwt.Config{
		Secret:       []byte(cfg.Auth.JWT.Secret),
		JWKSURL:      cfg.Auth.JWT.JWKSURL,
		Issuer:       cfg.Auth.JWT.Issuer,
		Audience:     cfg.Auth.JWT.Audience,
		EmailClaim:   cfg.Auth.JWT.EmailClaim,
		SubjectClaim: cfg.Auth.JWT.SubjectClaim,
		Leeway:       cfg.Auth.JWT.Leeway,
		CacheTTL:     cfg.Auth.JWT.CacheTTL,
	})
	if err != nil {
		return fmt.Errorf("creating token verifier: %w", err)
	}

	deps := transporthttp.RouterDeps{
		Users: identity.NewService(st, logger),
		Products: product.NewService(st, st, product.Config{
			EnforceOwnership: cfg.Products.EnforceOwnership,
		}, logger),
		Authenticator:      authjwt.NewAuthenticator(verifier),
		Readiness:          st,
		MetricsPath:        cfg.Observability.Metrics.Path,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		MaxBodySize:        cfg.Server.MaxBodySize,
		Logger:             logger,
	}
	if cfg.Observability.Metrics.Enabled {
		deps.MetricsHandler = promhttp.Handler()
	}

	srv := transporthttp.NewServer(transporthttp.NewRouter(deps),
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(logger),
	)

	logger.Info("ecotrade starting",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Type,
		"hmac", cfg.Auth.JWT.Secret != "",
		"jwks", cfg.Auth.JWT.JWKSURL != "",
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	return srv.ListenAndServe()
}

// openStore creates the configured storage backend.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, error) {
	switch cfg.Storage.Type {
	case "postgres":
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		logger.Info("storage enabled", "type", "postgres", "migrate_on_start", cfg.Storage.Postgres.MigrateOnStart)
		return pg, nil
	default:
		logger.Warn("storage is in memory; data is lost on restart")
		return memory.New(), nil
	}
}

// migrate applies or rolls back the PostgreSQL schema.
func migrate(cfg *config.Config, direction string, logger *slog.Logger) error {
	if cfg.Storage.Type != "postgres" {
		return fmt.Errorf("migrate requires storage.type postgres, got %q", cfg.Storage.Type)
	}

	switch direction {
	case "", "up":
		return postgres.RunMigrations(cfg.Storage.Postgres.DSN)
	case "down":
		logger.Warn("rolling back all migrations")
		return postgres.RollbackMigrations(cfg.Storage.Postgres.DSN)
	default:
		return fmt.Errorf("unknown migrate direction %q (want up or down)", direction)
	}
}
