// Package http exposes the ecotrade services over HTTP. It builds the chi
// router with the standard middleware stack and runs the server with
// graceful shutdown.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rhuss/ecotrade/pkg/api"
	"github.com/rhuss/ecotrade/pkg/auth"
	"github.com/rhuss/ecotrade/pkg/identity"
	"github.com/rhuss/ecotrade/pkg/observability"
	"github.com/rhuss/ecotrade/pkg/product"
	"github.com/rhuss/ecotrade/pkg/transport"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps holds everything NewRouter wires together.
type RouterDeps struct {
	Users    *identity.Service
	Products *product.Service

	// Authenticator verifies bearer credentials. Required.
	Authenticator auth.Authenticator

	// Readiness is pinged by /readyz. Nil means always ready.
	Readiness Pinger

	// MetricsHandler is mounted at MetricsPath when non-nil.
	MetricsHandler http.Handler
	MetricsPath    string

	CORSAllowedOrigins []string

	// MaxBodySize bounds JSON request bodies (default: 1 MiB).
	MaxBodySize int64

	Logger *slog.Logger
}

// NewRouter returns the HTTP handler for the whole API.
//
// Middleware order, outermost first:
//
//	RequestID → Recovery → Metrics → SecurityHeaders → CORS → Authentication → Logging
//
// Authentication never rejects a request; handlers decide what an
// anonymous caller may do.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := deps.MaxBodySize
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	metricsPath := deps.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	h := &handlers{
		users:       deps.Users,
		products:    deps.Products,
		readiness:   deps.Readiness,
		logger:      logger,
		maxBodySize: maxBody,
	}

	r := chi.NewRouter()
	r.Use(
		transport.RequestID(),
		transport.Recovery(logger),
		observability.MetricsMiddleware,
		transport.SecurityHeaders(),
		transport.CORS(deps.CORSAllowedOrigins),
		auth.Middleware(deps.Authenticator, logger, auth.BypassEndpoints(metricsPath)),
		transport.Logging(logger),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteAPIError(w, api.NewNotFoundError("no route for "+r.Method+" "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("method", "method "+r.Method+" not allowed"),
			http.StatusMethodNotAllowed,
		)
	})

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, metricsPath, deps.MetricsHandler)
	}

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", h.listUsers)
		r.Get("/me", h.me)
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)
		r.Get("/email/{email}", h.getUserByEmail)
		r.Get("/exists/{email}", h.userExists)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getUser)
			r.Put("/", h.updateUser)
			r.Delete("/", h.deleteUser)
		})
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.listProducts)

		r.Route("/user/{userId}", func(r chi.Router) {
			r.Get("/", h.listProductsByOwner)
			r.Post("/", h.createProduct)
		})

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getProduct)
			r.Put("/", h.updateProduct)
			r.Delete("/", h.deleteProduct)
		})
	})

	return r
}

// handlers implements the route handlers.
type handlers struct {
	users       *identity.Service
	products    *product.Service
	readiness   Pinger
	logger      *slog.Logger
	maxBodySize int64
}
