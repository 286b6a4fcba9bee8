// Package transport provides the HTTP plumbing shared by all ecotrade
// endpoints: request IDs, panic recovery, access logging, CORS, and the
// JSON error envelope.
//
// # Middleware
//
// Every middleware has the net/http shape func(http.Handler) http.Handler
// and can be passed to chi's Use.
//
// # Errors
//
// Client-visible errors are *api.APIError values. HTTPStatusFromError maps
// an error type to its status code and WriteAPIError writes the
// {"error": {...}} envelope.
package transport
