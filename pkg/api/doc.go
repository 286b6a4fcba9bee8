// Package api defines the domain and wire types of the ecotrade marketplace.
//
// The package holds the persistent records ([User], [Product]), the request
// and response bodies exchanged over HTTP, input validation, and the
// structured [APIError] used for every client-visible failure. It performs
// no I/O.
//
// Core types:
//   - [User]: a marketplace member, keyed by a UUID derived from the identity provider subject
//   - [Product]: an item offered by a User, keyed by a store-assigned sequence number
//   - [UserResponse], [ProductResponse], [AuthResponse]: JSON views returned to clients
//   - [APIError]: structured error with type, code, param, and message
package api
