// Package auth establishes the identity of the caller of each request.
//
// Authentication is optional at the edge: the middleware verifies a bearer
// credential when one is presented and stores the resulting [Identity] in the
// request context, but it never rejects a request. Handlers decide whether an
// anonymous caller is acceptable and pass the identity explicitly to the
// services, which enforce ownership.
//
// Authenticators return a three-outcome vote: Yes (identity verified), No
// (credential presented but invalid), or Abstain (no credential of a
// supported scheme).
package auth
