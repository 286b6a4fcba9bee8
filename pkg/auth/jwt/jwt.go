package jwt

import (
	"context"
	"net/http"
	"strings"

	"github.com/rhuss/ecotrade/pkg/auth"
)

// Authenticator adapts a Verifier to the auth.Authenticator interface by
// reading the credential from the Authorization header.
type Authenticator struct {
	verifier *Verifier
}

// NewAuthenticator creates an authenticator backed by v.
func NewAuthenticator(v *Verifier) *Authenticator {
	return &Authenticator{verifier: v}
}

// Authenticate extracts a bearer token from the Authorization header and
// verifies it.
//
// Decision outcomes:
//   - Abstain: no Authorization header or not a Bearer scheme
//   - No: bearer token present but rejected by the verifier
//   - Yes: verified token with email and subject
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.AuthResult {
	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	claims, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return auth.AuthResult{Decision: auth.No, Err: err}
	}

	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: &auth.Identity{
			Email:      claims.Email,
			ExternalID: claims.Subject,
		},
	}
}

// BearerToken returns the credential of a "Bearer <token>" header value.
// The scheme is matched case-insensitively. ok is false when the header is
// empty or uses another scheme; an empty token after the scheme is returned
// with ok true so the verifier can reject it.
func BearerToken(header string) (token string, ok bool) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
