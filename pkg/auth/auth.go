package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// AuthDecision represents the three possible outcomes of authentication.
type AuthDecision int

const (
	// Yes means the credential was verified and an identity is available.
	Yes AuthDecision = iota

	// No means a credential was presented but failed verification. The
	// request still proceeds, anonymously.
	No

	// Abstain means no credential of a supported scheme was presented.
	Abstain
)

// String returns the lower-case name of the decision.
func (d AuthDecision) String() string {
	switch d {
	case Yes:
		return "yes"
	case No:
		return "no"
	case Abstain:
		return "abstain"
	default:
		return "unknown"
	}
}

// AuthResult carries the outcome of an authentication attempt.
type AuthResult struct {
	Decision AuthDecision
	Identity *Identity // populated only when Decision == Yes
	Err      error     // populated only when Decision == No
}

// Identity is the verified caller of a single request. A nil *Identity is
// the anonymous caller; all methods are safe to call on nil.
type Identity struct {
	// Email is the verified email claim, lower-cased.
	Email string

	// ExternalID is the identity provider's subject claim.
	ExternalID string
}

// Authenticated reports whether the identity carries a verified email.
func (id *Identity) Authenticated() bool {
	return id != nil && id.Email != ""
}

// Matches reports whether the identity was verified for the user record with
// the given email and external id. External ids are compared when both sides
// have one; otherwise the emails are compared case-insensitively.
func (id *Identity) Matches(email, externalID string) bool {
	if !id.Authenticated() {
		return false
	}
	if id.ExternalID != "" && externalID != "" {
		return id.ExternalID == externalID
	}
	return email != "" && strings.EqualFold(id.Email, email)
}

// Authenticator examines request credentials and returns a three-outcome vote.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) AuthResult
}

// Sentinel errors returned by services that need a verified caller.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
)

// Reasoner is implemented by authentication errors that can name their cause
// with a short, low-cardinality label suitable for logs and metrics.
type Reasoner interface {
	Reason() string
}

// FailureReason returns the Reason of err, or "invalid" when err does not
// carry one.
func FailureReason(err error) string {
	var r Reasoner
	if errors.As(err, &r) {
		return r.Reason()
	}
	return "invalid"
}

// Authorize checks that caller may act on the user record with the given
// email and external id. It returns ErrUnauthenticated for an anonymous
// caller and ErrForbidden for a verified caller who is someone else.
func Authorize(caller *Identity, email, externalID string) error {
	if !caller.Authenticated() {
		return ErrUnauthenticated
	}
	if !caller.Matches(email, externalID) {
		return ErrForbidden
	}
	return nil
}
