package jwt

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a credential failed verification.
type ErrorKind int

const (
	// KindMalformed means the token could not be parsed.
	KindMalformed ErrorKind = iota + 1

	// KindSignatureInvalid means the signature did not verify against the
	// trusted key material, or no trusted key exists for the token.
	KindSignatureInvalid

	// KindExpired means the exp claim is in the past.
	KindExpired

	// KindMissingClaim means a required claim is absent or empty.
	KindMissingClaim

	// KindInvalidClaim means a claim is present but does not satisfy the
	// configured constraints (issuer, audience, not-before, email format).
	KindInvalidClaim
)

// String returns the label used for the kind in logs and metrics.
func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindSignatureInvalid:
		return "signature_invalid"
	case KindExpired:
		return "expired"
	case KindMissingClaim:
		return "missing_claim"
	case KindInvalidClaim:
		return "invalid_claim"
	default:
		return "unknown"
	}
}

// VerificationError is returned by Verifier.Verify for every rejected token.
type VerificationError struct {
	Kind ErrorKind

	// Claim names the offending claim for KindMissingClaim and KindInvalidClaim.
	Claim string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	msg := "token " + e.Kind.String()
	if e.Claim != "" {
		msg += fmt.Sprintf(" (claim %q)", e.Claim)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *VerificationError) Unwrap() error {
	return e.Err
}

// Reason implements auth.Reasoner.
func (e *VerificationError) Reason() string {
	return e.Kind.String()
}

// IsKind reports whether err is a VerificationError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var verr *VerificationError
	return errors.As(err, &verr) && verr.Kind == kind
}

func missingClaim(name string) *VerificationError {
	return &VerificationError{Kind: KindMissingClaim, Claim: name}
}

func invalidClaim(name string, err error) *VerificationError {
	return &VerificationError{Kind: KindInvalidClaim, Claim: name, Err: err}
}
