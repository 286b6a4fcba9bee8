// Package jwt verifies bearer credentials issued by an external identity
// provider and turns them into auth identities.
//
// Two kinds of trust material are supported, alone or together: a shared
// HMAC secret (HS256/384/512, the Supabase default) and an RSA key set
// fetched from a JWKS endpoint (RS256/384/512). The signing method of a
// token selects which material is used; a token signed with a method for
// which no material is configured is rejected.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/ecotrade/pkg/api"
)

// Config holds the verifier configuration.
type Config struct {
	// Secret is the shared HMAC secret. If empty, HS* tokens are rejected.
	Secret []byte

	// JWKSURL is the URL of the JSON Web Key Set used for RS* tokens.
	// If empty, RS* tokens are rejected.
	JWKSURL string

	// Issuer is the expected iss claim. If empty, issuer is not validated.
	Issuer string

	// Audience is the expected aud claim. If empty, audience is not validated.
	Audience string

	// EmailClaim is the claim carrying the user's email. Default: "email".
	EmailClaim string

	// SubjectClaim is the claim carrying the provider's user id. Default: "sub".
	SubjectClaim string

	// Leeway is the clock skew tolerated for exp, nbf, and iat. Default: 0.
	Leeway time.Duration

	// CacheTTL controls how long JWKS keys are cached. Default: 1 hour.
	CacheTTL time.Duration

	// MinRefreshInterval bounds how often an unknown kid may trigger a JWKS
	// refetch. Default: 1 minute.
	MinRefreshInterval time.Duration

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	// If nil, a client with a 10 second timeout is used.
	HTTPClient *http.Client
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.EmailClaim == "" {
		c.EmailClaim = "email"
	}
	if c.SubjectClaim == "" {
		c.SubjectClaim = "sub"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 1 * time.Hour
	}
	if c.MinRefreshInterval == 0 {
		c.MinRefreshInterval = 1 * time.Minute
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
}

// Claims are the verified claims of a credential.
type Claims struct {
	// Subject is the identity provider's user id.
	Subject string

	// Email is the verified email address, normalized to lower case.
	Email string

	Issuer    string
	ExpiresAt time.Time
}

// Verifier validates signed credentials. It is safe for concurrent use; the
// trust material is fixed at construction.
type Verifier struct {
	config  Config
	methods []string
	jwks    *jwksCache
}

// New creates a verifier. At least one of Secret or JWKSURL must be set.
func New(cfg Config) (*Verifier, error) {
	cfg.applyDefaults()

	v := &Verifier{config: cfg}

	if len(cfg.Secret) > 0 {
		v.methods = append(v.methods, "HS256", "HS384", "HS512")
	}
	if cfg.JWKSURL != "" {
		v.methods = append(v.methods, "RS256", "RS384", "RS512")
		v.jwks = newJWKSCache(cfg.JWKSURL, cfg.HTTPClient, cfg.CacheTTL, cfg.MinRefreshInterval)
	}
	if len(v.methods) == 0 {
		return nil, errors.New("jwt: either a shared secret or a JWKS URL is required")
	}

	return v, nil
}

// Verify checks raw and returns its claims. Every failure is a
// *VerificationError; Verify never panics on untrusted input.
//
// ctx is only used when an RSA key has to be fetched from the JWKS endpoint.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &VerificationError{Kind: KindMalformed, Err: errors.New("empty token")}
	}

	token, err := jwtlib.Parse(raw, v.keyFunc(ctx), v.parserOptions()...)
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return nil, &VerificationError{Kind: KindMalformed, Err: errors.New("unexpected claims type")}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, invalidClaim("exp", err)
	}
	if exp == nil {
		return nil, missingClaim("exp")
	}

	subject := claimString(claims, v.config.SubjectClaim)
	if subject == "" {
		return nil, missingClaim(v.config.SubjectClaim)
	}

	email := claimString(claims, v.config.EmailClaim)
	if email == "" {
		return nil, missingClaim(v.config.EmailClaim)
	}
	if apiErr := api.ValidateEmail(email); apiErr != nil {
		return nil, invalidClaim(v.config.EmailClaim, errors.New(apiErr.Message))
	}

	issuer, _ := claims.GetIssuer()
	if v.config.Issuer != "" {
		if issuer == "" {
			return nil, missingClaim("iss")
		}
		if issuer != v.config.Issuer {
			return nil, invalidClaim("iss", fmt.Errorf("issuer %q not accepted", issuer))
		}
	}

	if v.config.Audience != "" {
		aud, _ := claims.GetAudience()
		if len(aud) == 0 {
			return nil, missingClaim("aud")
		}
		if !slices.Contains(aud, v.config.Audience) {
			return nil, invalidClaim("aud", fmt.Errorf("audience %v not accepted", []string(aud)))
		}
	}

	return &Claims{
		Subject:   subject,
		Email:     api.NormalizeEmail(email),
		Issuer:    issuer,
		ExpiresAt: exp.Time,
	}, nil
}

// keyFunc selects the verification key by signing method. HMAC tokens never
// reach the RSA keys and vice versa.
func (v *Verifier) keyFunc(ctx context.Context) jwtlib.Keyfunc {
	return func(token *jwtlib.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwtlib.SigningMethodHMAC:
			if len(v.config.Secret) == 0 {
				return nil, fmt.Errorf("no shared secret configured for %v", token.Header["alg"])
			}
			return v.config.Secret, nil

		case *jwtlib.SigningMethodRSA:
			if v.jwks == nil {
				return nil, fmt.Errorf("no JWKS configured for %v", token.Header["alg"])
			}
			kid, ok := token.Header["kid"].(string)
			if !ok || kid == "" {
				return nil, errors.New("token missing kid header")
			}
			key, err := v.jwks.getKey(ctx, kid)
			if err != nil {
				return nil, fmt.Errorf("fetching JWKS key for kid %q: %w", kid, err)
			}
			return key, nil

		default:
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
	}
}

// parserOptions builds JWT parser options based on the configuration.
func (v *Verifier) parserOptions() []jwtlib.ParserOption {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods(v.methods),
		jwtlib.WithIssuedAt(),
	}
	if v.config.Leeway > 0 {
		opts = append(opts, jwtlib.WithLeeway(v.config.Leeway))
	}
	return opts
}

// classify maps golang-jwt parse errors onto verification kinds.
func classify(err error) *VerificationError {
	switch {
	case errors.Is(err, jwtlib.ErrTokenMalformed):
		return &VerificationError{Kind: KindMalformed, Err: err}
	case errors.Is(err, jwtlib.ErrTokenUnverifiable),
		errors.Is(err, jwtlib.ErrTokenSignatureInvalid):
		return &VerificationError{Kind: KindSignatureInvalid, Err: err}
	case errors.Is(err, jwtlib.ErrTokenExpired):
		return &VerificationError{Kind: KindExpired, Err: err}
	case errors.Is(err, jwtlib.ErrTokenNotValidYet):
		return invalidClaim("nbf", err)
	case errors.Is(err, jwtlib.ErrTokenUsedBeforeIssued):
		return invalidClaim("iat", err)
	case errors.Is(err, jwtlib.ErrTokenInvalidClaims):
		return &VerificationError{Kind: KindInvalidClaim, Err: err}
	default:
		return &VerificationError{Kind: KindMalformed, Err: err}
	}
}

// claimString extracts a trimmed string value from JWT claims.
// Returns empty string if the claim is missing or not a string.
func claimString(claims jwtlib.MapClaims, key string) string {
	val, ok := claims[key]
	if !ok {
		return ""
	}
	s, ok := val.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
