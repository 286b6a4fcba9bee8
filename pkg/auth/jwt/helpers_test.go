package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/ecotrade/pkg/auth"
)

// testKeyPair holds the RSA key pair used throughout the tests.
var testKeyPair *rsa.PrivateKey

func init() {
	var err error
	testKeyPair, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(fmt.Sprintf("generating test RSA key: %v", err))
	}
}

const (
	// testKID is the key ID used for the test key pair.
	testKID = "test-key-1"

	testIssuer   = "https://project.supabase.co/auth/v1"
	testAudience = "authenticated"
)

// testSecret is the shared HMAC secret used for HS256 tokens.
var testSecret = []byte("super-secret-jwt-token-with-at-least-32-characters")

// jwksHandler returns an HTTP handler that serves the test public key as a JWKS.
// It also increments fetchCount each time the handler is called.
func jwksHandler(fetchCount *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fetchCount != nil {
			fetchCount.Add(1)
		}

		pubKey := testKeyPair.PublicKey
		jwks := map[string]interface{}{
			"keys": []map[string]string{
				{
					"kty": "RSA",
					"kid": testKID,
					"use": "sig",
					"n":   base64.RawURLEncoding.EncodeToString(pubKey.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pubKey.E)).Bytes()),
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(jwks)
	}
}

// validClaims returns claims that pass every check of a verifier built by
// newHMACVerifier or newRSAVerifier.
func validClaims() jwtlib.MapClaims {
	return jwtlib.MapClaims{
		"sub":   "3f6c2a0e-9b1d-4e57-8c2a-1d0e5f7a9b31",
		"email": "a@x.com",
		"iss":   testIssuer,
		"aud":   testAudience,
		"exp":   time.Now().Add(1 * time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
}

// signHS256 creates a JWT signed with the given secret.
func signHS256(t *testing.T, secret []byte, claims jwtlib.MapClaims) string {
	t.Helper()
	tokenStr, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return tokenStr
}

// signRS256 creates a JWT signed with the test private key.
func signRS256(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	token.Header["kid"] = testKID

	tokenStr, err := token.SignedString(testKeyPair)
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return tokenStr
}

// newHMACVerifier creates a verifier trusting testSecret.
func newHMACVerifier(t *testing.T, override func(*Config)) *Verifier {
	t.Helper()
	cfg := Config{
		Secret:   testSecret,
		Issuer:   testIssuer,
		Audience: testAudience,
	}
	if override != nil {
		override(&cfg)
	}
	v, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

// newRSAVerifier creates a test JWKS server and a verifier trusting it.
func newRSAVerifier(t *testing.T, override func(*Config), fetchCount *atomic.Int32) *Verifier {
	t.Helper()

	server := httptest.NewServer(jwksHandler(fetchCount))
	t.Cleanup(server.Close)

	cfg := Config{
		JWKSURL:  server.URL + "/.well-known/jwks.json",
		Issuer:   testIssuer,
		Audience: testAudience,
		CacheTTL: 1 * time.Hour,
	}
	if override != nil {
		override(&cfg)
	}
	v, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

// httpHandlerFunc returns a handler reporting the identity in its request context.
func httpHandlerFunc(fn func(*auth.Identity)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fn(auth.IdentityFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}
