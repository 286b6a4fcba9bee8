// Command mock-idp runs a local identity provider for development and
// manual testing. It mints access tokens the ecotrade server accepts and
// publishes the matching RSA key set.
//
// Endpoints:
//
//	POST /token                  - issue a token: {"email": "...", "sub": "...", "alg": "RS256"}
//	GET  /.well-known/jwks.json  - RSA public key set
//	GET  /healthz                - liveness
//
// Configuration:
//
//	MOCK_PORT   - Listen port (default: 9999)
//	MOCK_SECRET - HMAC secret for HS256 tokens (default: "dev-secret-change-me-dev-secret-change-me")
//	MOCK_ISSUER - iss claim (default: "http://localhost:9999")
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rhuss/ecotrade/pkg/api"
)

const (
	keyID      = "mock-idp-1"
	defaultTTL = time.Hour
	maxTTL     = 24 * time.Hour
)

func main() {
	port := envOrDefault("MOCK_PORT", "9999")

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		slog.Error("generating signing key", "error", err)
		os.Exit(1)
	}

	idp := &provider{
		key:    key,
		secret: []byte(envOrDefault("MOCK_SECRET", "dev-secret-change-me-dev-secret-change-me")),
		issuer: envOrDefault("MOCK_ISSUER", "http://localhost:"+port),
		now:    time.Now,
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           idp.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock identity provider starting", "port", port, "issuer", idp.issuer)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mock identity provider failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock identity provider shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// provider holds the signing material.
type provider struct {
	key    *rsa.PrivateKey
	secret []byte
	issuer string
	now    func() time.Time
}

func (p *provider) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", p.handleToken)
	mux.HandleFunc("GET /.well-known/jwks.json", p.handleJWKS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

// --- Request and response types ---

type tokenRequest struct {
	Email    string `json:"email"`
	Subject  string `json:"sub,omitempty"`
	Alg      string `json:"alg,omitempty"`      // RS256 (default) or HS256
	Audience string `json:"aud,omitempty"`      // optional aud claim
	TTL      string `json:"ttl,omitempty"`      // Go duration, default 1h
	Name     string `json:"name,omitempty"`     // user_metadata.name
	Avatar   string `json:"avatar,omitempty"`   // user_metadata.avatar_url
	Expired  bool   `json:"expired,omitempty"`  // issue an already expired token
	Unsigned bool   `json:"unsigned,omitempty"` // corrupt the signature
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Subject     string `json:"sub"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// --- Handlers ---

func (p *provider) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	resp, err := p.issue(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (p *provider) handleJWKS(w http.ResponseWriter, r *http.Request) {
	pub := p.key.PublicKey
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	json.NewEncoder(w).Encode(map[string][]jwk{
		"keys": {{
			Kty: "RSA",
			Kid: keyID,
			Use: "sig",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

// issue builds and signs the token described by req.
func (p *provider) issue(req tokenRequest) (*tokenResponse, error) {
	email := api.NormalizeEmail(req.Email)
	if apiErr := api.ValidateEmail(email); apiErr != nil {
		return nil, errors.New(apiErr.Message)
	}

	ttl := defaultTTL
	if req.TTL != "" {
		d, err := time.ParseDuration(req.TTL)
		if err != nil || d <= 0 || d > maxTTL {
			return nil, fmt.Errorf("ttl must be a positive duration up to %s", maxTTL)
		}
		ttl = d
	}

	sub := strings.TrimSpace(req.Subject)
	if sub == "" {
		// Stable per email, like a real provider's user id.
		sub = uuid.NewSHA1(uuid.NameSpaceURL, []byte("mock-idp:"+email)).String()
	}

	now := p.now()
	exp := now.Add(ttl)
	if req.Expired {
		exp = now.Add(-time.Minute)
	}

	claims := jwtlib.MapClaims{
		"iss":   p.issuer,
		"sub":   sub,
		"email": email,
		"role":  "authenticated",
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	if req.Audience != "" {
		claims["aud"] = req.Audience
	}
	if req.Name != "" || req.Avatar != "" {
		claims["user_metadata"] = map[string]string{"name": req.Name, "avatar_url": req.Avatar}
	}

	var (
		signed string
		err    error
	)
	switch strings.ToUpper(req.Alg) {
	case "", "RS256":
		token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
		token.Header["kid"] = keyID
		signed, err = token.SignedString(p.key)
	case "HS256":
		signed, err = jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(p.secret)
	default:
		return nil, fmt.Errorf("unsupported alg %q (want RS256 or HS256)", req.Alg)
	}
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	if req.Unsigned {
		signed = signed[:strings.LastIndex(signed, ".")+1] + "invalid"
	}

	return &tokenResponse{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(exp.Sub(now).Seconds()),
		Subject:     sub,
	}, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
