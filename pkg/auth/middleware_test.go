package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// captureHandler records the identity seen by the downstream handler.
type captureHandler struct {
	called   bool
	identity *Identity
}

func (h *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.identity = IdentityFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func serve(t *testing.T, authn Authenticator, path string) (*captureHandler, *httptest.ResponseRecorder) {
	t.Helper()
	next := &captureHandler{}
	handler := Middleware(authn, nil, BypassEndpoints("/metrics"))(next)

	req := httptest.NewRequest("POST", path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return next, rec
}

func TestMiddleware_ValidIdentity_Forwarded(t *testing.T) {
	authn := &mockAuthn{result: AuthResult{
		Decision: Yes,
		Identity: &Identity{Email: "a@x.com", ExternalID: "ext-1"},
	}}

	next, rec := serve(t, authn, "/api/products/user/123")

	if rec.Code != http.StatusOK {
		t.Errorf("valid auth: status = %d, want 200", rec.Code)
	}
	if !next.identity.Authenticated() {
		t.Fatal("expected authenticated identity in context")
	}
	if next.identity.Email != "a@x.com" || next.identity.ExternalID != "ext-1" {
		t.Errorf("identity = %+v, want a@x.com/ext-1", next.identity)
	}
}

func TestMiddleware_InvalidCredential_ProceedsAnonymously(t *testing.T) {
	authn := &mockAuthn{result: AuthResult{
		Decision: No,
		Err:      &reasonErr{reason: "expired"},
	}}

	next, rec := serve(t, authn, "/api/products")

	if !next.called {
		t.Fatal("request was not forwarded after failed verification")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("invalid auth: status = %d, want 200 from downstream handler", rec.Code)
	}
	if next.identity != nil {
		t.Errorf("identity = %+v, want anonymous", next.identity)
	}
}

func TestMiddleware_NoCredential_ProceedsAnonymously(t *testing.T) {
	authn := &mockAuthn{result: AuthResult{Decision: Abstain}}

	next, rec := serve(t, authn, "/api/products")

	if !next.called || rec.Code != http.StatusOK {
		t.Fatalf("request not forwarded: called=%v status=%d", next.called, rec.Code)
	}
	if next.identity.Authenticated() {
		t.Error("expected anonymous context")
	}
}

func TestMiddleware_YesWithoutEmail_TreatedAsAnonymous(t *testing.T) {
	authn := &mockAuthn{result: AuthResult{
		Decision: Yes,
		Identity: &Identity{ExternalID: "ext-1"},
	}}

	next, _ := serve(t, authn, "/api/products")

	if next.identity != nil {
		t.Errorf("identity = %+v, want anonymous", next.identity)
	}
}

func TestMiddleware_BypassEndpoint(t *testing.T) {
	authn := &mockAuthn{result: AuthResult{Decision: No, Err: errors.New("should not run")}}

	next, rec := serve(t, authn, "/healthz")

	if rec.Code != http.StatusOK || !next.called {
		t.Errorf("bypass endpoint: status = %d, called = %v", rec.Code, next.called)
	}
	if authn.calls != 0 {
		t.Errorf("authenticator called %d times on bypass endpoint, want 0", authn.calls)
	}
}

func TestMiddleware_IdentityNotSharedAcrossRequests(t *testing.T) {
	authn := &mockAuthn{result: AuthResult{
		Decision: Yes,
		Identity: &Identity{Email: "a@x.com", ExternalID: "ext-1"},
	}}
	next := &captureHandler{}
	handler := Middleware(authn, nil, nil)(next)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/users/me", nil))
	if !next.identity.Authenticated() {
		t.Fatal("first request should be authenticated")
	}

	authn.result = AuthResult{Decision: Abstain}
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/users/me", nil))
	if next.identity != nil {
		t.Errorf("second request saw identity %+v, want anonymous", next.identity)
	}
}

var _ Authenticator = (*mockAuthn)(nil)
