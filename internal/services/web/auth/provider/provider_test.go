package provider

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/failuretoload/datamonster-web/internal/services/web/auth"
	"github.com/failuretoload/datamonster-web/internal/services/web/session"
)

const (
	testIssuer   = "https://id.example.test"
	testClientID = "datamonster-web"
)

type idp struct {
	server   *httptest.Server
	key      *rsa.PrivateKey
	idToken  string
	verifier atomic.Value
	revoked  atomic.Int32
}

func newIDP(t *testing.T) *idp {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	p := &idp{key: key}
	p.idToken = p.sign(t, time.Now().Add(time.Hour))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		p.verifier.Store(r.PostForm.Get("code_verifier"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "opaque-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     p.idToken,
		})
	})
	mux.HandleFunc("POST /revoke", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err == nil && r.PostForm.Get("token") == p.idToken {
			p.revoked.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *idp) sign(t *testing.T, expires time.Time) string {
	t.Helper()
	claims := idClaims{
		Email: "ada@example.com",
		Name:  "Ada",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-7",
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testClientID},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func (p *idp) publicPEM(t *testing.T) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&p.key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func (p *idp) strategy(t *testing.T) *Strategy {
	t.Helper()
	s, err := New(Config{
		ClientID:      testClientID,
		AuthURL:       p.server.URL + "/authorize",
		TokenURL:      p.server.URL + "/token",
		RedirectURL:   "http://web.test/auth/callback",
		PublicKeyPEM:  p.publicPEM(t),
		Issuer:        testIssuer,
		RevocationURL: p.server.URL + "/revoke",
		HTTPClient:    p.server.Client(),
	})
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	return s
}

func newCell(t *testing.T, manager *session.Manager, sid string) *session.Cell {
	t.Helper()
	cell := manager.Acquire(sid)
	t.Cleanup(cell.Release)
	return cell
}

func promptState(t *testing.T, s *Strategy, cell *session.Cell, next string) (string, url.Values) {
	t.Helper()
	prompt, err := s.Prompt(context.Background(), cell, next)
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if prompt.Kind != auth.PromptRedirect {
		t.Fatalf("prompt kind = %q", prompt.Kind)
	}
	u, err := url.Parse(prompt.URL)
	if err != nil {
		t.Fatalf("parse prompt url: %v", err)
	}
	query := u.Query()
	return query.Get("state"), query
}

func TestPromptUsesPKCE(t *testing.T) {
	p := newIDP(t)
	s := p.strategy(t)
	cell := newCell(t, session.NewManager(session.NewMemoryStore(0)), "sid-1")

	state, query := promptState(t, s, cell, "/app/settlements/")
	if state == "" {
		t.Fatal("missing state")
	}
	if query.Get("code_challenge") == "" || query.Get("code_challenge_method") != "S256" {
		t.Fatalf("missing PKCE challenge: %v", query)
	}
	if query.Get("client_id") != testClientID {
		t.Fatalf("client_id = %q", query.Get("client_id"))
	}
	if got := s.flows.len(); got != 1 {
		t.Fatalf("pending flows = %d, want 1", got)
	}
}

func TestPromptRequiresBrowserSession(t *testing.T) {
	p := newIDP(t)
	s := p.strategy(t)
	if _, err := s.Prompt(context.Background(), session.NewManager(session.NewMemoryStore(0)).Acquire(""), ""); err == nil {
		t.Fatal("expected error without a session id")
	}
}

func TestSignInStoresVerifiedIDToken(t *testing.T) {
	p := newIDP(t)
	s := p.strategy(t)
	store := session.NewMemoryStore(0)
	cell := newCell(t, session.NewManager(store), "sid-1")
	state, _ := promptState(t, s, cell, "/app/settlements/3")

	user, next, err := s.SignIn(context.Background(), cell, auth.Credential{Code: "good-code", State: state})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if user.ID != "user-7" || user.Email != "ada@example.com" {
		t.Fatalf("user = %+v", user)
	}
	if next != "/app/settlements/3" {
		t.Fatalf("next = %q", next)
	}
	if v, _ := p.verifier.Load().(string); v == "" {
		t.Fatal("token request carried no code_verifier")
	}
	record, ok, err := store.Get(context.Background(), "sid-1")
	if err != nil || !ok || record.Token != p.idToken {
		t.Fatalf("stored record = %+v, %v, %v", record, ok, err)
	}

	again, err := s.CurrentUser(context.Background(), cell)
	if err != nil || again.ID != "user-7" {
		t.Fatalf("current user = %+v, %v", again, err)
	}
}

func TestSignInStateIsSingleUse(t *testing.T) {
	p := newIDP(t)
	s := p.strategy(t)
	cell := newCell(t, session.NewManager(session.NewMemoryStore(0)), "sid-1")
	state, _ := promptState(t, s, cell, "")

	if _, _, err := s.SignIn(context.Background(), cell, auth.Credential{Code: "good-code", State: state}); err != nil {
		t.Fatalf("first sign in: %v", err)
	}
	_, _, err := s.SignIn(context.Background(), cell, auth.Credential{Code: "good-code", State: state})
	if !errors.Is(err, auth.ErrAuthentication) {
		t.Fatalf("replayed state err = %v", err)
	}
}

func TestSignInRejectsOtherBrowserSession(t *testing.T) {
	p := newIDP(t)
	s := p.strategy(t)
	store := session.NewMemoryStore(0)
	manager := session.NewManager(store)
	state, _ := promptState(t, s, newCell(t, manager, "sid-1"), "")

	other := newCell(t, manager, "sid-2")
	_, _, err := s.SignIn(context.Background(), other, auth.Credential{Code: "good-code", State: state})
	if !errors.Is(err, auth.ErrAuthentication) {
		t.Fatalf("err = %v", err)
	}
	if _, ok, _ := store.Get(context.Background(), "sid-2"); ok {
		t.Fatal("token stored for the wrong session")
	}
}

func TestSignInBadCodeLeavesStoreUnchanged(t *testing.T) {
	p := newIDP(t)
	s := p.strategy(t)
	store := session.NewMemoryStore(0)
	cell := newCell(t, session.NewManager(store), "sid-1")
	state, _ := promptState(t, s, cell, "")

	_, _, err := s.SignIn(context.Background(), cell, auth.Credential{Code: "bad-code", State: state})
	if !errors.Is(err, auth.ErrAuthentication) {
		t.Fatalf("err = %v", err)
	}
	if _, ok, _ := store.Get(context.Background(), "sid-1"); ok {
		t.Fatal("store written after failed exchange")
	}
}

func TestCurrentUserClearsExpiredToken(t *testing.T) {
	p := newIDP(t)
	s := p.strategy(t)
	store := session.NewMemoryStore(0)
	expired := p.sign(t, time.Now().Add(-time.Minute))
	if err := store.Put(context.Background(), session.Record{SessionID: "sid-1", Token: expired}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cell := newCell(t, session.NewManager(store), "sid-1")

	_, err := s.CurrentUser(context.Background(), cell)
	if !errors.Is(err, auth.ErrSessionInvalid) {
		t.Fatalf("err = %v", err)
	}
	if _, ok, _ := store.Get(context.Background(), "sid-1"); ok {
		t.Fatal("expired token still stored")
	}
}

func TestCurrentUserWithoutToken(t *testing.T) {
	p := newIDP(t)
	s := p.strategy(t)
	cell := newCell(t, session.NewManager(session.NewMemoryStore(0)), "sid-1")
	if _, err := s.CurrentUser(context.Background(), cell); !errors.Is(err, auth.ErrNoToken) {
		t.Fatalf("err = %v", err)
	}
}

func TestSignOutRevokesAndClears(t *testing.T) {
	p := newIDP(t)
	s := p.strategy(t)
	store := session.NewMemoryStore(0)
	if err := store.Put(context.Background(), session.Record{SessionID: "sid-1", Token: p.idToken}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cell := newCell(t, session.NewManager(store), "sid-1")

	auth.NewContext(s, cell).SignOut(context.Background())
	if got := p.revoked.Load(); got != 1 {
		t.Fatalf("revocations = %d, want 1", got)
	}
	if _, ok, _ := store.Get(context.Background(), "sid-1"); ok {
		t.Fatal("token survived sign out")
	}
}

func TestPendingFlowsExpire(t *testing.T) {
	flows := newPendingFlows(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	flows.now = func() time.Time { return now }
	flows.put("state-1", pendingFlow{sessionID: "sid-1", verifier: "v"})

	now = now.Add(2 * time.Minute)
	if _, ok := flows.take("state-1"); ok {
		t.Fatal("expired flow was accepted")
	}
	if got := flows.len(); got != 0 {
		t.Fatalf("flows = %d, want 0", got)
	}
}

func TestNewTokenVerifierRejectsGarbage(t *testing.T) {
	if _, err := NewTokenVerifier("not a key", testIssuer, testClientID); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewTokenVerifier("", testIssuer, testClientID); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	p := newIDP(t)
	v, err := NewTokenVerifier(p.publicPEM(t), testIssuer, "someone-else")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	if _, err := v.Verify(p.idToken); err == nil {
		t.Fatal("expected audience failure")
	}
}
