package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/failuretoload/datamonster-web/internal/services/web/auth"
	"github.com/failuretoload/datamonster-web/internal/services/web/session"
)

type backend struct {
	server    *httptest.Server
	exchanges atomic.Int32
	validates atomic.Int32
}

func newBackend(t *testing.T, exchangeStatus int, validToken string) *backend {
	t.Helper()
	b := &backend{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/google", func(w http.ResponseWriter, r *http.Request) {
		b.exchanges.Add(1)
		var body struct {
			Credential string `json:"credential"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Credential == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if exchangeStatus != http.StatusOK {
			w.WriteHeader(exchangeStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"token":  validToken,
			"userId": "u-1",
			"email":  "ada@example.com",
			"name":   "Ada",
		})
	})
	mux.HandleFunc("GET /auth/validate", func(w http.ResponseWriter, r *http.Request) {
		b.validates.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"userId": "u-1", "email": "ada@example.com"})
	})
	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func newCell(t *testing.T, token string) (*session.Cell, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore(0)
	if token != "" {
		if err := store.Put(context.Background(), session.Record{SessionID: "sid-1", Token: token}); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	cell := session.NewManager(store).Acquire("sid-1")
	t.Cleanup(cell.Release)
	return cell, store
}

func storedToken(t *testing.T, store *session.MemoryStore) (string, bool) {
	t.Helper()
	record, ok, err := store.Get(context.Background(), "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return record.Token, ok
}

func TestExchangeStoresTokenOnSuccess(t *testing.T) {
	b := newBackend(t, http.StatusOK, "app-token")
	cell, store := newCell(t, "")

	user, err := NewExchanger(b.server.URL, b.server.Client()).Exchange(context.Background(), cell, "google-id-token")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if user.ID != "u-1" || user.Email != "ada@example.com" {
		t.Fatalf("user = %+v", user)
	}
	if token, ok := storedToken(t, store); !ok || token != "app-token" {
		t.Fatalf("stored token = %q, %v", token, ok)
	}
}

func TestExchangeFailureLeavesStoreUnchanged(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusInternalServerError} {
		b := newBackend(t, status, "app-token")
		cell, store := newCell(t, "previous")

		_, err := NewExchanger(b.server.URL, b.server.Client()).Exchange(context.Background(), cell, "google-id-token")
		if !errors.Is(err, auth.ErrAuthentication) {
			t.Fatalf("status %d: err = %v, want ErrAuthentication", status, err)
		}
		if token, ok := storedToken(t, store); !ok || token != "previous" {
			t.Fatalf("status %d: stored token = %q, %v", status, token, ok)
		}
	}
}

func TestExchangeNetworkFailure(t *testing.T) {
	b := newBackend(t, http.StatusOK, "app-token")
	url := b.server.URL
	b.server.Close()
	cell, store := newCell(t, "")

	_, err := NewExchanger(url, nil).Exchange(context.Background(), cell, "google-id-token")
	if !errors.Is(err, auth.ErrAuthentication) {
		t.Fatalf("err = %v, want ErrAuthentication", err)
	}
	if _, ok := storedToken(t, store); ok {
		t.Fatal("store written after network failure")
	}
}

func TestExchangeRejectsBlankCredential(t *testing.T) {
	b := newBackend(t, http.StatusOK, "app-token")
	cell, _ := newCell(t, "")

	_, err := NewExchanger(b.server.URL, b.server.Client()).Exchange(context.Background(), cell, "  ")
	if !errors.Is(err, auth.ErrAuthentication) {
		t.Fatalf("err = %v", err)
	}
	if got := b.exchanges.Load(); got != 0 {
		t.Fatalf("exchange calls = %d, want 0", got)
	}
}

func TestValidateWithoutTokenMakesNoRequest(t *testing.T) {
	b := newBackend(t, http.StatusOK, "app-token")
	cell, _ := newCell(t, "")

	_, err := NewValidator(b.server.URL, b.server.Client()).Validate(context.Background(), cell)
	if !errors.Is(err, auth.ErrNoToken) {
		t.Fatalf("err = %v, want ErrNoToken", err)
	}
	if got := b.validates.Load(); got != 0 {
		t.Fatalf("validate calls = %d, want 0", got)
	}
}

func TestValidateAcceptsValidToken(t *testing.T) {
	b := newBackend(t, http.StatusOK, "app-token")
	cell, store := newCell(t, "app-token")

	user, err := NewValidator(b.server.URL, b.server.Client()).Validate(context.Background(), cell)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if user.ID != "u-1" {
		t.Fatalf("user = %+v", user)
	}
	if _, ok := storedToken(t, store); !ok {
		t.Fatal("valid token was cleared")
	}
}

func TestValidateFailureClearsStore(t *testing.T) {
	b := newBackend(t, http.StatusOK, "app-token")
	cell, store := newCell(t, "stale-token")

	_, err := NewValidator(b.server.URL, b.server.Client()).Validate(context.Background(), cell)
	if !errors.Is(err, auth.ErrSessionInvalid) {
		t.Fatalf("err = %v, want ErrSessionInvalid", err)
	}
	if _, ok := storedToken(t, store); ok {
		t.Fatal("invalid token still stored")
	}
	if _, ok := cell.Token(context.Background()); ok {
		t.Fatal("cell still reports token")
	}
}

func TestStrategySignInAndSignOut(t *testing.T) {
	b := newBackend(t, http.StatusOK, "app-token")
	strategy, err := New(Config{ClientID: "client-1", APIBaseURL: b.server.URL, HTTPClient: b.server.Client()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cell, store := newCell(t, "")
	authCtx := auth.NewContext(strategy, cell)

	user, _, err := authCtx.SignIn(context.Background(), auth.Credential{IDToken: "google-id-token"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if user.Email != "ada@example.com" || !authCtx.Authenticated() {
		t.Fatalf("user = %+v authenticated = %v", user, authCtx.Authenticated())
	}

	result := authCtx.SignOut(context.Background())
	if result.RevokeHint != "ada@example.com" || result.ClientID != "client-1" {
		t.Fatalf("sign out result = %+v", result)
	}
	if _, ok := storedToken(t, store); ok {
		t.Fatal("token survived sign out")
	}
}

func TestStrategyPrompt(t *testing.T) {
	strategy, err := New(Config{ClientID: "client-1", APIBaseURL: "http://api.test", LoginURI: "/auth/google"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	prompt, err := strategy.Prompt(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if prompt.Kind != auth.PromptGoogleButton || prompt.ClientID != "client-1" || prompt.LoginURI != "/auth/google" {
		t.Fatalf("prompt = %+v", prompt)
	}
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(Config{APIBaseURL: "http://api.test"}); err == nil {
		t.Fatal("expected error for missing client id")
	}
	if _, err := New(Config{ClientID: "client-1"}); err == nil {
		t.Fatal("expected error for missing api base url")
	}
}
