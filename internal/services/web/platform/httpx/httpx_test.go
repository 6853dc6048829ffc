package httpx

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/failuretoload/datamonster-web/internal/services/web/platform/errors"
)

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	t.Parallel()

	called := ""
	mark := func(label string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called += label
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called += "h"
		w.WriteHeader(http.StatusNoContent)
	}), mark("1"), nil, mark("2"))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if called != "12h" {
		t.Fatalf("call order = %q, want %q", called, "12h")
	}
}

func TestMethodNotAllowedWritesAllowHeaderAndStatus(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	MethodNotAllowed(http.MethodPost).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/app/settlements/1/population/survivors/2/delete", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
	if got := rr.Header().Get("Allow"); got != http.MethodPost {
		t.Fatalf("Allow = %q, want %q", got, http.MethodPost)
	}
}

func TestRequestIDAddsHeaderWhenMissing(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-ID")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.HasPrefix(seen, "web-") {
		t.Fatalf("request id = %q, want web- prefix", seen)
	}
	if got := rr.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("response request id = %q, want %q", got, seen)
	}
}

func TestRequestIDPreservesIncomingHeader(t *testing.T) {
	t.Parallel()

	h := RequestID()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("X-Request-ID = %q, want %q", got, "req-123")
	}
}

// Not parallel: swaps the global logger output.
func TestRecoverPanicLogsAndRendersFallback(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })

	fallback := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("something went wrong"))
	})
	h := RecoverPanic(fallback)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	req := httptest.NewRequest(http.MethodGet, "/app/settlements/", nil)
	req.Header.Set("X-Request-ID", "req-9")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(rr.Body.String(), "something went wrong") {
		t.Fatalf("body = %q, want fallback page", rr.Body.String())
	}
	logged := buf.String()
	for _, want := range []string{"panic recovered", "path=/app/settlements/", "request_id=req-9", "panic=boom"} {
		if !strings.Contains(logged, want) {
			t.Fatalf("log = %q, want %q", logged, want)
		}
	}
}

func TestWriteRedirect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		method       string
		htmx         bool
		wantStatus   int
		wantLocation string
		wantHX       string
	}{
		{name: "get", method: http.MethodGet, wantStatus: http.StatusFound, wantLocation: "/signin"},
		{name: "post", method: http.MethodPost, wantStatus: http.StatusSeeOther, wantLocation: "/signin"},
		{name: "htmx", method: http.MethodPost, htmx: true, wantStatus: http.StatusOK, wantHX: "/signin"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(tc.method, "/app/settlements/", nil)
			if tc.htmx {
				req.Header.Set("HX-Request", "true")
			}
			rr := httptest.NewRecorder()
			WriteRedirect(rr, req, "/signin")
			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			if got := rr.Header().Get("Location"); got != tc.wantLocation {
				t.Fatalf("Location = %q, want %q", got, tc.wantLocation)
			}
			if got := rr.Header().Get("HX-Redirect"); got != tc.wantHX {
				t.Fatalf("HX-Redirect = %q, want %q", got, tc.wantHX)
			}
		})
	}
}

func TestWriteErrorUsesTypedStatus(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	WriteError(rr, apperrors.E(apperrors.KindNotFound, "missing settlement"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	if strings.Contains(rr.Body.String(), "missing settlement") {
		t.Fatalf("body leaked internal message: %q", rr.Body.String())
	}
}

func TestWriteJSONError(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	if err := WriteJSONError(rr, http.StatusServiceUnavailable, "unavailable"); err != nil {
		t.Fatalf("WriteJSONError() error = %v", err)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Fatalf("Content-Type = %q", got)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"error":"unavailable"}` {
		t.Fatalf("body = %q", got)
	}
}

func TestNoStoreSetsCacheControl(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	NoStore()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q, want no-store", got)
	}
}

func TestSafeRedirectPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/app/settlements/1":   "/app/settlements/1",
		"":                     "/fallback",
		"https://evil.example": "/fallback",
		"//evil.example":       "/fallback",
		"/\\evil.example":      "/fallback",
		"relative":             "/fallback",
	}
	for in, want := range tests {
		if got := SafeRedirectPath(in, "/fallback"); got != want {
			t.Fatalf("SafeRedirectPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsHTMXPartial(t *testing.T) {
	t.Parallel()

	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	partial := httptest.NewRequest(http.MethodGet, "/", nil)
	partial.Header.Set("HX-Request", "true")
	boosted := httptest.NewRequest(http.MethodGet, "/", nil)
	boosted.Header.Set("HX-Request", "true")
	boosted.Header.Set("HX-Boosted", "true")

	if IsHTMXPartial(plain) || !IsHTMXPartial(partial) || IsHTMXPartial(boosted) {
		t.Fatalf("partial detection: plain=%v partial=%v boosted=%v", IsHTMXPartial(plain), IsHTMXPartial(partial), IsHTMXPartial(boosted))
	}
	if !IsHTMXRequest(boosted) {
		t.Fatal("boosted request is still an HTMX request")
	}
}
