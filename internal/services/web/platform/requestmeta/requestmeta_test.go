package requestmeta

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsHTTPS(t *testing.T) {
	t.Parallel()

	plain := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
	if IsHTTPS(plain, SchemePolicy{}) {
		t.Fatal("plain request should not be https")
	}

	forwarded := httptest.NewRequest(http.MethodGet, "/", nil)
	forwarded.Header.Set("X-Forwarded-Proto", "https")
	if IsHTTPS(forwarded, SchemePolicy{}) {
		t.Fatal("forwarded proto must be ignored without trust")
	}
	if !IsHTTPS(forwarded, SchemePolicy{TrustForwardedProto: true}) {
		t.Fatal("forwarded proto should be honored when trusted")
	}

	tlsReq := httptest.NewRequest(http.MethodGet, "/", nil)
	tlsReq.TLS = &tls.ConnectionState{}
	if !IsHTTPS(tlsReq, SchemePolicy{}) {
		t.Fatal("tls request should be https")
	}
}

func TestHasSameOriginProof(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		origin  string
		referer string
		want    bool
	}{
		{name: "matching origin", origin: "http://example.test", want: true},
		{name: "explicit default port", origin: "http://example.test:80", want: true},
		{name: "matching referer", referer: "http://example.test/app/settlements/", want: true},
		{name: "foreign origin", origin: "https://accounts.google.com", want: false},
		{name: "scheme mismatch", origin: "https://example.test", want: false},
		{name: "port mismatch", origin: "http://example.test:8080", want: false},
		{name: "null origin", origin: "null", want: false},
		{name: "origin wins over referer", origin: "http://evil.test", referer: "http://example.test/", want: false},
		{name: "no proof", want: false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "http://example.test/app/settlements/", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.referer != "" {
				req.Header.Set("Referer", tc.referer)
			}
			if got := HasSameOriginProof(req, SchemePolicy{}); got != tc.want {
				t.Fatalf("HasSameOriginProof() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOrigin(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "http://localhost:8080/signin", nil)
	if got := Origin(req, SchemePolicy{}); got != "http://localhost:8080" {
		t.Fatalf("Origin() = %q", got)
	}
}
