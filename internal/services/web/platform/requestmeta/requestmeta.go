// Package requestmeta resolves request scheme and origin facts used by cookie
// and CSRF decisions.
package requestmeta

import (
	"net/http"
	"net/url"
	"strings"
)

// SchemePolicy controls how the request scheme is resolved.
//
// X-Forwarded-Proto is only honored when TrustForwardedProto is set, which
// should happen only behind a proxy that overwrites the header.
type SchemePolicy struct {
	TrustForwardedProto bool
}

type origin struct {
	scheme string
	host   string
	port   string
}

func (o origin) valid() bool {
	return o.scheme != "" && o.host != "" && o.port != ""
}

// IsHTTPS reports whether the request should be treated as HTTPS.
func IsHTTPS(r *http.Request, policy SchemePolicy) bool {
	return Scheme(r, policy) == "https"
}

// Scheme returns "https" or "http" for the request.
func Scheme(r *http.Request, policy SchemePolicy) string {
	if r == nil {
		return ""
	}
	if policy.TrustForwardedProto {
		if forwarded := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); forwarded == "http" || forwarded == "https" {
			return forwarded
		}
	}
	if r.URL != nil {
		if scheme := strings.ToLower(r.URL.Scheme); scheme == "http" || scheme == "https" {
			return scheme
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// HasSameOriginProof reports whether the Origin header, or the Referer when
// Origin is absent, names the same scheme, host and port as the request.
func HasSameOriginProof(r *http.Request, policy SchemePolicy) bool {
	if r == nil {
		return false
	}
	self := requestOrigin(r, policy)
	if !self.valid() {
		return false
	}
	raw := strings.TrimSpace(r.Header.Get("Origin"))
	if raw == "" {
		raw = strings.TrimSpace(r.Header.Get("Referer"))
	}
	if raw == "" || raw == "null" {
		return false
	}
	other, ok := parseOrigin(raw)
	if !ok {
		return false
	}
	return other == self
}

// Origin returns scheme://host[:port] for the request, used to build absolute
// callback URLs.
func Origin(r *http.Request, policy SchemePolicy) string {
	if r == nil {
		return ""
	}
	return Scheme(r, policy) + "://" + r.Host
}

func requestOrigin(r *http.Request, policy SchemePolicy) origin {
	scheme := Scheme(r, policy)
	host, port := splitHost(r.Host)
	if host == "" && r.URL != nil {
		host, port = splitHost(r.URL.Host)
	}
	if port == "" {
		port = defaultPort(scheme)
	}
	return origin{scheme: scheme, host: host, port: port}
}

func parseOrigin(raw string) (origin, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return origin{}, false
	}
	o := origin{
		scheme: strings.ToLower(parsed.Scheme),
		host:   strings.ToLower(parsed.Hostname()),
		port:   parsed.Port(),
	}
	if o.port == "" {
		o.port = defaultPort(o.scheme)
	}
	return o, o.valid()
}

func defaultPort(scheme string) string {
	switch scheme {
	case "https":
		return "443"
	case "http":
		return "80"
	default:
		return ""
	}
}

func splitHost(raw string) (string, string) {
	parsed, err := url.Parse("//" + strings.TrimSpace(raw))
	if err != nil {
		return "", ""
	}
	return strings.ToLower(parsed.Hostname()), parsed.Port()
}
