// Package sessioncookie reads and writes the cookies the web service sets on
// the browser.
package sessioncookie

import (
	"net/http"
	"strings"
	"time"

	"github.com/failuretoload/datamonster-web/internal/services/web/platform/requestmeta"
)

// Name is the browser-session cookie. Its value keys the server-side session
// store and never carries the backend token itself.
const Name = "dm_session"

// Read returns the trimmed session cookie value when present.
func Read(r *http.Request) (string, bool) {
	return ReadNamed(r, Name)
}

// Write sets the session cookie.
func Write(w http.ResponseWriter, r *http.Request, sessionID string, policy requestmeta.SchemePolicy) {
	Set(w, r, Name, strings.TrimSpace(sessionID), 0, policy)
}

// Clear expires the session cookie.
func Clear(w http.ResponseWriter, r *http.Request, policy requestmeta.SchemePolicy) {
	Set(w, r, Name, "", -1, policy)
}

// ReadNamed returns the trimmed value of any cookie when present.
func ReadNamed(r *http.Request, name string) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	return value, value != ""
}

// Set writes an HttpOnly, SameSite=Lax, root-path cookie. maxAge follows
// http.Cookie semantics: zero is a session cookie, negative deletes.
func Set(w http.ResponseWriter, r *http.Request, name, value string, maxAge int, policy requestmeta.SchemePolicy) {
	if w == nil {
		return
	}
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r, policy),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
	if maxAge < 0 {
		cookie.Expires = time.Unix(0, 0)
	}
	http.SetCookie(w, cookie)
}
