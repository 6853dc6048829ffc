// Package flash provides one-time notices carried across a redirect.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/failuretoload/datamonster-web/internal/services/web/platform/requestmeta"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/sessioncookie"
)

// CookieName is the cookie used for one-time notices.
const CookieName = "dm_flash"

// Kind classifies notice presentation.
type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notice stores one message key to show on the next page render.
type Notice struct {
	Kind Kind   `json:"kind"`
	Key  string `json:"key"`
}

// Success creates a success notice for the message key.
func Success(key string) Notice {
	return Notice{Kind: KindSuccess, Key: key}
}

// Failure creates an error notice for the message key.
func Failure(key string) Notice {
	return Notice{Kind: KindError, Key: key}
}

// Write stores a notice cookie for the next page render. Invalid notices are
// dropped.
func Write(w http.ResponseWriter, r *http.Request, notice Notice, policy requestmeta.SchemePolicy) {
	normalized, ok := normalize(notice)
	if !ok {
		return
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return
	}
	sessioncookie.Set(w, r, CookieName, base64.RawURLEncoding.EncodeToString(payload), 0, policy)
}

// ReadAndClear returns the pending notice, if any, and expires its cookie.
func ReadAndClear(w http.ResponseWriter, r *http.Request, policy requestmeta.SchemePolicy) (Notice, bool) {
	raw, ok := sessioncookie.ReadNamed(r, CookieName)
	if !ok {
		return Notice{}, false
	}
	sessioncookie.Set(w, r, CookieName, "", -1, policy)
	return decode(raw)
}

func decode(raw string) (Notice, bool) {
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return Notice{}, false
	}
	var notice Notice
	if err := json.Unmarshal(decoded, &notice); err != nil {
		return Notice{}, false
	}
	return normalize(notice)
}

func normalize(notice Notice) (Notice, bool) {
	notice.Key = strings.TrimSpace(notice.Key)
	if notice.Key == "" {
		return Notice{}, false
	}
	notice.Kind = Kind(strings.ToLower(strings.TrimSpace(string(notice.Kind))))
	switch notice.Kind {
	case KindSuccess, KindInfo, KindWarning, KindError:
		return notice, true
	default:
		return Notice{}, false
	}
}
