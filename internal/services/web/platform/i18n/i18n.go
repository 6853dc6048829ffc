// Package i18n resolves the request language and a message printer for it.
package i18n

import (
	"net/http"
	"strings"
	"time"

	platformi18n "github.com/failuretoload/datamonster-web/internal/platform/i18n"
	apperrors "github.com/failuretoload/datamonster-web/internal/services/web/platform/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "dm_lang"
)

// Localizer exposes translated formatting used by templates and handlers.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// LanguageOption is one entry of the language switcher.
type LanguageOption struct {
	Tag    string
	Active bool
}

// ResolveTag picks the request language: lang query, then the language
// cookie, then Accept-Language, then the default. The bool reports whether
// the choice came from the query and should be persisted.
func ResolveTag(r *http.Request) (language.Tag, bool) {
	if r == nil {
		return platformi18n.DefaultTag(), false
	}
	if value := strings.TrimSpace(r.URL.Query().Get(LangParam)); value != "" {
		if tag, ok := platformi18n.ParseTag(value); ok {
			return tag, true
		}
	}
	if cookie, err := r.Cookie(LangCookieName); err == nil {
		if tag, ok := platformi18n.ParseTag(cookie.Value); ok {
			return tag, false
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil {
			return platformi18n.MatchTags(tags), false
		}
	}
	return platformi18n.DefaultTag(), false
}

// ResolveLocalizer returns a printer and language string for the request and
// persists an explicit lang query choice in the language cookie.
func ResolveLocalizer(w http.ResponseWriter, r *http.Request) (*message.Printer, string) {
	tag, persist := ResolveTag(r)
	if persist && w != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     LangCookieName,
			Value:    tag.String(),
			Path:     "/",
			MaxAge:   int((365 * 24 * time.Hour).Seconds()),
			SameSite: http.SameSiteLaxMode,
		})
	}
	return message.NewPrinter(tag), tag.String()
}

// LanguageOptions lists supported languages with the active one marked.
func LanguageOptions(active string) []LanguageOption {
	tags := platformi18n.SupportedTags()
	out := make([]LanguageOption, 0, len(tags))
	for _, tag := range tags {
		out = append(out, LanguageOption{Tag: tag.String(), Active: tag.String() == active})
	}
	return out
}

// LocalizeError resolves a translated message for err, using its
// localization key when it has one.
func LocalizeError(loc Localizer, err error) string {
	if err == nil {
		return ""
	}
	if loc != nil {
		if key := apperrors.LocalizationKey(err); key != "" {
			return loc.Sprintf(message.Key(key, key))
		}
	}
	status := apperrors.HTTPStatus(err)
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	return http.StatusText(status)
}
