// Package i18n lists the supported languages and resolves tags against them.
package i18n

import (
	"strings"

	"github.com/failuretoload/datamonster-web/internal/platform/i18n/catalog"
	"golang.org/x/text/language"
)

var (
	supported = loadSupported()
	matcher   = language.NewMatcher(supported)
)

func loadSupported() []language.Tag {
	tags := []language.Tag{language.MustParse(catalog.BaseLocale)}
	for _, locale := range catalog.Default().Locales() {
		if locale == catalog.BaseLocale {
			continue
		}
		tags = append(tags, language.MustParse(locale))
	}
	return tags
}

// SupportedTags returns the supported tags, default first.
func SupportedTags() []language.Tag {
	out := make([]language.Tag, len(supported))
	copy(out, supported)
	return out
}

// DefaultTag returns the default language tag.
func DefaultTag() language.Tag {
	return supported[0]
}

// ParseTag parses value and reports whether it matches a supported language
// with at least high confidence. "pt" resolves to pt-BR.
func ParseTag(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultTag(), false
	}
	tag, err := language.Parse(value)
	if err != nil {
		return DefaultTag(), false
	}
	_, idx, conf := matcher.Match(tag)
	if conf < language.High {
		return DefaultTag(), false
	}
	return supported[idx], true
}

// MatchTags returns the best supported tag for the preference list, falling
// back to the default.
func MatchTags(tags []language.Tag) language.Tag {
	if len(tags) == 0 {
		return DefaultTag()
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultTag()
	}
	return supported[idx]
}
