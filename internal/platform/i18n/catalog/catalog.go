// Package catalog loads the YAML message catalogs and registers them with
// golang.org/x/text/message.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the canonical source locale for catalogs.
const BaseLocale = "en-US"

// catalogFile is the on-disk shape of locales/<locale>/<namespace>.yaml.
type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

type localeCatalog struct {
	namespaces map[string]struct{}
	messages   map[string]string
}

// Bundle contains all locale catalogs loaded from a filesystem.
type Bundle struct {
	locales map[string]*localeCatalog
}

//go:embed locales/*/*.yaml
var embeddedCatalogFS embed.FS

var defaultBundle = mustLoadAndRegisterEmbedded()

// Default returns the process-wide embedded catalog bundle.
func Default() *Bundle {
	return defaultBundle
}

// LoadEmbedded loads catalog files embedded in this package.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedCatalogFS)
}

// LoadFromFS loads every locales/*/*.yaml file from catalogFS.
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(catalogFS, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	bundle := &Bundle{locales: map[string]*localeCatalog{}}
	for _, p := range paths {
		data, err := fs.ReadFile(catalogFS, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := bundle.addFile(p, file); err != nil {
			return nil, err
		}
	}
	if !bundle.HasLocale(BaseLocale) {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	return bundle, nil
}

func (b *Bundle) addFile(p string, file catalogFile) error {
	localeFromPath := path.Base(path.Dir(p))
	namespaceFromPath := strings.TrimSuffix(path.Base(p), path.Ext(p))

	locale := strings.TrimSpace(file.Locale)
	switch {
	case locale == "":
		return fmt.Errorf("catalog %s: locale is required", p)
	case locale != localeFromPath:
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", p, locale, localeFromPath)
	}
	namespace := strings.TrimSpace(file.Namespace)
	switch {
	case namespace == "":
		return fmt.Errorf("catalog %s: namespace is required", p)
	case namespace != namespaceFromPath:
		return fmt.Errorf("catalog %s: namespace %q must match filename namespace %q", p, namespace, namespaceFromPath)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages are required", p)
	}

	lc, ok := b.locales[locale]
	if !ok {
		lc = &localeCatalog{namespaces: map[string]struct{}{}, messages: map[string]string{}}
		b.locales[locale] = lc
	}
	if _, exists := lc.namespaces[namespace]; exists {
		return fmt.Errorf("catalog %s: namespace %q already defined for locale %q", p, namespace, locale)
	}
	lc.namespaces[namespace] = struct{}{}

	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		if strings.HasPrefix(key, "core.") && namespace != "core" {
			return fmt.Errorf("catalog %s: key %q must be defined in core namespace", p, key)
		}
		if _, exists := lc.messages[key]; exists {
			return fmt.Errorf("catalog %s: duplicate key %q in locale %q", p, key, locale)
		}
		lc.messages[key] = value
	}
	return nil
}

// Register registers every message with x/text/message under the locale tag
// and its base language. Locales other than the base also inherit base
// messages they do not translate.
func (b *Bundle) Register() error {
	if b == nil {
		return nil
	}
	for _, locale := range b.Locales() {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		tags := []language.Tag{tag}
		if base, conf := tag.Base(); conf != language.No {
			if baseTag, err := language.Parse(base.String()); err == nil && baseTag.String() != tag.String() {
				tags = append(tags, baseTag)
			}
		}
		messages := b.Messages(locale)
		for key, value := range messages {
			for _, t := range tags {
				if err := message.SetString(t, key, value); err != nil {
					return fmt.Errorf("register %s %q: %w", locale, key, err)
				}
			}
		}
	}
	return nil
}

// HasLocale reports whether the locale exists in this bundle.
func (b *Bundle) HasLocale(locale string) bool {
	if b == nil {
		return false
	}
	_, ok := b.locales[strings.TrimSpace(locale)]
	return ok
}

// Locales returns all available locale identifiers, sorted.
func (b *Bundle) Locales() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.locales))
	for locale := range b.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Messages returns the locale's messages merged over the base locale.
func (b *Bundle) Messages(locale string) map[string]string {
	out := map[string]string{}
	if b == nil {
		return out
	}
	if base, ok := b.locales[BaseLocale]; ok {
		for key, value := range base.messages {
			out[key] = value
		}
	}
	if lc, ok := b.locales[strings.TrimSpace(locale)]; ok {
		for key, value := range lc.messages {
			out[key] = value
		}
	}
	return out
}

// Message returns one message value with base-locale fallback.
func (b *Bundle) Message(locale string, key string) (string, bool) {
	if b == nil {
		return "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	if lc, ok := b.locales[strings.TrimSpace(locale)]; ok {
		if value, exists := lc.messages[key]; exists {
			return value, true
		}
	}
	if base, ok := b.locales[BaseLocale]; ok {
		value, exists := base.messages[key]
		return value, exists
	}
	return "", false
}

// MissingKeys lists base-locale keys the locale does not translate.
func (b *Bundle) MissingKeys(locale string) []string {
	if b == nil {
		return nil
	}
	base, ok := b.locales[BaseLocale]
	if !ok {
		return nil
	}
	lc := b.locales[strings.TrimSpace(locale)]
	var missing []string
	for key := range base.messages {
		if lc == nil {
			missing = append(missing, key)
			continue
		}
		if _, ok := lc.messages[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

func mustLoadAndRegisterEmbedded() *Bundle {
	bundle, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	if err := bundle.Register(); err != nil {
		panic(err)
	}
	return bundle
}
