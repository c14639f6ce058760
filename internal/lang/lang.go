// Package lang resolves localized strings from embedded YAML language files.
package lang

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultLocale = "en"

//go:embed assets/*.yaml
var assets embed.FS

type Translator struct {
	locale   string
	entries  map[string]string
	fallback map[string]string
}

// New loads the embedded file for locale. Keys missing from locale fall back
// to English, then to the key itself.
func New(locale string) (*Translator, error) {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if locale == "" {
		locale = DefaultLocale
	}
	fallback, err := load(DefaultLocale)
	if err != nil {
		return nil, err
	}
	entries := fallback
	if locale != DefaultLocale {
		entries, err = load(locale)
		if err != nil {
			return nil, err
		}
	}
	return &Translator{locale: locale, entries: entries, fallback: fallback}, nil
}

func load(locale string) (map[string]string, error) {
	raw, err := assets.ReadFile(path.Join("assets", locale+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("lang %s: %w", locale, err)
	}
	out := map[string]string{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("lang %s: %w", locale, err)
	}
	return out, nil
}

func (t *Translator) Locale() string { return t.locale }

func (t *Translator) Get(code string, args ...any) string {
	s, ok := t.entries[code]
	if !ok {
		s, ok = t.fallback[code]
	}
	if !ok {
		return code
	}
	if len(args) == 0 {
		return s
	}
	return fmt.Sprintf(s, args...)
}
