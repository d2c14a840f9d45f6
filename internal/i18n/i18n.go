// Package i18n serves the bot's user-facing texts. Catalogs are YAML
// files keyed by language at the top level, with nested sections
// flattened into dot-separated lookup keys.
package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultDir = "internal/i18n"

// Translator resolves a dot-separated key to the localized string. An
// unknown key falls back to the default language and then to the key
// itself, so a missing translation never breaks a message.
type Translator interface {
	T(key string) string
	Lang() string
}

// Manager holds every loaded catalog.
type Manager struct {
	catalogs    map[string]map[string]string
	defaultLang string
}

// Load reads catalogs from the default directory.
func Load(defaultLang string) (*Manager, error) {
	return LoadFromDir(defaultDir, defaultLang)
}

// LoadFromDir reads every *.yaml / *.yml file in dir and merges the
// per-language catalogs. The default language must be present.
func LoadFromDir(dir, defaultLang string) (*Manager, error) {
	if defaultLang == "" {
		defaultLang = "en"
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read dir %s: %w", dir, err)
	}

	catalogs := make(map[string]map[string]string)
	loaded := 0

	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}

		if err := mergeFile(filepath.Join(dir, entry.Name()), catalogs); err != nil {
			return nil, err
		}
		loaded++
	}

	if loaded == 0 {
		return nil, fmt.Errorf("i18n: no yaml files found in %s", dir)
	}
	if catalogs[defaultLang] == nil {
		return nil, fmt.Errorf("i18n: default language %q is missing", defaultLang)
	}

	return &Manager{catalogs: catalogs, defaultLang: defaultLang}, nil
}

// Translator returns the translator for lang, falling back to the
// default language for unknown or empty codes.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	code := strings.ToLower(strings.TrimSpace(lang))
	if code == "" || m.catalogs[code] == nil {
		code = m.defaultLang
	}

	return translator{
		lang:     code,
		fallback: m.defaultLang,
		catalogs: m.catalogs,
	}
}

// Languages lists every loaded language code.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}

	languages := make([]string, 0, len(m.catalogs))
	for lang := range m.catalogs {
		languages = append(languages, lang)
	}
	return languages
}

type translator struct {
	lang     string
	fallback string
	catalogs map[string]map[string]string
}

func (t translator) Lang() string {
	return t.lang
}

func (t translator) T(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}

	for _, lang := range []string{t.lang, t.fallback} {
		if entries := t.catalogs[lang]; entries != nil {
			if value, ok := entries[key]; ok && value != "" {
				return value
			}
		}
	}

	return key
}

func mergeFile(path string, catalogs map[string]map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("i18n: read file %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("i18n: parse file %s: %w", path, err)
	}

	for lang, value := range raw {
		code := strings.ToLower(strings.TrimSpace(lang))
		section := asStringMap(value)
		if code == "" || section == nil {
			continue
		}

		if catalogs[code] == nil {
			catalogs[code] = make(map[string]string)
		}
		flatten("", section, catalogs[code])
	}

	return nil
}

// flatten turns nested sections into dot-separated keys:
// {reminder: {text: ...}} becomes "reminder.text".
func flatten(prefix string, section map[string]any, out map[string]string) {
	for key, value := range section {
		if key == "" {
			continue
		}

		full := key
		if prefix != "" {
			full = prefix + "." + key
		}

		switch v := value.(type) {
		case string:
			out[full] = v
		default:
			if child := asStringMap(v); child != nil {
				flatten(full, child, out)
			}
		}
	}
}

func asStringMap(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case map[interface{}]any:
		converted := make(map[string]any, len(v))
		for key, item := range v {
			if keyStr, ok := key.(string); ok {
				converted[keyStr] = item
			}
		}
		return converted
	default:
		return nil
	}
}
