// Package i18n loads the user-facing strings of the submission form.
// Translations live in embedded YAML files under locales/, one file per
// language tag (en.yaml, de.yaml).
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

var (
	mu        sync.RWMutex
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	current   string
	available []string
)

// Init parses the embedded locales and selects lang. Unknown languages
// fall back to English.
func Init(lang string) error {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return fmt.Errorf("read locales: %w", err)
	}
	tags := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		data, err := localeFS.ReadFile(path.Join("locales", name))
		if err != nil {
			return fmt.Errorf("read locale %s: %w", name, err)
		}
		if _, err := b.ParseMessageFileBytes(data, name); err != nil {
			return fmt.Errorf("parse locale %s: %w", name, err)
		}
		tags = append(tags, strings.TrimSuffix(name, path.Ext(name)))
	}
	sort.Strings(tags)

	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = "en"
	}

	mu.Lock()
	bundle = b
	localizer = i18n.NewLocalizer(b, lang, "en")
	current = lang
	available = tags
	mu.Unlock()
	return nil
}

// T translates messageID. A single map argument is used as template data;
// any other arguments are applied with fmt.Sprintf. Missing IDs return the
// ID itself.
func T(messageID string, args ...any) string {
	mu.RLock()
	loc := localizer
	mu.RUnlock()
	if loc == nil {
		if err := Init("en"); err != nil {
			return messageID
		}
		mu.RLock()
		loc = localizer
		mu.RUnlock()
	}

	cfg := &i18n.LocalizeConfig{MessageID: messageID}
	if len(args) == 1 {
		if data, ok := args[0].(map[string]any); ok {
			cfg.TemplateData = data
			args = nil
		}
	}
	msg, err := loc.Localize(cfg)
	if err != nil {
		return messageID
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// Lang reports the language selected by the last Init.
func Lang() string {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Available lists the language tags with an embedded locale file.
func Available() []string {
	mu.RLock()
	tags := append([]string(nil), available...)
	mu.RUnlock()
	if len(tags) > 0 {
		return tags
	}
	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			tags = append(tags, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
		}
	}
	sort.Strings(tags)
	return tags
}
