// Package config loads runtime settings for the solution form from
// defaults, solution-form.yaml, SOLUTION_FORM_* environment variables and
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Its-donkey/solution-submit/internal/i18n"
	"github.com/Its-donkey/solution-submit/internal/ui/model"
	"github.com/Its-donkey/solution-submit/logging"
)

const (
	configName = "solution-form"
	envPrefix  = "solution_form"

	defaultListen        = "127.0.0.1:4173"
	defaultReturnURL     = "/"
	defaultLang          = "en"
	defaultSubmitTimeout = 10 * time.Second
	defaultFormTTL       = time.Hour
	defaultServiceName   = "solution-form"
	// DefaultLesson is the lesson served when none is configured.
	DefaultLesson = "default"
)

// Config captures runtime settings for the solution form.
type Config struct {
	Listen    string                  `mapstructure:"listen" yaml:"listen"`
	ReturnURL string                  `mapstructure:"return_url" yaml:"return_url"`
	Lang      string                  `mapstructure:"lang" yaml:"lang"`
	FormTTL   time.Duration           `mapstructure:"form_ttl" yaml:"form_ttl"`
	Submit    SubmitConfig            `mapstructure:"submit" yaml:"submit"`
	Log       LogConfig               `mapstructure:"log" yaml:"log"`
	Telemetry TelemetryConfig         `mapstructure:"telemetry" yaml:"telemetry"`
	Lessons   map[string]model.Lesson `mapstructure:"lessons" yaml:"lessons"`
}

// SubmitConfig controls where drafts are forwarded. An empty endpoint logs
// drafts instead.
type SubmitConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	Dir   string `mapstructure:"dir" yaml:"dir"`
}

// TelemetryConfig configures OTLP trace export. An empty endpoint disables it.
type TelemetryConfig struct {
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"listen":                 defaultListen,
		"return_url":             defaultReturnURL,
		"lang":                   defaultLang,
		"form_ttl":               defaultFormTTL,
		"submit.endpoint":        "",
		"submit.timeout":         defaultSubmitTimeout,
		"log.level":              "info",
		"log.dir":                "",
		"telemetry.endpoint":     "",
		"telemetry.service_name": defaultServiceName,
		"lessons": map[string]any{
			DefaultLesson: map[string]any{
				"title":            "Project",
				"has_live_preview": true,
			},
		},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"listen":          "listen",
	"return-url":      "return_url",
	"lang":            "lang",
	"submit-endpoint": "submit.endpoint",
	"submit-timeout":  "submit.timeout",
	"log-level":       "log.level",
	"log-dir":         "log.dir",
	"otlp-endpoint":   "telemetry.endpoint",
}

// LoadConfig builds a Config. configFile, when non-empty, replaces the
// search of the standard locations. cmd may be nil.
func LoadConfig(cmd *cobra.Command, configFile string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if configFile = strings.TrimSpace(configFile); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, configName))
		}
		v.AddConfigPath("/etc/" + configName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		for name, key := range flagKeys {
			flag := cmd.Flags().Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return c, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	c.normalise()
	return c, nil
}

func (c *Config) normalise() {
	c.Listen = strings.TrimSpace(c.Listen)
	c.ReturnURL = strings.TrimSpace(c.ReturnURL)
	c.Lang = strings.TrimSpace(c.Lang)
	c.Submit.Endpoint = strings.TrimSpace(c.Submit.Endpoint)
	c.Telemetry.Endpoint = strings.TrimSpace(c.Telemetry.Endpoint)
	lessons := make(map[string]model.Lesson, len(c.Lessons))
	for slug, lesson := range c.Lessons {
		slug = strings.ToLower(strings.TrimSpace(slug))
		if slug == "" {
			continue
		}
		lesson.Slug = slug
		lessons[slug] = lesson
	}
	c.Lessons = lessons
}

// Validate ensures the configuration can serve forms.
func (c Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if c.ReturnURL == "" {
		return errors.New("return_url is required")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Lang != "" && !slices.Contains(i18n.Available(), c.Lang) {
		return fmt.Errorf("unsupported lang %q (available: %s)", c.Lang, strings.Join(i18n.Available(), ", "))
	}
	if c.Submit.Endpoint != "" {
		u, err := url.Parse(c.Submit.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("submit.endpoint must be an absolute http(s) URL, got %q", c.Submit.Endpoint)
		}
	}
	if c.Submit.Timeout < 0 {
		return errors.New("submit.timeout must not be negative")
	}
	if c.FormTTL < 0 {
		return errors.New("form_ttl must not be negative")
	}
	if len(c.Lessons) == 0 {
		return errors.New("at least one lesson is required")
	}
	return nil
}

// Lesson looks up a configured lesson by slug.
func (c Config) Lesson(slug string) (model.Lesson, bool) {
	lesson, ok := c.Lessons[strings.ToLower(strings.TrimSpace(slug))]
	return lesson, ok
}
