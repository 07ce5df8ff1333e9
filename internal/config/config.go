// Package config loads the pagebuilder configuration file.
package config

import (
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "pagebuilder.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PAGEBUILDER_"

// Config represents the application configuration.
type Config struct {
	Site    SiteConfig    `yaml:"site" envPrefix:"SITE_"`
	Content ContentConfig `yaml:"content" envPrefix:"CONTENT_"`
	Output  OutputConfig  `yaml:"output" envPrefix:"OUTPUT_"`
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOG_"`
	Preview PreviewConfig `yaml:"preview" envPrefix:"PREVIEW_"`

	// dir is the directory of the loaded configuration file.
	dir string
}

// SiteConfig holds site-wide rendering settings.
type SiteConfig struct {
	Title     string `yaml:"title" env:"TITLE"`
	BaseURL   string `yaml:"base_url" env:"BASE_URL"`
	MoreLabel string `yaml:"more_label" env:"MORE_LABEL"`
	Language  string `yaml:"language,omitempty" env:"LANGUAGE"`
}

// ContentConfig locates the page sources.
type ContentConfig struct {
	Directory string `yaml:"directory" env:"DIR"`
	Assets    string `yaml:"assets" env:"ASSETS"`
	// Templates optionally points at a directory of layout templates
	// replacing the built-in ones.
	Templates string `yaml:"templates,omitempty" env:"TEMPLATES"`
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	Directory string `yaml:"directory" env:"DIR"`
	Clean     bool   `yaml:"clean" env:"CLEAN"`
}

// LoggingConfig selects the log level and handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level" env:"LEVEL"`
	Format LogFormat `yaml:"format" env:"FORMAT"`
}

// PreviewConfig configures the preview server.
type PreviewConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// Default returns the configuration used when no file sets a value.
func Default() *Config {
	return &Config{
		Site:    SiteConfig{MoreLabel: "Learn More", Language: "en"},
		Content: ContentConfig{Directory: "./_pages", Assets: "./assets"},
		Output:  OutputConfig{Directory: "./_site", Clean: true},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Preview: PreviewConfig{Addr: "127.0.0.1:4000"},
	}
}

// Load reads the configuration file at path over the defaults. An empty
// path yields the defaults. In both cases .env files next to the
// configuration and PAGEBUILDER_* environment variables are applied.
func Load(path string) (*Config, error) {
	loadEnvFiles(filepath.Dir(path))

	cfg := Default()
	if path != "" {
		cfg.dir = filepath.Dir(path)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NotFoundError("configuration file").WithFile(path).Build()
			}
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read config file").WithFile(path).Build()
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").WithFile(path).Build()
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid environment override").Build()
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	level, err := logLevelNormalizer.NormalizeWithError(string(c.Logging.Level))
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid log level").WithField("logging.level").Build()
	}
	format, err := logFormatNormalizer.NormalizeWithError(string(c.Logging.Format))
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid log format").WithField("logging.format").Build()
	}
	c.Logging.Level, c.Logging.Format = level, format

	c.Site.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.Site.BaseURL), "/")
	c.Content.Directory = filepath.Clean(c.Content.Directory)
	c.Output.Directory = filepath.Clean(c.Output.Directory)
	if c.Content.Assets != "" {
		c.Content.Assets = filepath.Clean(c.Content.Assets)
	}
	return nil
}

// Validate checks a normalized configuration.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Content.Directory) == "" || c.Content.Directory == ".":
		return errors.ConfigError("content directory is required").WithField("content.directory").Build()
	case strings.TrimSpace(c.Output.Directory) == "" || c.Output.Directory == ".":
		return errors.ConfigError("output directory is required").WithField("output.directory").Build()
	case c.Preview.Addr == "":
		return errors.ConfigError("preview address is required").WithField("preview.addr").Build()
	}
	if err := c.validateOutputDir(); err != nil {
		return err
	}

	if c.Site.BaseURL != "" {
		u, err := url.Parse(c.Site.BaseURL)
		if err != nil || (u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https") || (u.Scheme == "" && !strings.HasPrefix(c.Site.BaseURL, "/")) {
			return errors.ConfigError("base_url must be an http(s) URL or an absolute path").
				WithField("site.base_url").
				WithCause(err).
				Build()
		}
	}
	return nil
}

// validateOutputDir rejects an output directory that equals or contains
// the sources, the working directory or the configuration's directory. A
// clean build removes the output directory recursively.
func (c *Config) validateOutputDir() error {
	out, err := filepath.Abs(c.Output.Directory)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "cannot resolve output directory").WithField("output.directory").Build()
	}

	guarded := []struct{ name, dir string }{
		{"content.directory", c.Content.Directory},
		{"content.assets", c.Content.Assets},
		{"content.templates", c.Content.Templates},
		{"configuration directory", c.dir},
	}
	if wd, err := os.Getwd(); err == nil {
		guarded = append(guarded, struct{ name, dir string }{"working directory", wd})
	}

	for _, g := range guarded {
		if strings.TrimSpace(g.dir) == "" {
			continue
		}
		abs, err := filepath.Abs(g.dir)
		if err != nil {
			continue
		}
		if within(abs, out) {
			return errors.ConfigError("output directory must not contain the "+g.name).
				WithField("output.directory").
				WithContext("output", out).
				WithContext("conflicts_with", abs).
				Build()
		}
	}
	return nil
}

// within reports whether p is dir or lies below it.
func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ValidationError("configuration file already exists (use --force to overwrite)").WithFile(path).Build()
	}

	example := Default()
	example.Site.Title = "Jane Doe"
	example.Site.BaseURL = "https://example.com"

	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal config").Build()
	}
	data = append([]byte("# pagebuilder configuration\n"), data...)

	// #nosec G306 -- configuration is not secret
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").WithFile(path).Build()
	}
	return nil
}

// loadEnvFiles loads .env and .env.local from dir. Variables already set in
// the process environment win.
func loadEnvFiles(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("Failed to load env file", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("Loaded environment variables", slog.String("path", p))
	}
}
