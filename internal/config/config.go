// Package config loads the micropy.json project file used by the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "micropy.json"

	// DefaultHost is the default server host.
	DefaultHost = "127.0.0.1"

	// DefaultPort is the default server port.
	DefaultPort = 8000

	// DefaultTemplatesDir is the default template directory.
	DefaultTemplatesDir = "templates"

	// DefaultStaticDir is the default static file directory.
	DefaultStaticDir = "static"

	// DefaultStaticPrefix is the default static URL prefix.
	DefaultStaticPrefix = "/static"

	// DefaultCookieName is the default session cookie name.
	DefaultCookieName = "micropy_session"
)

// Config represents the complete micropy.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Host is the listen host.
	Host string `json:"host,omitempty"`

	// Port is the listen port.
	Port int `json:"port,omitempty"`

	// SecretKey signs the session cookie. Prefer SecretKeyEnv so the
	// key stays out of the project file.
	SecretKey string `json:"secret_key,omitempty"`

	// SecretKeyEnv names an environment variable holding the secret
	// key; it takes precedence over SecretKey when set and non-empty.
	SecretKeyEnv string `json:"secret_key_env,omitempty"`

	// Paths contains directory configuration.
	Paths PathsConfig `json:"paths,omitempty"`

	// Session contains session cookie configuration.
	Session SessionConfig `json:"session,omitempty"`

	// Debug enables verbose logging.
	Debug bool `json:"debug,omitempty"`
}

// PathsConfig contains directory configuration.
type PathsConfig struct {
	// Templates is the template directory.
	Templates string `json:"templates,omitempty"`

	// Static is the static file directory.
	Static string `json:"static,omitempty"`

	// StaticPrefix is the URL prefix for static files.
	StaticPrefix string `json:"static_prefix,omitempty"`
}

// SessionConfig contains session cookie configuration.
type SessionConfig struct {
	// CookieName is the session cookie name.
	CookieName string `json:"cookie_name,omitempty"`

	// Secure sets the Secure cookie flag.
	Secure bool `json:"secure,omitempty"`

	// SameSite is "lax", "strict", or "none". Empty omits the
	// attribute.
	SameSite string `json:"same_site,omitempty"`

	// Permanent emits a Max-Age on the session cookie.
	Permanent bool `json:"permanent,omitempty"`

	// MaxAgeSeconds is the cookie lifetime when Permanent is set.
	MaxAgeSeconds int `json:"max_age_seconds,omitempty"`
}

// Default returns a Config with defaults applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads micropy.json from dir. A missing file yields the defaults;
// a malformed file is an error.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Paths.Templates == "" {
		c.Paths.Templates = DefaultTemplatesDir
	}
	if c.Paths.Static == "" {
		c.Paths.Static = DefaultStaticDir
	}
	if c.Paths.StaticPrefix == "" {
		c.Paths.StaticPrefix = DefaultStaticPrefix
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = DefaultCookieName
	}
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch strings.ToLower(c.Session.SameSite) {
	case "", "lax", "strict", "none":
	default:
		return fmt.Errorf("invalid same_site %q", c.Session.SameSite)
	}
	return nil
}

// Secret resolves the session secret: the named environment variable
// wins, then the inline key, then a development fallback.
func (c *Config) Secret() string {
	if c.SecretKeyEnv != "" {
		if v := os.Getenv(c.SecretKeyEnv); v != "" {
			return v
		}
	}
	if c.SecretKey != "" {
		return c.SecretKey
	}
	return "dev-secret"
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SameSiteMode maps the configured same_site string to the net/http
// constant. Zero means the attribute is omitted.
func (c *Config) SameSiteMode() http.SameSite {
	switch strings.ToLower(c.Session.SameSite) {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return 0
	}
}
