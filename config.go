package micropy

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/micropy-dev/micropy/pkg/static"
	"github.com/micropy-dev/micropy/pkg/template"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the application configuration, read-only once the App has
// been constructed.
type Config struct {
	// SecretKey signs the session cookie. The default is only suitable
	// for development.
	SecretKey string

	// Session configures the session cookie.
	Session SessionConfig

	// Static configures static file serving.
	Static StaticConfig

	// Templates configures the template collaborator.
	Templates TemplateConfig

	// Debug enables development behavior such as verbose request
	// logging.
	Debug bool

	// Logger is the structured logger for the application.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// SessionConfig configures the session cookie attributes.
type SessionConfig struct {
	// CookieName is the session cookie name. Default: "micropy_session".
	CookieName string

	// Secure sets the Secure flag on the session cookie.
	Secure bool

	// SameSite sets the SameSite attribute. Zero omits the attribute.
	SameSite http.SameSite

	// Permanent emits a Max-Age so the session survives browser
	// restarts, using Lifetime.
	Permanent bool

	// Lifetime is the session cookie lifetime when Permanent is set.
	// Default: 31 days.
	Lifetime time.Duration
}

// StaticConfig configures static file serving.
type StaticConfig struct {
	// Reader is the static-file collaborator. Nil disables static
	// serving. Use static.Dir for the local filesystem or
	// static.NewS3Reader for a bucket.
	Reader static.Reader

	// Prefix is the URL path prefix for static files.
	// Default: "/static".
	Prefix string
}

// TemplateConfig configures the template collaborator.
type TemplateConfig struct {
	// Renderer is the template collaborator. If nil and Dir is set, a
	// directory renderer over Dir is used.
	Renderer template.Renderer

	// Dir is the template directory. Default: "templates".
	Dir string
}

// DefaultConfig returns a Config with development defaults.
func DefaultConfig() Config {
	return Config{
		SecretKey: "dev-secret",
		Session: SessionConfig{
			CookieName: "micropy_session",
			Lifetime:   31 * 24 * time.Hour,
		},
		Static: StaticConfig{
			Prefix: "/static",
		},
		Templates: TemplateConfig{
			Dir: "templates",
		},
	}
}
