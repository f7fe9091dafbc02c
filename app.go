package micropy

import (
	"errors"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/micropy-dev/micropy/pkg/router"
	"github.com/micropy-dev/micropy/pkg/server"
	"github.com/micropy-dev/micropy/pkg/session"
	"github.com/micropy-dev/micropy/pkg/template"
)

const notFoundBody = "<h1>404 The route does not exist.</h1>"

// =============================================================================
// App Type
// =============================================================================

// App is the per-request dispatcher. It owns the route table, the hook
// pipeline, and the response emitter, all of which are assembled at
// startup and read-only during dispatch, so a single App serves
// concurrent requests without locking.
//
// App implements http.Handler and is invoked once per request by the
// hosting transport.
type App struct {
	config   Config
	secret   []byte
	table    *router.Table
	pipeline *server.Pipeline
	emitter  *server.Emitter
	renderer template.Renderer
	logger   *slog.Logger
}

// New creates an App from cfg, filling in defaults for unset fields.
func New(cfg Config) *App {
	def := DefaultConfig()
	if cfg.SecretKey == "" {
		cfg.SecretKey = def.SecretKey
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = def.Session.CookieName
	}
	if cfg.Session.Lifetime == 0 {
		cfg.Session.Lifetime = def.Session.Lifetime
	}
	if cfg.Static.Prefix == "" {
		cfg.Static.Prefix = def.Static.Prefix
	}
	if cfg.Templates.Dir == "" {
		cfg.Templates.Dir = def.Templates.Dir
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	renderer := cfg.Templates.Renderer
	if renderer == nil && cfg.Templates.Dir != "" {
		renderer = template.NewDirRenderer(cfg.Templates.Dir)
	}

	secret := []byte(cfg.SecretKey)
	return &App{
		config:   cfg,
		secret:   secret,
		table:    router.New(),
		pipeline: server.NewPipeline(logger),
		emitter: &server.Emitter{
			Secret: secret,
			Cookie: server.CookieOptions{
				Name:      cfg.Session.CookieName,
				Secure:    cfg.Session.Secure,
				SameSite:  cfg.Session.SameSite,
				Permanent: cfg.Session.Permanent,
				MaxAge:    int(cfg.Session.Lifetime.Seconds()),
			},
			Logger: logger,
		},
		renderer: renderer,
		logger:   logger,
	}
}

// =============================================================================
// Registration Surface
// =============================================================================

// Route registers handler for path under the given methods. Path
// templates use {name} placeholders matching any run of non-slash
// characters. Routes match in registration order, first match wins.
func (a *App) Route(path string, methods []string, h server.Handler) error {
	return a.table.Register(path, methods, h)
}

// Get registers a GET route.
func (a *App) Get(path string, h server.Handler) error {
	return a.Route(path, []string{"GET"}, h)
}

// Post registers a POST route.
func (a *App) Post(path string, h server.Handler) error {
	return a.Route(path, []string{"POST"}, h)
}

// Before appends a before-hook to the pipeline.
func (a *App) Before(h server.BeforeHook) { a.pipeline.Before(h) }

// After appends an after-hook to the pipeline.
func (a *App) After(h server.AfterHook) { a.pipeline.After(h) }

// Use registers a before/after middleware pair.
func (a *App) Use(mw server.Middleware) { a.pipeline.Use(mw) }

// OnError registers a recovery function for failures matching target.
func (a *App) OnError(target error, fn server.RecoveryFunc) { a.pipeline.OnError(target, fn) }

// OnAnyError registers the catch-all recovery function.
func (a *App) OnAnyError(fn server.RecoveryFunc) { a.pipeline.OnAnyError(fn) }

// URLFor builds a path for an endpoint key of the form
// "METHOD:/path/{name}". Unknown endpoints yield "/".
func (a *App) URLFor(endpoint string, values map[string]any) string {
	return a.table.Reverse(endpoint, values)
}

// =============================================================================
// Dispatcher
// =============================================================================

// ServeHTTP dispatches one request: session resolution, the favicon and
// static short-circuits, route lookup, the hook pipeline, the handler,
// and response resolution. Exactly one response head and body are
// written per invocation.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := server.FromRequest(r)

	if a.config.Debug {
		a.logger.Debug("dispatch", "method", ctx.Method, "path", ctx.Path)
	}

	// An absent, malformed, or tampered cookie binds an empty session;
	// session resolution never fails the request.
	raw := ctx.Cookies()[a.config.Session.CookieName]
	ctx.BindSession(a.config.Session.CookieName, session.Decode(raw, a.secret))

	// Browsers request this unprompted; answer quietly.
	if ctx.Path == "/favicon.ico" {
		a.emitter.Plain(w, http.StatusNoContent, "image/x-icon", nil)
		return
	}

	// Static assets bypass routing, templating, and sessions. A static
	// path that does not resolve to a file falls through to routing.
	if a.config.Static.Reader != nil {
		if rel, ok := a.staticRelPath(ctx.Path); ok {
			if a.serveStatic(w, r, rel) {
				return
			}
		}
	}

	h, params, ok := a.table.Match(ctx.Method, ctx.Path)
	if !ok {
		a.emitter.Plain(w, http.StatusNotFound, "text/html; charset=utf-8", []byte(notFoundBody))
		return
	}
	ctx.Params = params

	resp, failure := a.runRequest(ctx, h)

	// After-hooks observe the decided outcome but cannot change it.
	ctx.SetResult(resp.Status, failure)
	a.pipeline.RunAfter(ctx)

	a.emitter.Emit(w, ctx, resp)
}

// runRequest runs the before-hooks, the handler, and error handling,
// returning the decided response and the failure that produced it, if
// any.
func (a *App) runRequest(ctx *server.Ctx, h server.Handler) (server.Response, error) {
	short, hookErr := a.pipeline.RunBefore(ctx)
	if hookErr != nil {
		a.logError(ctx, hookErr, "before-hook failed")
		return server.Response{Kind: server.KindText, Status: 500, Text: a.errorPage(hookErr)}, hookErr
	}
	if short != nil {
		return server.Response{Kind: server.KindJSON, Status: 400, Data: short}, nil
	}

	ret, err := h(ctx)
	if err != nil {
		return a.resolveFailure(ctx, err), err
	}

	resp := server.Normalize(ret)
	if resp.Kind == server.KindEmpty {
		resp = a.autoTemplate(ctx)
	}
	return resp, nil
}

// resolveFailure maps a handler failure to a response: an HTTPError
// resolves directly, then the error-handler registry is consulted, and
// finally the generic 500 page embeds the failure text.
func (a *App) resolveFailure(ctx *server.Ctx, err error) server.Response {
	var httpErr *server.HTTPError
	if errors.As(err, &httpErr) {
		return server.Response{Kind: server.KindText, Status: httpErr.Code, Text: httpErr.Message}
	}
	if ret, ok := a.pipeline.Recover(ctx, err); ok {
		return server.NormalizeRecovery(ret)
	}
	a.logError(ctx, err, "internal server error")
	return server.Response{Kind: server.KindText, Status: 500, Text: a.errorPage(err)}
}

// autoTemplate resolves an empty handler return by rendering the
// template named after the path's last non-empty segment, falling back
// to index.html for the root path.
func (a *App) autoTemplate(ctx *server.Ctx) server.Response {
	if a.renderer == nil {
		return server.Response{Kind: server.KindText, Status: 404, Text: "template not found"}
	}
	body, err := a.renderer.Render(autoTemplateName(ctx.Path), nil)
	if err != nil {
		if errors.Is(err, template.ErrNotFound) {
			return server.Response{Kind: server.KindText, Status: 404, Text: "template not found"}
		}
		a.logError(ctx, err, "template render failed")
		return server.Response{Kind: server.KindText, Status: 500, Text: a.errorPage(err)}
	}
	return server.Response{Kind: server.KindText, Status: 200, Text: body}
}

func autoTemplateName(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "index.html"
	}
	segs := strings.Split(trimmed, "/")
	return segs[len(segs)-1] + ".html"
}

func (a *App) errorPage(err error) string {
	return "<h1>500 Internal Server Error</h1><pre>" + html.EscapeString(err.Error()) + "</pre>"
}

func (a *App) logError(ctx *server.Ctx, err error, msg string) {
	a.logger.Error(msg,
		"method", ctx.Method,
		"path", ctx.Path,
		"error", err,
	)
}
