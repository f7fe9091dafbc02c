package server

import (
	"errors"
	"log/slog"
)

// Handler processes one matched request. The returned value is
// normalized by the response resolver; a returned error flows through
// the error-handler registry.
type Handler func(*Ctx) (any, error)

// BeforeHook runs before the handler. A non-empty result short-circuits
// the request: the dispatcher emits it as a 400 JSON response and skips
// the handler and all remaining before-hooks. A returned error aborts
// the request with a 500.
type BeforeHook func(*Ctx) (map[string]any, error)

// AfterHook runs after the handler and error handling, regardless of
// outcome. Its return value cannot alter the already-decided response;
// a returned error is logged and swallowed.
type AfterHook func(*Ctx) error

// RecoveryFunc turns a handler failure into a response value, which is
// resolved with 500 defaults (string becomes a 500 body, a mapping a
// 500 JSON document, an integer a bare status code).
type RecoveryFunc func(*Ctx, error) any

// Middleware bundles a before/after hook pair so a single concern (for
// example request metrics) can observe both sides of a request. Either
// field may be nil.
type Middleware struct {
	Before BeforeHook
	After  AfterHook
}

type errorEntry struct {
	target error
	fn     RecoveryFunc
}

// Pipeline holds the ordered before/after hooks and the error-handler
// registry. It is assembled at startup and read-only during dispatch.
type Pipeline struct {
	before   []BeforeHook
	after    []AfterHook
	onError  []errorEntry
	catchAll RecoveryFunc
	logger   *slog.Logger
}

// NewPipeline returns an empty pipeline logging through logger.
func NewPipeline(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{logger: logger}
}

// Before appends a before-hook. Hooks run in registration order.
func (p *Pipeline) Before(h BeforeHook) {
	p.before = append(p.before, h)
}

// After appends an after-hook. Hooks run in registration order.
func (p *Pipeline) After(h AfterHook) {
	p.after = append(p.after, h)
}

// Use registers both halves of a middleware pair.
func (p *Pipeline) Use(mw Middleware) {
	if mw.Before != nil {
		p.Before(mw.Before)
	}
	if mw.After != nil {
		p.After(mw.After)
	}
}

// OnError registers a recovery function for failures matching target
// under errors.Is. Entries are consulted in registration order.
func (p *Pipeline) OnError(target error, fn RecoveryFunc) {
	p.onError = append(p.onError, errorEntry{target: target, fn: fn})
}

// OnAnyError registers the catch-all recovery function, consulted when
// no specific entry matches.
func (p *Pipeline) OnAnyError(fn RecoveryFunc) {
	p.catchAll = fn
}

// RunBefore runs the before-hooks in order. It returns the first
// non-empty hook result (the short-circuit payload) or the first hook
// error; later hooks do not run in either case.
func (p *Pipeline) RunBefore(c *Ctx) (map[string]any, error) {
	for _, h := range p.before {
		res, err := h(c)
		if err != nil {
			return nil, err
		}
		if len(res) > 0 {
			return res, nil
		}
	}
	return nil, nil
}

// RunAfter runs every after-hook in order. A failing hook is logged and
// swallowed so it can never mask the decided response.
func (p *Pipeline) RunAfter(c *Ctx) {
	for _, h := range p.after {
		if err := h(c); err != nil {
			p.logger.Warn("after-hook failed",
				"method", c.Method,
				"path", c.Path,
				"error", err,
			)
		}
	}
}

// Recover finds a recovery value for err: the first matching OnError
// entry wins, then the catch-all. The second return reports whether any
// handler was registered for this failure.
func (p *Pipeline) Recover(c *Ctx, err error) (any, bool) {
	for _, e := range p.onError {
		if errors.Is(err, e.target) {
			return e.fn(c, err), true
		}
	}
	if p.catchAll != nil {
		return p.catchAll(c, err), true
	}
	return nil, false
}
