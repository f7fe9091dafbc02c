// Package server implements the per-request machinery of the dispatch
// engine: the request context, the before/after/error hook pipeline,
// and the response resolver that turns a handler's return value into a
// concrete status, header list, and body.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultSessionCookie is the session cookie name used when none is
// configured.
const DefaultSessionCookie = "micropy_session"

// Header is a single response header accumulated during a request.
type Header struct {
	Name  string
	Value string
}

// Ctx wraps one inbound request. It is created by the dispatcher, owned
// exclusively by it for the lifetime of the request, and discarded once
// the response has been sent. Nothing on Ctx is safe for use from
// another request.
type Ctx struct {
	// Method is the HTTP request method, upper-cased.
	Method string

	// Path is the request path, without the query string.
	Path string

	// Query holds the parsed query parameters. Values are ordered and
	// multi-valued.
	Query url.Values

	// Params holds the path parameters extracted by route matching.
	Params map[string]string

	// Session is the mutable session mapping. It is always non-nil; an
	// absent or invalid session cookie yields an empty map.
	Session map[string]any

	header http.Header
	body   io.Reader

	bodyBuf  []byte
	bodyRead bool
	cookies  map[string]string

	sessionCookieName string
	extraHeaders      []Header
	values            map[any]any

	stdctx context.Context

	status     int
	handlerErr error
}

// New constructs a Ctx from the transport-provided request head and a
// body stream. The query string is parsed leniently: a malformed query
// yields no parameters rather than failing the request.
func New(method, path, rawQuery string, header http.Header, body io.Reader) *Ctx {
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		query = url.Values{}
	}
	if header == nil {
		header = http.Header{}
	}
	return &Ctx{
		Method:  strings.ToUpper(method),
		Path:    path,
		Query:   query,
		Params:  map[string]string{},
		Session: map[string]any{},
		header:  header,
		body:    body,
		stdctx:  context.Background(),
	}
}

// FromRequest constructs a Ctx from a net/http request.
func FromRequest(r *http.Request) *Ctx {
	c := New(r.Method, r.URL.Path, r.URL.RawQuery, r.Header, r.Body)
	c.stdctx = r.Context()
	return c
}

// BindSession attaches the decoded session mapping and remembers the
// cookie name so ClearSession can emit the matching deletion header.
// A nil mapping binds an empty session.
func (c *Ctx) BindSession(cookieName string, data map[string]any) {
	if cookieName != "" {
		c.sessionCookieName = cookieName
	}
	if data == nil {
		data = map[string]any{}
	}
	c.Session = data
}

// Cookies parses the Cookie header(s) once and caches the result.
// Entries without an "=" are skipped.
func (c *Ctx) Cookies() map[string]string {
	if c.cookies != nil {
		return c.cookies
	}
	c.cookies = map[string]string{}
	for _, line := range c.header.Values("Cookie") {
		for _, item := range strings.Split(line, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(item), "=")
			if !ok {
				continue
			}
			c.cookies[k] = v
		}
	}
	return c.cookies
}

// HeaderValue returns the first value of a request header.
func (c *Ctx) HeaderValue(name string) string {
	return c.header.Get(name)
}

// Body reads the request body to completion and caches it; repeated
// calls return the cached bytes without touching the stream again. This
// is the only blocking operation on Ctx.
func (c *Ctx) Body() ([]byte, error) {
	if c.bodyRead {
		return c.bodyBuf, nil
	}
	if c.body == nil {
		c.bodyRead = true
		return nil, nil
	}
	buf, err := io.ReadAll(c.body)
	if err != nil {
		return nil, err
	}
	c.bodyBuf = buf
	c.bodyRead = true
	return c.bodyBuf, nil
}

// JSON reads the body and decodes it as JSON. An empty body yields
// (nil, nil). Malformed JSON is an error surfaced to the handler, not
// swallowed.
func (c *Ctx) JSON() (any, error) {
	buf, err := c.Body()
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(buf, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Param returns the path parameter captured under name, or "".
func (c *Ctx) Param(name string) string {
	return c.Params[name]
}

// ClearSession empties the session mapping in place and queues a
// deletion cookie. The deletion header is independent of the session
// map: even if the session stays empty afterwards, the header is still
// emitted, so the browser actually drops the cookie instead of being
// handed a fresh empty one.
func (c *Ctx) ClearSession() {
	for k := range c.Session {
		delete(c.Session, k)
	}
	name := c.sessionCookieName
	if name == "" {
		name = DefaultSessionCookie
	}
	c.AddHeader("Set-Cookie", name+"=deleted; Path=/; Expires=Thu, 01 Jan 1970 00:00:00 GMT; HttpOnly")
}

// AddHeader appends an extra response header. Extra headers are merged
// into the response ahead of the session cookie.
func (c *Ctx) AddHeader(name, value string) {
	c.extraHeaders = append(c.extraHeaders, Header{Name: name, Value: value})
}

// ExtraHeaders returns the accumulated extra response headers in order.
func (c *Ctx) ExtraHeaders() []Header {
	return c.extraHeaders
}

// SetValue stores a request-scoped value. Hooks use this to carry state
// from a before-hook to the matching after-hook.
func (c *Ctx) SetValue(key, value any) {
	if c.values == nil {
		c.values = map[any]any{}
	}
	c.values[key] = value
}

// Value returns a request-scoped value stored with SetValue.
func (c *Ctx) Value(key any) any {
	return c.values[key]
}

// StdContext returns the standard context carried by the request, for
// propagation into downstream calls.
func (c *Ctx) StdContext() context.Context {
	return c.stdctx
}

// SetResult records the decided response status and the failure, if
// any. The dispatcher calls this after resolution and before the
// after-hooks run, so observers can see the outcome.
func (c *Ctx) SetResult(status int, err error) {
	c.status = status
	c.handlerErr = err
}

// Status returns the decided response status, or 0 before resolution.
func (c *Ctx) Status() int {
	return c.status
}

// HandlerError returns the error the handler (or a before-hook) failed
// with, or nil.
func (c *Ctx) HandlerError() error {
	return c.handlerErr
}
