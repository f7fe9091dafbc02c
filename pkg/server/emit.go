package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/micropy-dev/micropy/pkg/session"
)

// CookieOptions are the attributes attached to the session cookie.
// Path=/ and HttpOnly are always set; the rest are configuration.
type CookieOptions struct {
	Name      string
	Secure    bool
	SameSite  http.SameSite
	Permanent bool
	MaxAge    int // seconds, emitted only when Permanent
}

// Emitter writes resolved responses to the transport sink. It attaches
// content-length, the accumulated extra headers, and, when the session
// mapping is non-empty, the signed session cookie.
type Emitter struct {
	Secret []byte
	Cookie CookieOptions
	Logger *slog.Logger
}

// Emit materializes resp and writes it through w, exactly once. Extra
// headers accumulated on the context are merged in before the session
// cookie is computed, so an explicit session clear followed by no
// further session writes results in a deletion cookie rather than a
// fresh one.
func (e *Emitter) Emit(w http.ResponseWriter, c *Ctx, resp Response) {
	var (
		body  []byte
		ctype string
	)
	switch resp.Kind {
	case KindText, KindInvalid:
		body = []byte(resp.Text)
		ctype = "text/html; charset=utf-8"
	case KindJSON:
		buf, err := json.Marshal(resp.Data)
		if err != nil {
			e.logger().Error("response encoding failed",
				"method", c.Method, "path", c.Path, "error", err)
			resp = Response{Kind: KindText, Status: 500, Text: "response encoding failed"}
			body = []byte(resp.Text)
			ctype = "text/html; charset=utf-8"
			break
		}
		body = buf
		ctype = "application/json"
	default:
		// KindEmpty must be resolved to a template or a 404 before it
		// reaches the emitter.
		e.logger().Error("unresolved empty response", "method", c.Method, "path", c.Path)
		resp.Status = 500
		body = []byte("unresolved response")
		ctype = "text/html; charset=utf-8"
	}

	h := w.Header()
	h.Set("Content-Type", ctype)
	for _, extra := range c.ExtraHeaders() {
		h.Add(extra.Name, extra.Value)
	}
	if len(c.Session) > 0 {
		if cookie, err := e.sessionCookie(c.Session); err != nil {
			e.logger().Error("session encoding failed",
				"method", c.Method, "path", c.Path, "error", err)
		} else {
			h.Add("Set-Cookie", cookie)
		}
	}
	h.Set("Content-Length", strconv.Itoa(len(body)))

	w.WriteHeader(resp.Status)
	if _, err := w.Write(body); err != nil {
		e.logger().Warn("response write failed",
			"method", c.Method, "path", c.Path, "error", err)
	}
}

// Plain writes a bare response with only content-type and
// content-length: no extra headers, no session cookie. Used for the
// favicon short-circuit, static files, and fixed error pages.
func (e *Emitter) Plain(w http.ResponseWriter, status int, contentType string, body []byte) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			e.logger().Warn("response write failed", "error", err)
		}
	}
}

// sessionCookie builds the Set-Cookie header value by hand. The signed
// payload is JSON and contains quotes and commas, which net/http cookie
// sanitization would strip, so http.Cookie.String cannot be used here.
func (e *Emitter) sessionCookie(data map[string]any) (string, error) {
	value, err := session.Encode(data, e.Secret)
	if err != nil {
		return "", err
	}
	name := e.Cookie.Name
	if name == "" {
		name = DefaultSessionCookie
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)
	b.WriteString("; Path=/")
	if e.Cookie.Permanent && e.Cookie.MaxAge > 0 {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(e.Cookie.MaxAge))
	}
	b.WriteString("; HttpOnly")
	if e.Cookie.Secure {
		b.WriteString("; Secure")
	}
	switch e.Cookie.SameSite {
	case http.SameSiteLaxMode:
		b.WriteString("; SameSite=Lax")
	case http.SameSiteStrictMode:
		b.WriteString("; SameSite=Strict")
	case http.SameSiteNoneMode:
		b.WriteString("; SameSite=None")
	}
	return b.String(), nil
}

func (e *Emitter) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
