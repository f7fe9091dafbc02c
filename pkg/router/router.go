// Package router implements the ordered route table: compilation of
// {name} path templates into anchored regular expressions, first-match
// lookup, and reverse-path construction.
package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/micropy-dev/micropy/pkg/server"
)

// Route is one compiled registration. Routes are created at startup and
// never mutated, so the table is safe for unsynchronized concurrent
// reads during dispatch.
type Route struct {
	pattern  *regexp.Regexp
	method   string
	handler  server.Handler
	template string
}

// Template returns the original path template the route was registered
// with.
func (r *Route) Template() string { return r.template }

// Method returns the HTTP method the route answers to.
func (r *Route) Method() string { return r.method }

// Table is the ordered route table. Lookup returns the first route, in
// registration order, whose method and pattern both match; there is no
// specificity scoring.
type Table struct {
	routes  []*Route
	reverse map[string]string // "METHOD:template" -> template
}

// New returns an empty route table.
func New() *Table {
	return &Table{reverse: map[string]string{}}
}

// placeholder matches a {name} segment after the template has been
// regexp-quoted, so the braces appear escaped.
var placeholder = regexp.MustCompile(`\\\{([A-Za-z_][A-Za-z0-9_]*)\\\}`)

// compile turns a path template into an anchored matcher: literal
// segments are escaped, and each {name} becomes a named capture of one
// or more non-slash characters.
func compile(template string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(template)
	expr := placeholder.ReplaceAllString(quoted, `(?P<$1>[^/]+)`)
	re, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return nil, fmt.Errorf("router: compile %q: %w", template, err)
	}
	return re, nil
}

// Register compiles template and appends one route per method, in the
// given order. It also records METHOD:template for reverse lookup.
func (t *Table) Register(template string, methods []string, h server.Handler) error {
	if h == nil {
		return fmt.Errorf("router: register %q: nil handler", template)
	}
	if len(methods) == 0 {
		methods = []string{"GET"}
	}
	re, err := compile(template)
	if err != nil {
		return err
	}
	for _, m := range methods {
		m = strings.ToUpper(m)
		t.routes = append(t.routes, &Route{
			pattern:  re,
			method:   m,
			handler:  h,
			template: template,
		})
		t.reverse[m+":"+template] = template
	}
	return nil
}

// Match scans the routes in registration order and returns the handler
// and extracted path parameters of the first route whose method equals
// method and whose pattern fully matches path.
func (t *Table) Match(method, path string) (server.Handler, map[string]string, bool) {
	method = strings.ToUpper(method)
	for _, r := range t.routes {
		if r.method != method {
			continue
		}
		m := r.pattern.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		params := map[string]string{}
		for i, name := range r.pattern.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}
			params[name] = m[i]
		}
		return r.handler, params, true
	}
	return nil, nil, false
}

// Reverse builds a path from an endpoint key of the form
// "METHOD:template", substituting each {name} placeholder with the
// stringified value. An unknown endpoint yields "/" rather than an
// error, so template rendering stays robust against missing routes.
func (t *Table) Reverse(endpoint string, values map[string]any) string {
	template, ok := t.reverse[endpoint]
	if !ok {
		return "/"
	}
	path := template
	for k, v := range values {
		re := regexp.MustCompile(`\{\s*` + regexp.QuoteMeta(k) + `\s*\}`)
		path = re.ReplaceAllLiteralString(path, fmt.Sprint(v))
	}
	return path
}

// Len returns the number of registered routes.
func (t *Table) Len() int { return len(t.routes) }
