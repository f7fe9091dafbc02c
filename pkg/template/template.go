// Package template defines the template collaborator interface used by
// the dispatcher's auto-template fallback, plus a directory-backed
// default implementation over html/template.
package template

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound reports that no template exists under the requested name.
var ErrNotFound = errors.New("template not found")

// Renderer maps a template name plus a key-value context to rendered
// text. Implementations fail with ErrNotFound for unknown names and a
// plain error for syntax failures.
type Renderer interface {
	Render(name string, data map[string]any) (string, error)
}

// DirRenderer loads templates from a directory on each render. Output
// is auto-escaped HTML.
type DirRenderer struct {
	dir string
}

// NewDirRenderer returns a Renderer reading templates from dir.
func NewDirRenderer(dir string) *DirRenderer {
	return &DirRenderer{dir: dir}
}

// Render reads, parses, and executes the named template. Names are
// slash-separated relative paths; anything that is not a valid relative
// path (traversal, absolute paths) is treated as not found.
func (r *DirRenderer) Render(name string, data map[string]any) (string, error) {
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	raw, err := os.ReadFile(filepath.Join(r.dir, filepath.FromSlash(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("template %s: %w", name, err)
	}
	t, err := htmltemplate.New(name).Parse(string(raw))
	if err != nil {
		return "", fmt.Errorf("template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template %s: %w", name, err)
	}
	return buf.String(), nil
}
