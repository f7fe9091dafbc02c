package micropy

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/micropy-dev/micropy/pkg/static"
)

// =============================================================================
// Static File Serving
// =============================================================================

// contentTypes maps file extensions to the content type of a static
// response. Anything else is served as an opaque octet stream.
var contentTypes = map[string]string{
	".css":  "text/css",
	".js":   "application/javascript",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".ico":  "image/x-icon",
	".html": "text/html",
	".json": "application/json",
}

func contentTypeFor(name string) string {
	if ct, ok := contentTypes[path.Ext(name)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// staticRelPath returns the sanitized path of a static asset relative
// to the configured prefix. It rejects traversal and absolute-path
// tricks so static serving cannot escape the backing store.
func (a *App) staticRelPath(urlPath string) (string, bool) {
	prefix := a.config.Static.Prefix
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if !strings.HasPrefix(urlPath, prefix) {
		return "", false
	}
	rel := strings.TrimPrefix(urlPath, prefix)
	if rel == "" {
		return "", false
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}

	// Reject platform-dependent separators.
	if strings.Contains(rel, "\\") {
		return "", false
	}

	// After prefix stripping, a leading "/" indicates an absolute-path
	// attempt (e.g. "/static//etc/passwd" => "/etc/passwd").
	if strings.HasPrefix(rel, "/") {
		return "", false
	}

	// Reject dot-segments before cleaning to avoid "cleaning away"
	// traversal attempts and changing the meaning of the request path.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == "" || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}
	return clean, true
}

// serveStatic reads and emits a static asset. It returns false when the
// file does not exist, letting the request fall through to routing.
// Static responses never carry session headers.
func (a *App) serveStatic(w http.ResponseWriter, r *http.Request, rel string) bool {
	data, err := a.config.Static.Reader.ReadFile(r.Context(), rel)
	if err != nil {
		if errors.Is(err, static.ErrNotFound) {
			return false
		}
		a.logger.Error("static read failed", "path", rel, "error", err)
		a.emitter.Plain(w, http.StatusInternalServerError, "text/html; charset=utf-8", []byte("static read failed"))
		return true
	}
	a.emitter.Plain(w, http.StatusOK, contentTypeFor(rel), data)
	return true
}
