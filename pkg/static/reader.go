// Package static defines the static-file collaborator: a byte-reading
// capability keyed by a slash-separated relative path, with filesystem
// and S3 backed implementations.
package static

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound reports that no file exists under the requested name.
var ErrNotFound = errors.New("static file not found")

// Reader reads a static asset by relative path. The dispatcher has
// already sanitized the path; implementations only need to map it to
// their backing store.
type Reader interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// Dir serves files from a directory on the local filesystem.
type Dir string

// ReadFile implements Reader.
func (d Dir) ReadFile(_ context.Context, name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	full := filepath.Join(string(d), filepath.FromSlash(name))
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return os.ReadFile(full)
}
