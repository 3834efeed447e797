// Package security confines file arguments of the tools to the working
// directory.
package security

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideDirectory is returned for paths that escape the working directory.
var ErrOutsideDirectory = errors.New("path is outside the working directory")

// PathValidator resolves tool file arguments against a root directory.
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at dir.
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, fmt.Errorf("working directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the working directory.
func (v *PathValidator) Root() string {
	return v.root
}

// Resolve returns the absolute form of path. Relative paths are taken
// relative to the root. Symlinks are followed for the part of the path that
// exists, so a link pointing outside the root is rejected.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	clean := filepath.Clean(path)

	if !within(clean, v.root) {
		return "", fmt.Errorf("%w: %s", ErrOutsideDirectory, path)
	}

	realRoot := v.root
	if resolved, err := filepath.EvalSymlinks(v.root); err == nil {
		realRoot = resolved
	}
	if real, ok := evalExisting(clean); ok && !within(real, realRoot) && !within(real, v.root) {
		return "", fmt.Errorf("%w: %s", ErrOutsideDirectory, path)
	}

	return clean, nil
}

// evalExisting resolves symlinks in the longest existing prefix of path and
// re-attaches the rest.
func evalExisting(path string) (string, bool) {
	rest := ""
	for cur := path; ; {
		if real, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(real, rest), true
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", false
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}

// ReadFile resolves path and reads it, refusing directories and files larger
// than limit bytes. A limit of zero or less disables the size check.
func (v *PathValidator) ReadFile(path string, limit int64) ([]byte, string, error) {
	resolved, err := v.Resolve(path)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(resolved)
	if err != nil {
		return nil, "", fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, "", fmt.Errorf("cannot stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, "", fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if limit > 0 && info.Size() > limit {
		return nil, "", fmt.Errorf("file %s is %d bytes, larger than the %d byte limit", path, info.Size(), limit)
	}

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, "", fmt.Errorf("file %s grew past the %d byte limit", path, limit)
	}
	return data, resolved, nil
}
