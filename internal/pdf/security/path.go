package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sandbox confines the documents a tool may read and the files it may write
// to a single directory tree
type Sandbox struct {
	root string
}

// NewSandbox creates a sandbox rooted at dir. The directory does not need to
// exist yet; until it does, every path is accepted.
func NewSandbox(dir string) (*Sandbox, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("sandbox directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sandbox directory: %w", err)
	}
	return &Sandbox{root: abs}, nil
}

// Root returns the absolute sandbox directory
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve returns the absolute form of path. Relative paths are taken
// relative to the sandbox root. Paths escaping the root are rejected.
func (s *Sandbox) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	ok, err := s.Contains(abs)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("path is outside configured directory: %s", path)
	}
	return abs, nil
}

// OutputPath picks where a derived document is written. An explicit target
// is resolved like any other path; otherwise the output sits next to input
// with prefix prepended to its file name.
func (s *Sandbox) OutputPath(input, prefix, target string) (string, error) {
	if strings.TrimSpace(target) != "" {
		return s.Resolve(target)
	}
	src, err := s.Resolve(input)
	if err != nil {
		return "", err
	}
	return s.Resolve(filepath.Join(filepath.Dir(src), prefix+filepath.Base(src)))
}

// Contains reports whether path lies inside the sandbox after symlinks are
// followed. Files that do not exist yet are judged by their parent
// directory.
func (s *Sandbox) Contains(path string) (bool, error) {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return true, nil
	}

	root, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate sandbox directory: %w", err)
	}

	real, err := realPath(filepath.Clean(path))
	if err != nil {
		return false, err
	}

	rel, err := filepath.Rel(root, real)
	if err != nil {
		return false, nil //nolint:nilerr // unrelated volumes are simply outside
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))), nil
}

// realPath follows symlinks in path, or in its nearest existing ancestor
func realPath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to evaluate symlinks: %w", err)
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	base, err := realPath(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, filepath.Base(path)), nil
}
