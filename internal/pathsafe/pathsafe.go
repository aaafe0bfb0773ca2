// Package pathsafe resolves client-supplied path strings against a fixed
// root directory and proves containment at the type level: a Safe value can
// only be produced by a Resolver (Resolve, ResolveChild, Root), and every
// filesystem operation downstream takes a Safe, never a raw string.
package pathsafe

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Error kinds returned by Resolve. Callers switch on errors.Is.
var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrOutsideRoot   = errors.New("path escapes root")
	ErrNotFound      = errors.New("not found")
	ErrNotADirectory = errors.New("not a directory")
	ErrNotAFile      = errors.New("not a file")
)

const (
	maxPathBytes      = 4096
	maxComponentBytes = 255
)

// Safe is an absolute, canonicalized path proven to live under a Resolver's
// root. The zero value is not usable; values are only produced by a
// Resolver's Resolve, ResolveChild and Root methods.
type Safe struct {
	abs string // canonical absolute filesystem path
	rel string // client-relative form, "/"-separated, no leading/trailing slash ("" for root)
}

// Abs returns the canonical absolute filesystem path.
func (s Safe) Abs() string { return s.abs }

// Rel returns the path relative to the root, using "/" separators, with no
// leading or trailing slash. The root itself is "".
func (s Safe) Rel() string { return s.rel }

// RelSlash returns Rel() prefixed with "/", so the root is reported as "/".
func (s Safe) RelSlash() string {
	if s.rel == "" {
		return "/"
	}
	return "/" + s.rel
}

// Name returns the base name of the path ("" for root).
func (s Safe) Name() string {
	if s.rel == "" {
		return ""
	}
	return path.Base(s.rel)
}

// Resolver resolves client-supplied paths against a fixed root directory.
type Resolver struct {
	root string // canonical absolute root
}

// NewResolver creates a Resolver rooted at root. root must already exist and
// be a directory; it is resolved to its canonical absolute form once, at
// construction time, and never re-resolved.
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("pathsafe: resolve root: %w", err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("pathsafe: resolve root symlinks: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("pathsafe: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("pathsafe: root %q is not a directory", abs)
	}
	return &Resolver{root: abs}, nil
}

// Root returns a Safe value representing the resolver's root directory.
func (rs *Resolver) Root() Safe {
	return Safe{abs: rs.root, rel: ""}
}

// RootPath returns the canonical absolute root path.
func (rs *Resolver) RootPath() string { return rs.root }

// Resolve validates input and returns a Safe value. When mustExist is true,
// the path is stat'd and every symlink along it (the final component and any
// intermediate directory) is resolved and the result re-checked for
// containment; a symlink whose target lies outside the root is ErrOutsideRoot
// even when its textual target looks like it is inside.
func (rs *Resolver) Resolve(input string, mustExist bool) (Safe, error) {
	rel, err := cleanRelative(input)
	if err != nil {
		return Safe{}, err
	}

	abs := filepath.Join(rs.root, filepath.FromSlash(rel))
	if !withinRoot(rs.root, abs) {
		return Safe{}, fmt.Errorf("%w: %q", ErrOutsideRoot, input)
	}

	if !mustExist {
		return Safe{abs: abs, rel: rel}, nil
	}

	if _, lerr := os.Lstat(abs); lerr != nil {
		if os.IsNotExist(lerr) {
			return Safe{}, fmt.Errorf("%w: %q", ErrNotFound, input)
		}
		return Safe{}, fmt.Errorf("pathsafe: stat %q: %w", input, lerr)
	}

	target, rerr := filepath.EvalSymlinks(abs)
	if rerr != nil {
		return Safe{}, fmt.Errorf("%w: %q", ErrNotFound, input)
	}
	if !withinRoot(rs.root, target) {
		return Safe{}, fmt.Errorf("%w: %q", ErrOutsideRoot, input)
	}

	return Safe{abs: target, rel: rel}, nil
}

// ResolveChild resolves a client-supplied relative fragment (which may
// itself contain "/" separators, e.g. an upload part's filename) underneath
// an already-Safe directory. Used by the upload ingest pipeline so each part
// is independently contained.
func (rs *Resolver) ResolveChild(dir Safe, fragment string) (Safe, error) {
	rel, err := cleanRelative(fragment)
	if err != nil {
		return Safe{}, err
	}
	joinedRel := rel
	if dir.rel != "" {
		joinedRel = dir.rel + "/" + rel
	}
	abs := filepath.Join(rs.root, filepath.FromSlash(joinedRel))
	if !withinRoot(rs.root, abs) {
		return Safe{}, fmt.Errorf("%w: %q", ErrOutsideRoot, fragment)
	}
	return Safe{abs: abs, rel: joinedRel}, nil
}

// cleanRelative validates and lexically normalizes a client-supplied path,
// returning its "/"-separated, root-relative form with no leading or
// trailing slash. It never touches disk.
func cleanRelative(input string) (string, error) {
	if strings.IndexByte(input, 0) >= 0 {
		return "", fmt.Errorf("%w: contains NUL byte", ErrInvalidPath)
	}
	if len(input) > maxPathBytes {
		return "", fmt.Errorf("%w: exceeds %d bytes", ErrInvalidPath, maxPathBytes)
	}
	if !utf8.ValidString(input) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidPath)
	}

	trimmed := strings.TrimPrefix(strings.TrimPrefix(input, "/"), "\\")
	trimmed = strings.ReplaceAll(trimmed, "\\", "/")

	rawParts := strings.Split(trimmed, "/")
	parts := make([]string, 0, len(rawParts))
	for _, p := range rawParts {
		if p == "" || p == "." {
			continue
		}
		if p == ".." {
			return "", fmt.Errorf("%w: contains \"..\" component", ErrInvalidPath)
		}
		if len(p) > maxComponentBytes {
			return "", fmt.Errorf("%w: component %q exceeds %d bytes", ErrInvalidPath, p, maxComponentBytes)
		}
		parts = append(parts, p)
	}

	return strings.Join(parts, "/"), nil
}

// withinRoot reports whether abs is root itself or a descendant of root at a
// directory boundary (root "/data/foo" must not match "/data/foobar").
func withinRoot(root, abs string) bool {
	if abs == root {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(abs, root+sep)
}
