// Package fsservice implements the sandboxed filesystem engine: directory
// listing, metadata, mkdir, rename, delete, and streaming read/write of
// files rooted at a pathsafe.Resolver's root.
package fsservice

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/filedash/filedash/internal/pathsafe"
)

// Error kinds returned by Service methods.
var (
	ErrAlreadyExists = errors.New("fsservice: already exists")
	ErrNotFound       = errors.New("fsservice: not found")
	ErrNotADirectory  = errors.New("fsservice: not a directory")
	ErrNotAFile       = errors.New("fsservice: not a file")
	ErrInvalidArgs    = errors.New("fsservice: invalid arguments")
)

// DirEntry describes one file or directory entry.
type DirEntry struct {
	Name        string
	RelPath     string
	IsDirectory bool
	Size        int64
	ModTime     int64 // unix nanoseconds
	MIME        string
	Permissions string
}

// Service implements the filesystem operations. All methods take
// pathsafe.Safe values, never raw client strings — containment was already
// checked by the caller's pathsafe.Resolver.
type Service struct {
	resolver *pathsafe.Resolver
}

// New constructs a Service backed by resolver.
func New(resolver *pathsafe.Resolver) *Service {
	return &Service{resolver: resolver}
}

// Resolver exposes the underlying resolver so handlers can resolve
// client-supplied paths before calling into the Service.
func (s *Service) Resolver() *pathsafe.Resolver { return s.resolver }

// DiskStats returns the available and total bytes on the filesystem backing
// the resolver's root. Both are 0 when the platform doesn't support the
// underlying statfs call — callers must treat that as "unavailable", not
// "disk full".
func (s *Service) DiskStats() (avail, total uint64) {
	return diskStats(s.resolver.RootPath())
}

// ListResult is returned by List.
type ListResult struct {
	Entries []DirEntry
	Total   int
}

// List returns a page of dir's children. Directories sort before files;
// within each group entries are ordered by byte comparison of their names.
// page is 1-based; limit is clamped to [1, 1000].
func (s *Service) List(dir pathsafe.Safe, page, limit int) (ListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}

	osEntries, err := os.ReadDir(dir.Abs())
	if err != nil {
		if os.IsNotExist(err) {
			return ListResult{}, ErrNotFound
		}
		if isNotDirErr(err) {
			return ListResult{}, ErrNotADirectory
		}
		return ListResult{}, fmt.Errorf("fsservice: readdir %q: %w", dir.Abs(), err)
	}

	entries := make([]DirEntry, 0, len(osEntries))
	for _, e := range osEntries {
		info, err := e.Info()
		if err != nil {
			continue // vanished between ReadDir and Info; skip rather than fail the whole listing
		}
		entries = append(entries, toDirEntry(dir, e.Name(), info))
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDirectory != entries[j].IsDirectory {
			return entries[i].IsDirectory // directories first
		}
		return entries[i].Name < entries[j].Name // byte comparison
	})

	total := len(entries)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return ListResult{Entries: entries[start:end], Total: total}, nil
}

// Stat returns metadata for a single path.
func (s *Service) Stat(p pathsafe.Safe) (DirEntry, error) {
	info, err := os.Stat(p.Abs())
	if err != nil {
		if os.IsNotExist(err) {
			return DirEntry{}, ErrNotFound
		}
		return DirEntry{}, fmt.Errorf("fsservice: stat %q: %w", p.Abs(), err)
	}
	parentRel := p
	name := p.Name()
	if name == "" {
		name = "/"
	}
	return toDirEntryFromSafe(parentRel, name, info), nil
}

// Mkdir creates path. When recursive is true all missing ancestors are
// created; the leaf existing as a directory is always AlreadyExists —
// idempotent mkdir is not assumed. Callers that want idempotence must stat
// first.
func (s *Service) Mkdir(p pathsafe.Safe, recursive bool) error {
	if info, err := os.Stat(p.Abs()); err == nil {
		if info.IsDir() {
			return ErrAlreadyExists
		}
		return ErrAlreadyExists
	}

	if recursive {
		if err := os.MkdirAll(p.Abs(), 0o750); err != nil {
			return fmt.Errorf("fsservice: mkdir -p %q: %w", p.Abs(), err)
		}
		return nil
	}

	parent := filepath.Dir(p.Abs())
	if _, err := os.Stat(parent); os.IsNotExist(err) {
		return ErrNotFound
	}
	if err := os.Mkdir(p.Abs(), 0o750); err != nil {
		if os.IsExist(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("fsservice: mkdir %q: %w", p.Abs(), err)
	}
	return nil
}

// Rename moves from to to. Both must share the same root (enforced by both
// being pathsafe.Safe values produced by the same Resolver). No silent
// overwrite: Rename fails with ErrAlreadyExists if to exists. Renaming the
// root itself is rejected.
func (s *Service) Rename(from, to pathsafe.Safe) error {
	if from.Rel() == "" {
		return fmt.Errorf("%w: cannot rename root", ErrInvalidArgs)
	}
	if _, err := os.Stat(from.Abs()); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("fsservice: stat source %q: %w", from.Abs(), err)
	}
	if _, err := os.Stat(to.Abs()); err == nil {
		return ErrAlreadyExists
	}
	if err := os.MkdirAll(filepath.Dir(to.Abs()), 0o750); err != nil {
		return fmt.Errorf("fsservice: mkdir parent of %q: %w", to.Abs(), err)
	}
	if err := os.Rename(from.Abs(), to.Abs()); err != nil {
		return fmt.Errorf("fsservice: rename %q -> %q: %w", from.Abs(), to.Abs(), err)
	}
	return nil
}

// Delete removes path. If it is a directory, recursive controls whether
// removal is permitted; deletion is always permanent, there is no trash.
func (s *Service) Delete(p pathsafe.Safe, recursive bool) error {
	info, err := os.Stat(p.Abs())
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("fsservice: stat %q: %w", p.Abs(), err)
	}

	if info.IsDir() {
		if !recursive {
			entries, err := os.ReadDir(p.Abs())
			if err != nil {
				return fmt.Errorf("fsservice: readdir %q: %w", p.Abs(), err)
			}
			if len(entries) > 0 {
				return fmt.Errorf("%w: directory not empty", ErrInvalidArgs)
			}
		}
		if err := os.RemoveAll(p.Abs()); err != nil {
			return fmt.Errorf("fsservice: delete %q: %w", p.Abs(), err)
		}
		return nil
	}

	if err := os.Remove(p.Abs()); err != nil {
		return fmt.Errorf("fsservice: delete %q: %w", p.Abs(), err)
	}
	return nil
}

// ReadHandle exposes everything the range streamer needs to serve a file.
type ReadHandle struct {
	io.ReadSeekCloser
	Size    int64
	ModTime int64 // unix nanoseconds
	Name    string
}

// OpenRead opens p for streaming, reporting its size and mtime so the
// caller can compute response headers without a second stat.
func (s *Service) OpenRead(p pathsafe.Safe) (ReadHandle, error) {
	info, err := os.Stat(p.Abs())
	if err != nil {
		if os.IsNotExist(err) {
			return ReadHandle{}, ErrNotFound
		}
		return ReadHandle{}, fmt.Errorf("fsservice: stat %q: %w", p.Abs(), err)
	}
	if info.IsDir() {
		return ReadHandle{}, ErrNotAFile
	}
	f, err := os.Open(p.Abs())
	if err != nil {
		return ReadHandle{}, fmt.Errorf("fsservice: open %q: %w", p.Abs(), err)
	}
	name := p.Name()
	return ReadHandle{ReadSeekCloser: f, Size: info.Size(), ModTime: info.ModTime().UnixNano(), Name: name}, nil
}

// WriteFile streams r to p using a temp-file-then-rename so the write is
// atomic on the destination filesystem. overwrite controls whether an
// existing destination is replaced; the same no-overwrite-by-default policy
// applies identically to single-file and bulk upload.
func (s *Service) WriteFile(p pathsafe.Safe, r io.Reader, overwrite bool) (int64, error) {
	if !overwrite {
		if _, err := os.Stat(p.Abs()); err == nil {
			return 0, ErrAlreadyExists
		}
	}

	dir := filepath.Dir(p.Abs())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("fsservice: mkdir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".filedash-upload-*")
	if err != nil {
		return 0, fmt.Errorf("fsservice: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, werr := io.Copy(tmp, r)
	if werr == nil {
		werr = tmp.Sync()
	}
	cerr := tmp.Close()

	if werr != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return 0, fmt.Errorf("fsservice: write %q: %w", p.Abs(), werr)
	}
	if cerr != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return 0, fmt.Errorf("fsservice: flush %q: %w", p.Abs(), cerr)
	}

	if !overwrite {
		if _, err := os.Stat(p.Abs()); err == nil {
			os.Remove(tmpPath) //nolint:errcheck
			return 0, ErrAlreadyExists
		}
	}

	if err := os.Rename(tmpPath, p.Abs()); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return 0, fmt.Errorf("fsservice: rename into place %q: %w", p.Abs(), err)
	}
	return n, nil
}

func toDirEntry(parent pathsafe.Safe, name string, info os.FileInfo) DirEntry {
	rel := name
	if parent.Rel() != "" {
		rel = parent.Rel() + "/" + name
	}
	return buildEntry(rel, name, info)
}

func toDirEntryFromSafe(p pathsafe.Safe, name string, info os.FileInfo) DirEntry {
	return buildEntry(p.Rel(), name, info)
}

func buildEntry(rel, name string, info os.FileInfo) DirEntry {
	e := DirEntry{
		Name:        name,
		RelPath:     rel,
		IsDirectory: info.IsDir(),
		ModTime:     info.ModTime().UnixNano(),
		Permissions: info.Mode().Perm().String(),
	}
	if e.IsDirectory {
		e.Size = 0
	} else {
		e.Size = info.Size()
		e.MIME = mimeFromExt(name)
	}
	return e
}

// mimeFromExt derives MIME strictly from the file extension, never by
// reading content.
func mimeFromExt(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return "application/octet-stream"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if i := strings.IndexByte(t, ';'); i != -1 {
			t = strings.TrimSpace(t[:i])
		}
		return t
	}
	return "application/octet-stream"
}

func isNotDirErr(err error) bool {
	return errors.Is(err, os.ErrInvalid) || strings.Contains(err.Error(), "not a directory")
}
