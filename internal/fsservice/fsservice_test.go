package fsservice_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedash/filedash/internal/fsservice"
	"github.com/filedash/filedash/internal/pathsafe"
)

func newTestService(t *testing.T) (*fsservice.Service, *pathsafe.Resolver) {
	t.Helper()
	root := t.TempDir()
	rs, err := pathsafe.NewResolver(root)
	require.NoError(t, err)
	return fsservice.New(rs), rs
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	svc, rs := newTestService(t)
	p, err := rs.Resolve("greeting.txt", false)
	require.NoError(t, err)

	n, err := svc.WriteFile(p, strings.NewReader("hello world"), false)
	require.NoError(t, err)
	assert.EqualValues(t, 11, n)

	rp, err := rs.Resolve("greeting.txt", true)
	require.NoError(t, err)
	h, err := svc.OpenRead(rp)
	require.NoError(t, err)
	defer h.Close()
	assert.EqualValues(t, 11, h.Size)
}

func TestWriteFileRejectsOverwriteByDefault(t *testing.T) {
	svc, rs := newTestService(t)
	p, _ := rs.Resolve("a.txt", false)
	_, err := svc.WriteFile(p, strings.NewReader("v1"), false)
	require.NoError(t, err)

	_, err = svc.WriteFile(p, strings.NewReader("v2"), false)
	assert.ErrorIs(t, err, fsservice.ErrAlreadyExists)

	_, err = svc.WriteFile(p, strings.NewReader("v2"), true)
	assert.NoError(t, err)
}

func TestMkdirAndList(t *testing.T) {
	svc, rs := newTestService(t)
	dir, _ := rs.Resolve("photos", false)
	require.NoError(t, svc.Mkdir(dir, false))
	assert.ErrorIs(t, svc.Mkdir(dir, false), fsservice.ErrAlreadyExists)

	fileA, _ := rs.Resolve("photos/b.jpg", false)
	_, err := svc.WriteFile(fileA, strings.NewReader("x"), false)
	require.NoError(t, err)
	fileB, _ := rs.Resolve("photos/a.jpg", false)
	_, err = svc.WriteFile(fileB, strings.NewReader("y"), false)
	require.NoError(t, err)
	subdir, _ := rs.Resolve("photos/c_dir", false)
	require.NoError(t, svc.Mkdir(subdir, false))

	listed, _ := rs.Resolve("photos", true)
	res, err := svc.List(listed, 1, 10)
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)

	assert.True(t, res.Entries[0].IsDirectory)
	assert.Equal(t, "c_dir", res.Entries[0].Name)
	assert.Equal(t, "a.jpg", res.Entries[1].Name)
	assert.Equal(t, "b.jpg", res.Entries[2].Name)
}

func TestMkdirRecursive(t *testing.T) {
	svc, rs := newTestService(t)
	p, _ := rs.Resolve("a/b/c", false)
	require.NoError(t, svc.Mkdir(p, true))
	_, err := os.Stat(filepath.Join(rs.RootPath(), "a", "b", "c"))
	assert.NoError(t, err)
}

func TestRenameRejectsExistingDestination(t *testing.T) {
	svc, rs := newTestService(t)
	src, _ := rs.Resolve("src.txt", false)
	_, err := svc.WriteFile(src, strings.NewReader("s"), false)
	require.NoError(t, err)
	dst, _ := rs.Resolve("dst.txt", false)
	_, err = svc.WriteFile(dst, strings.NewReader("d"), false)
	require.NoError(t, err)

	srcResolved, _ := rs.Resolve("src.txt", true)
	dstResolved, _ := rs.Resolve("dst.txt", false)
	assert.ErrorIs(t, svc.Rename(srcResolved, dstResolved), fsservice.ErrAlreadyExists)
}

func TestRenameMovesFile(t *testing.T) {
	svc, rs := newTestService(t)
	src, _ := rs.Resolve("old.txt", false)
	_, err := svc.WriteFile(src, strings.NewReader("content"), false)
	require.NoError(t, err)

	srcResolved, _ := rs.Resolve("old.txt", true)
	dst, _ := rs.Resolve("nested/new.txt", false)
	require.NoError(t, svc.Rename(srcResolved, dst))

	_, err = os.Stat(filepath.Join(rs.RootPath(), "old.txt"))
	assert.True(t, os.IsNotExist(err), "source should no longer exist")
	_, err = os.Stat(filepath.Join(rs.RootPath(), "nested", "new.txt"))
	assert.NoError(t, err)
}

func TestDeleteNonEmptyDirRequiresRecursive(t *testing.T) {
	svc, rs := newTestService(t)
	dir, _ := rs.Resolve("d", false)
	require.NoError(t, svc.Mkdir(dir, false))
	f, _ := rs.Resolve("d/x.txt", false)
	_, err := svc.WriteFile(f, strings.NewReader("x"), false)
	require.NoError(t, err)

	dirResolved, _ := rs.Resolve("d", true)
	assert.ErrorIs(t, svc.Delete(dirResolved, false), fsservice.ErrInvalidArgs)
	assert.NoError(t, svc.Delete(dirResolved, true))
}

func TestStatNotFound(t *testing.T) {
	svc, rs := newTestService(t)
	p, _ := rs.Resolve("missing.txt", false)
	_, err := svc.Stat(p)
	assert.ErrorIs(t, err, fsservice.ErrNotFound)
}

func TestOpenReadRejectsDirectory(t *testing.T) {
	svc, rs := newTestService(t)
	dir, _ := rs.Resolve("adir", false)
	require.NoError(t, svc.Mkdir(dir, false))
	resolved, _ := rs.Resolve("adir", true)
	_, err := svc.OpenRead(resolved)
	assert.ErrorIs(t, err, fsservice.ErrNotAFile)
}

func TestWriteEmptyFile(t *testing.T) {
	svc, rs := newTestService(t)
	p, _ := rs.Resolve("empty.txt", false)
	n, err := svc.WriteFile(p, strings.NewReader(""), false)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}
