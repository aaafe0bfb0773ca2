package pathsafe_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedash/filedash/internal/pathsafe"
)

func newResolver(t *testing.T) (*pathsafe.Resolver, string) {
	t.Helper()
	root := t.TempDir()
	rs, err := pathsafe.NewResolver(root)
	require.NoError(t, err)
	return rs, root
}

func TestResolveRoot(t *testing.T) {
	rs, _ := newResolver(t)
	safe, err := rs.Resolve("/", false)
	require.NoError(t, err)
	assert.Equal(t, "", safe.Rel())
	assert.Equal(t, "/", safe.RelSlash())
}

func TestResolveRejectsTraversal(t *testing.T) {
	rs, _ := newResolver(t)
	cases := []string{
		"../etc/passwd",
		"../../etc/passwd",
		"a/../../b",
		"..",
	}
	for _, c := range cases {
		_, err := rs.Resolve(c, false)
		assert.ErrorIs(t, err, pathsafe.ErrInvalidPath, "Resolve(%q)", c)
	}
}

func TestResolveRejectsNulAndOversize(t *testing.T) {
	rs, _ := newResolver(t)
	_, err := rs.Resolve("a\x00b", false)
	assert.ErrorIs(t, err, pathsafe.ErrInvalidPath, "NUL byte")

	big := make([]byte, 5000)
	for i := range big {
		big[i] = 'a'
	}
	_, err = rs.Resolve(string(big), false)
	assert.ErrorIs(t, err, pathsafe.ErrInvalidPath, "oversize")
}

func TestResolveNotFound(t *testing.T) {
	rs, _ := newResolver(t)
	_, err := rs.Resolve("missing/file.txt", true)
	assert.ErrorIs(t, err, pathsafe.ErrNotFound)
}

func TestResolveExistingFile(t *testing.T) {
	rs, root := newResolver(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "welcome.txt"), []byte("hi"), 0o644))
	safe, err := rs.Resolve("welcome.txt", true)
	require.NoError(t, err)
	assert.Equal(t, "welcome.txt", safe.Name())
}

func TestResolveSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}
	rs, root := newResolver(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("x"), 0o644))
	link := filepath.Join(root, "escape")
	require.NoError(t, os.Symlink(outside, link))

	_, err := rs.Resolve("escape/secret.txt", true)
	assert.ErrorIs(t, err, pathsafe.ErrOutsideRoot)
}

func TestResolveChildContainment(t *testing.T) {
	rs, _ := newResolver(t)
	dir, err := rs.Resolve("proj", false)
	require.NoError(t, err)

	child, err := rs.ResolveChild(dir, "src/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "proj/src/a.txt", child.Rel())

	_, err = rs.ResolveChild(dir, "../../escape.txt")
	assert.ErrorIs(t, err, pathsafe.ErrInvalidPath, "escape fragment")
}

func TestWithinRootBoundary(t *testing.T) {
	// Regression: a root of "/data/foo" must not treat "/data/foobar" as contained.
	root := t.TempDir()
	sibling := root + "sibling"
	require.NoError(t, os.MkdirAll(sibling, 0o755))
	defer os.RemoveAll(sibling)

	rs, err := pathsafe.NewResolver(root)
	require.NoError(t, err)
	safe, err := rs.Resolve("x", false)
	require.NoError(t, err)
	assert.NotEqual(t, sibling, safe.Abs(), "resolved path incorrectly matched sibling directory")
}
