package fsservice_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedash/filedash/internal/fsservice"
)

func TestIngestFolderPreservesStructure(t *testing.T) {
	svc, rs := newTestService(t)
	dest := rs.Root()

	parts := []fsservice.UploadPart{
		{RelPath: "photos/2024/a.jpg", Size: 3, Body: strings.NewReader("aaa")},
		{RelPath: "photos/2024/b.jpg", Size: 3, Body: strings.NewReader("bbb")},
		{RelPath: "docs/readme.txt", Size: 5, Body: strings.NewReader("hello")},
	}

	res, err := svc.IngestFolder(context.Background(), dest, parts, false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalFiles)
	assert.Equal(t, 3, res.SuccessfulFiles)
	assert.Equal(t, 0, res.FailedFiles)
	assert.ElementsMatch(t, []string{"/photos", "/photos/2024", "/docs"}, res.FoldersCreated)

	for _, p := range parts {
		_, err := os.Stat(filepath.Join(rs.RootPath(), filepath.FromSlash(p.RelPath)))
		assert.NoError(t, err, "expected file at %s", p.RelPath)
	}
}

func TestIngestFolderIsolatesPerPartFailure(t *testing.T) {
	svc, rs := newTestService(t)
	dest := rs.Root()

	parts := []fsservice.UploadPart{
		{RelPath: "good.txt", Size: 4, Body: strings.NewReader("good")},
		{RelPath: "../escape.txt", Size: 4, Body: strings.NewReader("evil")},
	}

	res, err := svc.IngestFolder(context.Background(), dest, parts, false)
	require.NoError(t, err)
	require.Len(t, res.Uploaded, 1)
	assert.Equal(t, "good.txt", res.Uploaded[0].RelPath)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "../escape.txt", res.Failed[0].RelPath)
}

func TestIngestFolderBothSizeClasses(t *testing.T) {
	svc, rs := newTestService(t)
	dest := rs.Root()

	var parts []fsservice.UploadPart
	for i := 0; i < 6; i++ {
		parts = append(parts, fsservice.UploadPart{
			RelPath: fmt.Sprintf("small/%d.txt", i),
			Size:    10,
			Body:    strings.NewReader("0123456789"),
		})
	}
	big := strings.Repeat("x", 6*1<<20)
	parts = append(parts, fsservice.UploadPart{RelPath: "large/one.bin", Size: int64(len(big)), Body: strings.NewReader(big)})

	res, err := svc.IngestFolder(context.Background(), dest, parts, false)
	require.NoError(t, err)
	assert.Equal(t, 7, res.SuccessfulFiles)

	info, err := os.Stat(filepath.Join(rs.RootPath(), "large", "one.bin"))
	require.NoError(t, err)
	assert.EqualValues(t, len(big), info.Size())
}

func TestIngestFolderNoOverwrite(t *testing.T) {
	svc, rs := newTestService(t)
	dest := rs.Root()

	first := []fsservice.UploadPart{{RelPath: "dup.txt", Size: 1, Body: strings.NewReader("a")}}
	_, err := svc.IngestFolder(context.Background(), dest, first, false)
	require.NoError(t, err)

	second := []fsservice.UploadPart{{RelPath: "dup.txt", Size: 1, Body: strings.NewReader("b")}}
	res, err := svc.IngestFolder(context.Background(), dest, second, false)
	require.NoError(t, err)
	assert.Len(t, res.Failed, 1)
}
