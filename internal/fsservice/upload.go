package fsservice

import (
	"context"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/filedash/filedash/internal/pathsafe"
)

// smallFileThreshold splits multipart parts into two size classes: parts at
// or under this size are ingested with bounded concurrency, larger parts
// are ingested one at a time to cap peak memory and avoid saturating disk
// I/O with many large streams at once.
const smallFileThreshold = 5 * 1 << 20 // 5 MiB

// smallFileConcurrency bounds how many small parts are written concurrently
// within a single folder ingest.
const smallFileConcurrency = 4

// FolderUploadResult is the envelope returned after ingesting a multipart
// folder upload. FoldersCreated lists each directory once, in the order it
// was first recorded: for every part that resolves, the part's parent
// directory and each ancestor up to dest (dest itself unless it is the
// root), whether or not the directory already existed and whether or not
// the part's write succeeds.
type FolderUploadResult struct {
	Uploaded        []FileResult
	Failed          []FileResult
	FoldersCreated  []string // "/"-prefixed, relative to the resolver root
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
}

// UploadPart is one file within a multipart folder upload: RelPath is the
// destination path relative to dest, taken verbatim from the form part's
// filename (e.g. a webkitdirectory upload sends "photos/2024/IMG_001.jpg"
// as the part filename, forward-slashes preserving structure). Size must be
// known before IngestFolder is called, since it determines which
// concurrency lane the part takes; the HTTP layer spools parts whose length
// isn't declared up front to a temp file to learn their size before
// handing them to IngestFolder.
type UploadPart struct {
	RelPath string
	Size    int64
	Body    io.Reader
}

// IngestFolder writes each part under dest, creating intermediate
// directories as needed, isolating per-part failures so one bad file never
// aborts the batch. Parts are split by size into a concurrent small-file
// lane and a serial large-file lane; within the small lane at most
// smallFileConcurrency writes run at once.
func (s *Service) IngestFolder(ctx context.Context, dest pathsafe.Safe, parts []UploadPart, overwrite bool) (FolderUploadResult, error) {
	result := FolderUploadResult{TotalFiles: len(parts)}
	seenFolders := map[string]bool{}
	var foldersOrdered []string
	var foldersMu sync.Mutex
	var resultMu sync.Mutex

	// recordFolder records rel and every ancestor down to and including
	// dest, shallowest first, the first time each is seen — these are the
	// directories WriteFile's MkdirAll will have created or confirmed for
	// this part.
	recordFolder := func(rel string) {
		foldersMu.Lock()
		defer foldersMu.Unlock()
		var ancestors []string
		for r := rel; r != "" && len(r) >= len(dest.Rel()); r = parentRel(r) {
			ancestors = append(ancestors, r)
			if r == dest.Rel() {
				break
			}
		}
		for i := len(ancestors) - 1; i >= 0; i-- {
			a := ancestors[i]
			if !seenFolders[a] {
				seenFolders[a] = true
				foldersOrdered = append(foldersOrdered, "/"+a)
			}
		}
	}

	ingestOne := func(p UploadPart) FileResult {
		target, err := s.resolver.ResolveChild(dest, p.RelPath)
		if err != nil {
			return FileResult{RelPath: p.RelPath, Error: err.Error()}
		}

		dirRel := parentRel(target.Rel())
		if dirRel != "" {
			recordFolder(dirRel)
		}

		n, err := s.WriteFile(target, p.Body, overwrite)
		if err != nil {
			return FileResult{RelPath: p.RelPath, Error: err.Error()}
		}
		return FileResult{RelPath: p.RelPath, Size: n}
	}

	var small, large []UploadPart
	for _, p := range parts {
		if p.Size <= smallFileThreshold {
			small = append(small, p)
		} else {
			large = append(large, p)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, smallFileConcurrency)

	for _, p := range small {
		p := p
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			fr := ingestOne(p)
			resultMu.Lock()
			appendResult(&result, fr)
			resultMu.Unlock()
			return nil // per-part failures are recorded, never abort the batch
		})
	}
	// errgroup only buys us bounded concurrency here; wait before the serial
	// lane so total resource use stays predictable.
	if err := g.Wait(); err != nil && ctx.Err() != nil {
		return result, ctx.Err()
	}

	for _, p := range large {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		fr := ingestOne(p)
		appendResult(&result, fr)
	}

	result.FoldersCreated = foldersOrdered
	result.SuccessfulFiles = len(result.Uploaded)
	result.FailedFiles = len(result.Failed)
	return result, nil
}

func appendResult(result *FolderUploadResult, fr FileResult) {
	if fr.Error == "" {
		result.Uploaded = append(result.Uploaded, fr)
	} else {
		result.Failed = append(result.Failed, fr)
	}
}

// parentRel returns the parent directory of a "/"-joined relative path, or
// "" if rel has no parent (is a top-level entry).
func parentRel(rel string) string {
	for i := len(rel) - 1; i >= 0; i-- {
		if rel[i] == '/' {
			return rel[:i]
		}
	}
	return ""
}
