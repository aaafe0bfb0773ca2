package httpapi

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/filedash/filedash/internal/fsservice"
	"github.com/filedash/filedash/internal/rangestream"
)

type dirEntryView struct {
	Name        string `json:"name"`
	RelPath     string `json:"relpath"`
	IsDirectory bool   `json:"is_directory"`
	Size        int64  `json:"size"`
	Modified    int64  `json:"modified"`
	MIME        string `json:"mime,omitempty"`
	Permissions string `json:"permissions"`
}

func toDirEntryView(e fsservice.DirEntry) dirEntryView {
	return dirEntryView{
		Name:        e.Name,
		RelPath:     e.RelPath,
		IsDirectory: e.IsDirectory,
		Size:        e.Size,
		Modified:    e.ModTime,
		MIME:        e.MIME,
		Permissions: e.Permissions,
	}
}

type listResponse struct {
	Files []dirEntryView `json:"files"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// handleList serves directory listings.
// GET /api/files?path=&page=&limit=
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	rawPath := r.URL.Query().Get("path")
	if rawPath == "" {
		rawPath = "/"
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 100
	}

	dir, err := s.fs.Resolver().Resolve(rawPath, true)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.fs.List(dir, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]dirEntryView, 0, len(res.Entries))
	for _, e := range res.Entries {
		views = append(views, toDirEntryView(e))
	}
	if page < 1 {
		page = 1
	}
	writeJSON(w, http.StatusOK, listResponse{Files: views, Total: res.Total, Page: page, Limit: limit})
}

// handleDownload streams a file, honoring Range headers via rangestream.
// GET /api/files/download/{path}
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	rawPath := chi.URLParam(r, "*")
	p, err := s.fs.Resolver().Resolve(rawPath, true)
	if err != nil {
		writeError(w, err)
		return
	}

	handle, err := s.fs.OpenRead(p)
	if err != nil {
		writeError(w, err)
		return
	}
	defer handle.Close()

	s.metrics.DownloadsTotal.Add(1)
	s.metrics.BytesServed.Add(handle.Size)

	rangestream.Serve(w, r, rangestream.Content{
		Name:            handle.Name,
		Size:            handle.Size,
		ModTimeUnixNano: handle.ModTime,
		Body:            handle,
	}, true)
}

type uploadedFileView struct {
	Name    string `json:"name"`
	RelPath string `json:"relpath"`
	Size    int64  `json:"size"`
}

type uploadErrorView struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type uploadResponse struct {
	Uploaded []uploadedFileView `json:"uploaded"`
	Errors   []uploadErrorView  `json:"errors"`
}

// handleUpload accepts a single-or-multi file multipart upload into one
// target directory, without folder-structure bookkeeping (that's
// handleUploadFolder's job).
// POST /api/files/upload
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		writeErrorCode(w, http.StatusRequestEntityTooLarge, "file_too_large", "upload exceeds the configured maximum size")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	targetPath := r.FormValue("path")
	if targetPath == "" {
		targetPath = "/"
	}
	overwrite := r.FormValue("overwrite") == "true"

	dir, err := s.fs.Resolver().Resolve(targetPath, true)
	if err != nil {
		writeError(w, err)
		return
	}

	files := r.MultipartForm.File["file"]
	resp := uploadResponse{Uploaded: []uploadedFileView{}, Errors: []uploadErrorView{}}

	for _, fh := range files {
		s.metrics.UploadsTotal.Add(1)

		f, err := fh.Open()
		if err != nil {
			s.metrics.UploadsFailed.Add(1)
			resp.Errors = append(resp.Errors, uploadErrorView{Filename: fh.Filename, Error: "could not open upload"})
			continue
		}

		target, err := s.fs.Resolver().ResolveChild(dir, fh.Filename)
		if err != nil {
			f.Close()
			s.metrics.UploadsFailed.Add(1)
			resp.Errors = append(resp.Errors, uploadErrorView{Filename: fh.Filename, Error: "invalid path"})
			continue
		}

		n, err := s.fs.WriteFile(target, f, overwrite)
		f.Close()
		if err != nil {
			s.metrics.UploadsFailed.Add(1)
			resp.Errors = append(resp.Errors, uploadErrorView{Filename: fh.Filename, Error: err.Error()})
			continue
		}
		s.metrics.BytesWritten.Add(n)
		resp.Uploaded = append(resp.Uploaded, uploadedFileView{Name: target.Name(), RelPath: target.Rel(), Size: n})
	}

	writeJSON(w, http.StatusOK, resp)
}

type folderUploadResponse struct {
	Uploaded        []uploadedFileView `json:"uploaded"`
	Failed          []uploadErrorView  `json:"failed"`
	FoldersCreated  []string           `json:"folders_created"`
	TotalFiles      int                `json:"total_files"`
	SuccessfulFiles int                `json:"successful_files"`
	FailedFiles     int                `json:"failed_files"`
}

// handleUploadFolder ingests a multipart folder upload, preserving the
// relative paths carried in each part's filename.
// POST /api/files/upload-folder
func (s *Server) handleUploadFolder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		writeErrorCode(w, http.StatusRequestEntityTooLarge, "file_too_large", "upload exceeds the configured maximum size")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	targetPath := r.FormValue("path")
	if targetPath == "" {
		targetPath = "/"
	}
	overwrite := r.FormValue("overwrite") == "true"

	// mustExist=false: the target directory is created as part of ingest
	// when it doesn't already exist.
	dir, err := s.fs.Resolver().Resolve(targetPath, false)
	if err != nil {
		writeError(w, err)
		return
	}

	fileHeaders := r.MultipartForm.File["file"]
	parts := make([]fsservice.UploadPart, 0, len(fileHeaders))
	var openFiles []interface{ Close() error }
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			continue
		}
		openFiles = append(openFiles, f)
		// mime/multipart reduces fh.Filename to its base name, so the
		// sub-folder path is read back from the part's Content-Disposition.
		relPath := fh.Filename
		if _, params, perr := mime.ParseMediaType(fh.Header.Get("Content-Disposition")); perr == nil && params["filename"] != "" {
			relPath = params["filename"]
		}
		parts = append(parts, fsservice.UploadPart{
			RelPath: strings.TrimPrefix(relPath, "/"),
			Size:    fh.Size,
			Body:    f,
		})
	}
	defer func() {
		for _, f := range openFiles {
			f.Close()
		}
	}()

	s.metrics.FolderUploadsTotal.Add(1)

	result, err := s.fs.IngestFolder(r.Context(), dir, parts, overwrite)
	if err != nil && err != context.Canceled {
		writeError(w, err)
		return
	}
	for _, u := range result.Uploaded {
		s.metrics.BytesWritten.Add(u.Size)
	}
	s.metrics.UploadsTotal.Add(int64(result.TotalFiles))
	s.metrics.UploadsFailed.Add(int64(result.FailedFiles))

	resp := folderUploadResponse{
		Uploaded:        make([]uploadedFileView, 0, len(result.Uploaded)),
		Failed:          make([]uploadErrorView, 0, len(result.Failed)),
		FoldersCreated:  []string{},
		TotalFiles:      result.TotalFiles,
		SuccessfulFiles: result.SuccessfulFiles,
		FailedFiles:     result.FailedFiles,
	}
	for _, u := range result.Uploaded {
		resp.Uploaded = append(resp.Uploaded, uploadedFileView{Name: chiBase(u.RelPath), RelPath: u.RelPath, Size: u.Size})
	}
	for _, f := range result.Failed {
		resp.Failed = append(resp.Failed, uploadErrorView{Filename: f.RelPath, Error: f.Error})
	}
	resp.FoldersCreated = result.FoldersCreated

	writeJSON(w, http.StatusOK, resp)
}

// handleDelete permanently removes a file or directory.
// DELETE /api/files/{path}
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	rawPath := chi.URLParam(r, "*")
	recursive := r.URL.Query().Get("recursive") == "true"

	p, err := s.fs.Resolver().Resolve(rawPath, true)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.fs.Delete(p, recursive); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted", "path": p.RelSlash()})
}

type renameRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// handleRename moves a file or directory within R.
// PUT /api/files/rename
func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "validation_failed", "invalid JSON body")
		return
	}

	from, err := s.fs.Resolver().Resolve(req.From, true)
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := s.fs.Resolver().Resolve(req.To, false)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.fs.Rename(from, to); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "renamed", "from": from.RelSlash(), "to": to.RelSlash()})
}

type mkdirRequest struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

// handleMkdir creates a directory.
// POST /api/files/mkdir
func (s *Server) handleMkdir(w http.ResponseWriter, r *http.Request) {
	var req mkdirRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "validation_failed", "invalid JSON body")
		return
	}

	p, err := s.fs.Resolver().Resolve(req.Path, false)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.fs.Mkdir(p, req.Recursive); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "created", "path": p.RelSlash()})
}

func chiBase(rel string) string {
	if i := strings.LastIndexByte(rel, '/'); i != -1 {
		return rel[i+1:]
	}
	return rel
}
