package httpapi

import (
	"net/http"
	"sync/atomic"
)

// metrics holds process-lifetime atomic counters exposed at GET /metrics.
// All writes use atomic operations so there is no lock contention on hot
// paths like upload and download.
type metrics struct {
	UploadsTotal       atomic.Int64 // files attempted, by single-file and folder uploads alike
	UploadsFailed      atomic.Int64 // attempted files that returned an error
	FolderUploadsTotal atomic.Int64 // folder uploads attempted
	BytesWritten       atomic.Int64 // bytes committed to the filesystem
	DownloadsTotal     atomic.Int64 // files served via the range streamer
	BytesServed        atomic.Int64 // full sizes of files opened for download; ranged, 304 and 416 responses add the whole size too
}

// metricsHandler serializes the current counter snapshot as a flat JSON
// object. active is called at render time so the live upload-slot count
// doesn't need its own field.
func (m *metrics) metricsHandler(active func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int64{
			"uploads_total":        m.UploadsTotal.Load(),
			"uploads_failed":       m.UploadsFailed.Load(),
			"folder_uploads_total": m.FolderUploadsTotal.Load(),
			"bytes_written":        m.BytesWritten.Load(),
			"downloads_total":      m.DownloadsTotal.Load(),
			"bytes_served":         m.BytesServed.Load(),
			"active_uploads":       int64(active()),
		})
	}
}
