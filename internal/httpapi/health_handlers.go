package httpapi

import (
	"net/http"
)

type readinessCheck struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
	Msg  string `json:"msg,omitempty"`
}

type readinessResponse struct {
	Ready  bool             `json:"ready"`
	Checks []readinessCheck `json:"checks"`
}

// handleReady reports whether the service can currently accept uploads: the
// sandboxed root is reachable and there is enough free disk space. Returns
// 503 rather than 200 so a load balancer stops routing traffic without
// restarting the process.
// GET /health/ready
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	var checks []readinessCheck
	allOK := true

	if _, err := s.fs.Stat(s.fs.Resolver().Root()); err != nil {
		checks = append(checks, readinessCheck{Name: "storage_accessible", OK: false, Msg: "root directory unreachable"})
		allOK = false
	} else {
		checks = append(checks, readinessCheck{Name: "storage_accessible", OK: true})
	}

	if avail, total := s.fs.DiskStats(); total > 0 {
		if int64(avail) < s.minFreeBytes {
			checks = append(checks, readinessCheck{Name: "disk_space", OK: false, Msg: "below configured minimum free space"})
			allOK = false
		} else {
			checks = append(checks, readinessCheck{Name: "disk_space", OK: true})
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, readinessResponse{Ready: allOK, Checks: checks})
}
