package server

import "net/http"

// healthResult is the JSON response body for the probe endpoints.
type healthResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealthz is a liveness probe that always returns 200 OK. A running
// process that can serve HTTP is considered alive.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResult{Status: "ok"})
}

// handleReadyz reports readiness: the service is ready when the whisper model
// is either loaded or present on disk. A missing model means start requests
// can only fail, so the instance should not receive traffic yet.
func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	checks := make(map[string]string, 1)
	res := healthResult{Status: "ok", Checks: checks}
	status := http.StatusOK

	if s.pipeline.Status().ModelAvailable {
		checks["model"] = "ok"
	} else {
		checks["model"] = "fail: whisper model not available"
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, res)
}
