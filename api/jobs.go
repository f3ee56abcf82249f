package api

import (
	"context"
	"net/http"

	"github.com/signalist/signalist/pkg/models"
)

// JobStatus is the body of the digest trigger endpoint.
type JobStatus struct {
	Status  string               `json:"status"`
	Message string               `json:"message,omitempty"`
	Last    *models.DigestResult `json:"last,omitempty"`
}

const digestDisabledMessage = "Daily news digest is currently disabled"

func (s *Server) digestEnabled() bool {
	return s.cfg.Digest.Enabled && s.digest != nil
}

// handleDigestTrigger serves /api/jobs/daily-news-summary. While the digest
// is disabled every method answers with a fixed stub. Otherwise GET reports
// the last run and POST/PUT start a run in the background.
func (s *Server) handleDigestTrigger(w http.ResponseWriter, r *http.Request) {
	if !s.digestEnabled() {
		writeJSON(w, http.StatusOK, JobStatus{Status: "disabled", Message: digestDisabledMessage})
		return
	}

	if r.Method == http.MethodGet {
		st := JobStatus{Status: "idle"}
		if s.digest.Running() {
			st.Status = "running"
		}
		if last, ok := s.digest.Last(); ok {
			st.Last = &last
		}
		writeJSON(w, http.StatusOK, st)
		return
	}

	// The run outlives the request.
	if !s.digest.Start(context.WithoutCancel(r.Context())) {
		writeJSON(w, http.StatusConflict, JobStatus{Status: "running", Message: "a digest run is already in progress"})
		return
	}
	writeJSON(w, http.StatusAccepted, JobStatus{Status: "accepted", Message: "daily news digest started"})
}
