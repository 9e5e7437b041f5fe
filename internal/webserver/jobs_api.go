package webserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nantokaworks/brother-label/internal/localdb"
)

func handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := localdb.ListPrintJobs(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// LabelPreview is a printed label still kept in the label store.
type LabelPreview struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	MediaType string    `json:"media_type"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// handleRecentLabels lists stored label images, newest first.
func (s *Server) handleRecentLabels(w http.ResponseWriter, r *http.Request) {
	previews := []LabelPreview{}
	if s.labels != nil {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		for _, l := range s.labels.Recent(limit) {
			previews = append(previews, LabelPreview{
				ID:        l.ID,
				Model:     l.Model,
				MediaType: l.MediaType,
				ImageURL:  "/api/jobs/" + l.ID + "/image",
				CreatedAt: l.CreatedAt,
			})
		}
	}
	writeJSON(w, http.StatusOK, previews)
}

func handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := localdb.GetPrintJob(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if job == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleJobImage serves the stored PNG of a recent job.
func (s *Server) handleJobImage(w http.ResponseWriter, r *http.Request) {
	if s.labels == nil {
		http.Error(w, "Label history is disabled", http.StatusNotFound)
		return
	}
	label, ok := s.labels.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "Label image not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, label.Path)
}
