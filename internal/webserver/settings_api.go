package webserver

import (
	"encoding/json"
	"net/http"

	"github.com/nantokaworks/brother-label/internal/labelerr"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	all, err := s.settings.GetAllSettings()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

// handlePutSettings updates the given keys. Every value is validated before
// anything is written.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, labelerr.Input("invalid JSON"))
		return
	}
	if len(updates) == 0 {
		writeError(w, labelerr.Input("no settings given"))
		return
	}

	for key, value := range updates {
		if err := s.settings.Validate(key, value); err != nil {
			writeError(w, err)
			return
		}
	}
	for key, value := range updates {
		if err := s.settings.SetSetting(key, value); err != nil {
			writeError(w, err)
			return
		}
	}

	s.handleGetSettings(w, r)
}

func (s *Server) handleSettingsStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings.CheckPrinterStatus()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
