package webserver

import (
	"net/http"

	"github.com/nantokaworks/brother-label/internal/catalog"
	"github.com/nantokaworks/brother-label/internal/dispatch"
	"github.com/nantokaworks/brother-label/internal/output"
	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"github.com/nantokaworks/brother-label/internal/status"
	"go.uber.org/zap"
)

type ProbeResponse struct {
	Target    string `json:"target"`
	Backend   string `json:"backend"`
	Reachable bool   `json:"reachable"`
	Message   string `json:"message,omitempty"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.ModelChoices())
}

// handleMedia lists media choices. With ?model= only that model's labels are listed.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	model := r.URL.Query().Get("model")
	if model == "" {
		writeJSON(w, http.StatusOK, s.catalog.MediaChoices())
		return
	}

	device, ok := s.catalog.Device(model)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "unknown model: " + model})
		return
	}
	writeJSON(w, http.StatusOK, device.Labels)
}

func handleRotations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.RotationChoices())
}

// handleProbe checks that the configured network printer accepts connections.
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	snap, err := s.settings.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	target, backend, err := dispatch.ResolveTransport(snap.IPAddress, snap.USBDevice)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := ProbeResponse{Target: target, Backend: backend}
	if backend != output.BackendNetwork {
		resp.Message = "USB printers cannot be probed"
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if err := output.Probe(r.Context(), target, s.probeTimeout); err != nil {
		logger.Warn("Printer probe failed", zap.String("target", target), zap.Error(err))
		resp.Message = err.Error()
	} else {
		resp.Reachable = true
	}
	status.SetPrinterReachable(resp.Reachable)
	writeJSON(w, http.StatusOK, resp)
}
