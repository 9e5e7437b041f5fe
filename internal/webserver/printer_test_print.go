package webserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nantokaworks/brother-label/internal/dispatch"
	"github.com/nantokaworks/brother-label/internal/labelerr"
	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"github.com/nantokaworks/brother-label/internal/testlabel"
	"go.uber.org/zap"
)

const maxTestPrintBody = 64 << 10

// handleTestPrint prints a QR code test label on the configured media.
func (s *Server) handleTestPrint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxTestPrintBody)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, labelerr.Input("invalid JSON"))
			return
		}
	}
	if req.Text == "" {
		req.Text = "brother-label " + time.Now().Format("2006-01-02 15:04")
	}

	snap, err := s.settings.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	label, err := testlabel.Resolve(s.catalog, snap.Model, snap.MediaType)
	if err != nil {
		writeError(w, err)
		return
	}

	img, err := testlabel.Generate(label, req.Text, s.renderDPI)
	if err != nil {
		writeError(w, labelerr.Wrap(labelerr.CodeRender, err, "failed to draw test label"))
		return
	}

	logger.Info("Starting test print via API",
		zap.String("model", snap.Model),
		zap.String("label", label.Identifier()))
	s.submit(w, r, dispatch.Request{Image: img})
}
