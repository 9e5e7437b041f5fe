package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nantokaworks/brother-label/internal/catalog"
	"github.com/nantokaworks/brother-label/internal/dispatch"
	"github.com/nantokaworks/brother-label/internal/labelerr"
	"github.com/nantokaworks/brother-label/internal/labelstore"
	"github.com/nantokaworks/brother-label/internal/output"
	"github.com/nantokaworks/brother-label/internal/pdfbox"
	"github.com/nantokaworks/brother-label/internal/raster"
	"github.com/nantokaworks/brother-label/internal/settings"
	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"github.com/nantokaworks/brother-label/internal/status"
	"github.com/nantokaworks/brother-label/internal/version"
	"go.uber.org/zap"
)

// Options are the collaborators the server is built from.
type Options struct {
	Catalog    *catalog.Catalog
	Settings   *settings.SettingsManager
	Printer    output.Printer
	Rasterizer raster.Rasterizer
	Boxes      pdfbox.Reader
	Queue      *output.Queue
	Labels     *labelstore.Store // optional
	RenderDPI  int
}

type Server struct {
	catalog    *catalog.Catalog
	settings   *settings.SettingsManager
	dispatcher *dispatch.Dispatcher
	queue      *output.Queue
	labels     *labelstore.Store
	renderDPI  int
	hub        *WSHub

	probeTimeout time.Duration
	httpServer   *http.Server
}

func New(opts Options) *Server {
	s := &Server{
		catalog:      opts.Catalog,
		settings:     opts.Settings,
		queue:        opts.Queue,
		labels:       opts.Labels,
		renderDPI:    opts.RenderDPI,
		hub:          newWSHub(),
		probeTimeout: 3 * time.Second,
	}
	if s.renderDPI <= 0 {
		s.renderDPI = 300
	}
	// 印刷した画像を履歴用に残す
	printer := &historyPrinter{next: opts.Printer, labels: opts.Labels}
	s.dispatcher = dispatch.New(opts.Catalog, printer, opts.Rasterizer, opts.Boxes)
	return s
}

// corsMiddleware adds CORS headers to HTTP handlers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", s.handleHealthcheck)
	r.Get("/ws", s.hub.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(corsMiddleware)

		r.Post("/print", s.handlePrint)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Get("/settings/status", s.handleSettingsStatus)

		r.Get("/printer/models", s.handleModels)
		r.Get("/printer/media", s.handleMedia)
		r.Get("/printer/rotations", handleRotations)
		r.Post("/printer/test-print", s.handleTestPrint)
		r.Get("/printer/probe", s.handleProbe)

		r.Get("/jobs", handleListJobs)
		r.Get("/jobs/{id}", handleGetJob)
		r.Get("/jobs/{id}/image", s.handleJobImage)
		r.Get("/labels", s.handleRecentLabels)
	})
	return r
}

// Start serves the API on port in the background.
func (s *Server) Start(port int) error {
	s.hub.start()

	status.RegisterJobStatusCallback(func(js status.JobStatus) {
		s.hub.Broadcast("print_job", js)
	})
	status.RegisterPrinterStatusChangeCallback(func(reachable bool) {
		s.hub.Broadcast("printer_status", map[string]bool{"reachable": reachable})
	})

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting web server", zap.String("address", addr))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		WriteTimeout: 60 * time.Second, // blocking 印刷の待ち時間を考慮
		ReadTimeout:  30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine and wait briefly to check for immediate errors
	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("Failed to start web server", zap.Error(err))
			return fmt.Errorf("failed to start web server on port %d: %w", port, err)
		}
	case <-time.After(100 * time.Millisecond):
	}
	return nil
}

// Shutdown gracefully shuts down the web server
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpServer == nil {
		return
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown web server gracefully", zap.Error(err))
	} else {
		logger.Info("Web server shutdown complete")
	}
	s.hub.stop()
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	queued := 0
	if s.queue != nil {
		queued = s.queue.Len()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"version":           version.String(),
		"printer_reachable": status.IsPrinterReachable(),
		"queued_jobs":       queued,
		"ws_clients":        s.hub.ClientCount(),
		"timestamp":         time.Now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// httpStatus maps a labelerr code to the response status.
func httpStatus(err error) int {
	switch labelerr.GetCode(err) {
	case labelerr.CodeConfig, labelerr.CodeInput:
		return http.StatusBadRequest
	case labelerr.CodeRender:
		return http.StatusUnprocessableEntity
	case labelerr.CodeDevice:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := httpStatus(err)
	body := map[string]any{
		"success": false,
		"error":   labelerr.UserMessage(err),
	}
	if c := labelerr.GetCode(err); c != "" {
		body["code"] = c
	}
	writeJSON(w, code, body)
}
