package webserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/nantokaworks/brother-label/internal/dispatch"
	"github.com/nantokaworks/brother-label/internal/labelerr"
	"github.com/nantokaworks/brother-label/internal/labelstore"
	"github.com/nantokaworks/brother-label/internal/localdb"
	"github.com/nantokaworks/brother-label/internal/output"
	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"github.com/nantokaworks/brother-label/internal/status"
	"go.uber.org/zap"
)

const maxUploadBytes = 32 << 20

// historyPrinter keeps the printed image and marks the job as printing
// before handing it to the real printer.
type historyPrinter struct {
	next   output.Printer
	labels *labelstore.Store
}

func (p *historyPrinter) Print(ctx context.Context, job output.Job) error {
	if p.labels != nil && len(job.Images) > 0 {
		if _, err := p.labels.Save(job.ID, job.Model, job.MediaType, job.Images[0]); err != nil {
			logger.Warn("Failed to keep printed label", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if localdb.GetDB() != nil {
		if err := localdb.UpdatePrintJobStatus(job.ID, localdb.JobStatusPrinting, job.MediaType, job.Target); err != nil {
			logger.Warn("Failed to update print job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	status.SetJobStatus(status.JobStatus{
		ID:        job.ID,
		Status:    localdb.JobStatusPrinting,
		Model:     job.Model,
		MediaType: job.MediaType,
		Target:    job.Target,
		Copies:    len(job.Images),
	})
	return p.next.Print(ctx, job)
}

func isBlocking(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("blocking"))
	return err == nil && v
}

// handlePrint accepts a multipart upload with a "label" file (PDF or PNG)
// and an optional "copies" field.
func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, labelerr.Wrap(labelerr.CodeInput, err, "invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("label")
	if err != nil {
		writeError(w, labelerr.Input("label file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, labelerr.Wrap(labelerr.CodeInput, err, "failed to read label file"))
		return
	}

	req, err := dispatch.RequestFromBytes(data)
	if err != nil {
		writeError(w, err)
		return
	}
	if copies := r.FormValue("copies"); copies != "" {
		req.Options = map[string]any{dispatch.OptionCopies: copies}
	}

	logger.Info("Print request received",
		zap.String("filename", header.Filename),
		zap.Int("size", len(data)),
		zap.Bool("pdf", req.PDF != nil))

	s.submit(w, r, req)
}

// submit records the job, queues it and either answers right away or waits
// for the printer when ?blocking=true.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, req dispatch.Request) {
	snap, err := s.settings.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	copies, err := dispatch.ResolveCopies(req.Options)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := labelstore.GenerateID()
	if err != nil {
		writeError(w, err)
		return
	}
	req.JobID = id

	if err := localdb.RecordPrintJob(localdb.PrintJob{
		ID:        id,
		Status:    localdb.JobStatusQueued,
		Model:     snap.Model,
		MediaType: snap.MediaType,
		Copies:    copies,
	}); err != nil {
		writeError(w, err)
		return
	}
	status.SetJobStatus(status.JobStatus{
		ID:        id,
		Status:    localdb.JobStatusQueued,
		Model:     snap.Model,
		MediaType: snap.MediaType,
		Copies:    copies,
	})

	done := make(chan error, 1)
	task := output.Task{
		ID: id,
		Run: func(ctx context.Context) error {
			return s.dispatcher.Dispatch(ctx, req, snap)
		},
		Done: func(err error) {
			s.finishJob(id, snap.Model, snap.MediaType, copies, err)
			done <- err
		},
	}
	if err := s.queue.Enqueue(task); err != nil {
		s.finishJob(id, snap.Model, snap.MediaType, copies, err)
		code := http.StatusServiceUnavailable
		if !errors.Is(err, output.ErrQueueFull) && !errors.Is(err, output.ErrQueueClosed) {
			code = http.StatusInternalServerError
		}
		writeJSON(w, code, map[string]any{"success": false, "job_id": id, "error": err.Error()})
		return
	}

	if !isBlocking(r) {
		writeJSON(w, http.StatusAccepted, map[string]any{
			"success": true,
			"job_id":  id,
			"status":  localdb.JobStatusQueued,
		})
		return
	}

	select {
	case err := <-done:
		if err != nil {
			body := map[string]any{
				"success": false,
				"job_id":  id,
				"error":   labelerr.UserMessage(err),
			}
			if c := labelerr.GetCode(err); c != "" {
				body["code"] = c
			}
			writeJSON(w, httpStatus(err), body)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"job_id":  id,
			"status":  localdb.JobStatusDone,
		})
	case <-r.Context().Done():
		// クライアント切断後もジョブはキューで継続する
		logger.Info("Client went away while waiting for print", zap.String("job_id", id))
	}
}

func (s *Server) finishJob(id, model, mediaType string, copies int, jobErr error) {
	if err := localdb.FinishPrintJob(id, jobErr); err != nil {
		logger.Warn("Failed to finish print job", zap.String("job_id", id), zap.Error(err))
	}

	js := status.JobStatus{
		ID:        id,
		Status:    localdb.JobStatusDone,
		Model:     model,
		MediaType: mediaType,
		Copies:    copies,
	}
	if jobErr != nil {
		js.Status = localdb.JobStatusFailed
		js.Code = string(labelerr.GetCode(jobErr))
		js.Error = labelerr.UserMessage(jobErr)
	}
	status.SetJobStatus(js)
}
