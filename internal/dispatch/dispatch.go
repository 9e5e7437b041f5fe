// Package dispatch turns a rendered label and the persisted printer settings
// into exactly one call against an output.Printer.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nantokaworks/brother-label/internal/catalog"
	"github.com/nantokaworks/brother-label/internal/labelerr"
	"github.com/nantokaworks/brother-label/internal/output"
	"github.com/nantokaworks/brother-label/internal/pdfbox"
	"github.com/nantokaworks/brother-label/internal/raster"
	"github.com/nantokaworks/brother-label/internal/settings"
	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"go.uber.org/zap"
)

const (
	// OptionCopies is the runtime option holding the number of copies.
	OptionCopies = "copies"

	// rotationOffset aligns the template orientation with the printer feed direction.
	rotationOffset = 90

	// heightToleranceMM absorbs the rounding of page sizes written in points.
	heightToleranceMM = 0.5

	// maxCopies bounds the copies of one job.
	maxCopies = 100
)

// Request is one print call. Either Image or PDF must be set.
type Request struct {
	JobID   string
	Image   image.Image
	PDF     []byte
	Options map[string]any

	// Template size; informational only.
	Width  float64
	Height float64
}

var pdfMagic = []byte("%PDF-")

// RequestFromBytes builds a Request from an uploaded label file, which must be
// a PDF or a PNG.
func RequestFromBytes(data []byte) (Request, error) {
	if bytes.HasPrefix(data, pdfMagic) {
		return Request{PDF: data}, nil
	}
	img, err := raster.DecodePNG(data)
	if err != nil {
		return Request{}, err
	}
	return Request{Image: img}, nil
}

// Dispatcher resolves media, rotation and transport for a label and hands the
// result to a Printer. It holds no per-call state.
type Dispatcher struct {
	catalog    *catalog.Catalog
	printer    output.Printer
	rasterizer raster.Rasterizer
	boxes      pdfbox.Reader
}

func New(c *catalog.Catalog, p output.Printer, r raster.Rasterizer, b pdfbox.Reader) *Dispatcher {
	return &Dispatcher{catalog: c, printer: p, rasterizer: r, boxes: b}
}

// Dispatch prints req once with the given settings. Errors from the printer
// are returned unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, s settings.PrintSettings) error {
	job, err := d.Prepare(ctx, req, s)
	if err != nil {
		logger.Warn("Label dispatch rejected",
			zap.String("job_id", req.JobID),
			zap.String("code", string(labelerr.GetCode(err))),
			zap.Error(err))
		return err
	}
	return d.printer.Print(ctx, job)
}

// Prepare resolves everything Dispatch needs without printing.
func (d *Dispatcher) Prepare(ctx context.Context, req Request, s settings.PrintSettings) (output.Job, error) {
	copies, err := ResolveCopies(req.Options)
	if err != nil {
		return output.Job{}, err
	}

	img := req.Image
	if img == nil {
		if len(req.PDF) == 0 {
			return output.Job{}, labelerr.Input("no label image or PDF data supplied")
		}
		if d.rasterizer == nil {
			return output.Job{}, labelerr.Render("no rasterizer configured")
		}
		img, err = d.rasterizer.RenderToImage(ctx, req.PDF)
		if err != nil {
			if labelerr.GetCode(err) == "" {
				err = labelerr.Wrap(labelerr.CodeRender, err, "failed to render PDF")
			}
			return output.Job{}, err
		}
	}

	media, err := d.ResolveMedia(req.PDF, s.Model, s.MediaType)
	if err != nil {
		return output.Job{}, err
	}

	target, backend, err := ResolveTransport(s.IPAddress, s.USBDevice)
	if err != nil {
		return output.Job{}, err
	}

	id := req.JobID
	if id == "" {
		if id, err = gonanoid.New(); err != nil {
			return output.Job{}, fmt.Errorf("failed to generate job id: %w", err)
		}
	}

	images := make([]image.Image, copies)
	for i := range images {
		images[i] = img
	}

	job := output.Job{
		ID:        id,
		MediaType: media,
		Images:    images,
		Cut:       s.AutoCut,
		Model:     s.Model,
		Compress:  s.Compression,
		HQ:        s.HighQuality,
		Rotate:    EffectiveRotation(s.Rotation),
		Target:    target,
		Backend:   backend,
		Blocking:  true,
	}
	logger.Debug("Label dispatch resolved",
		zap.String("job_id", job.ID),
		zap.String("model", job.Model),
		zap.String("label", job.MediaType),
		zap.String("target", job.Target),
		zap.Int("copies", copies),
		zap.Int("rotate", job.Rotate))
	return job, nil
}

// ResolveMedia returns the media identifier to print on. For "automatic" the
// first label of model whose tape height matches the page-1 crop box wins.
func (d *Dispatcher) ResolveMedia(pdf []byte, model, mediaType string) (string, error) {
	device, ok := d.catalog.Device(model)
	if !ok {
		return "", labelerr.Config("Unknown printer model %q", model)
	}
	if mediaType == "" {
		return "", labelerr.Config("No label type defined")
	}
	if mediaType != catalog.Automatic {
		return mediaType, nil
	}

	if len(pdf) == 0 || d.boxes == nil {
		return "", labelerr.Config("PDF required for automatic label type selection")
	}
	box, err := d.boxes.CropBox(pdf)
	if err != nil {
		if labelerr.GetCode(err) == "" {
			err = labelerr.Wrap(labelerr.CodeRender, err, "failed to read crop box")
		}
		return "", err
	}

	height := box.HeightMM()
	for _, l := range device.Labels {
		if l.Endless() {
			continue
		}
		if math.Abs(l.TapeSize.Height-height) <= heightToleranceMM {
			logger.Debug("Label type detected",
				zap.String("model", model),
				zap.String("label", l.Identifier()),
				zap.Float64("height_mm", height))
			return l.Identifier(), nil
		}
	}
	return "", labelerr.Config("Unable to find matching label type")
}

// EffectiveRotation converts the configured rotation to the printer's.
func EffectiveRotation(rotation int) int {
	r := (rotation + rotationOffset) % 360
	if r < 0 {
		r += 360
	}
	return r
}

// ResolveTransport picks the printer target. A network address wins over USB.
func ResolveTransport(ipAddress, usbDevice string) (target, backend string, err error) {
	ipAddress = strings.TrimSpace(ipAddress)
	usbDevice = strings.TrimSpace(usbDevice)
	switch {
	case ipAddress != "":
		return "tcp://" + ipAddress, output.BackendNetwork, nil
	case usbDevice != "":
		return "usb://" + usbDevice, output.BackendPyUSB, nil
	default:
		return "", "", labelerr.Config("No IP address or USB device defined.")
	}
}

// ResolveCopies reads the copies option. Missing means 1.
func ResolveCopies(options map[string]any) (int, error) {
	raw, ok := options[OptionCopies]
	if !ok || raw == nil {
		return 1, nil
	}

	var n int64
	switch v := raw.(type) {
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint:
		n = int64(v)
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, labelerr.Config("copies must be an integer: %v", v)
		}
		n = int64(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, labelerr.Wrap(labelerr.CodeConfig, err, "copies must be an integer")
		}
		n = i
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, labelerr.Config("copies must be an integer: %q", v)
		}
		n = i
	default:
		return 0, labelerr.Config("copies must be an integer, got %T", raw)
	}

	if n < 1 {
		return 0, labelerr.Config("copies must be at least 1, got %d", n)
	}
	if n > maxCopies {
		return 0, labelerr.Config("copies must be at most %d, got %d", maxCopies, n)
	}
	return int(n), nil
}
