// Package raster converts rendered labels into images.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/nantokaworks/brother-label/internal/labelerr"
	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"go.uber.org/zap"
)

// Rasterizer renders the first page of a PDF to an image.
type Rasterizer interface {
	RenderToImage(ctx context.Context, pdf []byte) (image.Image, error)
}

// PdftoppmRasterizer shells out to poppler's pdftoppm.
type PdftoppmRasterizer struct {
	Path string // defaults to "pdftoppm"
	DPI  int    // defaults to 300
}

func (r PdftoppmRasterizer) RenderToImage(ctx context.Context, pdf []byte) (image.Image, error) {
	if len(pdf) == 0 {
		return nil, labelerr.Render("PDF data is empty")
	}

	bin := r.Path
	if bin == "" {
		bin = "pdftoppm"
	}
	dpi := r.DPI
	if dpi <= 0 {
		dpi = 300
	}

	dir, err := os.MkdirTemp("", "brother-label-render-")
	if err != nil {
		return nil, labelerr.Wrap(labelerr.CodeRender, err, "failed to create temp directory")
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "label.pdf")
	if err := os.WriteFile(in, pdf, 0600); err != nil {
		return nil, labelerr.Wrap(labelerr.CodeRender, err, "failed to write PDF")
	}
	outPrefix := filepath.Join(dir, "label")

	cmd := exec.CommandContext(ctx, bin,
		"-png",
		"-r", fmt.Sprint(dpi),
		"-f", "1", "-l", "1",
		"-singlefile",
		in, outPrefix)
	output, err := cmd.CombinedOutput()
	if err != nil {
		logger.Error("pdftoppm command failed",
			zap.String("path", bin),
			zap.Error(err),
			zap.String("output", string(output)))
		return nil, labelerr.Wrap(labelerr.CodeRender, err, "pdftoppm failed (output: %s)", bytes.TrimSpace(output))
	}

	data, err := os.ReadFile(outPrefix + ".png")
	if err != nil {
		return nil, labelerr.Wrap(labelerr.CodeRender, err, "pdftoppm produced no image")
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, labelerr.Wrap(labelerr.CodeRender, err, "failed to decode rendered page")
	}

	logger.Debug("PDF rasterized",
		zap.Int("dpi", dpi),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return img, nil
}

// DecodePNG decodes an uploaded PNG label.
func DecodePNG(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, labelerr.Input("PNG data is empty")
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, labelerr.Wrap(labelerr.CodeInput, err, "invalid PNG label")
	}
	return img, nil
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
