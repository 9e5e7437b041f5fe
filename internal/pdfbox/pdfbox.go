// Package pdfbox reads page geometry from PDF documents.
package pdfbox

import (
	"bytes"

	"github.com/nantokaworks/brother-label/internal/labelerr"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const pointsPerMM = 72 / 25.4

// Box is a page box in PDF points.
type Box struct {
	Width  float64
	Height float64
}

func (b Box) WidthMM() float64  { return b.Width / pointsPerMM }
func (b Box) HeightMM() float64 { return b.Height / pointsPerMM }

// Reader returns the crop box of the first page of a PDF.
type Reader interface {
	CropBox(pdf []byte) (Box, error)
}

// PDFCPUReader is the Reader backed by pdfcpu.
type PDFCPUReader struct{}

func (PDFCPUReader) CropBox(data []byte) (Box, error) {
	if len(data) == 0 {
		return Box{}, labelerr.Render("PDF data is empty")
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return Box{}, labelerr.Wrap(labelerr.CodeRender, err, "failed to read PDF")
	}
	if err := api.ValidateContext(ctx); err != nil {
		return Box{}, labelerr.Wrap(labelerr.CodeRender, err, "failed to validate PDF")
	}

	boundaries, err := ctx.PageBoundaries(nil)
	if err != nil {
		return Box{}, labelerr.Wrap(labelerr.CodeRender, err, "failed to read page boundaries")
	}
	if len(boundaries) == 0 {
		return Box{}, labelerr.Render("PDF has no pages")
	}

	// CropBox falls back to the MediaBox when the page does not define one.
	rect := boundaries[0].CropBox()
	if rect == nil {
		return Box{}, labelerr.Render("first page has no crop box or media box")
	}
	return Box{Width: rect.Width(), Height: rect.Height()}, nil
}
