// Package testlabel draws the label used by test prints.
package testlabel

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/nantokaworks/brother-label/internal/catalog"
	"github.com/nantokaworks/brother-label/internal/labelerr"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// EndlessLengthMM is the canvas length used for continuous tape.
const EndlessLengthMM = 30.0

const marginPx = 8

// Size returns the canvas size in pixels for label at dpi. Width is across
// the tape and height runs along it, matching how label templates are laid out.
func Size(label catalog.Label, dpi int) (int, int) {
	length := label.TapeSize.Height
	if label.Endless() {
		length = EndlessLengthMM
	}
	return mmToPx(label.TapeSize.Width, dpi), mmToPx(length, dpi)
}

func mmToPx(v float64, dpi int) int {
	return int(v*float64(dpi)/25.4 + 0.5)
}

// Resolve finds the label profile a test print for model and mediaType is drawn on.
func Resolve(c *catalog.Catalog, model, mediaType string) (catalog.Label, error) {
	device, ok := c.Device(model)
	if !ok {
		return catalog.Label{}, labelerr.Config("Unknown printer model %q", model)
	}
	if mediaType == catalog.Automatic {
		return catalog.Label{}, labelerr.Config("test print needs a fixed label type, not automatic")
	}
	label, ok := device.Label(mediaType)
	if !ok {
		return catalog.Label{}, labelerr.Config("label type %s is not supported by %s", mediaType, model)
	}
	return label, nil
}

// Generate draws a QR code of text with the text next to it.
func Generate(label catalog.Label, text string, dpi int) (image.Image, error) {
	if dpi <= 0 {
		dpi = 300
	}
	if text == "" {
		text = label.Identifier()
	}
	w, h := Size(label, dpi)
	if w <= 2*marginPx || h <= 2*marginPx {
		return nil, fmt.Errorf("label %s is too small for a test print", label.Identifier())
	}

	canvas := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	side := min(w, h) - 2*marginPx
	qr, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}
	qr.DisableBorder = true
	qrImg := qr.Image(side)
	draw.Draw(canvas, image.Rect(marginPx, marginPx, marginPx+side, marginPx+side), qrImg, image.Point{}, draw.Src)

	// テキストは QR コードの右か下の空いている方に描く
	textArea := image.Rect(marginPx, 2*marginPx+side, w-marginPx, h-marginPx)
	if w > h {
		textArea = image.Rect(2*marginPx+side, marginPx, w-marginPx, h-marginPx)
	}
	drawText(canvas, textArea, text)

	return canvas, nil
}

func drawText(dst draw.Image, area image.Rectangle, text string) {
	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil()
	if area.Dx() <= 0 || area.Dy() < lineHeight {
		return
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	maxChars := area.Dx() / face.Advance
	y := area.Min.Y + face.Ascent
	for _, line := range wrap(text, maxChars) {
		if y+face.Descent > area.Max.Y {
			break
		}
		d.Dot = fixed.P(area.Min.X, y)
		d.DrawString(line)
		y += lineHeight
	}
}

// wrap splits text into lines of at most width runes.
func wrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		runes := []rune(paragraph)
		for len(runes) > width {
			lines = append(lines, string(runes[:width]))
			runes = runes[width:]
		}
		lines = append(lines, string(runes))
	}
	return lines
}
