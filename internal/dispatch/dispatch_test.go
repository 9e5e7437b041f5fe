package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/nantokaworks/brother-label/internal/catalog"
	"github.com/nantokaworks/brother-label/internal/labelerr"
	"github.com/nantokaworks/brother-label/internal/output"
	"github.com/nantokaworks/brother-label/internal/pdfbox"
	"github.com/nantokaworks/brother-label/internal/settings"
)

type fakePrinter struct {
	jobs []output.Job
	err  error
}

func (p *fakePrinter) Print(_ context.Context, job output.Job) error {
	p.jobs = append(p.jobs, job)
	return p.err
}

type fakeRasterizer struct {
	img   image.Image
	err   error
	calls int
}

func (r *fakeRasterizer) RenderToImage(context.Context, []byte) (image.Image, error) {
	r.calls++
	return r.img, r.err
}

type fakeBoxes struct {
	box   pdfbox.Box
	err   error
	calls int
}

func (b *fakeBoxes) CropBox([]byte) (pdfbox.Box, error) {
	b.calls++
	return b.box, b.err
}

// mm converts millimetres to PDF points.
func mm(v float64) float64 { return v * 72 / 25.4 }

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Device{
		{ID: "QL-820NWB", Name: "QL-820NWB", Labels: []catalog.Label{
			{Name: "62mm endless", Identifiers: []string{"62"}, TapeSize: catalog.TapeSize{Width: 62}},
			{Name: "62mm x 29mm", Identifiers: []string{"62x29"}, TapeSize: catalog.TapeSize{Width: 62, Height: 29}},
			{Name: "29mm x 90mm", Identifiers: []string{"29x90", "29x90-alt"}, TapeSize: catalog.TapeSize{Width: 29, Height: 90}},
			{Name: "38mm x 90mm", Identifiers: []string{"39x90", "38x90"}, TapeSize: catalog.TapeSize{Width: 38, Height: 90}},
		}},
		{ID: "PT-P750W", Name: "PT-P750W", Labels: []catalog.Label{
			{Name: "12mm", Identifiers: []string{"12", "tze_12mm"}, TapeSize: catalog.TapeSize{Width: 12}},
		}},
	})
	if err != nil {
		t.Fatalf("catalog.New failed: %v", err)
	}
	return c
}

func baseSettings() settings.PrintSettings {
	return settings.PrintSettings{
		Model:       "QL-820NWB",
		MediaType:   "62x29",
		IPAddress:   "192.168.1.50",
		AutoCut:     true,
		Rotation:    0,
		Compression: false,
		HighQuality: true,
	}
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakePrinter, *fakeRasterizer, *fakeBoxes) {
	t.Helper()
	p := &fakePrinter{}
	r := &fakeRasterizer{img: image.NewGray(image.Rect(0, 0, 8, 8))}
	b := &fakeBoxes{}
	return New(testCatalog(t), p, r, b), p, r, b
}

func TestEffectiveRotation(t *testing.T) {
	cases := map[int]int{0: 90, 90: 180, 180: 270, 270: 0}
	for in, want := range cases {
		if got := EffectiveRotation(in); got != want {
			t.Fatalf("EffectiveRotation(%d): got=%d want=%d", in, got, want)
		}
	}
}

func TestResolveTransport(t *testing.T) {
	target, backend, err := ResolveTransport("192.168.1.50", "")
	if err != nil || target != "tcp://192.168.1.50" || backend != "network" {
		t.Fatalf("ip: got=(%q, %q, %v)", target, backend, err)
	}

	target, backend, err = ResolveTransport("", "04f9:2042/000A1Z401370")
	if err != nil || target != "usb://04f9:2042/000A1Z401370" || backend != "pyusb" {
		t.Fatalf("usb: got=(%q, %q, %v)", target, backend, err)
	}

	target, _, err = ResolveTransport("10.0.0.2", "04f9:2042")
	if err != nil || target != "tcp://10.0.0.2" {
		t.Fatalf("ip should win over usb: got=(%q, %v)", target, err)
	}

	_, _, err = ResolveTransport("", "")
	if !labelerr.Is(err, labelerr.CodeConfig) {
		t.Fatalf("no transport: got=%v want CONFIG_ERROR", err)
	}
	if labelerr.UserMessage(err) != "No IP address or USB device defined." {
		t.Fatalf("message: got=%q", labelerr.UserMessage(err))
	}
}

func TestResolveCopies(t *testing.T) {
	valid := []struct {
		options map[string]any
		want    int
	}{
		{nil, 1},
		{map[string]any{}, 1},
		{map[string]any{"copies": nil}, 1},
		{map[string]any{"copies": "3"}, 3},
		{map[string]any{"copies": " 2 "}, 2},
		{map[string]any{"copies": 4}, 4},
		{map[string]any{"copies": int64(5)}, 5},
		{map[string]any{"copies": 2.0}, 2},
		{map[string]any{"copies": json.Number("6")}, 6},
		{map[string]any{"copies": maxCopies}, maxCopies},
	}
	for _, tc := range valid {
		got, err := ResolveCopies(tc.options)
		if err != nil {
			t.Fatalf("ResolveCopies(%v) failed: %v", tc.options, err)
		}
		if got != tc.want {
			t.Fatalf("ResolveCopies(%v): got=%d want=%d", tc.options, got, tc.want)
		}
	}

	invalid := []any{"abc", "", 2.5, 0, -1, "0", true, []int{1}}
	for _, v := range invalid {
		_, err := ResolveCopies(map[string]any{"copies": v})
		if !labelerr.Is(err, labelerr.CodeConfig) {
			t.Fatalf("ResolveCopies(%v): got=%v want CONFIG_ERROR", v, err)
		}
	}
}

func TestResolveCopiesUpperBound(t *testing.T) {
	for _, v := range []any{maxCopies + 1, "4611686018427387904", int64(1) << 62, 1e18} {
		_, err := ResolveCopies(map[string]any{"copies": v})
		if !labelerr.Is(err, labelerr.CodeConfig) {
			t.Fatalf("ResolveCopies(%v): got=%v want CONFIG_ERROR", v, err)
		}
		if !strings.Contains(labelerr.UserMessage(err), "at most") {
			t.Fatalf("ResolveCopies(%v) message: got=%q", v, labelerr.UserMessage(err))
		}
	}
}

func TestDispatchRejectsHugeCopiesWithoutPrinting(t *testing.T) {
	d, p, _, _ := newTestDispatcher(t)
	img := image.NewGray(image.Rect(0, 0, 4, 4))

	err := d.Dispatch(context.Background(), Request{
		Image:   img,
		Options: map[string]any{"copies": "4611686018427387904"},
	}, baseSettings())
	if !labelerr.Is(err, labelerr.CodeConfig) {
		t.Fatalf("got=%v want CONFIG_ERROR", err)
	}
	if len(p.jobs) != 0 {
		t.Fatalf("printer should not be called: got=%d jobs", len(p.jobs))
	}
}

func TestDispatchExplicitMedia(t *testing.T) {
	d, p, r, b := newTestDispatcher(t)
	img := image.NewGray(image.Rect(0, 0, 4, 4))

	s := baseSettings()
	s.Rotation = 180
	s.AutoCut = false
	s.Compression = true
	err := d.Dispatch(context.Background(), Request{JobID: "job-1", Image: img}, s)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if len(p.jobs) != 1 {
		t.Fatalf("print calls: got=%d want=1", len(p.jobs))
	}
	job := p.jobs[0]
	if job.ID != "job-1" || job.MediaType != "62x29" || job.Model != "QL-820NWB" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.Target != "tcp://192.168.1.50" || job.Backend != output.BackendNetwork {
		t.Fatalf("transport: got=(%q, %q)", job.Target, job.Backend)
	}
	if job.Rotate != 270 || job.Cut || !job.Compress || !job.HQ || !job.Blocking {
		t.Fatalf("flags: %+v", job)
	}
	if len(job.Images) != 1 || job.Images[0] != image.Image(img) {
		t.Fatalf("images: got=%d", len(job.Images))
	}
	if r.calls != 0 || b.calls != 0 {
		t.Fatalf("collaborators should not be used: raster=%d boxes=%d", r.calls, b.calls)
	}
}

func TestDispatchRepeatsImageForCopies(t *testing.T) {
	d, p, _, _ := newTestDispatcher(t)
	img := image.NewGray(image.Rect(0, 0, 4, 4))

	err := d.Dispatch(context.Background(), Request{Image: img, Options: map[string]any{"copies": "3"}}, baseSettings())
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(p.jobs) != 1 || len(p.jobs[0].Images) != 3 {
		t.Fatalf("expected one job with three images, got %d jobs", len(p.jobs))
	}
	if p.jobs[0].ID == "" {
		t.Fatalf("job id should be generated")
	}
}

func TestDispatchRasterizesPDF(t *testing.T) {
	d, p, r, _ := newTestDispatcher(t)

	err := d.Dispatch(context.Background(), Request{PDF: []byte("%PDF-1.4")}, baseSettings())
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if r.calls != 1 {
		t.Fatalf("rasterizer calls: got=%d want=1", r.calls)
	}
	if p.jobs[0].Images[0] != r.img {
		t.Fatalf("rasterized image should be printed")
	}
}

func TestDispatchInputAndRenderErrors(t *testing.T) {
	d, p, r, _ := newTestDispatcher(t)

	err := d.Dispatch(context.Background(), Request{}, baseSettings())
	if !labelerr.Is(err, labelerr.CodeInput) {
		t.Fatalf("no input: got=%v want INPUT_ERROR", err)
	}

	r.err = errors.New("syntax error in PDF")
	err = d.Dispatch(context.Background(), Request{PDF: []byte("junk")}, baseSettings())
	if !labelerr.Is(err, labelerr.CodeRender) {
		t.Fatalf("render failure: got=%v want RENDER_ERROR", err)
	}
	if len(p.jobs) != 0 {
		t.Fatalf("printer must not be called")
	}
}

func TestDispatchWithoutTransport(t *testing.T) {
	d, p, _, _ := newTestDispatcher(t)
	s := baseSettings()
	s.IPAddress = ""

	err := d.Dispatch(context.Background(), Request{Image: image.NewGray(image.Rect(0, 0, 1, 1))}, s)
	if !labelerr.Is(err, labelerr.CodeConfig) {
		t.Fatalf("got=%v want CONFIG_ERROR", err)
	}
	if len(p.jobs) != 0 {
		t.Fatalf("printer must not be called")
	}

	s.USBDevice = "04f9:2042/000A1Z401370"
	if err := d.Dispatch(context.Background(), Request{Image: image.NewGray(image.Rect(0, 0, 1, 1))}, s); err != nil {
		t.Fatalf("usb dispatch failed: %v", err)
	}
	if p.jobs[0].Target != "usb://04f9:2042/000A1Z401370" || p.jobs[0].Backend != output.BackendPyUSB {
		t.Fatalf("usb transport: got=(%q, %q)", p.jobs[0].Target, p.jobs[0].Backend)
	}
}

func TestDispatchInvalidCopiesFailsBeforeRendering(t *testing.T) {
	d, p, r, _ := newTestDispatcher(t)

	err := d.Dispatch(context.Background(), Request{PDF: []byte("%PDF"), Options: map[string]any{"copies": "abc"}}, baseSettings())
	if !labelerr.Is(err, labelerr.CodeConfig) {
		t.Fatalf("got=%v want CONFIG_ERROR", err)
	}
	if r.calls != 0 || len(p.jobs) != 0 {
		t.Fatalf("nothing should run after invalid copies")
	}
}

func TestAutomaticMediaRequiresPDF(t *testing.T) {
	d, p, _, b := newTestDispatcher(t)
	s := baseSettings()
	s.MediaType = catalog.Automatic

	err := d.Dispatch(context.Background(), Request{Image: image.NewGray(image.Rect(0, 0, 1, 1))}, s)
	if !labelerr.Is(err, labelerr.CodeConfig) {
		t.Fatalf("got=%v want CONFIG_ERROR", err)
	}
	if labelerr.UserMessage(err) != "PDF required for automatic label type selection" {
		t.Fatalf("message: got=%q", labelerr.UserMessage(err))
	}
	if b.calls != 0 || len(p.jobs) != 0 {
		t.Fatalf("no device interaction expected")
	}
}

func TestAutomaticMediaSelection(t *testing.T) {
	d, p, _, b := newTestDispatcher(t)
	s := baseSettings()
	s.MediaType = catalog.Automatic

	// 29mm tall page, rounded the way label templates usually are
	b.box = pdfbox.Box{Width: mm(62), Height: 82.2}
	if err := d.Dispatch(context.Background(), Request{PDF: []byte("%PDF")}, s); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if got := p.jobs[0].MediaType; got != "62x29" {
		t.Fatalf("media: got=%q want=%q", got, "62x29")
	}

	// two profiles are 90mm tall; declaration order decides
	b.box = pdfbox.Box{Width: mm(29), Height: mm(90)}
	if err := d.Dispatch(context.Background(), Request{PDF: []byte("%PDF")}, s); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if got := p.jobs[1].MediaType; got != "29x90" {
		t.Fatalf("media: got=%q want=%q", got, "29x90")
	}

	b.box = pdfbox.Box{Width: mm(62), Height: mm(45)}
	err := d.Dispatch(context.Background(), Request{PDF: []byte("%PDF")}, s)
	if !labelerr.Is(err, labelerr.CodeConfig) || labelerr.UserMessage(err) != "Unable to find matching label type" {
		t.Fatalf("no match: got=%v", err)
	}
	if len(p.jobs) != 2 {
		t.Fatalf("printer calls: got=%d want=2", len(p.jobs))
	}
}

func TestAutomaticMediaCropBoxFailure(t *testing.T) {
	d, _, _, b := newTestDispatcher(t)
	s := baseSettings()
	s.MediaType = catalog.Automatic

	b.err = errors.New("broken xref")
	_, err := d.ResolveMedia([]byte("%PDF"), s.Model, s.MediaType)
	if !labelerr.Is(err, labelerr.CodeRender) {
		t.Fatalf("got=%v want RENDER_ERROR", err)
	}
}

func TestResolveMediaUnknownModel(t *testing.T) {
	d, _, _, b := newTestDispatcher(t)
	b.box = pdfbox.Box{Height: mm(29)}

	for _, media := range []string{catalog.Automatic, "62x29"} {
		_, err := d.ResolveMedia([]byte("%PDF"), "QL-9999", media)
		if !labelerr.Is(err, labelerr.CodeConfig) {
			t.Fatalf("media %q: got=%v want CONFIG_ERROR", media, err)
		}
	}
}

func TestDispatchPropagatesPrinterError(t *testing.T) {
	d, p, _, _ := newTestDispatcher(t)
	sentinel := labelerr.Device("printer offline")
	p.err = sentinel

	err := d.Dispatch(context.Background(), Request{Image: image.NewGray(image.Rect(0, 0, 1, 1))}, baseSettings())
	if err != sentinel {
		t.Fatalf("printer error should propagate unchanged: got=%v", err)
	}
	if len(p.jobs) != 1 {
		t.Fatalf("no retry expected: calls=%d", len(p.jobs))
	}
}

func TestRequestFromBytes(t *testing.T) {
	req, err := RequestFromBytes([]byte("%PDF-1.7\n..."))
	if err != nil || req.PDF == nil || req.Image != nil {
		t.Fatalf("pdf: req=%+v err=%v", req, err)
	}

	_, err = RequestFromBytes([]byte("GIF89a"))
	if !labelerr.Is(err, labelerr.CodeInput) {
		t.Fatalf("gif: got=%v want INPUT_ERROR", err)
	}
}
