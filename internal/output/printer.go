package output

import (
	"context"
	"image"
)

// Backend identifiers understood by the printer tool.
const (
	BackendNetwork = "network"
	BackendPyUSB   = "pyusb"
)

// Job is one call of the print primitive. Copies are represented by repeating
// the image in Images.
type Job struct {
	ID        string
	MediaType string
	Images    []image.Image
	Cut       bool
	Model     string
	Compress  bool
	HQ        bool
	Rotate    int
	Target    string
	Backend   string
	Blocking  bool // dispatcher は常に true
}

// Printer はラベル印刷プリミティブの共通インターフェース
type Printer interface {
	// Print submits the job and returns once the device has accepted it.
	// Failures are returned as DEVICE_ERROR.
	Print(ctx context.Context, job Job) error
}
