package output

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/nantokaworks/brother-label/internal/labelerr"
	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"go.uber.org/zap"
)

// BrotherQLPrinter drives printers through the brother_ql command line tool.
type BrotherQLPrinter struct {
	path    string
	tempDir string
}

// NewBrotherQLPrinter は brother_ql コマンドを使うプリンターを作成する
func NewBrotherQLPrinter(path string) (*BrotherQLPrinter, error) {
	if path == "" {
		path = "brother_ql"
	}

	// 一時ファイル用ディレクトリ
	tempDir := filepath.Join(os.TempDir(), "brother-label-print")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	logger.Info("brother_ql printer initialized",
		zap.String("path", path),
		zap.String("temp_dir", tempDir))

	return &BrotherQLPrinter{path: path, tempDir: tempDir}, nil
}

// Args builds the brother_ql command line for job with the given image files.
func Args(job Job, files []string) []string {
	args := []string{
		"--backend", job.Backend,
		"--model", job.Model,
		"--printer", job.Target,
		"print",
		"--label", job.MediaType,
		"--rotate", fmt.Sprint(job.Rotate),
	}
	if !job.Cut {
		args = append(args, "--no-cut")
	}
	if job.Compress {
		args = append(args, "--compress")
	}
	if !job.HQ {
		args = append(args, "--lq")
	}
	return append(args, files...)
}

// Print runs brother_ql until the printer has accepted the job. Copies of the
// same image share one PNG file.
func (p *BrotherQLPrinter) Print(ctx context.Context, job Job) error {
	if len(job.Images) == 0 {
		return labelerr.Device("print job %s has no images", job.ID)
	}

	// 1. 画像を一時ファイルに保存
	dir, err := os.MkdirTemp(p.tempDir, "job-")
	if err != nil {
		return labelerr.Wrap(labelerr.CodeDevice, err, "failed to create job directory")
	}
	defer os.RemoveAll(dir) // 印刷後に一時ファイル削除

	var written []writtenImage
	files := make([]string, 0, len(job.Images))
	for _, img := range job.Images {
		if img == nil {
			return labelerr.Device("print job %s has an empty image", job.ID)
		}
		name, ok := lookupWritten(written, img)
		if !ok {
			name = filepath.Join(dir, fmt.Sprintf("label_%03d.png", len(written)))
			if err := writePNG(name, img); err != nil {
				return err
			}
			written = append(written, writtenImage{img: img, path: name})
		}
		files = append(files, name)
	}

	args := Args(job, files)
	logger.Info("Sending label to printer",
		zap.String("job_id", job.ID),
		zap.String("model", job.Model),
		zap.String("label", job.MediaType),
		zap.String("target", job.Target),
		zap.String("backend", job.Backend),
		zap.Int("rotate", job.Rotate),
		zap.Int("images", len(files)),
		zap.Int("files", len(written)))

	// 2. brother_ql で印刷
	output, err := exec.CommandContext(ctx, p.path, args...).CombinedOutput()
	if err != nil {
		logger.Error("brother_ql command failed",
			zap.String("job_id", job.ID),
			zap.String("target", job.Target),
			zap.Error(err),
			zap.String("output", string(output)))
		return labelerr.Wrap(labelerr.CodeDevice, err, "brother_ql failed (output: %s)", strings.TrimSpace(string(output)))
	}

	logger.Info("Print job sent successfully",
		zap.String("job_id", job.ID),
		zap.String("target", job.Target))
	return nil
}

type writtenImage struct {
	img  image.Image
	path string
}

func lookupWritten(written []writtenImage, img image.Image) (string, bool) {
	if !reflect.TypeOf(img).Comparable() {
		return "", false
	}
	for _, w := range written {
		if w.img == img {
			return w.path, true
		}
	}
	return "", false
}

func writePNG(name string, img image.Image) error {
	f, err := os.Create(name)
	if err != nil {
		return labelerr.Wrap(labelerr.CodeDevice, err, "failed to create temp file")
	}
	err = png.Encode(f, img)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return labelerr.Wrap(labelerr.CodeDevice, err, "failed to encode image")
	}
	return nil
}
