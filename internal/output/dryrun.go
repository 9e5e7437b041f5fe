package output

import (
	"context"
	"sync"

	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"go.uber.org/zap"
)

// DryRunPrinter logs jobs instead of printing them.
type DryRunPrinter struct {
	mu   sync.Mutex
	jobs []Job
}

func (p *DryRunPrinter) Print(_ context.Context, job Job) error {
	p.mu.Lock()
	p.jobs = append(p.jobs, job)
	p.mu.Unlock()

	logger.Info("Dry-run mode: skipping actual printing",
		zap.String("job_id", job.ID),
		zap.String("model", job.Model),
		zap.String("label", job.MediaType),
		zap.String("target", job.Target),
		zap.String("backend", job.Backend),
		zap.Int("rotate", job.Rotate),
		zap.Int("images", len(job.Images)),
		zap.Bool("blocking", job.Blocking))
	return nil
}

// Jobs returns the jobs seen so far.
func (p *DryRunPrinter) Jobs() []Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Job, len(p.jobs))
	copy(out, p.jobs)
	return out
}
