package async

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/phototranslate/constants"
	"github.com/joseph-ayodele/phototranslate/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job asks for one image file to be scanned.
type Job struct {
	Path        string             `json:"path"`
	Model       constants.OCRModel `json:"model,omitempty"`
	Target      string             `json:"target,omitempty"`
	Force       bool               `json:"force,omitempty"` // rescan even if the image was seen before
	SubmittedAt time.Time          `json:"submitted_at"`
	TraceID     string             `json:"trace_id,omitempty"`
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// HandlerFunc processes one dequeued job.
type HandlerFunc func(ctx context.Context, job Job) error

// ScanFile returns a handler that reads the job's file and runs it through proc.
func ScanFile(proc *pipeline.Processor) HandlerFunc {
	return func(ctx context.Context, job Job) error {
		data, err := os.ReadFile(job.Path)
		if err != nil {
			return fmt.Errorf("read %s: %w", job.Path, err)
		}
		_, err = proc.ProcessImage(ctx, pipeline.ScanInput{
			Data:       data,
			Name:       filepath.Base(job.Path),
			SourcePath: job.Path,
			Model:      job.Model,
			Target:     job.Target,
			Force:      job.Force,
		})
		return err
	}
}
