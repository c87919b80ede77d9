package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/phototranslate/constants"
	"github.com/joseph-ayodele/phototranslate/internal/async"
	"github.com/joseph-ayodele/phototranslate/internal/pipeline"
)

// ProcessSubmitter scans each file synchronously.
type ProcessSubmitter struct {
	Proc   *pipeline.Processor
	Model  constants.OCRModel
	Target string
	Force  bool
}

func (s ProcessSubmitter) Submit(ctx context.Context, path string) (FileResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileResult{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return FileResult{}, fmt.Errorf("read: %w", err)
	}
	out, err := s.Proc.ProcessImage(ctx, pipeline.ScanInput{
		Data:        data,
		Name:        filepath.Base(abs),
		SourcePath:  abs,
		ContentType: contentTypeFor(abs),
		Model:       s.Model,
		Target:      s.Target,
		Force:       s.Force,
	})
	return FileResult{Path: abs, ScanID: out.ScanID, Hash: out.Hash, Status: out.Status, Reused: out.Reused}, err
}

// QueueSubmitter hands each file to a queue for background processing.
type QueueSubmitter struct {
	Queue  async.Queue
	Model  constants.OCRModel
	Target string
	Force  bool
}

func (s QueueSubmitter) Submit(ctx context.Context, path string) (FileResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileResult{}, err
	}
	if err := s.Queue.Enqueue(ctx, async.Job{Path: abs, Model: s.Model, Target: s.Target, Force: s.Force}); err != nil {
		return FileResult{Path: abs}, err
	}
	return FileResult{Path: abs, Status: constants.ScanStatusQueued, Queued: true}, nil
}

func contentTypeFor(path string) string {
	switch ext := constants.NormalizeExt(filepath.Ext(path)); ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "tif", "tiff":
		return "image/tiff"
	case "":
		return "application/octet-stream"
	default:
		return "image/" + ext
	}
}
