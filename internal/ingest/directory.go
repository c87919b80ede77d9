package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/phototranslate/constants"
)

type FileResult struct {
	Path   string               `json:"path"`
	ScanID uuid.UUID            `json:"scan_id,omitempty"`
	Hash   string               `json:"hash,omitempty"`
	Status constants.ScanStatus `json:"status,omitempty"`
	Reused bool                 `json:"reused,omitempty"`
	Queued bool                 `json:"queued,omitempty"`
	Err    string               `json:"error,omitempty"`
}

type DirStats struct {
	Scanned   uint32 `json:"scanned"`
	Matched   uint32 `json:"matched"`
	Succeeded uint32 `json:"succeeded"`
	Reused    uint32 `json:"reused"`
	Failed    uint32 `json:"failed"`
}

// Submitter hands one image path to processing.
type Submitter interface {
	Submit(ctx context.Context, path string) (FileResult, error)
}

// ScanDirectory walks root, skips hidden entries if requested, and submits every image
// file. Per-file failures are collected in the results; only a walk failure or a done
// context is returned as an error.
func ScanDirectory(ctx context.Context, root string, skipHidden bool, sub Submitter) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !constants.IsImageExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := sub.Submit(ctx, path)
		if err != nil {
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Reused {
			stats.Reused++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

// IsHidden reports whether the last path element starts with a dot.
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
