package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/joseph-ayodele/phototranslate/constants"
	"github.com/joseph-ayodele/phototranslate/internal/common"
	"github.com/joseph-ayodele/phototranslate/internal/ingest"
)

type ingestDirectoryRequest struct {
	RootPath   string `json:"root_path"`
	SkipHidden *bool  `json:"skip_hidden,omitempty"` // defaults to true
	Model      string `json:"model,omitempty"`
	Target     string `json:"target,omitempty"`
	Force      bool   `json:"force,omitempty"`
	Async      bool   `json:"async,omitempty"` // hand files to the queue instead of scanning inline
}

type ingestDirectoryResponse struct {
	ingest.DirStats
	Results []ingest.FileResult `json:"results"`
}

// handleIngestDirectory scans every image under a server-side folder.
func (s *Server) handleIngestDirectory(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[ingestDirectoryRequest](r)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	root := strings.TrimSpace(req.RootPath)
	if root == "" {
		writeErr(w, r, http.StatusBadRequest, "invalid_request", "root_path is required")
		return
	}
	skipHidden := true
	if req.SkipHidden != nil {
		skipHidden = *req.SkipHidden
	}
	var model constants.OCRModel
	if m := strings.TrimSpace(req.Model); m != "" {
		var ok bool
		if model, ok = constants.ParseOCRModel(m); !ok {
			writeAppErr(w, r, fmt.Errorf("%w: unknown model %q", common.ErrInvalidInput, m))
			return
		}
	}

	var sub ingest.Submitter = ingest.ProcessSubmitter{Proc: s.deps.Processor, Model: model, Target: req.Target, Force: req.Force}
	if req.Async {
		if s.deps.Queue == nil {
			writeErr(w, r, http.StatusServiceUnavailable, "unavailable", "background queue is not configured")
			return
		}
		sub = ingest.QueueSubmitter{Queue: s.deps.Queue, Model: model, Target: req.Target, Force: req.Force}
	}

	s.logger.Info("starting directory ingest", "root", root, "skip_hidden", skipHidden, "async", req.Async)
	results, stats, err := ingest.ScanDirectory(r.Context(), root, skipHidden, sub)
	if err != nil {
		writeAppErr(w, r, fmt.Errorf("%w: ingest directory: %v", common.ErrInvalidInput, err))
		return
	}
	s.logger.Info("directory ingest completed",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"reused", stats.Reused,
		"failed", stats.Failed,
	)
	if results == nil {
		results = []ingest.FileResult{}
	}
	writeJSON(w, http.StatusOK, ingestDirectoryResponse{DirStats: stats, Results: results})
}
