package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExport streams scan history as an XLSX workbook, honouring the list filters.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exporter == nil {
		writeErr(w, r, http.StatusServiceUnavailable, "unavailable", "export is not configured")
		return
	}
	filter, err := parseListFilter(r)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	xlsx, err := s.deps.Exporter.ExportScansXLSX(r.Context(), filter)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "err", err)
		writeAppErr(w, r, err)
		return
	}
	name := fmt.Sprintf("scans-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(xlsx)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}
