package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/phototranslate/internal/repository"
)

// maxCellRunes stays under the 32767 character limit of an XLSX cell.
const maxCellRunes = 32000

// Service produces XLSX bytes of scan history.
type Service struct {
	scans  repository.ScanRepository
	logger *slog.Logger
}

func NewService(scans repository.ScanRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{scans: scans, logger: logger}
}

// ExportScansXLSX returns an XLSX workbook (as bytes) of the scans matching filter, newest first.
func (s *Service) ExportScansXLSX(ctx context.Context, filter repository.ListFilter) ([]byte, error) {
	start := time.Now()

	if filter.Limit <= 0 {
		filter.Limit = 1000
	}
	scans, err := s.scans.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	const sheet = "Scans"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{
		"Scanned At",
		"File",
		"Status",
		"OCR Model",
		"Dominant Language",
		"Possible Languages",
		"Recognized Text",
		"Target Language",
		"Translation",
		"Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, style)
	}

	for i, sc := range scans {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, sc.StartedAt.UTC().Format("2006-01-02 15:04:05"))
		write(2, sc.FileName)
		write(3, string(sc.Status))
		write(4, sc.Model)
		write(5, sc.DominantLanguage)
		write(6, strings.Join(sc.PossibleLanguages, ", "))
		write(7, truncate(sc.OCRText, maxCellRunes))
		write(8, deref(sc.TargetLanguage))
		write(9, truncate(deref(sc.Translation), maxCellRunes))
		write(10, deref(sc.ErrorMessage))
	}

	_ = f.SetColWidth(sheet, "A", "A", 20) // date
	_ = f.SetColWidth(sheet, "B", "B", 28) // file
	_ = f.SetColWidth(sheet, "C", "D", 14) // status, model
	_ = f.SetColWidth(sheet, "E", "F", 24) // languages
	_ = f.SetColWidth(sheet, "G", "G", 60) // text
	_ = f.SetColWidth(sheet, "H", "H", 12) // target
	_ = f.SetColWidth(sheet, "I", "I", 60) // translation
	_ = f.SetColWidth(sheet, "J", "J", 40) // error
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(scans),
		"status", filter.Status,
		"language", filter.Language,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
