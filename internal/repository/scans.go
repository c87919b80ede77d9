package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/phototranslate/constants"
	"github.com/joseph-ayodele/phototranslate/internal/common"
	"github.com/joseph-ayodele/phototranslate/internal/entity"
)

// StartParams describes a scan about to run.
type StartParams struct {
	ContentHash    string
	FileName       string
	SourcePath     string
	PreferredModel constants.OCRModel
	TargetLanguage string
}

// OCRResult is what the cascade produced for a scan.
type OCRResult struct {
	Text              string
	Model             string
	DominantLanguage  string
	DominantTag       string
	PossibleLanguages []string
	Attempts          json.RawMessage
	Elapsed           time.Duration
}

// TranslationResult is a stored translation of a scan's text.
type TranslationResult struct {
	Source   string
	Target   string
	Text     string
	Provider string
}

// ListFilter narrows List. Zero values mean no constraint.
type ListFilter struct {
	Status   constants.ScanStatus
	Language string // dominant language display name
	Since    time.Time
	Limit    int
	Offset   int
}

type ScanRepository interface {
	Start(ctx context.Context, p StartParams) (*entity.Scan, error)
	FinishOCR(ctx context.Context, id uuid.UUID, res OCRResult) error
	FinishTranslation(ctx context.Context, id uuid.UUID, res TranslationResult) error
	FinishFailure(ctx context.Context, id uuid.UUID, message string) error
	SetArchivePath(ctx context.Context, id uuid.UUID, path string) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Scan, error)
	GetByHash(ctx context.Context, hash string, model constants.OCRModel) (*entity.Scan, error)
	List(ctx context.Context, f ListFilter) ([]*entity.Scan, error)
}

type scanRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewScanRepository(db *DB, log *slog.Logger) ScanRepository {
	if log == nil {
		log = slog.Default()
	}
	return &scanRepo{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

const scanColumns = `id, content_hash, file_name, source_path, archive_path, preferred_model, model, status,
	ocr_text, dominant_language, dominant_tag, possible_languages, attempts, target_language, source_language,
	translation, translation_provider, error_message, started_at, finished_at, elapsed_ms`

func (r *scanRepo) q(query string) string { return rebind(r.db.Dialect, query) }

func (r *scanRepo) Start(ctx context.Context, p StartParams) (*entity.Scan, error) {
	if p.PreferredModel == "" {
		p.PreferredModel = constants.DefaultOCRModel
	}
	scan := &entity.Scan{
		ID:                uuid.New(),
		ContentHash:       p.ContentHash,
		FileName:          p.FileName,
		SourcePath:        p.SourcePath,
		PreferredModel:    p.PreferredModel,
		Status:            constants.ScanStatusRunning,
		DominantLanguage:  constants.UnknownLanguage,
		PossibleLanguages: []string{},
		StartedAt:         r.now(),
	}
	if p.TargetLanguage != "" {
		target := p.TargetLanguage
		scan.TargetLanguage = &target
	}

	_, err := r.db.SQL.ExecContext(ctx, r.q(`INSERT INTO scans
		(id, content_hash, file_name, source_path, preferred_model, status, dominant_language, target_language, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		scan.ID.String(), scan.ContentHash, scan.FileName, scan.SourcePath, string(scan.PreferredModel),
		string(scan.Status), scan.DominantLanguage, nullString(p.TargetLanguage), scan.StartedAt)
	if err != nil {
		r.log.Error("scan start failed", "hash", p.ContentHash, "err", err)
		return nil, fmt.Errorf("%w: insert scan: %v", common.ErrDatabase, err)
	}
	r.log.Info("scan started", "scan_id", scan.ID, "file", p.FileName, "preferred_model", p.PreferredModel)
	return scan, nil
}

func (r *scanRepo) FinishOCR(ctx context.Context, id uuid.UUID, res OCRResult) error {
	status := constants.ScanStatusOCROK
	if strings.TrimSpace(res.Text) == "" {
		status = constants.ScanStatusOCREmpty
	}
	possible := res.PossibleLanguages
	if possible == nil {
		possible = []string{}
	}
	possibleJSON, err := json.Marshal(possible)
	if err != nil {
		return err
	}
	attempts := res.Attempts
	if len(attempts) == 0 {
		attempts = json.RawMessage("[]")
	}
	dominant := res.DominantLanguage
	if dominant == "" {
		dominant = constants.UnknownLanguage
	}

	err = r.update(ctx, id, `UPDATE scans SET ocr_text = ?, model = ?, status = ?, dominant_language = ?, dominant_tag = ?,
		possible_languages = ?, attempts = ?, finished_at = ?, elapsed_ms = ? WHERE id = ?`,
		res.Text, res.Model, string(status), dominant, res.DominantTag,
		string(possibleJSON), string(attempts), r.now(), res.Elapsed.Milliseconds(), id.String())
	if err != nil {
		r.log.Error("scan finish(OCR) failed", "scan_id", id, "err", err)
		return err
	}
	r.log.Info("scan finished", "scan_id", id, "status", status, "model", res.Model, "language", dominant)
	return nil
}

func (r *scanRepo) FinishTranslation(ctx context.Context, id uuid.UUID, res TranslationResult) error {
	err := r.update(ctx, id, `UPDATE scans SET status = ?, source_language = ?, target_language = ?, translation = ?,
		translation_provider = ?, error_message = NULL, finished_at = ? WHERE id = ?`,
		string(constants.ScanStatusTranslated), nullString(res.Source), res.Target, res.Text,
		res.Provider, r.now(), id.String())
	if err != nil {
		r.log.Error("scan finish(TRANSLATED) failed", "scan_id", id, "err", err)
		return err
	}
	r.log.Info("scan finished (TRANSLATED)", "scan_id", id, "target", res.Target, "provider", res.Provider)
	return nil
}

func (r *scanRepo) FinishFailure(ctx context.Context, id uuid.UUID, message string) error {
	err := r.update(ctx, id, `UPDATE scans SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(constants.ScanStatusFailed), message, r.now(), id.String())
	if err != nil {
		r.log.Error("scan finish(FAILED) failed", "scan_id", id, "err", err)
		return err
	}
	r.log.Warn("scan finished (FAILED)", "scan_id", id, "error", message)
	return nil
}

func (r *scanRepo) SetArchivePath(ctx context.Context, id uuid.UUID, path string) error {
	return r.update(ctx, id, `UPDATE scans SET archive_path = ? WHERE id = ?`, path, id.String())
}

func (r *scanRepo) update(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	res, err := r.db.SQL.ExecContext(ctx, r.q(query), args...)
	if err != nil {
		return fmt.Errorf("%w: update scan: %v", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("scan %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *scanRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Scan, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.q(`SELECT `+scanColumns+` FROM scans WHERE id = ?`), id.String())
	scan, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan %s: %w", id, common.ErrNotFound)
	}
	return scan, err
}

// GetByHash returns the newest completed scan of the same image with the same preferred model.
func (r *scanRepo) GetByHash(ctx context.Context, hash string, model constants.OCRModel) (*entity.Scan, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.q(`SELECT `+scanColumns+` FROM scans
		WHERE content_hash = ? AND preferred_model = ? AND status IN (?, ?, ?)
		ORDER BY started_at DESC LIMIT 1`),
		hash, string(model),
		string(constants.ScanStatusOCROK), string(constants.ScanStatusOCREmpty), string(constants.ScanStatusTranslated))
	scan, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan with hash %s: %w", hash, common.ErrNotFound)
	}
	return scan, err
}

func (r *scanRepo) List(ctx context.Context, f ListFilter) ([]*entity.Scan, error) {
	var where []string
	var args []any
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Language != "" {
		where = append(where, "dominant_language = ?")
		args = append(args, f.Language)
	}
	if !f.Since.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, f.Since.UTC())
	}

	query := `SELECT ` + scanColumns + ` FROM scans`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, id"
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, max(f.Offset, 0))

	rows, err := r.db.SQL.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list scans: %v", common.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Scan
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list scans: %v", common.ErrDatabase, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*entity.Scan, error) {
	var (
		s                                   entity.Scan
		id, preferred, status               string
		possible, attempts                  string
		archive, target, source             sql.NullString
		translation, provider, errorMessage sql.NullString
		finished                            sql.NullTime
	)
	err := row.Scan(&id, &s.ContentHash, &s.FileName, &s.SourcePath, &archive, &preferred, &s.Model, &status,
		&s.OCRText, &s.DominantLanguage, &s.DominantTag, &possible, &attempts, &target, &source,
		&translation, &provider, &errorMessage, &s.StartedAt, &finished, &s.ElapsedMS)
	if err != nil {
		return nil, err
	}
	if s.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse scan id: %w", err)
	}
	s.PreferredModel = constants.OCRModel(preferred)
	s.Status = constants.ScanStatus(status)
	if err := json.Unmarshal([]byte(possible), &s.PossibleLanguages); err != nil || s.PossibleLanguages == nil {
		s.PossibleLanguages = []string{}
	}
	if attempts != "" {
		s.Attempts = json.RawMessage(attempts)
	}
	s.ArchivePath = ptrString(archive)
	s.TargetLanguage = ptrString(target)
	s.SourceLanguage = ptrString(source)
	s.Translation = ptrString(translation)
	s.TranslationProvider = ptrString(provider)
	s.ErrorMessage = ptrString(errorMessage)
	if finished.Valid {
		t := finished.Time
		s.FinishedAt = &t
	}
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func ptrString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
