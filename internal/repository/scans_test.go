package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/phototranslate/constants"
	"github.com/joseph-ayodele/phototranslate/internal/common"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(context.Background(), Config{Driver: DriverSQLite}, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { Close(db, logger) })
	return db
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM scans WHERE a = ? AND b IN (?, ?)"
	if got := rebind(DriverSQLite, q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
	want := "SELECT * FROM scans WHERE a = $1 AND b IN ($2, $3)"
	if got := rebind(DriverPostgres, q); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(context.Background(), db, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	var n int
	if err := db.SQL.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("schema_migrations rows = %d, want 1", n)
	}
}

func TestScanLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewScanRepository(openTestDB(t), nil)

	scan, err := repo.Start(ctx, StartParams{
		ContentHash:    "abc123",
		FileName:       "menu.jpg",
		SourcePath:     "/photos/menu.jpg",
		PreferredModel: constants.OCRModelLatin,
		TargetLanguage: "en-US",
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if scan.Status != constants.ScanStatusRunning {
		t.Errorf("status = %s, want RUNNING", scan.Status)
	}

	attempts := json.RawMessage(`[{"model":"latin","outcome":"text"}]`)
	if err := repo.FinishOCR(ctx, scan.ID, OCRResult{
		Text:              "Hola mundo",
		Model:             "latin",
		DominantLanguage:  "Spanish",
		DominantTag:       "es",
		PossibleLanguages: []string{"English", "Catalan"},
		Attempts:          attempts,
		Elapsed:           1500 * time.Millisecond,
	}); err != nil {
		t.Fatalf("FinishOCR: %v", err)
	}

	got, err := repo.GetByID(ctx, scan.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != constants.ScanStatusOCROK || got.OCRText != "Hola mundo" || got.Model != "latin" {
		t.Errorf("unexpected scan after OCR: %+v", got)
	}
	if diff := cmp.Diff([]string{"English", "Catalan"}, got.PossibleLanguages); diff != "" {
		t.Errorf("possible languages (-want +got):\n%s", diff)
	}
	if got.ElapsedMS != 1500 || got.FinishedAt == nil {
		t.Errorf("elapsed = %d, finished = %v", got.ElapsedMS, got.FinishedAt)
	}
	if got.TargetLanguage == nil || *got.TargetLanguage != "en-US" {
		t.Errorf("target = %v", got.TargetLanguage)
	}

	if err := repo.FinishTranslation(ctx, scan.ID, TranslationResult{Source: "es", Target: "en-US", Text: "Hello world", Provider: "fake"}); err != nil {
		t.Fatalf("FinishTranslation: %v", err)
	}
	if err := repo.SetArchivePath(ctx, scan.ID, "2024/01/abc123.jpg"); err != nil {
		t.Fatalf("SetArchivePath: %v", err)
	}
	got, _ = repo.GetByID(ctx, scan.ID)
	if got.Status != constants.ScanStatusTranslated || got.Translation == nil || *got.Translation != "Hello world" {
		t.Errorf("unexpected scan after translation: %+v", got)
	}
	if got.ArchivePath == nil || *got.ArchivePath != "2024/01/abc123.jpg" {
		t.Errorf("archive path = %v", got.ArchivePath)
	}

	byHash, err := repo.GetByHash(ctx, "abc123", constants.OCRModelLatin)
	if err != nil || byHash.ID != scan.ID {
		t.Fatalf("GetByHash = %v, %v", byHash, err)
	}
	if _, err := repo.GetByHash(ctx, "abc123", constants.OCRModelGeneral); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("GetByHash other model: got %v, want ErrNotFound", err)
	}
}

func TestEmptyTextStoresOCREmpty(t *testing.T) {
	ctx := context.Background()
	repo := NewScanRepository(openTestDB(t), nil)
	scan, err := repo.Start(ctx, StartParams{ContentHash: "h", FileName: "blank.png"})
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.FinishOCR(ctx, scan.ID, OCRResult{Text: "  \n"}); err != nil {
		t.Fatal(err)
	}
	got, _ := repo.GetByID(ctx, scan.ID)
	if got.Status != constants.ScanStatusOCREmpty {
		t.Errorf("status = %s, want OCR_EMPTY", got.Status)
	}
	if got.DominantLanguage != constants.UnknownLanguage || len(got.PossibleLanguages) != 0 {
		t.Errorf("language = %q %v", got.DominantLanguage, got.PossibleLanguages)
	}
	if got.PreferredModel != constants.DefaultOCRModel {
		t.Errorf("preferred model = %q", got.PreferredModel)
	}
}

func TestFailedScansAreNotReused(t *testing.T) {
	ctx := context.Background()
	repo := NewScanRepository(openTestDB(t), nil)
	scan, _ := repo.Start(ctx, StartParams{ContentHash: "dup", PreferredModel: constants.OCRModelGeneral})
	if err := repo.FinishFailure(ctx, scan.ID, "boom"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetByHash(ctx, "dup", constants.OCRModelGeneral); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("failed scan should not be returned, got %v", err)
	}
	got, _ := repo.GetByID(ctx, scan.ID)
	if got.ErrorMessage == nil || *got.ErrorMessage != "boom" {
		t.Errorf("error message = %v", got.ErrorMessage)
	}
}

func TestUpdateUnknownScan(t *testing.T) {
	repo := NewScanRepository(openTestDB(t), nil)
	err := repo.FinishFailure(context.Background(), uuid.New(), "x")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByID(context.Background(), uuid.New()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("GetByID unknown: got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewScanRepository(openTestDB(t), nil).(*scanRepo)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	mk := func(name, lang string) {
		s, err := repo.Start(ctx, StartParams{ContentHash: name, FileName: name})
		if err != nil {
			t.Fatal(err)
		}
		if err := repo.FinishOCR(ctx, s.ID, OCRResult{Text: "x", DominantLanguage: lang}); err != nil {
			t.Fatal(err)
		}
	}
	mk("a.jpg", "Spanish")
	mk("b.jpg", "French")
	mk("c.jpg", "Spanish")

	all, err := repo.List(ctx, ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, s := range all {
		names = append(names, s.FileName)
	}
	if diff := cmp.Diff([]string{"c.jpg", "b.jpg", "a.jpg"}, names); diff != "" {
		t.Errorf("newest first (-want +got):\n%s", diff)
	}

	spanish, _ := repo.List(ctx, ListFilter{Language: "Spanish", Limit: 1})
	if len(spanish) != 1 || spanish[0].FileName != "c.jpg" {
		t.Errorf("language+limit filter = %v", spanish)
	}

	since, _ := repo.List(ctx, ListFilter{Since: base.Add(3 * time.Minute)})
	if len(since) != 2 {
		t.Errorf("since filter returned %d rows, want 2", len(since))
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	if err := HealthCheck(context.Background(), db, time.Second, nil); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
	if err := HealthCheck(context.Background(), nil, time.Second, nil); err == nil {
		t.Error("HealthCheck(nil) should fail")
	}
}
