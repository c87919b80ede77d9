package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/phototranslate/constants"
	"github.com/joseph-ayodele/phototranslate/internal/cache"
	"github.com/joseph-ayodele/phototranslate/internal/cascade"
	"github.com/joseph-ayodele/phototranslate/internal/common"
	"github.com/joseph-ayodele/phototranslate/internal/export"
	"github.com/joseph-ayodele/phototranslate/internal/langid"
	"github.com/joseph-ayodele/phototranslate/internal/ocr"
	"github.com/joseph-ayodele/phototranslate/internal/pipeline"
	"github.com/joseph-ayodele/phototranslate/internal/repository"
	"github.com/joseph-ayodele/phototranslate/internal/server"
	"github.com/joseph-ayodele/phototranslate/internal/storage"
	"github.com/joseph-ayodele/phototranslate/internal/translate"
)

// App is the set of wired components shared by the binaries.
type App struct {
	Config     *common.Config
	DB         *repository.DB
	Scans      repository.ScanRepository
	Processor  *pipeline.Processor
	Translator translate.Translator
	Cache      cache.Cache
	Archive    *storage.Archive
	Exporter   *export.Service
	Runner     ocr.Runner

	logger  *slog.Logger
	closers []func()
}

// Options adjust how Build wires optional components.
type Options struct {
	// Backends replaces the configured OCR engines.
	Backends map[constants.OCRModel]ocr.Recognizer
	// Identifier replaces the lingua detector.
	Identifier langid.Identifier
	// SkipArchive ignores the MinIO settings.
	SkipArchive bool
}

// Build opens the store and wires OCR, language identification, caching, archiving
// and translation from cfg. Optional components that fail to start are logged and left
// out; the store and the OCR engines are required.
func Build(ctx context.Context, cfg *common.Config, opts Options, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger, Runner: ocr.ExecRunner{Logger: logger}}

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.onClose(func() { repository.Close(db, logger) })
	a.Scans = repository.NewScanRepository(db, logger)
	a.Exporter = export.NewService(a.Scans, logger)

	ocrCfg := OCRConfig(cfg.OCR)
	backends := opts.Backends
	if backends == nil {
		if backends, err = ocr.NewBackends(ocrCfg, a.Runner, logger); err != nil {
			a.Close()
			return nil, err
		}
	}
	identifier := opts.Identifier
	if identifier == nil {
		identifier = langid.NewLinguaIdentifier(langid.LinguaOptions{
			Languages:      cfg.Language.Languages,
			LowAccuracy:    cfg.Language.LowAccuracy,
			MinRelDistance: cfg.Language.MinRelDistance,
		})
	}
	ranker := langid.NewRanker(identifier, langid.NewNamer(cfg.Language.DisplayLocale), logger)
	ctrl := cascade.NewController(
		cascade.Preferences{PreferredModel: cfg.Preferences.PreferredModel},
		backends,
		ranker,
		ocr.NewPreparer(ocrCfg, a.Runner, logger),
		logger,
	)

	a.Cache = a.buildCache(ctx)
	a.onClose(func() { _ = a.Cache.Close() })

	if !opts.SkipArchive && cfg.Storage.Endpoint != "" {
		archive, err := storage.NewMinIOArchive(ctx, cfg.Storage, logger)
		if err != nil {
			logger.Warn("app.archive.disabled", "endpoint", cfg.Storage.Endpoint, "error", err)
		} else {
			a.Archive = archive
		}
	}

	a.Translator, err = translate.New(ctx, cfg.Translate, logger)
	switch {
	case errors.Is(err, translate.ErrNoProvider):
		logger.Info("app.translate.disabled")
	case err != nil:
		a.Close()
		return nil, err
	default:
		logger.Info("app.translate.ready", "provider", a.Translator.Name())
		if c, ok := a.Translator.(interface{ Close() error }); ok {
			a.onClose(func() { _ = c.Close() })
		}
	}

	deps := pipeline.Deps{
		Cascade:  ctrl,
		Repo:     a.Scans,
		Cache:    a.Cache,
		CacheTTL: cfg.Queue.CacheTTL,
		Prefs:    cfg.Preferences,
	}
	if a.Translator != nil {
		deps.Translator = a.Translator
	}
	if a.Archive != nil {
		deps.Archive = a.Archive
	}
	a.Processor = pipeline.NewProcessor(deps, logger)
	return a, nil
}

func (a *App) buildCache(ctx context.Context) cache.Cache {
	if url := a.Config.Queue.RedisURL; url != "" {
		rc, err := cache.NewRedisCache(ctx, url, a.logger)
		if err == nil {
			return rc
		}
		a.logger.Warn("app.cache.redis_unavailable", "error", err)
	}
	return cache.NewMemoryCache(0)
}

// OCRVersion reports the tesseract banner for health checks.
func (a *App) OCRVersion(ctx context.Context) (string, error) {
	return ocr.Version(ctx, a.Runner, a.Config.OCR.Tesseract)
}

// ServerDeps exposes the components the API layer needs.
func (a *App) ServerDeps() server.Deps {
	d := server.Deps{
		Processor:  a.Processor,
		Scans:      a.Scans,
		Exporter:   a.Exporter,
		Translator: a.Translator,
		DB:         a.DB,
		OCRVersion: a.OCRVersion,
	}
	if a.Archive != nil {
		d.Archive = a.Archive
	}
	return d
}

func (a *App) onClose(fn func()) { a.closers = append(a.closers, fn) }

// Close releases components in reverse order of construction.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// OCRConfig converts the file/env settings into engine settings.
func OCRConfig(c common.OCRConfig) ocr.Config {
	out := ocr.Config{
		Driver:           c.Driver,
		Tesseract:        c.Tesseract,
		TessdataDir:      c.TessdataDir,
		PSM:              c.PSM,
		OEM:              c.OEM,
		HeicConverter:    c.HeicConverter,
		ArtifactCacheDir: c.ArtifactCacheDir,
		Timeout:          c.Timeout,
	}
	for name, langs := range c.Languages {
		if m, ok := constants.ParseOCRModel(name); ok {
			if out.Languages == nil {
				out.Languages = map[constants.OCRModel]string{}
			}
			out.Languages[m] = strings.TrimSpace(langs)
		}
	}
	return out
}

// ShutdownTimeout bounds graceful shutdown of servers and queues.
const ShutdownTimeout = 15 * time.Second
