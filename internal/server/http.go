package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/semaphore"

	"github.com/joseph-ayodele/phototranslate/internal/async"
	"github.com/joseph-ayodele/phototranslate/internal/common"
	"github.com/joseph-ayodele/phototranslate/internal/export"
	"github.com/joseph-ayodele/phototranslate/internal/pipeline"
	"github.com/joseph-ayodele/phototranslate/internal/repository"
	"github.com/joseph-ayodele/phototranslate/internal/translate"
)

// Presigner issues temporary download links for archived images.
type Presigner interface {
	PresignedURL(ctx context.Context, object string, ttl time.Duration) (string, error)
}

// Deps are the components the API serves. Only Processor is required.
type Deps struct {
	Processor  *pipeline.Processor
	Scans      repository.ScanRepository
	Exporter   *export.Service
	Translator translate.Translator
	Queue      async.Queue
	Archive    Presigner
	DB         *repository.DB
	// OCRVersion reports the installed OCR engine, used by /health.
	OCRVersion func(ctx context.Context) (string, error)
}

type Server struct {
	deps    Deps
	cfg     common.ServerConfig
	logger  *slog.Logger
	limiter *clientLimiter
	scans   *semaphore.Weighted
}

func NewServer(deps Deps, cfg common.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	s := &Server{
		deps:    deps,
		cfg:     cfg,
		logger:  logger,
		limiter: newClientLimiter(cfg.RateLimitEvery, cfg.RateLimitBurst, cfg.RateLimitIdle),
	}
	if cfg.MaxConcurrentScan > 0 {
		s.scans = semaphore.NewWeighted(cfg.MaxConcurrentScan)
	}
	return s
}

// SetupRoutes registers the API endpoints.
func (s *Server) SetupRoutes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/scan", withConcurrencyLimit(s.scans, s.handleScan)).Methods("POST")
	api.HandleFunc("/translate", s.handleTranslate).Methods("POST")
	api.HandleFunc("/scans", s.handleListScans).Methods("GET")
	api.HandleFunc("/scans/{id}", s.handleGetScan).Methods("GET")
	api.HandleFunc("/export.xlsx", s.handleExport).Methods("GET")
	api.HandleFunc("/models", s.handleModels).Methods("GET")
	api.HandleFunc("/languages", s.handleLanguages).Methods("GET")
	api.HandleFunc("/ingest/directory", s.handleIngestDirectory).Methods("POST")

	// subrouters resolve their own misses
	for _, rt := range []*mux.Router{router, api} {
		rt.NotFoundHandler = http.HandlerFunc(notFound)
		rt.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	}
	return router
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeErr(w, r, http.StatusNotFound, "not_found", "no such route")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeErr(w, r, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed")
}

// Handler is the routed API wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.SetupRoutes()
	h = withRateLimit(s.limiter, s.cfg.TrustProxyHeaders, h)
	h = withAuth([]byte(s.cfg.JWTSecret), s.logger, h)
	h = withLogging(s.logger, s.cfg.TrustProxyHeaders, h)
	h = withRecovery(s.logger, h)
	return withRequestID(h)
}

// HTTPServer builds the listener-facing server with the configured timeouts.
// Idle rate-limit buckets are swept until ctx is done.
func (s *Server) HTTPServer(ctx context.Context) *http.Server {
	go s.limiter.run(ctx, s.logger)
	return &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
}
