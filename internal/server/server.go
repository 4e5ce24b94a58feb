package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/claude/crimpy/internal/importer"
	"github.com/claude/crimpy/internal/ingest/logbook"
	"github.com/claude/crimpy/internal/intensity"
	"github.com/claude/crimpy/internal/metrics"
	"github.com/claude/crimpy/internal/progression"
	"github.com/claude/crimpy/internal/storage"
)

// Store is the part of *storage.DB the handlers use.
type Store interface {
	QuerySessions(ctx context.Context, start, end time.Time) ([]storage.SessionSummary, error)
	DeleteSession(ctx context.Context, sourceFile string) (bool, error)
	GetIntensitySummary(ctx context.Context, start, end time.Time, bucket string) ([]storage.IntensityPeriod, error)
	GetFingerboardProgression(ctx context.Context, start, end time.Time) ([]progression.Point, error)
	GetCampusProgression(ctx context.Context, start, end time.Time) (moves, spread []progression.Point, err error)
	GetPullupProgression(ctx context.Context, start, end time.Time) ([]progression.WeightPoint, error)
	GetDataStats(ctx context.Context) (*storage.DataStats, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, log storage.ImportLog) error
	QueryImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db      Store
	ingest  *logbook.Provider
	model   *intensity.Model
	log     *slog.Logger
	apiKey  string
	router  chi.Router
	metrics *metrics.Manager
	promReg *prometheus.Registry
	cache   *responseCache

	importer *importer.Importer
	dataDir  string

	importMu     sync.Mutex
	activeImport *importJob
}

// New creates a new Server with all routes configured.
func New(db Store, provider *logbook.Provider, model *intensity.Model, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:     db,
		ingest: provider,
		model:  model,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetMetrics enables request metrics and serves reg on /metrics.
func (s *Server) SetMetrics(m *metrics.Manager, reg *prometheus.Registry) {
	s.metrics = m
	s.promReg = reg
}

// SetCache enables the response cache for the query endpoints.
func (s *Server) SetCache(sizeMB int, ttl time.Duration) {
	if sizeMB <= 0 {
		s.cache = nil
		return
	}
	s.cache = newResponseCache(sizeMB, ttl)
}

// SetImporter enables server-side directory imports of dataDir.
func (s *Server) SetImporter(imp *importer.Importer, dataDir string) {
	s.importer = imp
	s.dataDir = dataDir
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(RequestMetrics(func() *metrics.Manager { return s.metrics }))
	s.router.Use(CORS)

	// Write endpoints (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/api/v1/ingest", s.handleIngest)
		r.Delete("/api/v1/sessions/{source}", s.handleDeleteSession)
		r.Post("/api/v1/import/run", s.handleStartImport)
		r.Post("/api/v1/import/cancel", s.handleCancelImport)
	})

	// Read endpoints (no auth, tsnet handles access)
	s.router.Post("/api/v1/intensity/calculate", s.handleCalculate)
	s.router.Get("/api/v1/intensity/params", s.handleParams)
	s.router.Get("/api/v1/intensity/timeline", s.handleTimeline)
	s.router.Get("/api/v1/intensity/summary", s.handleSummary)
	s.router.Get("/api/v1/sessions", s.handleSessions)
	s.router.Get("/api/v1/progression/{kind}", s.handleProgression)
	s.router.Get("/api/v1/stats", s.handleStats)
	s.router.Get("/api/v1/imports", s.handleImportLogs)
	s.router.Get("/api/v1/import/status", s.handleImportStatus)
	s.router.Get("/api/v1/import/events", s.handleImportEvents)

	s.router.Get("/metrics", s.handleMetrics)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.promReg == nil {
		http.NotFound(w, r)
		return
	}
	promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
