package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/dustwatch/service/config"
	"github.com/brojonat/dustwatch/service/db"
	"github.com/brojonat/dustwatch/service/inspector"
	"github.com/brojonat/dustwatch/service/metrics"
	natspkg "github.com/brojonat/dustwatch/service/nats"
	"github.com/brojonat/dustwatch/service/outcome"
	"github.com/brojonat/dustwatch/service/temporal"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Inspector fetches and classifies transactions.
type Inspector interface {
	Inspect(ctx context.Context, signature string) (*inspector.Report, error)
	Classify(ctx context.Context, raw *outcome.RawTransaction) (*outcome.TransactionOutcome, error)
}

// ReportStore reads stored inspection reports.
type ReportStore interface {
	GetReport(ctx context.Context, signature string) (*db.StoredReport, error)
	ListReportsBySigner(ctx context.Context, signer string, limit, offset int32) ([]*db.StoredReport, error)
	ListFlaggedReports(ctx context.Context, limit int32) ([]*db.StoredReport, error)
}

// ScanService manages wallet watches and scan workflows.
type ScanService interface {
	temporal.Scheduler
	ListWatchSchedules(ctx context.Context) ([]temporal.WatchSchedule, error)
	StartScan(ctx context.Context, input temporal.ScanWalletInput) (string, error)
	GetScanResult(ctx context.Context, workflowID string) (*temporal.ScanStatus, error)
}

// Server represents the HTTP server for the classification service.
type Server struct {
	addr       string
	cfg        *config.Config
	inspector  Inspector
	reports    ReportStore
	scans      ScanService
	subscriber natspkg.Subscriber
	metrics    *metrics.Metrics
	logger     *slog.Logger
	server     *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The reports store is optional - if nil, report endpoints answer 503.
// The scans service is optional - if nil, watch and scan endpoints answer 503.
// The subscriber is optional - if nil, SSE endpoints won't be available.
// The metrics is optional - if nil, metrics endpoints won't be available.
func New(addr string, cfg *config.Config, insp Inspector, reports ReportStore, scans ScanService, subscriber natspkg.Subscriber, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:       addr,
		cfg:        cfg,
		inspector:  insp,
		reports:    reports,
		scans:      scans,
		subscriber: subscriber,
		metrics:    m,
		logger:     logger,
	}
}

// Handler builds the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern, name string, h http.Handler) {
		mux.Handle(pattern, metrics.HTTPMetricsMiddleware(s.metrics, name)(h))
	}

	// Classification routes
	route("POST /tx/{signature}", "tx", handleInspect(s.inspector, s.logger))
	route("POST /count/{signature}", "count", handleCount(s.inspector, s.logger))
	route("POST /spammed/{signature}", "spammed", handleSpammed(s.inspector, s.logger))
	route("POST /api/v1/classify", "classify", handleClassify(s.inspector, s.logger))

	// Report routes
	route("GET /api/v1/reports/{signature}", "get_report", handleGetReport(s.reports, s.logger))
	route("GET /api/v1/reports", "list_reports", handleListReports(s.reports, s.logger))

	// Workflow routes
	minInterval, maxInterval := s.watchIntervalBounds()
	route("POST /api/v1/watches", "create_watch", handleCreateWatch(s.scans, minInterval, maxInterval, s.defaultInterval(), s.logger))
	route("DELETE /api/v1/watches/{address}", "delete_watch", handleDeleteWatch(s.scans, s.logger))
	route("GET /api/v1/watches", "list_watches", handleListWatches(s.scans, s.logger))
	route("POST /api/v1/scans", "start_scan", handleStartScan(s.scans, s.logger))
	route("GET /api/v1/scans/{workflow_id}", "get_scan", handleGetScan(s.scans, s.logger))

	// SSE streaming endpoints (if a subscriber is configured)
	if s.subscriber != nil {
		route("GET /api/v1/stream/reports/{signer}", "stream_reports", handleStreamReports(s.subscriber, s.metrics, s.logger))
		route("GET /api/v1/stream/reports", "stream_reports", handleStreamReports(s.subscriber, s.metrics, s.logger))
		s.logger.Info("SSE streaming endpoints enabled")
	} else {
		s.logger.Warn("NATS subscriber not configured, streaming endpoints disabled")
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	return corsMiddleware(mux)
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // getTransaction retries can take a while
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) watchIntervalBounds() (time.Duration, time.Duration) {
	minInterval := time.Minute
	if s.cfg != nil && s.cfg.MinScanInterval > 0 {
		minInterval = s.cfg.MinScanInterval
	}
	return minInterval, maxWatchInterval
}

func (s *Server) defaultInterval() time.Duration {
	if s.cfg != nil && s.cfg.DefaultScanInterval > 0 {
		return s.cfg.DefaultScanInterval
	}
	return 5 * time.Minute
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
