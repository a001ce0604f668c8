package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/callhour/internal/processor"
	"github.com/MikeSquared-Agency/callhour/internal/store"
)

// Service is the upload and analysis surface the API exposes.
type Service interface {
	Upload(ctx context.Context, sessionID, fileName string, r io.Reader) (*processor.UploadSummary, error)
	Analyze(ctx context.Context, sessionID, phone string) (*processor.Analysis, error)
	Reset(sessionID string) bool
	SessionCount() int
}

// History lists persisted analyses.
type History interface {
	RecentAnalyses(ctx context.Context, phone string, limit int) ([]store.AnalysisRecord, error)
}

// Options describes the running configuration reported by the status endpoint.
type Options struct {
	LLMEnabled     bool
	SharedTable    bool
	MaxUploadBytes int64
}

type Server struct {
	router  *chi.Mux
	port    int
	svc     Service
	history History
	opts    Options
	logger  *slog.Logger
}

// NewServer builds the router. history may be nil when no database is configured.
func NewServer(port int, apiToken string, svc Service, history History, opts Options, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:  router,
		port:    port,
		svc:     svc,
		history: history,
		opts:    opts,
		logger:  logger,
	}

	router.Get("/health", s.health)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/callhour/status", s.status)
		r.Post("/sessions/{sessionID}/calls", s.uploadCalls)
		r.Post("/sessions/{sessionID}/analyze", s.analyze)
		r.Delete("/sessions/{sessionID}", s.deleteSession)
		r.Get("/analyses", s.listAnalyses)
	})

	return s
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":        "callhour",
		"status":       "ok",
		"sessions":     s.svc.SessionCount(),
		"shared_table": s.opts.SharedTable,
		"llm_enabled":  s.opts.LLMEnabled,
		"history":      s.history != nil,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || errors.Is(err, processor.ErrFileTooLarge)
}
