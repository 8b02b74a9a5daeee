package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/news"
	"github.com/IshaanNene/newsgoat/internal/observability"
	"github.com/IshaanNene/newsgoat/internal/types"
)

const (
	defaultCategoryLimit = 5
	defaultSearchLimit   = 10
)

// NewsService is what the API needs from news.Service.
type NewsService interface {
	GetLatestNews(ctx context.Context) (news.Listing, error)
	GetNewsByCategory(ctx context.Context, name string, limit int) ([]*types.Record, error)
	SearchNews(ctx context.Context, term string, limit int) ([]*types.Record, error)
	GetArticle(ctx context.Context, rawURL string) *types.Record
	GetByID(ctx context.Context, id string) (*types.Record, error)
	ClearCache()
	CacheStats() map[string]int
}

// Server provides a JSON API over the news service.
type Server struct {
	mux     *http.ServeMux
	cfg     config.ServerConfig
	svc     NewsService
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewServer creates a new API server. When metrics is non-nil it is also
// served at metricsPath.
func NewServer(cfg config.ServerConfig, svc NewsService, metrics *observability.Metrics, metricsPath string, logger *slog.Logger) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		cfg:     cfg,
		svc:     svc,
		metrics: metrics,
		logger:  logger.With("component", "api_server"),
	}

	s.registerRoutes()
	if metrics != nil && metricsPath != "" {
		s.mux.Handle("GET "+metricsPath, metrics.Handler())
	}
	return s
}

// Handler returns the routed handler with request-id and metrics middleware.
func (s *Server) Handler() http.Handler {
	return s.instrument(s.mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
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
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	// Health
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// News
	s.mux.HandleFunc("GET /api/news/latest", s.handleLatest)
	s.mux.HandleFunc("GET /api/news/category/{category}", s.handleCategory)
	s.mux.HandleFunc("GET /api/news/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/news/article", s.handleArticle)
	s.mux.HandleFunc("GET /api/news/{id}", s.handleGetByID)

	// Admin
	s.mux.HandleFunc("POST /api/cache/clear", s.handleClearCache)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": config.Version,
		"caches":  s.svc.CacheStats(),
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := s.svc.GetLatestNews(r.Context())
	if err != nil {
		s.jsonError(w, http.StatusBadGateway, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, latest)
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limit(w, r, defaultCategoryLimit)
	if !ok {
		return
	}
	recs, err := s.svc.GetNewsByCategory(r.Context(), r.PathValue("category"), limit)
	if err != nil {
		s.jsonError(w, http.StatusBadGateway, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, recs)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "missing query parameter q"})
		return
	}
	limit, ok := s.limit(w, r, defaultSearchLimit)
	if !ok {
		return
	}
	recs, err := s.svc.SearchNews(r.Context(), term, limit)
	if err != nil {
		s.jsonError(w, http.StatusBadGateway, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, recs)
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "missing query parameter url"})
		return
	}
	rec := s.svc.GetArticle(r.Context(), rawURL)
	if rec == nil {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "article not available"})
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

func (s *Server) handleGetByID(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.GetByID(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, types.ErrNotFound):
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "news not found"})
	case err != nil:
		s.jsonError(w, http.StatusInternalServerError, err)
	default:
		s.jsonResponse(w, http.StatusOK, rec)
	}
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.svc.ClearCache()
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// limit reads the limit query parameter, writing a 400 when it is not a
// positive integer.
func (s *Server) limit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
		return 0, false
	}
	return n, true
}

func (s *Server) jsonError(w http.ResponseWriter, status int, err error) {
	s.logger.Error("request failed", "status", status, "error", err)
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
