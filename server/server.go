// Package server exposes the analysis pipeline over HTTP and websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/xhad/docsift/internal/models"
	"github.com/xhad/docsift/internal/types"
	"github.com/xhad/docsift/pkg/capability"
	"github.com/xhad/docsift/pkg/pipeline"
	"github.com/xhad/docsift/pkg/store"
	"go.uber.org/zap"
)

// multipart framing on top of the file itself
const multipartOverhead = 1 << 20

// Analyzer runs one document through the pipeline.
type Analyzer interface {
	Run(ctx context.Context, req pipeline.Request) (*models.Report, error)
	MaxUploadBytes() int64
}

type Config struct {
	Addr               string
	AllowedOrigins     []string
	SearchLimit        int
	MaxAnalysesPerConn int // concurrent websocket analyses per connection
	Logger             *zap.Logger
	Analyzer           Analyzer
	Registry           *capability.Registry
	Store              types.ReportStore // optional
	Embedder           types.Embedder    // optional, needed for search
}

type Server struct {
	config   Config
	logger   *zap.Logger
	upgrader websocket.Upgrader
	router   chi.Router
}

func NewWithConfig(config Config) (*Server, error) {
	if config.Analyzer == nil {
		return nil, errors.New("analyzer is required")
	}
	if config.Addr == "" {
		config.Addr = "127.0.0.1:8001"
	}
	if config.SearchLimit <= 0 {
		config.SearchLimit = 10
	}
	if config.MaxAnalysesPerConn <= 0 {
		config.MaxAnalysesPerConn = 2
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	s := &Server{
		config: config,
		logger: config.Logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}
	s.router = s.routes()

	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Post("/analyze-document", s.handleAnalyzeDocument)
	r.Post("/analyze-pdf", s.handleAnalyzePDF)
	r.Get("/models/status", s.handleModelStatus)
	r.Get("/health", s.handleHealth)
	r.Get("/reports/search", s.handleSearch)
	r.Get("/reports/{id}", s.handleGetReport)
	r.Get("/ws", s.handleWebSocket)

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", s.config.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleAnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	s.analyzeUpload(w, r, false)
}

// handleAnalyzePDF is the older PDF-only endpoint.
func (s *Server) handleAnalyzePDF(w http.ResponseWriter, r *http.Request) {
	s.analyzeUpload(w, r, true)
}

func (s *Server) analyzeUpload(w http.ResponseWriter, r *http.Request, pdfOnly bool) {
	limit := s.config.Analyzer.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File size exceeds %s limit", humanize.IBytes(uint64(limit))))
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if pdfOnly && !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "File must be a PDF")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	mode := r.URL.Query().Get("analysis_type")
	if mode == "" {
		mode = r.FormValue("analysis_type")
	}

	report, err := s.config.Analyzer.Run(r.Context(), pipeline.Request{
		Data:     data,
		Filename: header.Filename,
		Mode:     models.AnalysisMode(mode),
	})
	if err != nil {
		status, detail := errorResponse(err)
		writeError(w, status, detail)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleModelStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.config.Registry.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded := make(map[string]bool)
	for name, st := range s.config.Registry.Status() {
		loaded[name] = st.Loaded
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"models_loaded":    loaded,
		"all_models_ready": s.config.Registry.Ready(),
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.config.Store == nil {
		writeError(w, http.StatusNotFound, "Report storage is not configured")
		return
	}

	report, err := s.config.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Report not found")
			return
		}
		s.logger.Error("failed to load report", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.config.Store == nil || s.config.Embedder == nil {
		writeError(w, http.StatusNotFound, "Report storage is not configured")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}

	limit := s.config.SearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	embeddings, err := s.config.Embedder.CreateEmbedding(r.Context(), []string{query})
	if err != nil || len(embeddings) != 1 {
		s.logger.Warn("failed to embed search query", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Search is unavailable")
		return
	}

	lines, err := s.config.Store.SimilarLines(r.Context(), embeddings[0], limit)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	if lines == nil {
		lines = []models.StoredLine{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": lines,
	})
}

// errorResponse maps a pipeline error to a status and a client-safe detail.
func errorResponse(err error) (int, string) {
	var clientErr *pipeline.ClientInputError
	switch {
	case errors.As(err, &clientErr):
		return clientErr.Status, clientErr.Message
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "analysis cancelled"
	default:
		return http.StatusInternalServerError, "analysis failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
