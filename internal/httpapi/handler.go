// Package httpapi serves the chat, retrieval and knowledge-base management
// endpoints over HTTP.
package httpapi

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"crerag/internal/chat"
	"crerag/internal/domain"
	"crerag/internal/listing"
	"crerag/internal/service"
)

// Ingester extracts and adds uploaded files.
type Ingester interface {
	IngestFiles(ctx context.Context, files []service.FileInput) (*service.IngestReport, error)
}

// Chatter answers chat messages and exposes their history.
type Chatter interface {
	Chat(ctx context.Context, req chat.Request) (chat.Response, error)
	Session(id string) (chat.Session, bool)
	Sessions(userID string) []chat.Session
}

// Analyzer filters and summarizes the property dataset.
type Analyzer interface {
	Analyze(ctx context.Context, query string, limit int) listing.Analysis
	Stats() listing.PortfolioStats
}

// Handler serves the API. Chat and Analyzer may be nil; their routes then
// answer 503.
type Handler struct {
	KB          service.Knowledge
	Ingester    Ingester
	Chat        Chatter
	Analyzer    Analyzer
	Logger      *zap.Logger
	RateLimiter *RateLimiter
	Gatherer    prometheus.Gatherer

	// MaxUploadBytes caps multipart bodies; 0 means 32 MiB.
	MaxUploadBytes int64
}

// Routes returns the router with logging and rate limiting applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", h.limited(h.handleChat))
	mux.HandleFunc("POST /query", h.limited(h.handleQuery))
	mux.HandleFunc("POST /upload_docs", h.limited(h.handleUpload))
	mux.HandleFunc("POST /add-documents", h.limited(h.handleAddDocuments))
	mux.HandleFunc("GET /documents", h.limited(h.handleListDocuments))
	mux.HandleFunc("DELETE /documents/{id}", h.limited(h.handleDeleteDocument))
	mux.HandleFunc("DELETE /documents", h.limited(h.handleClear))
	mux.HandleFunc("GET /stats", h.limited(h.handleStats))
	mux.HandleFunc("GET /sessions/{user_id}", h.limited(h.handleSessions))
	mux.HandleFunc("GET /sessions/{user_id}/{session_id}", h.limited(h.handleSession))
	mux.HandleFunc("POST /analyze", h.limited(h.handleAnalyze))
	mux.HandleFunc("GET /portfolio_stats", h.limited(h.handlePortfolioStats))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if h.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	}
	return h.logRequests(mux)
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, msg, errType, code string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Message: msg, Type: errType, Code: code}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps domain errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "invalid_request_error", "not_found")
	case errors.Is(err, domain.ErrNoContent):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_request_error", "no_content")
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_request_error", "empty_message")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled", "server_error", "cancelled")
	default:
		h.logger().Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "server_error", "internal_error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "invalid_request_error", "invalid_json")
		return false
	}
	return true
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if h.Chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured", "server_error", "chat_unavailable")
		return
	}
	var req chat.Request
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.Chat.Chat(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required", "invalid_request_error", "missing_query")
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{Results: h.KB.Search(r.Context(), req.Query, req.TopK)})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = 32 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error(), "invalid_request_error", "invalid_upload")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded", "invalid_request_error", "no_files")
		return
	}
	files := make([]service.FileInput, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("reading %s: %v", fh.Filename, err), "invalid_request_error", "invalid_upload")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("reading %s: %v", fh.Filename, err), "invalid_request_error", "invalid_upload")
			return
		}
		files = append(files, service.FileInput{Name: fh.Filename, Data: data})
	}

	report, err := h.Ingester.IngestFiles(r.Context(), files)
	if errors.Is(err, domain.ErrNoContent) && report != nil {
		writeJSON(w, http.StatusBadRequest, struct {
			ErrorResponse
			*service.IngestReport
		}{
			ErrorResponse: ErrorResponse{Error: ErrorDetail{Message: "no valid text extracted from files", Type: "invalid_request_error", Code: "no_content"}},
			IngestReport:  report,
		})
		return
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleAddDocuments(w http.ResponseWriter, r *http.Request) {
	var req AddDocumentsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Documents == nil {
		writeError(w, http.StatusBadRequest, "missing 'documents' field", "invalid_request_error", "missing_documents")
		return
	}
	size := 0
	for _, d := range req.Documents {
		size += len(d)
	}
	md, err := h.KB.Add(r.Context(), req.Documents, req.SourceFilename, size)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AddDocumentsResponse{
		Message:  fmt.Sprintf("Added %d documents to knowledge base", len(req.Documents)),
		Document: md,
	})
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, DocumentsResponse{Documents: h.KB.ListMetadata()})
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "document id must be an integer", "invalid_request_error", "invalid_id")
		return
	}
	if err := h.KB.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("Document %d deleted", id)})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.KB.Clear(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Knowledge base cleared"})
}

func (h *Handler) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.KB.Stats())
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if h.Analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "property dataset is not loaded", "server_error", "dataset_unavailable")
		return
	}
	var req AnalyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required", "invalid_request_error", "missing_query")
		return
	}
	writeJSON(w, http.StatusOK, h.Analyzer.Analyze(r.Context(), req.Query, req.Limit))
}

func (h *Handler) handlePortfolioStats(w http.ResponseWriter, _ *http.Request) {
	if h.Analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "property dataset is not loaded", "server_error", "dataset_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, h.Analyzer.Stats())
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	if h.Chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured", "server_error", "chat_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, SessionsResponse{Sessions: h.Chat.Sessions(r.PathValue("user_id"))})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	if h.Chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured", "server_error", "chat_unavailable")
		return
	}
	sess, ok := h.Chat.Session(r.PathValue("session_id"))
	if !ok || sess.UserID != r.PathValue("user_id") {
		writeError(w, http.StatusNotFound, "session not found", "invalid_request_error", "not_found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// limited applies per-client rate limiting.
func (h *Handler) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.RateLimiter.Allow(ClientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "rate_limit_error", "rate_limit_exceeded")
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
