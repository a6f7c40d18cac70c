// Package chi exposes the ability dispatch surface over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/merchkit/abilityd/internal/ability"
	"github.com/merchkit/abilityd/internal/domain"
	"github.com/merchkit/abilityd/internal/health"
	"github.com/merchkit/abilityd/internal/metrics"
)

// Dispatcher is the slice of the ability registry the server needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, c ability.Context) (any, error)
	List() map[string]string
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server holds the HTTP handlers for the ability surface.
type Server struct {
	registry Dispatcher
	health   *health.Service
	logger   *zap.Logger
}

// NewServer creates the HTTP API server.
func NewServer(registry Dispatcher, healthSvc *health.Service, logger *zap.Logger) *Server {
	return &Server{registry: registry, health: healthSvc, logger: logger}
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/ability/{name}", s.handleDispatch)
	r.Get("/api/abilities", s.handleList)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// maxDispatchBody caps the invocation context payload.
const maxDispatchBody = 1 << 20

// handleDispatch handles POST /api/ability/{name}. The request body is the
// invocation context; an empty body means an empty context.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDispatchBody))
	if err != nil {
		metrics.DispatchTotal.WithLabelValues(name, "invalid").Inc()
		writeError(w, http.StatusRequestEntityTooLarge, "bad_request", "request body too large")
		return
	}

	c := ability.Context{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &c); err != nil {
			metrics.DispatchTotal.WithLabelValues(name, "invalid").Inc()
			writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
			return
		}
	}

	start := time.Now()
	result, err := s.registry.Dispatch(r.Context(), name, c)
	metrics.DispatchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		s.handleDispatchError(w, name, err)
		return
	}

	metrics.DispatchTotal.WithLabelValues(name, "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    result,
	})
}

func (s *Server) handleDispatchError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, domain.ErrAbilityNotFound):
		metrics.DispatchTotal.WithLabelValues(name, "not_found").Inc()
		writeError(w, http.StatusNotFound, "ability_not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidContext):
		metrics.DispatchTotal.WithLabelValues(name, "invalid").Inc()
		writeError(w, http.StatusBadRequest, "invalid_context", err.Error())
	case errors.Is(err, domain.ErrEngineConnection), errors.Is(err, domain.ErrSearchUnavailable):
		metrics.DispatchTotal.WithLabelValues(name, "error").Inc()
		s.logger.Warn("dependency failure", zap.String("ability", name), zap.Error(err))
		writeError(w, http.StatusBadGateway, "dependency_unavailable", safeMessage(err))
	default:
		metrics.DispatchTotal.WithLabelValues(name, "error").Inc()
		s.logger.Error("ability execution failed", zap.String("ability", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// handleList handles GET /api/abilities.
func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"abilities": s.registry.List(),
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != health.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// safeMessage exposes only sentinel text for dependency errors.
func safeMessage(err error) string {
	for _, s := range []error{domain.ErrSearchUnavailable, domain.ErrEngineConnection} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "dependency unavailable"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
