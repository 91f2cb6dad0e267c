package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/finlens-org/finlens/forecast"
	"github.com/finlens-org/finlens/service"
)

// ============================================================================
// HTTP API — JSON endpoints over the Analyst
// ============================================================================
// POST /api/query      {"question": "..."} → plan + result
// GET  /api/plan?q=    plan only, no execution
// GET  /api/overview   dataset summary
// GET  /api/forecast   monthly value forecast (?months=)
// GET  /api/history    recent queries (?limit=)
// GET  /healthz        liveness
// ============================================================================

// Server exposes an Analyst over HTTP.
type Server struct {
	analyst *service.Analyst
	log     *slog.Logger
	origins []string
}

// ServerOption configures a new Server.
type ServerOption func(*Server)

// WithAllowedOrigins sets the CORS allow-list. Default is "*".
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// NewServer builds a Server around an Analyst.
func NewServer(a *service.Analyst, log *slog.Logger, opts ...ServerOption) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{analyst: a, log: log, origins: []string{"*"}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router assembles the chi routing tree with logging, recovery, and CORS.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Get("/plan", s.handlePlan)
		r.Get("/overview", s.handleOverview)
		r.Get("/forecast", s.handleForecast)
		r.Get("/history", s.handleHistory)
	})
	return r
}

type queryRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Question == "" {
		s.writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := s.analyst.Ask(r.Context(), req.Question)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	plan, err := s.analyst.Plan(q)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.analyst.Overview()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	months := 3
	if v := r.URL.Query().Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 24 {
			s.writeError(w, http.StatusBadRequest, "months must be between 1 and 24")
			return
		}
		months = n
	}
	model, err := s.analyst.Forecast(months)
	if err != nil {
		switch {
		case errors.Is(err, forecast.ErrMissingRole), errors.Is(err, forecast.ErrInsufficientData):
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.writeServiceError(w, err)
		}
		return
	}
	s.writeJSON(w, http.StatusOK, model)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := s.analyst.History(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps service errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrNoDataset) {
		s.writeError(w, http.StatusConflict, "no dataset loaded")
		return
	}
	s.log.Error("request failed", "error", err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
	}
}

type errorEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorEnvelope{Code: status, Message: msg})
}
