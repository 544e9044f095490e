// Package server exposes the optimizer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teilomillet/promptopt/optimizer"
	"github.com/teilomillet/promptopt/utils"
)

const maxBodyBytes = 1 << 20

// OptimizerFactory builds a fresh optimizer for one request.
type OptimizerFactory func() (*optimizer.Optimizer, error)

// Server handles optimize and score requests. It keeps no state between
// requests.
type Server struct {
	newOptimizer   OptimizerFactory
	logger         utils.Logger
	requestTimeout time.Duration
}

type Option func(*Server)

// WithRequestTimeout bounds each request, including all model calls it makes.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

func NewServer(factory OptimizerFactory, logger utils.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	s := &Server{
		newOptimizer:   factory,
		logger:         logger,
		requestTimeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRoutes mounts the API on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Post("/score", s.handleScore)
	})
}

// Handler returns the full router: middleware, API, health and metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	s.RegisterRoutes(r)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Request is the body of both API endpoints.
type Request struct {
	Prompt    string               `json:"prompt"`
	TestCases []optimizer.TestCase `json:"test_cases,omitempty"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*Request, bool) {
	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return nil, false
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.respondError(w, http.StatusBadRequest, optimizer.ErrEmptyPrompt.Error())
		return nil, false
	}
	return &req, true
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	o, err := s.newOptimizer()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := o.ScoreAndImprove(r.Context(), req.Prompt, req.TestCases)
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	o, err := s.newOptimizer()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := o.Score(r.Context(), optimizer.NewVariation("original", req.Prompt, nil), req.TestCases)
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, optimizer.ErrEmptyPrompt), errors.Is(err, optimizer.ErrNoTestCases):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "status", status, "error", message)
	} else {
		s.logger.Debug("Request rejected", "status", status, "error", message)
	}
	s.respondJSON(w, status, map[string]string{"error": message})
}
