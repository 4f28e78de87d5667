// Package server exposes the extraction service over HTTP: a thin chi
// router in front of the orchestrator, plus health and prometheus
// endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ramosmx/clubpilot/pkg/browser"
	"github.com/ramosmx/clubpilot/pkg/extract"
	"github.com/ramosmx/clubpilot/pkg/logging"
	"github.com/ramosmx/clubpilot/pkg/login"
)

const (
	maxRequestBytes = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// ExtractService runs extraction requests. Satisfied by
// *extract.Orchestrator.
type ExtractService interface {
	Extract(ctx context.Context, req extract.Request) (*extract.Response, error)
}

// EngineStatus reports browser engine readiness. Satisfied by
// *browser.Engine.
type EngineStatus interface {
	Ready() bool
}

// Server is the HTTP surface of the service.
type Server struct {
	addr     string
	service  ExtractService
	registry *extract.Registry
	pool     PoolStatuser
	engine   EngineStatus
	logger   *logging.Logger
	metrics  *metrics
}

// NewServer wires the HTTP surface. logger may be nil.
func NewServer(addr string, service ExtractService, registry *extract.Registry, pool PoolStatuser, engine EngineStatus, logger *logging.Logger) *Server {
	return &Server{
		addr:     addr,
		service:  service,
		registry: registry,
		pool:     pool,
		engine:   engine,
		logger:   logger,
		metrics:  newMetrics(pool),
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/health/live", s.handleLive)
	r.Get("/health/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/extract", s.handleExtract)
		api.Get("/extract/available", s.handleAvailable)
	})

	return r
}

// Start serves until the context is cancelled, then drains in-flight
// requests.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	s.logger.Infof("http server listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req extract.Request
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "", errors.New("invalid request body"))
		return
	}
	if req.Credentials.Username == "" || req.Credentials.Password == "" {
		respondError(w, http.StatusBadRequest, "", errors.New("username and password are required"))
		return
	}

	resp, err := s.service.Extract(r.Context(), req)
	s.metrics.requestDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		s.metrics.extractions.WithLabelValues("fatal").Inc()
		s.respondExtractError(w, err)
		return
	}

	status := "failure"
	if resp.Success {
		status = "success"
	}
	s.metrics.extractions.WithLabelValues(status).Inc()
	for _, o := range resp.Outcomes {
		s.metrics.outcomes.WithLabelValues(o.Extractor, string(o.Status)).Inc()
	}

	respondJSON(w, http.StatusOK, resp)
}

// respondExtractError maps the fatal error taxonomy onto HTTP statuses.
func (s *Server) respondExtractError(w http.ResponseWriter, err error) {
	stage := ""
	screenshot := ""
	var reqErr *extract.RequestError
	if errors.As(err, &reqErr) {
		stage = reqErr.Stage
		screenshot = reqErr.ScreenshotPath
	}

	status := http.StatusInternalServerError
	var authErr *login.AuthError
	var targetErr *login.TargetError
	switch {
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
	case errors.As(err, &targetErr):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, browser.ErrPoolExhausted):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	s.logger.Errorf("extract request failed (%d): %v", status, err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error          string `json:"error"`
		Stage          string `json:"stage,omitempty"`
		ScreenshotPath string `json:"screenshot_path,omitempty"`
	}{Error: err.Error(), Stage: stage, ScreenshotPath: screenshot})
}

func (s *Server) handleAvailable(w http.ResponseWriter, _ *http.Request) {
	descriptors := s.registry.Descriptors()
	respondJSON(w, http.StatusOK, struct {
		Extractors []extract.Descriptor `json:"extractors"`
		Count      int                  `json:"count"`
	}{Extractors: descriptors, Count: len(descriptors)})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	poolStatus := s.pool.Status()
	ready := s.engine.Ready()

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}

	respondJSON(w, status, struct {
		Status string             `json:"status"`
		Pool   browser.PoolStatus `json:"pool"`
	}{Status: state, Pool: poolStatus})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, stage string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
		Stage string `json:"stage,omitempty"`
	}{Error: err.Error(), Stage: stage})
}
