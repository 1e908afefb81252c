// Package httpapi exposes the Livelo pipeline over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"

	"github.com/grez-lucas/livelo-scraper/internal/scraper/loyalty"
)

const (
	// RunIDHeader carries the run id back to the caller.
	RunIDHeader = "X-Run-ID"

	missingParams = "Parâmetros obrigatórios: userName, passwordCrypto, startOrder"
	statusMessage = "API funcionando! Bem-vindo à rota de usuários."
)

// Server routes requests to a loyalty.Scraper, admitting at most a fixed
// number of concurrent runs.
type Server struct {
	runner   loyalty.Scraper
	slots    *semaphore.Weighted
	metrics  *metrics
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

type serverOptions struct {
	maxRuns  int64
	registry *prometheus.Registry
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*serverOptions)

// WithMaxConcurrentRuns bounds simultaneous runs. Extra requests wait for a
// slot until their context ends.
func WithMaxConcurrentRuns(n int64) Option {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxRuns = n
		}
	}
}

// WithRegistry registers the metrics on reg and serves it on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *serverOptions) {
		o.registry = reg
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *serverOptions) {
		o.logger = l
	}
}

// New builds a Server. Without WithRegistry a private registry is used.
func New(runner loyalty.Scraper, opts ...Option) *Server {
	o := serverOptions{maxRuns: 2, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	return &Server{
		runner:   runner,
		slots:    semaphore.NewWeighted(o.maxRuns),
		metrics:  newMetrics(o.registry),
		gatherer: o.registry,
		logger:   o.logger,
	}
}

// Handler returns the service routes.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Route("/livelo", func(r chi.Router) {
		r.Get("/", s.handleStatus)
		r.Post("/execute-rpa-livelo", s.handleExecute)
	})
	router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return router
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(statusMessage))
}

// executeRequest uses a pointer for startOrder so 0 is told apart from
// absent.
type executeRequest struct {
	UserName       string `json:"userName"`
	PasswordCrypto string `json:"passwordCrypto"`
	StartOrder     *int   `json:"startOrder"`
}

type response struct {
	Success bool               `json:"success"`
	Data    *loyalty.RunResult `json:"data,omitempty"`
	Error   string             `json:"error,omitempty"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	runID := uuid.NewString()
	w.Header().Set(RunIDHeader, runID)
	logger := s.logger.With("run_id", runID)

	var body executeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Warn("undecodable request body", "error", err)
		respond(w, http.StatusBadRequest, response{Error: missingParams})
		return
	}
	if body.UserName == "" || body.PasswordCrypto == "" || body.StartOrder == nil {
		respond(w, http.StatusBadRequest, response{Error: missingParams})
		return
	}

	s.metrics.waitingSlots.Inc()
	err := s.slots.Acquire(r.Context(), 1)
	s.metrics.waitingSlots.Dec()
	if err != nil {
		logger.Warn("request ended while waiting for a run slot", "error", err)
		respond(w, http.StatusServiceUnavailable, response{Error: "run slot not available: " + err.Error()})
		return
	}
	defer s.slots.Release(1)

	s.metrics.inFlight.Inc()
	defer s.metrics.inFlight.Dec()

	// A run owns a browser session and must reach its cleanup even when the
	// caller hangs up mid-run.
	start := time.Now()
	res, err := s.runner.Run(context.WithoutCancel(r.Context()), loyalty.Request{
		UserName:         body.UserName,
		PasswordEnvelope: body.PasswordCrypto,
		StartOrder:       *body.StartOrder,
		RunID:            runID,
	})
	switch {
	case errors.Is(err, loyalty.ErrInvalidRequest):
		respond(w, http.StatusBadRequest, response{Error: err.Error()})
		return
	case err != nil:
		logger.Error("run failed", "error", err)
		respond(w, http.StatusInternalServerError, response{Error: err.Error()})
		return
	}

	s.metrics.observe(res, time.Since(start))
	respond(w, http.StatusOK, response{Success: true, Data: res})
}

func respond(w http.ResponseWriter, status int, payload response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
