package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/config"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/healthcheck"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/logging"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/metrics"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/pipeline"
)

const (
	RequestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

// Version is reported on /health.
var Version = "dev"

// Processor runs the modification pipeline.
type Processor interface {
	Process(ctx context.Context, input string) (*pipeline.Result, error)
}

// HealthReporter supplies dependency status for /health.
type HealthReporter interface {
	Report() healthcheck.Report
}

// Server represents the HTTP server
type Server struct {
	processor  Processor
	health     HealthReporter
	httpServer *http.Server
	startTime  time.Time
	logger     *slog.Logger
}

// MessageRequest is the body of POST /message.
type MessageRequest struct {
	Input *string `json:"input"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string                                   `json:"status"`
	Version      string                                   `json:"version"`
	Uptime       string                                   `json:"uptime"`
	Dependencies map[string]*healthcheck.DependencyStatus `json:"dependencies"`
	Timestamp    string                                   `json:"timestamp"`
}

// ErrorResponse carries a failure reason.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// New creates a new HTTP server. health may be nil.
func New(cfg *config.Config, processor Processor, health HealthReporter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		processor: processor,
		health:    health,
		logger:    logger,
		startTime: time.Now(),
	}

	// one classification, one generation and one repair call, plus retrieval
	writeTimeout := 3*cfg.Oracle.GetTimeout() + cfg.Collaborators.GetTimeout() + 30*time.Second

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Router returns the bot's routes with middleware applied.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware, s.recoverMiddleware)
	r.HandleFunc("/message", s.messageHandler).Methods(http.MethodPost)
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Detail: "Not Found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Detail: "Method Not Allowed"})
	})
	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("Handler panic",
					"request_id", RequestID(r.Context()),
					"panic", rec,
					"stack", string(debug.Stack()))
				writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: "Internal Server Error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// messageHandler runs one modification request
func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { metrics.RequestDuration.Observe(time.Since(start).Seconds()) }()

	logger := s.logger.With("request_id", RequestID(r.Context()))

	var req MessageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		metrics.RequestCount.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}
	if req.Input == nil {
		metrics.RequestCount.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: "Field required: input"})
		return
	}

	// the pipeline is not cancelled when the client disconnects
	ctx := pipeline.WithRequestID(logging.DetachContext(r.Context()), RequestID(r.Context()))
	res, err := s.processor.Process(ctx, *req.Input)
	if err != nil {
		metrics.RequestCount.WithLabelValues("failure").Inc()
		logger.Error("Modification request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: err.Error()})
		return
	}

	metrics.RequestCount.WithLabelValues("success").Inc()
	logger.Info("Modification request succeeded", "app", res.App, "repaired", res.Repaired, "elapsed", time.Since(start))
	writeJSON(w, http.StatusOK, res.Values)
}

// healthHandler handles health check requests
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       "healthy",
		Version:      Version,
		Uptime:       time.Since(s.startTime).String(),
		Dependencies: map[string]*healthcheck.DependencyStatus{},
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	if s.health != nil {
		report := s.health.Report()
		response.Status = report.Status
		response.Dependencies = report.Dependencies
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
