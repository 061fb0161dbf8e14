// Package httpserver assembles the service routes and the shared middleware.
package httpserver

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"miner-hosting/internal/api"
	"miner-hosting/internal/dashboard"
	"miner-hosting/internal/observability"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// StatsSource reports dashboard build counters for /status.
type StatsSource interface {
	Stats() dashboard.Stats
}

// Handlers are the domain handlers mounted by the server.
type Handlers struct {
	Proxy     http.Handler
	Dashboard http.Handler
	Stream    http.Handler
	Stats     StatsSource
}

// Server owns the route table and the process status.
type Server struct {
	handlers Handlers
	logger   *zap.Logger
	started  time.Time
	now      func() time.Time

	mu    sync.Mutex
	ready bool
}

// New creates a Server.
func New(handlers Handlers, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		handlers: handlers,
		logger:   logger.Named("http"),
		started:  time.Now(),
		now:      time.Now,
		ready:    true,
	}
}

// SetReady toggles the status reported by /status. Shutdown clears it.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

// Handler returns the routed handler wrapped in request middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("GET /metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("GET /status", s.handleStatus)

	if s.handlers.Proxy != nil {
		mux.Handle("/proxy", s.handlers.Proxy)
	}
	if s.handlers.Dashboard != nil {
		mux.Handle("GET /dashboard", s.handlers.Dashboard)
		mux.HandleFunc("/dashboard", methodNotAllowed)
	}
	if s.handlers.Stream != nil {
		mux.Handle("GET /dashboard/stream", s.handlers.Stream)
	}

	return s.middleware(mux)
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	Started         time.Time `json:"started"`
	DashboardBuilds int64     `json:"dashboard_builds"`
	LastBuildAt     time.Time `json:"last_build_at,omitempty"`
	LastWarnings    int       `json:"last_warnings"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := "running"
	if !s.ready {
		status = "shutting_down"
	}
	s.mu.Unlock()

	resp := StatusResponse{
		Status:  status,
		Uptime:  s.now().Sub(s.started).Truncate(time.Second).String(),
		Started: s.started,
	}
	if s.handlers.Stats != nil {
		stats := s.handlers.Stats.Stats()
		resp.DashboardBuilds = stats.Builds
		resp.LastBuildAt = stats.LastBuildAt
		resp.LastWarnings = stats.LastWarnings
	}

	api.WriteJSON(w, http.StatusOK, resp)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodGet)
	api.WriteError(w, api.MethodNotAllowed(r.Method))
}

// middleware assigns a request id, then logs and meters every request.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := rec.statusCode()
		elapsed := time.Since(start)
		observability.RecordHTTPRequest(r.Method, route, status, elapsed.Seconds())

		s.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
		)
	})
}

// statusRecorder captures the response status. It forwards Hijack so
// websocket upgrades still work behind the middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if r.status == 0 {
		r.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
