// Package server exposes the control API over HTTP.
//
// Handlers never touch the model. Each request is parsed into exactly one
// command and enqueued for the frame loop; a request that fails to parse
// enqueues nothing.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Faultbox/puppet/internal/app"
	"github.com/Faultbox/puppet/internal/command"
)

// Enqueuer accepts commands for the frame loop.
type Enqueuer interface {
	Enqueue(cmd command.Command) error
}

// StatusSource returns the latest published status.
type StatusSource interface {
	Status() *app.Status
}

// Config defines the HTTP listener.
type Config struct {
	Addr string
	// RateLimit is requests per second for command routes. Zero disables it.
	RateLimit         float64
	Burst             int
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}

// Server hosts the control API.
type Server struct {
	cfg        Config
	queue      Enqueuer
	status     StatusSource
	limiter    *rate.Limiter
	log        *zap.Logger
	httpServer *http.Server
}

// New creates a server. status may be nil, in which case /status answers
// 503. log may be nil.
func New(cfg Config, queue Enqueuer, status StatusSource, log *zap.Logger) (*Server, error) {
	if queue == nil {
		return nil, errors.New("server: queue is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}

	s := &Server{cfg: cfg, queue: queue, status: status, log: log}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/motion", s.command(parseMotion))
	mux.Handle("/expression", s.command(parseExpression))
	mux.Handle("/parameter", s.command(parseParameter))
	mux.Handle("/scale", s.command(parseScale))
	mux.Handle("/model", s.command(parseModel))
	mux.HandleFunc("/status", s.handleStatus)
	return s.logRequests(mux)
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until the context ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("control server listening", zap.String("addr", ln.Addr().String()))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		s.log.Info("control server stopped")
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

type parser func(r *http.Request) (command.Command, error)

func (s *Server) command(parse parser) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			w.Header().Set("Allow", "GET, POST")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		cmd, err := parse(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.queue.Enqueue(cmd); err != nil {
			if errors.Is(err, command.ErrQueueFull) {
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
			s.log.Error("enqueue failed", zap.Stringer("kind", cmd.Kind()), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "enqueue failed")
			return
		}

		writeJSON(w, http.StatusAccepted, acceptedResponse{Accepted: cmd.Kind().String(), Command: cmd})
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var st *app.Status
	if s.status != nil {
		st = s.status.Status()
	}
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "status not available yet")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.Int("status", rec.code),
			zap.Duration("took", time.Since(start)),
		)
	})
}

type acceptedResponse struct {
	Accepted string          `json:"accepted"`
	Command  command.Command `json:"command"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
