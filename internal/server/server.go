// Package server exposes the login handshake over HTTP.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"valauth/internal/auth"
	"valauth/internal/autherr"
	"valauth/internal/logging"
)

// AuthDataCookie carries the JSON-encoded auth.Record back to browser clients.
const AuthDataCookie = "auth_data"

const maxLoginBody = 64 << 10

// maxCookieSize is the per-cookie limit browsers enforce on name plus value.
const maxCookieSize = 4096

// Authenticator defines the handshake the server drives.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (auth.Record, error)
}

type Server struct {
	auth     Authenticator
	logger   *slog.Logger
	metrics  *Metrics
	registry *prometheus.Registry
	router   chi.Router
}

// New wires the routes. Service metrics are registered with registry, which
// is also what /metrics serves.
func New(a Authenticator, logger *slog.Logger, registry *prometheus.Registry) *Server {
	s := &Server{
		auth:     a,
		logger:   logger,
		metrics:  NewMetrics(registry),
		registry: registry,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Post("/auth/login", s.handleLogin)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()
	s.logger.Info("server started", "addr", listener.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleLogin handles POST /auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request"})
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing_credentials"})
		return
	}

	start := time.Now()
	record, err := s.auth.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		kind := autherr.KindOf(err)
		s.metrics.ObserveHandshake(kind.String(), time.Since(start))

		if kind == autherr.InvalidCredentials {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: kind.String()})
			return
		}
		logger.ErrorContext(ctx, "login failed", "kind", kind.String(), "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "upstream_failure"})
		return
	}
	s.metrics.ObserveHandshake("success", time.Since(start))

	cookie, err := authDataCookie(record, r.TLS != nil)
	if err != nil {
		logger.ErrorContext(ctx, "encode auth cookie", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
		return
	}
	if size := len(cookie.Name) + len(cookie.Value); size > maxCookieSize {
		logger.WarnContext(ctx, "auth cookie exceeds browser limit", "cookie", cookie.Name, "bytes", size, "limit", maxCookieSize)
	}
	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func authDataCookie(record auth.Record, secure bool) (*http.Cookie, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     AuthDataCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   record.ExpiresIn,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// requestLogger puts a request-scoped logger in the context and logs one
// line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		r = r.WithContext(logging.WithContext(r.Context(), logger))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.IncrementRequest(r.Method, route, strconv.Itoa(status))

		logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
