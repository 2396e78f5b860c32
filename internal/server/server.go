package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/LaravelPlus/commander/internal/commander"
	"github.com/LaravelPlus/commander/internal/config"
	"github.com/LaravelPlus/commander/internal/logging"
	"github.com/LaravelPlus/commander/internal/metrics"
	"github.com/LaravelPlus/commander/pkg/types"
)

// Config holds server configuration.
type Config struct {
	Port           int
	Hostname       string
	Prefix         string // URL prefix the API is mounted under, without slashes
	EnableCORS     bool
	RequestTimeout time.Duration
	UserHeader     string
	Development    bool // mounts /api/test
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		Hostname:       "127.0.0.1",
		Prefix:         "admin/commander",
		EnableCORS:     false,
		RequestTimeout: 10 * time.Minute,
		UserHeader:     "X-User-ID",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   0, // No write timeout for SSE and long commands
	}
}

// ConfigFrom derives the server configuration from the application config.
func ConfigFrom(cfg *types.Config) *Config {
	c := DefaultConfig()
	c.Prefix = strings.Trim(cfg.URL, "/")
	c.Development = config.IsDevelopment(cfg)
	c.EnableCORS = cfg.Server.EnableCORS
	if cfg.Server.Port > 0 {
		c.Port = cfg.Server.Port
	}
	if cfg.Server.Hostname != "" {
		c.Hostname = cfg.Server.Hostname
	}
	if cfg.Server.RequestTimeout > 0 {
		c.RequestTimeout = time.Duration(cfg.Server.RequestTimeout) * time.Second
	}
	if cfg.Server.UserHeader != "" {
		c.UserHeader = cfg.Server.UserHeader
	}
	return c
}

// Server is the HTTP server.
type Server struct {
	config  *Config
	router  *chi.Mux
	httpSrv *http.Server
	service *commander.Service
	metrics *metrics.Collector
}

// New creates a new Server instance. collector may be nil to disable /metrics.
func New(cfg *Config, svc *commander.Service, collector *metrics.Collector) *Server {
	s := &Server{
		config:  cfg,
		router:  chi.NewRouter(),
		service: svc,
		metrics: collector,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", s.config.UserHeader},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	s.router.Use(s.userContext)
}

// requestLogger logs one line per request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logging.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// userContext middleware injects the requesting user's identifier, set by
// host auth middleware in the configured header.
func (s *Server) userContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(s.config.UserHeader))
		ctx := context.WithValue(r.Context(), contextKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withTimeout bounds a request by the configured timeout. Unlike
// middleware.Timeout it writes nothing: run and retry report the killed
// command as a normal failed result.
func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.RequestTimeout <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Hostname, strconv.Itoa(s.config.Port))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	logging.Info().Str("addr", s.Addr()).Str("prefix", "/"+s.config.Prefix).Msg("commander listening")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// BasePath returns the path the API is mounted under.
func (s *Server) BasePath() string {
	if s.config.Prefix == "" {
		return ""
	}
	return "/" + s.config.Prefix
}

// Context keys
type contextKey string

const (
	contextKeyUser contextKey = "user"
)

// getUser returns the requesting user from context.
func getUser(ctx context.Context) string {
	if user, ok := ctx.Value(contextKeyUser).(string); ok {
		return user
	}
	return ""
}
