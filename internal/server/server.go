package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/abxba0/fluentchat/internal/event"
	"github.com/abxba0/fluentchat/internal/logging"
	"github.com/abxba0/fluentchat/internal/metrics"
)

// Config holds server configuration.
type Config struct {
	Addr        string
	EnableCORS  bool
	ReadTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:        ":9090",
		EnableCORS:  true,
		ReadTimeout: 30 * time.Second,
	}
}

// Info describes the session served by the status endpoint.
type Info struct {
	SessionID string `json:"sessionID"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
}

// Server is the status HTTP server.
type Server struct {
	config  *Config
	router  *chi.Mux
	httpSrv *http.Server
	bus     *event.Bus
	metrics *metrics.Metrics
	info    Info
	started time.Time
}

// New creates a new Server. bus and m may be nil; the matching endpoints
// then answer 404.
func New(cfg *Config, info Info, bus *event.Bus, m *metrics.Metrics) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Server{
		config:  cfg,
		router:  chi.NewRouter(),
		bus:     bus,
		metrics: m,
		info:    info,
		started: time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: cfg.ReadTimeout,
		// No write timeout for SSE
	}
	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
}

// requestLogger logs requests at debug level through zerolog; stdout
// belongs to the chat.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("requestID", middleware.GetReqID(r.Context())).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
