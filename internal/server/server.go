package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hongminglow/parkshare/internal/auth"
	"github.com/hongminglow/parkshare/internal/config"
	"github.com/hongminglow/parkshare/internal/http/handlers"
	"github.com/hongminglow/parkshare/internal/metrics"
	"github.com/hongminglow/parkshare/internal/middleware"
	"github.com/hongminglow/parkshare/internal/spots"
	"github.com/hongminglow/parkshare/internal/storage"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Store   storage.Store
	Engine  *spots.Engine
	Tokens  *auth.TokenManager
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	return &Server{inner: &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Handler(cfg, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}}
}

// Handler builds the routed and middleware-wrapped handler tree.
func Handler(cfg config.Config, deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now(), deps.Store).Register(mux)
	handlers.NewAuthHandler(deps.Store, deps.Tokens, cfg.InitialCredits, logger).Register(mux)
	handlers.NewSpotHandler(deps.Engine, deps.Tokens).Register(mux)
	handlers.NewUserHandler(deps.Engine, deps.Tokens).Register(mux)
	if cfg.MetricsEnabled && deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	return middleware.CORS(cfg.CORSOrigins,
		middleware.Recover(logger,
			middleware.Logging(logger, deps.Metrics, mux)))
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
