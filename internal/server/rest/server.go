// Package rest exposes the user service over HTTP/JSON.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

const shutdownTimeout = 5 * time.Second

// UserService is the part of services.UserService the handlers need.
type UserService interface {
	Login(ctx context.Context, req services.LoginRequest) (string, error)
	Register(ctx context.Context, req services.RegisterRequest) (*models.User, error)
	Logout(ctx context.Context, authorization string) error
	ResolveUser(ctx context.Context, authorization string) (*models.User, error)
	AssertHasPermission(ctx context.Context, authorization string, names ...string) error
	UpdateEmailOrLogin(ctx context.Context, authorization string, req services.UpdateEmailOrLoginRequest) (*models.User, error)
}

type Server struct {
	address           string
	users             UserService
	logger            logging.Logger
	registry          *prometheus.Registry
	metrics           *Metrics
	allowedOrigins    []string
	metricsPermission string
}

func NewServer(l logging.Logger, us UserService, cfg *config.Config) *Server {
	registry := prometheus.NewRegistry()
	return &Server{
		address:           cfg.EndpointAddrHTTP,
		users:             us,
		logger:            l.With("module", "http_server"),
		registry:          registry,
		metrics:           NewMetrics(registry),
		allowedOrigins:    cfg.AllowedOrigins,
		metricsPermission: cfg.MetricsPermission,
	}
}

// Handler builds the routed handler with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /user/login", s.login)
	mux.HandleFunc("POST /user/register", s.register)
	mux.HandleFunc("GET /user/logout", s.logout)
	mux.HandleFunc("GET /user/me", s.me)
	mux.HandleFunc("PUT /user/update/email-or-login", s.updateEmailOrLogin)

	var metricsPermissions []string
	if s.metricsPermission != "" {
		metricsPermissions = append(metricsPermissions, s.metricsPermission)
	}
	mux.Handle("GET /metrics", s.requirePermission(
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}), metricsPermissions...))

	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Forwarded-For"},
	})

	return s.logRequests(c.Handler(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")

		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.LogError(shutdownCtx, s.logger, "HTTP server shutdown", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	err = srv.Serve(listen)
	cancel()
	<-stopped

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
