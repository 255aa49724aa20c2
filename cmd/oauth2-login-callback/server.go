package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/wrale/oauth2-login-callback/cmd/oauth2-login-callback/handlers/callback"
	"github.com/wrale/oauth2-login-callback/cmd/oauth2-login-callback/handlers/common"
	"github.com/wrale/oauth2-login-callback/cmd/oauth2-login-callback/handlers/health"
	"github.com/wrale/oauth2-login-callback/cmd/oauth2-login-callback/handlers/signin"
	"github.com/wrale/oauth2-login-callback/internal/login"
	"github.com/wrale/oauth2-login-callback/internal/provider"
)

type server struct {
	router   *chi.Mux
	provider *provider.DiscordProvider
	login    *login.Service
	logger   *zap.Logger
}

func newServer(cfg Config, logger *zap.Logger) (*server, error) {
	discord, err := provider.NewDiscordProvider(cfg.Provider(), logger)
	if err != nil {
		return nil, err
	}

	srv := &server{
		router:   chi.NewRouter(),
		provider: discord,
		login:    login.NewService(discord, logger),
		logger:   logger,
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.RealIP)
	srv.router.Use(common.RequestLogger(logger))
	srv.router.Use(common.Recoverer(logger))
	srv.router.Use(middleware.Timeout(requestTimeout))

	srv.routes()

	return srv, nil
}

func (s *server) routes() {
	s.router.Method(http.MethodGet, "/health", health.New(s.login).WithVersion(Version))
	s.router.Method(http.MethodGet, "/login", signin.New(s.provider))

	// All methods; anything but GET and POST carries no code
	s.router.Handle("/api/auth", callback.New(callback.Config{Login: s.login}))
}
