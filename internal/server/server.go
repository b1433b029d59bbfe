// Package server is the composition root: it opens the database, builds
// the services and handlers, mounts the routes and runs the HTTP server
// until it is told to stop.
//
//	config → sqlite.DB → services → handlers → chi router
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/blogsite/internal/auth"
	"github.com/sakif/blogsite/internal/config"
	"github.com/sakif/blogsite/internal/handler"
	"github.com/sakif/blogsite/internal/middleware"
	sqliteRepo "github.com/sakif/blogsite/internal/repository/sqlite"
	"github.com/sakif/blogsite/internal/service"
)

// Server owns the database and the optional Redis client and closes both
// on shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	redis  *redis.Client
}

// New wires the whole application. It fails if the database cannot be
// opened; a configured but unreachable Redis only downgrades logout
// revocation to process memory.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		s.close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// revoker picks where logged-out session ids are remembered.
func (s *Server) revoker() auth.Revoker {
	if s.config.Redis.URL == "" {
		return auth.NewMemoryRevoker()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := auth.NewRedisClient(ctx, s.config.Redis.URL)
	if err != nil {
		s.logger.Warn("redis unavailable, keeping revoked sessions in memory",
			slog.String("error", err.Error()),
		)
		return auth.NewMemoryRevoker()
	}
	s.redis = client
	s.logger.Info("session revocation backed by redis")
	return auth.NewRedisRevoker(client)
}

// setupRoutes mounts every route. Pages anyone may see run under
// OptionalAuth; everything that changes data runs under RequireAuth, and
// the services still check ownership on top of that.
func (s *Server) setupRoutes() error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return err
	}
	authn := auth.NewAuthenticator(tokens, s.revoker(), s.logger)

	users := service.NewUserService(s.db, s.db, auth.NewPasswordService(cfg.Auth.BcryptCost), s.logger)
	categories := service.NewCategoryService(s.db, s.db, s.logger)
	posts := service.NewPostService(s.db, s.db, categories, s.logger)
	authSvc := service.NewAuthService(users, tokens, authn.Revoker(), s.logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := categories.EnsureDefault(ctx); err != nil {
		return fmt.Errorf("creating default category: %w", err)
	}

	var github handler.GitHubSignIn
	if cfg.GitHub.Enabled() {
		github = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	}

	cookies := handler.CookieConfig{Secure: cfg.Auth.CookieSecure}
	postHandler := handler.NewPostHandler(posts, categories, s.logger)
	categoryHandler := handler.NewCategoryHandler(categories, s.logger)
	userHandler := handler.NewUserHandler(users, authSvc, cookies, s.logger)
	authHandler := handler.NewAuthHandler(authSvc, github, cookies, s.logger)

	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		r.Use(middleware.NewMetrics(reg).Handler)
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Get("/healthz", handler.HandleHealth(s.db))

	r.Group(func(r chi.Router) {
		r.Use(authn.OptionalAuth)

		r.Get("/", postHandler.HandleHome)
		r.Get("/all", postHandler.HandleList)
		r.Get("/post/{id}", postHandler.HandleDetail)

		r.Get("/categories", categoryHandler.HandleList)
		r.Get("/category/{id}", categoryHandler.HandleDetail)

		r.Get("/user-profile/{id}", userHandler.HandleProfile)

		r.Get("/signup", authHandler.HandleSignUpForm)
		r.Post("/signup", authHandler.HandleSignUp)
		r.Get("/login", authHandler.HandleLoginForm)
		r.Post("/login", authHandler.HandleLogin)

		if github != nil {
			r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(authn.RequireAuth)

		r.Get("/post-create", postHandler.HandleCreateForm)
		r.Post("/post-create", postHandler.HandleCreate)
		r.Get("/post-update/{id}", postHandler.HandleUpdateForm)
		r.Post("/post-update/{id}", postHandler.HandleUpdate)
		r.Post("/post-delete/{id}", postHandler.HandleDelete)

		r.Post("/category-delete/{id}", categoryHandler.HandleDelete)

		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/update-profile/{id}", userHandler.HandleUpdateForm)
		r.Post("/update-profile/{id}", userHandler.HandleUpdate)
		r.Post("/delete-account/{id}", userHandler.HandleDelete)
	})

	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("closing redis client", slog.String("error", err.Error()))
		}
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn("closing database", slog.String("error", err.Error()))
	}
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to server.shutdown_timeout before closing the database.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("database", s.config.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		timeout := s.config.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
