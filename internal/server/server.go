// Пакет server — HTTP-сервер лидерборда с graceful shutdown.
// Без TLS — TLS termination на reverse proxy.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cxurescry/leaderboard-TPU/internal/api/handlers"
	"github.com/cxurescry/leaderboard-TPU/internal/api/middleware"
	"github.com/cxurescry/leaderboard-TPU/internal/config"
)

// Server — HTTP-сервер лидерборда.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	authHandler *handlers.AuthHandler,
	lbHandler *handlers.LeaderboardHandler,
	healthHandler *handlers.HealthHandler,
	sessionAuth *middleware.SessionAuth,
) *Server {
	router := chi.NewRouter()

	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Служебные endpoints
	router.Get("/health/live", healthHandler.HealthLive)
	router.Get("/health/ready", healthHandler.HealthReady)
	router.Get("/metrics", healthHandler.GetMetrics)

	// OAuth-аутентификация
	router.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.HandleLogin)
		r.Get("/callback", authHandler.HandleCallback)
		r.Get("/logout", authHandler.HandleLogout)
		r.Post("/logout", authHandler.HandleLogoutPost)
		r.Get("/config", authHandler.HandleConfig)
		r.With(sessionAuth.RequireSession()).Get("/me", authHandler.HandleMe)
	})

	// Публичное API рейтинга
	router.Route("/api", func(r chi.Router) {
		r.Get("/leaderboard", lbHandler.HandleLeaderboard)
		r.Get("/profile/{login}", lbHandler.HandleProfile)
		r.Get("/top-weekly", lbHandler.HandleTopWeekly)
		r.Get("/achievements", lbHandler.HandleAchievements)
		r.With(sessionAuth.RequireSession()).Get("/user/rank", lbHandler.HandleUserRank)
	})

	// Всё остальное — SPA (статика + index.html fallback)
	router.NotFound(NewSPAHandler(cfg.StaticDir, logger).ServeHTTP)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Handler возвращает корневой HTTP-handler (для тестов).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
