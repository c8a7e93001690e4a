// Точка входа сервиса студенческого лидерборда ТПУ.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт OAuth-клиент ЦИС ТПУ и менеджер сессий, сервисный слой и API
// handlers, запускает HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/cxurescry/leaderboard-TPU/internal/api/handlers"
	"github.com/cxurescry/leaderboard-TPU/internal/api/middleware"
	"github.com/cxurescry/leaderboard-TPU/internal/auth"
	"github.com/cxurescry/leaderboard-TPU/internal/config"
	"github.com/cxurescry/leaderboard-TPU/internal/database"
	"github.com/cxurescry/leaderboard-TPU/internal/repository"
	"github.com/cxurescry/leaderboard-TPU/internal/server"
	"github.com/cxurescry/leaderboard-TPU/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Сервис лидерборда запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if cfg.IsPlaceholderCredentials() {
		logger.Warn("OAuth-учётные данные ТПУ не настроены: вход через ТПУ недоступен")
	}
	if cfg.SessionSecret == "" {
		logger.Warn("LB_SESSION_SECRET не задан: сессии не переживут перезапуск")
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. OAuth-клиент ЦИС ТПУ и менеджер сессий
	oauthClient := auth.NewOAuthClient(auth.OAuthConfig{
		ClientID:     cfg.TPUClientID,
		ClientSecret: cfg.TPUClientSecret,
		APIKey:       cfg.TPUAPIKey,
		AuthorizeURL: cfg.TPUAuthURL,
		TokenURL:     cfg.TPUTokenURL,
		UserInfoURL:  cfg.TPUUserInfoURL,
		LogoutURL:    cfg.TPULogoutURL,
		RedirectURI:  cfg.RedirectURI,
		Timeout:      cfg.OAuthTimeout,
	})

	sessions, err := auth.NewSessionManager(cfg.SessionSecret, cfg.SecureCookie())
	if err != nil {
		logger.Error("Ошибка инициализации менеджера сессий", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Repositories
	studentRepo := repository.NewStudentRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// 7. Services
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	authSvc := service.NewAuthService(oauthClient, userRepo, logger)
	leaderboardSvc := service.NewLeaderboardService(studentRepo, cache, logger)
	demoSvc := service.NewDemoService(leaderboardSvc)

	// 8. Handlers и middleware
	authHandler := handlers.NewAuthHandler(cfg, oauthClient, sessions, authSvc, logger)
	lbHandler := handlers.NewLeaderboardHandler(leaderboardSvc, demoSvc, sessions, logger)
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool))
	sessionAuth := middleware.NewSessionAuth(sessions, logger)

	// 9. HTTP-сервер (блокирующий вызов с graceful shutdown)
	srv := server.New(cfg, logger, authHandler, lbHandler, healthHandler, sessionAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Сервис лидерборда остановлен")
}
