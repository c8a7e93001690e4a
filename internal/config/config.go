// Пакет config — загрузка и валидация конфигурации сервиса рейтинга
// из переменных окружения (с опциональным .env файлом).
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Значения-заглушки из .env.example. Пока они не заменены реальными ключами
// из кабинета разработчика ТПУ, исходящие OAuth-запросы не выполняются.
const (
	placeholderClientID     = "your_client_id"
	placeholderClientSecret = "your_client_secret"
	placeholderAPIKey       = "your_api_key"
)

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Каталог со сборкой фронтенда (SPA)
	StaticDir string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- OAuth ТПУ ---

	// Client ID приложения в ТПУ
	TPUClientID string
	// Client Secret приложения в ТПУ
	TPUClientSecret string
	// Статический API-ключ для запросов к api.tpu.ru
	TPUAPIKey string
	// Authorize endpoint
	TPUAuthURL string
	// Token endpoint
	TPUTokenURL string
	// User info endpoint
	TPUUserInfoURL string
	// Logout endpoint
	TPULogoutURL string
	// Redirect URI, зарегистрированный в ТПУ
	RedirectURI string
	// URL клиентского приложения (redirect после логина/логаута)
	ClientAppURL string
	// Таймаут исходящих запросов к ТПУ
	OAuthTimeout time.Duration

	// --- Сессии ---

	// Секрет для шифрования session cookie (AES-256-GCM)
	SessionSecret string

	// --- Кэш профилей ---

	// Максимальный размер LRU-кэша профилей студентов
	CacheSize int
	// TTL записи кэша
	CacheTTL time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
// Перед чтением окружения подхватывает .env из рабочего каталога (если есть).
func Load() (*Config, error) {
	// .env опционален — отсутствие файла не ошибка
	_ = godotenv.Load()

	cfg := &Config{}
	var err error

	// --- Сервер ---

	// LB_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("LB_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("LB_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("LB_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// LB_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("LB_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LB_LOG_LEVEL: %w", err)
	}

	// LB_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("LB_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("LB_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// LB_STATIC_DIR — каталог со сборкой фронтенда
	cfg.StaticDir = getEnvDefault("LB_STATIC_DIR", "./static")

	// LB_SHUTDOWN_TIMEOUT — таймаут graceful shutdown
	cfg.ShutdownTimeout, err = getEnvDuration("LB_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("LB_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	// LB_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("LB_DB_HOST")
	if err != nil {
		return nil, err
	}

	// LB_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("LB_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("LB_DB_PORT: %w", err)
	}

	// LB_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("LB_DB_NAME")
	if err != nil {
		return nil, err
	}

	// LB_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("LB_DB_USER")
	if err != nil {
		return nil, err
	}

	// LB_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("LB_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// LB_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("LB_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("LB_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- OAuth ТПУ ---

	// Ключи приложения. Значения-заглушки допустимы: сервис стартует,
	// но /auth/login возвращает диагностику вместо redirect (см. IsPlaceholderCredentials).
	cfg.TPUClientID = getEnvDefault("LB_TPU_CLIENT_ID", placeholderClientID)
	cfg.TPUClientSecret = getEnvDefault("LB_TPU_CLIENT_SECRET", placeholderClientSecret)
	cfg.TPUAPIKey = getEnvDefault("LB_TPU_API_KEY", placeholderAPIKey)

	// Endpoints ТПУ (по умолчанию — боевые)
	cfg.TPUAuthURL = strings.TrimRight(getEnvDefault("LB_TPU_AUTH_URL", "https://oauth.tpu.ru/authorize"), "/")
	cfg.TPUTokenURL = strings.TrimRight(getEnvDefault("LB_TPU_TOKEN_URL", "https://oauth.tpu.ru/access_token"), "/")
	cfg.TPUUserInfoURL = strings.TrimRight(getEnvDefault("LB_TPU_USER_INFO_URL", "https://api.tpu.ru/v2/auth/user"), "/")
	cfg.TPULogoutURL = strings.TrimRight(getEnvDefault("LB_TPU_LOGOUT_URL", "https://oauth.tpu.ru/auth/logout"), "/")

	// LB_REDIRECT_URI — callback, зарегистрированный в ТПУ
	cfg.RedirectURI = getEnvDefault("LB_REDIRECT_URI", "http://localhost:8000/auth/callback")
	if _, err := url.ParseRequestURI(cfg.RedirectURI); err != nil {
		return nil, fmt.Errorf("LB_REDIRECT_URI: некорректный URL: %w", err)
	}

	// LB_CLIENT_APP_URL — куда отправлять пользователя после логина/логаута
	cfg.ClientAppURL = getEnvDefault("LB_CLIENT_APP_URL", "/")

	// LB_OAUTH_TIMEOUT — таймаут исходящих запросов к ТПУ.
	// Нулевой или отрицательный таймаут недопустим: запрос не должен висеть.
	cfg.OAuthTimeout, err = getEnvDuration("LB_OAUTH_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("LB_OAUTH_TIMEOUT: %w", err)
	}
	if cfg.OAuthTimeout <= 0 {
		return nil, fmt.Errorf("LB_OAUTH_TIMEOUT: значение должно быть положительным, получено %s", cfg.OAuthTimeout)
	}

	// --- Сессии ---

	// LB_SESSION_SECRET — может быть пустым (тогда генерируется временный ключ,
	// сессии не переживают рестарт; предупреждение в main)
	cfg.SessionSecret = os.Getenv("LB_SESSION_SECRET")

	// --- Кэш профилей ---

	cfg.CacheSize, err = getEnvInt("LB_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("LB_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 1 {
		return nil, fmt.Errorf("LB_CACHE_SIZE: значение должно быть положительным, получено %d", cfg.CacheSize)
	}

	cfg.CacheTTL, err = getEnvDuration("LB_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("LB_CACHE_TTL: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает DSN для pgxpool.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword),
		c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsPlaceholderCredentials сообщает, остались ли ключи ТПУ значениями-заглушками.
// В этом состоянии попытка OAuth-логина заведомо обречена и не выполняется.
func (c *Config) IsPlaceholderCredentials() bool {
	return c.TPUClientID == "" || c.TPUClientID == placeholderClientID ||
		c.TPUClientSecret == "" || c.TPUClientSecret == placeholderClientSecret
}

// SecureCookie сообщает, нужно ли ставить Secure flag на cookie
// (сервис опубликован по HTTPS).
func (c *Config) SecureCookie() bool {
	return strings.HasPrefix(c.RedirectURI, "https://")
}

// SetupLogger создаёт slog.Logger согласно конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// --- Хелперы чтения окружения ---

// getEnvRequired возвращает значение переменной или ошибку, если она не задана.
func getEnvRequired(name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", name)
	}
	return value, nil
}

// getEnvDefault возвращает значение переменной или значение по умолчанию.
func getEnvDefault(name, defaultValue string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt читает целочисленную переменную с значением по умолчанию.
func getEnvInt(name string, defaultValue int) (int, error) {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число %q", value)
	}
	return parsed, nil
}

// getEnvDuration читает длительность (формат time.ParseDuration: "30s", "5m").
func getEnvDuration(name string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность %q", value)
	}
	return parsed, nil
}

// parseLogLevel преобразует строку в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
