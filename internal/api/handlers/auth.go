// auth.go — обработчики OAuth-аутентификации через ЦИС ТПУ.
// Login → redirect на ТПУ, Callback → завершение входа, Logout, Me, Config.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/cxurescry/leaderboard-TPU/internal/api/errors"
	"github.com/cxurescry/leaderboard-TPU/internal/api/middleware"
	"github.com/cxurescry/leaderboard-TPU/internal/auth"
	"github.com/cxurescry/leaderboard-TPU/internal/config"
	"github.com/cxurescry/leaderboard-TPU/internal/service"
)

// AuthHandler — обработчики /auth/*.
type AuthHandler struct {
	cfg      *config.Config
	oauth    *auth.OAuthClient
	sessions *auth.SessionManager
	auth     *service.AuthService
	logger   *slog.Logger
}

// NewAuthHandler создаёт обработчик аутентификации.
func NewAuthHandler(
	cfg *config.Config,
	oauth *auth.OAuthClient,
	sessions *auth.SessionManager,
	authService *service.AuthService,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		cfg:      cfg,
		oauth:    oauth,
		sessions: sessions,
		auth:     authService,
		logger:   logger.With(slog.String("component", "auth_handler")),
	}
}

// HandleLogin — GET /auth/login.
// Генерирует state, сохраняет его в сессионной cookie и перенаправляет
// пользователя на страницу входа ТПУ.
// С placeholder-учётными данными внешний вход невозможен — 503 с диагностикой.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.cfg.IsPlaceholderCredentials() {
		h.logger.Warn("попытка входа с незаполненными OAuth-учётными данными")
		apierrors.WriteError(w, http.StatusServiceUnavailable, "OAUTH_NOT_CONFIGURED",
			"OAuth-учётные данные ТПУ не настроены: заполните LB_TPU_CLIENT_ID и LB_TPU_CLIENT_SECRET")
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error("ошибка генерации state", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}

	// Чужая или повреждённая cookie не мешает входу: сессия пересоздаётся.
	session, err := h.sessions.GetSessionFromRequest(r)
	if err != nil || session == nil {
		session = &auth.SessionData{}
	}
	session.OAuthState = state

	if err := h.sessions.SetSessionCookie(w, session); err != nil {
		h.logger.Error("ошибка записи сессионной cookie", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}

	http.Redirect(w, r, h.oauth.AuthorizeURL(state), http.StatusFound)
}

// HandleCallback — GET /auth/callback.
// Проверяет state (CSRF), обменивает code, завершает вход и перенаправляет
// на клиентское приложение. State одноразовый: очищается из сессии при
// любой попытке обработки callback, удачной или нет.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// Отказ провайдера обрабатывается до работы с сессией.
	if errParam := q.Get("error"); errParam != "" {
		h.logger.Warn("провайдер отклонил авторизацию", slog.String("provider_error", errParam))
		apierrors.ProviderDenied(w, "Провайдер отклонил авторизацию: "+errParam)
		return
	}

	session, err := h.sessions.GetSessionFromRequest(r)
	if err != nil || session == nil {
		apierrors.CsrfValidationError(w, "Сессия отсутствует: начните вход заново")
		return
	}

	expectedState := session.OAuthState
	session.OAuthState = ""

	if expectedState == "" || q.Get("state") != expectedState {
		h.logger.Warn("state callback не совпал с сессионным",
			slog.String("remote_addr", r.RemoteAddr),
		)
		_ = h.sessions.SetSessionCookie(w, session)
		apierrors.CsrfValidationError(w, "Некорректный state: начните вход заново")
		return
	}

	code := q.Get("code")
	if code == "" {
		_ = h.sessions.SetSessionCookie(w, session)
		apierrors.MissingCode(w, "Callback не содержит authorization code")
		return
	}

	user, err := h.auth.CompleteLogin(r.Context(), code)
	if err != nil {
		h.logger.Error("ошибка завершения входа", slog.String("error", err.Error()))
		_ = h.sessions.SetSessionCookie(w, session)
		switch {
		case errors.Is(err, auth.ErrTransport):
			apierrors.TransportError(w, "Провайдер ТПУ недоступен")
		case errors.Is(err, auth.ErrUpstream):
			apierrors.UpstreamAuthError(w, "Провайдер ТПУ вернул некорректный ответ")
		default:
			apierrors.InternalError(w, "Внутренняя ошибка при завершении входа")
		}
		return
	}

	session.UserID = user.ID
	session.AccessToken = user.AccessToken
	session.UserInfo = &auth.UserInfo{
		ID:        user.ID,
		TPUUserID: user.TPUUserID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}

	if err := h.sessions.SetSessionCookie(w, session); err != nil {
		h.logger.Error("ошибка записи сессионной cookie", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}

	http.Redirect(w, r, h.cfg.ClientAppURL, http.StatusFound)
}

// HandleLogout — GET /auth/logout.
// Очищает сессионную cookie и перенаправляет на выход из ТПУ
// с возвратом на клиентское приложение.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearSessionCookie(w)
	http.Redirect(w, r, h.oauth.LogoutURL(h.cfg.ClientAppURL), http.StatusFound)
}

// HandleLogoutPost — POST /auth/logout.
// Вариант для fetch: очищает cookie и возвращает JSON без redirect.
func (h *AuthHandler) HandleLogoutPost(w http.ResponseWriter, _ *http.Request) {
	h.sessions.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// HandleMe — GET /auth/me.
// Возвращает данные вошедшего пользователя из сессии.
// Требует RequireSession middleware.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil || session.UserInfo == nil {
		apierrors.Unauthenticated(w, "Не аутентифицирован")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_info": session.UserInfo})
}

// HandleConfig — GET /auth/config.
// Диагностика конфигурации OAuth без раскрытия секретов.
func (h *AuthHandler) HandleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"credentials_configured": !h.cfg.IsPlaceholderCredentials(),
		"redirect_uri":           h.cfg.RedirectURI,
		"authorize_url":          h.cfg.TPUAuthURL,
	})
}
