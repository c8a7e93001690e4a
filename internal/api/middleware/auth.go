// auth.go — session middleware для защищённых endpoints.
// Расшифровывает сессионную cookie и помещает данные сессии в контекст запроса.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	apierrors "github.com/cxurescry/leaderboard-TPU/internal/api/errors"
	"github.com/cxurescry/leaderboard-TPU/internal/auth"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeySession — данные сессии в контексте запроса.
const ContextKeySession contextKey = "session"

// SessionAuth — middleware аутентификации по сессионной cookie.
type SessionAuth struct {
	sessions *auth.SessionManager
	logger   *slog.Logger
}

// NewSessionAuth создаёт session middleware.
func NewSessionAuth(sessions *auth.SessionManager, logger *slog.Logger) *SessionAuth {
	return &SessionAuth{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "session_auth")),
	}
}

// RequireSession возвращает middleware, пропускающий только аутентифицированных
// пользователей. Отсутствующая, повреждённая или гостевая cookie — 401.
func (a *SessionAuth) RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := a.sessions.GetSessionFromRequest(r)
			if err != nil {
				a.logger.Debug("не удалось расшифровать сессионную cookie",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthenticated(w, "Не аутентифицирован")
				return
			}
			if !session.Authenticated() {
				apierrors.Unauthenticated(w, "Не аутентифицирован")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext извлекает данные сессии из контекста запроса.
// Возвращает nil, если сессия не найдена.
func SessionFromContext(ctx context.Context) *auth.SessionData {
	session, _ := ctx.Value(ContextKeySession).(*auth.SessionData)
	return session
}
