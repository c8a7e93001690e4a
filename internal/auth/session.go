// session.go — шифрованные cookie-сессии.
// Сессия целиком хранится на клиенте: полезная нагрузка сериализуется
// в JSON и шифруется AES-256-GCM. Серверного хранилища сессий нет.
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SessionCookieName — имя сессионной cookie.
const SessionCookieName = "leaderboard_session"

// sessionMaxAge — время жизни сессионной cookie.
const sessionMaxAge = 24 * time.Hour

// UserInfo — данные аутентифицированного пользователя,
// хранящиеся в сессии и отдаваемые клиенту в /auth/me.
type UserInfo struct {
	// ID — внутренний идентификатор пользователя (UUID).
	ID string `json:"id"`
	// TPUUserID — идентификатор пользователя в ЦИС ТПУ.
	TPUUserID int64 `json:"tpu_user_id"`
	// Email — корпоративный email.
	Email string `json:"email"`
	// FirstName — имя.
	FirstName string `json:"first_name"`
	// LastName — фамилия.
	LastName string `json:"last_name"`
}

// SessionData — полезная нагрузка сессионной cookie.
// До завершения входа содержит только OAuthState; после — данные
// пользователя. AccessToken отдаётся клиенту только в шифрованном виде
// внутри cookie и никогда не попадает в логи и тела ответов.
type SessionData struct {
	// OAuthState — state parameter текущей OAuth-попытки.
	// Очищается при обработке callback: state одноразовый.
	OAuthState string `json:"oauth_state,omitempty"`
	// UserID — идентификатор пользователя (UUID). Пустой до входа.
	UserID string `json:"user_id,omitempty"`
	// UserInfo — данные пользователя.
	UserInfo *UserInfo `json:"user_info,omitempty"`
	// AccessToken — access token ТПУ.
	AccessToken string `json:"access_token,omitempty"`
}

// Authenticated возвращает true, если сессия принадлежит вошедшему пользователю.
func (s *SessionData) Authenticated() bool {
	return s != nil && s.UserID != "" && s.UserInfo != nil
}

// SessionManager шифрует и расшифровывает сессионные cookie.
type SessionManager struct {
	// key — 32-байтовый ключ AES-256.
	key []byte
	// secure — выставлять ли флаг Secure на cookie.
	secure bool
}

// NewSessionManager создаёт менеджер сессий.
// secret — ключ в base64 (32 байта) либо произвольная строка, из которой
// ключ выводится через SHA-256. Пустой secret — случайный ключ: сессии
// не переживут перезапуск процесса.
func NewSessionManager(secret string, secure bool) (*SessionManager, error) {
	var key []byte

	switch {
	case secret == "":
		key = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа сессий: %w", err)
		}
	default:
		if decoded, err := base64.StdEncoding.DecodeString(secret); err == nil && len(decoded) == 32 {
			key = decoded
		} else {
			sum := sha256.Sum256([]byte(secret))
			key = sum[:]
		}
	}

	return &SessionManager{key: key, secure: secure}, nil
}

// Encrypt сериализует и шифрует данные сессии.
// Формат: base64url(nonce || ciphertext).
func (m *SessionManager) Encrypt(data *SessionData) (string, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации сессии: %w", err)
	}

	block, err := aes.NewCipher(m.key)
	if err != nil {
		return "", fmt.Errorf("ошибка создания шифра: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("ошибка создания GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt расшифровывает и десериализует данные сессии.
// Любое искажение cookie приводит к ошибке: GCM аутентифицирует содержимое.
func (m *SessionManager) Decrypt(encoded string) (*SessionData, error) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.New("некорректное кодирование cookie")
	}

	block, err := aes.NewCipher(m.key)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания шифра: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("cookie слишком короткая")
	}

	nonce, payload := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, payload, nil)
	if err != nil {
		return nil, errors.New("не удалось расшифровать cookie")
	}

	var data SessionData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("ошибка десериализации сессии: %w", err)
	}

	return &data, nil
}

// SetSessionCookie шифрует данные и записывает сессионную cookie в ответ.
func (m *SessionManager) SetSessionCookie(w http.ResponseWriter, data *SessionData) error {
	encrypted, err := m.Encrypt(data)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encrypted,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// GetSessionFromRequest читает сессию из cookie запроса.
// Отсутствие cookie — не ошибка: возвращается (nil, nil).
// Повреждённая или чужая cookie возвращает ошибку.
func (m *SessionManager) GetSessionFromRequest(r *http.Request) (*SessionData, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, nil
	}
	return m.Decrypt(cookie.Value)
}

// ClearSessionCookie удаляет сессионную cookie.
func (m *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
