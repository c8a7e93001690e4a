// oauth.go — OAuth2-клиент для аутентификации через ЦИС ТПУ.
// Реализует Authorization Code Flow (server-side, с client_secret).
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Ошибки взаимодействия с провайдером.
var (
	// ErrTransport — сетевая ошибка или таймаут при обращении к ТПУ.
	ErrTransport = errors.New("сетевая ошибка при обращении к провайдеру")
	// ErrUpstream — провайдер вернул не-2xx статус или некорректный ответ.
	ErrUpstream = errors.New("некорректный ответ провайдера")
)

// OAuthClient — клиент для взаимодействия с OAuth endpoints ТПУ.
// Confidential client: обмен кода выполняется server-to-server с client_secret.
type OAuthClient struct {
	// clientID — Client ID приложения, зарегистрированного в ТПУ.
	clientID string
	// clientSecret — Client Secret. Никогда не логируется.
	clientSecret string
	// apiKey — статический API-ключ для запросов к api.tpu.ru.
	apiKey string
	// authorizeURL — endpoint авторизации (browser redirect).
	authorizeURL string
	// tokenURL — endpoint обмена code → tokens.
	tokenURL string
	// userInfoURL — endpoint профиля пользователя.
	userInfoURL string
	// logoutURL — endpoint выхода.
	logoutURL string
	// redirectURI — callback, зарегистрированный в ТПУ.
	redirectURI string
	// httpClient — HTTP-клиент с ограниченным таймаутом.
	httpClient *http.Client
}

// OAuthConfig — конфигурация OAuth-клиента.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	APIKey       string
	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
	LogoutURL    string
	RedirectURI  string
	// HTTPClient — HTTP-клиент (nil — создаётся новый с Timeout).
	HTTPClient *http.Client
	// Timeout — таймаут HTTP-запросов. Используется при HTTPClient == nil.
	Timeout time.Duration
}

// NewOAuthClient создаёт новый OAuth-клиент на основе конфигурации.
// Исходящие запросы всегда ограничены таймаутом: запрос к провайдеру
// не должен подвесить обработку callback.
func NewOAuthClient(cfg OAuthConfig) *OAuthClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &OAuthClient{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		apiKey:       cfg.APIKey,
		authorizeURL: cfg.AuthorizeURL,
		tokenURL:     cfg.TokenURL,
		userInfoURL:  cfg.UserInfoURL,
		logoutURL:    cfg.LogoutURL,
		redirectURI:  cfg.RedirectURI,
		httpClient:   httpClient,
	}
}

// GenerateState генерирует случайный state parameter для CSRF-защиты.
// 16 байт энтропии, base64url без padding. Каждый вызов — новое значение;
// переиспользование state — дефект безопасности.
func GenerateState() (string, error) {
	stateBytes := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, stateBytes); err != nil {
		return "", fmt.Errorf("ошибка генерации state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(stateBytes), nil
}

// AuthorizeURL формирует URL для redirect пользователя на страницу входа ТПУ.
// state — свежесгенерированный state parameter; вызывающая сторона сохраняет
// его в сессии до callback.
func (c *OAuthClient) AuthorizeURL(state string) string {
	params := url.Values{
		"client_id":     {c.clientID},
		"redirect_uri":  {c.redirectURI},
		"response_type": {"code"},
		"state":         {state},
	}
	return c.authorizeURL + "?" + params.Encode()
}

// TokenResponse — ответ token endpoint ТПУ.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// ExchangeCode обменивает authorization code на tokens через token endpoint.
// Возвращает ErrUpstream при не-2xx ответе, ErrTransport при сетевой ошибке.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	data := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"redirect_uri":  {c.redirectURI},
		"code":          {code},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("%w: ошибка парсинга token response: %v", ErrUpstream, err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: token endpoint не вернул access_token", ErrUpstream)
	}

	return &tokenResp, nil
}

// UserProfile — данные пользователя из user info endpoint.
type UserProfile struct {
	UserID    int64
	Email     string
	FirstName string
	LastName  string
}

// userInfoResponse — сырой ответ api.tpu.ru.
// Персональные данные вложены в блок "lichnost".
type userInfoResponse struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	Lichnost struct {
		Imya     string `json:"imya"`
		Familiya string `json:"familiya"`
	} `json:"lichnost"`
}

// FetchUserProfile запрашивает профиль пользователя по access token.
// ТПУ принимает apiKey и access_token как query-параметры.
func (c *OAuthClient) FetchUserProfile(ctx context.Context, accessToken string) (*UserProfile, error) {
	params := url.Values{
		"apiKey":       {c.apiKey},
		"access_token": {accessToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var info userInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: ошибка парсинга профиля: %v", ErrUpstream, err)
	}
	if info.UserID == 0 {
		return nil, fmt.Errorf("%w: профиль не содержит user_id", ErrUpstream)
	}

	return &UserProfile{
		UserID:    info.UserID,
		Email:     info.Email,
		FirstName: info.Lichnost.Imya,
		LastName:  info.Lichnost.Familiya,
	}, nil
}

// LogoutURL формирует URL выхода из ТПУ с возвратом на returnTo.
func (c *OAuthClient) LogoutURL(returnTo string) string {
	return c.logoutURL + "?redirect=" + url.QueryEscape(returnTo)
}

// do выполняет запрос и возвращает тело 2xx-ответа.
// Тело ошибочного ответа включается в сообщение: токены в нём не содержатся.
func (c *OAuthClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка чтения ответа: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: статус %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	return body, nil
}
