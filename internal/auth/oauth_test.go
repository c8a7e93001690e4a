package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func testClient(authorizeURL, tokenURL, userInfoURL, logoutURL string) *OAuthClient {
	return NewOAuthClient(OAuthConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		APIKey:       "test-api-key",
		AuthorizeURL: authorizeURL,
		TokenURL:     tokenURL,
		UserInfoURL:  userInfoURL,
		LogoutURL:    logoutURL,
		RedirectURI:  "http://localhost:8000/auth/callback",
		Timeout:      5 * time.Second,
	})
}

// TestGenerateState проверяет формат и уникальность state.
func TestGenerateState(t *testing.T) {
	s1, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState: %v", err)
	}
	s2, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState: %v", err)
	}

	// 16 байт в base64url без padding — 22 символа
	if len(s1) != 22 {
		t.Errorf("длина state = %d, ожидалось 22", len(s1))
	}
	if s1 == s2 {
		t.Error("два вызова GenerateState вернули одинаковый state")
	}
}

// TestAuthorizeURL проверяет параметры authorize URL.
func TestAuthorizeURL(t *testing.T) {
	c := testClient("https://oauth.tpu.ru/authorize", "", "", "")

	raw := c.AuthorizeURL("state-123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("невалидный URL: %v", err)
	}

	q := u.Query()
	if got := q.Get("client_id"); got != "test-client" {
		t.Errorf("client_id = %q", got)
	}
	if got := q.Get("redirect_uri"); got != "http://localhost:8000/auth/callback" {
		t.Errorf("redirect_uri = %q", got)
	}
	if got := q.Get("response_type"); got != "code" {
		t.Errorf("response_type = %q", got)
	}
	if got := q.Get("state"); got != "state-123" {
		t.Errorf("state = %q", got)
	}
}

// TestLogoutURL проверяет параметр redirect.
func TestLogoutURL(t *testing.T) {
	c := testClient("", "", "", "https://oauth.tpu.ru/logout")

	got := c.LogoutURL("http://localhost:3000/")
	want := "https://oauth.tpu.ru/logout?redirect=" + url.QueryEscape("http://localhost:3000/")
	if got != want {
		t.Errorf("LogoutURL = %q, ожидалось %q", got, want)
	}
}

// TestExchangeCode_Success проверяет обмен кода и состав form-запроса.
func TestExchangeCode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("метод = %s, ожидался POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("code"); got != "the-code" {
			t.Errorf("code = %q", got)
		}
		if got := r.PostForm.Get("client_secret"); got != "test-secret" {
			t.Errorf("client_secret = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","token_type":"bearer","expires_in":86400}`))
	}))
	defer srv.Close()

	c := testClient("", srv.URL, "", "")
	tokens, err := c.ExchangeCode(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if tokens.AccessToken != "at-1" || tokens.RefreshToken != "rt-1" {
		t.Errorf("tokens = %+v", tokens)
	}
	if tokens.ExpiresIn != 86400 {
		t.Errorf("expires_in = %d", tokens.ExpiresIn)
	}
}

// TestExchangeCode_UpstreamError — не-2xx статус провайдера.
func TestExchangeCode_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient("", srv.URL, "", "")
	_, err := c.ExchangeCode(context.Background(), "bad-code")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("ожидался ErrUpstream, получено %v", err)
	}
}

// TestExchangeCode_MalformedJSON — некорректный JSON трактуется как ErrUpstream.
func TestExchangeCode_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := testClient("", srv.URL, "", "")
	_, err := c.ExchangeCode(context.Background(), "the-code")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("ожидался ErrUpstream, получено %v", err)
	}
}

// TestExchangeCode_TransportError — сетевая ошибка.
func TestExchangeCode_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // сервер остановлен до запроса

	c := testClient("", srv.URL, "", "")
	_, err := c.ExchangeCode(context.Background(), "the-code")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("ожидался ErrTransport, получено %v", err)
	}
}

// TestFetchUserProfile проверяет query-параметры и парсинг блока lichnost.
func TestFetchUserProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("apiKey"); got != "test-api-key" {
			t.Errorf("apiKey = %q", got)
		}
		if got := q.Get("access_token"); got != "at-1" {
			t.Errorf("access_token = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user_id":42,"email":"ivanov01@tpu.ru","lichnost":{"imya":"Иван","familiya":"Иванов"}}`))
	}))
	defer srv.Close()

	c := testClient("", "", srv.URL, "")
	profile, err := c.FetchUserProfile(context.Background(), "at-1")
	if err != nil {
		t.Fatalf("FetchUserProfile: %v", err)
	}
	if profile.UserID != 42 {
		t.Errorf("UserID = %d", profile.UserID)
	}
	if profile.Email != "ivanov01@tpu.ru" {
		t.Errorf("Email = %q", profile.Email)
	}
	if profile.FirstName != "Иван" || profile.LastName != "Иванов" {
		t.Errorf("имя = %q %q", profile.FirstName, profile.LastName)
	}
}

// TestFetchUserProfile_MissingUserID — профиль без user_id невалиден.
func TestFetchUserProfile_MissingUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"email":"x@tpu.ru"}`))
	}))
	defer srv.Close()

	c := testClient("", "", srv.URL, "")
	_, err := c.FetchUserProfile(context.Background(), "at-1")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("ожидался ErrUpstream, получено %v", err)
	}
}

// TestExchangeCode_SecretNotInURL — секрет передаётся только в теле.
func TestExchangeCode_SecretNotInURL(t *testing.T) {
	var requestURI string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestURI = r.RequestURI
		_, _ = w.Write([]byte(`{"access_token":"at"}`))
	}))
	defer srv.Close()

	c := testClient("", srv.URL, "", "")
	if _, err := c.ExchangeCode(context.Background(), "c"); err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if strings.Contains(requestURI, "test-secret") {
		t.Error("client_secret попал в URL запроса")
	}
}
