package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cxurescry/leaderboard-TPU/internal/auth"
	"github.com/cxurescry/leaderboard-TPU/internal/domain/model"
	"github.com/cxurescry/leaderboard-TPU/internal/repository"
)

// mockUserRepo — in-memory реализация UserRepository для тестов.
type mockUserRepo struct {
	mu    sync.Mutex
	users map[int64]*model.User

	createCalls int
	updateCalls int
	// failFirstCreate — первый Create возвращает ErrConflict (имитация гонки).
	failFirstCreate bool
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[int64]*model.User{}}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	if m.failFirstCreate && m.createCalls == 1 {
		// Запись успел создать параллельный вход
		racer := *user
		racer.ID = "racer-uuid"
		m.users[user.TPUUserID] = &racer
		return repository.ErrConflict
	}
	if _, exists := m.users[user.TPUUserID]; exists {
		return repository.ErrConflict
	}
	clone := *user
	m.users[user.TPUUserID] = &clone
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) GetByTPUUserID(_ context.Context, tpuUserID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tpuUserID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if _, ok := m.users[user.TPUUserID]; !ok {
		return repository.ErrNotFound
	}
	clone := *user
	clone.UpdatedAt = time.Now()
	m.users[user.TPUUserID] = &clone
	return nil
}

// fakeProvider — httptest-сервер, имитирующий endpoints ТПУ.
func fakeProvider(t *testing.T, tokenBody, profileBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/access_token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, tokenBody)
	})
	mux.HandleFunc("/v2/auth/user", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, profileBody)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestAuthService(t *testing.T, users repository.UserRepository, provider *httptest.Server) *AuthService {
	t.Helper()
	oauth := auth.NewOAuthClient(auth.OAuthConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		APIKey:       "test-api-key",
		TokenURL:     provider.URL + "/access_token",
		UserInfoURL:  provider.URL + "/v2/auth/user",
		RedirectURI:  "http://localhost:8000/auth/callback",
		Timeout:      5 * time.Second,
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(oauth, users, logger)
}

const (
	tokenBodyNoExpiry = `{"access_token":"at-1","refresh_token":"rt-1","token_type":"bearer"}`
	profileBody       = `{"user_id":42,"email":"ivanov01@tpu.ru","lichnost":{"imya":"Иван","familiya":"Иванов"}}`
)

// TestCompleteLogin_FirstLogin — первый вход создаёт пользователя.
// Провайдер не вернул expires_in — срок берётся по умолчанию (сутки).
func TestCompleteLogin_FirstLogin(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, fakeProvider(t, tokenBodyNoExpiry, profileBody))

	before := time.Now()
	user, err := svc.CompleteLogin(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("CompleteLogin: %v", err)
	}

	if user.ID == "" {
		t.Error("пользователю не присвоен UUID")
	}
	if user.TPUUserID != 42 {
		t.Errorf("TPUUserID = %d", user.TPUUserID)
	}
	if user.Email != "ivanov01@tpu.ru" {
		t.Errorf("Email = %q", user.Email)
	}
	if user.FirstName != "Иван" || user.LastName != "Иванов" {
		t.Errorf("имя = %q %q", user.FirstName, user.LastName)
	}
	if user.AccessToken != "at-1" || user.RefreshToken != "rt-1" {
		t.Errorf("токены = %q %q", user.AccessToken, user.RefreshToken)
	}

	wantExpiry := before.Add(defaultTokenLifetime)
	if user.TokenExpiresAt.Before(wantExpiry.Add(-time.Minute)) ||
		user.TokenExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("TokenExpiresAt = %s, ожидалось около %s", user.TokenExpiresAt, wantExpiry)
	}

	if users.createCalls != 1 {
		t.Errorf("createCalls = %d", users.createCalls)
	}
}

// TestCompleteLogin_SecondLogin — повторный вход обновляет токены,
// а не создаёт второго пользователя.
func TestCompleteLogin_SecondLogin(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, fakeProvider(t, tokenBodyNoExpiry, profileBody))

	first, err := svc.CompleteLogin(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("первый вход: %v", err)
	}
	second, err := svc.CompleteLogin(context.Background(), "code-2")
	if err != nil {
		t.Fatalf("второй вход: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("повторный вход сменил ID: %q → %q", first.ID, second.ID)
	}
	if users.createCalls != 1 {
		t.Errorf("createCalls = %d, ожидался 1", users.createCalls)
	}
	if users.updateCalls != 1 {
		t.Errorf("updateCalls = %d, ожидался 1", users.updateCalls)
	}
}

// TestCompleteLogin_CreateConflict — проигравший гонку Create перечитывает
// запись и обновляет её вместо ошибки.
func TestCompleteLogin_CreateConflict(t *testing.T) {
	users := newMockUserRepo()
	users.failFirstCreate = true
	svc := newTestAuthService(t, users, fakeProvider(t, tokenBodyNoExpiry, profileBody))

	user, err := svc.CompleteLogin(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("CompleteLogin: %v", err)
	}
	if user.ID != "racer-uuid" {
		t.Errorf("ID = %q, ожидалась запись победителя гонки", user.ID)
	}
	if users.updateCalls != 1 {
		t.Errorf("updateCalls = %d, ожидался 1", users.updateCalls)
	}
}

// TestCompleteLogin_ExplicitExpiry — expires_in провайдера уважается.
func TestCompleteLogin_ExplicitExpiry(t *testing.T) {
	tokenBody := `{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600}`
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, fakeProvider(t, tokenBody, profileBody))

	before := time.Now()
	user, err := svc.CompleteLogin(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("CompleteLogin: %v", err)
	}

	wantExpiry := before.Add(time.Hour)
	if user.TokenExpiresAt.Before(wantExpiry.Add(-time.Minute)) ||
		user.TokenExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("TokenExpiresAt = %s, ожидался примерно час", user.TokenExpiresAt)
	}
}
