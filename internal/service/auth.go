// auth.go — сервис аутентификации через ЦИС ТПУ.
// Завершает Authorization Code Flow: обмен кода, загрузка профиля,
// upsert пользователя в БД.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cxurescry/leaderboard-TPU/internal/auth"
	"github.com/cxurescry/leaderboard-TPU/internal/domain/model"
	"github.com/cxurescry/leaderboard-TPU/internal/repository"
)

// defaultTokenLifetime — срок жизни token, если провайдер не вернул expires_in.
const defaultTokenLifetime = 86400 * time.Second

// AuthService — завершение входа через ТПУ и управление пользователями.
type AuthService struct {
	oauth  *auth.OAuthClient
	users  repository.UserRepository
	logger *slog.Logger
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(oauth *auth.OAuthClient, users repository.UserRepository, logger *slog.Logger) *AuthService {
	return &AuthService{
		oauth:  oauth,
		users:  users,
		logger: logger.With(slog.String("component", "auth_service")),
	}
}

// CompleteLogin завершает вход: обменивает authorization code на tokens,
// запрашивает профиль и создаёт либо обновляет пользователя в БД.
// Для существующего пользователя обновляются только токены и срок их
// действия: имя и email остаются как при первом входе.
// Ошибки провайдера прозрачно несут auth.ErrTransport / auth.ErrUpstream.
func (s *AuthService) CompleteLogin(ctx context.Context, code string) (*model.User, error) {
	tokens, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("обмен authorization code: %w", err)
	}

	profile, err := s.oauth.FetchUserProfile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("загрузка профиля пользователя: %w", err)
	}

	expiresIn := time.Duration(tokens.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = defaultTokenLifetime
	}
	expiresAt := time.Now().Add(expiresIn)

	user, err := s.upsertUser(ctx, profile, tokens, expiresAt)
	if err != nil {
		return nil, err
	}

	s.logger.Info("вход завершён",
		slog.Int64("tpu_user_id", user.TPUUserID),
		slog.String("user_id", user.ID),
	)
	return user, nil
}

// upsertUser находит пользователя по tpu_user_id или создаёт нового.
// Гонка двух одновременных первых входов разрешается через уникальный
// индекс: проигравший Create получает ErrConflict, перечитывает запись
// и переходит к обновлению. Повтор ровно один.
func (s *AuthService) upsertUser(ctx context.Context, profile *auth.UserProfile, tokens *auth.TokenResponse, expiresAt time.Time) (*model.User, error) {
	existing, err := s.users.GetByTPUUserID(ctx, profile.UserID)
	switch {
	case err == nil:
		return s.refreshTokens(ctx, existing, tokens, expiresAt)

	case errors.Is(err, repository.ErrNotFound):
		user := &model.User{
			ID:             uuid.NewString(),
			TPUUserID:      profile.UserID,
			Email:          profile.Email,
			FirstName:      profile.FirstName,
			LastName:       profile.LastName,
			AccessToken:    tokens.AccessToken,
			RefreshToken:   tokens.RefreshToken,
			TokenExpiresAt: expiresAt,
		}
		if createErr := s.users.Create(ctx, user); createErr != nil {
			if !errors.Is(createErr, repository.ErrConflict) {
				return nil, fmt.Errorf("создание пользователя: %w", createErr)
			}
			// Параллельный вход успел создать запись первым.
			s.logger.Debug("конфликт при создании пользователя, повторное чтение",
				slog.Int64("tpu_user_id", profile.UserID),
			)
			existing, err = s.users.GetByTPUUserID(ctx, profile.UserID)
			if err != nil {
				return nil, fmt.Errorf("%w: повторное чтение после конфликта: %v", ErrDuplicateUser, err)
			}
			return s.refreshTokens(ctx, existing, tokens, expiresAt)
		}
		return user, nil

	default:
		return nil, fmt.Errorf("поиск пользователя: %w", err)
	}
}

// refreshTokens обновляет токены существующего пользователя.
func (s *AuthService) refreshTokens(ctx context.Context, user *model.User, tokens *auth.TokenResponse, expiresAt time.Time) (*model.User, error) {
	user.AccessToken = tokens.AccessToken
	user.RefreshToken = tokens.RefreshToken
	user.TokenExpiresAt = expiresAt

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("обновление токенов пользователя: %w", err)
	}
	return user, nil
}
