package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cxurescry/leaderboard-TPU/internal/domain/model"
)

const userColumns = `id, tpu_user_id, email, first_name, last_name,
	access_token, refresh_token, token_expires_at, created_at, updated_at`

// UserRepository — доступ к таблице users (OAuth-пользователи).
type UserRepository interface {
	// Create вставляет нового пользователя.
	// При дублировании tpu_user_id или email возвращает ErrConflict.
	Create(ctx context.Context, user *model.User) error
	// GetByID возвращает пользователя по внутреннему идентификатору.
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByTPUUserID возвращает пользователя по идентификатору ТПУ.
	GetByTPUUserID(ctx context.Context, tpuUserID int64) (*model.User, error)
	// Update обновляет токены и профиль существующего пользователя,
	// updated_at выставляется базой.
	Update(ctx context.Context, user *model.User) error
}

// userRepo — реализация UserRepository через pgx.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

// scanUser сканирует строку результата в модель User.
func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.TPUUserID, &u.Email, &u.FirstName, &u.LastName,
		&u.AccessToken, &u.RefreshToken, &u.TokenExpiresAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, tpu_user_id, email, first_name, last_name,
			access_token, refresh_token, token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		user.ID, user.TPUUserID, user.Email, user.FirstName, user.LastName,
		user.AccessToken, user.RefreshToken, user.TokenExpiresAt,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: пользователь с таким tpu_user_id или email уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByTPUUserID(ctx context.Context, tpuUserID int64) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE tpu_user_id = $1`, userColumns)
	u, err := scanUser(r.db.QueryRow(ctx, query, tpuUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя по tpu_user_id: %w", err)
	}
	return u, nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4,
			access_token = $5, refresh_token = $6, token_expires_at = $7,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.FirstName, user.LastName,
		user.AccessToken, user.RefreshToken, user.TokenExpiresAt,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email уже используется", ErrConflict)
		}
		return fmt.Errorf("ошибка обновления пользователя: %w", err)
	}
	return nil
}
