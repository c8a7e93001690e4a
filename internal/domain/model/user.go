package model

import "time"

// User — локальная учётная запись, создаваемая при первом OAuth-логине через ТПУ.
// Строка никогда не удаляется сервисом; повторные логины обновляют токены.
type User struct {
	// ID — внутренний идентификатор (UUID, генерируется при первом логине).
	ID string
	// TPUUserID — идентификатор пользователя в ТПУ (уникальный, неизменяемый).
	TPUUserID int64
	// Email — корпоративный email (уникальный).
	Email string
	// FirstName, LastName — имя и фамилия из профиля ТПУ.
	FirstName string
	LastName  string
	// AccessToken, RefreshToken — токены OAuth. Никогда не логируются.
	AccessToken  string
	RefreshToken string
	// TokenExpiresAt — момент истечения access token.
	TokenExpiresAt time.Time
	// CreatedAt, UpdatedAt — служебные метки времени.
	CreatedAt time.Time
	UpdatedAt time.Time
}
