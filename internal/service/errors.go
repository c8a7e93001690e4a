// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — студент не найден.
	ErrNotFound = errors.New("студент не найден")
	// ErrDuplicateUser — пользователь с таким tpu_user_id уже существует.
	ErrDuplicateUser = errors.New("пользователь уже существует")
)
