// Пакет model — доменные модели сервиса рейтинга студентов.
package model

import "strings"

// Student — запись студента в таблице students.
// Таблица заполняется внешней выгрузкой из деканата, сервис читает её как есть.
// Все поля кроме login допускают NULL, поэтому — указатели.
type Student struct {
	// Login — корпоративный логин студента (первичный ключ).
	Login string
	// SomeoneID — внешний идентификатор из выгрузки.
	SomeoneID *string
	// FirstName, LastName, Patronymic — ФИО.
	FirstName  *string
	LastName   *string
	Patronymic *string
	// StudentGroup — учебная группа (например, 8К91).
	StudentGroup *string
	// DirectionName — направление подготовки (инженерная школа).
	DirectionName *string
	// StudyYear — курс обучения.
	StudyYear *int
	// Faculty — факультет (устаревшее поле, используется если DirectionName пуст).
	Faculty *string
	// StudyScore — рейтинговый балл. NULL трактуется как 0.0.
	StudyScore *float64
	// DebtCount — количество задолженностей.
	DebtCount *int
}

// FullName возвращает "Фамилия Имя Отчество" без лишних пробелов.
func (s *Student) FullName() string {
	parts := []string{deref(s.LastName), deref(s.FirstName), deref(s.Patronymic)}
	joined := strings.Join(parts, " ")
	return strings.Join(strings.Fields(joined), " ")
}

// Score возвращает рейтинговый балл, NULL трактуется как 0.0.
func (s *Student) Score() float64 {
	if s.StudyScore == nil {
		return 0
	}
	return *s.StudyScore
}

// Debts возвращает количество задолженностей, NULL трактуется как 0.
func (s *Student) Debts() int {
	if s.DebtCount == nil {
		return 0
	}
	return *s.DebtCount
}

// School возвращает направление подготовки, факультет как fallback
// или "Не указано" если не задано ни то, ни другое.
func (s *Student) School() string {
	if v := deref(s.DirectionName); v != "" {
		return v
	}
	if v := deref(s.Faculty); v != "" {
		return v
	}
	return "Не указано"
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
