package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/cxurescry/leaderboard-TPU/internal/domain/model"
)

// studentColumns — список столбцов таблицы students для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const studentColumns = `login, someone_id, first_name, last_name, patronymic,
	student_group, direction_name, study_year, faculty, study_score, debt_count`

// SearchParams — параметры выборки рейтинга.
// Все фильтры — указатели, nil = фильтр не применяется.
type SearchParams struct {
	// Search — свободный поиск (подстрока, без учёта регистра) по ФИО,
	// направлению и группе.
	Search *string
	// School — точный фильтр по направлению подготовки.
	School *string
	// Group — точный фильтр по учебной группе.
	Group *string
	// MinScore — нижняя граница балла (включительно).
	MinScore *float64
	// MaxScore — верхняя граница балла (включительно).
	MaxScore *float64
	// SortBy — поле сортировки: group, school, year, score.
	// Неизвестное значение трактуется как score.
	SortBy string
	// SortOrder — направление: asc, desc (по умолчанию desc).
	SortOrder string
}

// StudentRepository — read-only доступ к таблице students.
type StudentRepository interface {
	// GetByLogin возвращает студента по точному логину.
	GetByLogin(ctx context.Context, login string) (*model.Student, error)
	// List возвращает студентов по фильтрам в запрошенном порядке.
	List(ctx context.Context, params SearchParams) ([]*model.Student, error)
	// ListRanked возвращает всех студентов в основном порядке рейтинга:
	// балл по убыванию (NULL считается 0), при равенстве — login по возрастанию.
	ListRanked(ctx context.Context) ([]*model.Student, error)
}

// studentRepo — реализация StudentRepository через pgx.
type studentRepo struct {
	db DBTX
}

// NewStudentRepository создаёт репозиторий студентов.
func NewStudentRepository(db DBTX) StudentRepository {
	return &studentRepo{db: db}
}

// scanStudent сканирует строку результата в модель Student.
func scanStudent(row pgx.Row) (*model.Student, error) {
	s := &model.Student{}
	err := row.Scan(
		&s.Login, &s.SomeoneID, &s.FirstName, &s.LastName, &s.Patronymic,
		&s.StudentGroup, &s.DirectionName, &s.StudyYear, &s.Faculty,
		&s.StudyScore, &s.DebtCount,
	)
	return s, err
}

func (r *studentRepo) GetByLogin(ctx context.Context, login string) (*model.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE login = $1`, studentColumns)
	s, err := scanStudent(r.db.QueryRow(ctx, query, login))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения студента: %w", err)
	}
	return s, nil
}

func (r *studentRepo) List(ctx context.Context, params SearchParams) ([]*model.Student, error) {
	where, args := buildStudentWhere(params)
	orderBy := buildStudentOrderBy(params.SortBy, params.SortOrder)

	query := fmt.Sprintf(`SELECT %s FROM students %s %s`, studentColumns, where, orderBy)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки студентов: %w", err)
	}
	defer rows.Close()

	return collectStudents(rows)
}

func (r *studentRepo) ListRanked(ctx context.Context) ([]*model.Student, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM students ORDER BY COALESCE(study_score, 0) DESC, login ASC`,
		studentColumns,
	)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки рейтинга: %w", err)
	}
	defer rows.Close()

	return collectStudents(rows)
}

// collectStudents вычитывает все строки результата.
func collectStudents(rows pgx.Rows) ([]*model.Student, error) {
	var result []*model.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования студента: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// buildStudentWhere строит WHERE-условие и аргументы выборки.
// Балл сравнивается через COALESCE(study_score, 0): отсутствие балла — это 0.
func buildStudentWhere(params SearchParams) (whereClause string, args []any) {
	var conditions []string
	argNum := 1

	// Свободный поиск: подстрока в любом из пяти полей
	if params.Search != nil && *params.Search != "" {
		pattern := "%" + *params.Search + "%"
		conditions = append(conditions, fmt.Sprintf(
			`(first_name ILIKE $%d OR last_name ILIKE $%d OR patronymic ILIKE $%d
				OR direction_name ILIKE $%d OR student_group ILIKE $%d)`,
			argNum, argNum, argNum, argNum, argNum,
		))
		args = append(args, pattern)
		argNum++
	}

	// Точный фильтр по направлению
	if params.School != nil && *params.School != "" {
		conditions = append(conditions, fmt.Sprintf("direction_name = $%d", argNum))
		args = append(args, *params.School)
		argNum++
	}

	// Точный фильтр по группе
	if params.Group != nil && *params.Group != "" {
		conditions = append(conditions, fmt.Sprintf("student_group = $%d", argNum))
		args = append(args, *params.Group)
		argNum++
	}

	// Нижняя граница балла (включительно)
	if params.MinScore != nil {
		conditions = append(conditions, fmt.Sprintf("COALESCE(study_score, 0) >= $%d", argNum))
		args = append(args, *params.MinScore)
		argNum++
	}

	// Верхняя граница балла (включительно)
	if params.MaxScore != nil {
		conditions = append(conditions, fmt.Sprintf("COALESCE(study_score, 0) <= $%d", argNum))
		args = append(args, *params.MaxScore)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// buildStudentOrderBy строит ORDER BY с безопасным whitelist полей.
// Неизвестное sort_by деградирует до сортировки по баллу (не ошибка).
// Вторичный ключ login ASC делает порядок детерминированным при равных значениях.
func buildStudentOrderBy(sortBy, sortOrder string) string {
	column := "COALESCE(study_score, 0)"
	switch sortBy {
	case "group":
		column = "student_group"
	case "school":
		column = "direction_name"
	case "year":
		column = "study_year"
	case "score":
		column = "COALESCE(study_score, 0)"
	}

	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}

	return fmt.Sprintf("ORDER BY %s %s, login ASC", column, direction)
}
