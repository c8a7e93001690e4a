package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cxurescry/leaderboard-TPU/internal/config"
	"github.com/cxurescry/leaderboard-TPU/internal/database"
	"github.com/cxurescry/leaderboard-TPU/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool, контейнер останавливается через Cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("leaderboard_test"),
		postgres.WithUsername("leaderboard"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	t.Setenv("LB_DB_HOST", host)
	t.Setenv("LB_DB_PORT", port.Port())
	t.Setenv("LB_DB_NAME", "leaderboard_test")
	t.Setenv("LB_DB_USER", "leaderboard")
	t.Setenv("LB_DB_PASSWORD", "test-password")
	t.Setenv("LB_DB_SSL_MODE", "disable")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

// seedStudents заполняет таблицу тестовым рейтингом.
func seedStudents(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	rows := []struct {
		login     string
		firstName string
		lastName  string
		group     string
		direction string
		score     *float64
	}{
		{"ivanov01", "Иван", "Иванов", "8В91", "Информатика и вычислительная техника", fptr(95.5)},
		{"petrov02", "Пётр", "Петров", "8В92", "Программная инженерия", fptr(80.0)},
		{"sidorov03", "Сидор", "Сидоров", "8В91", "Информатика и вычислительная техника", fptr(80.0)},
		{"abramov04", "Абрам", "Абрамов", "8В93", "Прикладная математика", fptr(80.0)},
		{"nullov05", "Нуль", "Нулёв", "8В92", "Программная инженерия", nil},
	}

	for _, r := range rows {
		_, err := pool.Exec(ctx, `
			INSERT INTO students (login, first_name, last_name, student_group, direction_name, study_score)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			r.login, r.firstName, r.lastName, r.group, r.direction, r.score,
		)
		if err != nil {
			t.Fatalf("Ошибка заполнения students: %v", err)
		}
	}
}

func fptr(v float64) *float64 { return &v }

// --- Тесты StudentRepository ---

// TestStudentListRanked — основной порядок: балл DESC (NULL как 0),
// при равенстве login ASC.
func TestStudentListRanked(t *testing.T) {
	pool := setupTestDB(t)
	seedStudents(t, pool)
	repo := NewStudentRepository(pool)
	ctx := context.Background()

	students, err := repo.ListRanked(ctx)
	if err != nil {
		t.Fatalf("ListRanked: %v", err)
	}

	want := []string{"ivanov01", "abramov04", "petrov02", "sidorov03", "nullov05"}
	if len(students) != len(want) {
		t.Fatalf("len = %d, ожидалось %d", len(students), len(want))
	}
	for i, s := range students {
		if s.Login != want[i] {
			t.Errorf("порядок [%d] = %q, ожидался %q", i, s.Login, want[i])
		}
	}
}

// TestStudentList_Search — свободный поиск по подстроке ФИО и группы.
func TestStudentList_Search(t *testing.T) {
	pool := setupTestDB(t)
	seedStudents(t, pool)
	repo := NewStudentRepository(pool)
	ctx := context.Background()

	search := "Иван"
	students, err := repo.List(ctx, SearchParams{Search: &search})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(students) != 1 || students[0].Login != "ivanov01" {
		t.Errorf("поиск %q: %d результатов", search, len(students))
	}

	// Подстрока группы тоже находит
	search = "8В9"
	students, err = repo.List(ctx, SearchParams{Search: &search})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(students) != 5 {
		t.Errorf("поиск %q: %d результатов, ожидалось 5", search, len(students))
	}
}

// TestStudentList_Filters — фильтры по группе и диапазону балла.
func TestStudentList_Filters(t *testing.T) {
	pool := setupTestDB(t)
	seedStudents(t, pool)
	repo := NewStudentRepository(pool)
	ctx := context.Background()

	group := "8В91"
	students, err := repo.List(ctx, SearchParams{Group: &group})
	if err != nil {
		t.Fatalf("List по группе: %v", err)
	}
	if len(students) != 2 {
		t.Errorf("группа %s: %d результатов, ожидалось 2", group, len(students))
	}

	// NULL-балл трактуется как 0 и попадает в нижнюю границу 0
	minScore, maxScore := 0.0, 50.0
	students, err = repo.List(ctx, SearchParams{MinScore: &minScore, MaxScore: &maxScore})
	if err != nil {
		t.Fatalf("List по баллу: %v", err)
	}
	if len(students) != 1 || students[0].Login != "nullov05" {
		t.Errorf("диапазон 0-50: %d результатов", len(students))
	}

	// Нижняя граница выше нуля отсекает NULL-балл
	minScore = 81.0
	students, err = repo.List(ctx, SearchParams{MinScore: &minScore})
	if err != nil {
		t.Fatalf("List по min_score: %v", err)
	}
	if len(students) != 1 || students[0].Login != "ivanov01" {
		t.Errorf("min_score 81: %d результатов", len(students))
	}
}

// TestStudentList_SortAsc — сортировка по баллу по возрастанию.
func TestStudentList_SortAsc(t *testing.T) {
	pool := setupTestDB(t)
	seedStudents(t, pool)
	repo := NewStudentRepository(pool)
	ctx := context.Background()

	students, err := repo.List(ctx, SearchParams{SortBy: "score", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	want := []string{"nullov05", "abramov04", "petrov02", "sidorov03", "ivanov01"}
	for i, s := range students {
		if s.Login != want[i] {
			t.Errorf("порядок [%d] = %q, ожидался %q", i, s.Login, want[i])
		}
	}
}

// TestStudentList_UnknownSort — неизвестное поле сортировки
// молча деградирует к основному порядку.
func TestStudentList_UnknownSort(t *testing.T) {
	pool := setupTestDB(t)
	seedStudents(t, pool)
	repo := NewStudentRepository(pool)
	ctx := context.Background()

	students, err := repo.List(ctx, SearchParams{SortBy: "malicious; DROP TABLE students"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(students) == 0 || students[0].Login != "ivanov01" {
		t.Error("ожидался основной порядок рейтинга")
	}
}

// TestStudentGetByLogin — точный логин и ErrNotFound.
func TestStudentGetByLogin(t *testing.T) {
	pool := setupTestDB(t)
	seedStudents(t, pool)
	repo := NewStudentRepository(pool)
	ctx := context.Background()

	s, err := repo.GetByLogin(ctx, "petrov02")
	if err != nil {
		t.Fatalf("GetByLogin: %v", err)
	}
	if s.Score() != 80.0 {
		t.Errorf("Score = %v", s.Score())
	}

	if _, err := repo.GetByLogin(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидался ErrNotFound, получено %v", err)
	}
}

// --- Тесты UserRepository ---

// TestUserCreateConflict — дубликат tpu_user_id даёт ErrConflict.
func TestUserCreateConflict(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	user := &model.User{
		ID:             uuid.NewString(),
		TPUUserID:      42,
		Email:          "ivanov01@tpu.ru",
		FirstName:      "Иван",
		LastName:       "Иванов",
		AccessToken:    "at-1",
		TokenExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreatedAt не заполнен базой")
	}

	dup := &model.User{
		ID:             uuid.NewString(),
		TPUUserID:      42,
		Email:          "other@tpu.ru",
		TokenExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("ожидался ErrConflict, получено %v", err)
	}
}

// TestUserUpdate — обновление токенов двигает updated_at.
func TestUserUpdate(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	user := &model.User{
		ID:             uuid.NewString(),
		TPUUserID:      7,
		Email:          "petrov02@tpu.ru",
		AccessToken:    "at-old",
		TokenExpiresAt: time.Now().Add(time.Hour),
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	createdUpdatedAt := user.UpdatedAt

	user.AccessToken = "at-new"
	if err := repo.Update(ctx, user); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if user.UpdatedAt.Before(createdUpdatedAt) {
		t.Error("updated_at не обновился")
	}

	got, err := repo.GetByTPUUserID(ctx, 7)
	if err != nil {
		t.Fatalf("GetByTPUUserID: %v", err)
	}
	if got.AccessToken != "at-new" {
		t.Errorf("AccessToken = %q", got.AccessToken)
	}

	// Update несуществующего — ErrNotFound
	ghost := &model.User{ID: uuid.NewString(), TPUUserID: 999}
	if err := repo.Update(ctx, ghost); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидался ErrNotFound, получено %v", err)
	}
}
