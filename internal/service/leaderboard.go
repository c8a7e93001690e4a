// leaderboard.go — сервис рейтинга студентов.
// Координирует repository, LRU cache и Prometheus-метрики.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cxurescry/leaderboard-TPU/internal/domain/model"
	"github.com/cxurescry/leaderboard-TPU/internal/repository"
)

// Prometheus-метрики лидерборда.
var (
	leaderboardQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lb_leaderboard_queries_total",
		Help: "Общее количество запросов рейтинга.",
	})
	leaderboardQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lb_leaderboard_query_duration_seconds",
		Help:    "Длительность запросов рейтинга.",
		Buckets: prometheus.DefBuckets,
	})
	rankLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lb_rank_lookups_total",
		Help: "Количество поисков позиции пользователя по email.",
	}, []string{"result"})
)

// RankedStudent — студент с позицией в отфильтрованной выборке.
type RankedStudent struct {
	// Position — порядковый номер в выборке, начиная с 1.
	Position int
	// Student — данные студента.
	Student *model.Student
}

// RankResult — позиция вошедшего пользователя в общем рейтинге.
type RankResult struct {
	// Position — место в общем рейтинге (1-based).
	Position int
	// FirstName, LastName, FullName — данные из записи студента.
	FirstName string
	LastName  string
	FullName  string
	// Score — балл, округлённый до одного знака.
	Score float64
}

// StudentProfile — профиль студента с позицией в общем рейтинге.
type StudentProfile struct {
	// Student — данные студента.
	Student *model.Student
	// Position — место в общем рейтинге, 0 — если не удалось определить.
	Position int
}

// LeaderboardService — выдача рейтинга, поиск позиции и профили.
type LeaderboardService struct {
	students repository.StudentRepository
	cache    *CacheService
	logger   *slog.Logger
}

// NewLeaderboardService создаёт сервис рейтинга.
func NewLeaderboardService(
	students repository.StudentRepository,
	cache *CacheService,
	logger *slog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		students: students,
		cache:    cache,
		logger:   logger.With(slog.String("component", "leaderboard_service")),
	}
}

// List возвращает студентов по фильтрам с позициями.
// Позиции нумеруются внутри выборки: фильтрация меняет номера мест.
func (s *LeaderboardService) List(ctx context.Context, params repository.SearchParams) ([]*RankedStudent, error) {
	start := time.Now()
	leaderboardQueriesTotal.Inc()

	students, err := s.students.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("запрос рейтинга: %w", err)
	}

	ranked := make([]*RankedStudent, len(students))
	for i, st := range students {
		ranked[i] = &RankedStudent{Position: i + 1, Student: st}
	}

	leaderboardQueryDuration.Observe(time.Since(start).Seconds())
	return ranked, nil
}

// RankByEmail находит позицию пользователя в общем рейтинге по email.
// Логин выводится из email: сначала точное совпадение локальной части,
// затем поиск подстроки по логинам. Подстрочный поиск может дать ложное
// совпадение на коротких логинах, точное совпадение всегда в приоритете.
// Возвращает (nil, nil), если студент не найден.
func (s *LeaderboardService) RankByEmail(ctx context.Context, email string) (*RankResult, error) {
	ranked, err := s.students.ListRanked(ctx)
	if err != nil {
		return nil, fmt.Errorf("запрос общего рейтинга: %w", err)
	}

	localPart, _, _ := strings.Cut(email, "@")
	localPart = strings.ToLower(localPart)
	if localPart == "" {
		rankLookupsTotal.WithLabelValues("miss").Inc()
		return nil, nil
	}

	position, student := findByLogin(ranked, localPart)
	if student == nil {
		rankLookupsTotal.WithLabelValues("miss").Inc()
		return nil, nil
	}

	rankLookupsTotal.WithLabelValues("hit").Inc()
	return &RankResult{
		Position:  position,
		FirstName: deref(student.FirstName),
		LastName:  deref(student.LastName),
		FullName:  student.FullName(),
		Score:     roundScore(student.Score()),
	}, nil
}

// findByLogin ищет студента в рейтинге: точное совпадение логина,
// затем первое вхождение подстроки. Возвращает (позиция, студент).
func findByLogin(ranked []*model.Student, localPart string) (int, *model.Student) {
	for i, st := range ranked {
		if strings.ToLower(st.Login) == localPart {
			return i + 1, st
		}
	}
	for i, st := range ranked {
		if strings.Contains(strings.ToLower(st.Login), localPart) {
			return i + 1, st
		}
	}
	return 0, nil
}

// Profile возвращает профиль студента по логину с позицией в общем рейтинге.
// Данные студента кэшируются, позиция вычисляется на каждый запрос.
// Возвращает ErrNotFound, если логина нет в рейтинге.
func (s *LeaderboardService) Profile(ctx context.Context, login string) (*StudentProfile, error) {
	student, ok := s.cache.Get(login)
	if !ok {
		var err error
		student, err = s.students.GetByLogin(ctx, login)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("запрос студента %s: %w", login, err)
		}
		s.cache.Set(login, student)
	}

	position := 0
	ranked, err := s.students.ListRanked(ctx)
	if err != nil {
		s.logger.Warn("не удалось вычислить позицию для профиля",
			slog.String("login", login),
			slog.String("error", err.Error()),
		)
	} else {
		for i, st := range ranked {
			if st.Login == student.Login {
				position = i + 1
				break
			}
		}
	}

	return &StudentProfile{Student: student, Position: position}, nil
}

// roundScore округляет балл до одного знака после запятой.
func roundScore(score float64) float64 {
	return math.Round(score*10) / 10
}

// deref возвращает значение указателя или пустую строку.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
