// demo.go — демонстрационные данные для виджетов фронтенда.
// Реальных источников для "героев недели", достижений и расширенной
// статистики профиля пока нет: данные синтезируются из текущего рейтинга
// детерминированно, чтобы интерфейс был стабилен между запросами.
// TODO: заменить на реальные данные после подключения выгрузки активности.
package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/cxurescry/leaderboard-TPU/internal/domain/model"
	"github.com/cxurescry/leaderboard-TPU/internal/repository"
)

// WeeklyTopEntry — участник топа недели.
type WeeklyTopEntry struct {
	Name            string `json:"name"`
	Login           string `json:"login"`
	PointsGained    int    `json:"pointsGained"`
	PositionsGained int    `json:"positionsGained"`
}

// Achievement — событие в ленте достижений.
type Achievement struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Time string `json:"time"`
}

// ProfileStatistics — расширенная статистика профиля.
type ProfileStatistics struct {
	ProjectsCount      int     `json:"projectsCount"`
	AveragePerformance float64 `json:"averagePerformance"`
	TotalHours         int     `json:"totalHours"`
	IndividualRank     int     `json:"individualRank"`
	CurrentScore       float64 `json:"currentScore"`
	TeamRank           int     `json:"teamRank,omitempty"`
	TeamContribution   float64 `json:"teamContribution,omitempty"`
}

// ProjectEntry — участие студента в команде или проекте.
type ProjectEntry struct {
	Name              string `json:"name"`
	Status            string `json:"status"`
	Team              string `json:"team"`
	TeamLink          string `json:"team_link"`
	ParticipationTime string `json:"participation_time"`
	Role              string `json:"role"`
}

// WeeklyHoursPoint — точка графика часов по неделям (шкала до 40).
type WeeklyHoursPoint struct {
	Hours int `json:"hours"`
}

// PerformancePoint — точка графика успеваемости (шкала до 5).
type PerformancePoint struct {
	Score float64 `json:"score"`
}

// ProfileCharts — данные инфографики профиля.
type ProfileCharts struct {
	WeeklyHours []WeeklyHoursPoint `json:"weeklyHours"`
	Performance []PerformancePoint `json:"performance"`
}

// DemoService — синтез демонстрационных данных из рейтинга.
type DemoService struct {
	leaderboard *LeaderboardService
}

// NewDemoService создаёт сервис демонстрационных данных.
func NewDemoService(leaderboard *LeaderboardService) *DemoService {
	return &DemoService{leaderboard: leaderboard}
}

// seededRand возвращает детерминированный генератор для логина.
// Одинаковый логин — одинаковые демо-числа между запросами.
func seededRand(login string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(login))
	return rand.New(rand.NewSource(int64(h.Sum64()))) //nolint:gosec // демо-данные, не криптография
}

// TopWeekly возвращает до трёх "героев недели" из верхушки рейтинга.
func (d *DemoService) TopWeekly(ctx context.Context) ([]*WeeklyTopEntry, error) {
	ranked, err := d.leaderboard.List(ctx, topParams())
	if err != nil {
		return nil, err
	}

	limit := 3
	if len(ranked) < limit {
		limit = len(ranked)
	}

	entries := make([]*WeeklyTopEntry, 0, limit)
	for _, rs := range ranked[:limit] {
		rng := seededRand(rs.Student.Login)
		entries = append(entries, &WeeklyTopEntry{
			Name:            rs.Student.FullName(),
			Login:           rs.Student.Login,
			PointsGained:    5 + rng.Intn(26),
			PositionsGained: rng.Intn(4),
		})
	}
	return entries, nil
}

// Achievements возвращает ленту достижений.
// Для вошедшего пользователя первая запись персонализирована:
// login — логин студента из сессии, пустая строка — гость.
func (d *DemoService) Achievements(ctx context.Context, login string) ([]*Achievement, error) {
	ranked, err := d.leaderboard.List(ctx, topParams())
	if err != nil {
		return nil, err
	}

	achievements := make([]*Achievement, 0, 4)
	if login != "" {
		rng := seededRand(login)
		achievements = append(achievements, &Achievement{
			Type: "score",
			Text: fmt.Sprintf("Вы набрали %d баллов за эту неделю", 3+rng.Intn(15)),
			Time: relativeTime(1 + rng.Intn(5)),
		})
	}

	for i, rs := range ranked {
		if len(achievements) >= 4 {
			break
		}
		rng := seededRand(rs.Student.Login)
		achievements = append(achievements, &Achievement{
			Type: achievementType(i),
			Text: fmt.Sprintf("%s поднялся в рейтинге на %d место", rs.Student.FullName(), rs.Position),
			Time: relativeTime(2 + rng.Intn(20)),
		})
	}
	return achievements, nil
}

// Statistics возвращает расширенную статистику профиля.
// position — реальная позиция в общем рейтинге, score — реальный балл;
// остальные поля синтезируются.
func (d *DemoService) Statistics(student *model.Student, position int) *ProfileStatistics {
	rng := seededRand(student.Login)

	// Первое значение генератора — количество проектов, тот же вызов
	// делает Projects: числа на странице профиля согласованы.
	stats := &ProfileStatistics{
		ProjectsCount:      1 + rng.Intn(3),
		AveragePerformance: roundScore(60 + rng.Float64()*40),
		TotalHours:         20 + rng.Intn(180),
		IndividualRank:     position,
		CurrentScore:       roundScore(student.Score()),
	}
	if rng.Intn(2) == 1 {
		stats.TeamRank = 1 + rng.Intn(10)
		stats.TeamContribution = roundScore(10 + rng.Float64()*40)
	}
	return stats
}

// Пулы названий для демо-проектов профиля.
var (
	demoProjectNames = []string{
		"Умный кампус", "Цифровой деканат", "Киберполигон",
		"Беспилотный трамвай", "Экомониторинг Томи",
	}
	demoTeamNames    = []string{"Политехники", "Вектор", "Квант", "Импульс"}
	demoProjectRoles = []string{"Разработчик", "Аналитик", "Тимлид", "Тестировщик"}
)

// Projects возвращает команды и проекты студента.
// Первое значение генератора — количество записей, оно же projectsCount
// в Statistics для того же логина.
func (d *DemoService) Projects(student *model.Student) []*ProjectEntry {
	rng := seededRand(student.Login)
	count := 1 + rng.Intn(3)

	entries := make([]*ProjectEntry, 0, count)
	for i := 0; i < count; i++ {
		status := "Завершён"
		if i == 0 {
			status = "Текущий"
		}
		entries = append(entries, &ProjectEntry{
			Name:              demoProjectNames[rng.Intn(len(demoProjectNames))],
			Status:            status,
			Team:              demoTeamNames[rng.Intn(len(demoTeamNames))],
			TeamLink:          fmt.Sprintf("/teams/%d", 1+rng.Intn(20)),
			ParticipationTime: fmt.Sprintf("%d мес.", 1+rng.Intn(18)),
			Role:              demoProjectRoles[rng.Intn(len(demoProjectRoles))],
		})
	}
	return entries
}

// Недель в семестре для графиков инфографики.
const chartWeeks = 17

// Charts возвращает данные инфографики профиля: часы работы по неделям
// и успеваемость. Шкалы фронтенда: часы до 40, балл до 5.
func (d *DemoService) Charts(student *model.Student) *ProfileCharts {
	rng := seededRand(student.Login + "#charts")
	charts := &ProfileCharts{
		WeeklyHours: make([]WeeklyHoursPoint, chartWeeks),
		Performance: make([]PerformancePoint, chartWeeks),
	}
	for i := 0; i < chartWeeks; i++ {
		charts.WeeklyHours[i] = WeeklyHoursPoint{Hours: 4 + rng.Intn(37)}
		charts.Performance[i] = PerformancePoint{Score: roundScore(2.5 + rng.Float64()*2.5)}
	}
	return charts
}

// Roles возвращает бейджи ролей для шапки профиля.
func (d *DemoService) Roles(student *model.Student) []string {
	rng := seededRand(student.Login + "#roles")
	roles := []string{"Студент"}
	if rng.Intn(3) == 0 {
		extra := []string{"Староста", "Капитан команды", "Активист"}
		roles = append(roles, extra[rng.Intn(len(extra))])
	}
	return roles
}

// topParams — параметры выборки верхушки рейтинга в основном порядке.
func topParams() repository.SearchParams {
	return repository.SearchParams{SortBy: "score", SortOrder: "desc"}
}

// achievementType циклически выбирает тип события для ленты.
func achievementType(i int) string {
	types := []string{"rank", "streak", "project"}
	return types[i%len(types)]
}

// relativeTime форматирует давность события для ленты:
// "2 часа назад", "вчера", "3 дня назад".
func relativeTime(hoursAgo int) string {
	switch {
	case hoursAgo < 24:
		return fmt.Sprintf("%d %s назад", hoursAgo, plural(hoursAgo, "час", "часа", "часов"))
	case hoursAgo < 48:
		return "вчера"
	default:
		days := hoursAgo / 24
		return fmt.Sprintf("%d %s назад", days, plural(days, "день", "дня", "дней"))
	}
}

// plural выбирает форму существительного для числительного.
func plural(n int, one, few, many string) string {
	n %= 100
	if n >= 11 && n <= 14 {
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	}
	return many
}
