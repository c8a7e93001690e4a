// leaderboard.go — обработчики рейтинга: список, позиция пользователя,
// профиль студента, демо-виджеты.
// Ключи JSON лидерборда исторические (кириллица) — их ожидает фронтенд.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/cxurescry/leaderboard-TPU/internal/api/errors"
	"github.com/cxurescry/leaderboard-TPU/internal/api/middleware"
	"github.com/cxurescry/leaderboard-TPU/internal/auth"
	"github.com/cxurescry/leaderboard-TPU/internal/repository"
	"github.com/cxurescry/leaderboard-TPU/internal/service"
)

// LeaderboardHandler — обработчики /api/*.
type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
	demo        *service.DemoService
	sessions    *auth.SessionManager
	logger      *slog.Logger
}

// NewLeaderboardHandler создаёт обработчик рейтинга.
func NewLeaderboardHandler(
	leaderboard *service.LeaderboardService,
	demo *service.DemoService,
	sessions *auth.SessionManager,
	logger *slog.Logger,
) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboard: leaderboard,
		demo:        demo,
		sessions:    sessions,
		logger:      logger.With(slog.String("component", "leaderboard_handler")),
	}
}

// leaderboardItem — строка рейтинга в wire-формате фронтенда.
type leaderboardItem struct {
	Position int     `json:"Место"`
	FullName string  `json:"ФИО"`
	School   string  `json:"Школа"`
	Group    *string `json:"Группа"`
	Score    float64 `json:"Счет_баллов"`
	Login    string  `json:"login"`
}

// HandleLeaderboard — GET /api/leaderboard.
// Фильтры: search, school, group, min_score, max_score.
// Сортировка: sort_by (group, school, year, score), sort_order (asc, desc).
// Некорректные значения параметров молча приводятся к значениям по умолчанию.
func (h *LeaderboardHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := repository.SearchParams{
		Search:    optionalString(q.Get("search")),
		School:    optionalString(q.Get("school")),
		Group:     optionalString(q.Get("group")),
		MinScore:  optionalFloat(q.Get("min_score")),
		MaxScore:  optionalFloat(q.Get("max_score")),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}

	ranked, err := h.leaderboard.List(r.Context(), params)
	if err != nil {
		h.logger.Error("ошибка запроса рейтинга", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка при запросе рейтинга")
		return
	}

	items := make([]leaderboardItem, len(ranked))
	for i, rs := range ranked {
		items[i] = leaderboardItem{
			Position: rs.Position,
			FullName: rs.Student.FullName(),
			School:   rs.Student.School(),
			Group:    rs.Student.StudentGroup,
			Score:    rs.Student.Score(),
			Login:    rs.Student.Login,
		}
	}

	writeJSON(w, http.StatusOK, items)
}

// rankResponse — позиция вошедшего пользователя.
type rankResponse struct {
	Position  int     `json:"position"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	FullName  string  `json:"fullName"`
	Score     float64 `json:"score"`
}

// HandleUserRank — GET /api/user/rank.
// Ищет позицию вошедшего пользователя в общем рейтинге по email.
// Тело "null", если студент не найден. Требует RequireSession middleware.
func (h *LeaderboardHandler) HandleUserRank(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil || session.UserInfo == nil {
		apierrors.Unauthenticated(w, "Не аутентифицирован")
		return
	}

	rank, err := h.leaderboard.RankByEmail(r.Context(), session.UserInfo.Email)
	if err != nil {
		h.logger.Error("ошибка поиска позиции пользователя",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при поиске позиции")
		return
	}
	if rank == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	resp := rankResponse{
		Position:  rank.Position,
		FirstName: rank.FirstName,
		LastName:  rank.LastName,
		FullName:  rank.FullName,
		Score:     rank.Score,
	}
	// В выгрузке рейтинга имена бывают пустыми — берём их из профиля ТПУ.
	if resp.FirstName == "" {
		resp.FirstName = session.UserInfo.FirstName
	}
	if resp.LastName == "" {
		resp.LastName = session.UserInfo.LastName
	}

	writeJSON(w, http.StatusOK, resp)
}

// profileResponse — профиль студента для страницы профиля.
// Поля direction, course, debts, roles, projects и charts читает
// фронтенд (Profile.jsx); projects и charts — демо-данные.
type profileResponse struct {
	Login      string                     `json:"login"`
	FullName   string                     `json:"fullName"`
	FirstName  string                     `json:"firstName,omitempty"`
	LastName   string                     `json:"lastName,omitempty"`
	School     string                     `json:"school"`
	Direction  string                     `json:"direction"`
	Group      *string                    `json:"group"`
	Course     *int                       `json:"course"`
	Debts      int                        `json:"debts"`
	Roles      []string                   `json:"roles"`
	Position   int                        `json:"position"`
	Score      float64                    `json:"score"`
	Statistics *service.ProfileStatistics `json:"statistics"`
	Projects   []*service.ProjectEntry    `json:"projects"`
	Charts     *service.ProfileCharts     `json:"charts"`
}

// HandleProfile — GET /api/profile/{login}.
// Профиль студента с позицией в общем рейтинге, статистикой,
// проектами и инфографикой.
func (h *LeaderboardHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	login := chi.URLParam(r, "login")
	if !validLogin(login) {
		apierrors.ValidationError(w, "Некорректный логин")
		return
	}

	profile, err := h.leaderboard.Profile(r.Context(), login)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Студент не найден")
			return
		}
		h.logger.Error("ошибка запроса профиля",
			slog.String("login", login),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при запросе профиля")
		return
	}

	st := profile.Student
	writeJSON(w, http.StatusOK, profileResponse{
		Login:      st.Login,
		FullName:   st.FullName(),
		FirstName:  strDeref(st.FirstName),
		LastName:   strDeref(st.LastName),
		School:     st.School(),
		Direction:  strDeref(st.DirectionName),
		Group:      st.StudentGroup,
		Course:     st.StudyYear,
		Debts:      st.Debts(),
		Roles:      h.demo.Roles(st),
		Position:   profile.Position,
		Score:      st.Score(),
		Statistics: h.demo.Statistics(st, profile.Position),
		Projects:   h.demo.Projects(st),
		Charts:     h.demo.Charts(st),
	})
}

// HandleTopWeekly — GET /api/top-weekly.
func (h *LeaderboardHandler) HandleTopWeekly(w http.ResponseWriter, r *http.Request) {
	entries, err := h.demo.TopWeekly(r.Context())
	if err != nil {
		h.logger.Error("ошибка формирования топа недели", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleAchievements — GET /api/achievements.
// Лента доступна и гостям; для вошедшего пользователя первая запись
// персонализируется по логину из email.
func (h *LeaderboardHandler) HandleAchievements(w http.ResponseWriter, r *http.Request) {
	login := ""
	if session, err := h.sessions.GetSessionFromRequest(r); err == nil && session.Authenticated() {
		login = emailLocalPart(session.UserInfo.Email)
	}

	achievements, err := h.demo.Achievements(r.Context(), login)
	if err != nil {
		h.logger.Error("ошибка формирования ленты достижений", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка")
		return
	}
	writeJSON(w, http.StatusOK, achievements)
}

// optionalString возвращает указатель на непустую строку.
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// optionalFloat парсит число из query-параметра, мусор игнорируется.
func optionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// validLogin проверяет, что path-параметр похож на корпоративный логин.
func validLogin(login string) bool {
	if login == "" || len(login) > 64 {
		return false
	}
	for i := 0; i < len(login); i++ {
		c := login[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.' || c == '_' || c == '-' || c == '@':
		default:
			return false
		}
	}
	return true
}

// strDeref возвращает значение указателя или пустую строку.
func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// emailLocalPart возвращает локальную часть email.
func emailLocalPart(email string) string {
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return email
}
