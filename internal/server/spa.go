// spa.go — раздача статики фронтенда с fallback на index.html.
// Client-side routing: неизвестные пути вне API отдают index.html,
// маршрутизацию выполняет SPA.
package server

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	apierrors "github.com/cxurescry/leaderboard-TPU/internal/api/errors"
)

// SPAHandler — обработчик статических файлов SPA.
type SPAHandler struct {
	staticDir string
	logger    *slog.Logger
}

// NewSPAHandler создаёт обработчик статики.
// staticDir — каталог со сборкой фронтенда (index.html, assets).
func NewSPAHandler(staticDir string, logger *slog.Logger) *SPAHandler {
	return &SPAHandler{
		staticDir: staticDir,
		logger:    logger.With(slog.String("component", "spa")),
	}
}

// ServeHTTP отдаёт запрошенный файл из staticDir либо index.html.
// Пути /api/ и /auth/ сюда не попадают в штатной маршрутизации,
// но на неизвестных подпутях отвечаем 404 JSON, а не index.html.
func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/auth/") {
		apierrors.NotFound(w, "Неизвестный endpoint")
		return
	}

	// filepath.Clean отсекает выход за пределы staticDir через "..".
	relPath := filepath.Clean(strings.TrimPrefix(r.URL.Path, "/"))
	if relPath == "." || strings.HasPrefix(relPath, "..") {
		relPath = "index.html"
	}

	fullPath := filepath.Join(h.staticDir, relPath)
	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		fullPath = filepath.Join(h.staticDir, "index.html")
		if _, err := os.Stat(fullPath); err != nil {
			h.logger.Warn("index.html не найден", slog.String("static_dir", h.staticDir))
			http.Error(w, "frontend build not found", http.StatusNotFound)
			return
		}
	}

	http.ServeFile(w, r, fullPath)
}
