// Пакет service — бизнес-логика сервиса лидерборда.
// CacheService — LRU-кэш профилей студентов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cxurescry/leaderboard-TPU/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lb_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш профилей.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lb_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша профилей.",
	})
)

// CacheService — LRU-кэш профилей студентов с автоматическим TTL.
// Кэш per-instance: рейтинг обновляется выгрузками, строгая свежесть не нужна.
type CacheService struct {
	cache *expirable.LRU[string, *model.Student]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
// maxSize — максимальное количество записей в кэше.
// ttl — время жизни записи после добавления.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.Student](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает студента из кэша по логину.
// Возвращает (запись, true) при hit или (nil, false) при miss.
// Обновляет Prometheus-метрики hit/miss.
func (c *CacheService) Get(login string) (*model.Student, bool) {
	val, ok := c.cache.Get(login)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(login string, student *model.Student) {
	c.cache.Add(login, student)
}

// Delete удаляет запись из кэша.
func (c *CacheService) Delete(login string) {
	c.cache.Remove(login)
}
