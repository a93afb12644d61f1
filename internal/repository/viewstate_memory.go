package repository

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
)

// Prometheus-метрики view state.
var (
	viewStateHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hrm_console_viewstate_hits_total",
		Help: "Количество попаданий в снимки view state.",
	})
	viewStateMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hrm_console_viewstate_misses_total",
		Help: "Количество промахов снимков view state.",
	})
)

// memoryViewState — LRU-хранилище снимков с TTL в памяти процесса.
// Подходит для одного экземпляра консоли.
type memoryViewState struct {
	cache *expirable.LRU[string, []model.Record]
}

// NewMemoryViewState создаёт хранилище снимков в памяти.
// maxSize — максимальное количество снимков, ttl — время жизни снимка.
func NewMemoryViewState(maxSize int, ttl time.Duration) ViewStateRepository {
	return &memoryViewState{
		cache: expirable.NewLRU[string, []model.Record](maxSize, nil, ttl),
	}
}

func (m *memoryViewState) Get(_ context.Context, sessionID, key string) ([]model.Record, error) {
	records, ok := m.cache.Get(viewStateKey(sessionID, key))
	if !ok {
		viewStateMissesTotal.Inc()
		return nil, ErrNotFound
	}
	viewStateHitsTotal.Inc()
	return records, nil
}

func (m *memoryViewState) Put(_ context.Context, sessionID, key string, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	m.cache.Add(viewStateKey(sessionID, key), records)
	return nil
}

func (m *memoryViewState) DropSession(_ context.Context, sessionID string) error {
	prefix := sessionID + "|"
	for _, k := range m.cache.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.cache.Remove(k)
		}
	}
	return nil
}

func viewStateKey(sessionID, key string) string {
	return sessionID + "|" + key
}
