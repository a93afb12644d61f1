// Пакет events — явный канал публикации/подписки событий консоли.
// Заменяет глобальное событие браузера: издатель и подписчики
// получают брокер как зависимость.
package events

import (
	"context"
	"sync"
	"time"
)

// Типы событий.
const (
	// TypeOrganizationUpdated — профиль организации изменён.
	TypeOrganizationUpdated = "organization.updated"
)

// Event — событие консоли.
type Event struct {
	Type    string    `json:"type"`
	Tenant  string    `json:"tenant"`
	Name    string    `json:"name,omitempty"`
	Tagline string    `json:"tagline,omitempty"`
	At      time.Time `json:"at"`
}

// Broker — канал событий.
type Broker interface {
	// Publish доставляет событие всем текущим подписчикам.
	Publish(ctx context.Context, ev Event) error
	// Subscribe возвращает канал событий и функцию отписки.
	// Канал закрывается после отписки.
	Subscribe() (<-chan Event, func())
}

// subscriberBuffer — размер буфера канала подписчика. Медленный
// подписчик теряет события сверх буфера, издатель не блокируется.
const subscriberBuffer = 16

// hub — набор подписчиков внутри процесса.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Event)}
}

func (h *hub) subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; !ok {
			return
		}
		delete(h.subs, id)
		close(ch)
	}
}

func (h *hub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// MemoryBroker — брокер внутри одного процесса.
type MemoryBroker struct {
	hub *hub
}

// NewMemoryBroker создаёт брокер в памяти.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{hub: newHub()}
}

// Publish рассылает событие подписчикам.
func (b *MemoryBroker) Publish(_ context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.hub.broadcast(ev)
	return nil
}

// Subscribe подписывает на события.
func (b *MemoryBroker) Subscribe() (<-chan Event, func()) {
	return b.hub.subscribe()
}

// Close закрывает каналы всех подписчиков.
func (b *MemoryBroker) Close() error {
	b.hub.closeAll()
	return nil
}
