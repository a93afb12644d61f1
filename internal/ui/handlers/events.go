// events.go — SSE-потоки страницы: часы заголовка и изменения профиля организации.
// Поток живёт до отмены контекста запроса (закрытие страницы).
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Harinie05/HRM-sub002/internal/events"
	"github.com/Harinie05/HRM-sub002/internal/ui/auth"
)

// EventsHandler — обработчик SSE endpoints.
type EventsHandler struct {
	broker        events.Broker
	clockInterval time.Duration
	logger        *slog.Logger
}

// NewEventsHandler создаёт новый EventsHandler.
// clockInterval — период тика часов (HC_CLOCK_INTERVAL).
func NewEventsHandler(broker events.Broker, clockInterval time.Duration, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		broker:        broker,
		clockInterval: clockInterval,
		logger:        logger.With(slog.String("component", "ui.events")),
	}
}

// orgUpdatedEvent — данные SSE-события org-updated.
type orgUpdatedEvent struct {
	Name    string `json:"name"`
	Tagline string `json:"tagline"`
}

// startStream выставляет заголовки SSE и проверяет поддержку Flush.
func startStream(w http.ResponseWriter) (*http.ResponseController, bool) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// ResponseController находит http.Flusher через Unwrap() обёрток middleware.
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		http.Error(w, "SSE не поддерживается", http.StatusInternalServerError)
		return nil, false
	}
	return rc, true
}

// HandleClock обрабатывает GET /events/clock.
// Формат: event: clock\ndata: 15:04:05\n\n
func (h *EventsHandler) HandleClock(w http.ResponseWriter, r *http.Request) {
	rc, ok := startStream(w)
	if !ok {
		return
	}
	ctx := r.Context()

	send := func(t time.Time) error {
		if _, err := fmt.Fprintf(w, "event: clock\ndata: %s\n\n", t.Format(clockLayout)); err != nil {
			return err
		}
		return rc.Flush()
	}
	if err := send(time.Now()); err != nil {
		return
	}

	ticker := time.NewTicker(h.clockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			if err := send(t); err != nil {
				return
			}
		}
	}
}

// HandleOrganization обрабатывает GET /events/org — пересылает клиенту
// события изменения профиля организации его тенанта.
// Подписка на брокер освобождается при отключении клиента.
func (h *EventsHandler) HandleOrganization(w http.ResponseWriter, r *http.Request) {
	sess, _ := scope(r)
	tenant := sess.Get(auth.KeyTenant)

	rc, ok := startStream(w)
	if !ok {
		return
	}
	ctx := r.Context()

	ch, unsubscribe := h.broker.Subscribe()
	defer unsubscribe()

	clientID := uuid.NewString()
	h.logger.Debug("SSE клиент подключён",
		slog.String("client_id", clientID),
		slog.String("tenant", tenant),
	)

	// Комментарий SSE подтверждает подписку клиенту.
	if _, err := fmt.Fprint(w, ": subscribed\n\n"); err != nil {
		return
	}
	_ = rc.Flush()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE клиент отключён",
				slog.String("client_id", clientID),
			)
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			if ev.Type != events.TypeOrganizationUpdated || ev.Tenant != tenant {
				continue
			}
			data, err := json.Marshal(orgUpdatedEvent{Name: ev.Name, Tagline: ev.Tagline})
			if err != nil {
				h.logger.Error("Ошибка сериализации org-updated", slog.String("error", err.Error()))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: org-updated\ndata: %s\n\n", data); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}
