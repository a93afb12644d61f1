package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBroker публикует события в канал Redis и раздаёт полученные
// из канала события локальным подписчикам. Событие, опубликованное
// любым экземпляром консоли, видят подписчики всех экземпляров.
type RedisBroker struct {
	client  *redis.Client
	channel string
	hub     *hub
	logger  *slog.Logger
	pubsub  *redis.PubSub
}

// NewRedisBroker создаёт брокер на Redis pub/sub.
// Для приёма событий нужно вызвать Start.
func NewRedisBroker(client *redis.Client, channel string, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{
		client:  client,
		channel: channel,
		hub:     newHub(),
		logger:  logger.With(slog.String("component", "events.redis")),
	}
}

// Start подписывается на канал и запускает фоновую раздачу событий.
// Возвращает управление после подтверждения подписки.
func (b *RedisBroker) Start(ctx context.Context) error {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("подписка на канал %s: %w", b.channel, err)
	}
	b.pubsub = ps

	go b.loop(ctx, ps.Channel())

	b.logger.Info("Подписка на канал событий",
		slog.String("channel", b.channel),
	)
	return nil
}

func (b *RedisBroker) loop(ctx context.Context, msgs <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("Некорректное событие в канале",
					slog.String("error", err.Error()),
				)
				continue
			}
			b.hub.broadcast(ev)
		}
	}
}

// Publish отправляет событие в канал Redis.
func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("сериализация события: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("публикация события %s: %w", ev.Type, err)
	}
	return nil
}

// Subscribe подписывает на события.
func (b *RedisBroker) Subscribe() (<-chan Event, func()) {
	return b.hub.subscribe()
}

// Close отписывается от канала и закрывает локальных подписчиков.
func (b *RedisBroker) Close() error {
	var err error
	if b.pubsub != nil {
		err = b.pubsub.Close()
	}
	b.hub.closeAll()
	return err
}
