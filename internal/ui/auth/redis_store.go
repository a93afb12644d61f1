package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore хранит сессии в Redis, в cookie передаётся только идентификатор.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// NewRedisStore создаёт хранилище сессий в Redis.
func NewRedisStore(client *redis.Client, ttl time.Duration, secure bool) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, secure: secure}
}

// Load читает сессию по идентификатору из cookie.
// Неизвестный или истёкший идентификатор даёт новую пустую сессию.
func (rs *RedisStore) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return NewSession(), nil
		}
		return nil, err
	}

	data, err := rs.client.Get(ctx, redisSessionKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return NewSession(), nil
		}
		return nil, fmt.Errorf("чтение сессии из Redis: %w", err)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return NewSession(), fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	p.ID = cookie.Value
	return sessionFromPayload(p), nil
}

// Commit сохраняет изменённую сессию и продлевает cookie.
func (rs *RedisStore) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.previousID != "" {
		if err := rs.client.Del(ctx, redisSessionKey(sess.previousID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("удаление прежней сессии из Redis: %w", err)
		}
		sess.previousID = ""
	}

	if sess.destroyed {
		if err := rs.client.Del(ctx, redisSessionKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("удаление сессии из Redis: %w", err)
		}
		http.SetCookie(w, expiredCookie(rs.secure))
		return nil
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sess.payload())
		if err != nil {
			return fmt.Errorf("ошибка сериализации сессии: %w", err)
		}
		if err := rs.client.Set(ctx, redisSessionKey(sess.ID), data, rs.ttl).Err(); err != nil {
			return fmt.Errorf("запись сессии в Redis: %w", err)
		}
		sess.dirty = false
		sess.isNew = false
	} else if err := rs.client.Expire(ctx, redisSessionKey(sess.ID), rs.ttl).Err(); err != nil {
		return fmt.Errorf("продление сессии в Redis: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  time.Now().Add(rs.ttl),
		HttpOnly: true,
		Secure:   rs.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Check всегда успешен: размер сессии в Redis не ограничен cookie.
func (rs *RedisStore) Check(*Session) error {
	return nil
}

func redisSessionKey(id string) string {
	return "hrm-console:session:" + id
}
