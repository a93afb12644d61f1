package auth

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxCookieSize — предел размера значения cookie, принимаемый браузерами.
const maxCookieSize = 4000

// ErrCookieTooLarge — сессия не помещается в cookie (слишком длинный список прав).
var ErrCookieTooLarge = errors.New("сессия превышает допустимый размер cookie")

// CookieStore хранит сессию целиком в cookie, зашифрованном AES-256-GCM.
type CookieStore struct {
	gcm    cipher.AEAD
	ttl    time.Duration
	secure bool
}

// NewCookieStore создаёт хранилище сессий в зашифрованном cookie.
// key — base64 32-байтового ключа или произвольная строка (хешируется SHA-256).
// Пустой key генерирует случайный ключ, сессии не переживут рестарт.
func NewCookieStore(key string, ttl time.Duration, secure bool) (*CookieStore, error) {
	var keyBytes []byte

	if key == "" {
		keyBytes = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, keyBytes); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа сессии: %w", err)
		}
	} else {
		var err error
		keyBytes, err = base64.StdEncoding.DecodeString(key)
		if err != nil || len(keyBytes) != 32 {
			keyBytes = sha256Key(key)
		}
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	return &CookieStore{gcm: gcm, ttl: ttl, secure: secure}, nil
}

// Load расшифровывает сессию из cookie запроса.
func (cs *CookieStore) Load(_ context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return NewSession(), nil
		}
		return nil, err
	}

	p, err := cs.decrypt(cookie.Value)
	if err != nil {
		return NewSession(), fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	if p.ID == "" {
		return NewSession(), ErrSessionCorrupt
	}
	return sessionFromPayload(*p), nil
}

// Commit шифрует изменённую сессию в cookie. Очищенная сессия удаляет cookie.
func (cs *CookieStore) Commit(_ context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.destroyed {
		http.SetCookie(w, expiredCookie(cs.secure))
		return nil
	}
	if !sess.dirty && !sess.isNew {
		return nil
	}

	encrypted, err := cs.encode(sess)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encrypted,
		Path:     "/",
		MaxAge:   int(cs.ttl.Seconds()),
		HttpOnly: true,
		Secure:   cs.secure,
		SameSite: http.SameSiteLaxMode,
	})
	sess.dirty = false
	sess.isNew = false
	return nil
}

// Check проверяет, что зашифрованная сессия помещается в cookie.
func (cs *CookieStore) Check(sess *Session) error {
	_, err := cs.encode(sess)
	return err
}

func (cs *CookieStore) encode(sess *Session) (string, error) {
	encrypted, err := cs.encrypt(sess.payload())
	if err != nil {
		return "", err
	}
	if len(encrypted) > maxCookieSize {
		return "", ErrCookieTooLarge
	}
	return encrypted, nil
}

// encrypt шифрует payload и возвращает base64-строку (nonce в начале).
func (cs *CookieStore) encrypt(p payload) (string, error) {
	plaintext, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации сессии: %w", err)
	}

	nonce := make([]byte, cs.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	ciphertext := cs.gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// decrypt расшифровывает base64-строку обратно в payload.
func (cs *CookieStore) decrypt(encrypted string) (*payload, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("ошибка декодирования base64: %w", err)
	}

	nonceSize := cs.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("зашифрованные данные слишком короткие")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := cs.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка дешифрования сессии: %w", err)
	}

	var p payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return nil, fmt.Errorf("ошибка десериализации сессии: %w", err)
	}
	return &p, nil
}

// sha256Key хеширует строковый ключ в 32 байта.
func sha256Key(key string) []byte {
	h := sha256.Sum256([]byte(key))
	return h[:]
}
