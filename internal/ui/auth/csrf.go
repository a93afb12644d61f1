package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"
)

const (
	// CSRFSessionKey — ключ токена в сессии.
	CSRFSessionKey = "csrf_token"
	// CSRFFormField — имя поля формы с токеном.
	CSRFFormField = "csrf_token"
	// CSRFHeader — заголовок с токеном для fetch-запросов.
	CSRFHeader = "X-CSRF-Token"
)

var (
	ErrCSRFTokenMissing  = errors.New("csrf-токен отсутствует")
	ErrCSRFTokenMismatch = errors.New("csrf-токен не совпадает")
)

// CSRFManager выдаёт и проверяет CSRF-токены, привязанные к сессии.
type CSRFManager struct {
	secret []byte
}

// NewCSRFManager создаёт менеджер с секретом HMAC.
func NewCSRFManager(secret string) *CSRFManager {
	return &CSRFManager{secret: []byte(secret)}
}

// EnsureToken возвращает токен сессии, создавая его при отсутствии.
func (m *CSRFManager) EnsureToken(sess *Session) string {
	if token := sess.Get(CSRFSessionKey); token != "" {
		return token
	}
	token := m.generateToken(sess.ID)
	sess.Set(CSRFSessionKey, token)
	return token
}

// VerifyToken сравнивает переданный токен с токеном сессии.
func (m *CSRFManager) VerifyToken(sess *Session, token string) error {
	expected := sess.Get(CSRFSessionKey)
	if expected == "" || token == "" {
		return ErrCSRFTokenMissing
	}
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return ErrCSRFTokenMismatch
	}
	return nil
}

func (m *CSRFManager) generateToken(sessionID string) string {
	mac := hmac.New(sha256.New, m.secret)
	_, _ = mac.Write([]byte(sessionID))
	_, _ = mac.Write([]byte{'|'})
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(time.Now().UnixNano()))
	_, _ = mac.Write(buf)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
