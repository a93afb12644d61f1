// Пакет auth — сессии HRM Console: объект сессии, хранилища
// (зашифрованный cookie AES-256-GCM или Redis), CSRF и разбор токена backend.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/Harinie05/HRM-sub002/internal/backend"
)

// Имя cookie сессии.
const SessionCookieName = "hrm_session"

// Ключи значений сессии. Значения хранятся строками.
const (
	KeyEmail               = "email"
	KeyUserName            = "user_name"
	KeyRoleName            = "role_name"
	KeyLoginType           = "login_type"
	KeyIsAdmin             = "is_admin"
	KeyPermissions         = "permissions"
	KeyTenant              = "tenant_db"
	KeyAccessToken         = "access_token"
	KeyOrganizationName    = "organization_name"
	KeyOrganizationTagline = "organization_tagline"
)

// ErrSessionCorrupt — сохранённая сессия не читается (подмена cookie, смена ключа).
var ErrSessionCorrupt = errors.New("сессия повреждена")

// Виды flash-сообщений.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash — одноразовое уведомление, показываемое на следующей странице.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session — данные сессии одного пользователя.
// Создаётся хранилищем на каждый запрос и передаётся обработчикам явно
// через контекст запроса.
type Session struct {
	ID      string
	values  map[string]string
	flashes []Flash

	// previousID — идентификатор до Regenerate, удаляется при фиксации.
	previousID string

	isNew     bool
	dirty     bool
	destroyed bool
}

// payload — сериализуемое представление сессии.
type payload struct {
	ID      string            `json:"id"`
	Values  map[string]string `json:"values"`
	Flashes []Flash           `json:"flashes,omitempty"`
}

// NewSession создаёт пустую сессию с новым идентификатором.
func NewSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

func sessionFromPayload(p payload) *Session {
	values := p.Values
	if values == nil {
		values = make(map[string]string)
	}
	return &Session{ID: p.ID, values: values, flashes: p.Flashes}
}

func (s *Session) payload() payload {
	return payload{ID: s.ID, Values: s.values, Flashes: s.flashes}
}

// Get возвращает значение по ключу или пустую строку.
func (s *Session) Get(key string) string {
	if s == nil || s.values == nil {
		return ""
	}
	return s.values[key]
}

// Set сохраняет значение.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if cur, ok := s.values[key]; ok && cur == value {
		return
	}
	s.values[key] = value
	s.dirty = true
}

// Delete удаляет значение.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetAll записывает набор значений за один вызов (используется при входе).
func (s *Session) SetAll(values map[string]string) {
	for k, v := range values {
		s.Set(k, v)
	}
}

// Regenerate выдаёт сессии новый идентификатор и сбрасывает CSRF-токен.
// Вызывается при входе, чтобы идентификатор, известный до входа,
// не стал идентификатором аутентифицированной сессии.
func (s *Session) Regenerate() {
	if s.previousID == "" && !s.isNew {
		s.previousID = s.ID
	}
	s.ID = uuid.NewString()
	delete(s.values, CSRFSessionKey)
	s.dirty = true
}

// PreviousID возвращает идентификатор, заменённый Regenerate.
func (s *Session) PreviousID() string {
	return s.previousID
}

// Authenticated сообщает, выполнен ли вход.
func (s *Session) Authenticated() bool {
	return s.Get(KeyAccessToken) != ""
}

// Credentials возвращает токен и тенант для запросов к backend.
func (s *Session) Credentials() backend.Credentials {
	return backend.Credentials{
		AccessToken: s.Get(KeyAccessToken),
		Tenant:      s.Get(KeyTenant),
	}
}

// Clear удаляет все значения и помечает сессию к уничтожению.
// При фиксации хранилище удаляет данные и cookie.
func (s *Session) Clear() {
	s.values = make(map[string]string)
	s.flashes = nil
	s.destroyed = true
	s.dirty = true
}

// Destroyed сообщает, была ли сессия очищена в этом запросе.
func (s *Session) Destroyed() bool {
	return s.destroyed
}

// AddFlash добавляет уведомление в очередь.
func (s *Session) AddFlash(kind, message string) {
	s.flashes = append(s.flashes, Flash{Kind: kind, Message: message})
	s.dirty = true
}

// PopFlashes возвращает и очищает накопленные уведомления.
func (s *Session) PopFlashes() []Flash {
	if len(s.flashes) == 0 {
		return nil
	}
	out := s.flashes
	s.flashes = nil
	s.dirty = true
	return out
}

// Store — хранилище сессий.
type Store interface {
	// Load возвращает сессию запроса или новую пустую сессию.
	// При повреждённых данных возвращает новую сессию и ErrSessionCorrupt.
	Load(ctx context.Context, r *http.Request) (*Session, error)
	// Commit сохраняет изменения сессии и выставляет cookie.
	Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error
	// Check сообщает, сможет ли Commit сохранить сессию в текущем виде.
	Check(sess *Session) error
}

// expiredCookie возвращает cookie, удаляющий сессию в браузере.
func expiredCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
