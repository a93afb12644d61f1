// Пакет repository — хранилища состояния консоли: снимки коллекций,
// полученных страницами от backend (view state), в памяти процесса или в Redis.
package repository

import (
	"context"
	"errors"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — снимок не найден (не загружался или истёк).
	ErrNotFound = errors.New("запись не найдена")
)

// ViewStateRepository — снимки коллекций, привязанные к сессии.
// Ключ коллекции — ключ ресурса каталога.
type ViewStateRepository interface {
	// Get возвращает снимок коллекции. Если не найден — ErrNotFound.
	Get(ctx context.Context, sessionID, key string) ([]model.Record, error)
	// Put заменяет снимок коллекции.
	Put(ctx context.Context, sessionID, key string, records []model.Record) error
	// DropSession удаляет все снимки сессии (выход пользователя).
	DropSession(ctx context.Context, sessionID string) error
}
