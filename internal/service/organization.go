// organization.go — профиль организации для боковой панели и страницы профиля.
//
// Имя и слоган организации кэшируются в сессии. При отсутствии кэша
// выполняется один запрос профиля; одновременные запросы одного тенанта
// с одним токеном объединяются (singleflight). Изменение профиля
// публикуется в брокер событий, подписчики перерисовывают блок организации.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/Harinie05/HRM-sub002/internal/backend"
	"github.com/Harinie05/HRM-sub002/internal/domain/model"
	"github.com/Harinie05/HRM-sub002/internal/events"
	"github.com/Harinie05/HRM-sub002/internal/resource"
)

// organizationFetchTimeout ограничивает общий запрос профиля.
const organizationFetchTimeout = 15 * time.Second

// Ключи кэша организации в сессии.
const (
	keyOrganizationName    = "organization_name"
	keyOrganizationTagline = "organization_tagline"
)

// KeyValue — хранилище значений сессии.
type KeyValue interface {
	Get(key string) string
	Set(key, value string)
	Delete(key string)
}

// Organization — отображаемые данные организации.
type Organization struct {
	Name    string
	Tagline string
}

// Initials возвращает инициалы организации.
func (o Organization) Initials() string {
	return Initials(o.Name)
}

// Initials возвращает первые буквы не более чем двух слов имени
// в верхнем регистре.
func Initials(name string) string {
	var b strings.Builder
	words := strings.Fields(name)
	if len(words) > 2 {
		words = words[:2]
	}
	for _, word := range words {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// OrganizationService — чтение и изменение профиля организации.
type OrganizationService struct {
	client  BackendClient
	catalog *resource.Catalog
	broker  events.Broker
	group   singleflight.Group
	logger  *slog.Logger
}

// NewOrganizationService создаёт сервис профиля организации.
func NewOrganizationService(client BackendClient, catalog *resource.Catalog, broker events.Broker, logger *slog.Logger) *OrganizationService {
	return &OrganizationService{
		client:  client,
		catalog: catalog,
		broker:  broker,
		logger:  logger.With(slog.String("component", "organization")),
	}
}

// Resolve возвращает организацию из кэша сессии либо загружает профиль
// и сохраняет его в сессию.
func (s *OrganizationService) Resolve(ctx context.Context, sc Scope, kv KeyValue) (Organization, error) {
	if name := kv.Get(keyOrganizationName); name != "" {
		return Organization{Name: name, Tagline: kv.Get(keyOrganizationTagline)}, nil
	}

	org, err := s.Fetch(ctx, sc)
	if err != nil {
		return Organization{}, err
	}
	remember(kv, org)
	return org, nil
}

// Fetch загружает профиль организации тенанта сессии.
//
// Одновременные запросы с одинаковыми учётными данными объединяются.
// Общий запрос не зависит от отмены контекста отдельного вызывающего:
// каждый ждёт результат только до отмены собственного ctx.
func (s *OrganizationService) Fetch(ctx context.Context, sc Scope) (Organization, error) {
	path, err := backend.ExpandPath(s.catalog.Organization.Profile, sc.Creds.Tenant, "")
	if err != nil {
		return Organization{}, err
	}

	creds := sc.Creds
	ch := s.group.DoChan(flightKey(creds), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), organizationFetchTimeout)
		defer cancel()

		var rec model.Record
		if err := s.client.Do(fetchCtx, creds, http.MethodGet, path, nil, &rec); err != nil {
			return Organization{}, fmt.Errorf("загрузка профиля организации: %w", err)
		}
		return organizationFromRecord(rec), nil
	})

	select {
	case <-ctx.Done():
		return Organization{}, fmt.Errorf("загрузка профиля организации: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Organization{}, res.Err
		}
		if res.Shared {
			s.logger.Debug("Профиль организации получен из общего запроса",
				slog.String("tenant", creds.Tenant),
			)
		}
		return res.Val.(Organization), nil
	}
}

// flightKey разделяет общие запросы по тенанту и токену: чужой токен
// не используется для загрузки профиля.
func flightKey(creds backend.Credentials) string {
	sum := sha256.Sum256([]byte(creds.AccessToken))
	return creds.Tenant + ":" + hex.EncodeToString(sum[:8])
}

// Invalidate удаляет кэш организации из сессии.
func (s *OrganizationService) Invalidate(kv KeyValue) {
	kv.Delete(keyOrganizationName)
	kv.Delete(keyOrganizationTagline)
}

// Update сохраняет профиль организации, обновляет кэш сессии
// и публикует событие об изменении.
func (s *OrganizationService) Update(ctx context.Context, sc Scope, kv KeyValue, org Organization) error {
	if !sc.Can(s.catalog.Organization.Permissions.Edit) {
		return ErrForbidden
	}

	org.Name = strings.TrimSpace(org.Name)
	org.Tagline = strings.TrimSpace(org.Tagline)
	if err := validate.Var(org.Name, "required,max=200"); err != nil {
		return &ValidationError{Fields: map[string]string{"name": "Organization name is required"}}
	}

	path, err := backend.ExpandPath(s.catalog.Organization.Profile, sc.Creds.Tenant, "")
	if err != nil {
		return err
	}
	body := map[string]string{"name": org.Name, "tagline": org.Tagline}
	if err := s.client.Do(ctx, sc.Creds, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("сохранение профиля организации: %w", err)
	}

	remember(kv, org)

	if err := s.broker.Publish(ctx, events.Event{
		Type:    events.TypeOrganizationUpdated,
		Tenant:  sc.Creds.Tenant,
		Name:    org.Name,
		Tagline: org.Tagline,
	}); err != nil {
		s.logger.Warn("Не удалось опубликовать изменение организации",
			slog.String("tenant", sc.Creds.Tenant),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("Профиль организации обновлён",
		slog.String("tenant", sc.Creds.Tenant),
	)
	return nil
}

func remember(kv KeyValue, org Organization) {
	kv.Set(keyOrganizationName, org.Name)
	kv.Set(keyOrganizationTagline, org.Tagline)
}

// organizationFromRecord поддерживает поля name/tagline и
// organization_name/organization_tagline.
func organizationFromRecord(rec model.Record) Organization {
	org := Organization{Name: rec.Text("name"), Tagline: rec.Text("tagline")}
	if org.Name == "" {
		org.Name = rec.Text("organization_name")
	}
	if org.Tagline == "" {
		org.Tagline = rec.Text("organization_tagline")
	}
	return org
}
