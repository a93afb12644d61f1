// datalayer.go — слой данных страниц: загрузка коллекций, снимки view state
// и мутации с явным контрактом инвалидации.
//
// Каждая мутация объявляет, какие списки она делает устаревшими.
// После завершения мутации (успешного или нет) слой повторно загружает
// ровно эти списки. Оптимистичных обновлений и слияния кэша нет.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Harinie05/HRM-sub002/internal/backend"
	"github.com/Harinie05/HRM-sub002/internal/domain/model"
	"github.com/Harinie05/HRM-sub002/internal/domain/rbac"
	"github.com/Harinie05/HRM-sub002/internal/repository"
	"github.com/Harinie05/HRM-sub002/internal/resource"
)

// BackendClient — операции HRM backend, нужные сервисам.
type BackendClient interface {
	Do(ctx context.Context, creds backend.Credentials, method, path string, body, out any) error
	Upload(ctx context.Context, creds backend.Credentials, path, field, filename string, file io.Reader, fields map[string]string, out any) error
}

// Scope — контекст пользователя для операций с данными.
type Scope struct {
	SessionID string
	Creds     backend.Credentials
	Perms     rbac.Reader
}

// Can проверяет право сессии.
func (s Scope) Can(capability string) bool {
	return rbac.HasPermission(s.Perms, capability)
}

// Mutation — изменение данных backend.
type Mutation struct {
	Resource *resource.Resource
	Method   string
	ID       string
	// Path — шаблон пути; пустой означает list (POST) или item (остальные).
	Path       string
	Body       any
	Capability string
	// Invalidates — ключи списков для повторной загрузки; пустой
	// означает списки, объявленные ресурсом в каталоге.
	Invalidates []string
}

// NewCreate создаёт мутацию создания записи.
func NewCreate(res *resource.Resource, body map[string]any) Mutation {
	return Mutation{Resource: res, Method: http.MethodPost, Path: res.List, Body: body, Capability: res.Permissions.Add}
}

// NewUpdate создаёт мутацию полного обновления записи.
func NewUpdate(res *resource.Resource, id string, body map[string]any) Mutation {
	return Mutation{Resource: res, Method: http.MethodPut, ID: id, Body: body, Capability: res.Permissions.Edit}
}

// NewDelete создаёт мутацию удаления записи.
func NewDelete(res *resource.Resource, id string) Mutation {
	return Mutation{Resource: res, Method: http.MethodDelete, ID: id, Capability: res.Permissions.Delete}
}

// NewToggle создаёт мутацию переключения флага ресурса (PATCH).
func NewToggle(res *resource.Resource, id string, value bool) (Mutation, error) {
	if res.Toggle == nil {
		return Mutation{}, fmt.Errorf("%w: у ресурса %s нет переключаемого поля", ErrNotFound, res.Key)
	}
	return Mutation{
		Resource:   res,
		Method:     http.MethodPatch,
		ID:         id,
		Path:       res.Toggle.Path,
		Body:       map[string]any{res.Toggle.Field: value},
		Capability: res.Permissions.Edit,
	}, nil
}

// MutationResult — итог мутации и повторной загрузки списков.
type MutationResult struct {
	// Err — ошибка самой мутации.
	Err error
	// Record — ответ backend на мутацию (может быть пустым).
	Record model.Record
	// Refreshed — свежие коллекции по ключам ресурсов.
	Refreshed map[string][]model.Record
	// RefreshErrors — ошибки повторной загрузки; прежние снимки не менялись.
	RefreshErrors map[string]error
}

// DataLayer — единая точка загрузки коллекций и применения мутаций.
type DataLayer struct {
	client  BackendClient
	catalog *resource.Catalog
	views   repository.ViewStateRepository
	logger  *slog.Logger
}

// NewDataLayer создаёт слой данных.
func NewDataLayer(client BackendClient, catalog *resource.Catalog, views repository.ViewStateRepository, logger *slog.Logger) *DataLayer {
	return &DataLayer{
		client:  client,
		catalog: catalog,
		views:   views,
		logger:  logger.With(slog.String("component", "datalayer")),
	}
}

// Catalog возвращает каталог ресурсов.
func (d *DataLayer) Catalog() *resource.Catalog {
	return d.catalog
}

// Fetch загружает коллекцию ресурса и заменяет её снимок.
// При ошибке снимок не меняется. Без права view backend не вызывается.
func (d *DataLayer) Fetch(ctx context.Context, sc Scope, res *resource.Resource) ([]model.Record, error) {
	if !sc.Can(res.Permissions.View) {
		return nil, ErrForbidden
	}

	path, err := backend.ExpandPath(res.List, sc.Creds.Tenant, "")
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := d.client.Do(ctx, sc.Creds, http.MethodGet, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("загрузка %s: %w", res.Key, err)
	}
	records, err := model.DecodeList(raw)
	if err != nil {
		return nil, fmt.Errorf("загрузка %s: %w", res.Key, err)
	}

	if err := d.views.Put(ctx, sc.SessionID, res.Key, records); err != nil {
		d.logger.Warn("Не удалось сохранить снимок коллекции",
			slog.String("resource", res.Key),
			slog.String("error", err.Error()),
		)
	}
	return records, nil
}

// FetchOne загружает одну запись ресурса.
func (d *DataLayer) FetchOne(ctx context.Context, sc Scope, res *resource.Resource, id string) (model.Record, error) {
	if !sc.Can(res.Permissions.View) {
		return nil, ErrForbidden
	}
	path, err := backend.ExpandPath(res.Item, sc.Creds.Tenant, id)
	if err != nil {
		return nil, err
	}
	var rec model.Record
	if err := d.client.Do(ctx, sc.Creds, http.MethodGet, path, nil, &rec); err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, res.Key, id)
		}
		return nil, fmt.Errorf("загрузка %s/%s: %w", res.Key, id, err)
	}
	return rec, nil
}

// Snapshot возвращает последний снимок коллекции без обращения к backend.
// ok=false, если коллекция ещё не загружалась в этой сессии.
func (d *DataLayer) Snapshot(ctx context.Context, sc Scope, res *resource.Resource) ([]model.Record, bool, error) {
	records, err := d.views.Get(ctx, sc.SessionID, res.Key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []model.Record{}, false, nil
		}
		return nil, false, err
	}
	return records, true, nil
}

// Lookup находит запись по id в снимке коллекции.
func (d *DataLayer) Lookup(ctx context.Context, sc Scope, res *resource.Resource, id string) (model.Record, error) {
	records, _, err := d.Snapshot(ctx, sc, res)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, res.Key, id)
}

// Forget удаляет все снимки сессии.
func (d *DataLayer) Forget(ctx context.Context, sessionID string) error {
	return d.views.DropSession(ctx, sessionID)
}

// Mutate применяет мутацию и повторно загружает объявленные списки.
// Без нужного права возвращает ErrForbidden, не обращаясь к backend.
func (d *DataLayer) Mutate(ctx context.Context, sc Scope, m Mutation) MutationResult {
	if m.Capability == "" || !sc.Can(m.Capability) {
		return MutationResult{Err: ErrForbidden}
	}

	var result MutationResult

	result.Record, result.Err = d.apply(ctx, sc, m)
	if result.Err != nil {
		d.logger.Warn("Мутация завершилась ошибкой",
			slog.String("resource", m.Resource.Key),
			slog.String("method", m.Method),
			slog.String("id", m.ID),
			slog.String("error", result.Err.Error()),
		)
	}

	result.Refreshed, result.RefreshErrors = d.Refresh(ctx, sc, d.invalidated(m))
	return result
}

// Refresh повторно загружает перечисленные коллекции. Коллекции, которые
// сессии не разрешено просматривать, пропускаются.
func (d *DataLayer) Refresh(ctx context.Context, sc Scope, keys []string) (map[string][]model.Record, map[string]error) {
	refreshed := make(map[string][]model.Record, len(keys))
	failed := make(map[string]error)
	for _, key := range keys {
		res, ok := d.catalog.Get(key)
		if !ok || !sc.Can(res.Permissions.View) {
			continue
		}
		records, err := d.Fetch(ctx, sc, res)
		if err != nil {
			failed[key] = err
			d.logger.Warn("Повторная загрузка списка не удалась",
				slog.String("resource", key),
				slog.String("error", err.Error()),
			)
			continue
		}
		refreshed[key] = records
	}
	return refreshed, failed
}

func (d *DataLayer) apply(ctx context.Context, sc Scope, m Mutation) (model.Record, error) {
	tmpl := m.Path
	if tmpl == "" {
		if m.Method == http.MethodPost {
			tmpl = m.Resource.List
		} else {
			tmpl = m.Resource.Item
		}
	}
	path, err := backend.ExpandPath(tmpl, sc.Creds.Tenant, m.ID)
	if err != nil {
		return nil, err
	}

	var rec model.Record
	if err := d.client.Do(ctx, sc.Creds, m.Method, path, m.Body, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// invalidated возвращает ключи списков, устаревающих после мутации.
func (d *DataLayer) invalidated(m Mutation) []string {
	if len(m.Invalidates) > 0 {
		return m.Invalidates
	}
	if len(m.Resource.Invalidates) > 0 {
		return m.Resource.Invalidates
	}
	return []string{m.Resource.Key}
}
