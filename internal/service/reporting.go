// reporting.go — структура подчинённости: пользователи по уровням иерархии.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
	"github.com/Harinie05/HRM-sub002/internal/resource"
)

const (
	// UnknownSupervisor отображается вместо руководителя, которого нет в списке пользователей.
	UnknownSupervisor = "Unknown supervisor"
	// UnassignedLevel — уровень пользователей, чья роль не сопоставлена ни одному уровню.
	UnassignedLevel = "Unassigned"
)

// ReportingMember — пользователь в структуре подчинённости.
type ReportingMember struct {
	ID         string
	Name       string
	Email      string
	RoleName   string
	Department string
	// Supervisor — имя руководителя; пусто, если руководитель не назначен.
	Supervisor string
	// SupervisorMissing — руководитель назначен, но не найден.
	SupervisorMissing bool
}

// ReportingLevel — уровень иерархии с участниками.
type ReportingLevel struct {
	Name    string
	Rank    int
	Members []ReportingMember
}

// ReportingService строит структуру подчинённости.
type ReportingService struct {
	data   *DataLayer
	logger *slog.Logger
}

// NewReportingService создаёт сервис структуры подчинённости.
func NewReportingService(data *DataLayer, logger *slog.Logger) *ReportingService {
	return &ReportingService{
		data:   data,
		logger: logger.With(slog.String("component", "reporting")),
	}
}

// Load загружает пользователей (и роли, если их разрешено просматривать)
// и раскладывает пользователей по уровням.
func (s *ReportingService) Load(ctx context.Context, sc Scope) ([]ReportingLevel, error) {
	cat := s.data.Catalog()
	usersRes, ok := cat.Get("users")
	if !ok {
		return nil, fmt.Errorf("%w: users", ErrNotFound)
	}
	users, err := s.data.Fetch(ctx, sc, usersRes)
	if err != nil {
		return nil, err
	}

	var roles []model.Record
	if rolesRes, ok := cat.Get("roles"); ok {
		roles, err = s.data.Fetch(ctx, sc, rolesRes)
		if err != nil && !errors.Is(err, ErrForbidden) {
			s.logger.Warn("Роли недоступны, используются названия из пользователей",
				slog.String("error", err.Error()),
			)
		}
	}

	return BuildHierarchy(cat.Levels, users, roles), nil
}

// BuildHierarchy раскладывает пользователей по уровням. Роль сопоставляется
// уровню по ключевым словам без учёта регистра; уровни проверяются по
// возрастанию ранга, первое совпадение выигрывает.
func BuildHierarchy(levels []resource.Level, users, roles []model.Record) []ReportingLevel {
	fold := cases.Fold()
	rolesByID := model.IndexByID(roles)
	usersByID := model.IndexByID(users)

	out := make([]ReportingLevel, len(levels))
	for i, l := range levels {
		out[i] = ReportingLevel{Name: l.Name, Rank: l.Rank, Members: []ReportingMember{}}
	}
	unassigned := ReportingLevel{Name: UnassignedLevel, Rank: len(levels) + 1}

	for _, u := range users {
		roleName := u.Text("role_name")
		if roleName == "" {
			if role, ok := rolesByID[u.Text("role_id")]; ok {
				roleName = role.Text("name")
			}
		}

		m := ReportingMember{
			ID:         u.ID(),
			Name:       u.Text("name"),
			Email:      u.Text("email"),
			RoleName:   roleName,
			Department: u.Text("department_name"),
		}
		if supID := u.Text("supervisor_id"); supID != "" {
			if sup, ok := usersByID[supID]; ok {
				m.Supervisor = sup.Text("name")
			} else {
				m.Supervisor = UnknownSupervisor
				m.SupervisorMissing = true
			}
		}

		idx := matchLevel(fold.String(roleName), levels, fold)
		if idx < 0 {
			unassigned.Members = append(unassigned.Members, m)
			continue
		}
		out[idx].Members = append(out[idx].Members, m)
	}

	if len(unassigned.Members) > 0 {
		out = append(out, unassigned)
	}
	return out
}

func matchLevel(role string, levels []resource.Level, fold cases.Caser) int {
	if role == "" {
		return -1
	}
	for i, l := range levels {
		for _, kw := range l.Keywords {
			if strings.Contains(role, fold.String(kw)) {
				return i
			}
		}
	}
	return -1
}
