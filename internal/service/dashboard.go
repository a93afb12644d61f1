package service

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
)

// DashboardCard — карточка сводки. Err != nil означает, что данные
// карточки недоступны; остальные карточки от этого не зависят.
type DashboardCard struct {
	Key   string
	Title string
	Route string
	Count int
	Total int
	Err   error
}

type cardSpec struct {
	key    string
	title  string
	filter func(model.Record) bool
}

var dashboardCards = []cardSpec{
	{key: "employees", title: "Employees"},
	{key: "departments", title: "Departments"},
	{key: "job_requisitions", title: "Open Requisitions", filter: statusIs("open")},
	{key: "attendance_today", title: "Present Today", filter: presentToday},
	{key: "compliance_items", title: "Pending Compliance", filter: statusNot("completed")},
}

func statusIs(status string) func(model.Record) bool {
	return func(r model.Record) bool {
		return strings.EqualFold(r.Text("status"), status)
	}
}

func statusNot(status string) func(model.Record) bool {
	return func(r model.Record) bool {
		return !strings.EqualFold(r.Text("status"), status)
	}
}

func presentToday(r model.Record) bool {
	return r.Text("check_in") != ""
}

// DashboardService — сводная страница.
type DashboardService struct {
	data   *DataLayer
	logger *slog.Logger
}

// NewDashboardService создаёт сервис сводки.
func NewDashboardService(data *DataLayer, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		data:   data,
		logger: logger.With(slog.String("component", "dashboard")),
	}
}

// Load параллельно загружает коллекции сводки. Карточки ресурсов,
// которые сессии не разрешено просматривать, не возвращаются.
func (s *DashboardService) Load(ctx context.Context, sc Scope) []DashboardCard {
	cat := s.data.Catalog()

	cards := make([]DashboardCard, 0, len(dashboardCards))
	specs := make([]cardSpec, 0, len(dashboardCards))
	for _, spec := range dashboardCards {
		res, ok := cat.Get(spec.key)
		if !ok || !sc.Can(res.Permissions.View) {
			continue
		}
		card := DashboardCard{Key: spec.key, Title: spec.title}
		if !res.Hidden {
			card.Route = res.Route()
		}
		cards = append(cards, card)
		specs = append(specs, spec)
	}

	var g errgroup.Group
	for i := range cards {
		g.Go(func() error {
			res, _ := cat.Get(specs[i].key)
			records, err := s.data.Fetch(ctx, sc, res)
			if err != nil {
				cards[i].Err = err
				s.logger.Warn("Карточка сводки недоступна",
					slog.String("resource", specs[i].key),
					slog.String("error", err.Error()),
				)
				return nil
			}
			cards[i].Total = len(records)
			cards[i].Count = len(records)
			if specs[i].filter != nil {
				cards[i].Count = 0
				for _, r := range records {
					if specs[i].filter(r) {
						cards[i].Count++
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return cards
}
