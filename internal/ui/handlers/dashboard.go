package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Harinie05/HRM-sub002/internal/service"
	"github.com/Harinie05/HRM-sub002/internal/ui/i18n"
	"github.com/Harinie05/HRM-sub002/internal/ui/pages"
)

// DashboardHandler — обработчик сводной страницы.
type DashboardHandler struct {
	*Console
	svc    *service.DashboardService
	logger *slog.Logger
}

// NewDashboardHandler создаёт новый DashboardHandler.
func NewDashboardHandler(console *Console, svc *service.DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		Console: console,
		svc:     svc,
		logger:  logger.With(slog.String("component", "ui.dashboard")),
	}
}

// HandleDashboard обрабатывает GET / — карточки сводки.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	_, sc := scope(r)
	cards := h.svc.Load(r.Context(), sc)
	for _, c := range cards {
		if c.Err != nil && h.expired(w, r, c.Err) {
			return
		}
	}
	h.render(w, r, http.StatusOK, i18n.T(r.Context(), "dashboard.title"), pages.Dashboard(cards))
}
