package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Harinie05/HRM-sub002/internal/service"
	"github.com/Harinie05/HRM-sub002/internal/ui/i18n"
	"github.com/Harinie05/HRM-sub002/internal/ui/pages"
)

// ReportingHandler — обработчик страницы структуры подчинённости.
type ReportingHandler struct {
	*Console
	svc    *service.ReportingService
	logger *slog.Logger
}

// NewReportingHandler создаёт обработчик структуры подчинённости.
func NewReportingHandler(console *Console, svc *service.ReportingService, logger *slog.Logger) *ReportingHandler {
	return &ReportingHandler{
		Console: console,
		svc:     svc,
		logger:  logger.With(slog.String("component", "ui.reporting")),
	}
}

// HandleReporting обрабатывает GET /reporting-structure.
func (h *ReportingHandler) HandleReporting(w http.ResponseWriter, r *http.Request) {
	_, sc := scope(r)
	title := i18n.T(r.Context(), "reporting.title")

	levels, err := h.svc.Load(r.Context(), sc)
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		h.logger.Error("Ошибка загрузки структуры подчинённости",
			slog.String("error", err.Error()),
		)
		h.render(w, r, http.StatusOK, title, pages.Alert("error", alertMessage(r, err)))
		return
	}
	h.render(w, r, http.StatusOK, title, pages.Reporting(levels))
}
