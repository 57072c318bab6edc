package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/wrenchwise/workshop-api/internal/api"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Summary(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	dashboardService DashboardService
	logger           *slog.Logger
}

func NewHandlerImpl(dashboardService DashboardService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{dashboardService: dashboardService, logger: logger}
}

// Summary godoc
// @Summary      Workshop dashboard counters
// @Description  Customer, vehicle, and work order counts, month-to-date revenue, low stock, and the latest work orders.
// @Tags         Dashboard
// @Produce      json
// @Success      200 {object} types.DashboardSummary
// @Router       /dashboard [get]
func (h *HandlerImpl) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := h.dashboardService.Summary(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build dashboard summary", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to build dashboard summary")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, summary)
}
