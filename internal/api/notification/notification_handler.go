package notification

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wrenchwise/workshop-api/internal/api"
	"github.com/wrenchwise/workshop-api/internal/api/auth"
	"github.com/wrenchwise/workshop-api/internal/api/customer"
	"github.com/wrenchwise/workshop-api/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	List(w http.ResponseWriter, r *http.Request)
	UnreadCount(w http.ResponseWriter, r *http.Request)
	MarkRead(w http.ResponseWriter, r *http.Request)
	MarkAllRead(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	notificationService NotificationService
	logger              *slog.Logger
}

func NewHandlerImpl(notificationService NotificationService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{notificationService: notificationService, logger: logger}
}

// List godoc
// @Summary      List the current user's notifications
// @Tags         Notifications
// @Produce      json
// @Param        unread query bool false "Only unread notifications"
// @Param        limit  query int  false "Page size"
// @Param        offset query int  false "Page offset"
// @Success      200 {object} types.Page[types.Notification]
// @Router       /notifications [get]
func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := auth.CurrentUser(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	page, err := h.notificationService.ListForUser(ctx, user.ID, unreadOnly, customer.ParseListFilter(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list notifications", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list notifications")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, page)
}

// UnreadCount godoc
// @Summary      Count the current user's unread notifications
// @Tags         Notifications
// @Produce      json
// @Success      200 {object} map[string]int
// @Router       /notifications/unread-count [get]
func (h *HandlerImpl) UnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := auth.CurrentUser(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	count, err := h.notificationService.CountUnread(ctx, user.ID)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to count notifications")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]int{"unread": count})
}

// MarkRead godoc
// @Summary      Mark one notification as read
// @Tags         Notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200 {object} api.Response
// @Failure      404 {object} api.Response
// @Router       /notifications/{id}/read [post]
func (h *HandlerImpl) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := auth.CurrentUser(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	if err := h.notificationService.MarkRead(ctx, id, user.ID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Notification not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to mark notification read")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "Notification marked read"})
}

// MarkAllRead godoc
// @Summary      Mark all of the current user's notifications as read
// @Tags         Notifications
// @Produce      json
// @Success      200 {object} api.Response
// @Router       /notifications/read-all [post]
func (h *HandlerImpl) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := auth.CurrentUser(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	if _, err := h.notificationService.MarkAllRead(ctx, user.ID); err != nil {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to mark notifications read")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "All notifications marked read"})
}
