package user

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wrenchwise/workshop-api/internal/api"
	"github.com/wrenchwise/workshop-api/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Deactivate(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	Unlock(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	userService UserService
	logger      *slog.Logger
}

func NewHandlerImpl(userService UserService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{userService: userService, logger: logger}
}

func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// List godoc
// @Summary      List user accounts
// @Tags         Users
// @Produce      json
// @Success      200 {array} types.User
// @Router       /users [get]
func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.userService.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list users", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list users")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, users)
}

// Get godoc
// @Summary      Fetch a user account
// @Tags         Users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} types.User
// @Failure      404 {object} api.Response
// @Router       /users/{id} [get]
func (h *HandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}
	u, err := h.userService.Get(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch user")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

// Create godoc
// @Summary      Create a user account
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        body body types.CreateUserParams true "Account details"
// @Success      201 {object} types.User
// @Failure      422 {object} api.ValidationErrors
// @Router       /users [post]
func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Create"))

	var params types.CreateUserParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.userService.Create(ctx, params)
	if err != nil {
		if ve, ok := types.AsValidationError(err); ok {
			api.ValidationErrorResponse(w, r, ve.Fields)
			return
		}
		l.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create user")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, created)
}

// Update godoc
// @Summary      Update a user account
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        body body types.UpdateUserParams true "Fields to change"
// @Success      200 {object} types.User
// @Failure      422 {object} api.ValidationErrors
// @Router       /users/{id} [put]
func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var params types.UpdateUserParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.userService.Update(ctx, id, params)
	if err != nil {
		if ve, ok := types.AsValidationError(err); ok {
			api.ValidationErrorResponse(w, r, ve.Fields)
			return
		}
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update user")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}

// Deactivate godoc
// @Summary      Deactivate a user account
// @Description  Inactive accounts keep their history but can no longer log in.
// @Tags         Users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} api.Response
// @Router       /users/{id}/deactivate [post]
func (h *HandlerImpl) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "Deactivate", h.userService.Deactivate, "User deactivated")
}

// Delete godoc
// @Summary      Delete a user account
// @Tags         Users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} api.Response
// @Router       /users/{id} [delete]
func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "Delete", h.userService.Delete, "User deleted")
}

// Unlock godoc
// @Summary      Unlock a locked account
// @Tags         Users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} api.Response
// @Router       /users/{id}/unlock [post]
func (h *HandlerImpl) Unlock(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "Unlock", h.userService.Unlock, "Account unlocked")
}

func (h *HandlerImpl) idAction(w http.ResponseWriter, r *http.Request, name string, fn func(ctx context.Context, id uuid.UUID) error, okMessage string) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}
	if err := fn(ctx, id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		h.logger.ErrorContext(ctx, "user action failed", slog.String("action", name), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Operation failed")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: okMessage})
}
