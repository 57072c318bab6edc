package inventory

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
	ListLowStock(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	AdjustStock(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	inventoryService InventoryService
	logger           *slog.Logger
}

func NewHandlerImpl(inventoryService InventoryService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{inventoryService: inventoryService, logger: logger}
}

// List godoc
// @Summary      List inventory items
// @Description  Paginated, searchable by SKU, name, or category.
// @Tags         Inventory
// @Produce      json
// @Param        search query string false "SKU, name, or category fragment"
// @Param        limit  query int    false "Page size"
// @Param        offset query int    false "Page offset"
// @Success      200 {object} types.Page[types.InventoryItem]
// @Router       /inventory [get]
func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := h.inventoryService.List(ctx, customer.ParseListFilter(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list inventory", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list inventory")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, page)
}

// ListLowStock godoc
// @Summary      Items at or below their reorder threshold
// @Tags         Inventory
// @Produce      json
// @Success      200 {array} types.InventoryItem
// @Router       /inventory/low-stock [get]
func (h *HandlerImpl) ListLowStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := h.inventoryService.ListLowStock(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list low stock", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list low stock items")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, items)
}

// Get godoc
// @Summary      Fetch an inventory item
// @Tags         Inventory
// @Produce      json
// @Param        id path string true "Item ID"
// @Success      200 {object} types.InventoryItem
// @Failure      404 {object} api.Response
// @Router       /inventory/{id} [get]
func (h *HandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid item ID")
		return
	}
	item, err := h.inventoryService.Get(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Inventory item not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch inventory item")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, item)
}

// Create godoc
// @Summary      Add an inventory item
// @Tags         Inventory
// @Accept       json
// @Produce      json
// @Param        body body types.CreateInventoryItemParams true "Item details"
// @Success      201 {object} types.InventoryItem
// @Failure      422 {object} api.ValidationErrors
// @Router       /inventory [post]
func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var params types.CreateInventoryItemParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.inventoryService.Create(ctx, params)
	if err != nil {
		if ve, ok := types.AsValidationError(err); ok {
			api.ValidationErrorResponse(w, r, ve.Fields)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create inventory item", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create inventory item")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, created)
}

// Update godoc
// @Summary      Update an inventory item
// @Description  Quantity is not editable here; use the stock adjustment endpoint.
// @Tags         Inventory
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID"
// @Param        body body types.UpdateInventoryItemParams true "Fields to change"
// @Success      200 {object} types.InventoryItem
// @Failure      422 {object} api.ValidationErrors
// @Router       /inventory/{id} [put]
func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid item ID")
		return
	}

	var params types.UpdateInventoryItemParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.inventoryService.Update(ctx, id, params)
	if err != nil {
		if ve, ok := types.AsValidationError(err); ok {
			api.ValidationErrorResponse(w, r, ve.Fields)
			return
		}
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Inventory item not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update inventory item")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}

// AdjustStock godoc
// @Summary      Adjust stock by a signed delta
// @Description  Refused when the adjustment would take the quantity negative.
// @Tags         Inventory
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID"
// @Param        body body types.AdjustStockParams true "Delta and audit reason"
// @Success      200 {object} types.InventoryItem
// @Failure      409 {object} api.Response "Insufficient stock"
// @Failure      422 {object} api.ValidationErrors
// @Router       /inventory/{id}/adjust [post]
func (h *HandlerImpl) AdjustStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := auth.CurrentUser(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid item ID")
		return
	}

	var params types.AdjustStockParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.inventoryService.AdjustStock(ctx, id, params, user.ID)
	if err != nil {
		if ve, ok := types.AsValidationError(err); ok {
			api.ValidationErrorResponse(w, r, ve.Fields)
			return
		}
		switch {
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "Adjustment would take the stock level negative")
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Inventory item not found")
		default:
			h.logger.ErrorContext(ctx, "failed to adjust stock", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to adjust stock")
		}
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, item)
}

// Delete godoc
// @Summary      Delete an inventory item
// @Tags         Inventory
// @Produce      json
// @Param        id path string true "Item ID"
// @Success      200 {object} api.Response
// @Router       /inventory/{id} [delete]
func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid item ID")
		return
	}
	if err := h.inventoryService.Delete(ctx, id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Inventory item not found")
			return
		}
		h.logger.ErrorContext(ctx, "failed to delete inventory item", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete inventory item")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "Inventory item deleted"})
}
