package workorder

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wrenchwise/workshop-api/internal/api"
	"github.com/wrenchwise/workshop-api/internal/api/auth"
	"github.com/wrenchwise/workshop-api/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	ChangeStatus(w http.ResponseWriter, r *http.Request)
	ListParts(w http.ResponseWriter, r *http.Request)
	AddPart(w http.ResponseWriter, r *http.Request)
	RemovePart(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	workOrderService WorkOrderService
	logger           *slog.Logger
}

func NewHandlerImpl(workOrderService WorkOrderService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{workOrderService: workOrderService, logger: logger}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// List godoc
// @Summary      List work orders
// @Description  Filterable by status, priority, customer and assignee; searchable by order number or description.
// @Tags         WorkOrders
// @Produce      json
// @Param        status      query string false "Status filter"
// @Param        priority    query string false "Priority filter"
// @Param        customer_id query string false "Customer filter"
// @Param        assigned_to query string false "Assignee filter"
// @Param        search      query string false "Order number or description fragment"
// @Success      200 {object} types.Page[types.WorkOrder]
// @Router       /work-orders [get]
func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	page, err := h.workOrderService.List(ctx, types.WorkOrderFilter{
		ListFilter: types.ListFilter{Search: q.Get("search"), Limit: limit, Offset: offset},
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		CustomerID: q.Get("customer_id"),
		AssignedTo: q.Get("assigned_to"),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list work orders", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list work orders")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, page)
}

// Get godoc
// @Summary      Fetch a work order
// @Tags         WorkOrders
// @Produce      json
// @Param        id path string true "Work order ID"
// @Success      200 {object} types.WorkOrder
// @Failure      404 {object} api.Response
// @Router       /work-orders/{id} [get]
func (h *HandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid work order ID")
		return
	}
	wo, err := h.workOrderService.Get(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Work order not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch work order")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, wo)
}

// Create godoc
// @Summary      Open a work order
// @Tags         WorkOrders
// @Accept       json
// @Produce      json
// @Param        body body types.CreateWorkOrderParams true "Work order details"
// @Success      201 {object} types.WorkOrder
// @Failure      422 {object} api.ValidationErrors
// @Router       /work-orders [post]
func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := auth.CurrentUser(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var params types.CreateWorkOrderParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.workOrderService.Create(ctx, params, user.ID)
	if err != nil {
		if ve, ok := types.AsValidationError(err); ok {
			api.ValidationErrorResponse(w, r, ve.Fields)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create work order", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to open work order")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, created)
}

// Update godoc
// @Summary      Update a work order
// @Tags         WorkOrders
// @Accept       json
// @Produce      json
// @Param        id path string true "Work order ID"
// @Param        body body types.UpdateWorkOrderParams true "Fields to change"
// @Success      200 {object} types.WorkOrder
// @Failure      422 {object} api.ValidationErrors
// @Router       /work-orders/{id} [put]
func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid work order ID")
		return
	}

	var params types.UpdateWorkOrderParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.workOrderService.Update(ctx, id, params)
	if err != nil {
		if ve, ok := types.AsValidationError(err); ok {
			api.ValidationErrorResponse(w, r, ve.Fields)
			return
		}
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Work order not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update work order")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

// ChangeStatus godoc
// @Summary      Move a work order through its lifecycle
// @Description  Only transitions allowed by the state machine succeed; illegal moves return 409.
// @Tags         WorkOrders
// @Accept       json
// @Produce      json
// @Param        id path string true "Work order ID"
// @Param        body body changeStatusRequest true "Target status"
// @Success      200 {object} types.WorkOrder
// @Failure      403 {object} api.Response "Cancellation requires manager or admin"
// @Failure      409 {object} api.Response "Illegal transition"
// @Router       /work-orders/{id}/status [post]
func (h *HandlerImpl) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid work order ID")
		return
	}

	var req changeStatusRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	valid := false
	for _, s := range types.WorkOrderStatuses {
		if req.Status == s {
			valid = true
			break
		}
	}
	if !valid {
		api.ValidationErrorResponse(w, r, map[string][]string{"status": {"unknown status"}})
		return
	}

	// Cancellation is restricted to managers and admins.
	if types.WorkOrderStatus(req.Status) == types.StatusCancelled {
		u, ok := auth.CurrentUser(ctx)
		if !ok || (u.Role != types.RoleAdmin && u.Role != types.RoleManager) {
			api.ErrorResponse(w, r, http.StatusForbidden, "Cancelling a work order requires a manager or admin account")
			return
		}
	}

	updated, err := h.workOrderService.ChangeStatus(ctx, id, types.WorkOrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, err.Error())
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Work order not found")
		default:
			h.logger.ErrorContext(ctx, "failed to change status", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to change status")
		}
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}

// ListParts godoc
// @Summary      List a work order's parts
// @Tags         WorkOrders
// @Produce      json
// @Param        id path string true "Work order ID"
// @Success      200 {array} types.WorkOrderPart
// @Router       /work-orders/{id}/parts [get]
func (h *HandlerImpl) ListParts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid work order ID")
		return
	}
	parts, err := h.workOrderService.ListParts(ctx, id)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list parts")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, parts)
}

// AddPart godoc
// @Summary      Consume a stocked part on a work order
// @Description  Decrements inventory and recomputes order totals atomically. Insufficient stock returns 409.
// @Tags         WorkOrders
// @Accept       json
// @Produce      json
// @Param        id path string true "Work order ID"
// @Param        body body types.AddPartParams true "Item and quantity"
// @Success      201 {object} types.WorkOrderPart
// @Failure      409 {object} api.Response "Insufficient stock or closed order"
// @Router       /work-orders/{id}/parts [post]
func (h *HandlerImpl) AddPart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid work order ID")
		return
	}

	var params types.AddPartParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	part, err := h.workOrderService.AddPart(ctx, id, params)
	if err != nil {
		if ve, ok := types.AsValidationError(err); ok {
			api.ValidationErrorResponse(w, r, ve.Fields)
			return
		}
		switch {
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, err.Error())
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Work order not found")
		default:
			h.logger.ErrorContext(ctx, "failed to add part", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to add part")
		}
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, part)
}

// RemovePart godoc
// @Summary      Remove a part from a work order
// @Description  Returns the quantity to stock and recomputes totals.
// @Tags         WorkOrders
// @Produce      json
// @Param        id      path string true "Work order ID"
// @Param        part_id path string true "Part line ID"
// @Success      200 {object} api.Response
// @Router       /work-orders/{id}/parts/{part_id} [delete]
func (h *HandlerImpl) RemovePart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid work order ID")
		return
	}
	partID, err := pathUUID(r, "part_id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid part ID")
		return
	}

	if err := h.workOrderService.RemovePart(ctx, id, partID); err != nil {
		switch {
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, err.Error())
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Part not found on this work order")
		default:
			h.logger.ErrorContext(ctx, "failed to remove part", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to remove part")
		}
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "Part removed"})
}

// Delete godoc
// @Summary      Delete a work order
// @Description  Admin only. Only pending or cancelled orders can be deleted; others return 409.
// @Tags         WorkOrders
// @Produce      json
// @Param        id path string true "Work order ID"
// @Success      200 {object} api.Response
// @Failure      409 {object} api.Response "Order has work history"
// @Router       /work-orders/{id} [delete]
func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid work order ID")
		return
	}

	if err := h.workOrderService.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, err.Error())
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Work order not found")
		default:
			h.logger.ErrorContext(ctx, "failed to delete work order", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete work order")
		}
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "Work order deleted"})
}
