package customer

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

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
	Delete(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	customerService CustomerService
	logger          *slog.Logger
}

func NewHandlerImpl(customerService CustomerService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{customerService: customerService, logger: logger}
}

// ParseListFilter reads the shared search/limit/offset query params.
func ParseListFilter(r *http.Request) types.ListFilter {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return types.ListFilter{Search: q.Get("search"), Limit: limit, Offset: offset}
}

// List godoc
// @Summary      List customers
// @Description  Paginated, searchable by name or phone. Soft-deleted customers are excluded.
// @Tags         Customers
// @Produce      json
// @Param        search query string false "Name or phone fragment"
// @Param        limit  query int    false "Page size"
// @Param        offset query int    false "Page offset"
// @Success      200 {object} types.Page[types.Customer]
// @Router       /customers [get]
func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := h.customerService.List(ctx, ParseListFilter(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list customers", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list customers")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, page)
}

// Get godoc
// @Summary      Fetch a customer
// @Tags         Customers
// @Produce      json
// @Param        id path string true "Customer ID"
// @Success      200 {object} types.Customer
// @Failure      404 {object} api.Response
// @Router       /customers/{id} [get]
func (h *HandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid customer ID")
		return
	}
	c, err := h.customerService.Get(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Customer not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch customer")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, c)
}

// Create godoc
// @Summary      Register a customer
// @Tags         Customers
// @Accept       json
// @Produce      json
// @Param        body body types.CreateCustomerParams true "Customer details"
// @Success      201 {object} types.Customer
// @Failure      422 {object} api.ValidationErrors
// @Router       /customers [post]
func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var params types.CreateCustomerParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.customerService.Create(ctx, params)
	if err != nil {
		if ve, ok := types.AsValidationError(err); ok {
			api.ValidationErrorResponse(w, r, ve.Fields)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create customer", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create customer")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, created)
}

// Update godoc
// @Summary      Update a customer
// @Tags         Customers
// @Accept       json
// @Produce      json
// @Param        id path string true "Customer ID"
// @Param        body body types.UpdateCustomerParams true "Fields to change"
// @Success      200 {object} types.Customer
// @Failure      422 {object} api.ValidationErrors
// @Router       /customers/{id} [put]
func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid customer ID")
		return
	}

	var params types.UpdateCustomerParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.customerService.Update(ctx, id, params)
	if err != nil {
		if ve, ok := types.AsValidationError(err); ok {
			api.ValidationErrorResponse(w, r, ve.Fields)
			return
		}
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Customer not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update customer")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}

// Delete godoc
// @Summary      Delete a customer
// @Description  Refused while vehicles are still registered to the customer.
// @Tags         Customers
// @Produce      json
// @Param        id path string true "Customer ID"
// @Success      200 {object} api.Response
// @Failure      409 {object} api.Response "Customer still has vehicles"
// @Router       /customers/{id} [delete]
func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid customer ID")
		return
	}
	if err := h.customerService.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "Customer still has vehicles on file")
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Customer not found")
		default:
			h.logger.ErrorContext(ctx, "failed to delete customer", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete customer")
		}
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "Customer deleted"})
}
