package vehicle

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
	ListByCustomer(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	LookupPlate(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	vehicleService VehicleService
	logger         *slog.Logger
}

func NewHandlerImpl(vehicleService VehicleService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{vehicleService: vehicleService, logger: logger}
}

// List godoc
// @Summary      List vehicles
// @Description  Paginated, searchable by plate, make or model.
// @Tags         Vehicles
// @Produce      json
// @Param        search query string false "Plate, make or model fragment"
// @Param        limit  query int    false "Page size"
// @Param        offset query int    false "Page offset"
// @Success      200 {object} types.Page[types.Vehicle]
// @Router       /vehicles [get]
func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	page, err := h.vehicleService.List(ctx, types.ListFilter{
		Search: q.Get("search"), Limit: limit, Offset: offset,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list vehicles", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list vehicles")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, page)
}

// ListByCustomer godoc
// @Summary      List a customer's vehicles
// @Tags         Vehicles
// @Produce      json
// @Param        id path string true "Customer ID"
// @Success      200 {array} types.Vehicle
// @Router       /customers/{id}/vehicles [get]
func (h *HandlerImpl) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid customer ID")
		return
	}
	vehicles, err := h.vehicleService.ListByCustomer(ctx, customerID)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list vehicles")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, vehicles)
}

// Get godoc
// @Summary      Fetch a vehicle
// @Tags         Vehicles
// @Produce      json
// @Param        id path string true "Vehicle ID"
// @Success      200 {object} types.Vehicle
// @Failure      404 {object} api.Response
// @Router       /vehicles/{id} [get]
func (h *HandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid vehicle ID")
		return
	}
	v, err := h.vehicleService.Get(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Vehicle not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch vehicle")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, v)
}

// LookupPlate godoc
// @Summary      Look up a vehicle by license plate
// @Tags         Vehicles
// @Produce      json
// @Param        plate query string true "License plate"
// @Success      200 {object} types.Vehicle
// @Failure      404 {object} api.Response
// @Router       /vehicles/lookup [get]
func (h *HandlerImpl) LookupPlate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plate := r.URL.Query().Get("plate")
	if plate == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "plate query parameter is required")
		return
	}
	v, err := h.vehicleService.LookupPlate(ctx, plate)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "No vehicle with that plate")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Lookup failed")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, v)
}

// Create godoc
// @Summary      Register a vehicle
// @Tags         Vehicles
// @Accept       json
// @Produce      json
// @Param        body body types.CreateVehicleParams true "Vehicle details"
// @Success      201 {object} types.Vehicle
// @Failure      422 {object} api.ValidationErrors
// @Router       /vehicles [post]
func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var params types.CreateVehicleParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.vehicleService.Create(ctx, params)
	if err != nil {
		if ve, ok := types.AsValidationError(err); ok {
			api.ValidationErrorResponse(w, r, ve.Fields)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create vehicle", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to register vehicle")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, created)
}

// Update godoc
// @Summary      Update a vehicle
// @Tags         Vehicles
// @Accept       json
// @Produce      json
// @Param        id path string true "Vehicle ID"
// @Param        body body types.UpdateVehicleParams true "Fields to change"
// @Success      200 {object} types.Vehicle
// @Failure      422 {object} api.ValidationErrors
// @Router       /vehicles/{id} [put]
func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid vehicle ID")
		return
	}

	var params types.UpdateVehicleParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.vehicleService.Update(ctx, id, params)
	if err != nil {
		if ve, ok := types.AsValidationError(err); ok {
			api.ValidationErrorResponse(w, r, ve.Fields)
			return
		}
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Vehicle not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update vehicle")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}

// Delete godoc
// @Summary      Delete a vehicle
// @Description  Refused while the vehicle has open work orders.
// @Tags         Vehicles
// @Produce      json
// @Param        id path string true "Vehicle ID"
// @Success      200 {object} api.Response
// @Failure      409 {object} api.Response "Open work orders exist"
// @Router       /vehicles/{id} [delete]
func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid vehicle ID")
		return
	}
	if err := h.vehicleService.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "Vehicle has open work orders")
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Vehicle not found")
		default:
			h.logger.ErrorContext(ctx, "failed to delete vehicle", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete vehicle")
		}
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "Vehicle deleted"})
}
