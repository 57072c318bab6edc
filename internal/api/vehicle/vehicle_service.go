package vehicle

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
	"github.com/wrenchwise/workshop-api/internal/validation"
)

var _ VehicleService = (*ServiceImpl)(nil)

type VehicleService interface {
	List(ctx context.Context, filter types.ListFilter) (*types.Page[types.Vehicle], error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]types.Vehicle, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Vehicle, error)
	LookupPlate(ctx context.Context, plate string) (*types.Vehicle, error)
	Create(ctx context.Context, params types.CreateVehicleParams) (*types.Vehicle, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateVehicleParams) (*types.Vehicle, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ServiceImpl struct {
	logger  *slog.Logger
	repo    VehicleRepo
	gateway *gateway.Gateway
}

func NewServiceImpl(repo VehicleRepo, gw *gateway.Gateway, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, gateway: gw}
}

func clampFilter(f types.ListFilter) types.ListFilter {
	if f.Limit <= 0 {
		f.Limit = 25
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func (s *ServiceImpl) List(ctx context.Context, filter types.ListFilter) (*types.Page[types.Vehicle], error) {
	return s.repo.List(ctx, clampFilter(filter))
}

func (s *ServiceImpl) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]types.Vehicle, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

func (s *ServiceImpl) Get(ctx context.Context, id uuid.UUID) (*types.Vehicle, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ServiceImpl) LookupPlate(ctx context.Context, plate string) (*types.Vehicle, error) {
	return s.repo.GetByPlate(ctx, plate)
}

func (s *ServiceImpl) Create(ctx context.Context, params types.CreateVehicleParams) (*types.Vehicle, error) {
	// Plates are stored uppercase; the unique index is built over
	// UPPER(license_plate).
	params.LicensePlate = strings.ToUpper(strings.TrimSpace(params.LicensePlate))
	l := s.logger.With(slog.String("method", "Create"), slog.String("license_plate", params.LicensePlate))

	data := map[string]string{
		"customer_id":   params.CustomerID,
		"license_plate": params.LicensePlate,
		"make":          params.Make,
		"model":         params.Model,
	}
	if params.Year != nil {
		data["year"] = strconv.Itoa(*params.Year)
	}
	if params.VIN != nil {
		data["vin"] = *params.VIN
	}

	v := validation.Vehicle(data, s.gateway, "")
	if err := v.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate vehicle: %w", err)
	}
	if !v.IsValid(ctx) {
		return nil, &types.ValidationError{Fields: v.Errors(ctx)}
	}

	created, err := s.repo.Create(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "failed to create vehicle", slog.Any("error", err))
		return nil, err
	}
	l.InfoContext(ctx, "vehicle registered", slog.String("vehicle_id", created.ID.String()))
	return created, nil
}

func (s *ServiceImpl) Update(ctx context.Context, id uuid.UUID, params types.UpdateVehicleParams) (*types.Vehicle, error) {
	data := map[string]string{}
	if params.LicensePlate != nil {
		plate := strings.ToUpper(strings.TrimSpace(*params.LicensePlate))
		params.LicensePlate = &plate
		data["license_plate"] = plate
	}
	if params.Year != nil {
		data["year"] = strconv.Itoa(*params.Year)
	}
	if params.VIN != nil {
		data["vin"] = *params.VIN
	}

	v := validation.New(data, s.gateway)
	v.Sometimes("license_plate", func(v *validation.Validator) {
		v.Min("license_plate", 2).Max("license_plate", 16).
			UniqueLive("license_plate", "vehicles", "license_plate", id.String(), "license plate is already registered")
	})
	v.Sometimes("year", func(v *validation.Validator) { v.Numeric("year").Between("year", 1900, 2100) })
	v.Sometimes("vin", func(v *validation.Validator) { v.Min("vin", 11).Max("vin", 17) })
	if err := v.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate vehicle update: %w", err)
	}
	if !v.IsValid(ctx) {
		return nil, &types.ValidationError{Fields: v.Errors(ctx)}
	}

	if err := s.repo.Update(ctx, id, params); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete refuses while open work orders reference the vehicle.
func (s *ServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	open, err := s.repo.OpenWorkOrderCount(ctx, id)
	if err != nil {
		return err
	}
	if open > 0 {
		return fmt.Errorf("vehicle has %d open work orders: %w", open, types.ErrConflict)
	}
	return s.repo.SoftDelete(ctx, id)
}
