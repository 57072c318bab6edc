package vehicle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
)

var _ VehicleRepo = (*PostgresVehicleRepo)(nil)

type VehicleRepo interface {
	List(ctx context.Context, filter types.ListFilter) (*types.Page[types.Vehicle], error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]types.Vehicle, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Vehicle, error)
	GetByPlate(ctx context.Context, plate string) (*types.Vehicle, error)
	Create(ctx context.Context, params types.CreateVehicleParams) (*types.Vehicle, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateVehicleParams) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	OpenWorkOrderCount(ctx context.Context, id uuid.UUID) (int, error)
}

type PostgresVehicleRepo struct {
	logger  *slog.Logger
	gateway *gateway.Gateway
}

func NewPostgresVehicleRepo(gw *gateway.Gateway, logger *slog.Logger) *PostgresVehicleRepo {
	return &PostgresVehicleRepo{logger: logger, gateway: gw}
}

const vehicleColumns = `id, customer_id, license_plate, make, model, year, color, vin, notes,
	created_at, updated_at, deleted_at`

func scanVehicle(row map[string]any) types.Vehicle {
	return types.Vehicle{
		ID:           gateway.AsUUID(row, "id"),
		CustomerID:   gateway.AsUUID(row, "customer_id"),
		LicensePlate: gateway.AsString(row, "license_plate"),
		Make:         gateway.AsString(row, "make"),
		Model:        gateway.AsString(row, "model"),
		Year:         gateway.AsIntPtr(row, "year"),
		Color:        gateway.AsStringPtr(row, "color"),
		VIN:          gateway.AsStringPtr(row, "vin"),
		Notes:        gateway.AsStringPtr(row, "notes"),
		CreatedAt:    gateway.AsTime(row, "created_at"),
		UpdatedAt:    gateway.AsTime(row, "updated_at"),
		DeletedAt:    gateway.AsTimePtr(row, "deleted_at"),
	}
}

func (r *PostgresVehicleRepo) List(ctx context.Context, filter types.ListFilter) (*types.Page[types.Vehicle], error) {
	where := "deleted_at IS NULL"
	params := []any{}
	if filter.Search != "" {
		where += " AND (license_plate ILIKE ? OR make ILIKE ? OR model ILIKE ?)"
		like := "%" + filter.Search + "%"
		params = append(params, like, like, like)
	}

	total, err := r.gateway.Count(ctx, "vehicles", where, params...)
	if err != nil {
		return nil, fmt.Errorf("count vehicles: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM vehicles WHERE %s ORDER BY license_plate LIMIT ? OFFSET ?",
		vehicleColumns, where)
	rows, err := r.gateway.Select(ctx, query, append(params, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}

	items := make([]types.Vehicle, 0, len(rows))
	for _, row := range rows {
		items = append(items, scanVehicle(row))
	}
	return &types.Page[types.Vehicle]{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (r *PostgresVehicleRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]types.Vehicle, error) {
	rows, err := r.gateway.Select(ctx,
		"SELECT "+vehicleColumns+" FROM vehicles WHERE customer_id = ? AND deleted_at IS NULL ORDER BY license_plate",
		customerID)
	if err != nil {
		return nil, fmt.Errorf("list customer vehicles: %w", err)
	}
	items := make([]types.Vehicle, 0, len(rows))
	for _, row := range rows {
		items = append(items, scanVehicle(row))
	}
	return items, nil
}

func (r *PostgresVehicleRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Vehicle, error) {
	row, err := r.gateway.SelectOne(ctx,
		"SELECT "+vehicleColumns+" FROM vehicles WHERE id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return nil, err
	}
	v := scanVehicle(row)
	return &v, nil
}

// GetByPlate is the counter-desk lookup: exact plate, case-insensitive.
func (r *PostgresVehicleRepo) GetByPlate(ctx context.Context, plate string) (*types.Vehicle, error) {
	row, err := r.gateway.SelectOne(ctx,
		"SELECT "+vehicleColumns+" FROM vehicles WHERE UPPER(license_plate) = UPPER(?) AND deleted_at IS NULL",
		plate)
	if err != nil {
		return nil, err
	}
	v := scanVehicle(row)
	return &v, nil
}

func (r *PostgresVehicleRepo) Create(ctx context.Context, params types.CreateVehicleParams) (*types.Vehicle, error) {
	id, err := r.gateway.Insert(ctx, "vehicles", map[string]any{
		"customer_id":   params.CustomerID,
		"license_plate": params.LicensePlate,
		"make":          params.Make,
		"model":         params.Model,
		"year":          params.Year,
		"color":         params.Color,
		"vin":           params.VIN,
		"notes":         params.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create vehicle: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresVehicleRepo) Update(ctx context.Context, id uuid.UUID, params types.UpdateVehicleParams) error {
	fields := map[string]any{"updated_at": time.Now()}
	if params.LicensePlate != nil {
		fields["license_plate"] = *params.LicensePlate
	}
	if params.Make != nil {
		fields["make"] = *params.Make
	}
	if params.Model != nil {
		fields["model"] = *params.Model
	}
	if params.Year != nil {
		fields["year"] = *params.Year
	}
	if params.Color != nil {
		fields["color"] = *params.Color
	}
	if params.VIN != nil {
		fields["vin"] = *params.VIN
	}
	if params.Notes != nil {
		fields["notes"] = *params.Notes
	}

	affected, err := r.gateway.Update(ctx, "vehicles", fields, "id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("update vehicle: %w", err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresVehicleRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	affected, err := r.gateway.Update(ctx, "vehicles",
		map[string]any{"deleted_at": time.Now()}, "id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("soft delete vehicle: %w", err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresVehicleRepo) OpenWorkOrderCount(ctx context.Context, id uuid.UUID) (int, error) {
	return r.gateway.Count(ctx, "work_orders",
		"vehicle_id = ? AND status NOT IN (?, ?)", id,
		string(types.StatusCompleted), string(types.StatusCancelled))
}
