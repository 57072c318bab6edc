package customer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
)

var _ CustomerRepo = (*PostgresCustomerRepo)(nil)

type CustomerRepo interface {
	List(ctx context.Context, filter types.ListFilter) (*types.Page[types.Customer], error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Customer, error)
	Create(ctx context.Context, params types.CreateCustomerParams) (*types.Customer, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateCustomerParams) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	VehicleCount(ctx context.Context, id uuid.UUID) (int, error)
}

type PostgresCustomerRepo struct {
	logger  *slog.Logger
	gateway *gateway.Gateway
}

func NewPostgresCustomerRepo(gw *gateway.Gateway, logger *slog.Logger) *PostgresCustomerRepo {
	return &PostgresCustomerRepo{logger: logger, gateway: gw}
}

const customerColumns = `id, name, phone, email, address, notes, created_at, updated_at, deleted_at`

func scanCustomer(row map[string]any) types.Customer {
	return types.Customer{
		ID:        gateway.AsUUID(row, "id"),
		Name:      gateway.AsString(row, "name"),
		Phone:     gateway.AsString(row, "phone"),
		Email:     gateway.AsStringPtr(row, "email"),
		Address:   gateway.AsStringPtr(row, "address"),
		Notes:     gateway.AsStringPtr(row, "notes"),
		CreatedAt: gateway.AsTime(row, "created_at"),
		UpdatedAt: gateway.AsTime(row, "updated_at"),
		DeletedAt: gateway.AsTimePtr(row, "deleted_at"),
	}
}

func (r *PostgresCustomerRepo) List(ctx context.Context, filter types.ListFilter) (*types.Page[types.Customer], error) {
	where := "deleted_at IS NULL"
	params := []any{}
	if filter.Search != "" {
		where += " AND (name ILIKE ? OR phone ILIKE ?)"
		like := "%" + filter.Search + "%"
		params = append(params, like, like)
	}

	total, err := r.gateway.Count(ctx, "customers", where, params...)
	if err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM customers WHERE %s ORDER BY name LIMIT ? OFFSET ?",
		customerColumns, where)
	rows, err := r.gateway.Select(ctx, query, append(params, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	items := make([]types.Customer, 0, len(rows))
	for _, row := range rows {
		items = append(items, scanCustomer(row))
	}
	return &types.Page[types.Customer]{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (r *PostgresCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Customer, error) {
	row, err := r.gateway.SelectOne(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return nil, err
	}
	c := scanCustomer(row)
	return &c, nil
}

func (r *PostgresCustomerRepo) Create(ctx context.Context, params types.CreateCustomerParams) (*types.Customer, error) {
	id, err := r.gateway.Insert(ctx, "customers", map[string]any{
		"name":    params.Name,
		"phone":   params.Phone,
		"email":   params.Email,
		"address": params.Address,
		"notes":   params.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresCustomerRepo) Update(ctx context.Context, id uuid.UUID, params types.UpdateCustomerParams) error {
	fields := map[string]any{"updated_at": time.Now()}
	if params.Name != nil {
		fields["name"] = *params.Name
	}
	if params.Phone != nil {
		fields["phone"] = *params.Phone
	}
	if params.Email != nil {
		fields["email"] = *params.Email
	}
	if params.Address != nil {
		fields["address"] = *params.Address
	}
	if params.Notes != nil {
		fields["notes"] = *params.Notes
	}

	affected, err := r.gateway.Update(ctx, "customers", fields, "id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// SoftDelete keeps the row for historic work orders; listings and
// lookups filter it out.
func (r *PostgresCustomerRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	affected, err := r.gateway.Update(ctx, "customers",
		map[string]any{"deleted_at": time.Now()}, "id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("soft delete customer: %w", err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresCustomerRepo) VehicleCount(ctx context.Context, id uuid.UUID) (int, error) {
	return r.gateway.Count(ctx, "vehicles", "customer_id = ? AND deleted_at IS NULL", id)
}
