package customer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
	"github.com/wrenchwise/workshop-api/internal/validation"
)

var _ CustomerService = (*ServiceImpl)(nil)

type CustomerService interface {
	List(ctx context.Context, filter types.ListFilter) (*types.Page[types.Customer], error)
	Get(ctx context.Context, id uuid.UUID) (*types.Customer, error)
	Create(ctx context.Context, params types.CreateCustomerParams) (*types.Customer, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateCustomerParams) (*types.Customer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ServiceImpl struct {
	logger  *slog.Logger
	repo    CustomerRepo
	gateway *gateway.Gateway
}

func NewServiceImpl(repo CustomerRepo, gw *gateway.Gateway, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, gateway: gw}
}

const defaultPageSize = 25
const maxPageSize = 200

// clampFilter normalizes pagination so a hostile limit cannot dump the
// table or a negative offset break the query.
func clampFilter(f types.ListFilter) types.ListFilter {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func (s *ServiceImpl) List(ctx context.Context, filter types.ListFilter) (*types.Page[types.Customer], error) {
	return s.repo.List(ctx, clampFilter(filter))
}

func (s *ServiceImpl) Get(ctx context.Context, id uuid.UUID) (*types.Customer, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ServiceImpl) Create(ctx context.Context, params types.CreateCustomerParams) (*types.Customer, error) {
	l := s.logger.With(slog.String("method", "Create"))

	data := map[string]string{
		"name":  params.Name,
		"phone": params.Phone,
	}
	if params.Email != nil {
		data["email"] = *params.Email
	}
	if params.Address != nil {
		data["address"] = *params.Address
	}
	if params.Notes != nil {
		data["notes"] = *params.Notes
	}

	v := validation.Customer(data, s.gateway, "")
	if err := v.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate customer: %w", err)
	}
	if !v.IsValid(ctx) {
		return nil, &types.ValidationError{Fields: v.Errors(ctx)}
	}

	created, err := s.repo.Create(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "failed to create customer", slog.Any("error", err))
		return nil, err
	}
	l.InfoContext(ctx, "customer created", slog.String("customer_id", created.ID.String()))
	return created, nil
}

func (s *ServiceImpl) Update(ctx context.Context, id uuid.UUID, params types.UpdateCustomerParams) (*types.Customer, error) {
	data := map[string]string{}
	if params.Name != nil {
		data["name"] = *params.Name
	}
	if params.Phone != nil {
		data["phone"] = *params.Phone
	}
	if params.Email != nil {
		data["email"] = *params.Email
	}
	if params.Address != nil {
		data["address"] = *params.Address
	}
	if params.Notes != nil {
		data["notes"] = *params.Notes
	}

	v := validation.New(data, s.gateway)
	v.Sometimes("name", func(v *validation.Validator) { v.Min("name", 2).Max("name", 120) })
	v.Sometimes("phone", func(v *validation.Validator) {
		v.Phone("phone").UniqueLive("phone", "customers", "phone", id.String(), "phone number is already registered to another customer")
	})
	v.Sometimes("email", func(v *validation.Validator) {
		v.Email("email").UniqueLive("email", "customers", "email", id.String(), "email is already registered to another customer")
	})
	v.Sometimes("address", func(v *validation.Validator) { v.Max("address", 500) })
	v.Sometimes("notes", func(v *validation.Validator) { v.Max("notes", 2000) })
	if err := v.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate customer update: %w", err)
	}
	if !v.IsValid(ctx) {
		return nil, &types.ValidationError{Fields: v.Errors(ctx)}
	}

	if err := s.repo.Update(ctx, id, params); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete refuses while the customer still has vehicles on file, matching
// the dependent-records rule used across the product.
func (s *ServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	vehicles, err := s.repo.VehicleCount(ctx, id)
	if err != nil {
		return err
	}
	if vehicles > 0 {
		return fmt.Errorf("customer has %d vehicles on file: %w", vehicles, types.ErrConflict)
	}
	return s.repo.SoftDelete(ctx, id)
}
