package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
	"github.com/wrenchwise/workshop-api/internal/validation"
)

var _ UserService = (*ServiceImpl)(nil)

// UserService is the admin-facing account management surface. It also
// backs the auth package's credential writer.
type UserService interface {
	List(ctx context.Context) ([]types.User, error)
	Get(ctx context.Context, id uuid.UUID) (*types.User, error)
	Create(ctx context.Context, params types.CreateUserParams) (*types.User, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	Unlock(ctx context.Context, id uuid.UUID) error
	UpdatePasswordHash(ctx context.Context, userID string, hash string) error
}

type ServiceImpl struct {
	logger     *slog.Logger
	repo       UserRepo
	gateway    *gateway.Gateway
	bcryptCost int
}

func NewServiceImpl(repo UserRepo, gw *gateway.Gateway, bcryptCost int, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		repo:       repo,
		gateway:    gw,
		bcryptCost: bcryptCost,
	}
}

func (s *ServiceImpl) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

func (s *ServiceImpl) Get(ctx context.Context, id uuid.UUID) (*types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ServiceImpl) Create(ctx context.Context, params types.CreateUserParams) (*types.User, error) {
	l := s.logger.With(slog.String("method", "Create"), slog.String("username", params.Username))

	v := validation.UserAccount(map[string]string{
		"username":  params.Username,
		"email":     params.Email,
		"full_name": params.FullName,
		"role":      params.Role,
		"password":  params.Password,
	}, s.gateway, "")
	v.Required("password")
	if err := v.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate user: %w", err)
	}
	if !v.IsValid(ctx) {
		return nil, &types.ValidationError{Fields: v.Errors(ctx)}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", types.ErrInternal)
	}

	created, err := s.repo.Create(ctx, params, string(hash))
	if err != nil {
		l.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		return nil, err
	}
	l.InfoContext(ctx, "user created", slog.String("user_id", created.ID.String()), slog.String("role", params.Role))
	return created, nil
}

func (s *ServiceImpl) Update(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.User, error) {
	data := map[string]string{}
	if params.Email != nil {
		data["email"] = *params.Email
	}
	if params.FullName != nil {
		data["full_name"] = *params.FullName
	}
	if params.Role != nil {
		data["role"] = *params.Role
	}

	// Partial update: only the supplied fields run through validation.
	v := validation.New(data, s.gateway)
	v.Sometimes("email", func(v *validation.Validator) {
		v.Email("email").Unique("email", "users", "email", id.String(), "email is already in use")
	})
	v.Sometimes("full_name", func(v *validation.Validator) { v.Min("full_name", 2).Max("full_name", 120) })
	v.Sometimes("role", func(v *validation.Validator) { v.Custom("role", types.ValidRole, "unknown role") })
	if err := v.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate user update: %w", err)
	}
	if !v.IsValid(ctx) {
		return nil, &types.ValidationError{Fields: v.Errors(ctx)}
	}

	if err := s.repo.Update(ctx, id, params); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ServiceImpl) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.Deactivate(ctx, id)
}

func (s *ServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *ServiceImpl) Unlock(ctx context.Context, id uuid.UUID) error {
	s.logger.InfoContext(ctx, "account unlock requested", slog.String("user_id", id.String()))
	return s.repo.Unlock(ctx, id)
}

func (s *ServiceImpl) UpdatePasswordHash(ctx context.Context, userID string, hash string) error {
	return s.repo.UpdatePasswordHash(ctx, userID, hash)
}
