package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

type UserRepo interface {
	List(ctx context.Context) ([]types.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	Create(ctx context.Context, params types.CreateUserParams, passwordHash string) (*types.User, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpdatePasswordHash(ctx context.Context, userID string, hash string) error
	Unlock(ctx context.Context, id uuid.UUID) error
}

type PostgresUserRepo struct {
	logger  *slog.Logger
	gateway *gateway.Gateway
}

func NewPostgresUserRepo(gw *gateway.Gateway, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{logger: logger, gateway: gw}
}

const userColumns = `id, username, email, password_hash, full_name, role, is_active,
	failed_login_attempts, last_failed_login, account_locked_until,
	last_login_at, login_count, last_login_ip, created_at, updated_at`

func scanUser(row map[string]any) types.User {
	return types.User{
		ID:                  gateway.AsUUID(row, "id"),
		Username:            gateway.AsString(row, "username"),
		Email:               gateway.AsString(row, "email"),
		PasswordHash:        gateway.AsString(row, "password_hash"),
		FullName:            gateway.AsString(row, "full_name"),
		Role:                types.Role(gateway.AsString(row, "role")),
		IsActive:            gateway.AsBool(row, "is_active"),
		FailedLoginAttempts: gateway.AsInt(row, "failed_login_attempts"),
		LastFailedLogin:     gateway.AsTimePtr(row, "last_failed_login"),
		AccountLockedUntil:  gateway.AsTimePtr(row, "account_locked_until"),
		LastLoginAt:         gateway.AsTimePtr(row, "last_login_at"),
		LoginCount:          gateway.AsInt(row, "login_count"),
		LastLoginIP:         gateway.AsStringPtr(row, "last_login_ip"),
		CreatedAt:           gateway.AsTime(row, "created_at"),
		UpdatedAt:           gateway.AsTime(row, "updated_at"),
	}
}

func (r *PostgresUserRepo) List(ctx context.Context) ([]types.User, error) {
	rows, err := r.gateway.Select(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]types.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, scanUser(row))
	}
	return users, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	row, err := r.gateway.SelectOne(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	u := scanUser(row)
	return &u, nil
}

func (r *PostgresUserRepo) Create(ctx context.Context, params types.CreateUserParams, passwordHash string) (*types.User, error) {
	id, err := r.gateway.Insert(ctx, "users", map[string]any{
		"username":      params.Username,
		"email":         params.Email,
		"password_hash": passwordHash,
		"full_name":     params.FullName,
		"role":          params.Role,
		"is_active":     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresUserRepo) Update(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) error {
	fields := map[string]any{"updated_at": time.Now()}
	if params.Email != nil {
		fields["email"] = *params.Email
	}
	if params.FullName != nil {
		fields["full_name"] = *params.FullName
	}
	if params.Role != nil {
		fields["role"] = *params.Role
	}
	if params.IsActive != nil {
		fields["is_active"] = *params.IsActive
	}

	affected, err := r.gateway.Update(ctx, "users", fields, "id = ?", id)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	affected, err := r.gateway.Update(ctx, "users",
		map[string]any{"is_active": false, "updated_at": time.Now()}, "id = ?", id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := r.gateway.Delete(ctx, "users", "id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) UpdatePasswordHash(ctx context.Context, userID string, hash string) error {
	affected, err := r.gateway.Update(ctx, "users",
		map[string]any{"password_hash": hash, "updated_at": time.Now()}, "id = ?", userID)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// Unlock clears the failure counters so an admin can release a locked
// account before the window elapses.
func (r *PostgresUserRepo) Unlock(ctx context.Context, id uuid.UUID) error {
	affected, err := r.gateway.Update(ctx, "users", map[string]any{
		"failed_login_attempts": 0,
		"last_failed_login":     nil,
		"account_locked_until":  nil,
		"updated_at":            time.Now(),
	}, "id = ?", id)
	if err != nil {
		return fmt.Errorf("unlock user: %w", err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}
