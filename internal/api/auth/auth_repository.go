package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
)

var _ AuthRepo = (*PostgresAuthRepo)(nil)

type AuthRepo interface {
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*types.User, error)

	// RecordLoginFailure increments the failure counter and stamps the
	// failure time; lockUntil, when non-nil, sets the time-boxed
	// account lock.
	RecordLoginFailure(ctx context.Context, userID uuid.UUID, now time.Time, lockUntil *time.Time) error

	// RecordLoginSuccess resets the failure counters, clears any lock
	// and updates the last-login tracking fields.
	RecordLoginSuccess(ctx context.Context, userID uuid.UUID, now time.Time, ip string) error

	// UpsertRememberToken replaces the user's single remember-token
	// row; tokens accumulate per user never.
	UpsertRememberToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRememberToken(ctx context.Context, tokenHash string) (*RememberToken, error)
	DeleteRememberToken(ctx context.Context, userID uuid.UUID) error

	RecordSecurityEvent(ctx context.Context, kind types.SecurityEventKind, userID *uuid.UUID, username, ip, detail string) error
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	gw     *gateway.Gateway
}

func NewPostgresAuthRepo(gw *gateway.Gateway, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{logger: logger, gw: gw}
}

const userColumns = `id, username, email, password_hash, full_name, role, is_active,
	failed_login_attempts, last_failed_login, account_locked_until,
	last_login_at, login_count, last_login_ip, created_at, updated_at`

func scanUser(row map[string]any) *types.User {
	return &types.User{
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

func (r *PostgresAuthRepo) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	row, err := r.gw.SelectOne(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	if err != nil {
		return nil, err
	}
	return scanUser(row), nil
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	row, err := r.gw.SelectOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return scanUser(row), nil
}

func (r *PostgresAuthRepo) RecordLoginFailure(ctx context.Context, userID uuid.UUID, now time.Time, lockUntil *time.Time) error {
	// The counter increment happens in SQL so concurrent failures are
	// not lost; the field-map Update helper cannot express that.
	query := "UPDATE users SET failed_login_attempts = failed_login_attempts + 1, last_failed_login = ?, updated_at = ?"
	params := []any{now, now}
	if lockUntil != nil {
		query += ", account_locked_until = ?"
		params = append(params, *lockUntil)
	}
	query += " WHERE id = ?"
	params = append(params, userID)

	_, err := r.gw.Exec(ctx, query, params...)
	return err
}

func (r *PostgresAuthRepo) RecordLoginSuccess(ctx context.Context, userID uuid.UUID, now time.Time, ip string) error {
	query := `UPDATE users SET failed_login_attempts = 0, last_failed_login = NULL,
		account_locked_until = NULL, last_login_at = ?, login_count = login_count + 1,
		last_login_ip = ?, updated_at = ? WHERE id = ?`
	_, err := r.gw.Exec(ctx, query, now, ip, now, userID)
	return err
}

func (r *PostgresAuthRepo) UpsertRememberToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	query := `INSERT INTO remember_tokens (user_id, token_hash, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET token_hash = EXCLUDED.token_hash, expires_at = EXCLUDED.expires_at`
	_, err := r.gw.Exec(ctx, query, userID, tokenHash, expiresAt)
	return err
}

func (r *PostgresAuthRepo) GetRememberToken(ctx context.Context, tokenHash string) (*RememberToken, error) {
	row, err := r.gw.SelectOne(ctx,
		"SELECT user_id, token_hash, expires_at FROM remember_tokens WHERE token_hash = ?", tokenHash)
	if err != nil {
		return nil, err
	}
	return &RememberToken{
		UserID:    gateway.AsUUID(row, "user_id"),
		TokenHash: gateway.AsString(row, "token_hash"),
		ExpiresAt: gateway.AsTime(row, "expires_at"),
	}, nil
}

func (r *PostgresAuthRepo) DeleteRememberToken(ctx context.Context, userID uuid.UUID) error {
	_, err := r.gw.Delete(ctx, "remember_tokens", "user_id = ?", userID)
	return err
}

// PurgeExpiredRememberTokens removes rows whose expiry has passed.
// Called from the maintenance scheduler.
func (r *PostgresAuthRepo) PurgeExpiredRememberTokens(ctx context.Context, now time.Time) (int64, error) {
	return r.gw.Delete(ctx, "remember_tokens", "expires_at < ?", now)
}

func (r *PostgresAuthRepo) RecordSecurityEvent(ctx context.Context, kind types.SecurityEventKind, userID *uuid.UUID, username, ip, detail string) error {
	fields := map[string]any{
		"kind":       string(kind),
		"username":   username,
		"ip_address": ip,
		"created_at": time.Now(),
	}
	if userID != nil {
		fields["user_id"] = *userID
	}
	if detail != "" {
		fields["detail"] = detail
	}
	_, err := r.gw.Insert(ctx, "security_events", fields)
	if err != nil {
		// Audit writes must never break the auth flow; log and move on.
		r.logger.ErrorContext(ctx, "failed to record security event",
			slog.String("kind", string(kind)), slog.Any("error", err))
	}
	return nil
}
