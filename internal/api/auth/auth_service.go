package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wrenchwise/workshop-api/app/observability/metrics"
	"github.com/wrenchwise/workshop-api/config"
	"github.com/wrenchwise/workshop-api/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService orchestrates login, logout, session validation and
// remember-me promotion over the credential store.
type AuthService interface {
	// Login authenticates username/password for the given client
	// session. Every credential-class failure (unknown user, wrong
	// password, inactive or locked account, throttled attempt) surfaces
	// as ErrInvalidCredentials; only infrastructure problems surface as
	// ErrInternal. On success the session is regenerated and
	// authenticated, and when rememberMe is set the returned raw token
	// must be delivered to the client as a cookie.
	Login(ctx context.Context, sess *Session, req LoginRequest, ip string) (*types.UserDescriptor, string, error)

	// Logout clears the remember token and destroys the session. It
	// never reports failure: partial cleanup problems are logged only.
	Logout(ctx context.Context, sess *Session, ip string)

	// PromoteRememberToken resolves a raw remember cookie to its user,
	// re-checking expiry, account active flag and account lock. The
	// failed path deletes the stored token so a bad cookie is single-shot.
	PromoteRememberToken(ctx context.Context, raw, ip string) (*types.User, error)

	// ChangePassword verifies the old password before setting the new one.
	ChangePassword(ctx context.Context, userID types.UserDescriptor, oldPassword, newPassword string) error

	// RecordRoleDenial persists an authorization-failure audit event.
	RecordRoleDenial(ctx context.Context, user types.UserDescriptor, ip, path string)

	Sessions() *SessionManager
}

type AuthServiceImpl struct {
	logger   *slog.Logger
	repo     AuthRepo
	users    CredentialWriter
	sessions *SessionManager
	limiter  *RateLimiter
	cfg      config.AuthConfig
	now      func() time.Time
}

// CredentialWriter is the slice of the user store the auth service needs
// for password maintenance.
type CredentialWriter interface {
	UpdatePasswordHash(ctx context.Context, userID string, hash string) error
}

func NewAuthService(repo AuthRepo, users CredentialWriter, sessions *SessionManager, limiter *RateLimiter, cfg config.AuthConfig, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:   logger,
		repo:     repo,
		users:    users,
		sessions: sessions,
		limiter:  limiter,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *AuthServiceImpl) Sessions() *SessionManager { return s.sessions }

func (s *AuthServiceImpl) Login(ctx context.Context, sess *Session, req LoginRequest, ip string) (*types.UserDescriptor, string, error) {
	l := s.logger.With(slog.String("method", "Login"), slog.String("username", req.Username), slog.String("ip", ip))
	now := s.now()

	if m := metrics.Get(); m != nil {
		m.LoginAttemptsTotal.Add(ctx, 1)
	}

	// The rate limiter consumes quota before anything else; a throttled
	// caller never reaches credential comparison.
	identifier := HashIdentifier(req.Username, ip)
	if !s.limiter.Check(sess, identifier, s.cfg.MaxLoginAttempts, s.cfg.LockoutWindow) {
		l.WarnContext(ctx, "login attempt rate limited")
		_ = s.repo.RecordSecurityEvent(ctx, types.EventLoginRateLimited, nil, req.Username, ip, "")
		if m := metrics.Get(); m != nil {
			m.LoginRateLimitedTotal.Add(ctx, 1)
		}
		return nil, "", types.ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			// Same generic answer as a wrong password: no enumeration.
			_ = s.repo.RecordSecurityEvent(ctx, types.EventLoginFailed, nil, req.Username, ip, "user_not_found")
			return nil, "", types.ErrInvalidCredentials
		}
		l.ErrorContext(ctx, "credential lookup failed", slog.Any("error", err))
		return nil, "", fmt.Errorf("credential lookup: %w", types.ErrInternal)
	}

	// Account lock is checked before the password is even compared.
	if user.AccountLockedUntil != nil && user.AccountLockedUntil.After(now) {
		l.WarnContext(ctx, "login attempt on locked account", slog.Time("locked_until", *user.AccountLockedUntil))
		_ = s.repo.RecordSecurityEvent(ctx, types.EventLoginLocked, &user.ID, req.Username, ip, "")
		return nil, "", types.ErrInvalidCredentials
	}

	if !user.IsActive {
		_ = s.repo.RecordSecurityEvent(ctx, types.EventLoginFailed, &user.ID, req.Username, ip, "account_inactive")
		return nil, "", types.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		var lockUntil *time.Time
		if user.FailedLoginAttempts+1 >= s.cfg.MaxLoginAttempts {
			t := now.Add(s.cfg.LockoutWindow)
			lockUntil = &t
			l.WarnContext(ctx, "account lock threshold reached", slog.Time("locked_until", t))
			if m := metrics.Get(); m != nil {
				m.AccountLockoutsTotal.Add(ctx, 1)
			}
		}
		if ferr := s.repo.RecordLoginFailure(ctx, user.ID, now, lockUntil); ferr != nil {
			l.ErrorContext(ctx, "failed to record login failure", slog.Any("error", ferr))
		}
		_ = s.repo.RecordSecurityEvent(ctx, types.EventLoginFailed, &user.ID, req.Username, ip, "invalid_password")
		if m := metrics.Get(); m != nil {
			m.LoginFailuresTotal.Add(ctx, 1)
		}
		return nil, "", types.ErrInvalidCredentials
	}

	if err := s.repo.RecordLoginSuccess(ctx, user.ID, now, ip); err != nil {
		// The user proved who they are; a bookkeeping failure must not
		// bounce the login.
		l.ErrorContext(ctx, "failed to record login success", slog.Any("error", err))
	}

	s.sessions.Regenerate(sess)
	sess.Authenticate(user, now)
	s.sessions.Touch(sess)

	var rawToken string
	if req.RememberMe {
		var hash string
		rawToken, hash = newRememberToken()
		expires := now.Add(s.cfg.RememberLifetime)
		if err := s.repo.UpsertRememberToken(ctx, user.ID, hash, expires); err != nil {
			l.ErrorContext(ctx, "failed to store remember token", slog.Any("error", err))
			rawToken = "" // login still succeeds, just without remember-me
		}
	}

	_ = s.repo.RecordSecurityEvent(ctx, types.EventLoginSuccess, &user.ID, req.Username, ip, "")
	l.InfoContext(ctx, "login successful", slog.String("user_id", user.ID.String()), slog.String("role", string(user.Role)))

	desc := types.UserDescriptor{ID: user.ID, Username: user.Username, FullName: user.FullName, Role: user.Role}
	return &desc, rawToken, nil
}

func (s *AuthServiceImpl) Logout(ctx context.Context, sess *Session, ip string) {
	l := s.logger.With(slog.String("method", "Logout"))

	if sess.LoggedIn() {
		userID := sess.UserID()
		if err := s.repo.DeleteRememberToken(ctx, userID); err != nil {
			l.ErrorContext(ctx, "failed to delete remember token on logout", slog.Any("error", err))
		}
		_ = s.repo.RecordSecurityEvent(ctx, types.EventLogout, &userID, sess.User().Username, ip, "")
	}
	s.sessions.Destroy(sess.ID)
}

func (s *AuthServiceImpl) PromoteRememberToken(ctx context.Context, raw, ip string) (*types.User, error) {
	l := s.logger.With(slog.String("method", "PromoteRememberToken"), slog.String("ip", ip))
	now := s.now()

	token, err := s.repo.GetRememberToken(ctx, HashRememberToken(raw))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			_ = s.repo.RecordSecurityEvent(ctx, types.EventRememberRejected, nil, "", ip, "unknown_token")
			return nil, types.ErrUnauthenticated
		}
		return nil, fmt.Errorf("remember token lookup: %w", types.ErrInternal)
	}

	reject := func(detail string) (*types.User, error) {
		if derr := s.repo.DeleteRememberToken(ctx, token.UserID); derr != nil {
			l.ErrorContext(ctx, "failed to delete rejected remember token", slog.Any("error", derr))
		}
		_ = s.repo.RecordSecurityEvent(ctx, types.EventRememberRejected, &token.UserID, "", ip, detail)
		return nil, types.ErrUnauthenticated
	}

	if token.Expired(now) {
		return reject("expired")
	}

	user, err := s.repo.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return reject("user_missing")
		}
		return nil, fmt.Errorf("remember token user lookup: %w", types.ErrInternal)
	}
	if !user.IsActive {
		return reject("account_inactive")
	}
	if user.AccountLockedUntil != nil && user.AccountLockedUntil.After(now) {
		return reject("account_locked")
	}

	_ = s.repo.RecordSecurityEvent(ctx, types.EventRememberPromotion, &user.ID, user.Username, ip, "")
	l.InfoContext(ctx, "remember token promoted to session", slog.String("user_id", user.ID.String()))
	return user, nil
}

func (s *AuthServiceImpl) RecordRoleDenial(ctx context.Context, user types.UserDescriptor, ip, path string) {
	_ = s.repo.RecordSecurityEvent(ctx, types.EventRoleDenied, &user.ID, user.Username, ip, path)
	if m := metrics.Get(); m != nil {
		m.RoleDenialsTotal.Add(ctx, 1)
	}
}

func (s *AuthServiceImpl) ChangePassword(ctx context.Context, user types.UserDescriptor, oldPassword, newPassword string) error {
	stored, err := s.repo.GetUserByID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("password change lookup: %w", types.ErrInternal)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(oldPassword)); err != nil {
		return types.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", types.ErrInternal)
	}
	return s.users.UpdatePasswordHash(ctx, user.ID.String(), string(hash))
}
