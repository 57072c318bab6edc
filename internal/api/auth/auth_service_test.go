package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wrenchwise/workshop-api/config"
	"github.com/wrenchwise/workshop-api/internal/types"
)

// MockAuthRepo is a mock implementation of the AuthRepo interface
type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) RecordLoginFailure(ctx context.Context, userID uuid.UUID, now time.Time, lockUntil *time.Time) error {
	args := m.Called(ctx, userID, now, lockUntil)
	return args.Error(0)
}

func (m *MockAuthRepo) RecordLoginSuccess(ctx context.Context, userID uuid.UUID, now time.Time, ip string) error {
	args := m.Called(ctx, userID, now, ip)
	return args.Error(0)
}

func (m *MockAuthRepo) UpsertRememberToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockAuthRepo) GetRememberToken(ctx context.Context, tokenHash string) (*RememberToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RememberToken), args.Error(1)
}

func (m *MockAuthRepo) DeleteRememberToken(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAuthRepo) RecordSecurityEvent(ctx context.Context, kind types.SecurityEventKind, userID *uuid.UUID, username, ip, detail string) error {
	args := m.Called(ctx, kind, userID, username, ip, detail)
	return args.Error(0)
}

type MockCredentialWriter struct {
	mock.Mock
}

func (m *MockCredentialWriter) UpdatePasswordHash(ctx context.Context, userID string, hash string) error {
	args := m.Called(ctx, userID, hash)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		SessionLifetime:  30 * time.Minute,
		MaxLoginAttempts: 5,
		LockoutWindow:    15 * time.Minute,
		RememberLifetime: 30 * 24 * time.Hour,
		BcryptCost:       bcrypt.MinCost,
	}
}

func newTestService(repo *MockAuthRepo, users CredentialWriter) (*AuthServiceImpl, *SessionManager) {
	sessions := NewSessionManager(30*time.Minute, false, testLogger())
	svc := NewAuthService(repo, users, sessions, NewRateLimiter(), testAuthConfig(), testLogger())
	return svc, sessions
}

func activeUser(t *testing.T, password string) *types.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &types.User{
		ID:           uuid.New(),
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		FullName:     "Ada Admin",
		Role:         types.RoleAdmin,
		IsActive:     true,
	}
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAuthRepo)
	user := activeUser(t, "correctpass")

	repo.On("GetUserByUsername", ctx, "admin").Return(user, nil)
	repo.On("RecordLoginSuccess", ctx, user.ID, mock.Anything, "203.0.113.9").Return(nil)
	repo.On("RecordSecurityEvent", ctx, types.EventLoginSuccess, &user.ID, "admin", "203.0.113.9", "").Return(nil)

	svc, _ := newTestService(repo, nil)
	sess := svc.Sessions().Start()
	originalID := sess.ID

	desc, remember, err := svc.Login(ctx, sess, LoginRequest{Username: "admin", Password: "correctpass"}, "203.0.113.9")
	require.NoError(t, err)
	require.NotNil(t, desc)
	assert.Equal(t, user.ID, desc.ID)
	assert.Equal(t, types.RoleAdmin, desc.Role)
	assert.Empty(t, remember, "no remember token unless requested")

	assert.True(t, sess.LoggedIn())
	assert.NotEqual(t, originalID, sess.ID, "session id must rotate on login")
	repo.AssertExpectations(t)
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAuthRepo)
	user := activeUser(t, "correctpass")

	repo.On("GetUserByUsername", ctx, "admin").Return(user, nil)
	repo.On("RecordLoginFailure", ctx, user.ID, mock.Anything, (*time.Time)(nil)).Return(nil)
	repo.On("RecordSecurityEvent", ctx, types.EventLoginFailed, &user.ID, "admin", "203.0.113.9", "invalid_password").Return(nil)

	svc, _ := newTestService(repo, nil)
	sess := svc.Sessions().Start()

	desc, _, err := svc.Login(ctx, sess, LoginRequest{Username: "admin", Password: "wrongpass"}, "203.0.113.9")
	assert.Nil(t, desc)
	assert.ErrorIs(t, err, types.ErrInvalidCredentials)
	assert.False(t, sess.LoggedIn())
	repo.AssertExpectations(t)
}

func TestLogin_UnknownUserSameError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAuthRepo)

	repo.On("GetUserByUsername", ctx, "ghost").Return(nil, types.ErrNotFound)
	repo.On("RecordSecurityEvent", ctx, types.EventLoginFailed, (*uuid.UUID)(nil), "ghost", "203.0.113.9", "user_not_found").Return(nil)

	svc, _ := newTestService(repo, nil)
	sess := svc.Sessions().Start()

	_, _, err := svc.Login(ctx, sess, LoginRequest{Username: "ghost", Password: "whatever"}, "203.0.113.9")
	assert.ErrorIs(t, err, types.ErrInvalidCredentials,
		"unknown user and wrong password must be indistinguishable")
	repo.AssertExpectations(t)
}

// Five wrong passwords exhaust the throttle: the sixth attempt is
// rejected before credential comparison even when the password is right.
func TestLogin_ThrottledAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAuthRepo)
	user := activeUser(t, "correctpass")

	repo.On("GetUserByUsername", ctx, "admin").Return(user, nil)
	repo.On("RecordLoginFailure", ctx, user.ID, mock.Anything, mock.Anything).Return(nil)
	repo.On("RecordSecurityEvent", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc, _ := newTestService(repo, nil)
	sess := svc.Sessions().Start()

	for i := 0; i < 5; i++ {
		_, _, err := svc.Login(ctx, sess, LoginRequest{Username: "admin", Password: "wrongpass"}, "203.0.113.9")
		require.ErrorIs(t, err, types.ErrInvalidCredentials)
	}

	_, _, err := svc.Login(ctx, sess, LoginRequest{Username: "admin", Password: "correctpass"}, "203.0.113.9")
	assert.ErrorIs(t, err, types.ErrInvalidCredentials)
	assert.False(t, sess.LoggedIn())
	repo.AssertNotCalled(t, "RecordLoginSuccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_LockoutSetAtThreshold(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAuthRepo)
	user := activeUser(t, "correctpass")
	user.FailedLoginAttempts = 4 // next failure is the fifth

	repo.On("GetUserByUsername", ctx, "admin").Return(user, nil)
	repo.On("RecordLoginFailure", ctx, user.ID, mock.Anything, mock.MatchedBy(func(lockUntil *time.Time) bool {
		return lockUntil != nil && lockUntil.After(time.Now())
	})).Return(nil)
	repo.On("RecordSecurityEvent", ctx, types.EventLoginFailed, &user.ID, "admin", "203.0.113.9", "invalid_password").Return(nil)

	svc, _ := newTestService(repo, nil)
	sess := svc.Sessions().Start()

	_, _, err := svc.Login(ctx, sess, LoginRequest{Username: "admin", Password: "wrongpass"}, "203.0.113.9")
	assert.ErrorIs(t, err, types.ErrInvalidCredentials)
	repo.AssertExpectations(t)
}

func TestLogin_LockedAccountRejectedBeforePasswordCheck(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAuthRepo)
	user := activeUser(t, "correctpass")
	lockedUntil := time.Now().Add(10 * time.Minute)
	user.AccountLockedUntil = &lockedUntil

	repo.On("GetUserByUsername", ctx, "admin").Return(user, nil)
	repo.On("RecordSecurityEvent", ctx, types.EventLoginLocked, &user.ID, "admin", "203.0.113.9", "").Return(nil)

	svc, _ := newTestService(repo, nil)
	sess := svc.Sessions().Start()

	// Correct password, but the lock wins.
	_, _, err := svc.Login(ctx, sess, LoginRequest{Username: "admin", Password: "correctpass"}, "203.0.113.9")
	assert.ErrorIs(t, err, types.ErrInvalidCredentials)
	repo.AssertNotCalled(t, "RecordLoginFailure", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestLogin_InactiveAccountRejected(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAuthRepo)
	user := activeUser(t, "correctpass")
	user.IsActive = false

	repo.On("GetUserByUsername", ctx, "admin").Return(user, nil)
	repo.On("RecordSecurityEvent", ctx, types.EventLoginFailed, &user.ID, "admin", "203.0.113.9", "account_inactive").Return(nil)

	svc, _ := newTestService(repo, nil)
	sess := svc.Sessions().Start()

	_, _, err := svc.Login(ctx, sess, LoginRequest{Username: "admin", Password: "correctpass"}, "203.0.113.9")
	assert.ErrorIs(t, err, types.ErrInvalidCredentials)
	repo.AssertExpectations(t)
}

func TestLogin_RememberMeStoresHashedToken(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAuthRepo)
	user := activeUser(t, "correctpass")

	var storedHash string
	repo.On("GetUserByUsername", ctx, "admin").Return(user, nil)
	repo.On("RecordLoginSuccess", ctx, user.ID, mock.Anything, "203.0.113.9").Return(nil)
	repo.On("UpsertRememberToken", ctx, user.ID, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { storedHash = args.String(2) }).
		Return(nil)
	repo.On("RecordSecurityEvent", ctx, types.EventLoginSuccess, &user.ID, "admin", "203.0.113.9", "").Return(nil)

	svc, _ := newTestService(repo, nil)
	sess := svc.Sessions().Start()

	_, raw, err := svc.Login(ctx, sess, LoginRequest{Username: "admin", Password: "correctpass", RememberMe: true}, "203.0.113.9")
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.NotEqual(t, raw, storedHash, "raw token must never be persisted")
	assert.Equal(t, HashRememberToken(raw), storedHash)
	repo.AssertExpectations(t)
}

func TestLogin_RememberStoreFailureStillLogsIn(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAuthRepo)
	user := activeUser(t, "correctpass")

	repo.On("GetUserByUsername", ctx, "admin").Return(user, nil)
	repo.On("RecordLoginSuccess", ctx, user.ID, mock.Anything, "203.0.113.9").Return(nil)
	repo.On("UpsertRememberToken", ctx, user.ID, mock.Anything, mock.Anything).Return(types.ErrInternal)
	repo.On("RecordSecurityEvent", ctx, types.EventLoginSuccess, &user.ID, "admin", "203.0.113.9", "").Return(nil)

	svc, _ := newTestService(repo, nil)
	sess := svc.Sessions().Start()

	desc, raw, err := svc.Login(ctx, sess, LoginRequest{Username: "admin", Password: "correctpass", RememberMe: true}, "203.0.113.9")
	require.NoError(t, err)
	require.NotNil(t, desc)
	assert.Empty(t, raw)
	assert.True(t, sess.LoggedIn())
}

func TestPromoteRememberToken(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token resolves to user", func(t *testing.T) {
		repo := new(MockAuthRepo)
		user := activeUser(t, "pw")
		raw, hash := newRememberToken()

		repo.On("GetRememberToken", ctx, hash).Return(&RememberToken{
			UserID:    user.ID,
			TokenHash: hash,
			ExpiresAt: time.Now().Add(time.Hour),
		}, nil)
		repo.On("GetUserByID", ctx, user.ID).Return(user, nil)
		repo.On("RecordSecurityEvent", ctx, types.EventRememberPromotion, &user.ID, "admin", "203.0.113.9", "").Return(nil)

		svc, _ := newTestService(repo, nil)
		got, err := svc.PromoteRememberToken(ctx, raw, "203.0.113.9")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		repo.AssertExpectations(t)
	})

	t.Run("expired token is deleted and rejected", func(t *testing.T) {
		repo := new(MockAuthRepo)
		userID := uuid.New()
		raw, hash := newRememberToken()

		repo.On("GetRememberToken", ctx, hash).Return(&RememberToken{
			UserID:    userID,
			TokenHash: hash,
			ExpiresAt: time.Now().Add(-time.Minute),
		}, nil)
		repo.On("DeleteRememberToken", ctx, userID).Return(nil)
		repo.On("RecordSecurityEvent", ctx, types.EventRememberRejected, &userID, "", "203.0.113.9", "expired").Return(nil)

		svc, _ := newTestService(repo, nil)
		_, err := svc.PromoteRememberToken(ctx, raw, "203.0.113.9")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		repo.AssertExpectations(t)
	})

	t.Run("locked account rejects the token", func(t *testing.T) {
		repo := new(MockAuthRepo)
		user := activeUser(t, "pw")
		lockedUntil := time.Now().Add(time.Hour)
		user.AccountLockedUntil = &lockedUntil
		raw, hash := newRememberToken()

		repo.On("GetRememberToken", ctx, hash).Return(&RememberToken{
			UserID:    user.ID,
			TokenHash: hash,
			ExpiresAt: time.Now().Add(time.Hour),
		}, nil)
		repo.On("GetUserByID", ctx, user.ID).Return(user, nil)
		repo.On("DeleteRememberToken", ctx, user.ID).Return(nil)
		repo.On("RecordSecurityEvent", ctx, types.EventRememberRejected, &user.ID, "", "203.0.113.9", "account_locked").Return(nil)

		svc, _ := newTestService(repo, nil)
		_, err := svc.PromoteRememberToken(ctx, raw, "203.0.113.9")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		repo.AssertExpectations(t)
	})

	t.Run("unknown token", func(t *testing.T) {
		repo := new(MockAuthRepo)
		repo.On("GetRememberToken", ctx, mock.Anything).Return(nil, types.ErrNotFound)
		repo.On("RecordSecurityEvent", ctx, types.EventRememberRejected, (*uuid.UUID)(nil), "", "203.0.113.9", "unknown_token").Return(nil)

		svc, _ := newTestService(repo, nil)
		_, err := svc.PromoteRememberToken(ctx, "not-a-real-token", "203.0.113.9")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})
}

func TestLogout_ClearsSessionAndRememberToken(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAuthRepo)
	user := activeUser(t, "correctpass")

	repo.On("GetUserByUsername", ctx, "admin").Return(user, nil)
	repo.On("RecordLoginSuccess", ctx, user.ID, mock.Anything, "203.0.113.9").Return(nil)
	repo.On("DeleteRememberToken", ctx, user.ID).Return(nil)
	repo.On("RecordSecurityEvent", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc, sessions := newTestService(repo, nil)
	sess := sessions.Start()
	_, _, err := svc.Login(ctx, sess, LoginRequest{Username: "admin", Password: "correctpass"}, "203.0.113.9")
	require.NoError(t, err)

	svc.Logout(ctx, sess, "203.0.113.9")

	_, ok := sessions.Get(sess.ID)
	assert.False(t, ok, "session must be gone after logout")
	repo.AssertCalled(t, "DeleteRememberToken", ctx, user.ID)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong current password", func(t *testing.T) {
		repo := new(MockAuthRepo)
		users := new(MockCredentialWriter)
		user := activeUser(t, "oldpass")

		repo.On("GetUserByID", ctx, user.ID).Return(user, nil)

		svc, _ := newTestService(repo, users)
		err := svc.ChangePassword(ctx, types.UserDescriptor{ID: user.ID, Username: user.Username}, "notmyoldpass", "newpass123")
		assert.ErrorIs(t, err, types.ErrInvalidCredentials)
		users.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stores a fresh bcrypt hash", func(t *testing.T) {
		repo := new(MockAuthRepo)
		users := new(MockCredentialWriter)
		user := activeUser(t, "oldpass")

		repo.On("GetUserByID", ctx, user.ID).Return(user, nil)
		var storedHash string
		users.On("UpdatePasswordHash", ctx, user.ID.String(), mock.Anything).
			Run(func(args mock.Arguments) { storedHash = args.String(2) }).
			Return(nil)

		svc, _ := newTestService(repo, users)
		err := svc.ChangePassword(ctx, types.UserDescriptor{ID: user.ID, Username: user.Username}, "oldpass", "newpass123")
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte("newpass123")))
		users.AssertExpectations(t)
	})
}
