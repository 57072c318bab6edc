package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wrenchwise/workshop-api/internal/types"
)

func okHandler(hit *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func newTestMiddleware(t *testing.T) (*Middleware, *AuthServiceImpl, *MockAuthRepo) {
	t.Helper()
	repo := new(MockAuthRepo)
	svc, _ := newTestService(repo, nil)
	return NewMiddleware(svc, testLogger()), svc, repo
}

func TestWithSession_NewVisitorGetsAnonymousSession(t *testing.T) {
	mw, svc, _ := newTestMiddleware(t)

	var sess *Session
	handler := mw.WithSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		sess, ok = SessionFromContext(r.Context())
		require.True(t, ok)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil))

	require.NotNil(t, sess)
	assert.False(t, sess.LoggedIn())
	assert.NotEmpty(t, sess.CSRFToken())

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, sess.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	_, ok := svc.Sessions().Get(sess.ID)
	assert.True(t, ok)
}

func TestWithSession_ResumesExistingSession(t *testing.T) {
	mw, svc, _ := newTestMiddleware(t)
	existing := svc.Sessions().Start()

	var resumed *Session
	handler := mw.WithSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resumed, _ = SessionFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: existing.ID})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Same(t, existing, resumed)
}

func TestWithSession_RememberCookiePromotes(t *testing.T) {
	mw, _, repo := newTestMiddleware(t)
	user := activeUser(t, "pw")
	raw, hash := newRememberToken()

	repo.On("GetRememberToken", mock.Anything, hash).Return(&RememberToken{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("RecordSecurityEvent", mock.Anything, types.EventRememberPromotion, &user.ID, "admin", mock.Anything, "").Return(nil)

	var sess *Session
	handler := mw.WithSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ = SessionFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: RememberCookieName, Value: raw})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, sess)
	assert.True(t, sess.LoggedIn(), "valid remember cookie must re-establish a session")
	assert.Equal(t, user.ID, sess.UserID())
}

func TestWithSession_BadRememberCookieCleared(t *testing.T) {
	mw, _, repo := newTestMiddleware(t)

	repo.On("GetRememberToken", mock.Anything, mock.Anything).Return(nil, types.ErrNotFound)
	repo.On("RecordSecurityEvent", mock.Anything, types.EventRememberRejected, mock.Anything, "", mock.Anything, "unknown_token").Return(nil)

	var sess *Session
	handler := mw.WithSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ = SessionFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: RememberCookieName, Value: "stolen-or-stale"})
	handler.ServeHTTP(rec, req)

	require.NotNil(t, sess)
	assert.False(t, sess.LoggedIn())

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == RememberCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "rejected remember cookie must be expired on the client")
}

func withSessionCtx(r *http.Request, sess *Session) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), sessionKey, sess))
}

func TestRequireLogin(t *testing.T) {
	mw, svc, _ := newTestMiddleware(t)

	t.Run("API request gets 401", func(t *testing.T) {
		var hit bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
		mw.RequireLogin(okHandler(&hit)).ServeHTTP(rec, withSessionCtx(req, svc.Sessions().Start()))

		assert.False(t, hit)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("page request redirects with return path", func(t *testing.T) {
		var hit bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/customers?page=2", nil)
		mw.RequireLogin(okHandler(&hit)).ServeHTTP(rec, withSessionCtx(req, svc.Sessions().Start()))

		assert.False(t, hit)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login?redirect=%2Fcustomers%3Fpage%3D2", rec.Header().Get("Location"))
	})

	t.Run("authenticated session passes", func(t *testing.T) {
		sess := svc.Sessions().Start()
		sess.Authenticate(activeUser(t, "pw"), time.Now())

		var hit bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
		mw.RequireLogin(okHandler(&hit)).ServeHTTP(rec, withSessionCtx(req, sess))

		assert.True(t, hit)
	})
}

func TestRequireRole(t *testing.T) {
	mw, svc, repo := newTestMiddleware(t)
	repo.On("RecordSecurityEvent", mock.Anything, types.EventRoleDenied, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	technician := activeUser(t, "pw")
	technician.Role = types.RoleTechnician

	t.Run("wrong role gets 403 on API paths", func(t *testing.T) {
		sess := svc.Sessions().Start()
		sess.Authenticate(technician, time.Now())

		var hit bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
		mw.RequireRole(types.RoleAdmin)(okHandler(&hit)).ServeHTTP(rec, withSessionCtx(req, sess))

		assert.False(t, hit)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		repo.AssertCalled(t, "RecordSecurityEvent", mock.Anything, types.EventRoleDenied, mock.Anything, mock.Anything, mock.Anything, "/api/v1/users")
	})

	t.Run("matching role passes", func(t *testing.T) {
		sess := svc.Sessions().Start()
		sess.Authenticate(activeUser(t, "pw"), time.Now())

		var hit bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
		mw.RequireRole(types.RoleAdmin, types.RoleManager)(okHandler(&hit)).ServeHTTP(rec, withSessionCtx(req, sess))

		assert.True(t, hit)
	})
}

func TestVerifyCSRF(t *testing.T) {
	mw, svc, _ := newTestMiddleware(t)
	sess := svc.Sessions().Start()

	t.Run("GET passes without a token", func(t *testing.T) {
		var hit bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
		mw.VerifyCSRF(okHandler(&hit)).ServeHTTP(rec, withSessionCtx(req, sess))
		assert.True(t, hit)
	})

	t.Run("POST without token is rejected", func(t *testing.T) {
		var hit bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", nil)
		mw.VerifyCSRF(okHandler(&hit)).ServeHTTP(rec, withSessionCtx(req, sess))
		assert.False(t, hit)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("POST with the session token passes", func(t *testing.T) {
		var hit bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", nil)
		req.Header.Set(CSRFHeader, sess.CSRFToken())
		mw.VerifyCSRF(okHandler(&hit)).ServeHTTP(rec, withSessionCtx(req, sess))
		assert.True(t, hit)
	})

	t.Run("token from another session is rejected", func(t *testing.T) {
		other := svc.Sessions().Start()
		var hit bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", nil)
		req.Header.Set(CSRFHeader, other.CSRFToken())
		mw.VerifyCSRF(okHandler(&hit)).ServeHTTP(rec, withSessionCtx(req, sess))
		assert.False(t, hit)
	})
}
