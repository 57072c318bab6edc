package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/wrenchwise/workshop-api/internal/api"
	"github.com/wrenchwise/workshop-api/internal/types"
)

type contextKey string

const sessionKey contextKey = "session"

// LoginPath is where unauthenticated page-style requests get redirected;
// the originally requested path rides along for post-login return.
const LoginPath = "/login"

// SessionFromContext returns the request's session. The session
// middleware guarantees one exists for every routed request.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok
}

// CurrentUser returns the authenticated user's descriptor, if any.
func CurrentUser(ctx context.Context) (types.UserDescriptor, bool) {
	s, ok := SessionFromContext(ctx)
	if !ok || !s.LoggedIn() {
		return types.UserDescriptor{}, false
	}
	return s.User(), true
}

// Middleware wires the session lifecycle into the request path.
type Middleware struct {
	logger *slog.Logger
	svc    AuthService
}

func NewMiddleware(svc AuthService, logger *slog.Logger) *Middleware {
	return &Middleware{logger: logger, svc: svc}
}

// WithSession resolves the session cookie to a live session, refreshing
// its idle clock as a side effect. An expired or missing session falls
// back to remember-token promotion: a valid remember cookie transparently
// re-establishes a full authenticated session. Failing both, the request
// proceeds with a fresh anonymous session (which carries the CSRF token
// and the login rate-limit counters).
func (mw *Middleware) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		mgr := mw.svc.Sessions()

		if c, err := r.Cookie(SessionCookieName); err == nil {
			if sess, ok := mgr.Get(c.Value); ok {
				mgr.Touch(sess)
				next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, sessionKey, sess)))
				return
			}
		}

		sess := mgr.Start()
		if c, err := r.Cookie(RememberCookieName); err == nil && c.Value != "" {
			if user, perr := mw.svc.PromoteRememberToken(ctx, c.Value, api.ClientIP(r)); perr == nil {
				sess.Authenticate(user, sess.LastActivity())
				mgr.Touch(sess)
			} else {
				clearRememberCookie(w)
			}
		}
		mgr.WriteCookie(w, sess)
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, sessionKey, sess)))
	})
}

// isAPIRequest decides between the 401-JSON and redirect flavors of an
// authentication denial.
func isAPIRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// RequireLogin halts requests without an authenticated, unexpired
// session: API callers get 401, page callers get a login redirect that
// preserves the requested path.
func (mw *Middleware) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if ok && sess.LoggedIn() {
			next.ServeHTTP(w, r)
			return
		}
		if isAPIRequest(r) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}
		target := LoginPath + "?redirect=" + url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, target, http.StatusFound)
	})
}

// RequireRole runs after RequireLogin and additionally gates on role
// membership. Denials are logged as authorization security events,
// distinct from authentication failures.
func (mw *Middleware) RequireRole(roles ...types.Role) func(http.Handler) http.Handler {
	allowed := make(map[types.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess, ok := SessionFromContext(ctx)
			if !ok || !sess.LoggedIn() {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}
			if _, ok := allowed[sess.Role()]; !ok {
				user := sess.User()
				mw.logger.WarnContext(ctx, "role check denied",
					slog.String("user_id", user.ID.String()),
					slog.String("role", string(user.Role)),
					slog.String("path", r.URL.Path),
				)
				mw.svc.RecordRoleDenial(ctx, user, api.ClientIP(r), r.URL.Path)
				if isAPIRequest(r) {
					api.ErrorResponse(w, r, http.StatusForbidden, "Insufficient permissions")
					return
				}
				sess.AddFlash("error", "You do not have permission to access that page.")
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// VerifyCSRF rejects state-changing requests whose token does not match
// the session's token. Safe methods pass through.
func (mw *Middleware) VerifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if safeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		sess, ok := SessionFromContext(r.Context())
		if !ok || !ValidCSRF(sess, r.Header.Get(CSRFHeader)) {
			api.ErrorResponse(w, r, http.StatusForbidden, "Invalid or missing CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clearRememberCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RememberCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
