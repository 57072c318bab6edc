package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/wrenchwise/workshop-api/config"
	"github.com/wrenchwise/workshop-api/internal/api"
	"github.com/wrenchwise/workshop-api/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
	CSRF(w http.ResponseWriter, r *http.Request)
	ChangePassword(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	authService AuthService
	cfg         config.AuthConfig
	logger      *slog.Logger
}

func NewHandlerImpl(authService AuthService, cfg config.AuthConfig, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		authService: authService,
		cfg:         cfg,
		logger:      logger,
	}
}

// Login godoc
// @Summary      Log in
// @Description  Authenticates username/password against the credential store and establishes a session.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body LoginRequest true "Credentials"
// @Success      200 {object} types.UserDescriptor "Authenticated user"
// @Failure      401 {object} api.Response "Invalid credentials"
// @Failure      500 {object} api.Response "Internal Server Error"
// @Router       /auth/login [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	sess, ok := SessionFromContext(ctx)
	if !ok {
		l.ErrorContext(ctx, "no session on login request")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Session unavailable")
		return
	}

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, rememberToken, err := h.authService.Login(ctx, sess, req, api.ClientIP(r))
	if err != nil {
		if errors.Is(err, types.ErrInvalidCredentials) {
			// One generic message for every credential-class failure.
			api.ErrorResponse(w, r, http.StatusUnauthorized, types.ErrInvalidCredentials.Error())
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Login failed, please try again")
		return
	}

	// Login regenerated the session id; reissue the cookie.
	h.authService.Sessions().WriteCookie(w, sess)

	if rememberToken != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     RememberCookieName,
			Value:    rememberToken,
			Path:     "/",
			MaxAge:   int(h.cfg.RememberLifetime.Seconds()),
			HttpOnly: true,
			Secure:   h.cfg.SecureCookies,
			SameSite: http.SameSiteStrictMode,
		})
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"success":  true,
		"user":     user,
		"redirect": req.Redirect,
	})
}

// Logout godoc
// @Summary      Log out
// @Description  Destroys the session and revokes the remember-me token. Always succeeds.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} api.Response
// @Router       /auth/logout [post]
func (h *HandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if sess, ok := SessionFromContext(ctx); ok {
		h.authService.Logout(ctx, sess, api.ClientIP(r))
	}
	h.authService.Sessions().ClearCookie(w)
	clearRememberCookie(w)

	// Logout never fails visibly, even when cleanup partially failed.
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "Logged out"})
}

// Me godoc
// @Summary      Current user
// @Description  Returns the authenticated user's descriptor.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} types.UserDescriptor
// @Failure      401 {object} api.Response "Unauthenticated"
// @Router       /auth/me [get]
func (h *HandlerImpl) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// CSRF godoc
// @Summary      CSRF token
// @Description  Returns the session's anti-forgery token for state-changing requests.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /auth/csrf [get]
func (h *HandlerImpl) CSRF(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Session unavailable")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{"csrf_token": sess.CSRFToken()})
}

// ChangePassword godoc
// @Summary      Change own password
// @Description  Verifies the current password before storing the new hash.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body ChangePasswordRequest true "Passwords"
// @Success      200 {object} api.Response
// @Failure      401 {object} api.Response "Wrong current password"
// @Router       /auth/password [put]
func (h *HandlerImpl) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ChangePassword"))

	user, ok := CurrentUser(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.NewPassword) < 8 {
		api.ValidationErrorResponse(w, r, map[string][]string{
			"new_password": {"new_password must be at least 8 characters"},
		})
		return
	}

	if err := h.authService.ChangePassword(ctx, user, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, types.ErrInvalidCredentials) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Current password is incorrect")
			return
		}
		l.ErrorContext(ctx, "password change failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Password change failed")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "Password updated"})
}
