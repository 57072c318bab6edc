package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// RememberCookieName carries the raw remember-me token; only its hash is
// ever persisted.
const RememberCookieName = "wrenchwise_remember"

// LoginRequest represents the login request body.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
	// Redirect is the page the client wanted before being sent to
	// login; echoed back on success so the UI can return there.
	Redirect string `json:"redirect,omitempty"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// RememberToken is the persisted long-lived credential substitute.
// At most one row exists per user; re-issuing replaces it.
type RememberToken struct {
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t RememberToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// newRememberToken returns the raw client token and its stored hash.
func newRememberToken() (raw string, hash string) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	raw = hex.EncodeToString(buf)
	return raw, HashRememberToken(raw)
}

// HashRememberToken is the one-way mapping from the cookie value to the
// persisted column.
func HashRememberToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
