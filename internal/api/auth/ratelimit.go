package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// rateCounter is one identifier's state inside a session's attribute map.
type rateCounter struct {
	Count       int
	WindowStart time.Time
}

// RateLimiter throttles per-identifier attempts inside a rolling window.
//
// Counters live in session-scoped storage, so the limiter only throttles
// one client session hammering an identifier; distributed attempts from
// many sessions are not mutually limited. Cross-session protection comes
// from the persisted per-account lockout columns instead.
type RateLimiter struct {
	now func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{now: time.Now}
}

// HashIdentifier derives the counter key from username and client IP.
func HashIdentifier(username, ip string) string {
	sum := sha256.Sum256([]byte(username + "|" + ip))
	return hex.EncodeToString(sum[:])
}

// Check reports whether another attempt is allowed and always consumes
// quota: two back-to-back calls without a successful auth still burn two
// attempts. A window older than windowSeconds resets the counter to 1
// (the current call) and allows; the first-ever call for an identifier
// initializes and allows.
func (rl *RateLimiter) Check(sess *Session, identifier string, maxAttempts int, window time.Duration) bool {
	key := "ratelimit:" + identifier
	now := rl.now()

	var c rateCounter
	if v, ok := sess.Attr(key); ok {
		c = v.(rateCounter)
	} else {
		c = rateCounter{Count: 0, WindowStart: now}
	}

	if now.Sub(c.WindowStart) > window {
		c = rateCounter{Count: 1, WindowStart: now}
		sess.SetAttr(key, c)
		return true
	}

	c.Count++
	sess.SetAttr(key, c)
	return c.Count <= maxAttempts
}
