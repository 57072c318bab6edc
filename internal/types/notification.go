package types

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType tags what produced a notification.
type NotificationType string

const (
	NotifyWorkOrderStatus NotificationType = "work_order_status"
	NotifyLowStock        NotificationType = "low_stock"
	NotifySecurity        NotificationType = "security"
)

type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// SecurityEventKind is the audit taxonomy for auth failures. Validation
// failures are deliberately absent: they are user input problems, not
// security events.
type SecurityEventKind string

const (
	EventLoginSuccess      SecurityEventKind = "login_success"
	EventLoginFailed       SecurityEventKind = "login_failed"
	EventLoginLocked       SecurityEventKind = "login_locked"
	EventLoginRateLimited  SecurityEventKind = "login_rate_limited"
	EventLogout            SecurityEventKind = "logout"
	EventRoleDenied        SecurityEventKind = "role_denied"
	EventRememberPromotion SecurityEventKind = "remember_promotion"
	EventRememberRejected  SecurityEventKind = "remember_rejected"
)

type SecurityEvent struct {
	ID        uuid.UUID         `json:"id"`
	Kind      SecurityEventKind `json:"kind"`
	UserID    *uuid.UUID        `json:"user_id,omitempty"`
	Username  string            `json:"username"`
	IPAddress string            `json:"ip_address"`
	Detail    *string           `json:"detail,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
