package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
)

var _ NotificationRepo = (*PostgresNotificationRepo)(nil)

// Recipient is the slice of a user a notification needs.
type Recipient struct {
	ID       uuid.UUID
	Email    string
	FullName string
}

type NotificationRepo interface {
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, filter types.ListFilter) (*types.Page[types.Notification], error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	Create(ctx context.Context, userID uuid.UUID, kind types.NotificationType, title, body string) error
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	RecipientsByRole(ctx context.Context, roles ...types.Role) ([]Recipient, error)
}

type PostgresNotificationRepo struct {
	logger  *slog.Logger
	gateway *gateway.Gateway
}

func NewPostgresNotificationRepo(gw *gateway.Gateway, logger *slog.Logger) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{logger: logger, gateway: gw}
}

const notificationColumns = "id, user_id, type, title, body, is_read, created_at"

func scanNotification(row map[string]any) types.Notification {
	return types.Notification{
		ID:        gateway.AsUUID(row, "id"),
		UserID:    gateway.AsUUID(row, "user_id"),
		Type:      types.NotificationType(gateway.AsString(row, "type")),
		Title:     gateway.AsString(row, "title"),
		Body:      gateway.AsString(row, "body"),
		IsRead:    gateway.AsBool(row, "is_read"),
		CreatedAt: gateway.AsTime(row, "created_at"),
	}
}

func (r *PostgresNotificationRepo) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, filter types.ListFilter) (*types.Page[types.Notification], error) {
	where := "user_id = ?"
	params := []any{userID}
	if unreadOnly {
		where += " AND is_read = FALSE"
	}

	total, err := r.gateway.Count(ctx, "notifications", where, params...)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM notifications WHERE %s ORDER BY created_at DESC LIMIT ? OFFSET ?",
		notificationColumns, where)
	rows, err := r.gateway.Select(ctx, query, append(params, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	items := make([]types.Notification, 0, len(rows))
	for _, row := range rows {
		items = append(items, scanNotification(row))
	}
	return &types.Page[types.Notification]{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (r *PostgresNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return r.gateway.Count(ctx, "notifications", "user_id = ? AND is_read = FALSE", userID)
}

func (r *PostgresNotificationRepo) Create(ctx context.Context, userID uuid.UUID, kind types.NotificationType, title, body string) error {
	_, err := r.gateway.Insert(ctx, "notifications", map[string]any{
		"user_id": userID,
		"type":    string(kind),
		"title":   title,
		"body":    body,
		"is_read": false,
	})
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// MarkRead scopes to the owning user so one user cannot mark another's
// notification.
func (r *PostgresNotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	affected, err := r.gateway.Update(ctx, "notifications",
		map[string]any{"is_read": true}, "id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresNotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	affected, err := r.gateway.Update(ctx, "notifications",
		map[string]any{"is_read": true}, "user_id = ? AND is_read = FALSE", userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return affected, nil
}

func (r *PostgresNotificationRepo) RecipientsByRole(ctx context.Context, roles ...types.Role) ([]Recipient, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	placeholders := ""
	params := make([]any, 0, len(roles))
	for i, role := range roles {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		params = append(params, string(role))
	}

	rows, err := r.gateway.Select(ctx,
		"SELECT id, email, full_name FROM users WHERE role IN ("+placeholders+") AND is_active = TRUE", params...)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}

	recipients := make([]Recipient, 0, len(rows))
	for _, row := range rows {
		recipients = append(recipients, Recipient{
			ID:       gateway.AsUUID(row, "id"),
			Email:    gateway.AsString(row, "email"),
			FullName: gateway.AsString(row, "full_name"),
		})
	}
	return recipients, nil
}
