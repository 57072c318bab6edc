package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/wrenchwise/workshop-api/config"
	"github.com/wrenchwise/workshop-api/internal/types"
)

var _ NotificationService = (*ServiceImpl)(nil)

type NotificationService interface {
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, filter types.ListFilter) (*types.Page[types.Notification], error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)

	WorkOrderStatusChanged(ctx context.Context, wo *types.WorkOrder, from, to types.WorkOrderStatus)
	LowStock(ctx context.Context, item *types.InventoryItem)
}

// ServiceImpl fans events out to in-app notifications and, when mail is
// enabled, to email. Delivery failures are logged and swallowed; a
// notification must never fail the operation that raised it.
type ServiceImpl struct {
	logger *slog.Logger
	repo   NotificationRepo
	mailer EmailSender
	cfg    config.MailConfig
}

func NewServiceImpl(repo NotificationRepo, mailer EmailSender, cfg config.MailConfig, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, mailer: mailer, cfg: cfg}
}

func (s *ServiceImpl) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, filter types.ListFilter) (*types.Page[types.Notification], error) {
	if filter.Limit <= 0 {
		filter.Limit = 25
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListForUser(ctx, userID, unreadOnly, filter)
}

func (s *ServiceImpl) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *ServiceImpl) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *ServiceImpl) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// WorkOrderStatusChanged notifies the assigned technician and the
// creator in-app. Completions additionally go to managers by email.
func (s *ServiceImpl) WorkOrderStatusChanged(ctx context.Context, wo *types.WorkOrder, from, to types.WorkOrderStatus) {
	title := fmt.Sprintf("Work order %s is now %s", wo.OrderNumber, to)
	body := fmt.Sprintf("Work order %s moved from %s to %s.", wo.OrderNumber, from, to)

	seen := map[uuid.UUID]bool{}
	notify := func(userID uuid.UUID) {
		if seen[userID] {
			return
		}
		seen[userID] = true
		if err := s.repo.Create(ctx, userID, types.NotifyWorkOrderStatus, title, body); err != nil {
			s.logger.ErrorContext(ctx, "failed to store notification",
				slog.String("user_id", userID.String()), slog.Any("error", err))
		}
	}

	if wo.AssignedTo != nil {
		notify(*wo.AssignedTo)
	}
	notify(wo.CreatedBy)

	if to == types.StatusCompleted {
		s.emailRoles(ctx, title, body, types.RoleAdmin, types.RoleManager)
	}
}

// LowStock raises an in-app alert for every active admin and manager,
// plus one email when mail is enabled.
func (s *ServiceImpl) LowStock(ctx context.Context, item *types.InventoryItem) {
	title := fmt.Sprintf("Low stock: %s", item.Name)
	body := fmt.Sprintf("%s (%s) is down to %d units; reorder threshold is %d.",
		item.Name, item.SKU, item.Quantity, item.MinQuantity)

	recipients, err := s.repo.RecipientsByRole(ctx, types.RoleAdmin, types.RoleManager)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to resolve low stock recipients", slog.Any("error", err))
		return
	}
	addresses := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		if err := s.repo.Create(ctx, recipient.ID, types.NotifyLowStock, title, body); err != nil {
			s.logger.ErrorContext(ctx, "failed to store notification",
				slog.String("user_id", recipient.ID.String()), slog.Any("error", err))
		}
		if recipient.Email != "" {
			addresses = append(addresses, recipient.Email)
		}
	}
	s.email(ctx, addresses, title, body)
}

func (s *ServiceImpl) emailRoles(ctx context.Context, subject, body string, roles ...types.Role) {
	if !s.cfg.Enabled || s.mailer == nil {
		return
	}
	recipients, err := s.repo.RecipientsByRole(ctx, roles...)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to resolve email recipients", slog.Any("error", err))
		return
	}
	addresses := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		if recipient.Email != "" {
			addresses = append(addresses, recipient.Email)
		}
	}
	s.email(ctx, addresses, subject, body)
}

func (s *ServiceImpl) email(ctx context.Context, to []string, subject, body string) {
	if !s.cfg.Enabled || s.mailer == nil || len(to) == 0 {
		return
	}
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		s.logger.ErrorContext(ctx, "failed to send email", slog.Any("error", err))
	}
}
