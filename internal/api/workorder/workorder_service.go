package workorder

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wrenchwise/workshop-api/app/observability/metrics"
	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
	"github.com/wrenchwise/workshop-api/internal/validation"
)

var _ WorkOrderService = (*ServiceImpl)(nil)

type WorkOrderService interface {
	List(ctx context.Context, filter types.WorkOrderFilter) (*types.Page[types.WorkOrder], error)
	Get(ctx context.Context, id uuid.UUID) (*types.WorkOrder, error)
	Create(ctx context.Context, params types.CreateWorkOrderParams, createdBy uuid.UUID) (*types.WorkOrder, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateWorkOrderParams) (*types.WorkOrder, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, to types.WorkOrderStatus) (*types.WorkOrder, error)
	ListParts(ctx context.Context, id uuid.UUID) ([]types.WorkOrderPart, error)
	AddPart(ctx context.Context, id uuid.UUID, params types.AddPartParams) (*types.WorkOrderPart, error)
	RemovePart(ctx context.Context, id, partID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// StatusNotifier receives work order lifecycle events. The notification
// package provides the production implementation.
type StatusNotifier interface {
	WorkOrderStatusChanged(ctx context.Context, wo *types.WorkOrder, from, to types.WorkOrderStatus)
}

type ServiceImpl struct {
	logger   *slog.Logger
	repo     WorkOrderRepo
	gateway  *gateway.Gateway
	notifier StatusNotifier
	now      func() time.Time
}

func NewServiceImpl(repo WorkOrderRepo, gw *gateway.Gateway, notifier StatusNotifier, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		repo:     repo,
		gateway:  gw,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *ServiceImpl) List(ctx context.Context, filter types.WorkOrderFilter) (*types.Page[types.WorkOrder], error) {
	if filter.Limit <= 0 {
		filter.Limit = 25
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

func (s *ServiceImpl) Get(ctx context.Context, id uuid.UUID) (*types.WorkOrder, error) {
	return s.repo.GetByID(ctx, id)
}

// nextOrderNumber derives a human-readable sequence: date plus the count
// of orders opened since midnight. Gaps after a failed insert are fine,
// the column stays unique.
func (s *ServiceImpl) nextOrderNumber(ctx context.Context) (string, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	n, err := s.repo.CountCreatedSince(ctx, midnight)
	if err != nil {
		return "", fmt.Errorf("order number sequence: %w", err)
	}
	return fmt.Sprintf("WO-%s-%04d", now.Format("20060102"), n+1), nil
}

func (s *ServiceImpl) Create(ctx context.Context, params types.CreateWorkOrderParams, createdBy uuid.UUID) (*types.WorkOrder, error) {
	l := s.logger.With(slog.String("method", "Create"))

	data := map[string]string{
		"customer_id": params.CustomerID,
		"vehicle_id":  params.VehicleID,
		"priority":    params.Priority,
		"description": params.Description,
		"labor_cost":  strconv.FormatFloat(params.LaborCost, 'f', -1, 64),
	}
	if params.AssignedTo != nil {
		data["assigned_to"] = *params.AssignedTo
	}

	v := validation.WorkOrder(data, s.gateway)
	if err := v.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate work order: %w", err)
	}
	if !v.IsValid(ctx) {
		return nil, &types.ValidationError{Fields: v.Errors(ctx)}
	}

	orderNumber, err := s.nextOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, params, orderNumber, createdBy)
	if err != nil {
		l.ErrorContext(ctx, "failed to create work order", slog.Any("error", err))
		return nil, err
	}
	if m := metrics.Get(); m != nil {
		m.WorkOrdersCreatedTotal.Add(ctx, 1)
	}
	l.InfoContext(ctx, "work order opened",
		slog.String("work_order_id", created.ID.String()),
		slog.String("order_number", created.OrderNumber))
	return created, nil
}

func (s *ServiceImpl) Update(ctx context.Context, id uuid.UUID, params types.UpdateWorkOrderParams) (*types.WorkOrder, error) {
	data := map[string]string{}
	if params.Priority != nil {
		data["priority"] = *params.Priority
	}
	if params.Description != nil {
		data["description"] = *params.Description
	}
	if params.LaborCost != nil {
		data["labor_cost"] = strconv.FormatFloat(*params.LaborCost, 'f', -1, 64)
	}
	if params.AssignedTo != nil {
		data["assigned_to"] = *params.AssignedTo
	}

	v := validation.New(data, s.gateway)
	v.Sometimes("priority", func(v *validation.Validator) { v.In("priority", types.WorkOrderPriorities) })
	v.Sometimes("description", func(v *validation.Validator) { v.Min("description", 3).Max("description", 5000) })
	v.Sometimes("labor_cost", func(v *validation.Validator) {
		v.Numeric("labor_cost").Between("labor_cost", 0, types.MaxMoneyAmount)
	})
	v.Sometimes("assigned_to", func(v *validation.Validator) {
		v.Exists("assigned_to", "users", "id", "assigned user does not exist")
	})
	if err := v.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate work order update: %w", err)
	}
	if !v.IsValid(ctx) {
		return nil, &types.ValidationError{Fields: v.Errors(ctx)}
	}

	if err := s.repo.Update(ctx, id, params); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// ChangeStatus enforces the lifecycle state machine; an illegal move is
// a conflict, not a validation error, because the record itself is fine.
func (s *ServiceImpl) ChangeStatus(ctx context.Context, id uuid.UUID, to types.WorkOrderStatus) (*types.WorkOrder, error) {
	l := s.logger.With(slog.String("method", "ChangeStatus"), slog.String("work_order_id", id.String()))

	wo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := wo.Status
	if !from.CanTransition(to) {
		return nil, fmt.Errorf("cannot move work order from %s to %s: %w", from, to, types.ErrConflict)
	}

	if err := s.repo.SetStatus(ctx, id, to, s.now()); err != nil {
		return nil, err
	}
	l.InfoContext(ctx, "work order status changed",
		slog.String("from", string(from)), slog.String("to", string(to)))

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.WorkOrderStatusChanged(ctx, updated, from, to)
	}
	return updated, nil
}

func (s *ServiceImpl) ListParts(ctx context.Context, id uuid.UUID) ([]types.WorkOrderPart, error) {
	return s.repo.ListParts(ctx, id)
}

// AddPart refuses on closed orders; stock movement and totals are the
// repository transaction's business.
func (s *ServiceImpl) AddPart(ctx context.Context, id uuid.UUID, params types.AddPartParams) (*types.WorkOrderPart, error) {
	if params.Quantity <= 0 {
		return nil, &types.ValidationError{Fields: map[string][]string{
			"quantity": {"quantity must be a positive integer"},
		}}
	}
	if _, err := uuid.Parse(params.ItemID); err != nil {
		return nil, &types.ValidationError{Fields: map[string][]string{
			"item_id": {"item_id must be a valid id"},
		}}
	}

	wo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wo.Status == types.StatusCompleted || wo.Status == types.StatusCancelled || wo.Status == types.StatusDelivered {
		return nil, fmt.Errorf("work order %s is closed: %w", wo.OrderNumber, types.ErrConflict)
	}

	return s.repo.AddPart(ctx, id, params)
}

func (s *ServiceImpl) RemovePart(ctx context.Context, id, partID uuid.UUID) error {
	wo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if wo.Status == types.StatusCompleted || wo.Status == types.StatusCancelled || wo.Status == types.StatusDelivered {
		return fmt.Errorf("work order %s is closed: %w", wo.OrderNumber, types.ErrConflict)
	}
	return s.repo.RemovePart(ctx, id, partID)
}

// Delete removes orders that never entered the shop floor. Anything with
// work history stays on record; cancel it instead.
func (s *ServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	l := s.logger.With(slog.String("method", "Delete"), slog.String("work_order_id", id.String()))

	wo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if wo.Status != types.StatusPending && wo.Status != types.StatusCancelled {
		return fmt.Errorf("work order %s has history and cannot be deleted: %w", wo.OrderNumber, types.ErrConflict)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	l.InfoContext(ctx, "work order deleted", slog.String("order_number", wo.OrderNumber))
	return nil
}
