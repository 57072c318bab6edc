package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/wrenchwise/workshop-api/app/observability/metrics"
	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
	"github.com/wrenchwise/workshop-api/internal/validation"
)

var _ InventoryService = (*ServiceImpl)(nil)

// LowStockNotifier receives items that crossed their reorder threshold.
type LowStockNotifier interface {
	LowStock(ctx context.Context, item *types.InventoryItem)
}

type InventoryService interface {
	List(ctx context.Context, filter types.ListFilter) (*types.Page[types.InventoryItem], error)
	ListLowStock(ctx context.Context) ([]types.InventoryItem, error)
	Get(ctx context.Context, id uuid.UUID) (*types.InventoryItem, error)
	Create(ctx context.Context, params types.CreateInventoryItemParams) (*types.InventoryItem, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateInventoryItemParams) (*types.InventoryItem, error)
	AdjustStock(ctx context.Context, id uuid.UUID, params types.AdjustStockParams, actor uuid.UUID) (*types.InventoryItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ServiceImpl struct {
	logger   *slog.Logger
	repo     InventoryRepo
	gateway  *gateway.Gateway
	notifier LowStockNotifier
}

func NewServiceImpl(repo InventoryRepo, gw *gateway.Gateway, notifier LowStockNotifier, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, gateway: gw, notifier: notifier}
}

const defaultPageSize = 25
const maxPageSize = 200

func clampFilter(f types.ListFilter) types.ListFilter {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func (s *ServiceImpl) List(ctx context.Context, filter types.ListFilter) (*types.Page[types.InventoryItem], error) {
	return s.repo.List(ctx, clampFilter(filter))
}

func (s *ServiceImpl) ListLowStock(ctx context.Context) ([]types.InventoryItem, error) {
	return s.repo.ListLowStock(ctx)
}

func (s *ServiceImpl) Get(ctx context.Context, id uuid.UUID) (*types.InventoryItem, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ServiceImpl) Create(ctx context.Context, params types.CreateInventoryItemParams) (*types.InventoryItem, error) {
	l := s.logger.With(slog.String("method", "Create"))

	data := map[string]string{
		"sku":          params.SKU,
		"name":         params.Name,
		"quantity":     strconv.Itoa(params.Quantity),
		"min_quantity": strconv.Itoa(params.MinQuantity),
		"unit_price":   strconv.FormatFloat(params.UnitPrice, 'f', -1, 64),
	}

	v := validation.InventoryItem(data, s.gateway, "")
	if err := v.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate inventory item: %w", err)
	}
	if !v.IsValid(ctx) {
		return nil, &types.ValidationError{Fields: v.Errors(ctx)}
	}

	created, err := s.repo.Create(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "failed to create inventory item", slog.Any("error", err))
		return nil, err
	}
	l.InfoContext(ctx, "inventory item created",
		slog.String("item_id", created.ID.String()), slog.String("sku", created.SKU))
	s.checkLowStock(ctx, created)
	return created, nil
}

func (s *ServiceImpl) Update(ctx context.Context, id uuid.UUID, params types.UpdateInventoryItemParams) (*types.InventoryItem, error) {
	data := map[string]string{}
	if params.Name != nil {
		data["name"] = *params.Name
	}
	if params.MinQuantity != nil {
		data["min_quantity"] = strconv.Itoa(*params.MinQuantity)
	}
	if params.UnitPrice != nil {
		data["unit_price"] = strconv.FormatFloat(*params.UnitPrice, 'f', -1, 64)
	}

	v := validation.New(data, s.gateway)
	v.Sometimes("name", func(v *validation.Validator) { v.Min("name", 2).Max("name", 200) })
	v.Sometimes("min_quantity", func(v *validation.Validator) {
		v.Numeric("min_quantity").Between("min_quantity", 0, 1_000_000)
	})
	v.Sometimes("unit_price", func(v *validation.Validator) {
		v.Numeric("unit_price").Between("unit_price", 0, types.MaxMoneyAmount)
	})
	if err := v.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate inventory update: %w", err)
	}
	if !v.IsValid(ctx) {
		return nil, &types.ValidationError{Fields: v.Errors(ctx)}
	}

	if err := s.repo.Update(ctx, id, params); err != nil {
		return nil, err
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.checkLowStock(ctx, item)
	return item, nil
}

// AdjustStock applies a signed stock movement. A delta that would take
// the quantity negative is refused by the repository's guarded update.
func (s *ServiceImpl) AdjustStock(ctx context.Context, id uuid.UUID, params types.AdjustStockParams, actor uuid.UUID) (*types.InventoryItem, error) {
	l := s.logger.With(slog.String("method", "AdjustStock"))

	fields := map[string][]string{}
	if params.Delta == 0 {
		fields["delta"] = append(fields["delta"], "delta must be non-zero")
	}
	if params.Reason == "" {
		fields["reason"] = append(fields["reason"], "reason is required")
	}
	if len(fields) > 0 {
		return nil, &types.ValidationError{Fields: fields}
	}

	item, err := s.repo.AdjustStock(ctx, id, params.Delta, params.Reason, actor)
	if err != nil {
		return nil, err
	}
	l.InfoContext(ctx, "stock adjusted",
		slog.String("item_id", id.String()),
		slog.Int("delta", params.Delta),
		slog.Int("quantity", item.Quantity))
	s.checkLowStock(ctx, item)
	return item, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}

func (s *ServiceImpl) checkLowStock(ctx context.Context, item *types.InventoryItem) {
	if !item.LowStock() {
		return
	}
	if m := metrics.Get(); m != nil {
		m.LowStockAlertsTotal.Add(ctx, 1)
	}
	s.logger.WarnContext(ctx, "item is at or below reorder threshold",
		slog.String("item_id", item.ID.String()),
		slog.String("sku", item.SKU),
		slog.Int("quantity", item.Quantity),
		slog.Int("min_quantity", item.MinQuantity))
	if s.notifier != nil {
		s.notifier.LowStock(ctx, item)
	}
}
