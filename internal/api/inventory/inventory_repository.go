package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
)

var _ InventoryRepo = (*PostgresInventoryRepo)(nil)

type InventoryRepo interface {
	List(ctx context.Context, filter types.ListFilter) (*types.Page[types.InventoryItem], error)
	ListLowStock(ctx context.Context) ([]types.InventoryItem, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.InventoryItem, error)
	Create(ctx context.Context, params types.CreateInventoryItemParams) (*types.InventoryItem, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateInventoryItemParams) error
	AdjustStock(ctx context.Context, id uuid.UUID, delta int, reason string, actor uuid.UUID) (*types.InventoryItem, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type PostgresInventoryRepo struct {
	logger  *slog.Logger
	gateway *gateway.Gateway
}

func NewPostgresInventoryRepo(gw *gateway.Gateway, logger *slog.Logger) *PostgresInventoryRepo {
	return &PostgresInventoryRepo{logger: logger, gateway: gw}
}

const itemColumns = `id, sku, name, description, category, quantity, min_quantity, unit_price,
	supplier, created_at, updated_at, deleted_at`

func scanItem(row map[string]any) types.InventoryItem {
	return types.InventoryItem{
		ID:          gateway.AsUUID(row, "id"),
		SKU:         gateway.AsString(row, "sku"),
		Name:        gateway.AsString(row, "name"),
		Description: gateway.AsStringPtr(row, "description"),
		Category:    gateway.AsStringPtr(row, "category"),
		Quantity:    gateway.AsInt(row, "quantity"),
		MinQuantity: gateway.AsInt(row, "min_quantity"),
		UnitPrice:   gateway.AsFloat(row, "unit_price"),
		Supplier:    gateway.AsStringPtr(row, "supplier"),
		CreatedAt:   gateway.AsTime(row, "created_at"),
		UpdatedAt:   gateway.AsTime(row, "updated_at"),
		DeletedAt:   gateway.AsTimePtr(row, "deleted_at"),
	}
}

func (r *PostgresInventoryRepo) List(ctx context.Context, filter types.ListFilter) (*types.Page[types.InventoryItem], error) {
	where := "deleted_at IS NULL"
	params := []any{}
	if filter.Search != "" {
		where += " AND (sku ILIKE ? OR name ILIKE ? OR category ILIKE ?)"
		like := "%" + filter.Search + "%"
		params = append(params, like, like, like)
	}

	total, err := r.gateway.Count(ctx, "inventory_items", where, params...)
	if err != nil {
		return nil, fmt.Errorf("count inventory: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM inventory_items WHERE %s ORDER BY name LIMIT ? OFFSET ?",
		itemColumns, where)
	rows, err := r.gateway.Select(ctx, query, append(params, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}

	items := make([]types.InventoryItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, scanItem(row))
	}
	return &types.Page[types.InventoryItem]{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (r *PostgresInventoryRepo) ListLowStock(ctx context.Context) ([]types.InventoryItem, error) {
	rows, err := r.gateway.Select(ctx,
		"SELECT "+itemColumns+" FROM inventory_items WHERE quantity <= min_quantity AND deleted_at IS NULL ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	items := make([]types.InventoryItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, scanItem(row))
	}
	return items, nil
}

func (r *PostgresInventoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.InventoryItem, error) {
	row, err := r.gateway.SelectOne(ctx,
		"SELECT "+itemColumns+" FROM inventory_items WHERE id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return nil, err
	}
	item := scanItem(row)
	return &item, nil
}

func (r *PostgresInventoryRepo) Create(ctx context.Context, params types.CreateInventoryItemParams) (*types.InventoryItem, error) {
	id, err := r.gateway.Insert(ctx, "inventory_items", map[string]any{
		"sku":          params.SKU,
		"name":         params.Name,
		"description":  params.Description,
		"category":     params.Category,
		"quantity":     params.Quantity,
		"min_quantity": params.MinQuantity,
		"unit_price":   params.UnitPrice,
		"supplier":     params.Supplier,
	})
	if err != nil {
		return nil, fmt.Errorf("create inventory item: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresInventoryRepo) Update(ctx context.Context, id uuid.UUID, params types.UpdateInventoryItemParams) error {
	fields := map[string]any{"updated_at": time.Now()}
	if params.Name != nil {
		fields["name"] = *params.Name
	}
	if params.Description != nil {
		fields["description"] = *params.Description
	}
	if params.Category != nil {
		fields["category"] = *params.Category
	}
	if params.MinQuantity != nil {
		fields["min_quantity"] = *params.MinQuantity
	}
	if params.UnitPrice != nil {
		fields["unit_price"] = *params.UnitPrice
	}
	if params.Supplier != nil {
		fields["supplier"] = *params.Supplier
	}

	affected, err := r.gateway.Update(ctx, "inventory_items", fields, "id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("update inventory item: %w", err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// AdjustStock moves stock by a signed delta inside one transaction. The
// guarded update refuses a decrement past zero, and every movement
// leaves an audit row.
func (r *PostgresInventoryRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int, reason string, actor uuid.UUID) (*types.InventoryItem, error) {
	err := r.gateway.Tx(ctx, func(tx *gateway.Gateway) error {
		affected, err := tx.Exec(ctx,
			"UPDATE inventory_items SET quantity = quantity + ?, updated_at = ? WHERE id = ? AND quantity + ? >= 0 AND deleted_at IS NULL",
			delta, time.Now(), id, delta)
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("stock adjustment of %d refused: %w", delta, types.ErrConflict)
		}

		_, err = tx.Insert(ctx, "stock_movements", map[string]any{
			"item_id":  id,
			"delta":    delta,
			"reason":   reason,
			"actor_id": actor,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresInventoryRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	affected, err := r.gateway.Update(ctx, "inventory_items",
		map[string]any{"deleted_at": time.Now()}, "id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("soft delete inventory item: %w", err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}
