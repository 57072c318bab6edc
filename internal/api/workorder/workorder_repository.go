package workorder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
)

var _ WorkOrderRepo = (*PostgresWorkOrderRepo)(nil)

type WorkOrderRepo interface {
	List(ctx context.Context, filter types.WorkOrderFilter) (*types.Page[types.WorkOrder], error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.WorkOrder, error)
	Create(ctx context.Context, params types.CreateWorkOrderParams, orderNumber string, createdBy uuid.UUID) (*types.WorkOrder, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateWorkOrderParams) error
	SetStatus(ctx context.Context, id uuid.UUID, status types.WorkOrderStatus, now time.Time) error
	ListParts(ctx context.Context, workOrderID uuid.UUID) ([]types.WorkOrderPart, error)
	AddPart(ctx context.Context, workOrderID uuid.UUID, params types.AddPartParams) (*types.WorkOrderPart, error)
	RemovePart(ctx context.Context, workOrderID, partID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

type PostgresWorkOrderRepo struct {
	logger  *slog.Logger
	gateway *gateway.Gateway
}

func NewPostgresWorkOrderRepo(gw *gateway.Gateway, logger *slog.Logger) *PostgresWorkOrderRepo {
	return &PostgresWorkOrderRepo{logger: logger, gateway: gw}
}

const workOrderColumns = `id, order_number, customer_id, vehicle_id, status, priority, description,
	diagnosis, labor_cost, parts_cost, total_cost, assigned_to, created_by,
	started_at, completed_at, created_at, updated_at`

func scanWorkOrder(row map[string]any) types.WorkOrder {
	return types.WorkOrder{
		ID:          gateway.AsUUID(row, "id"),
		OrderNumber: gateway.AsString(row, "order_number"),
		CustomerID:  gateway.AsUUID(row, "customer_id"),
		VehicleID:   gateway.AsUUID(row, "vehicle_id"),
		Status:      types.WorkOrderStatus(gateway.AsString(row, "status")),
		Priority:    types.WorkOrderPriority(gateway.AsString(row, "priority")),
		Description: gateway.AsString(row, "description"),
		Diagnosis:   gateway.AsStringPtr(row, "diagnosis"),
		LaborCost:   gateway.AsFloat(row, "labor_cost"),
		PartsCost:   gateway.AsFloat(row, "parts_cost"),
		TotalCost:   gateway.AsFloat(row, "total_cost"),
		AssignedTo:  gateway.AsUUIDPtr(row, "assigned_to"),
		CreatedBy:   gateway.AsUUID(row, "created_by"),
		StartedAt:   gateway.AsTimePtr(row, "started_at"),
		CompletedAt: gateway.AsTimePtr(row, "completed_at"),
		CreatedAt:   gateway.AsTime(row, "created_at"),
		UpdatedAt:   gateway.AsTime(row, "updated_at"),
	}
}

func scanPart(row map[string]any) types.WorkOrderPart {
	return types.WorkOrderPart{
		ID:          gateway.AsUUID(row, "id"),
		WorkOrderID: gateway.AsUUID(row, "work_order_id"),
		ItemID:      gateway.AsUUID(row, "item_id"),
		ItemName:    gateway.AsString(row, "item_name"),
		Quantity:    gateway.AsInt(row, "quantity"),
		UnitPrice:   gateway.AsFloat(row, "unit_price"),
		CreatedAt:   gateway.AsTime(row, "created_at"),
	}
}

func (r *PostgresWorkOrderRepo) List(ctx context.Context, filter types.WorkOrderFilter) (*types.Page[types.WorkOrder], error) {
	where := "1 = 1"
	params := []any{}
	if filter.Status != "" {
		where += " AND status = ?"
		params = append(params, filter.Status)
	}
	if filter.Priority != "" {
		where += " AND priority = ?"
		params = append(params, filter.Priority)
	}
	if filter.CustomerID != "" {
		where += " AND customer_id = ?"
		params = append(params, filter.CustomerID)
	}
	if filter.AssignedTo != "" {
		where += " AND assigned_to = ?"
		params = append(params, filter.AssignedTo)
	}
	if filter.Search != "" {
		where += " AND (order_number ILIKE ? OR description ILIKE ?)"
		like := "%" + filter.Search + "%"
		params = append(params, like, like)
	}

	total, err := r.gateway.Count(ctx, "work_orders", where, params...)
	if err != nil {
		return nil, fmt.Errorf("count work orders: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM work_orders WHERE %s ORDER BY created_at DESC LIMIT ? OFFSET ?",
		workOrderColumns, where)
	rows, err := r.gateway.Select(ctx, query, append(params, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list work orders: %w", err)
	}

	items := make([]types.WorkOrder, 0, len(rows))
	for _, row := range rows {
		items = append(items, scanWorkOrder(row))
	}
	return &types.Page[types.WorkOrder]{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (r *PostgresWorkOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.WorkOrder, error) {
	row, err := r.gateway.SelectOne(ctx,
		"SELECT "+workOrderColumns+" FROM work_orders WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	wo := scanWorkOrder(row)
	return &wo, nil
}

func (r *PostgresWorkOrderRepo) Create(ctx context.Context, params types.CreateWorkOrderParams, orderNumber string, createdBy uuid.UUID) (*types.WorkOrder, error) {
	fields := map[string]any{
		"order_number": orderNumber,
		"customer_id":  params.CustomerID,
		"vehicle_id":   params.VehicleID,
		"status":       string(types.StatusPending),
		"priority":     params.Priority,
		"description":  params.Description,
		"labor_cost":   params.LaborCost,
		"parts_cost":   0,
		"total_cost":   params.LaborCost,
		"created_by":   createdBy,
	}
	if params.AssignedTo != nil {
		fields["assigned_to"] = *params.AssignedTo
	}

	id, err := r.gateway.Insert(ctx, "work_orders", fields)
	if err != nil {
		return nil, fmt.Errorf("create work order: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresWorkOrderRepo) Update(ctx context.Context, id uuid.UUID, params types.UpdateWorkOrderParams) error {
	fields := map[string]any{"updated_at": time.Now()}
	if params.Priority != nil {
		fields["priority"] = *params.Priority
	}
	if params.Description != nil {
		fields["description"] = *params.Description
	}
	if params.Diagnosis != nil {
		fields["diagnosis"] = *params.Diagnosis
	}
	if params.AssignedTo != nil {
		fields["assigned_to"] = *params.AssignedTo
	}

	affected, err := r.gateway.Update(ctx, "work_orders", fields, "id = ?", id)
	if err != nil {
		return fmt.Errorf("update work order: %w", err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}

	if params.LaborCost != nil {
		// Labor changes ripple into the total; one statement keeps the
		// two columns consistent.
		if _, err := r.gateway.Exec(ctx,
			"UPDATE work_orders SET labor_cost = ?, total_cost = ? + parts_cost, updated_at = ? WHERE id = ?",
			*params.LaborCost, *params.LaborCost, time.Now(), id); err != nil {
			return fmt.Errorf("update labor cost: %w", err)
		}
	}
	return nil
}

// SetStatus stamps started_at on the first move to in_progress and
// completed_at on completion.
func (r *PostgresWorkOrderRepo) SetStatus(ctx context.Context, id uuid.UUID, status types.WorkOrderStatus, now time.Time) error {
	fields := map[string]any{"status": string(status), "updated_at": now}
	switch status {
	case types.StatusInProgress:
		if _, err := r.gateway.Exec(ctx,
			"UPDATE work_orders SET status = ?, started_at = COALESCE(started_at, ?), updated_at = ? WHERE id = ?",
			string(status), now, now, id); err != nil {
			return fmt.Errorf("set status: %w", err)
		}
		return nil
	case types.StatusCompleted:
		fields["completed_at"] = now
	}

	affected, err := r.gateway.Update(ctx, "work_orders", fields, "id = ?", id)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresWorkOrderRepo) ListParts(ctx context.Context, workOrderID uuid.UUID) ([]types.WorkOrderPart, error) {
	rows, err := r.gateway.Select(ctx,
		`SELECT p.id, p.work_order_id, p.item_id, i.name AS item_name, p.quantity, p.unit_price, p.created_at
		 FROM work_order_parts p JOIN inventory_items i ON i.id = p.item_id
		 WHERE p.work_order_id = ? ORDER BY p.created_at`, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}
	parts := make([]types.WorkOrderPart, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, scanPart(row))
	}
	return parts, nil
}

// AddPart runs as a single transaction: the guarded stock decrement
// fails when quantity would go negative, the line is priced at the
// item's current unit price, and the order totals are recomputed from
// the parts table.
func (r *PostgresWorkOrderRepo) AddPart(ctx context.Context, workOrderID uuid.UUID, params types.AddPartParams) (*types.WorkOrderPart, error) {
	var partID uuid.UUID
	err := r.gateway.Tx(ctx, func(tx *gateway.Gateway) error {
		affected, err := tx.Exec(ctx,
			"UPDATE inventory_items SET quantity = quantity - ?, updated_at = ? WHERE id = ? AND quantity >= ? AND deleted_at IS NULL",
			params.Quantity, time.Now(), params.ItemID, params.Quantity)
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("insufficient stock for item %s: %w", params.ItemID, types.ErrConflict)
		}

		item, err := tx.SelectOne(ctx,
			"SELECT unit_price FROM inventory_items WHERE id = ?", params.ItemID)
		if err != nil {
			return err
		}

		partID, err = tx.Insert(ctx, "work_order_parts", map[string]any{
			"work_order_id": workOrderID,
			"item_id":       params.ItemID,
			"quantity":      params.Quantity,
			"unit_price":    gateway.AsFloat(item, "unit_price"),
		})
		if err != nil {
			return err
		}

		return recomputeTotals(ctx, tx, workOrderID)
	})
	if err != nil {
		return nil, err
	}

	row, err := r.gateway.SelectOne(ctx,
		`SELECT p.id, p.work_order_id, p.item_id, i.name AS item_name, p.quantity, p.unit_price, p.created_at
		 FROM work_order_parts p JOIN inventory_items i ON i.id = p.item_id WHERE p.id = ?`, partID)
	if err != nil {
		return nil, err
	}
	part := scanPart(row)
	return &part, nil
}

// RemovePart returns the consumed stock and recomputes totals, in the
// same transaction.
func (r *PostgresWorkOrderRepo) RemovePart(ctx context.Context, workOrderID, partID uuid.UUID) error {
	return r.gateway.Tx(ctx, func(tx *gateway.Gateway) error {
		part, err := tx.SelectOne(ctx,
			"SELECT item_id, quantity FROM work_order_parts WHERE id = ? AND work_order_id = ?",
			partID, workOrderID)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			"UPDATE inventory_items SET quantity = quantity + ?, updated_at = ? WHERE id = ?",
			gateway.AsInt(part, "quantity"), time.Now(), gateway.AsUUID(part, "item_id")); err != nil {
			return err
		}

		if _, err := tx.Delete(ctx, "work_order_parts", "id = ?", partID); err != nil {
			return err
		}

		return recomputeTotals(ctx, tx, workOrderID)
	})
}

func recomputeTotals(ctx context.Context, tx *gateway.Gateway, workOrderID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE work_orders SET
			parts_cost = (SELECT COALESCE(SUM(quantity * unit_price), 0) FROM work_order_parts WHERE work_order_id = ?),
			total_cost = labor_cost + (SELECT COALESCE(SUM(quantity * unit_price), 0) FROM work_order_parts WHERE work_order_id = ?),
			updated_at = ?
		 WHERE id = ?`,
		workOrderID, workOrderID, time.Now(), workOrderID)
	return err
}

// Delete returns any consumed stock to inventory, then removes the
// order row; part lines go with it via cascade.
func (r *PostgresWorkOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.gateway.Tx(ctx, func(tx *gateway.Gateway) error {
		parts, err := tx.Select(ctx,
			"SELECT item_id, quantity FROM work_order_parts WHERE work_order_id = ?", id)
		if err != nil {
			return err
		}
		for _, part := range parts {
			if _, err := tx.Exec(ctx,
				"UPDATE inventory_items SET quantity = quantity + ?, updated_at = ? WHERE id = ?",
				gateway.AsInt(part, "quantity"), time.Now(), gateway.AsUUID(part, "item_id")); err != nil {
				return err
			}
		}

		affected, err := tx.Delete(ctx, "work_orders", "id = ?", id)
		if err != nil {
			return fmt.Errorf("delete work order: %w", err)
		}
		if affected == 0 {
			return types.ErrNotFound
		}
		return nil
	})
}

func (r *PostgresWorkOrderRepo) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	return r.gateway.Count(ctx, "work_orders", "created_at >= ?", since)
}
