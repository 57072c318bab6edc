package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
)

var _ DashboardRepo = (*PostgresDashboardRepo)(nil)

type DashboardRepo interface {
	Summary(ctx context.Context, now time.Time) (*types.DashboardSummary, error)
}

type PostgresDashboardRepo struct {
	logger  *slog.Logger
	gateway *gateway.Gateway
}

func NewPostgresDashboardRepo(gw *gateway.Gateway, logger *slog.Logger) *PostgresDashboardRepo {
	return &PostgresDashboardRepo{logger: logger, gateway: gw}
}

const recentWorkOrderLimit = 10

// Summary runs the landing-page aggregates. Revenue counts completed
// and delivered orders finished since the start of the current month.
func (r *PostgresDashboardRepo) Summary(ctx context.Context, now time.Time) (*types.DashboardSummary, error) {
	summary := &types.DashboardSummary{
		WorkOrderByStatus: map[string]int{},
		RecentWorkOrders:  []types.WorkOrderSummary{},
	}

	var err error
	if summary.Customers, err = r.gateway.Count(ctx, "customers", "deleted_at IS NULL"); err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}
	if summary.Vehicles, err = r.gateway.Count(ctx, "vehicles", "deleted_at IS NULL"); err != nil {
		return nil, fmt.Errorf("count vehicles: %w", err)
	}
	if summary.OpenWorkOrders, err = r.gateway.Count(ctx, "work_orders", "status NOT IN (?, ?, ?)",
		string(types.StatusCompleted), string(types.StatusCancelled), string(types.StatusDelivered)); err != nil {
		return nil, fmt.Errorf("count open work orders: %w", err)
	}
	if summary.LowStockItems, err = r.gateway.Count(ctx, "inventory_items",
		"quantity <= min_quantity AND deleted_at IS NULL"); err != nil {
		return nil, fmt.Errorf("count low stock items: %w", err)
	}

	statusRows, err := r.gateway.Select(ctx,
		"SELECT status, COUNT(*) AS total FROM work_orders GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("work orders by status: %w", err)
	}
	for _, row := range statusRows {
		summary.WorkOrderByStatus[gateway.AsString(row, "status")] = gateway.AsInt(row, "total")
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	revenueRow, err := r.gateway.SelectOne(ctx,
		"SELECT COALESCE(SUM(total_cost), 0) AS revenue FROM work_orders WHERE status IN (?, ?) AND completed_at >= ?",
		string(types.StatusCompleted), string(types.StatusDelivered), monthStart)
	if err != nil {
		return nil, fmt.Errorf("revenue this month: %w", err)
	}
	summary.RevenueThisMonth = gateway.AsFloat(revenueRow, "revenue")

	recentRows, err := r.gateway.Select(ctx, `SELECT w.id, w.order_number, c.name AS customer_name,
	v.license_plate, w.status, w.priority, w.total_cost, w.created_at
	FROM work_orders w
	JOIN customers c ON c.id = w.customer_id
	JOIN vehicles v ON v.id = w.vehicle_id
	ORDER BY w.created_at DESC LIMIT ?`, recentWorkOrderLimit)
	if err != nil {
		return nil, fmt.Errorf("recent work orders: %w", err)
	}
	for _, row := range recentRows {
		summary.RecentWorkOrders = append(summary.RecentWorkOrders, types.WorkOrderSummary{
			ID:           gateway.AsUUID(row, "id").String(),
			OrderNumber:  gateway.AsString(row, "order_number"),
			CustomerName: gateway.AsString(row, "customer_name"),
			LicensePlate: gateway.AsString(row, "license_plate"),
			Status:       gateway.AsString(row, "status"),
			Priority:     gateway.AsString(row, "priority"),
			TotalCost:    gateway.AsFloat(row, "total_cost"),
			CreatedAt:    gateway.AsTime(row, "created_at").Format(time.RFC3339),
		})
	}

	return summary, nil
}
