package types

// DashboardSummary aggregates the landing-page counters.
type DashboardSummary struct {
	Customers         int                `json:"customers"`
	Vehicles          int                `json:"vehicles"`
	OpenWorkOrders    int                `json:"open_work_orders"`
	WorkOrderByStatus map[string]int     `json:"work_orders_by_status"`
	RevenueThisMonth  float64            `json:"revenue_this_month"`
	LowStockItems     int                `json:"low_stock_items"`
	RecentWorkOrders  []WorkOrderSummary `json:"recent_work_orders"`
}

// WorkOrderSummary is the denormalized row shown on the dashboard list.
type WorkOrderSummary struct {
	ID           string  `json:"id"`
	OrderNumber  string  `json:"order_number"`
	CustomerName string  `json:"customer_name"`
	LicensePlate string  `json:"license_plate"`
	Status       string  `json:"status"`
	Priority     string  `json:"priority"`
	TotalCost    float64 `json:"total_cost"`
	CreatedAt    string  `json:"created_at"`
}
