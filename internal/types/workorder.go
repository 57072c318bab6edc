package types

import (
	"time"

	"github.com/google/uuid"
)

// WorkOrderStatus is the closed lifecycle enum for a work order.
type WorkOrderStatus string

const (
	StatusPending      WorkOrderStatus = "pending"
	StatusInProgress   WorkOrderStatus = "in_progress"
	StatusWaitingParts WorkOrderStatus = "waiting_parts"
	StatusCompleted    WorkOrderStatus = "completed"
	StatusCancelled    WorkOrderStatus = "cancelled"
	StatusDelivered    WorkOrderStatus = "delivered"
)

// WorkOrderStatuses lists every status accepted on input.
var WorkOrderStatuses = []string{
	string(StatusPending), string(StatusInProgress), string(StatusWaitingParts),
	string(StatusCompleted), string(StatusCancelled), string(StatusDelivered),
}

// CanTransition encodes the permitted status moves. Terminal states
// (cancelled, delivered) accept no further transitions.
func (s WorkOrderStatus) CanTransition(to WorkOrderStatus) bool {
	allowed, ok := map[WorkOrderStatus][]WorkOrderStatus{
		StatusPending:      {StatusInProgress, StatusCancelled},
		StatusInProgress:   {StatusWaitingParts, StatusCompleted, StatusCancelled},
		StatusWaitingParts: {StatusInProgress, StatusCancelled},
		StatusCompleted:    {StatusDelivered},
	}[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == to {
			return true
		}
	}
	return false
}

// WorkOrderPriority is the closed priority enum.
type WorkOrderPriority string

const (
	PriorityLow    WorkOrderPriority = "low"
	PriorityNormal WorkOrderPriority = "normal"
	PriorityHigh   WorkOrderPriority = "high"
	PriorityUrgent WorkOrderPriority = "urgent"
)

var WorkOrderPriorities = []string{
	string(PriorityLow), string(PriorityNormal), string(PriorityHigh), string(PriorityUrgent),
}

// MaxMoneyAmount bounds every monetary field in the system.
const MaxMoneyAmount = 999_999_999

type WorkOrder struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"order_number"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	VehicleID   uuid.UUID         `json:"vehicle_id"`
	Status      WorkOrderStatus   `json:"status"`
	Priority    WorkOrderPriority `json:"priority"`
	Description string            `json:"description"`
	Diagnosis   *string           `json:"diagnosis,omitempty"`
	LaborCost   float64           `json:"labor_cost"`
	PartsCost   float64           `json:"parts_cost"`
	TotalCost   float64           `json:"total_cost"`
	AssignedTo  *uuid.UUID        `json:"assigned_to,omitempty"`
	CreatedBy   uuid.UUID         `json:"created_by"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// WorkOrderPart is one inventory line consumed by a work order.
type WorkOrderPart struct {
	ID          uuid.UUID `json:"id"`
	WorkOrderID uuid.UUID `json:"work_order_id"`
	ItemID      uuid.UUID `json:"item_id"`
	ItemName    string    `json:"item_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateWorkOrderParams struct {
	CustomerID  string  `json:"customer_id"`
	VehicleID   string  `json:"vehicle_id"`
	Priority    string  `json:"priority"`
	Description string  `json:"description"`
	LaborCost   float64 `json:"labor_cost"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
}

type UpdateWorkOrderParams struct {
	Priority    *string  `json:"priority,omitempty"`
	Description *string  `json:"description,omitempty"`
	Diagnosis   *string  `json:"diagnosis,omitempty"`
	LaborCost   *float64 `json:"labor_cost,omitempty"`
	AssignedTo  *string  `json:"assigned_to,omitempty"`
}

// AddPartParams consumes stock for a work order inside one transaction.
type AddPartParams struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type WorkOrderFilter struct {
	ListFilter
	Status     string
	Priority   string
	CustomerID string
	AssignedTo string
}
